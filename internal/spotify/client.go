// Package spotify expands Spotify track, album and playlist links into plain search queries.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/pkg/text"
)

const (
	// entityTrack, entityAlbum and entityPlaylist are the link kinds the catalog expands
	entityTrack    = "track"
	entityAlbum    = "album"
	entityPlaylist = "playlist"
	// maxPageSize is the largest page the Web API returns for album and playlist items
	maxPageSize = 50
)

var (
	// ErrNotAuthenticated is returned when Expand is called before Authenticate.
	ErrNotAuthenticated = errors.New("spotify client not authenticated")
	// ErrUnsupportedLink is returned for Spotify links that are not tracks, albums or playlists.
	ErrUnsupportedLink = errors.New("unsupported spotify link")
)

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
	}
}

// Authenticate obtains an app token through the client-credentials flow.
// ctx must outlive the client: it is used for token refreshes.
func (c *Client) Authenticate(ctx context.Context) error {
	cfg := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	if _, err := cfg.Token(ctx); err != nil {
		return fmt.Errorf("spotify client credentials: %w", err)
	}

	c.client = spotify.New(cfg.Client(ctx))
	c.logger.Info("Authenticated with Spotify using client credentials")
	return nil
}

// CanExpand reports whether rawURL is a Spotify track, album or playlist link.
func (c *Client) CanExpand(rawURL string) bool {
	kind, _ := text.SpotifyEntity(rawURL)
	return kind != "" && (strings.HasPrefix(rawURL, "spotify:") || strings.Contains(rawURL, "spotify.com"))
}

// Expand returns "title artist" queries for the tracks behind a link, in catalog order, capped at limit.
func (c *Client) Expand(ctx context.Context, rawURL string, limit int) ([]string, error) {
	if c.client == nil {
		return nil, ErrNotAuthenticated
	}

	kind, id := text.SpotifyEntity(rawURL)
	switch kind {
	case entityTrack:
		return c.expandTrack(ctx, spotify.ID(id))
	case entityAlbum:
		return c.expandAlbum(ctx, spotify.ID(id), limit)
	case entityPlaylist:
		return c.expandPlaylist(ctx, spotify.ID(id), limit)
	}
	return nil, ErrUnsupportedLink
}

func (c *Client) expandTrack(ctx context.Context, id spotify.ID) ([]string, error) {
	track, err := c.client.GetTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", id, err)
	}
	return []string{searchQuery(track.Name, track.Artists)}, nil
}

func (c *Client) expandAlbum(ctx context.Context, id spotify.ID, limit int) ([]string, error) {
	page, err := c.client.GetAlbumTracks(ctx, id, spotify.Limit(pageSize(limit)))
	if err != nil {
		return nil, fmt.Errorf("get album tracks %s: %w", id, err)
	}

	queries := make([]string, 0, len(page.Tracks))
	for i := range page.Tracks {
		if len(queries) >= limit {
			break
		}
		queries = append(queries, searchQuery(page.Tracks[i].Name, page.Tracks[i].Artists))
	}

	c.logger.Debug("Expanded Spotify album", zap.String("albumID", string(id)), zap.Int("tracks", len(queries)))
	return queries, nil
}

func (c *Client) expandPlaylist(ctx context.Context, id spotify.ID, limit int) ([]string, error) {
	page, err := c.client.GetPlaylistItems(ctx, id, spotify.Limit(pageSize(limit)))
	if err != nil {
		return nil, fmt.Errorf("get playlist items %s: %w", id, err)
	}

	queries := make([]string, 0, len(page.Items))
	for i := range page.Items {
		if len(queries) >= limit {
			break
		}
		// podcast episodes and removed tracks have no track body
		track := page.Items[i].Track.Track
		if track == nil {
			continue
		}
		queries = append(queries, searchQuery(track.Name, track.Artists))
	}

	c.logger.Debug("Expanded Spotify playlist", zap.String("playlistID", string(id)), zap.Int("tracks", len(queries)))
	return queries, nil
}

func searchQuery(name string, artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(name + " " + artists[0].Name)
}

func pageSize(limit int) int {
	if limit <= 0 || limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
