package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

const (
	restTimeout     = 15 * time.Second
	maxErrorBodyLen = 512
)

// ErrLoadFailed is returned when the node reports a load error for an identifier.
var ErrLoadFailed = errors.New("lavalink load failed")

// StatusError is a non-2xx response from the node.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lavalink %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type RESTClient struct {
	baseURL    string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewRESTClient(config *core.LavalinkConfig, logger *zap.Logger) *RESTClient {
	scheme := "http"
	if config.Secure {
		scheme = "https"
	}
	baseURL := fmt.Sprintf("%s://%s:%d", scheme, config.Host, config.Port)
	return newRESTClient(baseURL, config.Password, config.RequestsPerSec, logger)
}

func newRESTClient(baseURL, password string, requestsPerSec int, logger *zap.Logger) *RESTClient {
	if requestsPerSec <= 0 {
		requestsPerSec = core.DefaultLavalinkRequestsPerSec
	}
	return &RESTClient{
		baseURL:    baseURL,
		password:   password,
		httpClient: &http.Client{Timeout: restTimeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), requestsPerSec),
		logger:     logger,
	}
}

// LoadTracks resolves an identifier (URL or "<source>search:<query>").
// Search hits and playlist entries keep the order the node reported.
func (c *RESTClient) LoadTracks(ctx context.Context, identifier string) (*core.LoadResult, error) {
	var resp loadResponse
	path := "/v4/loadtracks?identifier=" + url.QueryEscape(identifier)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	switch resp.LoadType {
	case loadTypeTrack:
		var track Track
		if err := json.Unmarshal(resp.Data, &track); err != nil {
			return nil, fmt.Errorf("decode track: %w", err)
		}
		return &core.LoadResult{Tracks: []core.Track{track.toCore()}}, nil

	case loadTypeSearch:
		var tracks []Track
		if err := json.Unmarshal(resp.Data, &tracks); err != nil {
			return nil, fmt.Errorf("decode search results: %w", err)
		}
		result := &core.LoadResult{Tracks: make([]core.Track, 0, len(tracks))}
		for _, t := range tracks {
			result.Tracks = append(result.Tracks, t.toCore())
		}
		return result, nil

	case loadTypePlaylist:
		var playlist playlistData
		if err := json.Unmarshal(resp.Data, &playlist); err != nil {
			return nil, fmt.Errorf("decode playlist: %w", err)
		}
		result := &core.LoadResult{
			Playlist:     true,
			PlaylistName: playlist.Info.Name,
			Tracks:       make([]core.Track, 0, len(playlist.Tracks)),
		}
		for _, t := range playlist.Tracks {
			result.Tracks = append(result.Tracks, t.toCore())
		}
		return result, nil

	case loadTypeEmpty:
		return &core.LoadResult{}, nil

	case loadTypeError:
		var exc exceptionData
		_ = json.Unmarshal(resp.Data, &exc)
		return nil, fmt.Errorf("%w: %s (%s)", ErrLoadFailed, exc.Message, exc.Severity)
	}

	return nil, fmt.Errorf("unknown load type %q", resp.LoadType)
}

// UpdatePlayer patches the player of a guild, creating it if needed.
func (c *RESTClient) UpdatePlayer(ctx context.Context, sessionID, guildID string, update PlayerUpdate) error {
	return c.do(ctx, http.MethodPatch, playerPath(sessionID, guildID), update, nil)
}

// DestroyPlayer removes the player of a guild from the node.
func (c *RESTClient) DestroyPlayer(ctx context.Context, sessionID, guildID string) error {
	err := c.do(ctx, http.MethodDelete, playerPath(sessionID, guildID), nil, nil)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return nil
	}
	return err
}

func playerPath(sessionID, guildID string) string {
	return fmt.Sprintf("/v4/sessions/%s/players/%s", url.PathEscape(sessionID), url.PathEscape(guildID))
}

func (c *RESTClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lavalink %s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close response body", zap.Error(closeErr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
