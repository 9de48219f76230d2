package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// YouTubeOEmbedURL is the YouTube oEmbed API endpoint.
	YouTubeOEmbedURL = "https://www.youtube.com/oembed"
	// youtubeCanonicalHost is the host every YouTube link is rewritten to.
	youtubeCanonicalHost = "www.youtube.com"
	// youtubeAutoMixList is the per-user "liked music" mix that the audio node cannot load.
	youtubeAutoMixList = "LM"
)

var (
	youtubeNoisePatterns = regexp.MustCompile(`(?i)\s*[\(\[](?:official\s+(?:music\s+)?(?:video|audio)|lyrics?(?:\s+video)?|video\s+oficial|audio\s+oficial|letra|hd|4k|visualizer)[\)\]]`)
	camelCaseRegex       = regexp.MustCompile(`([a-z])([A-Z])`)

	youtubeHosts = map[string]bool{
		"youtube.com":       true,
		"www.youtube.com":   true,
		"m.youtube.com":     true,
		"music.youtube.com": true,
		"youtu.be":          true,
	}
)

// YouTubeResolver reads video titles from oEmbed for links the audio node refused.
type YouTubeResolver struct {
	source oEmbedSource
}

func NewYouTubeResolver() *YouTubeResolver {
	return &YouTubeResolver{source: newOEmbedSource("YouTube", YouTubeOEmbedURL)}
}

// IsYouTubeURL reports whether rawURL points at any YouTube host.
func IsYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return youtubeHosts[strings.ToLower(u.Hostname())]
}

// CanResolve checks if the URL is a YouTube or YouTube Music link.
func (r *YouTubeResolver) CanResolve(rawURL string) bool {
	return IsYouTubeURL(rawURL)
}

// CanonicalYouTubeURL rewrites alternate hosts and short links to www.youtube.com and
// drops the auto-mix list parameter. Other URLs come back unchanged.
func CanonicalYouTubeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !youtubeHosts[strings.ToLower(u.Hostname())] {
		return rawURL
	}

	q := u.Query()
	if strings.EqualFold(q.Get("list"), youtubeAutoMixList) {
		q.Del("list")
	}
	q.Del("si")

	if strings.EqualFold(u.Hostname(), "youtu.be") {
		if id := strings.Trim(u.Path, "/"); id != "" {
			q.Set("v", id)
		}
		u.Path = "/watch"
	}

	u.Scheme = "https"
	u.Host = youtubeCanonicalHost
	u.RawQuery = q.Encode()
	return u.String()
}

// YouTubeVideoID extracts the video ID from watch, short, shorts and embed links.
func YouTubeVideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	hostname := strings.ToLower(u.Hostname())
	if !youtubeHosts[hostname] {
		return "", errors.New("not a YouTube URL")
	}

	if hostname == "youtu.be" {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
		return "", errors.New("no video ID in youtu.be URL")
	}

	if videoID := u.Query().Get("v"); videoID != "" {
		return videoID, nil
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
		return parts[1], nil
	}

	return "", errors.New("no video ID in YouTube URL")
}

// SimplifiedYouTubeURL is the bare watch URL for a video ID.
func SimplifiedYouTubeURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// LookupTitle returns the raw video title. Playlist and mix parameters are
// dropped because oEmbed only describes single videos.
func (r *YouTubeResolver) LookupTitle(ctx context.Context, rawURL string) (string, error) {
	videoID, err := YouTubeVideoID(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract video ID: %w", err)
	}
	return r.source.title(ctx, SimplifiedYouTubeURL(videoID))
}

func (r *YouTubeResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	videoID, err := YouTubeVideoID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract video ID: %w", err)
	}
	resp, err := r.source.fetch(ctx, SimplifiedYouTubeURL(videoID))
	if err != nil {
		return nil, err
	}

	title, artist := r.parseTrackInfo(resp)
	return &TrackInfo{Title: title, Artist: artist}, nil
}

// parseTrackInfo reads "Artist - Title" video names; otherwise the channel names the artist.
func (r *YouTubeResolver) parseTrackInfo(resp *oEmbed) (title, artist string) {
	cleaned := strings.TrimSpace(youtubeNoisePatterns.ReplaceAllString(resp.Title, ""))

	if a, t := splitTitleArtist(cleaned, " - "); t != "" {
		return t, a
	}

	return cleaned, r.artistFromChannel(resp.AuthorName)
}

func (r *YouTubeResolver) artistFromChannel(authorName string) string {
	if strings.HasSuffix(authorName, "VEVO") {
		return camelCaseRegex.ReplaceAllString(strings.TrimSuffix(authorName, "VEVO"), "$1 $2")
	}
	return strings.TrimSpace(strings.TrimSuffix(authorName, " - Topic"))
}
