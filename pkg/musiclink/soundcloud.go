package musiclink

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// SoundCloudOEmbedURL is the SoundCloud oEmbed API endpoint.
const SoundCloudOEmbedURL = "https://soundcloud.com/oembed"

var soundCloudHosts = map[string]bool{
	"soundcloud.com":     true,
	"www.soundcloud.com": true,
	"m.soundcloud.com":   true,
	"on.soundcloud.com":  true,
}

// SoundCloudResolver reads SoundCloud track names from oEmbed. The audio node
// plays SoundCloud links itself; this is used when a link fails to load.
type SoundCloudResolver struct {
	source oEmbedSource
}

func NewSoundCloudResolver() *SoundCloudResolver {
	return &SoundCloudResolver{source: newOEmbedSource("SoundCloud", SoundCloudOEmbedURL)}
}

func (r *SoundCloudResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return soundCloudHosts[strings.ToLower(u.Hostname())]
}

// LookupTitle returns the raw track title reported by oEmbed.
func (r *SoundCloudResolver) LookupTitle(ctx context.Context, rawURL string) (string, error) {
	if !r.CanResolve(rawURL) {
		return "", errors.New("not a SoundCloud URL")
	}
	return r.source.title(ctx, rawURL)
}

func (r *SoundCloudResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not a SoundCloud URL")
	}
	resp, err := r.source.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	title, artist := r.parseTrackInfo(resp)
	return &TrackInfo{Title: title, Artist: artist}, nil
}

// parseTrackInfo splits SoundCloud's "Track Title by Artist Name" title, falling back to the uploader.
func (r *SoundCloudResolver) parseTrackInfo(resp *oEmbed) (title, artist string) {
	if title, artist = splitTitleArtist(resp.Title, " by "); artist != "" {
		return title, artist
	}
	return strings.TrimSpace(resp.Title), strings.TrimSpace(resp.AuthorName)
}
