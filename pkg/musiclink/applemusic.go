package musiclink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// iTunesLookupURL is the public catalog lookup endpoint behind Apple Music.
const iTunesLookupURL = "https://itunes.apple.com/lookup"

// storefrontRegex matches the two-letter country that starts Apple Music paths.
var storefrontRegex = regexp.MustCompile(`^[a-z]{2}$`)

type iTunesLookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []iTunesResult `json:"results"`
}

type iTunesResult struct {
	WrapperType string `json:"wrapperType"`
	TrackName   string `json:"trackName"`
	ArtistName  string `json:"artistName"`
}

// AppleMusicResolver names Apple Music songs through the iTunes lookup API.
// Apple Music streams are DRM-protected, so the result always becomes a search.
type AppleMusicResolver struct {
	fetcher
	lookupURL string
}

func NewAppleMusicResolver() *AppleMusicResolver {
	return &AppleMusicResolver{fetcher: newFetcher(), lookupURL: iTunesLookupURL}
}

func (r *AppleMusicResolver) CanResolve(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Hostname()) {
	case "music.apple.com", "geo.music.apple.com", "itunes.apple.com":
		return true
	}
	return false
}

func (r *AppleMusicResolver) Resolve(ctx context.Context, rawURL string) (*TrackInfo, error) {
	if !r.CanResolve(rawURL) {
		return nil, errors.New("not an Apple Music URL")
	}

	trackID, err := r.extractTrackID(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract track ID: %w", err)
	}

	q := url.Values{}
	q.Set("id", trackID)
	q.Set("entity", "song")
	// catalog ids are per storefront; a track missing from the US store is found in its own
	if country := storefront(rawURL); country != "" {
		q.Set("country", country)
	}

	var resp iTunesLookupResponse
	if err := r.getJSON(ctx, "iTunes lookup", r.lookupURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	for _, result := range resp.Results {
		if result.TrackName != "" {
			return &TrackInfo{Title: result.TrackName, Artist: result.ArtistName}, nil
		}
	}
	return nil, fmt.Errorf("apple music %s: %w", trackID, ErrNoMetadata)
}

// extractTrackID reads ?i=<id> on album links or the trailing id of /song/ links.
func (r *AppleMusicResolver) extractTrackID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if trackID := u.Query().Get("i"); trackID != "" {
		return trackID, nil
	}

	if strings.Contains(u.Path, "/song/") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if songID := parts[len(parts)-1]; songID != "" {
			return songID, nil
		}
	}

	return "", errors.New("no track ID found in Apple Music URL")
}

func storefront(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if storefrontRegex.MatchString(first) {
		return first
	}
	return ""
}
