// Package lyrics looks up song lyrics on public lyric APIs.
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/pkg/fuzzy"
)

const (
	// DefaultOVHURL is the lyrics.ovh API root
	DefaultOVHURL = "https://api.lyrics.ovh"
	// DefaultLRCLibURL is the LRCLib API root
	DefaultLRCLibURL = "https://lrclib.net"
	// MaxTextLength is the longest lyric text returned before truncation
	MaxTextLength = 1900

	defaultHTTPTimeout = 10 * time.Second
	maxResponseSize    = 512 * 1024
	truncationMarker   = "\n…"

	lrclibSearchLimit = 5
	// hits below this title similarity are a different song
	minTitleSimilarity = 0.5
)

// ErrNotFound is returned when no provider had lyrics for any candidate.
var ErrNotFound = errors.New("lyrics not found")

var lrcTimestamp = regexp.MustCompile(`^\s*(?:\[\d+:\d+(?:\.\d+)?\])+\s*`)

// Lyrics is a found lyric text with the title it was found under.
type Lyrics struct {
	Title string
	Text  string
}

// Request asks for lyrics either by an explicit query or for the playing track.
type Request struct {
	Query string
	Track *core.Track
}

type Finder struct {
	client    *http.Client
	ovhURL    string
	lrclibURL string
	titles    core.TitleLookup
	norm      *fuzzy.Normalizer
	logger    *zap.Logger
}

type Option func(*Finder)

// WithTitleLookup enriches track candidates with the oEmbed title of the track URI.
func WithTitleLookup(titles core.TitleLookup) Option {
	return func(f *Finder) { f.titles = titles }
}

// WithEndpoints overrides the provider roots.
func WithEndpoints(ovhURL, lrclibURL string) Option {
	return func(f *Finder) {
		f.ovhURL = strings.TrimRight(ovhURL, "/")
		f.lrclibURL = strings.TrimRight(lrclibURL, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(f *Finder) { f.client = client }
}

func New(logger *zap.Logger, opts ...Option) *Finder {
	f := &Finder{
		client:    &http.Client{Timeout: defaultHTTPTimeout},
		ovhURL:    DefaultOVHURL,
		lrclibURL: DefaultLRCLibURL,
		norm:      fuzzy.NewNormalizer(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find returns the first lyrics any provider has for the request's candidates.
// lyrics.ovh is tried for every candidate before LRCLib is searched.
func (f *Finder) Find(ctx context.Context, req Request) (*Lyrics, error) {
	candidates := f.candidates(ctx, req)
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}

	for _, c := range candidates {
		if c.Artist == "" {
			continue
		}
		for _, variant := range variants(c) {
			text, err := f.fetchOVH(ctx, variant)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				f.logger.Debug("lyrics.ovh lookup failed", zap.Stringer("candidate", variant), zap.Error(err))
				continue
			}
			if text != "" {
				return &Lyrics{Title: c.String(), Text: Format(text)}, nil
			}
		}
	}

	var length time.Duration
	if req.Track != nil {
		length = req.Track.Duration
	}
	for _, c := range candidates {
		found, err := f.searchLRCLib(ctx, c, length)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Debug("LRCLib search failed", zap.Stringer("candidate", c), zap.Error(err))
			continue
		}
		if found != nil {
			found.Text = Format(found.Text)
			return found, nil
		}
	}

	return nil, ErrNotFound
}

func (f *Finder) candidates(ctx context.Context, req Request) []Candidate {
	if query := strings.TrimSpace(req.Query); query != "" {
		return FromQuery(query, req.Track)
	}
	if req.Track == nil {
		return nil
	}

	var embedTitle string
	if f.titles != nil && req.Track.URI != "" {
		title, err := f.titles.LookupTitle(ctx, req.Track.URI)
		if err != nil {
			f.logger.Debug("Title lookup failed", zap.String("uri", req.Track.URI), zap.Error(err))
		}
		embedTitle = title
	}
	return FromTrack(*req.Track, embedTitle)
}

// variants yields the candidate as typed and, when different, without accents.
func variants(c Candidate) []Candidate {
	plain := Candidate{Artist: fuzzy.Unaccent(c.Artist), Title: fuzzy.Unaccent(c.Title)}
	if plain == c {
		return []Candidate{c}
	}
	return []Candidate{c, plain}
}

type ovhResponse struct {
	Lyrics string `json:"lyrics"`
}

// fetchOVH returns an empty text when lyrics.ovh has nothing for the pair.
func (f *Finder) fetchOVH(ctx context.Context, c Candidate) (string, error) {
	reqURL := fmt.Sprintf("%s/v1/%s/%s", f.ovhURL, url.PathEscape(c.Artist), url.PathEscape(c.Title))

	var resp ovhResponse
	status, err := f.getJSON(ctx, reqURL, &resp)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", nil
	}
	return strings.TrimSpace(resp.Lyrics), nil
}

type lrclibHit struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	Duration     float64 `json:"duration"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

func (h lrclibHit) text() string {
	if text := strings.TrimSpace(h.PlainLyrics); text != "" {
		return text
	}
	return stripTimestamps(h.SyncedLyrics)
}

// searchLRCLib returns the hit whose title best matches the candidate. When
// length is known, hits of a similar duration are preferred.
func (f *Finder) searchLRCLib(ctx context.Context, c Candidate, length time.Duration) (*Lyrics, error) {
	params := url.Values{}
	params.Set("track_name", c.Title)
	if c.Artist != "" {
		params.Set("artist_name", c.Artist)
	}
	params.Set("limit", strconv.Itoa(lrclibSearchLimit))

	var hits []lrclibHit
	status, err := f.getJSON(ctx, f.lrclibURL+"/api/search?"+params.Encode(), &hits)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var (
		best      *lrclibHit
		bestText  string
		bestScore = -1.0
	)
	want := f.norm.NormalizeTitle(c.Title)
	for i := range hits {
		text := hits[i].text()
		if text == "" {
			continue
		}
		score := 1.0
		if hits[i].TrackName != "" {
			score = f.norm.CalculateSimilarity(want, f.norm.NormalizeTitle(hits[i].TrackName))
			if score < minTitleSimilarity {
				continue
			}
		}
		if length > 0 && hits[i].Duration > 0 {
			hitLength := time.Duration(hits[i].Duration * float64(time.Second))
			score = 0.7*score + 0.3*f.norm.DurationTolerance(length, hitLength)
		}
		if score > bestScore {
			best, bestText, bestScore = &hits[i], text, score
		}
	}
	if best == nil {
		return nil, nil
	}

	title := best.TrackName
	if title == "" {
		title = c.Title
	}
	if best.ArtistName != "" {
		title = best.ArtistName + titleSeparator + title
	}
	return &Lyrics{Title: title, Text: bestText}, nil
}

// getJSON decodes a 200 body into dest. A 404 is reported through the status
// without an error so callers can treat it as "no lyrics".
func (f *Finder) getJSON(ctx context.Context, reqURL string, dest interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, nil
	case resp.StatusCode != http.StatusOK:
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func stripTimestamps(synced string) string {
	lines := strings.Split(synced, "\n")
	for i, line := range lines {
		lines[i] = lrcTimestamp.ReplaceAllString(line, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Format drops blank lines and truncates the text to MaxTextLength characters.
func Format(text string) string {
	var kept []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	out := strings.Join(kept, "\n")

	if utf8.RuneCountInString(out) <= MaxTextLength {
		return out
	}
	runes := []rune(out)
	return strings.TrimRight(string(runes[:MaxTextLength]), " \n") + truncationMarker
}
