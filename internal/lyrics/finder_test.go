package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

// lyricServer serves both providers from one mux and records the requests it saw.
type lyricServer struct {
	mu     sync.Mutex
	ovh    map[string]string // "artist/title" -> lyrics
	lrclib map[string]lrclibHit
	// lrclibAll answers a search with several hits
	lrclibAll map[string][]lrclibHit
	fail      bool
	seen   []string
}

func (s *lyricServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/v1/")
		s.record("ovh:" + key)
		if s.fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		text, ok := s.ovh[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"No lyrics found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(ovhResponse{Lyrics: text})
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("track_name")
		s.record("lrclib:" + title)
		hits := []lrclibHit{}
		if hit, ok := s.lrclib[title]; ok {
			hits = append(hits, hit)
		}
		hits = append(hits, s.lrclibAll[title]...)
		_ = json.NewEncoder(w).Encode(hits)
	})
	return mux
}

func (s *lyricServer) record(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, entry)
}

func (s *lyricServer) requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func newTestFinder(t *testing.T, srv *lyricServer, opts ...Option) *Finder {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)
	opts = append([]Option{WithEndpoints(ts.URL, ts.URL)}, opts...)
	return New(zap.NewNop(), opts...)
}

type stubTitles struct {
	title string
	err   error
}

func (s stubTitles) LookupTitle(context.Context, string) (string, error) {
	return s.title, s.err
}

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		current *core.Track
		want    []Candidate
	}{
		{
			name:  "artist and title",
			query: "Soda Stereo & Gustavo Cerati - De Música Ligera (Live)",
			want: []Candidate{
				{Artist: "Soda Stereo & Gustavo Cerati", Title: "De Música Ligera"},
				{Artist: "Soda Stereo", Title: "De Música Ligera"},
				{Artist: "De Música Ligera", Title: "Soda Stereo & Gustavo Cerati"},
			},
		},
		{
			name:    "bare title borrows the playing artist",
			query:   "Persiana Americana",
			current: &core.Track{Title: "whatever", Author: "Soda Stereo - Topic"},
			want: []Candidate{
				{Title: "Persiana Americana"},
				{Artist: "Soda Stereo", Title: "Persiana Americana"},
			},
		},
		{
			name:  "bare title alone",
			query: "Persiana Americana",
			want:  []Candidate{{Title: "Persiana Americana"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromQuery(tt.query, tt.current)
			if len(got) != len(tt.want) {
				t.Fatalf("FromQuery() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("candidate %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFromTrack(t *testing.T) {
	tests := []struct {
		name       string
		track      core.Track
		embedTitle string
		want       []Candidate
	}{
		{
			name:  "title carries the artists",
			track: core.Track{Title: "Bad Bunny, Jhay Cortez - Dákiti [Official Video]", Author: "Bad Bunny"},
			want: []Candidate{
				{Artist: "Bad Bunny, Jhay Cortez", Title: "Dákiti"},
				{Artist: "Bad Bunny", Title: "Dákiti"},
				{Artist: "Jhay Cortez", Title: "Dákiti"},
				{Title: "Dákiti"},
			},
		},
		{
			name:  "channel name is the artist",
			track: core.Track{Title: "Rayando el Sol (Remastered)", Author: "ManáVEVO"},
			want: []Candidate{
				{Artist: "Maná", Title: "Rayando el Sol"},
				{Title: "Rayando el Sol"},
			},
		},
		{
			name:       "embed title is tried first",
			track:      core.Track{Title: "Lyric video", Author: "Some Channel"},
			embedTitle: "Café Tacvba - Eres",
			want: []Candidate{
				{Artist: "Café Tacvba", Title: "Eres"},
				{Artist: "Some Channel", Title: "Lyric video"},
				{Title: "Lyric video"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromTrack(tt.track, tt.embedTitle)
			if len(got) != len(tt.want) {
				t.Fatalf("FromTrack() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("candidate %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFinder_OVHHit(t *testing.T) {
	srv := &lyricServer{ovh: map[string]string{
		"Soda Stereo/De Música Ligera": "Ella durmió\n\n\nal calor de las masas",
	}}
	f := newTestFinder(t, srv)

	got, err := f.Find(context.Background(), Request{Query: "Soda Stereo - De Música Ligera"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Title != "Soda Stereo - De Música Ligera" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Text != "Ella durmió\nal calor de las masas" {
		t.Errorf("Text = %q, blank lines should be gone", got.Text)
	}
}

func TestFinder_UnaccentedRetry(t *testing.T) {
	srv := &lyricServer{ovh: map[string]string{
		"Mana/Rayando el Sol": "Rayando el sol",
	}}
	f := newTestFinder(t, srv)

	got, err := f.Find(context.Background(), Request{Query: "Maná - Rayando el Sol"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Text != "Rayando el sol" {
		t.Errorf("Text = %q", got.Text)
	}

	reqs := srv.requests()
	if len(reqs) < 2 || reqs[0] != "ovh:Maná/Rayando el Sol" || reqs[1] != "ovh:Mana/Rayando el Sol" {
		t.Errorf("requests = %v, want accented then unaccented", reqs)
	}
}

func TestFinder_FallsBackToLRCLib(t *testing.T) {
	srv := &lyricServer{lrclib: map[string]lrclibHit{
		"Eres": {TrackName: "Eres", ArtistName: "Café Tacvba", SyncedLyrics: "[00:12.10] Eres lo que más quiero\n[00:15.00]\n[00:17.40] en este mundo"},
	}}
	f := newTestFinder(t, srv, WithTitleLookup(stubTitles{title: "Café Tacvba - Eres"}))

	track := core.Track{Title: "Eres (video oficial)", Author: "CafeTacvbaVEVO", URI: "https://www.youtube.com/watch?v=x"}
	got, err := f.Find(context.Background(), Request{Track: &track})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Title != "Café Tacvba - Eres" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Text != "Eres lo que más quiero\nen este mundo" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestFinder_LRCLibPicksClosestHit(t *testing.T) {
	srv := &lyricServer{lrclibAll: map[string][]lrclibHit{
		"Clocks": {
			{TrackName: "Clocks (Live in Buenos Aires)", ArtistName: "Coldplay", Duration: 420, PlainLyrics: "live"},
			{TrackName: "Something Else Entirely", ArtistName: "Coldplay", Duration: 307, PlainLyrics: "wrong song"},
			{TrackName: "Clocks", ArtistName: "Coldplay", Duration: 309, PlainLyrics: "studio"},
		},
	}}
	f := newTestFinder(t, srv)

	track := core.Track{Title: "Clocks", Author: "Coldplay", Duration: 307 * time.Second}
	got, err := f.Find(context.Background(), Request{Track: &track})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Text != "studio" || got.Title != "Coldplay - Clocks" {
		t.Errorf("Find() = %+v, want the studio hit", got)
	}
}

func TestFinder_LRCLibRejectsOtherSongs(t *testing.T) {
	srv := &lyricServer{lrclibAll: map[string][]lrclibHit{
		"Clocks": {{TrackName: "Viva la Vida", ArtistName: "Coldplay", PlainLyrics: "wrong song"}},
	}}
	f := newTestFinder(t, srv)

	if _, err := f.Find(context.Background(), Request{Query: "Coldplay - Clocks"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() error = %v, want ErrNotFound", err)
	}
}

func TestFinder_TransportErrorsDegrade(t *testing.T) {
	srv := &lyricServer{
		fail:   true,
		lrclib: map[string]lrclibHit{"Eres": {TrackName: "Eres", PlainLyrics: "Eres"}},
	}
	f := newTestFinder(t, srv)

	got, err := f.Find(context.Background(), Request{Query: "Café Tacvba - Eres"})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got.Text != "Eres" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestFinder_NotFound(t *testing.T) {
	f := newTestFinder(t, &lyricServer{})

	if _, err := f.Find(context.Background(), Request{Query: "nadie - nada"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() error = %v, want ErrNotFound", err)
	}
	if _, err := f.Find(context.Background(), Request{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() without query or track = %v, want ErrNotFound", err)
	}
}

func TestFormat_Truncates(t *testing.T) {
	line := strings.Repeat("á", 99)
	text := strings.Repeat(line+"\n\n", 40)

	got := Format(text)
	if !strings.HasSuffix(got, truncationMarker) {
		t.Fatalf("Format() should end with the truncation marker")
	}
	if n := utf8.RuneCountInString(got); n > MaxTextLength+utf8.RuneCountInString(truncationMarker) {
		t.Errorf("Format() length = %d runes", n)
	}
	if strings.Contains(got, "\n\n") {
		t.Error("Format() kept blank lines")
	}
}
