package lavalink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

const trackJSON = `{"encoded":"QAAA%s","info":{"identifier":"%s","author":"Santana","length":279000,` +
	`"title":"%s","uri":"https://www.youtube.com/watch?v=%s","sourceName":"youtube"}}`

func track(id, title string) string {
	return fmt.Sprintf(trackJSON, id, id, title, id)
}

func newTestREST(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newRESTClient(server.URL, "secret", 100, zap.NewNop())
}

func TestRESTClient_LoadTracks(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantTitles   []string
		wantPlaylist bool
		wantName     string
	}{
		{
			name:       "single track",
			body:       `{"loadType":"track","data":` + track("a1", "Oye Como Va") + `}`,
			wantTitles: []string{"Oye Como Va"},
		},
		{
			name: "search keeps every hit in order",
			body: `{"loadType":"search","data":[` + track("a1", "First") + `,` +
				track("a2", "Second") + `,` + track("a3", "Third") + `]}`,
			wantTitles: []string{"First", "Second", "Third"},
		},
		{
			name: "playlist keeps every track",
			body: `{"loadType":"playlist","data":{"info":{"name":"Mix"},"tracks":[` +
				track("a1", "One") + `,` + track("a2", "Two") + `,` + track("a3", "Three") + `]}}`,
			wantTitles:   []string{"One", "Two", "Three"},
			wantPlaylist: true,
			wantName:     "Mix",
		},
		{
			name:       "empty search",
			body:       `{"loadType":"search","data":[]}`,
			wantTitles: nil,
		},
		{
			name:       "empty",
			body:       `{"loadType":"empty","data":{}}`,
			wantTitles: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v4/loadtracks" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "secret" {
					t.Errorf("Authorization = %q", got)
				}
				fmt.Fprint(w, tt.body)
			})

			result, err := c.LoadTracks(context.Background(), "ytsearch:oye como va")
			if err != nil {
				t.Fatalf("LoadTracks() error = %v", err)
			}
			if len(result.Tracks) != len(tt.wantTitles) {
				t.Fatalf("LoadTracks() returned %d tracks, want %d", len(result.Tracks), len(tt.wantTitles))
			}
			for i, title := range tt.wantTitles {
				if result.Tracks[i].Title != title {
					t.Errorf("track %d title = %q, want %q", i, result.Tracks[i].Title, title)
				}
			}
			if result.Playlist != tt.wantPlaylist || result.PlaylistName != tt.wantName {
				t.Errorf("playlist = (%v, %q), want (%v, %q)",
					result.Playlist, result.PlaylistName, tt.wantPlaylist, tt.wantName)
			}
		})
	}
}

func TestRESTClient_LoadTracksConvertsTrack(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("identifier"); got != "ytmsearch:oye como va" {
			t.Errorf("identifier = %q", got)
		}
		fmt.Fprint(w, `{"loadType":"track","data":`+track("a1", "Oye Como Va")+`}`)
	})

	result, err := c.LoadTracks(context.Background(), "ytmsearch:oye como va")
	if err != nil {
		t.Fatalf("LoadTracks() error = %v", err)
	}

	got := result.Tracks[0]
	if got.Duration != 279*time.Second {
		t.Errorf("Duration = %v", got.Duration)
	}
	if got.Provider != "youtube" || got.Author != "Santana" || got.Encoded != "QAAAa1" {
		t.Errorf("unexpected track %+v", got)
	}
	if got.URI != "https://www.youtube.com/watch?v=a1" {
		t.Errorf("URI = %q", got.URI)
	}
}

func TestRESTClient_LoadTracksErrors(t *testing.T) {
	t.Run("load error", func(t *testing.T) {
		c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"loadType":"error","data":{"message":"This video is unavailable","severity":"common"}}`)
		})
		_, err := c.LoadTracks(context.Background(), "https://youtu.be/x")
		if !errors.Is(err, ErrLoadFailed) {
			t.Errorf("Expected ErrLoadFailed, got %v", err)
		}
	})

	t.Run("status error", func(t *testing.T) {
		c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
		_, err := c.LoadTracks(context.Background(), "x")
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 StatusError, got %v", err)
		}
	})

	t.Run("unknown load type", func(t *testing.T) {
		c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"loadType":"mystery","data":null}`)
		})
		if _, err := c.LoadTracks(context.Background(), "x"); err == nil {
			t.Error("Expected error for unknown load type")
		}
	})
}

func TestRESTClient_UpdatePlayer(t *testing.T) {
	tests := []struct {
		name   string
		update PlayerUpdate
		want   string
	}{
		{
			name:   "stop sends null track",
			update: PlayerUpdate{Track: &TrackUpdate{}},
			want:   `{"track":{"encoded":null}}`,
		},
		{
			name:   "pause",
			update: PlayerUpdate{Paused: boolPtr(true)},
			want:   `{"paused":true}`,
		},
		{
			name:   "voice",
			update: PlayerUpdate{Voice: &VoiceState{Token: "t", Endpoint: "e", SessionID: "s"}},
			want:   `{"voice":{"token":"t","endpoint":"e","sessionId":"s"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch {
					t.Errorf("method = %s", r.Method)
				}
				if r.URL.Path != "/v4/sessions/sess1/players/guild1" {
					t.Errorf("path = %s", r.URL.Path)
				}
				body, _ := io.ReadAll(r.Body)
				if !jsonEqual(t, string(body), tt.want) {
					t.Errorf("body = %s, want %s", body, tt.want)
				}
				fmt.Fprint(w, `{}`)
			})

			if err := c.UpdatePlayer(context.Background(), "sess1", "guild1", tt.update); err != nil {
				t.Errorf("UpdatePlayer() error = %v", err)
			}
		})
	}
}

func TestRESTClient_DestroyPlayerToleratesMissingPlayer(t *testing.T) {
	c := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		http.Error(w, "not found", http.StatusNotFound)
	})

	if err := c.DestroyPlayer(context.Background(), "sess1", "guild1"); err != nil {
		t.Errorf("DestroyPlayer() error = %v", err)
	}
}

func jsonEqual(t *testing.T, a, b string) bool {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal([]byte(a), &va); err != nil {
		t.Errorf("invalid json %q: %v", a, err)
		return false
	}
	if err := json.Unmarshal([]byte(b), &vb); err != nil {
		t.Errorf("invalid json %q: %v", b, err)
		return false
	}
	ja, _ := json.Marshal(va)
	jb, _ := json.Marshal(vb)
	return string(ja) == string(jb)
}
