package text

import (
	"testing"
)

// runStringTransformationTest is a helper to run tests for string transformation functions.
func runStringTransformationTest(t *testing.T, testName string,
	transformFunc func(string) string, testCases []struct {
		name     string
		input    string
		expected string
	}) {
	t.Helper()
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			result := transformFunc(tt.input)
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", testName, result, tt.expected)
			}
		})
	}
}

func TestParser_ParseCommand(t *testing.T) {
	parser := NewParser("#")

	tests := []struct {
		name     string
		input    string
		ok       bool
		expected Command
	}{
		{name: "Simple command", input: "#skip", ok: true, expected: Command{Name: "skip"}},
		{name: "Upper case name", input: "#PLAY despacito", ok: true, expected: Command{Name: "play", Args: "despacito"}},
		{name: "Args keep case", input: "#play  Bad   Bunny - Tití", ok: true, expected: Command{Name: "play", Args: "Bad Bunny - Tití"}},
		{name: "Space after prefix", input: "# loop song", ok: true, expected: Command{Name: "loop", Args: "song"}},
		{name: "Multi line", input: "#play\nsoda stereo", ok: true, expected: Command{Name: "play", Args: "soda stereo"}},
		{name: "Chatter", input: "hola a todos", ok: false},
		{name: "Bare prefix", input: "#", ok: false},
		{name: "Empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := parser.ParseCommand(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseCommand(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if cmd != tt.expected {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.input, cmd, tt.expected)
			}
		})
	}
}

func TestCommand_Fields(t *testing.T) {
	cmd := Command{Name: "remove", Args: "3  extra"}
	fields := cmd.Fields()
	if len(fields) != 2 || fields[0] != "3" {
		t.Errorf("Fields() = %v", fields)
	}
}

func TestParser_ClassifyQuery(t *testing.T) {
	parser := NewParser("#")

	tests := []struct {
		name     string
		input    string
		expected QueryKind
	}{
		{name: "Free text", input: "la bachata manuel turizo", expected: QueryFreeText},
		{name: "Spotify track", input: "https://open.spotify.com/track/4iV5W9uYEdYUVa79Axb7Rh?si=abc", expected: QuerySpotifyLink},
		{name: "Spotify album", input: "https://open.spotify.com/intl-es/album/1A2GTWGtFfWp7KSQTwWOyo", expected: QuerySpotifyLink},
		{name: "Spotify playlist", input: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", expected: QuerySpotifyLink},
		{name: "Spotify URI", input: "spotify:track:4iV5W9uYEdYUVa79Axb7Rh", expected: QuerySpotifyLink},
		{name: "Spotify artist page", input: "https://open.spotify.com/artist/1vyhD5VmyZ7KMfW5gqLgo5", expected: QueryURL},
		{name: "Apple Music", input: "https://music.apple.com/us/album/x/123?i=456", expected: QueryMusicLink},
		{name: "Tidal", input: "https://tidal.com/browse/track/12345", expected: QueryMusicLink},
		{name: "Bandcamp", input: "https://artist.bandcamp.com/track/song", expected: QueryMusicLink},
		{name: "YouTube", input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", expected: QueryURL},
		{name: "YouTube Music", input: "https://music.youtube.com/watch?v=dQw4w9WgXcQ", expected: QueryURL},
		{name: "SoundCloud", input: "https://soundcloud.com/artist/song", expected: QueryURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parser.ClassifyQuery(tt.input); got != tt.expected {
				t.Errorf("ClassifyQuery(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Tracking params", input: "https://youtu.be/abc?si=xyz&utm_source=wa", expected: "https://youtu.be/abc"},
		{name: "Trailing punctuation", input: "https://www.youtube.com/watch?v=abc.", expected: "https://www.youtube.com/watch?v=abc"},
		{name: "Keeps video id", input: "https://www.youtube.com/watch?v=abc&feature=share", expected: "https://www.youtube.com/watch?v=abc"},
		{name: "Not a URL", input: "despacito", expected: ""},
	}

	runStringTransformationTest(t, "CleanURL", CleanURL, tests)
}

func TestSpotifyEntity(t *testing.T) {
	tests := []struct {
		input    string
		kind, id string
	}{
		{input: "https://open.spotify.com/track/abc123?si=x", kind: "track", id: "abc123"},
		{input: "https://open.spotify.com/intl-de/album/def456", kind: "album", id: "def456"},
		{input: "https://open.spotify.com/playlist/ghi789", kind: "playlist", id: "ghi789"},
		{input: "spotify:playlist:ghi789", kind: "playlist", id: "ghi789"},
		{input: "https://open.spotify.com/artist/zzz", kind: "", id: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, id := SpotifyEntity(tt.input)
			if kind != tt.kind || id != tt.id {
				t.Errorf("SpotifyEntity(%q) = (%q, %q), want (%q, %q)", tt.input, kind, id, tt.kind, tt.id)
			}
		})
	}
}
