package fuzzy

import (
	"reflect"
	"testing"
	"time"
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

func TestNormalizer_NormalizeArtist(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Simple artist name", input: "The Beatles", expected: "the beatles"},
		{name: "Artist with and", input: "Artist and Someone", expected: "artist & someone"},
		{name: "Artist with y", input: "Jesse y Joy", expected: "jesse & joy"},
		{name: "Artist with vs", input: "Artist vs Someone", expected: "artist vs. someone"},
		{name: "Artist with punctuation", input: "P!nk", expected: "p nk"},
		{name: "Artist with accents", input: "Björk", expected: "bjork"},
	}

	runStringTransformationTest(t, "NormalizeArtist", normalizer.NormalizeArtist, tests)
}

func TestNormalizer_NormalizeTitle(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Simple title", input: "Hey Jude", expected: "hey jude"},
		{name: "Official video noise", input: "Despacito (Official Video)", expected: "despacito"},
		{name: "Square brackets", input: "Song [Lyric Video] (2019)", expected: "song"},
		{name: "Featured artist", input: "Taki Taki feat. Selena Gomez", expected: "taki taki"},
		{name: "Accents", input: "Canción Bonita", expected: "cancion bonita"},
	}

	runStringTransformationTest(t, "NormalizeTitle", normalizer.NormalizeTitle, tests)
}

func TestNormalizer_QueryKey(t *testing.T) {
	normalizer := NewNormalizer()

	if a, b := normalizer.QueryKey("  Bad  Bunny - Tití Me Preguntó "), normalizer.QueryKey("bad bunny titi me pregunto"); a != b {
		t.Errorf("QueryKey should collapse equivalent queries, got %q and %q", a, b)
	}
}

func TestUnaccent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Keeps case", input: "Canción", expected: "Cancion"},
		{name: "Keeps punctuation", input: "¿Qué?", expected: "¿Que?"},
		{name: "Enye loses tilde", input: "Año", expected: "Ano"},
		{name: "Plain", input: "Hello", expected: "Hello"},
	}

	runStringTransformationTest(t, "Unaccent", Unaccent, tests)
}

func TestCleanChannelName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Topic channel", input: "Soda Stereo - Topic", expected: "Soda Stereo"},
		{name: "VEVO channel", input: "ShakiraVEVO", expected: "Shakira"},
		{name: "Plain channel", input: "Karol G", expected: "Karol G"},
	}

	runStringTransformationTest(t, "CleanChannelName", CleanChannelName, tests)
}

func TestSplitArtists(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{input: "Daddy Yankee", expected: []string{"Daddy Yankee"}},
		{input: "Bad Bunny, Jhay Cortez", expected: []string{"Bad Bunny", "Jhay Cortez"}},
		{input: "Calle 13 y Rubén Blades", expected: []string{"Calle 13", "Rubén Blades"}},
		{input: "Rauw Alejandro x Bizarrap", expected: []string{"Rauw Alejandro", "Bizarrap"}},
		{input: "Shakira feat. Wyclef Jean", expected: []string{"Shakira", "Wyclef Jean"}},
		{input: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SplitArtists(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("SplitArtists(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}

	if got := FirstArtist("Sech & Ozuna"); got != "Sech" {
		t.Errorf("FirstArtist() = %q, want Sech", got)
	}
}

func TestNormalizer_CalculateSimilarity(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		s1, s2   string
		expected float64
	}{
		{name: "Identical", s1: "hello", s2: "hello", expected: 1.0},
		{name: "Empty", s1: "", s2: "hello", expected: 0.0},
		{name: "Half", s1: "abcd", s2: "ab", expected: 0.5},
		{name: "Multibyte runes", s1: "canción", s2: "cancion", expected: 6.0 / 7.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizer.CalculateSimilarity(tt.s1, tt.s2); got != tt.expected {
				t.Errorf("CalculateSimilarity(%q, %q) = %v, want %v", tt.s1, tt.s2, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_DurationTolerance(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name     string
		d1, d2   time.Duration
		expected float64
	}{
		{name: "Exact", d1: 3 * time.Minute, d2: 3 * time.Minute, expected: 1.0},
		{name: "Within tolerance", d1: 3 * time.Minute, d2: 3*time.Minute + 20*time.Second, expected: 1.0},
		{name: "Too far", d1: 3 * time.Minute, d2: 6 * time.Minute, expected: 0.0},
		{name: "Halfway", d1: 0, d2: 75 * time.Second, expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizer.DurationTolerance(tt.d1, tt.d2); got != tt.expected {
				t.Errorf("DurationTolerance(%v, %v) = %v, want %v", tt.d1, tt.d2, got, tt.expected)
			}
		})
	}
}
