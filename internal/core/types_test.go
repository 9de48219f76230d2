package core

import (
	"testing"
	"time"
)

func TestParseRepeatMode(t *testing.T) {
	tests := []struct {
		input    string
		expected RepeatMode
		ok       bool
	}{
		{input: "song", expected: RepeatTrack, ok: true},
		{input: "SONG", expected: RepeatTrack, ok: true},
		{input: "track", expected: RepeatTrack, ok: true},
		{input: "queue", expected: RepeatQueue, ok: true},
		{input: " off ", expected: RepeatOff, ok: true},
		{input: "forever", expected: RepeatOff, ok: false},
		{input: "", expected: RepeatOff, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, ok := ParseRepeatMode(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseRepeatMode(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if mode != tt.expected {
				t.Errorf("ParseRepeatMode(%q) = %v, want %v", tt.input, mode, tt.expected)
			}
		})
	}
}

func TestRepeatMode_String(t *testing.T) {
	for mode, want := range map[RepeatMode]string{RepeatOff: "off", RepeatTrack: "song", RepeatQueue: "queue"} {
		if got := mode.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", mode, got, want)
		}
		parsed, ok := ParseRepeatMode(want)
		if !ok || parsed != mode {
			t.Errorf("ParseRepeatMode(%q) did not round trip to %d", want, mode)
		}
	}
}

func TestTrack_DurationMillis(t *testing.T) {
	track := Track{Title: "x", Duration: 3*time.Minute + 512*time.Millisecond}
	if got := track.DurationMillis(); got != 180512 {
		t.Errorf("DurationMillis() = %d, want 180512", got)
	}
}

func TestMusicLinkTrackInfo_SearchQuery(t *testing.T) {
	info := MusicLinkTrackInfo{Title: "Oye Como Va", Artist: "Santana"}
	if got := info.SearchQuery(); got != "Oye Como Va Santana" {
		t.Errorf("SearchQuery() = %q", got)
	}

	if got := (MusicLinkTrackInfo{Title: "Solo"}).SearchQuery(); got != "Solo" {
		t.Errorf("SearchQuery() without artist = %q", got)
	}
}
