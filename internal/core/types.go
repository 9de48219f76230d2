package core

import (
	"context"
	"strings"
	"time"
)

// EndReasonLoadFailed is the track end reason for a track the audio node could not render.
const EndReasonLoadFailed = "loadFailed"

// RepeatMode controls what the session plays after the current track ends.
type RepeatMode int

const (
	// RepeatOff plays the queue once and stops
	RepeatOff RepeatMode = iota
	// RepeatTrack replays the current track until the mode changes
	RepeatTrack
	// RepeatQueue appends every finished track to the back of the queue
	RepeatQueue
)

// String returns the user-facing mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatTrack:
		return "song"
	case RepeatQueue:
		return "queue"
	default:
		return "off"
	}
}

// ParseRepeatMode accepts the names users type after the loop command.
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return RepeatOff, true
	case "song", "track", "one":
		return RepeatTrack, true
	case "queue", "all":
		return RepeatQueue, true
	}
	return RepeatOff, false
}

type Track struct {
	Title    string
	Author   string
	URI      string
	Duration time.Duration
	Provider string
	// Encoded is the audio node's opaque handle for the track.
	Encoded string
}

// DurationMillis returns the track length in milliseconds.
func (t Track) DurationMillis() int64 {
	return t.Duration.Milliseconds()
}

// LoadResult is what the audio node returns for one identifier.
type LoadResult struct {
	Tracks       []Track
	Playlist     bool
	PlaylistName string
}

// TrackLoader loads tracks for an identifier (URL or "<provider>:<query>").
type TrackLoader interface {
	LoadTracks(ctx context.Context, identifier string) (*LoadResult, error)
}

// AudioBackend renders audio for a room on an external node.
// Stop halts rendering and makes the node emit a track-ended event.
type AudioBackend interface {
	Connect(ctx context.Context, guildID, channelID string) error
	Play(ctx context.Context, guildID string, track Track) error
	Pause(ctx context.Context, guildID string, paused bool) error
	Stop(ctx context.Context, guildID string) error
	Disconnect(ctx context.Context, guildID string) error
}

// VoiceMembership answers occupancy questions from the chat gateway state.
type VoiceMembership interface {
	// UserVoiceChannel returns the voice channel a user is connected to in a guild.
	UserVoiceChannel(guildID, userID string) (string, bool)
	// ListenerCount returns the number of non-bot members in a voice channel.
	ListenerCount(guildID, channelID string) int
}

// TitleLookup recovers a display title for a URL (oEmbed and friends).
type TitleLookup interface {
	LookupTitle(ctx context.Context, rawURL string) (string, error)
}

// CatalogExpander turns streaming-platform links into "title artist" search queries.
type CatalogExpander interface {
	CanExpand(rawURL string) bool
	Expand(ctx context.Context, rawURL string, limit int) ([]string, error)
}

// MusicLinkResolver defines the interface for resolving music links from various providers.
type MusicLinkResolver interface {
	// Resolve attempts to resolve a music link to track information.
	Resolve(ctx context.Context, url string) (*MusicLinkTrackInfo, error)
	// CanResolve checks if this resolver can handle the given URL.
	CanResolve(url string) bool
}

// MusicLinkTrackInfo holds track information extracted from a music provider link.
type MusicLinkTrackInfo struct {
	Title  string
	Artist string
}

// SearchQuery renders the info as a "title artist" text query.
func (i MusicLinkTrackInfo) SearchQuery() string {
	return strings.TrimSpace(i.Title + " " + i.Artist)
}
