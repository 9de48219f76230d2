// Package lavalink talks to a Lavalink v4 audio node: REST for loading tracks and
// driving players, a websocket for lifecycle events.
package lavalink

import (
	"encoding/json"
	"time"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

const (
	loadTypeTrack    = "track"
	loadTypePlaylist = "playlist"
	loadTypeSearch   = "search"
	loadTypeEmpty    = "empty"
	loadTypeError    = "error"
)

// Track end reasons reported in TrackEndEvent.
const (
	EndReasonFinished   = "finished"
	EndReasonLoadFailed = core.EndReasonLoadFailed
	EndReasonStopped    = "stopped"
	EndReasonReplaced   = "replaced"
	EndReasonCleanup    = "cleanup"
)

type TrackInfo struct {
	Identifier string `json:"identifier"`
	IsSeekable bool   `json:"isSeekable"`
	Author     string `json:"author"`
	Length     int64  `json:"length"`
	IsStream   bool   `json:"isStream"`
	Position   int64  `json:"position"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	SourceName string `json:"sourceName"`
}

type Track struct {
	Encoded string    `json:"encoded"`
	Info    TrackInfo `json:"info"`
}

func (t Track) toCore() core.Track {
	return core.Track{
		Title:    t.Info.Title,
		Author:   t.Info.Author,
		URI:      t.Info.URI,
		Duration: time.Duration(t.Info.Length) * time.Millisecond,
		Provider: t.Info.SourceName,
		Encoded:  t.Encoded,
	}
}

type loadResponse struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type playlistData struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Tracks []Track `json:"tracks"`
}

type exceptionData struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

// VoiceState is the Discord voice connection handed to the node.
type VoiceState struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

// PlayerUpdate is the body of a player PATCH. Nil fields are left untouched.
type PlayerUpdate struct {
	Track  *TrackUpdate `json:"track,omitempty"`
	Paused *bool        `json:"paused,omitempty"`
	Voice  *VoiceState  `json:"voice,omitempty"`
}

// TrackUpdate sets the playing track. A nil Encoded stops the player.
type TrackUpdate struct {
	Encoded *string `json:"encoded"`
}

// message is every websocket frame the node sends; fields are filled per op and event type.
type message struct {
	Op        string `json:"op"`
	SessionID string `json:"sessionId"`
	Resumed   bool   `json:"resumed"`
	GuildID   string `json:"guildId"`

	Type      string         `json:"type"`
	Track     *Track         `json:"track"`
	Reason    string         `json:"reason"`
	Exception *exceptionData `json:"exception"`
	Threshold int64          `json:"thresholdMs"`
	Code      int            `json:"code"`
	ByRemote  bool           `json:"byRemote"`

	State *struct {
		Position  int64 `json:"position"`
		Connected bool  `json:"connected"`
	} `json:"state"`

	Players        int `json:"players"`
	PlayingPlayers int `json:"playingPlayers"`
}

// advances reports whether a track end reason should move the session forward.
// Replaced tracks were superseded by an explicit play; cleanup comes from player teardown.
func advances(reason string) bool {
	switch reason {
	case EndReasonFinished, EndReasonLoadFailed, EndReasonStopped:
		return true
	}
	return false
}

func boolPtr(b bool) *bool {
	return &b
}
