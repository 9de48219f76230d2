package player

import (
	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/internal/lyrics"
)

// Outcome classifies how a command ended.
type Outcome int

const (
	OK Outcome = iota
	// NotFound means resolution or lookup produced nothing.
	NotFound
	// InvalidState means the command needs a session or track that does not exist.
	InvalidState
	// InvalidArgument means the command argument was rejected.
	InvalidArgument
	// TransportFailure means the audio backend could not carry out the command.
	TransportFailure
)

func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not_found"
	case InvalidState:
		return "invalid_state"
	case InvalidArgument:
		return "invalid_argument"
	case TransportFailure:
		return "transport_failure"
	default:
		return "ok"
	}
}

// Result is what a command reports back to the chat layer. Key is an i18n
// message key; the remaining fields carry what the renderer needs for it.
type Result struct {
	Outcome Outcome
	Key     string

	Track   core.Track
	Queue   []core.Track
	Mode    core.RepeatMode
	Started bool
	// Added counts tracks appended to the queue.
	Added        int
	Playlist     bool
	PlaylistName string
	ChannelID    string
	Lyrics       *lyrics.Lyrics
}

func fail(outcome Outcome, key string) Result {
	return Result{Outcome: outcome, Key: key}
}

// Command names used for metrics.
const (
	CommandJoin       = "join"
	CommandLeave      = "leave"
	CommandPlay       = "play"
	CommandPause      = "pause"
	CommandResume     = "resume"
	CommandStop       = "stop"
	CommandSkip       = "skip"
	CommandQueue      = "queue"
	CommandNowPlaying = "nowplaying"
	CommandLoop       = "loop"
	CommandShuffle    = "shuffle"
	CommandRemove     = "remove"
	CommandLyrics     = "lyrics"
)
