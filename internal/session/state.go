package session

import (
	"errors"
	"math/rand"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

// ErrInvalidPosition is returned by Remove for positions outside the queue.
var ErrInvalidPosition = errors.New("invalid queue position")

// Transition is what the session decided to do after a track ended.
type Transition int

const (
	// Ignored means the end was consumed by the stop guard or was stale.
	Ignored Transition = iota
	// Replay means the ended track plays again.
	Replay
	// Advance means the next track was taken from the queue.
	Advance
	// Drained means nothing is left to play.
	Drained
)

func (t Transition) String() string {
	switch t {
	case Replay:
		return "replay"
	case Advance:
		return "advance"
	case Drained:
		return "drained"
	default:
		return "ignored"
	}
}

// State is the mutable part of a Session. It is only reachable from inside Do
// and Post, so its methods need no locking.
type State struct {
	guildID string
	session *Session

	channelID string
	queue     []core.Track
	mode      core.RepeatMode
	current   *core.Track
	paused    bool

	// stopGuard is the stopped track whose end event the backend still owes.
	stopGuard *core.Track
	// skipRequested lets one skip move past a track under RepeatTrack.
	skipRequested bool

	idle      *idleTimer
	idleToken uint64
}

func (s *State) GuildID() string {
	return s.guildID
}

// ChannelID is the voice channel the session is bound to, empty when not connected.
func (s *State) ChannelID() string {
	return s.channelID
}

func (s *State) SetChannelID(channelID string) {
	s.channelID = channelID
}

func (s *State) Mode() core.RepeatMode {
	return s.mode
}

func (s *State) SetMode(mode core.RepeatMode) {
	s.mode = mode
}

func (s *State) Paused() bool {
	return s.paused
}

func (s *State) SetPaused(paused bool) {
	s.paused = paused
}

// Current returns the rendering track.
func (s *State) Current() (core.Track, bool) {
	if s.current == nil {
		return core.Track{}, false
	}
	return *s.current, true
}

func (s *State) Playing() bool {
	return s.current != nil
}

// Queue returns a copy of the pending tracks.
func (s *State) Queue() []core.Track {
	out := make([]core.Track, len(s.queue))
	copy(out, s.queue)
	return out
}

func (s *State) QueueLen() int {
	return len(s.queue)
}

// Begin marks track as rendering.
func (s *State) Begin(track core.Track) {
	t := track
	s.current = &t
	s.paused = false
}

func (s *State) Enqueue(tracks ...core.Track) {
	s.queue = append(s.queue, tracks...)
}

// Remove deletes the 1-indexed queue entry. Out-of-range positions leave the queue untouched.
func (s *State) Remove(position int) (core.Track, error) {
	if position < 1 || position > len(s.queue) {
		return core.Track{}, ErrInvalidPosition
	}
	i := position - 1
	removed := s.queue[i]
	s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
	return removed, nil
}

// Shuffle permutes the queue uniformly.
func (s *State) Shuffle() {
	rand.Shuffle(len(s.queue), func(i, j int) {
		s.queue[i], s.queue[j] = s.queue[j], s.queue[i]
	})
}

// Stop turns repeat off, empties the queue and forgets the current track. When a
// track was rendering the guard is armed for the end event the backend will send.
// It reports whether something was rendering.
func (s *State) Stop() bool {
	rendering := s.current != nil
	s.mode = core.RepeatOff
	s.queue = nil
	s.paused = false
	s.skipRequested = false
	s.stopGuard = nil
	if rendering {
		s.stopGuard = s.current
	}
	s.current = nil
	return rendering
}

// ClearStopGuard disarms the guard when the backend never got the stop.
func (s *State) ClearStopGuard() {
	s.stopGuard = nil
}

// Skip marks the current track to be left behind on its end event, even under
// RepeatTrack. It reports false when nothing is rendering.
func (s *State) Skip() bool {
	if s.current == nil {
		return false
	}
	s.skipRequested = true
	return true
}

// ClearSkip withdraws a skip the backend never acted on.
func (s *State) ClearSkip() {
	s.skipRequested = false
}

// Halt forgets the current track without touching the queue or repeat mode.
// Used when the backend refused to render it.
func (s *State) Halt() {
	s.current = nil
	s.paused = false
	s.skipRequested = false
}

// Advance pops the queue front and marks it rendering. It reports false on an empty queue.
func (s *State) Advance() (core.Track, bool) {
	if len(s.queue) == 0 {
		return core.Track{}, false
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.Begin(next)
	return next, true
}

// TrackEnded applies a backend track end and returns the next step with the track to play.
// Ends that do not belong to the current track are stale and ignored.
func (s *State) TrackEnded(ended core.Track) (Transition, core.Track) {
	return s.trackEnded(ended, false)
}

// TrackFailed applies the end of a track the backend could not render. The track
// is neither replayed nor put back in rotation, so a broken track cannot loop.
func (s *State) TrackFailed(ended core.Track) (Transition, core.Track) {
	return s.trackEnded(ended, true)
}

func (s *State) trackEnded(ended core.Track, failed bool) (Transition, core.Track) {
	if guard := s.stopGuard; guard != nil {
		s.stopGuard = nil
		if sameTrack(ended, *guard) {
			return Ignored, core.Track{}
		}
		// the stopped end was lost; this end belongs to a later track
	}
	if s.current == nil {
		return Ignored, core.Track{}
	}
	if !sameTrack(ended, *s.current) {
		return Ignored, core.Track{}
	}

	finished := *s.current
	skipped := s.skipRequested || failed
	s.skipRequested = false

	if s.mode == core.RepeatTrack && !skipped {
		s.Begin(finished)
		return Replay, finished
	}

	if s.mode == core.RepeatQueue && !failed {
		s.queue = append(s.queue, finished)
	}

	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.Begin(next)
		return Advance, next
	}

	s.current = nil
	s.paused = false
	return Drained, core.Track{}
}

// sameTrack compares backend handles; a missing handle matches anything.
func sameTrack(a, b core.Track) bool {
	return a.Encoded == "" || b.Encoded == "" || a.Encoded == b.Encoded
}

// Reset returns the state to a fresh session: nothing queued, nothing playing,
// repeat off and no pending idle timer.
func (s *State) Reset() {
	s.CancelIdle()
	s.queue = nil
	s.current = nil
	s.mode = core.RepeatOff
	s.paused = false
	s.stopGuard = nil
	s.skipRequested = false
	s.channelID = ""
}
