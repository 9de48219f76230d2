// Package player turns chat commands into session mutations and audio backend calls.
package player

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/internal/lyrics"
	"github.com/PurpleQuas4r/Sthashior/internal/resolver"
	"github.com/PurpleQuas4r/Sthashior/internal/session"
)

const (
	defaultBackendTimeout = 10 * time.Second
	// maxAdvanceAttempts bounds how many queued tracks are tried when the backend refuses them.
	maxAdvanceAttempts = 5
)

// TrackResolver turns a play query into tracks.
type TrackResolver interface {
	Resolve(ctx context.Context, query string) resolver.Result
}

type LyricsFinder interface {
	Find(ctx context.Context, req lyrics.Request) (*lyrics.Lyrics, error)
}

// Recorder receives playback metrics.
type Recorder interface {
	CommandHandled(command, outcome string)
	TrackTransition(kind string)
	IdleDisconnect()
	ActiveSessions(n int)
}

// Notifier delivers results that no command is waiting for, such as an idle disconnect.
type Notifier interface {
	Notify(guildID string, res Result)
}

type nopRecorder struct{}

func (nopRecorder) CommandHandled(string, string) {}
func (nopRecorder) TrackTransition(string)        {}
func (nopRecorder) IdleDisconnect()               {}
func (nopRecorder) ActiveSessions(int)            {}

type nopNotifier struct{}

func (nopNotifier) Notify(string, Result) {}

type Controller struct {
	registry   *session.Registry
	backend    core.AudioBackend
	resolver   TrackResolver
	members    core.VoiceMembership
	supervisor *session.Supervisor
	lyrics     LyricsFinder
	recorder   Recorder
	notifier   Notifier
	timeout    time.Duration
	grace      time.Duration
	logger     *zap.Logger
}

type Option func(*Controller)

func WithLyrics(finder LyricsFinder) Option {
	return func(c *Controller) { c.lyrics = finder }
}

func WithRecorder(recorder Recorder) Option {
	return func(c *Controller) { c.recorder = recorder }
}

// WithIdleGrace overrides how long an empty voice channel is tolerated.
func WithIdleGrace(grace time.Duration) Option {
	return func(c *Controller) { c.grace = grace }
}

// WithBackendTimeout bounds each audio backend call made on a session goroutine.
func WithBackendTimeout(timeout time.Duration) Option {
	return func(c *Controller) { c.timeout = timeout }
}

func New(
	registry *session.Registry,
	backend core.AudioBackend,
	tracks TrackResolver,
	members core.VoiceMembership,
	config *core.AppConfig,
	logger *zap.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		registry: registry,
		backend:  backend,
		resolver: tracks,
		members:  members,
		recorder: nopRecorder{},
		notifier: nopNotifier{},
		timeout:  defaultBackendTimeout,
		grace:    config.IdleGrace(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.supervisor = session.NewSupervisor(c.grace, members, c.idleDisconnect, logger.Named("idle"))
	return c
}

// SetNotifier installs the sink for unsolicited results. The chat frontend
// is built after the controller, so it is wired late.
func (c *Controller) SetNotifier(notifier Notifier) {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	c.notifier = notifier
}

func (c *Controller) finish(command string, res Result) Result {
	c.recorder.CommandHandled(command, res.Outcome.String())
	return res
}

// backendCtx bounds a backend call. Calls made on a session goroutine use it
// so a stuck node cannot stall the room forever.
func (c *Controller) backendCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// existing runs fn on the guild's session. It reports false when the guild has none.
func (c *Controller) existing(ctx context.Context, guildID string, fn func(st *session.State)) (bool, error) {
	sess, ok := c.registry.Get(guildID)
	if !ok {
		return false, nil
	}
	return true, sess.Do(ctx, fn)
}

func (c *Controller) sessionFailure(err error) Result {
	if errors.Is(err, session.ErrClosed) {
		return fail(InvalidState, "error.not_connected")
	}
	c.logger.Warn("Session work failed", zap.Error(err))
	return fail(TransportFailure, "error.generic")
}

// bind connects the session to the caller's voice channel unless it is already bound.
// It must run on the session goroutine.
func (c *Controller) bind(ctx context.Context, st *session.State, userID string) Result {
	if st.ChannelID() != "" {
		return Result{Outcome: OK, ChannelID: st.ChannelID()}
	}

	channelID, ok := c.members.UserVoiceChannel(st.GuildID(), userID)
	if !ok {
		return fail(InvalidState, "error.not_in_voice")
	}

	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	if err := c.backend.Connect(bctx, st.GuildID(), channelID); err != nil {
		c.logger.Error("Failed to connect voice",
			zap.String("guildID", st.GuildID()),
			zap.String("channelID", channelID),
			zap.Error(err))
		return fail(TransportFailure, "error.transport")
	}

	st.SetChannelID(channelID)
	c.supervisor.Touch(st)
	c.logger.Info("Joined voice channel", zap.String("guildID", st.GuildID()), zap.String("channelID", channelID))
	return Result{Outcome: OK, ChannelID: channelID}
}

// dropUnbound removes a session that never got a voice channel.
func (c *Controller) dropUnbound(st *session.State) {
	if st.ChannelID() != "" || st.Playing() || st.QueueLen() > 0 {
		return
	}
	if c.registry.Release(st) {
		c.recorder.ActiveSessions(c.registry.Len())
	}
}

func (c *Controller) acquire(guildID string) *session.Session {
	sess, created := c.registry.GetOrCreate(guildID)
	if created {
		c.recorder.ActiveSessions(c.registry.Len())
	}
	return sess
}

// Join connects to the caller's voice channel. Joining the channel the session
// is already bound to only cancels a pending idle disconnect.
func (c *Controller) Join(ctx context.Context, guildID, userID string) Result {
	channelID, ok := c.members.UserVoiceChannel(guildID, userID)
	if !ok {
		return c.finish(CommandJoin, fail(InvalidState, "error.not_in_voice"))
	}

	var res Result
	err := c.acquire(guildID).Do(ctx, func(st *session.State) {
		if st.ChannelID() == channelID {
			c.supervisor.Touch(st)
			res = Result{Outcome: OK, Key: "status.joined", ChannelID: channelID}
			return
		}

		bctx, cancel := c.backendCtx(ctx)
		defer cancel()
		if err := c.backend.Connect(bctx, guildID, channelID); err != nil {
			c.logger.Error("Failed to connect voice",
				zap.String("guildID", guildID),
				zap.String("channelID", channelID),
				zap.Error(err))
			c.dropUnbound(st)
			res = fail(TransportFailure, "error.transport")
			return
		}

		st.SetChannelID(channelID)
		c.supervisor.Touch(st)
		res = Result{Outcome: OK, Key: "status.joined", ChannelID: channelID}
	})
	if err != nil {
		return c.finish(CommandJoin, c.sessionFailure(err))
	}
	return c.finish(CommandJoin, res)
}

// Leave tears the session down: idle timer, queue, player and voice connection.
func (c *Controller) Leave(ctx context.Context, guildID string) Result {
	res := fail(InvalidState, "error.not_connected")
	found, err := c.existing(ctx, guildID, func(st *session.State) {
		if err := c.teardown(ctx, st); err != nil {
			res = fail(TransportFailure, "error.transport")
			return
		}
		res = Result{Outcome: OK, Key: "status.left"}
	})
	if err != nil {
		return c.finish(CommandLeave, c.sessionFailure(err))
	}
	if !found {
		return c.finish(CommandLeave, fail(InvalidState, "error.not_connected"))
	}
	return c.finish(CommandLeave, res)
}

// Play resolves query outside the session goroutine, then plays the first track
// when the session is idle and queues the rest.
func (c *Controller) Play(ctx context.Context, guildID, userID, query string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.finish(CommandPlay, fail(InvalidArgument, "error.usage_play"))
	}

	// fail fast before spending a resolve on a caller who cannot be joined
	if !c.connected(ctx, guildID) {
		if _, ok := c.members.UserVoiceChannel(guildID, userID); !ok {
			return c.finish(CommandPlay, fail(InvalidState, "error.not_in_voice"))
		}
	}

	resolved := c.resolver.Resolve(ctx, query)
	if len(resolved.Tracks) == 0 {
		c.logger.Info("No tracks found", zap.String("guildID", guildID), zap.String("query", query))
		return c.finish(CommandPlay, fail(NotFound, "play.not_found"))
	}

	var res Result
	err := c.acquire(guildID).Do(ctx, func(st *session.State) {
		if bound := c.bind(ctx, st, userID); bound.Outcome != OK {
			c.dropUnbound(st)
			res = bound
			return
		}
		res = c.enqueue(ctx, st, resolved)
	})
	if err != nil {
		return c.finish(CommandPlay, c.sessionFailure(err))
	}
	return c.finish(CommandPlay, res)
}

func (c *Controller) enqueue(ctx context.Context, st *session.State, resolved resolver.Result) Result {
	tracks := resolved.Tracks
	res := Result{
		Outcome:      OK,
		Track:        tracks[0],
		Playlist:     resolved.Playlist,
		PlaylistName: resolved.PlaylistName,
		ChannelID:    st.ChannelID(),
	}

	if st.Playing() {
		st.Enqueue(tracks...)
		res.Added = len(tracks)
		switch {
		case len(tracks) == 1:
			res.Key = "play.queued"
		case resolved.PlaylistName != "":
			res.Key = "play.playlist_queued"
		default:
			res.Key = "play.queued_many"
		}
		res.Mode = st.Mode()
		return res
	}

	first := tracks[0]
	st.Begin(first)
	if err := c.play(ctx, st, first); err != nil {
		st.Halt()
		c.supervisor.Evaluate(st)
		return fail(TransportFailure, "error.transport")
	}
	c.supervisor.Touch(st)

	st.Enqueue(tracks[1:]...)
	res.Started = true
	res.Added = len(tracks) - 1
	switch {
	case res.Added == 0:
		res.Key = "play.started"
	case resolved.PlaylistName != "":
		res.Key = "play.playlist_started"
	default:
		res.Key = "play.started_and_queued"
	}
	res.Mode = st.Mode()
	return res
}

func (c *Controller) play(ctx context.Context, st *session.State, track core.Track) error {
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	if err := c.backend.Play(bctx, st.GuildID(), track); err != nil {
		c.logger.Error("Failed to start track",
			zap.String("guildID", st.GuildID()),
			zap.String("title", track.Title),
			zap.Error(err))
		return err
	}
	c.logger.Info("Playing track", zap.String("guildID", st.GuildID()), zap.String("title", track.Title))
	return nil
}

// connected reports whether the guild's session is bound to a voice channel.
func (c *Controller) connected(ctx context.Context, guildID string) bool {
	var bound bool
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		bound = st.ChannelID() != ""
	})
	return err == nil && bound
}

func (c *Controller) Pause(ctx context.Context, guildID string) Result {
	return c.finish(CommandPause, c.setPaused(ctx, guildID, true))
}

func (c *Controller) Resume(ctx context.Context, guildID string) Result {
	return c.finish(CommandResume, c.setPaused(ctx, guildID, false))
}

func (c *Controller) setPaused(ctx context.Context, guildID string, paused bool) Result {
	idleKey, doneKey := "status.nothing_paused", "status.resumed"
	if paused {
		idleKey, doneKey = "status.nothing_playing", "status.paused"
	}

	res := fail(InvalidState, idleKey)
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		if !st.Playing() || st.Paused() == paused {
			return
		}
		bctx, cancel := c.backendCtx(ctx)
		defer cancel()
		if err := c.backend.Pause(bctx, guildID, paused); err != nil {
			c.logger.Error("Failed to change pause state", zap.String("guildID", guildID), zap.Bool("paused", paused), zap.Error(err))
			res = fail(TransportFailure, "error.transport")
			return
		}
		st.SetPaused(paused)
		current, _ := st.Current()
		res = Result{Outcome: OK, Key: doneKey, Track: current}
	})
	if err != nil {
		return c.sessionFailure(err)
	}
	return res
}

// Stop clears the queue, turns repeat off and halts the player. The track end
// the backend emits for the halted track is swallowed by the stop guard.
func (c *Controller) Stop(ctx context.Context, guildID string) Result {
	res := fail(InvalidState, "error.not_connected")
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		if st.Stop() {
			bctx, cancel := c.backendCtx(ctx)
			defer cancel()
			if err := c.backend.Stop(bctx, guildID); err != nil {
				c.logger.Error("Failed to stop player", zap.String("guildID", guildID), zap.Error(err))
				st.ClearStopGuard()
				res = fail(TransportFailure, "error.transport")
				return
			}
		}
		c.supervisor.Evaluate(st)
		res = Result{Outcome: OK, Key: "status.stopped"}
	})
	if err != nil {
		return c.finish(CommandStop, c.sessionFailure(err))
	}
	return c.finish(CommandStop, res)
}

// Skip halts the current track; its end event advances the queue even under RepeatTrack.
func (c *Controller) Skip(ctx context.Context, guildID string) Result {
	res := fail(InvalidState, "status.nothing_to_skip")
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		current, ok := st.Current()
		if !ok || !st.Skip() {
			return
		}
		bctx, cancel := c.backendCtx(ctx)
		defer cancel()
		if err := c.backend.Stop(bctx, guildID); err != nil {
			c.logger.Error("Failed to skip track", zap.String("guildID", guildID), zap.Error(err))
			st.ClearSkip()
			res = fail(TransportFailure, "error.transport")
			return
		}
		res = Result{Outcome: OK, Key: "status.skipped", Track: current}
	})
	if err != nil {
		return c.finish(CommandSkip, c.sessionFailure(err))
	}
	return c.finish(CommandSkip, res)
}

func (c *Controller) Queue(ctx context.Context, guildID string) Result {
	res := Result{Outcome: OK, Key: "queue.empty"}
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		res.Queue = st.Queue()
		res.Mode = st.Mode()
		if current, ok := st.Current(); ok {
			res.Track = current
		}
		if len(res.Queue) > 0 {
			res.Key = "queue.list"
		}
	})
	if err != nil {
		return c.finish(CommandQueue, c.sessionFailure(err))
	}
	return c.finish(CommandQueue, res)
}

func (c *Controller) NowPlaying(ctx context.Context, guildID string) Result {
	res := fail(InvalidState, "status.not_playing_now")
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		current, ok := st.Current()
		if !ok {
			return
		}
		res = Result{Outcome: OK, Key: "nowplaying.track", Track: current, Mode: st.Mode(), Added: st.QueueLen()}
	})
	if err != nil {
		return c.finish(CommandNowPlaying, c.sessionFailure(err))
	}
	return c.finish(CommandNowPlaying, res)
}

// Loop sets the repeat mode. Without an argument it toggles between off and song.
func (c *Controller) Loop(ctx context.Context, guildID, arg string) Result {
	arg = strings.TrimSpace(arg)
	mode, valid := core.ParseRepeatMode(arg)
	if arg != "" && !valid {
		return c.finish(CommandLoop, fail(InvalidArgument, "error.invalid_loop"))
	}

	res := fail(InvalidState, "error.not_connected")
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		if arg == "" {
			mode = core.RepeatTrack
			if st.Mode() != core.RepeatOff {
				mode = core.RepeatOff
			}
		}
		st.SetMode(mode)
		res = Result{Outcome: OK, Key: "status.loop", Mode: mode}
	})
	if err != nil {
		return c.finish(CommandLoop, c.sessionFailure(err))
	}
	return c.finish(CommandLoop, res)
}

func (c *Controller) Shuffle(ctx context.Context, guildID string) Result {
	res := fail(InvalidState, "queue.empty")
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		if st.QueueLen() == 0 {
			return
		}
		st.Shuffle()
		res = Result{Outcome: OK, Key: "queue.shuffled", Queue: st.Queue()}
	})
	if err != nil {
		return c.finish(CommandShuffle, c.sessionFailure(err))
	}
	return c.finish(CommandShuffle, res)
}

// Remove deletes the 1-indexed queue entry.
func (c *Controller) Remove(ctx context.Context, guildID string, position int) Result {
	res := fail(InvalidArgument, "error.invalid_position")
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		removed, err := st.Remove(position)
		if err != nil {
			return
		}
		res = Result{Outcome: OK, Key: "queue.removed", Track: removed, Queue: st.Queue()}
	})
	if err != nil {
		return c.finish(CommandRemove, c.sessionFailure(err))
	}
	return c.finish(CommandRemove, res)
}

// Lyrics looks up lyrics for name, or for the playing track when name is empty.
// The lookup runs outside the session goroutine.
func (c *Controller) Lyrics(ctx context.Context, guildID, name string) Result {
	if c.lyrics == nil {
		return c.finish(CommandLyrics, fail(NotFound, "lyrics.not_found"))
	}

	var current *core.Track
	_, err := c.existing(ctx, guildID, func(st *session.State) {
		if track, ok := st.Current(); ok {
			current = &track
		}
	})
	if err != nil && !errors.Is(err, session.ErrClosed) {
		return c.finish(CommandLyrics, c.sessionFailure(err))
	}

	name = strings.TrimSpace(name)
	if name == "" && current == nil {
		return c.finish(CommandLyrics, fail(InvalidState, "lyrics.no_track"))
	}

	found, err := c.lyrics.Find(ctx, lyrics.Request{Query: name, Track: current})
	switch {
	case errors.Is(err, lyrics.ErrNotFound):
		return c.finish(CommandLyrics, fail(NotFound, "lyrics.not_found"))
	case err != nil:
		c.logger.Warn("Lyrics lookup failed", zap.String("guildID", guildID), zap.Error(err))
		return c.finish(CommandLyrics, fail(TransportFailure, "error.generic"))
	}
	return c.finish(CommandLyrics, Result{Outcome: OK, Key: "title.lyrics", Lyrics: found})
}

// Shutdown destroys every player and stops all session goroutines.
func (c *Controller) Shutdown(ctx context.Context) {
	for _, guildID := range c.registry.GuildIDs() {
		_, err := c.existing(ctx, guildID, func(st *session.State) {
			if err := c.teardown(ctx, st); err != nil {
				c.logger.Warn("Failed to tear down session", zap.String("guildID", guildID), zap.Error(err))
			}
		})
		if err != nil && !errors.Is(err, session.ErrClosed) {
			c.logger.Warn("Session did not shut down cleanly", zap.String("guildID", guildID), zap.Error(err))
		}
	}
	c.registry.Close()
	c.recorder.ActiveSessions(0)
}
