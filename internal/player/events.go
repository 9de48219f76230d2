package player

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/internal/session"
)

// HandleTrackEnd delivers a backend track end into the guild's session.
func (c *Controller) HandleTrackEnd(guildID string, track core.Track, reason string) {
	sess, ok := c.registry.Get(guildID)
	if !ok {
		c.logger.Debug("Track end for unknown session", zap.String("guildID", guildID), zap.String("reason", reason))
		return
	}
	sess.Post(func(st *session.State) {
		c.trackEnded(st, track, reason)
	})
}

func (c *Controller) trackEnded(st *session.State, ended core.Track, reason string) {
	var (
		transition session.Transition
		next       core.Track
	)
	if reason == core.EndReasonLoadFailed {
		transition, next = st.TrackFailed(ended)
	} else {
		transition, next = st.TrackEnded(ended)
	}
	c.recorder.TrackTransition(transition.String())
	c.logger.Debug("Track ended",
		zap.String("guildID", st.GuildID()),
		zap.String("title", ended.Title),
		zap.String("reason", reason),
		zap.Stringer("transition", transition))

	switch transition {
	case session.Ignored:
		return
	case session.Drained:
		c.supervisor.Evaluate(st)
		return
	}
	c.startNext(st, next)
}

// startNext plays next, moving further down the queue when the backend refuses a track.
func (c *Controller) startNext(st *session.State, next core.Track) {
	for attempt := 1; ; attempt++ {
		if err := c.play(context.Background(), st, next); err == nil {
			return
		}
		st.Halt()

		if attempt >= maxAdvanceAttempts {
			break
		}
		var ok bool
		if next, ok = st.Advance(); !ok {
			break
		}
	}

	c.logger.Warn("Playback stopped after backend failures", zap.String("guildID", st.GuildID()))
	c.supervisor.Evaluate(st)
}

// HandleListenerMoved re-evaluates occupancy when a non-bot member joins or
// leaves a channel the session is bound to.
func (c *Controller) HandleListenerMoved(guildID, beforeChannelID, afterChannelID string) {
	if beforeChannelID == afterChannelID {
		return
	}
	sess, ok := c.registry.Get(guildID)
	if !ok {
		return
	}
	sess.Post(func(st *session.State) {
		channelID := st.ChannelID()
		if channelID == "" || (channelID != beforeChannelID && channelID != afterChannelID) {
			return
		}
		c.supervisor.Evaluate(st)
	})
}

// HandleBotVoiceState follows the bot's own voice state. An empty channel means
// the bot was disconnected from outside and the session is torn down; another
// channel means it was moved.
func (c *Controller) HandleBotVoiceState(guildID, channelID string) {
	sess, ok := c.registry.Get(guildID)
	if !ok {
		return
	}
	sess.Post(func(st *session.State) {
		bound := st.ChannelID()
		switch {
		case bound == "" || bound == channelID:
			return
		case channelID == "":
			c.logger.Info("Disconnected from voice externally", zap.String("guildID", guildID))
			if err := c.teardown(context.Background(), st); err != nil {
				c.logger.Warn("Teardown after external disconnect failed", zap.String("guildID", guildID), zap.Error(err))
			}
		default:
			c.logger.Info("Moved to another voice channel",
				zap.String("guildID", guildID),
				zap.String("from", bound),
				zap.String("to", channelID))
			st.SetChannelID(channelID)
			c.supervisor.Evaluate(st)
		}
	})
}

// teardown resets the session, destroys its player and removes it from the
// registry. It must run on the session goroutine.
func (c *Controller) teardown(ctx context.Context, st *session.State) error {
	guildID := st.GuildID()
	st.Reset()

	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	err := c.backend.Disconnect(bctx, guildID)
	if err != nil {
		c.logger.Error("Failed to disconnect", zap.String("guildID", guildID), zap.Error(err))
	}

	if c.registry.Release(st) {
		c.recorder.ActiveSessions(c.registry.Len())
	}
	c.logger.Info("Session closed", zap.String("guildID", guildID))

	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

func (c *Controller) idleDisconnect(st *session.State) {
	guildID := st.GuildID()
	if err := c.teardown(context.Background(), st); err != nil {
		c.logger.Warn("Idle teardown incomplete", zap.String("guildID", guildID), zap.Error(err))
	}
	c.recorder.IdleDisconnect()
	c.notifier.Notify(guildID, Result{Outcome: OK, Key: "status.idle_disconnect"})
}
