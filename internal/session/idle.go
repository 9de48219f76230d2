package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

type idleTimer struct {
	token uint64
	timer *time.Timer
}

// IdlePending reports whether a disconnect is scheduled.
func (s *State) IdlePending() bool {
	return s.idle != nil
}

// ArmIdle schedules fire after grace unless a timer is already pending.
// The firing is delivered through the session goroutine and dropped when the
// timer was cancelled or replaced in the meantime.
func (s *State) ArmIdle(grace time.Duration, fire func(st *State)) bool {
	if s.idle != nil {
		return false
	}

	s.idleToken++
	token := s.idleToken
	sess := s.session

	s.idle = &idleTimer{
		token: token,
		timer: time.AfterFunc(grace, func() {
			sess.Post(func(st *State) {
				if st.idle == nil || st.idle.token != token {
					return
				}
				st.idle = nil
				fire(st)
			})
		}),
	}
	return true
}

// CancelIdle stops a pending timer. It reports whether one was pending.
func (s *State) CancelIdle() bool {
	if s.idle == nil {
		return false
	}
	s.idle.timer.Stop()
	s.idle = nil
	return true
}

// IdleFunc tears down a session whose channel stayed empty for the grace period.
type IdleFunc func(st *State)

// Supervisor disconnects sessions whose voice channel has no listeners.
type Supervisor struct {
	grace   time.Duration
	members core.VoiceMembership
	onIdle  IdleFunc
	logger  *zap.Logger
}

func NewSupervisor(grace time.Duration, members core.VoiceMembership, onIdle IdleFunc, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		grace:   grace,
		members: members,
		onIdle:  onIdle,
		logger:  logger,
	}
}

// Evaluate starts or cancels the idle timer from the current channel occupancy.
// It must run on the session goroutine.
func (sv *Supervisor) Evaluate(st *State) {
	channelID := st.ChannelID()
	if channelID == "" {
		st.CancelIdle()
		return
	}

	if sv.members.ListenerCount(st.GuildID(), channelID) > 0 {
		if st.CancelIdle() {
			sv.logger.Debug("Listeners returned, idle disconnect cancelled", zap.String("guildID", st.GuildID()))
		}
		return
	}

	if st.ArmIdle(sv.grace, sv.fire) {
		sv.logger.Info("Voice channel empty, disconnect scheduled",
			zap.String("guildID", st.GuildID()),
			zap.Duration("grace", sv.grace))
	}
}

// Touch cancels a pending disconnect after explicit user activity.
func (sv *Supervisor) Touch(st *State) {
	if st.CancelIdle() {
		sv.logger.Debug("Activity cancelled idle disconnect", zap.String("guildID", st.GuildID()))
	}
}

func (sv *Supervisor) fire(st *State) {
	channelID := st.ChannelID()
	if channelID == "" {
		return
	}
	if sv.members.ListenerCount(st.GuildID(), channelID) > 0 {
		return
	}

	sv.logger.Info("Disconnecting idle session", zap.String("guildID", st.GuildID()))
	sv.onIdle(st)
}
