package session

import (
	"sync"

	"go.uber.org/zap"
)

// Registry owns one Session per guild.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// GetOrCreate returns the guild's session, creating it on first use.
// created is true only for the caller that made it.
func (r *Registry) GetOrCreate(guildID string) (sess *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[guildID]; ok {
		return sess, false
	}

	sess = newSession(guildID)
	r.sessions[guildID] = sess
	r.logger.Debug("Session created", zap.String("guildID", guildID))
	return sess, true
}

func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[guildID]
	return sess, ok
}

// Remove forgets the guild's session and closes it. Safe to call from the session's own goroutine.
func (r *Registry) Remove(guildID string) bool {
	r.mu.Lock()
	sess, ok := r.sessions[guildID]
	delete(r.sessions, guildID)
	r.mu.Unlock()

	if !ok {
		return false
	}
	sess.Close()
	r.logger.Debug("Session removed", zap.String("guildID", guildID))
	return true
}

// RemoveSession removes sess only if it is still the registered session for its guild.
func (r *Registry) RemoveSession(sess *Session) bool {
	r.mu.Lock()
	current, ok := r.sessions[sess.guildID]
	if ok && current == sess {
		delete(r.sessions, sess.guildID)
	}
	r.mu.Unlock()

	sess.Close()
	return ok && current == sess
}

// Release removes the session that owns st. Meant for teardown running inside Do.
func (r *Registry) Release(st *State) bool {
	if st.session == nil {
		return false
	}
	return r.RemoveSession(st.session)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// GuildIDs lists the guilds with a live session.
func (r *Registry) GuildIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Close closes every session and waits for their goroutines to exit.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		sessions = append(sessions, sess)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	for _, sess := range sessions {
		sess.Wait()
	}
}
