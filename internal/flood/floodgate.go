// Package flood provides per-user command flood prevention with a cooldown penalty.
package flood

import (
	"sync"
	"time"
)

const (
	// windowDuration is the fixed time window for flood detection (always 1 minute)
	windowDuration = 60 * time.Second
	// cleanupInterval is how often we clean up expired entries
	cleanupInterval = 10 * time.Minute
	// idleTimeout is how long before we remove idle user entries
	idleTimeout = 10 * time.Minute
)

// Floodgate provides per-user, per-guild flood prevention with sliding window rate limiting.
// A user who goes over the limit is put on cooldown and every command is dropped until it ends.
type Floodgate struct {
	limitPerMinute int
	cooldown       time.Duration
	entries        map[string]*userEntry // Key: "guildID:userID"
	mutex          sync.Mutex
	stopCleanup    chan struct{}
	stopOnce       sync.Once
	now            func() time.Time
}

type userEntry struct {
	timestamps    []time.Time
	lastSeen      time.Time
	cooldownUntil time.Time
	warned        bool
}

// Verdict is the outcome of checking one command.
type Verdict struct {
	Allowed bool
	// Warn is set on the first dropped command of a cooldown so the caller can notify the user once.
	Warn bool
	// Remaining is how long the cooldown still lasts.
	Remaining time.Duration
}

// New creates a new Floodgate. The time window is fixed at 60 seconds.
func New(limitPerMinute int, cooldown time.Duration) *Floodgate {
	fg := &Floodgate{
		limitPerMinute: limitPerMinute,
		cooldown:       cooldown,
		entries:        make(map[string]*userEntry),
		stopCleanup:    make(chan struct{}),
		now:            time.Now,
	}

	go fg.cleanup()

	return fg
}

// Stop stops the background cleanup goroutine
func (fg *Floodgate) Stop() {
	fg.stopOnce.Do(func() { close(fg.stopCleanup) })
}

// Check records a command from userID in guildID and reports whether it may run.
func (fg *Floodgate) Check(guildID, userID string) Verdict {
	key := guildID + ":" + userID
	now := fg.now()

	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	entry, exists := fg.entries[key]
	if !exists {
		entry = &userEntry{
			timestamps: make([]time.Time, 0, fg.limitPerMinute+1),
		}
		fg.entries[key] = entry
	}
	entry.lastSeen = now

	if now.Before(entry.cooldownUntil) {
		v := Verdict{Warn: !entry.warned, Remaining: entry.cooldownUntil.Sub(now)}
		entry.warned = true
		return v
	}

	windowStart := now.Add(-windowDuration)
	validTimestamps := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			validTimestamps = append(validTimestamps, ts)
		}
	}
	entry.timestamps = validTimestamps

	if len(entry.timestamps) >= fg.limitPerMinute {
		entry.cooldownUntil = now.Add(fg.cooldown)
		entry.timestamps = entry.timestamps[:0]
		entry.warned = true
		return Verdict{Warn: true, Remaining: fg.cooldown}
	}

	entry.timestamps = append(entry.timestamps, now)
	entry.warned = false
	return Verdict{Allowed: true}
}

func (fg *Floodgate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fg.performCleanup()
		case <-fg.stopCleanup:
			return
		}
	}
}

// performCleanup removes entries that have been idle for too long and are not cooling down
func (fg *Floodgate) performCleanup() {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	now := fg.now()
	cutoff := now.Add(-idleTimeout)
	for key, entry := range fg.entries {
		if entry.lastSeen.Before(cutoff) && !now.Before(entry.cooldownUntil) {
			delete(fg.entries, key)
		}
	}
}

// GetStats returns statistics about the floodgate for monitoring/debugging
func (fg *Floodgate) GetStats() Stats {
	fg.mutex.Lock()
	defer fg.mutex.Unlock()

	now := fg.now()
	cooling := 0
	for _, entry := range fg.entries {
		if now.Before(entry.cooldownUntil) {
			cooling++
		}
	}

	return Stats{
		ActiveUsers:     len(fg.entries),
		CoolingDown:     cooling,
		LimitPerMinute:  fg.limitPerMinute,
		WindowSeconds:   int(windowDuration.Seconds()),
		CooldownSeconds: int(fg.cooldown.Seconds()),
	}
}

// Stats contains floodgate statistics
type Stats struct {
	ActiveUsers     int `json:"active_users"`
	CoolingDown     int `json:"cooling_down"`
	LimitPerMinute  int `json:"limit_per_minute"`
	WindowSeconds   int `json:"window_seconds"`
	CooldownSeconds int `json:"cooldown_seconds"`
}
