// Package session holds per-guild playback state. Every Session owns one goroutine
// that runs all reads and writes of its State in arrival order.
package session

import (
	"context"
	"errors"
	"sync"
)

const mailboxSize = 64

// ErrClosed is returned when work is sent to a session that was removed.
var ErrClosed = errors.New("session closed")

type Session struct {
	guildID string
	mailbox chan func()
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once

	state State
}

func newSession(guildID string) *Session {
	s := &Session{
		guildID: guildID,
		mailbox: make(chan func(), mailboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.state.guildID = guildID
	s.state.session = s
	go s.run()
	return s
}

func (s *Session) GuildID() string {
	return s.guildID
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.mailbox:
			fn()
		case <-s.quit:
			s.drain()
			s.state.CancelIdle()
			return
		}
	}
}

// drain runs the work queued before Close.
func (s *Session) drain() {
	for {
		select {
		case fn := <-s.mailbox:
			fn()
		default:
			return
		}
	}
}

// Do runs fn on the session goroutine and waits for it to finish.
// fn must not call Do on the same session.
func (s *Session) Do(ctx context.Context, fn func(st *State)) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn(&s.state)
	}

	select {
	case s.mailbox <- task:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Post queues fn without waiting. It never blocks the caller and reports false
// once the session is closed.
func (s *Session) Post(fn func(st *State)) bool {
	task := func() { fn(&s.state) }

	select {
	case <-s.quit:
		return false
	default:
	}

	select {
	case s.mailbox <- task:
	case <-s.quit:
		return false
	default:
		go func() {
			select {
			case s.mailbox <- task:
			case <-s.quit:
			}
		}()
	}
	return true
}

// Close stops the session goroutine after the work already queued. It does not
// wait, so it is safe to call from inside Do.
func (s *Session) Close() {
	s.once.Do(func() { close(s.quit) })
}

// Wait blocks until the session goroutine exited.
func (s *Session) Wait() {
	<-s.done
}

func (s *Session) Closed() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}
