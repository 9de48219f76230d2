package lavalink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

const (
	defaultVoiceConnectTimeout = 10 * time.Second
	voiceUpdateTimeout         = 5 * time.Second
)

var (
	// ErrNodeNotReady is returned for player calls before the node sent ready.
	ErrNodeNotReady = errors.New("lavalink node not ready")
	// ErrVoiceTimeout is returned when Discord never delivered the voice server for a join.
	ErrVoiceTimeout = errors.New("timed out waiting for voice connection")
)

// VoiceGateway joins and leaves voice channels on the chat gateway.
type VoiceGateway interface {
	JoinVoice(guildID, channelID string) error
	LeaveVoice(guildID string) error
}

type playerAPI interface {
	LoadTracks(ctx context.Context, identifier string) (*core.LoadResult, error)
	UpdatePlayer(ctx context.Context, sessionID, guildID string, update PlayerUpdate) error
	DestroyPlayer(ctx context.Context, sessionID, guildID string) error
}

type sessionSource interface {
	SessionID() string
}

// voiceParts collects the two halves Discord sends after a voice join.
type voiceParts struct {
	sessionID string
	token     string
	endpoint  string
	connected bool
	signalled bool
	ready     chan struct{}
}

func (p *voiceParts) complete() bool {
	return p.sessionID != "" && p.token != "" && p.endpoint != ""
}

// Backend renders audio for guilds on a Lavalink node.
type Backend struct {
	rest           playerAPI
	node           sessionSource
	gateway        VoiceGateway
	logger         *zap.Logger
	connectTimeout time.Duration

	mu    sync.Mutex
	voice map[string]*voiceParts
}

func NewBackend(rest *RESTClient, node *Node, gateway VoiceGateway, logger *zap.Logger) *Backend {
	return newBackend(rest, node, gateway, logger)
}

func newBackend(rest playerAPI, node sessionSource, gateway VoiceGateway, logger *zap.Logger) *Backend {
	return &Backend{
		rest:           rest,
		node:           node,
		gateway:        gateway,
		logger:         logger,
		connectTimeout: defaultVoiceConnectTimeout,
		voice:          make(map[string]*voiceParts),
	}
}

// LoadTracks delegates to the node's track loader.
func (b *Backend) LoadTracks(ctx context.Context, identifier string) (*core.LoadResult, error) {
	return b.rest.LoadTracks(ctx, identifier)
}

// Connect joins a voice channel and waits until the node received the voice server.
// Moving an existing connection to another channel does not wait.
func (b *Backend) Connect(ctx context.Context, guildID, channelID string) error {
	if b.node.SessionID() == "" {
		return ErrNodeNotReady
	}

	b.mu.Lock()
	parts, ok := b.voice[guildID]
	if ok && parts.signalled {
		b.mu.Unlock()
		return b.gateway.JoinVoice(guildID, channelID)
	}
	parts = &voiceParts{ready: make(chan struct{})}
	b.voice[guildID] = parts
	b.mu.Unlock()

	if err := b.gateway.JoinVoice(guildID, channelID); err != nil {
		b.forget(guildID)
		return fmt.Errorf("join voice channel %s: %w", channelID, err)
	}

	timer := time.NewTimer(b.connectTimeout)
	defer timer.Stop()

	select {
	case <-parts.ready:
		b.logger.Info("Voice connection handed to node",
			zap.String("guildID", guildID),
			zap.String("channelID", channelID))
		return nil
	case <-timer.C:
		b.forget(guildID)
		return ErrVoiceTimeout
	case <-ctx.Done():
		b.forget(guildID)
		return ctx.Err()
	}
}

// OnVoiceStateUpdate records the bot's own voice session id.
// An empty channel means the bot left voice and the stored parts are dropped.
func (b *Backend) OnVoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string) {
	if channelID == "" {
		b.forget(guildID)
		return
	}

	b.mu.Lock()
	parts, ok := b.voice[guildID]
	if !ok {
		parts = &voiceParts{ready: make(chan struct{})}
		b.voice[guildID] = parts
	}
	parts.sessionID = sessionID
	b.mu.Unlock()

	b.flushVoice(ctx, guildID)
}

// OnVoiceServerUpdate records the voice server Discord assigned to the guild.
func (b *Backend) OnVoiceServerUpdate(ctx context.Context, guildID, token, endpoint string) {
	b.mu.Lock()
	parts, ok := b.voice[guildID]
	if !ok {
		parts = &voiceParts{ready: make(chan struct{})}
		b.voice[guildID] = parts
	}
	parts.token = token
	parts.endpoint = endpoint
	parts.connected = false
	b.mu.Unlock()

	b.flushVoice(ctx, guildID)
}

func (b *Backend) flushVoice(ctx context.Context, guildID string) {
	b.mu.Lock()
	parts, ok := b.voice[guildID]
	if !ok || !parts.complete() || parts.connected {
		b.mu.Unlock()
		return
	}
	state := VoiceState{Token: parts.token, Endpoint: parts.endpoint, SessionID: parts.sessionID}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, voiceUpdateTimeout)
	defer cancel()

	err := b.rest.UpdatePlayer(ctx, b.node.SessionID(), guildID, PlayerUpdate{Voice: &state})
	if err != nil {
		b.logger.Warn("Failed to forward voice state to node", zap.String("guildID", guildID), zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if current, ok := b.voice[guildID]; !ok || current != parts {
		return
	}
	parts.connected = true
	if !parts.signalled {
		parts.signalled = true
		close(parts.ready)
	}
}

func (b *Backend) forget(guildID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.voice, guildID)
}

// Play starts a track, replacing whatever the guild's player was doing.
func (b *Backend) Play(ctx context.Context, guildID string, track core.Track) error {
	sessionID, err := b.sessionID()
	if err != nil {
		return err
	}
	encoded := track.Encoded
	return b.rest.UpdatePlayer(ctx, sessionID, guildID, PlayerUpdate{
		Track:  &TrackUpdate{Encoded: &encoded},
		Paused: boolPtr(false),
	})
}

func (b *Backend) Pause(ctx context.Context, guildID string, paused bool) error {
	sessionID, err := b.sessionID()
	if err != nil {
		return err
	}
	return b.rest.UpdatePlayer(ctx, sessionID, guildID, PlayerUpdate{Paused: boolPtr(paused)})
}

// Stop clears the playing track; the node answers with a stopped track end.
func (b *Backend) Stop(ctx context.Context, guildID string) error {
	sessionID, err := b.sessionID()
	if err != nil {
		return err
	}
	return b.rest.UpdatePlayer(ctx, sessionID, guildID, PlayerUpdate{Track: &TrackUpdate{}})
}

// Disconnect destroys the player and leaves the voice channel.
func (b *Backend) Disconnect(ctx context.Context, guildID string) error {
	var errs []error
	if sessionID := b.node.SessionID(); sessionID != "" {
		if err := b.rest.DestroyPlayer(ctx, sessionID, guildID); err != nil {
			errs = append(errs, fmt.Errorf("destroy player: %w", err))
		}
	}
	if err := b.gateway.LeaveVoice(guildID); err != nil {
		errs = append(errs, fmt.Errorf("leave voice: %w", err))
	}
	b.forget(guildID)
	return errors.Join(errs...)
}

func (b *Backend) sessionID() (string, error) {
	id := b.node.SessionID()
	if id == "" {
		return "", ErrNodeNotReady
	}
	return id, nil
}
