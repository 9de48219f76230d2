package lavalink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

const (
	clientName        = "Sthashior/1.0"
	handshakeTimeout  = 10 * time.Second
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second
	closeWriteTimeout = time.Second
)

// TrackEndHandler receives track ends that should advance a guild's session.
// It is called from the websocket read loop and must not block.
type TrackEndHandler func(guildID string, track core.Track, reason string)

// Node keeps the websocket session with a Lavalink node alive and dispatches its events.
type Node struct {
	url      string
	password string
	userID   string
	dialer   *websocket.Dialer
	logger   *zap.Logger

	mu         sync.RWMutex
	sessionID  string
	onTrackEnd TrackEndHandler
}

func NewNode(config *core.LavalinkConfig, userID string, logger *zap.Logger) *Node {
	scheme := "ws"
	if config.Secure {
		scheme = "wss"
	}
	wsURL := fmt.Sprintf("%s://%s:%d/v4/websocket", scheme, config.Host, config.Port)
	return newNode(wsURL, config.Password, userID, logger)
}

func newNode(wsURL, password, userID string, logger *zap.Logger) *Node {
	return &Node{
		url:      wsURL,
		password: password,
		userID:   userID,
		dialer:   &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		logger:   logger,
	}
}

// SetTrackEndHandler installs the callback for advancing track ends.
func (n *Node) SetTrackEndHandler(handler TrackEndHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onTrackEnd = handler
}

// SessionID returns the node session id, empty until the node sent ready.
func (n *Node) SessionID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sessionID
}

// Ready reports whether the node accepted the connection and can take player updates.
func (n *Node) Ready() bool {
	return n.SessionID() != ""
}

// Run connects to the node and reconnects with backoff until ctx is cancelled.
func (n *Node) Run(ctx context.Context) error {
	delay := minReconnectDelay
	for {
		connected, err := n.connectAndRead(ctx)
		if ctx.Err() != nil {
			n.logger.Info("Lavalink node connection closed")
			return nil
		}
		if connected {
			delay = minReconnectDelay
		}

		n.logger.Warn("Lavalink node connection lost, reconnecting",
			zap.Error(err),
			zap.Duration("retryIn", delay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (n *Node) headers() http.Header {
	headers := http.Header{}
	headers.Set("Authorization", n.password)
	headers.Set("User-Id", n.userID)
	headers.Set("Client-Name", clientName)
	return headers
}

func (n *Node) connectAndRead(ctx context.Context) (bool, error) {
	conn, resp, err := n.dialer.DialContext(ctx, n.url, n.headers())
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("dial %s: status %d: %w", n.url, resp.StatusCode, err)
		}
		return false, fmt.Errorf("dial %s: %w", n.url, err)
	}
	n.logger.Info("Connected to Lavalink node", zap.String("url", n.url))

	done := make(chan struct{})
	defer close(done)
	defer n.setSessionID("")
	defer func() { _ = conn.Close() }()

	go func() {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		n.handleMessage(data)
	}
}

func (n *Node) setSessionID(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessionID = id
}

func (n *Node) handleMessage(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		n.logger.Debug("Ignoring malformed node message", zap.Error(err))
		return
	}

	switch msg.Op {
	case "ready":
		n.setSessionID(msg.SessionID)
		n.logger.Info("Lavalink node ready",
			zap.String("sessionID", msg.SessionID),
			zap.Bool("resumed", msg.Resumed))
	case "playerUpdate":
		if msg.State != nil && !msg.State.Connected {
			n.logger.Debug("Player not connected to voice", zap.String("guildID", msg.GuildID))
		}
	case "stats":
		n.logger.Debug("Lavalink node stats",
			zap.Int("players", msg.Players),
			zap.Int("playingPlayers", msg.PlayingPlayers))
	case "event":
		n.handleEvent(&msg)
	}
}

func (n *Node) handleEvent(msg *message) {
	logger := n.logger.With(zap.String("guildID", msg.GuildID))

	switch msg.Type {
	case "TrackStartEvent":
		if msg.Track != nil {
			logger.Debug("Track started", zap.String("title", msg.Track.Info.Title))
		}
	case "TrackEndEvent":
		if !advances(msg.Reason) {
			logger.Debug("Ignoring track end", zap.String("reason", msg.Reason))
			return
		}
		n.mu.RLock()
		handler := n.onTrackEnd
		n.mu.RUnlock()
		if handler == nil {
			return
		}
		var track core.Track
		if msg.Track != nil {
			track = msg.Track.toCore()
		}
		handler(msg.GuildID, track, msg.Reason)
	case "TrackExceptionEvent":
		if msg.Exception != nil {
			logger.Warn("Track exception",
				zap.String("message", msg.Exception.Message),
				zap.String("severity", msg.Exception.Severity))
		}
	case "TrackStuckEvent":
		logger.Warn("Track stuck", zap.Int64("thresholdMs", msg.Threshold))
	case "WebSocketClosedEvent":
		logger.Warn("Voice websocket closed",
			zap.Int("code", msg.Code),
			zap.String("reason", msg.Reason),
			zap.Bool("byRemote", msg.ByRemote))
	}
}
