// Package discord connects the command dispatcher and the audio backend to a Discord gateway session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/chat"
	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/internal/i18n"
	"github.com/PurpleQuas4r/Sthashior/internal/player"
)

const (
	intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent

	// commandTimeout covers a full resolve plus a voice join.
	commandTimeout    = 90 * time.Second
	voiceEventTimeout = 5 * time.Second
	readyTimeout      = 30 * time.Second
)

// ErrNotReady is returned by Open when the gateway never sent Ready.
var ErrNotReady = errors.New("discord gateway did not become ready")

// VoiceForwarder receives the raw voice events the audio node needs.
type VoiceForwarder interface {
	OnVoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string)
	OnVoiceServerUpdate(ctx context.Context, guildID, token, endpoint string)
}

// VoiceEvents reacts to occupancy changes and to the bot being moved or kicked.
type VoiceEvents interface {
	HandleListenerMoved(guildID, beforeChannelID, afterChannelID string)
	HandleBotVoiceState(guildID, channelID string)
}

// gateway is the part of *discordgo.Session the frontend calls.
type gateway interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

type binding struct {
	dispatcher *chat.Dispatcher
	voice      VoiceForwarder
	events     VoiceEvents
}

// Frontend is the Discord side of the bot. Until Bind is called it tracks
// gateway state but ignores commands and voice events.
type Frontend struct {
	config   *core.DiscordConfig
	session  *discordgo.Session
	state    *discordgo.State
	gateway  gateway
	renderer *chat.Renderer
	logger   *zap.Logger

	bound atomic.Pointer[binding]
	ready chan struct{}
	once  sync.Once

	mu     sync.RWMutex
	userID string
	// replyChannels remembers the last text channel a command came from, per guild.
	replyChannels map[string]string
}

func NewFrontend(config *core.DiscordConfig, language string, logger *zap.Logger) (*Frontend, error) {
	if language == "" {
		language = i18n.DefaultLanguage
	}

	s, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = intents

	f := newFrontend(config, s.State, s, chat.NewRenderer(i18n.NewLocalizer(language), config.CommandPrefix), logger)
	f.session = s

	s.AddHandler(f.onReady)
	s.AddHandler(f.onMessageCreate)
	s.AddHandler(f.onVoiceStateUpdate)
	s.AddHandler(f.onVoiceServerUpdate)
	return f, nil
}

func newFrontend(config *core.DiscordConfig, state *discordgo.State, gw gateway, renderer *chat.Renderer, logger *zap.Logger) *Frontend {
	return &Frontend{
		config:        config,
		state:         state,
		gateway:       gw,
		renderer:      renderer,
		logger:        logger,
		ready:         make(chan struct{}),
		replyChannels: make(map[string]string),
	}
}

// Open connects to the gateway and waits for Ready so the bot user id is known.
func (f *Frontend) Open(ctx context.Context) error {
	f.logger.Info("Connecting to Discord gateway")
	if err := f.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	select {
	case <-f.ready:
		f.logger.Info("Discord frontend ready", zap.String("userID", f.UserID()))
		return nil
	case <-ctx.Done():
		_ = f.session.Close()
		return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

// Bind installs the command and voice event consumers.
func (f *Frontend) Bind(dispatcher *chat.Dispatcher, voice VoiceForwarder, events VoiceEvents) {
	f.bound.Store(&binding{dispatcher: dispatcher, voice: voice, events: events})
}

// Close stops event delivery and closes the gateway connection.
func (f *Frontend) Close() error {
	f.bound.Store(nil)
	if f.session == nil {
		return nil
	}
	if err := f.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}
	return nil
}

// UserID returns the bot's own user id once the gateway is ready.
func (f *Frontend) UserID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.userID
}

func (f *Frontend) setUserID(id string) {
	f.mu.Lock()
	f.userID = id
	f.mu.Unlock()
	f.once.Do(func() { close(f.ready) })
}

func (f *Frontend) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	f.logger.Debug("Gateway ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))
	f.setUserID(r.User.ID)
}

func (f *Frontend) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	f.handleMessage(m)
}

func (f *Frontend) handleMessage(m *discordgo.MessageCreate) {
	msg, ok := toMessage(m)
	if !ok {
		return
	}
	b := f.bound.Load()
	if b == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply, ok := b.dispatcher.Handle(ctx, msg)
	if !ok {
		return
	}
	f.rememberChannel(msg.GuildID, msg.ChannelID)
	f.send(msg.ChannelID, f.renderer.Render(reply))
}

// toMessage normalizes a guild message from a human. Direct messages and bots are ignored.
func toMessage(m *discordgo.MessageCreate) (*chat.Message, bool) {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return nil, false
	}
	return &chat.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Mention:   m.Author.Mention(),
		Text:      m.Content,
	}, true
}

func (f *Frontend) rememberChannel(guildID, channelID string) {
	f.mu.Lock()
	f.replyChannels[guildID] = channelID
	f.mu.Unlock()
}

// Notify posts an unsolicited result to the guild's last command channel.
func (f *Frontend) Notify(guildID string, res player.Result) {
	f.mu.RLock()
	channelID, ok := f.replyChannels[guildID]
	f.mu.RUnlock()
	if !ok {
		f.logger.Debug("No channel to notify", zap.String("guildID", guildID), zap.String("key", res.Key))
		return
	}
	f.send(channelID, f.renderer.Render(chat.Reply{Result: res}))
}

func (f *Frontend) send(channelID string, card chat.Card) {
	data := messageFor(card)
	if data == nil {
		return
	}
	if _, err := f.gateway.ChannelMessageSendComplex(channelID, data); err != nil {
		f.logger.Warn("Failed to send message",
			zap.String("channelID", channelID),
			zap.Error(err))
	}
}

// messageFor turns a card into an embed, or plain content when it has no title.
func messageFor(card chat.Card) *discordgo.MessageSend {
	if card.Title == "" {
		if card.Description == "" {
			return nil
		}
		return &discordgo.MessageSend{Content: card.Description}
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       card.Title,
			Description: card.Description,
			Color:       card.Color,
		}},
	}
}

func (f *Frontend) onVoiceStateUpdate(_ *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	f.handleVoiceState(v)
}

func (f *Frontend) handleVoiceState(v *discordgo.VoiceStateUpdate) {
	if v == nil || v.VoiceState == nil {
		return
	}
	b := f.bound.Load()
	if b == nil {
		return
	}

	if v.UserID == f.UserID() {
		ctx, cancel := context.WithTimeout(context.Background(), voiceEventTimeout)
		b.voice.OnVoiceStateUpdate(ctx, v.GuildID, v.ChannelID, v.SessionID)
		cancel()
		b.events.HandleBotVoiceState(v.GuildID, v.ChannelID)
		return
	}

	before := ""
	if v.BeforeUpdate != nil {
		before = v.BeforeUpdate.ChannelID
	}
	if before == v.ChannelID {
		return
	}
	b.events.HandleListenerMoved(v.GuildID, before, v.ChannelID)
}

func (f *Frontend) onVoiceServerUpdate(_ *discordgo.Session, v *discordgo.VoiceServerUpdate) {
	b := f.bound.Load()
	if b == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), voiceEventTimeout)
	defer cancel()
	b.voice.OnVoiceServerUpdate(ctx, v.GuildID, v.Token, v.Endpoint)
}

// JoinVoice asks the gateway to put the bot in a voice channel. The bot joins deafened.
func (f *Frontend) JoinVoice(guildID, channelID string) error {
	if err := f.gateway.ChannelVoiceJoinManual(guildID, channelID, false, true); err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}
	return nil
}

// LeaveVoice removes the bot from the guild's voice channel.
func (f *Frontend) LeaveVoice(guildID string) error {
	if err := f.gateway.ChannelVoiceJoinManual(guildID, "", false, true); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// UserVoiceChannel returns the voice channel a member is connected to.
func (f *Frontend) UserVoiceChannel(guildID, userID string) (string, bool) {
	vs, err := f.state.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// ListenerCount counts the humans in a voice channel. The bot itself and other
// bots are not listeners; members missing from the cache are counted.
func (f *Frontend) ListenerCount(guildID, channelID string) int {
	guild, err := f.state.Guild(guildID)
	if err != nil {
		return 0
	}

	f.state.RLock()
	states := make([]discordgo.VoiceState, 0, len(guild.VoiceStates))
	for _, vs := range guild.VoiceStates {
		if vs != nil && vs.ChannelID == channelID {
			states = append(states, *vs)
		}
	}
	f.state.RUnlock()

	self := f.UserID()
	count := 0
	for i := range states {
		if states[i].UserID == self || f.isBot(guildID, &states[i]) {
			continue
		}
		count++
	}
	return count
}

func (f *Frontend) isBot(guildID string, vs *discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	member, err := f.state.Member(guildID, vs.UserID)
	if err != nil || member.User == nil {
		return false
	}
	return member.User.Bot
}
