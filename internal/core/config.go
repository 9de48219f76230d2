package core

import (
	"time"

	"github.com/PurpleQuas4r/Sthashior/internal/i18n"
)

const (
	// DefaultCommandPrefix is the prefix that marks a chat message as a bot command
	DefaultCommandPrefix = "#"
	// DefaultIdleGraceSecs is how long an empty voice channel is tolerated before disconnecting
	DefaultIdleGraceSecs = 300
	// DefaultMaxPlaylistTracks caps playlist and album expansion
	DefaultMaxPlaylistTracks = 20
	// DefaultProviderTimeoutSecs bounds a single provider call inside the resolver cascade
	DefaultProviderTimeoutSecs = 15
	// DefaultResolveBudgetSecs bounds a whole resolve call
	DefaultResolveBudgetSecs = 45
	// DefaultResolveCacheSize is the number of resolved queries kept in memory
	DefaultResolveCacheSize = 512
	// DefaultResolveCacheTTLMins is how long a resolved query stays cached
	DefaultResolveCacheTTLMins = 30
	// DefaultFloodLimitPerMinute is the number of commands a user may send per minute
	DefaultFloodLimitPerMinute = 10
	// DefaultFloodCooldownSecs is how long a flooding user is ignored
	DefaultFloodCooldownSecs = 60
	// DefaultServerPort is the HTTP port for health and metrics
	DefaultServerPort = 8080
	// DefaultLavalinkPort is the default audio node port
	DefaultLavalinkPort = 2333
	// DefaultLavalinkRequestsPerSec paces REST calls to the audio node
	DefaultLavalinkRequestsPerSec = 20
)

type Config struct {
	Discord  DiscordConfig
	Lavalink LavalinkConfig
	Spotify  SpotifyConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type DiscordConfig struct {
	Token         string
	CommandPrefix string
}

type LavalinkConfig struct {
	Host           string
	Port           int
	Password       string
	Secure         bool
	RequestsPerSec int
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// Enabled reports whether Spotify link expansion can be used.
func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language            string
	IdleGraceSecs       int
	MaxPlaylistTracks   int
	ProviderTimeoutSecs int
	ResolveBudgetSecs   int
	ResolveCacheSize    int
	ResolveCacheTTLMins int
	FloodLimitPerMinute int
	FloodCooldownSecs   int
}

// IdleGrace returns the idle disconnect grace period.
func (c AppConfig) IdleGrace() time.Duration {
	return time.Duration(c.IdleGraceSecs) * time.Second
}

// ProviderTimeout returns the per-provider call timeout.
func (c AppConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSecs) * time.Second
}

// ResolveBudget returns the overall resolve deadline.
func (c AppConfig) ResolveBudget() time.Duration {
	return time.Duration(c.ResolveBudgetSecs) * time.Second
}

// ResolveCacheTTL returns how long resolved queries are cached.
func (c AppConfig) ResolveCacheTTL() time.Duration {
	return time.Duration(c.ResolveCacheTTLMins) * time.Minute
}

func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			CommandPrefix: DefaultCommandPrefix,
		},
		Lavalink: LavalinkConfig{
			Host:           "localhost",
			Port:           DefaultLavalinkPort,
			Password:       "youshallnotpass",
			RequestsPerSec: DefaultLavalinkRequestsPerSec,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language:            i18n.DefaultLanguage,
			IdleGraceSecs:       DefaultIdleGraceSecs,
			MaxPlaylistTracks:   DefaultMaxPlaylistTracks,
			ProviderTimeoutSecs: DefaultProviderTimeoutSecs,
			ResolveBudgetSecs:   DefaultResolveBudgetSecs,
			ResolveCacheSize:    DefaultResolveCacheSize,
			ResolveCacheTTLMins: DefaultResolveCacheTTLMins,
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
			FloodCooldownSecs:   DefaultFloodCooldownSecs,
		},
	}
}
