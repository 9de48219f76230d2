// Package main provides the Sthashior CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/PurpleQuas4r/Sthashior/internal/chat"
	"github.com/PurpleQuas4r/Sthashior/internal/chat/discord"
	"github.com/PurpleQuas4r/Sthashior/internal/core"
	"github.com/PurpleQuas4r/Sthashior/internal/flood"
	httpserver "github.com/PurpleQuas4r/Sthashior/internal/http"
	"github.com/PurpleQuas4r/Sthashior/internal/i18n"
	"github.com/PurpleQuas4r/Sthashior/internal/lavalink"
	"github.com/PurpleQuas4r/Sthashior/internal/lyrics"
	"github.com/PurpleQuas4r/Sthashior/internal/player"
	"github.com/PurpleQuas4r/Sthashior/internal/resolver"
	"github.com/PurpleQuas4r/Sthashior/internal/session"
	"github.com/PurpleQuas4r/Sthashior/internal/spotify"
	"github.com/PurpleQuas4r/Sthashior/internal/store"
)

const (
	envPrefix          = "STHASHIOR"
	shutdownTimeout    = 15 * time.Second
	cacheFalsePositive = 0.01
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sthashior",
	Short: "Sthashior - Discord music bot",
	Long: `Sthashior is a Discord music bot. It resolves chat requests into playable tracks,
keeps a queue per server and streams audio through a Lavalink node.`,
	RunE: runSthashior,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log format (json, text)")
	flags.String("discord-token", "", "Discord bot token")
	flags.String("command-prefix", defaults.Discord.CommandPrefix, "Prefix that marks a chat message as a command")
	flags.String("lavalink-host", defaults.Lavalink.Host, "Lavalink node host")
	flags.Int("lavalink-port", defaults.Lavalink.Port, "Lavalink node port")
	flags.String("lavalink-password", defaults.Lavalink.Password, "Lavalink node password")
	flags.Bool("lavalink-secure", false, "Use TLS for the Lavalink node")
	flags.Int("lavalink-requests-per-sec", defaults.Lavalink.RequestsPerSec, "Maximum REST calls per second to the Lavalink node")
	flags.String("spotify-client-id", "", "Spotify client ID (enables Spotify link expansion)")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Bot language (%s)", supportedLangs))
	flags.Int("idle-grace-secs", defaults.App.IdleGraceSecs, "Seconds an empty voice channel is tolerated before leaving")
	flags.Int("max-playlist-tracks", defaults.App.MaxPlaylistTracks, "Maximum tracks taken from a playlist or album")
	flags.Int("provider-timeout-secs", defaults.App.ProviderTimeoutSecs, "Timeout for one search provider call")
	flags.Int("resolve-budget-secs", defaults.App.ResolveBudgetSecs, "Timeout for resolving one play request")
	flags.Int("resolve-cache-size", defaults.App.ResolveCacheSize, "Number of resolved queries kept in memory")
	flags.Int("resolve-cache-ttl-mins", defaults.App.ResolveCacheTTLMins, "Minutes a resolved query stays cached")
	flags.Int("flood-limit-per-minute", defaults.App.FloodLimitPerMinute, "Maximum commands per user per minute")
	flags.Int("flood-cooldown-secs", defaults.App.FloodCooldownSecs, "Seconds a flooding user is ignored")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// a missing .env is fine
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureDiscord(cfg)
	configureLavalink(cfg)
	configureSpotify(cfg)
	configureServer(cfg)
	configureApp(cfg)

	return cfg
}

func configureDiscord(cfg *core.Config) {
	cfg.Discord.Token = viper.GetString("discord-token")
	cfg.Discord.CommandPrefix = strings.TrimSpace(viper.GetString("command-prefix"))
	if cfg.Discord.CommandPrefix == "" {
		cfg.Discord.CommandPrefix = core.DefaultCommandPrefix
	}
}

func configureLavalink(cfg *core.Config) {
	cfg.Lavalink.Host = viper.GetString("lavalink-host")
	cfg.Lavalink.Port = viper.GetInt("lavalink-port")
	cfg.Lavalink.Password = viper.GetString("lavalink-password")
	cfg.Lavalink.Secure = viper.GetBool("lavalink-secure")
	cfg.Lavalink.RequestsPerSec = viper.GetInt("lavalink-requests-per-sec")
	if cfg.Lavalink.RequestsPerSec <= 0 {
		cfg.Lavalink.RequestsPerSec = core.DefaultLavalinkRequestsPerSec
	}
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func configureApp(cfg *core.Config) {
	requested := viper.GetString("language")
	cfg.App.Language = i18n.Match(requested)
	if requested != "" && !strings.HasPrefix(strings.ToLower(requested), cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			requested, cfg.App.Language, strings.Join(i18n.GetSupportedLanguages(), ", "))
	}

	cfg.App.IdleGraceSecs = positiveOr(viper.GetInt("idle-grace-secs"), core.DefaultIdleGraceSecs)
	cfg.App.MaxPlaylistTracks = positiveOr(viper.GetInt("max-playlist-tracks"), core.DefaultMaxPlaylistTracks)
	cfg.App.ProviderTimeoutSecs = positiveOr(viper.GetInt("provider-timeout-secs"), core.DefaultProviderTimeoutSecs)
	cfg.App.ResolveBudgetSecs = positiveOr(viper.GetInt("resolve-budget-secs"), core.DefaultResolveBudgetSecs)
	cfg.App.ResolveCacheSize = positiveOr(viper.GetInt("resolve-cache-size"), core.DefaultResolveCacheSize)
	cfg.App.ResolveCacheTTLMins = positiveOr(viper.GetInt("resolve-cache-ttl-mins"), core.DefaultResolveCacheTTLMins)
	cfg.App.FloodLimitPerMinute = positiveOr(viper.GetInt("flood-limit-per-minute"), core.DefaultFloodLimitPerMinute)
	cfg.App.FloodCooldownSecs = positiveOr(viper.GetInt("flood-cooldown-secs"), core.DefaultFloodCooldownSecs)
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		fmt.Fprintf(os.Stderr, "Warning: Invalid value (%d), using default (%d)\n", value, fallback)
		return fallback
	}
	return value
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "text") {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runSthashior(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Sthashior",
		zap.String("lavalink", fmt.Sprintf("%s:%d", config.Lavalink.Host, config.Lavalink.Port)),
		zap.String("language", config.App.Language),
		zap.String("prefix", config.Discord.CommandPrefix),
		zap.Bool("spotify_enabled", config.Spotify.Enabled()))

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	return runServices(ctx, svcs)
}

type services struct {
	frontend   *discord.Frontend
	node       *lavalink.Node
	controller *player.Controller
	httpServer *httpserver.Server
	floodgate  *flood.Floodgate
}

func initializeServices(ctx context.Context) (*services, error) {
	metrics := httpserver.NewMetrics()

	frontend, err := discord.NewFrontend(&config.Discord, config.App.Language, logger.Named("discord"))
	if err != nil {
		return nil, err
	}
	if openErr := frontend.Open(ctx); openErr != nil {
		return nil, openErr
	}

	node := lavalink.NewNode(&config.Lavalink, frontend.UserID(), logger.Named("lavalink"))
	rest := lavalink.NewRESTClient(&config.Lavalink, logger.Named("lavalink-rest"))
	backend := lavalink.NewBackend(rest, node, frontend, logger.Named("backend"))

	links := core.NewMusicLinkAdapter()
	opts := []resolver.Option{
		resolver.WithCache(store.NewResolveCache(config.App.ResolveCacheSize, config.App.ResolveCacheTTL(), cacheFalsePositive)),
		resolver.WithMusicLinks(links),
		resolver.WithTitleLookup(links),
		resolver.WithObserver(metrics),
	}
	if config.Spotify.Enabled() {
		spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
		if authErr := spotifyClient.Authenticate(ctx); authErr != nil {
			// links fall back to page titles without catalog access
			logger.Warn("Spotify authentication failed, link expansion disabled", zap.Error(authErr))
		} else {
			opts = append(opts, resolver.WithCatalog(spotifyClient))
		}
	}
	tracks := resolver.New(backend, &config.App, logger.Named("resolver"), opts...)

	finder := lyrics.New(logger.Named("lyrics"), lyrics.WithTitleLookup(links))
	controller := player.New(session.NewRegistry(logger.Named("session")), backend, tracks, frontend, &config.App,
		logger.Named("player"),
		player.WithLyrics(finder),
		player.WithRecorder(metrics))
	controller.SetNotifier(frontend)
	node.SetTrackEndHandler(controller.HandleTrackEnd)

	floodgate := flood.New(config.App.FloodLimitPerMinute, time.Duration(config.App.FloodCooldownSecs)*time.Second)
	dispatcher := chat.NewDispatcher(config.Discord.CommandPrefix, floodgate, controller, metrics, logger.Named("dispatcher"))
	frontend.Bind(dispatcher, backend, controller)

	httpServer := httpserver.NewServer(&config.Server, metrics, node.Ready, logger.Named("http"))

	return &services{
		frontend:   frontend,
		node:       node,
		controller: controller,
		httpServer: httpServer,
		floodgate:  floodgate,
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	// the node outlives gCtx so players can still be destroyed during shutdown
	nodeCtx, stopNode := context.WithCancel(context.Background())
	defer stopNode()

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.node.Run(nodeCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdown(svcs)
		stopNode()
		return nil
	})

	logger.Info("Sthashior started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)),
		zap.String("userID", svcs.frontend.UserID()))

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Sthashior stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Sthashior stopped gracefully")
	return nil
}

// shutdown stops taking commands, then destroys every player and stops the session goroutines.
func shutdown(svcs *services) {
	if err := svcs.frontend.Close(); err != nil {
		logger.Debug("Failed to close discord session", zap.Error(err))
	}
	svcs.floodgate.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	svcs.controller.Shutdown(ctx)
}

func validateConfig(cfg *core.Config) error {
	if cfg.Discord.Token == "" {
		return errors.New("discord bot token is required")
	}
	if cfg.Lavalink.Host == "" {
		return errors.New("lavalink host is required")
	}
	if cfg.Lavalink.Port <= 0 || cfg.Lavalink.Port > 65535 {
		return fmt.Errorf("invalid lavalink port: %d", cfg.Lavalink.Port)
	}
	if (cfg.Spotify.ClientID == "") != (cfg.Spotify.ClientSecret == "") {
		return errors.New("spotify client ID and secret must be set together")
	}
	return nil
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# Sthashior Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: STHASHIOR_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	writeSection(&content, cmd, "Discord (Required)", []envEntry{
		{flag: "discord-token", example: "your_bot_token_here", comment: "Bot token from the Discord developer portal"},
		{flag: "command-prefix", comment: "Command prefix"},
	})
	writeSection(&content, cmd, "Lavalink audio node (Required)", []envEntry{
		{flag: "lavalink-host", comment: "Node host"},
		{flag: "lavalink-port", comment: "Node port"},
		{flag: "lavalink-password", comment: "Node password"},
		{flag: "lavalink-secure", comment: "Use wss/https"},
		{flag: "lavalink-requests-per-sec", comment: "REST calls per second"},
	})
	writeSection(&content, cmd, "Spotify (Optional - expands Spotify links into searches)", []envEntry{
		{flag: "spotify-client-id", example: "your_spotify_client_id_here", comment: "Spotify app client ID"},
		{flag: "spotify-client-secret", example: "your_spotify_client_secret_here", comment: "Spotify app client secret"},
	})
	writeSection(&content, cmd, "Playback", []envEntry{
		{flag: "language", comment: "Bot language: " + strings.Join(i18n.GetSupportedLanguages(), ", ")},
		{flag: "idle-grace-secs", comment: "Leave after the voice channel stays empty this long"},
		{flag: "max-playlist-tracks", comment: "Tracks taken from one playlist or album"},
		{flag: "provider-timeout-secs", comment: "Timeout for one search provider"},
		{flag: "resolve-budget-secs", comment: "Timeout for one play request"},
		{flag: "resolve-cache-size", comment: "Cached queries"},
		{flag: "resolve-cache-ttl-mins", comment: "Cache lifetime in minutes"},
	})
	writeSection(&content, cmd, "Flood Prevention", []envEntry{
		{flag: "flood-limit-per-minute", comment: "Max commands per user per minute"},
		{flag: "flood-cooldown-secs", comment: "Cooldown for flooding users"},
	})
	writeSection(&content, cmd, "HTTP Server (health and metrics)", []envEntry{
		{flag: "server-host", comment: "Server bind address"},
		{flag: "server-port", comment: "Server port"},
	})
	writeSection(&content, cmd, "Logging", []envEntry{
		{flag: "log-level", comment: "debug, info, warn, error"},
		{flag: "log-format", comment: "json, text"},
	})

	return content.String()
}

type envEntry struct {
	flag    string
	example string
	comment string
}

func writeSection(content *strings.Builder, cmd *cobra.Command, title string, entries []envEntry) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")

	for _, e := range entries {
		def := getDefaultValueString(cmd, e.flag)
		value := e.example
		if value == "" {
			value = def
		}
		fmt.Fprintf(content, "%s=%s  # %s", flagToEnvVar(e.flag), value, e.comment)
		if def != "" {
			fmt.Fprintf(content, " (default: %s)", def)
		}
		content.WriteString("\n")
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}
