// Package main provides the track source server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/osa030/tunechat/internal/api/httpapi"
	"github.com/osa030/tunechat/internal/app/filter"
	"github.com/osa030/tunechat/internal/app/queue"
	"github.com/osa030/tunechat/internal/app/retry"
	"github.com/osa030/tunechat/internal/app/source"
	"github.com/osa030/tunechat/internal/infra/config"
	"github.com/osa030/tunechat/internal/infra/hooks"
	"github.com/osa030/tunechat/internal/infra/logger"
	"github.com/osa030/tunechat/internal/infra/resolver"
	"github.com/osa030/tunechat/internal/infra/spotify"
)

var (
	app        = kingpin.New("tunechat-server", "tunechat track source server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	cfg, err := config.LoadServer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	closer, err := logger.Init(loggerConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()
	zlog.Info().Msgf("Loaded config from %s", *configPath)

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		closer.Close()
		os.Exit(1)
	}
}

// loggerConfig merges the config file's log section with command-line flags.
func loggerConfig(lc config.LogConfig) logger.Config {
	cfg := logger.Config{
		Output:     "stdout",
		Level:      lc.Level,
		File:       lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
		Compress:   lc.Compress,
	}
	if lc.File != "" {
		cfg.Output = "file"
	}
	if *verbose {
		cfg.Level = "debug"
	}
	if *logfile != "" {
		cfg.Output = "file"
		cfg.File = *logfile
	}
	return cfg
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.ServerConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	filterChain, err := filter.NewChainFromConfig(cfg.Filters)
	if err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	// Spotify is only needed when a provider uses it or for preview lookups.
	var spotifyClient source.SpotifyClient
	if cfg.Spotify.ClientID != "" && cfg.Spotify.ClientSecret != "" {
		sc, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
		if err := validatePlaylists(ctx, cfg, sc); err != nil {
			return fmt.Errorf("playlist validation failed: %w", err)
		}
		spotifyClient = sc
	}

	providers, err := source.NewProviderChainFromConfig(cfg, spotifyClient)
	if err != nil {
		return fmt.Errorf("failed to create providers: %w", err)
	}

	store, closeStore, err := newStore(ctx, cfg.Queue)
	if err != nil {
		return err
	}
	defer closeStore()

	var audioResolver queue.Resolver
	if config.BoolValue(cfg.Resolver.Enabled) {
		audioResolver = resolver.New(resolver.Config{
			Binary:       cfg.Resolver.Binary,
			Retries:      cfg.Resolver.Retries,
			RetryBackoff: cfg.Resolver.RetryBackoff(),
			Timeout:      cfg.Resolver.Timeout(),
		})
	} else {
		zlog.Info().Msg("Audio resolver disabled, tracks without audio will be skipped")
	}

	queueService := queue.NewService(store, providers, filterChain, audioResolver, cfg.Queue.BatchSize)
	api := httpapi.NewServer(queueService, cfg.Messages, cfg.Proxy, cfg.Queue.TTL())

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(api.Router(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	hooks.Default.Run(ctx, cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	hooks.Default.Run(context.Background(), cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// newStore creates the configured cursor store.
func newStore(ctx context.Context, qc config.QueueConfig) (queue.Store, func(), error) {
	switch qc.Store {
	case "redis":
		rs, err := queue.NewRedisStore(ctx, queue.RedisOptions{
			Addr:      qc.Redis.Addr,
			Password:  qc.Redis.Password,
			DB:        qc.Redis.DB,
			KeyPrefix: qc.Redis.KeyPrefix,
			TTL:       qc.TTL(),
		})
		if err != nil {
			return nil, nil, err
		}
		zlog.Info().Msgf("Using redis cursor store: addr=%s", qc.Redis.Addr)
		return rs, func() { _ = rs.Close() }, nil
	default:
		zlog.Info().Msg("Using in-memory cursor store")
		return queue.NewMemoryStore(qc.TTL()), func() {}, nil
	}
}

// printFilters prints available filters.
func printFilters() {
	registry := filter.GetRegistered()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Filters:")
	for _, name := range names {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validatePlaylists checks that configured Spotify playlists exist.
// It uses lightweight checks with retry to ride out transient errors during startup.
func validatePlaylists(ctx context.Context, cfg *config.ServerConfig, spotifyClient *spotify.Client) error {
	var errs []string

	for _, p := range cfg.Providers {
		if p.Type != "spotify_playlist" {
			continue
		}
		playlistURL, _ := p.Settings["playlist_url"].(string)
		if playlistURL == "" {
			continue
		}
		zlog.Info().Msgf("Validating playlist: provider=%s url=%s", p.DisplayName, playlistURL)

		policy := retry.Policy{
			MaxAttempts: 5,
			Backoff:     time.Second,
			OnRetry: func(attempt int, err error) {
				zlog.Warn().Msgf("Failed to validate playlist %s (attempt %d/5): %v", p.DisplayName, attempt, err)
			},
		}
		err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
			return spotifyClient.CheckPlaylistExists(ctx, playlistURL)
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s (%s): %v", p.DisplayName, playlistURL, err))
			continue
		}
		zlog.Info().Msgf("Playlist validated: provider=%s", p.DisplayName)
	}

	if len(errs) > 0 {
		return fmt.Errorf("playlist validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
