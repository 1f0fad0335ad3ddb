// Package main provides the headless player entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/tunechat/internal/api/connect"
	"github.com/osa030/tunechat/internal/app/notification"
	"github.com/osa030/tunechat/internal/app/playback"
	"github.com/osa030/tunechat/internal/infra/audio"
	"github.com/osa030/tunechat/internal/infra/config"
	"github.com/osa030/tunechat/internal/infra/hooks"
	"github.com/osa030/tunechat/internal/infra/logger"
	"github.com/osa030/tunechat/internal/infra/tracksource"
)

var (
	app        = kingpin.New("tunechat-player", "tunechat headless player")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.LoadPlayer(*configPath)
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
		zlog.Error().Msgf("Player error: %v", err)
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

// playbackConfig converts the config file's playback section.
func playbackConfig(cfg *config.PlayerConfig) playback.Config {
	pc := playback.DefaultConfig()
	pc.LoadRetries = cfg.Playback.LoadRetries
	pc.RetryBackoff = cfg.Playback.RetryBackoff()
	pc.ColdFetchDelay = cfg.Playback.ColdFetchDelay()
	pc.SkipDelay = cfg.Playback.SkipDelay()
	pc.FetchTimeout = cfg.Source.Timeout()
	pc.Prefetch = config.BoolValue(cfg.Playback.Prefetch)
	if cfg.Playback.InitialVolume != nil {
		pc.InitialVolume = *cfg.Playback.InitialVolume
	}
	return pc
}

// sinkFactory creates the configured audio output.
func sinkFactory(oc config.OutputConfig) audio.SinkFactory {
	if oc.Type == "command" {
		zlog.Info().Msgf("Audio output: command %v", oc.Command)
		return audio.CommandSinkFactory{Command: oc.Command}
	}
	zlog.Info().Msgf("Audio output: discard at %d bytes/s", oc.DiscardBytesPerSecond)
	return audio.DiscardSinkFactory{BytesPerSecond: oc.DiscardBytesPerSecond}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.PlayerConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := tracksource.New(tracksource.Config{
		BaseURL:    cfg.Source.BaseURL,
		Timeout:    cfg.Source.Timeout(),
		ListenerID: cfg.Source.ListenerID,
	})
	if err != nil {
		return fmt.Errorf("failed to create track source client: %w", err)
	}

	factory := audio.NewFactory(source, sinkFactory(cfg.Output))
	ctrl := playback.NewController(source, factory, playbackConfig(cfg))

	notificationMgr := notification.NewManager()
	go notificationMgr.Relay(ctx, ctrl.Events())

	done := make(chan struct{})
	svc := apiconnect.NewControlService(ctrl, notificationMgr, done)

	var handlerOpts []connect.HandlerOption
	if cfg.Control.Token != "" {
		handlerOpts = append(handlerOpts, connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.Control.Token)))
	} else {
		zlog.Warn().Msg("Control token is empty, control API is unauthenticated")
	}
	path, handler := apiconnect.NewControlServiceHandler(svc, handlerOpts...)

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Control.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting control server: addr=%s", cfg.Control.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	if config.BoolValue(cfg.Playback.AutoStart) {
		if err := ctrl.Start(); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
	}

	hooks.Default.Run(ctx, cfg.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		ctrl.Close()
		notificationMgr.Close()
		return fmt.Errorf("server error: %w", err)
	}

	// End event streams before shutting down so Shutdown does not wait on them.
	close(done)
	ctrl.Close()
	notificationMgr.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Player stopped")

	hooks.Default.Run(context.Background(), cfg.Hooks.OnStopped, "on_stopped")

	return nil
}
