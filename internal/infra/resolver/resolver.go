// Package resolver turns a song and artist into a directly streamable audio
// URL by searching with yt-dlp.
package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lrstanley/go-ytdlp"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunechat/internal/app/retry"
)

// ErrNotFound is returned when the search produced no URL.
var ErrNotFound = errors.New("no audio url found")

// Config holds resolver settings.
type Config struct {
	Binary       string        // yt-dlp executable; empty uses the one on PATH
	Retries      int           // Retries after the first attempt
	RetryBackoff time.Duration // Delay between attempts
	Timeout      time.Duration // Per-attempt timeout
}

// runner executes one search and returns yt-dlp's stdout.
type runner interface {
	Run(ctx context.Context, query string) (string, error)
}

type ytdlpRunner struct {
	binary string
}

func (r ytdlpRunner) Run(ctx context.Context, query string) (string, error) {
	cmd := ytdlp.New().
		GetURL().
		Format("bestaudio").
		NoPlaylist().
		NoWarnings()
	if r.binary != "" {
		cmd.SetExecutable(r.binary)
	}

	res, err := cmd.Run(ctx, query)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// Resolver resolves audio URLs.
type Resolver struct {
	cfg    Config
	runner runner
	wait   func(ctx context.Context, d time.Duration) error
}

// New creates a resolver backed by the yt-dlp binary.
func New(cfg Config) *Resolver {
	return newResolver(cfg, ytdlpRunner{binary: cfg.Binary})
}

func newResolver(cfg Config, r runner) *Resolver {
	return &Resolver{cfg: cfg, runner: r, wait: retry.Sleep}
}

// Resolve searches for "<song> <artist>" and returns the first result's
// best audio stream URL.
func (r *Resolver) Resolve(ctx context.Context, song, artist string) (string, error) {
	query := strings.TrimSpace(song + " " + artist)
	if query == "" {
		return "", errors.New("song and artist are empty")
	}
	search := "ytsearch1:" + query

	var url string
	policy := retry.Policy{
		MaxAttempts: r.cfg.Retries + 1,
		Backoff:     r.cfg.RetryBackoff,
		Wait:        r.wait,
		OnRetry: func(attempt int, err error) {
			zlog.Warn().Err(err).Msgf("resolver: attempt %d for %q failed, retrying", attempt, query)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		attemptCtx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}

		out, err := r.runner.Run(attemptCtx, search)
		if err != nil {
			return errors.Wrapf(err, "yt-dlp search %q", query)
		}
		url = firstURL(out)
		if url == "" {
			return retry.Permanent(errors.Wrapf(ErrNotFound, "query %q", query))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	zlog.Debug().Msgf("resolver: resolved %q", query)
	return url, nil
}

// firstURL returns the first non-empty line that looks like a URL.
func firstURL(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line
		}
	}
	return ""
}
