// Package hooks runs configured lifecycle shell commands.
package hooks

import (
	"context"
	"io"
	"os"
	"os/exec"

	zlog "github.com/rs/zerolog/log"
)

// Runner executes hook commands through the shell.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Default writes hook output to the process's stdout and stderr.
var Default = Runner{Stdout: os.Stdout, Stderr: os.Stderr}

// Run executes each command with sh -c so that redirection and pipes work.
// Failures are logged and do not stop later commands. It returns the number
// of commands that failed.
func (r Runner) Run(ctx context.Context, commands []string, stage string) int {
	if len(commands) == 0 {
		return 0
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(commands))

	failed := 0
	for _, hook := range commands {
		zlog.Info().Msgf("Executing hook: %s", hook)
		cmd := exec.CommandContext(ctx, "sh", "-c", hook)
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
			failed++
		}
	}
	return failed
}
