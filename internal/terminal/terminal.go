// Package terminal decides how nitro talks to the terminal it runs in: whether
// colour is emitted, whether prompts may be shown and which log format is used.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// Info holds the resolved terminal state for the current process.
type Info struct {
	// IsTerminal is true when stdout is connected to a TTY.
	IsTerminal bool
	// StderrIsTerminal is true when stderr is connected to a TTY.
	StderrIsTerminal bool
	// StdinIsTerminal is true when stdin is connected to a TTY.
	StdinIsTerminal bool
	ColorEnabled    bool
	// Interactive is true when prompts may be shown.
	Interactive bool
	ForceJSON   bool
}

// Options are the user supplied flags that influence detection.
type Options struct {
	NoColor bool
	JSON    bool
}

// Detect inspects the environment and returns a populated Info.
func Detect(opts Options) Info {
	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))
	stderrTTY := term.IsTerminal(int(os.Stderr.Fd()))
	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	return resolve(opts, stdoutTTY, stderrTTY, stdinTTY)
}

func resolve(opts Options, stdoutTTY, stderrTTY, stdinTTY bool) Info {
	// https://no-color.org/
	envNoColor := os.Getenv("NO_COLOR") != ""

	return Info{
		IsTerminal:       stdoutTTY,
		StderrIsTerminal: stderrTTY,
		StdinIsTerminal:  stdinTTY,
		ColorEnabled:     stdoutTTY && !opts.NoColor && !envNoColor && !IsDumb(),
		Interactive:      stdoutTTY && stdinTTY && !opts.JSON && !IsCI(),
		ForceJSON:        opts.JSON,
	}
}

// ConsoleLogs reports whether logs should use the human readable console
// writer instead of JSON lines.
func (i Info) ConsoleLogs() bool {
	return i.StderrIsTerminal && !i.ForceJSON && !IsCI()
}

// IsDumb returns true when the terminal is known to have no capabilities
// (e.g. TERM=dumb or running inside Emacs).
func IsDumb() bool {
	t := strings.ToLower(os.Getenv("TERM"))
	return t == "dumb" || t == ""
}

// IsCI returns true when a well-known CI environment variable is set.
func IsCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "JENKINS_URL", "GITLAB_CI", "CIRCLECI", "BUILDKITE"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
