package cmdutils

import (
	"fmt"

	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/internal/style"
	"github.com/nitro-repo/nitro-repo/internal/terminal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Terminal resolves the terminal state from the global flags.
func Terminal() terminal.Info {
	return terminal.Detect(terminal.Options{NoColor: config.Global.NoColor, JSON: config.Global.JSON})
}

// Done reports a completed action: a styled line on a terminal, a log event
// otherwise so scripted runs keep stdout clean.
func Done(cmd *cobra.Command, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if Terminal().IsTerminal {
		fmt.Fprintln(cmd.OutOrStdout(), style.Done(msg))
		return
	}
	log.Info().Msg(msg)
}
