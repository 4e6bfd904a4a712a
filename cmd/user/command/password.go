package command

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/internal/tui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNoPassword = errors.New("no terminal to prompt for a password, use --password-stdin")

// readPassword reads the first line of stdin with --password-stdin, prompts
// on a terminal otherwise.
func readPassword(cmd *cobra.Command, username string) (string, error) {
	if config.Global.User.PasswordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return "", errors.New("password cannot be empty")
		}
		return password, nil
	}

	info := cmdutils.Terminal()
	if info.Interactive {
		return tui.PromptPassword(username)
	}
	if !info.StdinIsTerminal {
		return "", errNoPassword
	}
	// stdout is redirected but a user is typing: prompt on stderr.
	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", errors.New("password cannot be empty")
	}
	return string(raw), nil
}

func addPasswordStdinFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&config.Global.User.PasswordStdin, "password-stdin", false, "Read the password from stdin")
}
