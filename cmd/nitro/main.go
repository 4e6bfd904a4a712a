package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/cmd/storage"
	"github.com/nitro-repo/nitro-repo/cmd/user"
	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/internal/style"
	"github.com/nitro-repo/nitro-repo/internal/terminal"
	"github.com/nitro-repo/nitro-repo/internal/tui"

	"github.com/MakeNowJust/heredoc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set via ldflags during build
var version = "dev"

func main() {
	factory := cmdutils.NewFactory()
	rootCmd := newRootCmd(factory)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		termInfo := cmdutils.Terminal()
		if termInfo.StderrIsTerminal && termInfo.ColorEnabled {
			fmt.Fprintln(os.Stderr, style.Error.Render("Error: "+err.Error()))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(factory *cmdutils.Factory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nitro",
		Short:         "Self-hosted artifact repository",
		SilenceUsage:  true,
		SilenceErrors: true, //prevent duplicate printing of errors
		Long: heredoc.Doc(`
			nitro hosts Maven, NPM and generic artifact repositories on storages
			you control.

			Start the server with "nitro serve". The storage and user commands
			administer the data directory of a stopped server.
		`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			termInfo := cmdutils.Terminal()
			style.Init(termInfo.ColorEnabled)

			// Override format to JSON when --json is explicitly passed
			if termInfo.ForceJSON {
				config.Global.Format = "json"
			}
			return setupLogging(termInfo)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&config.Global.ConfigPath, "config", "c", os.Getenv("NITRO_CONFIG"),
		"Server configuration file, YAML or TOML (env NITRO_CONFIG)")
	flags.StringVar(&config.Global.DataDir, "data-dir", "", "Data directory (overrides data_dir of the configuration)")
	flags.StringVar(&config.Global.Format, "format", "table", "Format of the result: table or json")
	flags.StringVar(&config.Global.LogLevel, "log-level", "", "Log level: trace, debug, info, warn or error")
	flags.BoolVarP(&config.Global.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&config.Global.NoColor, "no-color", false,
		"Disable colour output (also respects NO_COLOR env)")
	flags.BoolVar(&config.Global.JSON, "json", false,
		"Output results and logs as JSON (equivalent to --format=json)")

	rootCmd.AddCommand(newServeCmd(factory))
	rootCmd.AddCommand(storage.GetRootCmd(factory))
	rootCmd.AddCommand(user.GetRootCmd(factory))
	rootCmd.AddCommand(versionCmd())

	// Apply styled help template when running in a colour-capable terminal
	style.Init(terminal.Detect(terminal.Options{}).ColorEnabled)
	if helpTpl := tui.StyledHelpTemplate(); helpTpl != "" {
		rootCmd.SetUsageTemplate(helpTpl)
	}

	return rootCmd
}

// setupLogging configures the global zerolog logger from the flags.
func setupLogging(termInfo terminal.Info) error {
	level := zerolog.InfoLevel
	if config.Global.Verbose {
		level = zerolog.DebugLevel
	}
	if config.Global.LogLevel != "" {
		parsed, err := zerolog.ParseLevel(config.Global.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", config.Global.LogLevel)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)

	if termInfo.ConsoleLogs() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !termInfo.ColorEnabled,
		}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}

// versionCmd returns the version command
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of nitro",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nitro version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built with %s\n", runtime.Version())
		},
	}
}
