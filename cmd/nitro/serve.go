package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/internal/server"
	"github.com/nitro-repo/nitro-repo/internal/style"
	"github.com/nitro-repo/nitro-repo/internal/webhook"
	"github.com/nitro-repo/nitro-repo/module/auth"
	"github.com/nitro-repo/nitro-repo/module/repository/api"

	"github.com/MakeNowJust/heredoc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownDrainTimeout = 30 * time.Second

func newServeCmd(f *cmdutils.Factory) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the repository server",
		Long: heredoc.Doc(`
			Loads every storage of the registry file and serves the repository
			protocols, the admin API and Prometheus metrics.

			Storages that fail to load are kept in the registry and reported as
			unavailable; the server starts anyway.

			An NPM publish carrying several versions writes them one after the
			other. If the request fails halfway, the versions written so far stay
			published.
		`),
		Example: heredoc.Doc(`
			nitro serve --config /etc/nitro/nitro.yaml
			nitro serve --data-dir ./data --listen 127.0.0.1:8080
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = log.Logger.WithContext(ctx)

			cfg, err := f.Config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			if cmdutils.Terminal().IsTerminal {
				fmt.Fprintln(cmd.OutOrStdout(), style.Banner())
				fmt.Fprintln(cmd.OutOrStdout())
			}

			controller, err := f.Controller(ctx)
			if err != nil {
				return err
			}
			if err := controller.LoadUnloadedStorages(ctx); err != nil {
				log.Error().Err(err).Msg("Some storages failed to load")
			}
			stats := controller.Stats()
			log.Info().
				Int("storages", stats.Storages).
				Int("unavailable", stats.BadStorages).
				Int("repositories", stats.Repositories).
				Msg("Storages loaded")

			store, err := f.Store(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions := auth.NewMemorySessionManager(cfg.Session.Lifetime.Duration)
			go sessions.RunCleanup(ctx, cfg.Session.CleanupInterval.Duration, 0)

			metrics := server.NewMetrics(controller, sessions.Count)
			services := api.Services{GitBinary: cfg.Staging.GitBinary, Tasks: &api.Tasks{}}

			var notifier *webhook.Notifier
			if cfg.Webhook.URL != "" {
				notifier = webhook.New(cfg.Webhook.URL,
					webhook.WithRetries(cfg.Webhook.Retries),
					webhook.WithDeliveryCallback(metrics.WebhookResult))
				services.Hook = notifier
				log.Info().Str("url", cfg.Webhook.URL).Msg("Deploy webhook enabled")
			}

			srv := server.New(server.Options{
				Controller: controller,
				Users:      store,
				Sessions:   sessions,
				Services:   services,
				Metrics:    metrics,
			})
			err = srv.Serve(ctx, cfg.Listen)

			drainCtx, cancelDrain := context.WithTimeout(context.WithoutCancel(ctx), shutdownDrainTimeout)
			defer cancelDrain()
			if werr := services.Tasks.Wait(drainCtx); werr != nil {
				log.Warn().Err(werr).Msg("Release staging still running at shutdown")
			}

			if notifier != nil {
				waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownDrainTimeout)
				defer cancel()
				if werr := notifier.Wait(waitCtx); werr != nil {
					log.Warn().Err(werr).Msg("Pending webhook deliveries were dropped")
				}
			}
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides listen of the configuration)")

	return cmd
}
