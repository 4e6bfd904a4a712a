package cmdutils

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/nitro-repo/nitro-repo/config"
	srvconfig "github.com/nitro-repo/nitro-repo/internal/config"
	"github.com/nitro-repo/nitro-repo/internal/database"
	"github.com/nitro-repo/nitro-repo/module/registry"

	"github.com/rs/zerolog/log"
)

// Factory lazily builds what the commands share. Everything is resolved from
// config.Global, so it must not be used before flags are parsed.
type Factory struct {
	Config     func() (*srvconfig.Config, error)
	Controller func(ctx context.Context) (*registry.Controller, error)
	Store      func(ctx context.Context) (*database.Store, error)
}

func NewFactory() *Factory {
	loadConfig := sync.OnceValues(func() (*srvconfig.Config, error) {
		var (
			cfg *srvconfig.Config
			err error
		)
		if config.Global.ConfigPath == "" {
			cfg = srvconfig.Default()
		} else if cfg, err = srvconfig.LoadConfig(config.Global.ConfigPath); err != nil {
			return nil, err
		}
		if config.Global.DataDir != "" {
			cfg.DataDir = config.Global.DataDir
		}
		log.Debug().Str("data_dir", cfg.DataDir).Str("config", config.Global.ConfigPath).Msg("Resolved configuration")
		return cfg, cfg.Validate()
	})

	return &Factory{
		Config: loadConfig,
		Controller: func(ctx context.Context) (*registry.Controller, error) {
			cfg, err := loadConfig()
			if err != nil {
				return nil, err
			}
			return registry.Init(ctx, cfg.RegistryFile(), cfg.Loading.Concurrency)
		},
		Store: func(ctx context.Context) (*database.Store, error) {
			cfg, err := loadConfig()
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
			return database.Open(ctx, cfg.DatabaseFile())
		},
	}
}
