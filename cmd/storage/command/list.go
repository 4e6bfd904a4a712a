package command

import (
	"encoding/json"
	"time"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/internal/style"
	"github.com/nitro-repo/nitro-repo/module/registry"
	"github.com/nitro-repo/nitro-repo/module/storage"
	"github.com/nitro-repo/nitro-repo/util/common/printer"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type storageRow struct {
	Name         string              `json:"name"`
	Type         storage.StorageType `json:"type"`
	Location     string              `json:"location,omitempty"`
	Status       string              `json:"status"`
	Repositories int                 `json:"repositories"`
	Created      string              `json:"created"`
}

func newStorageRow(loaded *registry.LoadedStorage) storageRow {
	saver := loaded.Saver()
	row := storageRow{
		Name:         loaded.Name(),
		Type:         saver.StorageType,
		Status:       style.Status(loaded.Status()),
		Repositories: loaded.RepositoryCount(),
		Created:      time.UnixMilli(saver.GenericConfig.Created).UTC().Format(time.RFC3339),
	}
	if saver.StorageType == storage.LocalStorageType {
		var cfg storage.LocalConfig
		if err := json.Unmarshal(saver.HandlerConfig, &cfg); err == nil {
			row.Location = cfg.Location
		}
	}
	return row
}

// NewListStorageCmd wires up:
//
//	nitro storage list
func NewListStorageCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all storages",
		Long:  "Lists every storage of the registry file with its health and repository count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := f.Controller(cmd.Context())
			if err != nil {
				return err
			}
			if err := controller.LoadUnloadedStorages(cmd.Context()); err != nil {
				// Broken storages are still listed with their error.
				log.Debug().Err(err).Msg("Some storages failed to load")
			}

			rows := make([]storageRow, 0)
			for _, loaded := range controller.Storages() {
				rows = append(rows, newStorageRow(loaded))
			}
			return printer.Print(cmd.OutOrStdout(), config.Global.Format, rows, printer.ColumnMapping{
				{"name", "Storage"},
				{"type", "Type"},
				{"location", "Location"},
				{"repositories", "Repositories"},
				{"status", "Status"},
				{"created", "Created"},
			})
		},
	}
}
