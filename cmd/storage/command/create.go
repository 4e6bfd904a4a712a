package command

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

// defaultLocation places a storage below the data directory when no location
// is given.
func defaultLocation(f *cmdutils.Factory, name, location string) (string, error) {
	if location != "" {
		return location, nil
	}
	cfg, err := f.Config()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.DataDir, "storages", name), nil
}

// NewCreateStorageCmd wires up:
//
//	nitro storage create <name>
func NewCreateStorageCmd(f *cmdutils.Factory) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a local storage",
		Long:  "Creates a new filesystem storage and adds it to the registry file",
		Example: heredoc.Doc(`
			# Create a storage below the data directory
			nitro storage create main

			# Create a storage on another disk
			nitro storage create archive --location /mnt/archive/nitro
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			loc, err := defaultLocation(f, name, location)
			if err != nil {
				return err
			}
			saver, err := storage.NewLocalSaver(name, loc, time.Now().UnixMilli())
			if err != nil {
				return err
			}
			controller, err := f.Controller(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := controller.CreateStorage(cmd.Context(), saver); err != nil {
				return fmt.Errorf("create storage %s: %w", name, err)
			}
			cmdutils.Done(cmd, "Created storage %s at %s", name, loc)
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "directory of the storage (default <data_dir>/storages/<name>)")

	return cmd
}
