package command

import (
	"fmt"
	"time"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/internal/tui"
	"github.com/nitro-repo/nitro-repo/module/registry"
	"github.com/nitro-repo/nitro-repo/module/storage"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

// NewRecoverStorageCmd wires up:
//
//	nitro storage recover <name>
func NewRecoverStorageCmd(f *cmdutils.Factory) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "recover [name]",
		Short: "Register an existing storage directory",
		Long: heredoc.Doc(`
			Adds a storage directory that already holds repositories back to the
			registry file, for example after it was removed from the list or the
			registry file was lost. Its repositories are loaded as part of the
			command so broken configurations are reported right away.
		`),
		Example: heredoc.Doc(`
			nitro storage recover main --location /srv/nitro/storages/main
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

			loaded, err := tui.RunWithSpinner(cmdutils.Terminal().Interactive, "Recovering storage "+name,
				func() (*registry.LoadedStorage, error) {
					return controller.RecoverStorage(cmd.Context(), saver)
				})
			if err != nil {
				return fmt.Errorf("recover storage %s: %w", name, err)
			}
			cmdutils.Done(cmd, "Recovered storage %s with %d repositories", name, loaded.RepositoryCount())
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "directory of the storage (default <data_dir>/storages/<name>)")

	return cmd
}
