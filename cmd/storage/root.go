package storage

import (
	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/cmd/storage/command"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "storage",
		Aliases: []string{"storages"},
		Short:   "Manage storages",
		Long: heredoc.Doc(`
			Commands to manage the storages listed in the registry file.

			These commands edit the data directory directly. Run them while the
			server is stopped, or use the admin API of a running server instead.
		`),
	}

	rootCmd.AddCommand(command.NewListStorageCmd(f))
	rootCmd.AddCommand(command.NewCreateStorageCmd(f))
	rootCmd.AddCommand(command.NewRecoverStorageCmd(f))
	rootCmd.AddCommand(command.NewDeleteStorageCmd(f))
	rootCmd.AddCommand(command.NewListRepositoriesCmd(f))

	return rootCmd
}
