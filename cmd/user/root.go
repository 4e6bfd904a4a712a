package user

import (
	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/cmd/user/command"

	"github.com/spf13/cobra"
)

func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Manage users and auth tokens",
		Long:    `Commands to manage the users stored in the nitro database`,
	}

	rootCmd.AddCommand(command.NewListUserCmd(f))
	rootCmd.AddCommand(command.NewAddUserCmd(f))
	rootCmd.AddCommand(command.NewPasswdCmd(f))
	rootCmd.AddCommand(command.NewPermissionsCmd(f))
	rootCmd.AddCommand(command.NewTokenCmd(f))

	return rootCmd
}
