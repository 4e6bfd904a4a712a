package command

import (
	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"

	"github.com/spf13/cobra"
)

// NewPasswdCmd wires up:
//
//	nitro user passwd <username>
func NewPasswdCmd(f *cmdutils.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passwd [username]",
		Short: "Change the password of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			store, err := f.Store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			password, err := readPassword(cmd, username)
			if err != nil {
				return err
			}
			if err := store.SetPassword(cmd.Context(), username, password); err != nil {
				return err
			}
			cmdutils.Done(cmd, "Changed password of %s", username)
			return nil
		},
	}

	addPasswordStdinFlag(cmd)

	return cmd
}
