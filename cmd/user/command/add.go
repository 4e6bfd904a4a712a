package command

import (
	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/internal/database"
	"github.com/nitro-repo/nitro-repo/module/permissions"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

// NewAddUserCmd wires up:
//
//	nitro user add <username>
func NewAddUserCmd(f *cmdutils.Factory) *cobra.Command {
	var (
		name  string
		email string
		perms permissionFlags
	)
	cmd := &cobra.Command{
		Use:   "add [username]",
		Short: "Add a user",
		Long:  "Creates a user with a password. Without permission flags the user can only read public repositories.",
		Example: heredoc.Doc(`
			# Create the first administrator
			nitro user add admin --email admin@example.com --admin

			# Create a CI user allowed to deploy to one storage
			echo "$CI_PASSWORD" | nitro user add ci --email ci@example.com \
			  --deployer 'main/*' --password-stdin
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			password, err := readPassword(cmd, username)
			if err != nil {
				return err
			}
			var p permissions.UserPermissions
			perms.apply(cmd, &p)

			store, err := f.Store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if name == "" {
				name = username
			}
			user, err := store.AddUser(cmd.Context(), database.NewUser{
				Name:        name,
				Username:    username,
				Email:       email,
				Password:    password,
				Permissions: p,
			})
			if err != nil {
				return err
			}
			cmdutils.Done(cmd, "Added user %s (id %d)", user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (default the username)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("email")
	perms.register(cmd)
	addPasswordStdinFlag(cmd)

	return cmd
}
