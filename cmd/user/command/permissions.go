package command

import (
	"fmt"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/module/permissions"
	"github.com/nitro-repo/nitro-repo/util/common/printer"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// permissionFlags maps command line flags onto UserPermissions. Only flags
// that were set change the target.
type permissionFlags struct {
	disabled          bool
	admin             bool
	userManager       bool
	repositoryManager bool
	deployer          []string
	viewer            []string
	clearDeployer     bool
	clearViewer       bool
}

func (p *permissionFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&p.disabled, "disabled", false, "disable the user")
	cmd.Flags().BoolVar(&p.admin, "admin", false, "grant every permission")
	cmd.Flags().BoolVar(&p.userManager, "user-manager", false, "allow managing users")
	cmd.Flags().BoolVar(&p.repositoryManager, "repository-manager", false, "allow managing storages and repositories")
	cmd.Flags().StringArrayVar(&p.deployer, "deployer", nil, "deploy permission pattern storage/repository (repeatable, \"\" allows all)")
	cmd.Flags().StringArrayVar(&p.viewer, "viewer", nil, "read permission pattern storage/repository (repeatable, \"\" allows all)")
	cmd.Flags().BoolVar(&p.clearDeployer, "no-deployer", false, "remove every deploy permission")
	cmd.Flags().BoolVar(&p.clearViewer, "no-viewer", false, "remove every read permission")
	cmd.MarkFlagsMutuallyExclusive("deployer", "no-deployer")
	cmd.MarkFlagsMutuallyExclusive("viewer", "no-viewer")
}

func (p *permissionFlags) apply(cmd *cobra.Command, target *permissions.UserPermissions) {
	flags := cmd.Flags()
	if flags.Changed("disabled") {
		target.Disabled = p.disabled
	}
	if flags.Changed("admin") {
		target.Admin = p.admin
	}
	if flags.Changed("user-manager") {
		target.UserManager = p.userManager
	}
	if flags.Changed("repository-manager") {
		target.RepositoryManager = p.repositoryManager
	}
	if flags.Changed("deployer") {
		target.Deployer = patternList(p.deployer)
	}
	if p.clearDeployer {
		target.Deployer = nil
	}
	if flags.Changed("viewer") {
		target.Viewer = patternList(p.viewer)
	}
	if p.clearViewer {
		target.Viewer = nil
	}
}

// patternList turns flag values into a permission list. An empty pattern
// stands for the empty list, which allows every repository.
func patternList(values []string) *permissions.RepositoryPermission {
	list := &permissions.RepositoryPermission{Permissions: []string{}}
	for _, v := range values {
		if v != "" {
			list.Permissions = append(list.Permissions, v)
		}
	}
	return list
}

// NewPermissionsCmd wires up:
//
//	nitro user permissions <username>
func NewPermissionsCmd(f *cmdutils.Factory) *cobra.Command {
	var perms permissionFlags
	cmd := &cobra.Command{
		Use:   "permissions [username]",
		Short: "Show or change the permissions of a user",
		Long: heredoc.Doc(`
			Without flags the current permissions are printed. Flags change only
			what they name.

			Patterns have the form storage/repository where either side may be
			"*". The repository side may also be a JSON filter such as
			{"policy":"Release","type":"Maven"}.
		`),
		Example: heredoc.Doc(`
			nitro user permissions ci --deployer 'main/*' --deployer 'backup/releases'
			nitro user permissions alice --repository-manager
			nitro user permissions bob --no-viewer
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			store, err := f.Store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByUsername(cmd.Context(), username)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s does not exist", username)
			}
			if onlyGlobalFlags(cmd) {
				return printer.Print(cmd.OutOrStdout(), printer.FormatJSON, user.Permissions, nil)
			}

			updated := user.Permissions
			perms.apply(cmd, &updated)
			if err := store.SetPermissions(cmd.Context(), user.Username, updated); err != nil {
				return err
			}
			if config.Global.Format == printer.FormatJSON {
				return printer.Print(cmd.OutOrStdout(), printer.FormatJSON, updated, nil)
			}
			cmdutils.Done(cmd, "Updated permissions of %s", user.Username)
			return nil
		},
	}

	perms.register(cmd)

	return cmd
}

// onlyGlobalFlags reports whether no local flag of cmd was set.
func onlyGlobalFlags(cmd *cobra.Command) bool {
	changed := false
	cmd.LocalNonPersistentFlags().Visit(func(*pflag.Flag) { changed = true })
	return !changed
}
