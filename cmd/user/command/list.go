package command

import (
	"strings"
	"time"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/module/auth"
	"github.com/nitro-repo/nitro-repo/util/common/printer"

	"github.com/spf13/cobra"
)

type userRow struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Roles    string `json:"roles"`
	Created  string `json:"created"`
}

func roles(u auth.User) string {
	var r []string
	p := u.Permissions
	if p.Disabled {
		r = append(r, "disabled")
	}
	if p.Admin {
		r = append(r, "admin")
	}
	if p.UserManager {
		r = append(r, "user-manager")
	}
	if p.RepositoryManager {
		r = append(r, "repository-manager")
	}
	if p.Deployer != nil {
		r = append(r, "deployer")
	}
	if p.Viewer != nil {
		r = append(r, "viewer")
	}
	if len(r) == 0 {
		return "-"
	}
	return strings.Join(r, ",")
}

// NewListUserCmd wires up:
//
//	nitro user list
func NewListUserCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := f.Store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			users, err := store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			if config.Global.Format == printer.FormatJSON {
				return printer.Print(cmd.OutOrStdout(), config.Global.Format, users, nil)
			}
			rows := make([]userRow, 0, len(users))
			for _, u := range users {
				rows = append(rows, userRow{
					ID:       u.ID,
					Username: u.Username,
					Name:     u.Name,
					Email:    u.Email,
					Roles:    roles(u),
					Created:  time.UnixMilli(u.Created).UTC().Format(time.RFC3339),
				})
			}
			return printer.Print(cmd.OutOrStdout(), config.Global.Format, rows, printer.ColumnMapping{
				{"id", "ID"},
				{"username", "Username"},
				{"name", "Name"},
				{"email", "Email"},
				{"roles", "Roles"},
				{"created", "Created"},
			})
		},
	}
}
