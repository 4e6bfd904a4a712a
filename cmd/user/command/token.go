package command

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/internal/style"
	"github.com/nitro-repo/nitro-repo/util/common/printer"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
)

// NewTokenCmd wires up:
//
//	nitro user token {create,list,delete}
func NewTokenCmd(f *cmdutils.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage auth tokens of a user",
		Long: heredoc.Doc(`
			Auth tokens are sent as "Authorization: Bearer <token>" or as the
			password of the user "token" with basic authentication.
		`),
	}
	cmd.AddCommand(newCreateTokenCmd(f), newListTokenCmd(f), newDeleteTokenCmd(f))
	return cmd
}

func newCreateTokenCmd(f *cmdutils.Factory) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create [username]",
		Short: "Create an auth token",
		Long:  "Creates an auth token. The token is printed once and cannot be shown again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := f.Store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s does not exist", args[0])
			}
			raw, token, err := store.CreateToken(cmd.Context(), user.ID, description)
			if err != nil {
				return err
			}
			if config.Global.Format == printer.FormatJSON {
				return printer.Print(cmd.OutOrStdout(), printer.FormatJSON, map[string]any{
					"id":    token.ID,
					"token": raw,
				}, nil)
			}
			if !cmdutils.Terminal().IsTerminal {
				fmt.Fprintln(cmd.OutOrStdout(), raw)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), style.Done(fmt.Sprintf("Created token %d for %s", token.ID, user.Username)))
			fmt.Fprintln(cmd.OutOrStdout(), style.Code.Render(raw))
			fmt.Fprintln(cmd.OutOrStdout(), style.Hint("Store it now, it cannot be shown again."))
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "what the token is used for")
	return cmd
}

func newListTokenCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "list [username]",
		Short: "List the auth tokens of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := f.Store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s does not exist", args[0])
			}
			tokens, err := store.ListTokens(cmd.Context(), user.ID)
			if err != nil {
				return err
			}
			type tokenRow struct {
				ID          int64  `json:"id"`
				Description string `json:"description"`
				Created     string `json:"created"`
			}
			rows := make([]tokenRow, 0, len(tokens))
			for _, t := range tokens {
				rows = append(rows, tokenRow{
					ID:          t.ID,
					Description: t.Description,
					Created:     time.UnixMilli(t.Created).UTC().Format(time.RFC3339),
				})
			}
			return printer.Print(cmd.OutOrStdout(), config.Global.Format, rows, printer.ColumnMapping{
				{"id", "ID"},
				{"description", "Description"},
				{"created", "Created"},
			})
		},
	}
}

func newDeleteTokenCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [username] [token-id]",
		Short: "Revoke an auth token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid token id %q", args[1])
			}
			store, err := f.Store(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s does not exist", args[0])
			}
			if err := store.DeleteToken(cmd.Context(), user.ID, id); err != nil {
				return err
			}
			cmdutils.Done(cmd, "Revoked token %d of %s", id, user.Username)
			return nil
		},
	}
}
