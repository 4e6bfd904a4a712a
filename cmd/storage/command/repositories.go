package command

import (
	"fmt"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/util/common/printer"

	"github.com/MakeNowJust/heredoc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewListRepositoriesCmd wires up:
//
//	nitro storage repositories <storage>
func NewListRepositoriesCmd(f *cmdutils.Factory) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:     "repositories [storage]",
		Aliases: []string{"repos"},
		Short:   "List the repositories of a storage",
		Example: heredoc.Doc(`
			nitro storage repositories main
			nitro storage repositories main --filter 'libs-*'
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, err := f.Controller(cmd.Context())
			if err != nil {
				return err
			}
			if err := controller.LoadUnloadedStorages(cmd.Context()); err != nil {
				log.Debug().Err(err).Msg("Some storages failed to load")
			}
			loaded, ok := controller.GetStorage(args[0])
			if !ok {
				return fmt.Errorf("storage %s does not exist", args[0])
			}
			if err := loaded.Status(); err != nil {
				return err
			}
			repos, err := loaded.Repositories(filter)
			if err != nil {
				return err
			}
			return printer.Print(cmd.OutOrStdout(), config.Global.Format, repos, printer.ColumnMapping{
				{"name", "Repository"},
				{"repository_type", "Type"},
				{"visibility", "Visibility"},
				{"policy", "Policy"},
				{"active", "Active"},
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "glob pattern on repository names")

	return cmd
}
