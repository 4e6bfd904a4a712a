package command

import (
	"fmt"

	"github.com/nitro-repo/nitro-repo/cmd/cmdutils"
	"github.com/nitro-repo/nitro-repo/config"
	"github.com/nitro-repo/nitro-repo/internal/style"
	"github.com/nitro-repo/nitro-repo/internal/tui"
	"github.com/nitro-repo/nitro-repo/module/registry"

	"github.com/MakeNowJust/heredoc"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var purgeConsequences = map[registry.PurgeLevel]string{
	registry.PurgeAll:            "Every repository and all of its artifacts will be deleted.",
	registry.PurgeConfigs:        "Repository configurations will be deleted, artifacts stay on disk.",
	registry.PurgeRemoveFromList: "The storage is only removed from the registry; it can be recovered later.",
}

// NewDeleteStorageCmd wires up:
//
//	nitro storage delete <name>
func NewDeleteStorageCmd(f *cmdutils.Factory) *cobra.Command {
	var purge string
	cmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a storage",
		Long: heredoc.Doc(`
			Removes a storage from the registry file. --purge decides what happens
			to the data:

			  RemoveFromList  keep everything on disk (default)
			  Configs         delete repository configurations, keep artifacts
			  All             delete every repository with its artifacts
		`),
		Example: heredoc.Doc(`
			# Delete a storage (with confirmation in a terminal)
			nitro storage delete main --purge All

			# Skip confirmation in scripts
			nitro storage delete main --purge Configs --force
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			term := cmdutils.Terminal()

			if !cmd.Flags().Changed("purge") && term.Interactive && !config.Global.Storage.Force {
				choice, err := tui.PromptSelect("Purge level", "What should happen to the data of "+name+"?",
					[]string{string(registry.PurgeRemoveFromList), string(registry.PurgeConfigs), string(registry.PurgeAll)})
				if err != nil {
					return err
				}
				purge = choice
			}
			level, err := registry.ParsePurgeLevel(purge)
			if err != nil {
				return err
			}

			controller, err := f.Controller(cmd.Context())
			if err != nil {
				return err
			}
			if !controller.StorageExists(name) {
				return fmt.Errorf("storage %s does not exist", name)
			}

			if !config.Global.Storage.Force && term.Interactive {
				confirmed, err := tui.ConfirmDeletion("storage", name, purgeConsequences[level])
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), style.DimText.Render("Deletion cancelled."))
					return nil
				}
			}

			if level != registry.PurgeRemoveFromList {
				// Repositories must be loaded to be purged.
				if err := controller.LoadUnloadedStorages(cmd.Context()); err != nil {
					log.Warn().Err(err).Msg("Some storages failed to load")
				}
			}
			if err := controller.DeleteStorage(cmd.Context(), name, level); err != nil {
				return err
			}
			cmdutils.Done(cmd, "Deleted storage %s (%s)", name, level)
			return nil
		},
	}

	cmd.Flags().StringVar(&purge, "purge", string(registry.PurgeRemoveFromList), "purge level: RemoveFromList, Configs or All")
	cmd.Flags().BoolVar(&config.Global.Storage.Force, "force", false, "Skip confirmation prompt")

	return cmd
}
