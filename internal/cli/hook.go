package cli

import (
	"fmt"

	"github.com/glorpus-work/apkpick/pkg/hooks"
	"github.com/spf13/cobra"
)

// NewHookCmd creates the hook command with subcommands.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Work with fetch hooks",
		Long:  "Tengo scripts run before and after each download (settings.hooks.pre_fetch / post_fetch)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "template TYPE",
		Short:     "Print a hook script template",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(hooks.PreFetch), string(hooks.PostFetch)},
		RunE: func(cmd *cobra.Command, args []string) error {
			hookType := hooks.HookType(args[0])
			if !hookType.Valid() {
				return hooks.ErrUnsupportedHookType(hookType)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), hooks.HookTemplate(hookType))
			return err
		},
	})

	return cmd
}
