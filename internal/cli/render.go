package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/assimelha/surf/pkg/stealth"
)

func newRenderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <evasion>",
		Short: "Print the script one evasion registers, with overrides applied",
		Example: `  surf render navigator.vendor --vendor "Apple Computer, Inc."
  surf render navigator.languages --languages de-DE,de`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			var names []string
			for _, ev := range stealth.Catalog() {
				if ev.Script() {
					names = append(names, ev.Name)
				}
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			activator := stealth.New(
				stealth.WithTemplates(a.cfg.Stealth.Templates()),
				stealth.WithLogger(a.logger),
			)
			code, err := activator.Payload(args[0], a.cfg.Stealth.Request().Settings())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	addStealthFlags(cmd.Flags())
	return cmd
}
