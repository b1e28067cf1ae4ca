package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/assimelha/surf/pkg/stealth"
)

func newEvasionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evasions",
		Short: "List the stealth activation sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeCatalog(cmd.OutOrStdout(), stealth.Catalog())
			return nil
		},
	}
}

func writeCatalog(w io.Writer, catalog []stealth.Evasion) {
	table := newTable(w, "STEP", "EVASION", "COMMAND", "PARAMETERS")
	for i, ev := range catalog {
		params := make([]string, len(ev.Params))
		for j, p := range ev.Params {
			params[j] = p.Name + "=" + p.Default
		}
		table.Append([]string{strconv.Itoa(i + 1), ev.Name, ev.Command, strings.Join(params, "; ")})
	}
	table.Render()
}
