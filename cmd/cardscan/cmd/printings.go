package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// printingsCmd represents the printings command.
var printingsCmd = &cobra.Command{
	Use:   "printings <name...>",
	Short: "List the sets and rarities a card was printed in",
	Long: `List the sets and rarities a card was printed in, grouped by set code.

Examples:
  cardscan printings "Dark Magician"
  cardscan printings Dark Magician --snapshot cards.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commandConfig()
		if err != nil {
			return err
		}
		res, err := newResolver(cfg)
		if err != nil {
			return err
		}

		name := strings.Join(args, " ")
		summary, ok := res.Printings(commandContext(cmd), name)
		if !ok {
			return fmt.Errorf("no printings found for %q", name)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(printingsCmd)
}
