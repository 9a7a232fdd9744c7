package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// resolveCmd represents the resolve command.
var resolveCmd = &cobra.Command{
	Use:   "resolve [text...]",
	Short: "Resolve recognized text to a canonical card name",
	Long: `Resolve recognized text to a canonical card name. The catalog is searched
for the full text first and then for its word chunks; the closest candidate
is accepted when its similarity reaches resolver.threshold.

Examples:
  cardscan resolve "dark magican"
  cardscan resolve --manual "Dark Magician"
  cardscan resolve "blue eyes whte dragon" --threshold 0.8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commandConfig()
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		manual, _ := cmd.Flags().GetString("manual")
		if strings.TrimSpace(text) == "" && strings.TrimSpace(manual) == "" {
			return errors.New("nothing to resolve: pass text or --manual")
		}

		res, err := newResolver(cfg)
		if err != nil {
			return err
		}
		result := res.ResolveWithOverride(commandContext(cmd), manual, text)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("manual", "", "card name that overrides the text")
	resolveCmd.Flags().Float64("threshold", 0.70, "minimum similarity for a match")

	_ = viper.BindPFlag("resolver.threshold", resolveCmd.Flags().Lookup("threshold"))
}
