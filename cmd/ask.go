package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/funnel-cli/internal/analyst"
	"github.com/sells-group/funnel-cli/pkg/anthropic"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the active snapshot",
	Long: `Builds a bounded context from the active snapshot (crosstabs, funnel,
scorecard, win/loss, trend, sample deals) scoped to the sellers, stages, or
months the question mentions, and sends it to Claude.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("ask"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.Latest(ctx)
		if err != nil {
			return err
		}

		client := anthropic.NewClient(cfg.Anthropic.Key)
		a := analyst.New(client,
			analyst.WithModel(cfg.Anthropic.Model),
			analyst.WithMaxTokens(int64(cfg.Anthropic.MaxTokens)))

		answer, err := a.Ask(ctx, snap.Dataset, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
