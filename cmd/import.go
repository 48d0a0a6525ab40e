package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/funnel-cli/internal/pipeline"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Build a dataset snapshot from an exported board spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		ctx := cmd.Context()

		pcfg, err := pipelineConfig("")
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := pipeline.NewImport(st, pcfg).Run(ctx, args[0], importDryRun)
		if err != nil {
			return err
		}

		snap := res.Snapshot
		fmt.Printf("Deals:    %d\n", snap.ItemCount)
		fmt.Printf("Hash:     %.12s\n", snap.DatasetHash)
		if importDryRun {
			fmt.Println("Dry run: snapshot not persisted")
		} else {
			fmt.Printf("Snapshot: %s\n", snap.ID)
		}
		printQASummary(snap.QA)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "build and audit without persisting")
	rootCmd.AddCommand(importCmd)
}
