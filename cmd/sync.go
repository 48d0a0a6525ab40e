package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/funnel-cli/internal/model"
	"github.com/sells-group/funnel-cli/internal/pipeline"
)

var (
	syncBoardID string
	syncDryRun  bool
	syncStrict  bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the deal board and persist a dataset snapshot",
	Long: `Fetches the configured board, normalizes every deal, builds the aggregate
dataset, audits it against the previous snapshot, and stores the result as
the new active snapshot.

Data defects never abort a sync; they surface in the QA report. Upstream or
storage errors abort with no state change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		ctx := cmd.Context()

		pcfg, err := pipelineConfig(syncBoardID)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		syncer := pipeline.New(newBoardClient(), st, pcfg)
		res, err := syncer.Run(ctx, syncDryRun)
		if err != nil {
			return err
		}

		snap := res.Snapshot
		fmt.Printf("Board:    %s (%s)\n", snap.BoardName, snap.BoardID)
		fmt.Printf("Deals:    %d\n", snap.ItemCount)
		fmt.Printf("Hash:     %.12s\n", snap.DatasetHash)
		if syncDryRun {
			fmt.Println("Dry run: snapshot not persisted")
		} else {
			fmt.Printf("Snapshot: %s (pruned %d)\n", snap.ID, res.Pruned)
		}
		printQASummary(snap.QA)

		strict := syncStrict || cfg.Pipeline.Strict
		if strict && snap.QA != nil && snap.QA.Status == model.QAStatusFail {
			return eris.New("sync: qa status is fail")
		}
		return nil
	},
}

func printQASummary(report *model.QAReport) {
	if report == nil {
		return
	}
	status := string(report.Status)
	switch report.Status {
	case model.QAStatusPass:
		status = color.GreenString(status)
	case model.QAStatusWarn:
		status = color.YellowString(status)
	case model.QAStatusFail:
		status = color.RedString(status)
	}
	fmt.Printf("QA:       %s (score %d) %s\n", status, report.Score, report.Summary)
}

func init() {
	syncCmd.Flags().StringVar(&syncBoardID, "board", "", "board id (defaults to monday.board_id)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "build and audit without persisting")
	syncCmd.Flags().BoolVar(&syncStrict, "strict", false, "exit non-zero when QA status is fail")
	rootCmd.AddCommand(syncCmd)
}
