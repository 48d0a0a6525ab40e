package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/funnel-cli/internal/store"
)

var snapshotsLimit int

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect snapshot history",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("snapshots"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snaps, err := st.List(ctx, snapshotsLimit)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("No snapshots")
			return nil
		}

		active, err := st.Latest(ctx)
		if err != nil && !eris.Is(err, store.ErrNoSnapshot) {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Created", "Source", "Board", "Deals", "Hash"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, s := range snaps {
			id := s.ID
			if active != nil && s.ID == active.ID {
				id += " *"
			}
			table.Append([]string{
				id,
				s.CreatedAt.Format("2006-01-02 15:04"),
				string(s.Source),
				s.BoardName,
				strconv.Itoa(s.ItemCount),
				fmt.Sprintf("%.12s", s.DatasetHash),
			})
		}
		table.Render()
		return nil
	},
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete snapshots beyond the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("snapshots"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		removed, err := st.Prune(ctx, cfg.Pipeline.Retention)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d snapshots (kept %d)\n", removed, cfg.Pipeline.Retention)
		return nil
	},
}

func init() {
	snapshotsListCmd.Flags().IntVar(&snapshotsLimit, "limit", 20, "max snapshots to list (0 for all)")
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
	rootCmd.AddCommand(snapshotsCmd)
}
