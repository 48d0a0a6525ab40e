package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sells-group/funnel-cli/internal/model"
)

var qaAll bool

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Show the QA report of the active snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("qa"); err != nil {
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
		if snap.QA == nil {
			fmt.Println("Snapshot has no QA report")
			return nil
		}

		fmt.Printf("Snapshot: %s (%s)\n", snap.ID, snap.CreatedAt.Format("2006-01-02 15:04"))
		printQASummary(snap.QA)
		fmt.Println()

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Check", "Category", "Severity", "Result"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, c := range snap.QA.Report.Checks {
			if !qaAll && c.Severity == model.SeverityPass {
				continue
			}
			table.Append([]string{c.ID, string(c.Category), severityCell(c.Severity), c.Result})
		}
		table.Render()
		return nil
	},
}

func severityCell(s model.Severity) string {
	switch s {
	case model.SeverityPass:
		return color.GreenString(string(s))
	case model.SeverityWarn:
		return color.YellowString(string(s))
	case model.SeverityFail:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

func init() {
	qaCmd.Flags().BoolVar(&qaAll, "all", false, "include passing checks")
	rootCmd.AddCommand(qaCmd)
}
