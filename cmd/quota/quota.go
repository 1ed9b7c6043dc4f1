// Package quota implements the quota inspection command.
package quota

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gomirror/cmd/common"
)

// Command returns the quota command for use in the root command.
func Command(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quota <account-id>",
		Short: "Show an account's storage quota",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewDeps(*cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}
			defer deps.Close()

			ledger, err := deps.Quota.GetLedger(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("read quota ledger: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Account", "Capacity", "Used", "Remaining"})
			t.AppendRow(table.Row{
				ledger.AccountID,
				formatBytes(ledger.CapacityBytes),
				formatBytes(ledger.UsedBytes),
				formatBytes(ledger.RemainingBytes()),
			})
			t.Render()

			return nil
		},
	}
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
