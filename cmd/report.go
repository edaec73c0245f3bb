package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	reportInput  string
	reportRender renderFlags
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a plan from saved PLAN_TABLE rows (JSON or CSV)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportInput == "" {
			return fmt.Errorf("--input is required")
		}
		rows, err := loadRows(reportInput)
		if err != nil {
			return err
		}
		plan, err := buildPlan(rows)
		if err != nil {
			return err
		}
		return reportRender.render(cmd, plan)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportInput, "input", "", "Path to explain rows (.json or .csv)")
	reportRender.register(reportCmd)
}
