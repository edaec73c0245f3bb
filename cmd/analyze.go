package cmd

import (
	"github.com/spf13/cobra"
)

var (
	analyzeExplain explainFlags
	analyzeRender  renderFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Explain a statement and render its plan in one step",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := analyzeExplain.explain(cmd)
		if err != nil {
			return err
		}
		plan, err := buildPlan(rows)
		if err != nil {
			return err
		}
		return analyzeRender.render(cmd, plan)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeExplain.register(analyzeCmd)
	analyzeRender.register(analyzeCmd)
}
