package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "exam-pipeline-service",
	Short: "Document to exam pipeline service",
	Long:  "Turns uploaded study documents into generated multiple-choice exams, grades submissions and tracks learner progress.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(exportProgressCmd)
}
