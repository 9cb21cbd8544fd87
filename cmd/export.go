package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportProgressCmd = &cobra.Command{
	Use:   "export-progress",
	Short: "Write a learner's results and progress to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		learnerID, _ := cmd.Flags().GetString("learner")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = fmt.Sprintf("progress-%s.xlsx", learnerID)
		}

		ctx := context.Background()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}

		if err := a.serviceManager.Export().ExportLearnerReport(ctx, learnerID, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
		return nil
	},
}

func init() {
	exportProgressCmd.Flags().String("learner", "", "Learner ID (required)")
	exportProgressCmd.Flags().StringP("out", "o", "", "Output file (default progress-<learner>.xlsx)")
	_ = exportProgressCmd.MarkFlagRequired("learner")
}
