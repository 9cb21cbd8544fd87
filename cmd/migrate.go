package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/exam-pipeline-service/pkg"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()

		if err := pkg.Migrate(db); err != nil {
			return err
		}

		logger.Info("Schema migrated")
		fmt.Fprintln(cmd.OutOrStdout(), "Migration complete")
		return nil
	},
}
