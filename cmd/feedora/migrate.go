package main

import (
	"fmt"

	"github.com/feedora/backend/internal/database"
	"github.com/spf13/cobra"
)

var confirmReset bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update every table, index and lookup row",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

var migrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every table and migrate from scratch",
	Long:  "Drop every Feedora table, then run migrate up. All data is lost; pass --yes to confirm.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmReset {
			return fmt.Errorf("refusing to drop tables without --yes")
		}
		if err := database.Reset(db); err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database reset")
		return nil
	},
}

func init() {
	migrateResetCmd.Flags().BoolVar(&confirmReset, "yes", false, "Confirm dropping all tables")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateResetCmd)
}
