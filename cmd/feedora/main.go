package main

import (
	"fmt"
	"log"
	"os"

	"github.com/feedora/backend/internal/config"
	"github.com/feedora/backend/internal/database"
	"github.com/feedora/backend/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	cfg *config.Config
	db  *gorm.DB
)

var rootCmd = &cobra.Command{
	Use:   "feedora",
	Short: "Feedora admin CLI - Manage the Feedora database and background jobs",
	Long: `Feedora admin CLI runs maintenance tasks against the configured database.
It reads the same environment (and .env file) as the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, using process environment")
		}

		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		// The CLI logs to stderr only.
		if err := logger.Initialize(cfg.LogLevel, ""); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if err := database.Initialize(cfg); err != nil {
			return err
		}
		db = database.DB
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = logger.Close()
		return database.Close()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(storiesCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
