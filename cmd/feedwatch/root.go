// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads .env and config, initializes logging and opens the feed store

package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/feedwatch/internal/config"
	"github.com/harper/feedwatch/internal/logger"
	"github.com/harper/feedwatch/internal/storage"
)

// skipStore marks commands that run without opening the database.
const skipStore = "skip-store"

var (
	dbPath string
	cfg    *config.Config
	store  storage.Store
)

var rootCmd = &cobra.Command{
	Use:   "feedwatch",
	Short: "Feed watcher that announces new RSS/RDF/Atom items",
	Long: `
███████╗███████╗███████╗██████╗ ██╗    ██╗ █████╗ ████████╗ ██████╗██╗  ██╗
██╔════╝██╔════╝██╔════╝██╔══██╗██║    ██║██╔══██╗╚══██╔══╝██╔════╝██║  ██║
█████╗  █████╗  █████╗  ██║  ██║██║ █╗ ██║███████║   ██║   ██║     ███████║
██╔══╝  ██╔══╝  ██╔══╝  ██║  ██║██║███╗██║██╔══██║   ██║   ██║     ██╔══██║
██║     ███████╗███████╗██████╔╝╚███╔███╔╝██║  ██║   ██║   ╚██████╗██║  ██║
╚═╝     ╚══════╝╚══════╝╚═════╝  ╚══╝╚══╝ ╚═╝  ╚═╝   ╚═╝    ╚═════╝╚═╝  ╚═╝

Poll RSS 0.91/2.0, RDF and Atom feeds and announce what changed.

Each feed is checked once its TTL has elapsed. New and updated items are
announced to the feed's outputs; failures hold a feed off for an hour.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Init(cfg.Log); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		if store != nil {
			_ = store.Close()
			store = nil
		}
		if cmd.Annotations[skipStore] != "" {
			return nil
		}
		if dbPath != "" {
			store, err = storage.NewSQLiteStore(config.ExpandPath(dbPath))
		} else {
			store, err = cfg.OpenStorage()
		}
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()
		if store != nil {
			err := store.Close()
			store = nil
			if err != nil {
				return fmt.Errorf("failed to close storage: %w", err)
			}
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file path (default: ~/.local/share/feedwatch/feedwatch.db)")
}
