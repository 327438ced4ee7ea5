package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brk3/healthdata/internal/apiclient"
	"github.com/brk3/healthdata/internal/config"
	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/healthstore/bolt"
	"github.com/brk3/healthdata/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "healthdata",
	Short: "Export daily activity summaries from a health data store",
	Long: `
	Healthdata reads the daily activity summaries (move, exercise and stand) kept in a
	health data store for a range of days and prints them as indented JSON. The store is
	a local file by default, or a remote healthdata server when api_base_url is set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error loading .env file: %w", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}

		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		logger.Setup(cmd.ErrOrStderr(), level, cfg.Log.Format)
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

// openStore returns the configured host store.
func openStore(prompter healthstore.Prompter) (healthstore.Store, error) {
	if cfg.Remote() {
		logger.Debug("Using remote store", "base_url", cfg.APIBaseURL)
		return apiclient.New(cfg.APIBaseURL, cfg.APIKey), nil
	}
	logger.Debug("Using local store", "path", cfg.DBPath, "profile", cfg.Profile)
	store, err := bolt.Open(cfg.DBPath, cfg.Profile, prompter)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return store, nil
}
