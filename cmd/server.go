package cmd

import (
	"errors"
	"net/http"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/healthstore/bolt"
	"github.com/brk3/healthdata/internal/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the local store over HTTP",
	Long: `The "server" command exposes the local store to remote healthdata clients. Read
permission prompts from clients are answered with server.grant_read.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func startServer(cmd *cobra.Command) error {
	store, err := bolt.Open(cfg.DBPath, cfg.Profile, healthstore.StaticPrompter(cfg.Server.GrantRead))
	if err != nil {
		return err
	}
	defer store.Close()

	err = server.New(cfg, store).ListenAndServe(cmd.Context())
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
