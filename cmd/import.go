package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/brk3/healthdata/internal/server"
	"github.com/brk3/healthdata/pkg/activity"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load daily activity summaries into the store",
	Long: `The "import" command reads a JSON array of daily activity summaries from FILE
("-" for stdin) and writes them to the configured store, replacing any summary already
kept for the same day.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importSummaries(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func importSummaries(cmd *cobra.Command, path string) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var sums []activity.Summary
	if err := json.NewDecoder(r).Decode(&sums); err != nil {
		return fmt.Errorf("error reading summaries: %w", err)
	}

	store, err := openStore(nil)
	if err != nil {
		return err
	}
	defer store.Close()

	imp, ok := store.(server.Importer)
	if !ok {
		return fmt.Errorf("store does not accept imports")
	}
	if err := imp.PutSummaries(cmd.Context(), sums); err != nil {
		return fmt.Errorf("error importing summaries: %w", err)
	}
	cmd.Printf("Imported %d summaries\n", len(sums))
	return nil
}
