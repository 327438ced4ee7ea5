package cmd

import (
	"github.com/brk3/healthdata/internal/apiclient"
	"github.com/brk3/healthdata/pkg/versioninfo"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `The "version" command displays the current version info for both client
and server if one is configured.`,
	Run: func(cmd *cobra.Command, args []string) {
		version(cmd)
	},
}

func version(cmd *cobra.Command) {
	cmd.Printf("Client Version: %s\n", versioninfo.Version)
	if !cfg.Remote() {
		return
	}

	info, err := apiclient.New(cfg.APIBaseURL, cfg.APIKey).Version(cmd.Context())
	if err != nil {
		cmd.Println("Error fetching server version:", err)
		return
	}
	cmd.Printf("Server Version: %s\n", info.Version)
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
