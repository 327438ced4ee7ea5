package cmd

import (
	"bufio"
	"fmt"

	"github.com/brk3/healthdata/internal/healthstore"
	"github.com/brk3/healthdata/internal/healthstore/bolt"
	"github.com/spf13/cobra"
)

var revoke bool

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Ask for, or reset, read access to activity data",
	Long: `The "authorize" command shows the read permission prompt if no decision has been
recorded yet and prints the result. With --revoke it forgets the recorded decision so the
next export asks again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authorize(cmd)
	},
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
	authorizeCmd.Flags().BoolVar(&revoke, "revoke", false, "forget the recorded decision")
	authorizeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "grant read access without prompting")
}

func authorize(cmd *cobra.Command) error {
	store, err := openStore(prompterFor(assumeYes, bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer store.Close()

	if revoke {
		local, ok := store.(*bolt.Store)
		if !ok {
			return fmt.Errorf("--revoke only applies to a local store")
		}
		if err := local.Revoke(); err != nil {
			return err
		}
		cmd.Println("Recorded decision cleared")
		return nil
	}

	granted, err := store.RequestAuthorization(cmd.Context(), healthstore.ReadCategories)
	if err != nil {
		return err
	}
	if granted {
		cmd.Println("Read access granted")
	} else {
		cmd.Println("Read access denied")
	}
	return nil
}
