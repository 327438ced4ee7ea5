package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/brk3/healthdata/internal/aggregator"
	"github.com/brk3/healthdata/internal/mainloop"
	"github.com/brk3/healthdata/internal/output"
	"github.com/brk3/healthdata/internal/session"
	"github.com/spf13/cobra"
)

const watchHelp = `commands: start YYYY-MM-DD | end YYYY-MM-DD | range YYYY-MM-DD YYYY-MM-DD | refresh | quit`

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Edit the date range interactively and print each new export",
	Long: `The "watch" command keeps a date range (today by default) and re-runs the export
every time the range is edited on stdin. Each new result is printed as it arrives; a
result for a range that has since been edited again is discarded.

` + watchHelp,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return watch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "grant read access without prompting")
}

func watch(cmd *cobra.Command) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	in := bufio.NewReader(cmd.InOrStdin())
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	store, err := openStore(prompterFor(assumeYes, in, stderr))
	if err != nil {
		return err
	}
	defer store.Close()

	display := output.NewDisplay()
	display.OnChange(func(text string) {
		fmt.Fprintln(stdout, text)
	})
	display.OnStatus(func(s output.Status, detail string) {
		fmt.Fprintf(stderr, "%s: %s\n", s, detail)
	})

	loop := mainloop.New(16)
	sess := session.New(store, loop, display,
		aggregator.Options{Location: loc, Timeout: cfg.QueryTimeout}, session.Today())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		defer loop.Stop()
		sess.Open(ctx)
		for {
			line, err := in.ReadString('\n')
			if line = strings.TrimSpace(line); line != "" {
				if quit := applyEdit(ctx, sess, line, stderr); quit {
					break
				}
			}
			if err != nil {
				break
			}
		}
		sess.Wait()
	}()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyEdit handles one stdin command and reports whether to stop.
func applyEdit(ctx context.Context, sess *session.Session, line string, stderr io.Writer) bool {
	loc, _ := cfg.Location()
	fields := strings.Fields(line)

	switch {
	case fields[0] == "quit" || fields[0] == "exit":
		return true
	case fields[0] == "refresh" && len(fields) == 1:
		sess.Refresh(ctx)
	case fields[0] == "start" && len(fields) == 2:
		t, err := parseDay(fields[1], loc)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return false
		}
		sess.SetStart(ctx, t)
	case fields[0] == "end" && len(fields) == 2:
		t, err := parseDay(fields[1], loc)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return false
		}
		sess.SetEnd(ctx, t)
	case fields[0] == "range" && len(fields) == 3:
		r, err := parseRange(fields[1], fields[2], loc)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return false
		}
		sess.SetRange(ctx, r)
	default:
		fmt.Fprintln(stderr, watchHelp)
	}
	return false
}
