package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brk3/healthdata/internal/aggregator"
	"github.com/brk3/healthdata/internal/mainloop"
	"github.com/brk3/healthdata/internal/output"
	"github.com/brk3/healthdata/internal/output/resend"
	"github.com/brk3/healthdata/internal/session"
	"github.com/brk3/healthdata/pkg/activity"
	"github.com/spf13/cobra"
)

var (
	exportStart string
	exportEnd   string
	exportOut   string
	exportEmail bool
	assumeYes   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print activity entries for a range of days as JSON",
	Long: `The "export" command reads the daily activity summaries between --start and --end
(inclusive, YYYY-MM-DD, both defaulting to today) and prints one entry per day with its
move (kcal), exercise (minutes) and stand (hours) values.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return export(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportStart, "start", "", "first day to export (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "last day to export (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "also write the export to this file")
	exportCmd.Flags().BoolVar(&exportEmail, "email", false, "also email the export using the configured Resend account")
	exportCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "grant read access without prompting")
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q: must be YYYY-MM-DD", s)
	}
	return t, nil
}

func parseRange(start, end string, loc *time.Location) (activity.DateRange, error) {
	s, err := parseDay(start, loc)
	if err != nil {
		return activity.DateRange{}, err
	}
	e, err := parseDay(end, loc)
	if err != nil {
		return activity.DateRange{}, err
	}
	return activity.DateRange{Start: s, End: e}, nil
}

func export(cmd *cobra.Command) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	rng, err := parseRange(exportStart, exportEnd, loc)
	if err != nil {
		return err
	}

	store, err := openStore(prompterFor(assumeYes, bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer store.Close()

	display := output.NewDisplay()
	publishers := []output.Publisher{display}
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		publishers = append(publishers, output.WriterSink{W: f})
	}
	if exportEmail {
		if !cfg.EmailEnabled() {
			return fmt.Errorf("--email needs email.resend_api_key and email.to in the config")
		}
		publishers = append(publishers, resend.NewEmailSink(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.To))
	}

	loop := mainloop.New(1)
	sess := session.New(store, loop, output.Multi(publishers...),
		aggregator.Options{Location: loc, Timeout: cfg.QueryTimeout}, rng)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		defer loop.Stop()
		sess.Open(ctx)
		sess.Wait()
	}()
	if err := loop.Run(ctx); err != nil {
		return err
	}

	status, detail := display.Status()
	switch status {
	case output.StatusError:
		return fmt.Errorf("export failed: %s", detail)
	case output.StatusDenied:
		cmd.PrintErrln("warning:", detail)
	}

	text := display.Text()
	if text == "" {
		// nothing was published for this range
		text, _ = activity.Encode(nil)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
