package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

var (
	flagParseText      string
	flagParseEventDate string
	flagParseTrack     string
	flagParseSessionID int64
	flagParseStrict    bool
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [announcement text]",
		Short: "Parse and validate a single announcement",
		Long: `Screens one announcement the same way the collectors do and prints the
outcome: accepted with the parsed record, malformed with a reason, or ignored.`,
		Example: `  speedhive parse --track "Road America" "New Track Record (1:17.870) for IT7 by Bob Cross."`,
		RunE:    runParse,
	}

	cmd.Flags().StringVar(&flagParseText, "text", "", "Announcement text (or pass it as arguments)")
	cmd.Flags().StringVar(&flagParseEventDate, "event-date", "", "Event date (YYYY-MM-DD) used as the record date")
	cmd.Flags().StringVar(&flagParseTrack, "track", "", "Track name")
	cmd.Flags().Int64Var(&flagParseSessionID, "session-id", 0, "Session id for provenance")
	cmd.Flags().BoolVar(&flagParseStrict, "strict", false, "Reject records without a class even if the config allows them")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	text := flagParseText
	if text == "" {
		text = strings.Join(args, " ")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("announcement text is required (--text or arguments)")
	}

	opts := record.ScreenOptions{AllowMissingClass: cfg.Parsing.AllowMissingClass && !flagParseStrict}
	outcome := record.Screen(record.Announcement{
		Text: text,
		Metadata: record.Metadata{
			EventDate: flagParseEventDate,
			TrackName: flagParseTrack,
			SessionID: flagParseSessionID,
		},
	}, opts)
	metrics.Default.ObserveAnnouncement(string(outcome.Status))

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		err = writeJSON(out, outcome)
	} else {
		err = writeOutcomeText(out, outcome, flagVerbose)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if outcome.Status == record.StatusMalformed && flagVerbose {
		fmt.Fprintf(os.Stderr, "Announcement rejected: %s\n", outcome.Reason)
	}
	return nil
}
