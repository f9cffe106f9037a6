package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
	"github.com/pfrederiksen/speedhive-tools/internal/notifier"
	"github.com/pfrederiksen/speedhive-tools/internal/pipeline"
	"github.com/pfrederiksen/speedhive-tools/internal/record"
	"github.com/pfrederiksen/speedhive-tools/internal/snapshot"
	"github.com/pfrederiksen/speedhive-tools/internal/storage"
)

var (
	flagWatchOrg       int64
	flagWatchDataDir   string
	flagWatchNotify    string
	flagWatchMaxPosts  int
	flagWatchRefresh   bool
	flagWatchMaxEvents int
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report records announced since the last run",
		Long: `Collects an organization's records, compares them with the snapshot saved by
the previous run and reports only new records. Exits with status 2 when new
records were found so schedulers can react.`,
		RunE: runWatch,
	}

	cmd.Flags().Int64Var(&flagWatchOrg, "org", 0, "Organization id (required)")
	cmd.Flags().StringVar(&flagWatchDataDir, "data-dir", "", "Data directory for snapshots (default from config)")
	cmd.Flags().StringVar(&flagWatchNotify, "notify", "none", "Post new records: none, dry-run, twitter or telegram")
	cmd.Flags().IntVar(&flagWatchMaxPosts, "max-posts", 10, "Maximum number of posts per run")
	cmd.Flags().BoolVar(&flagWatchRefresh, "refresh", false, "Refresh snapshot without reporting new records")
	cmd.Flags().IntVar(&flagWatchMaxEvents, "max-events", 0, "Only walk the first N events (0 = all)")

	cmd.MarkFlagRequired("org")

	return cmd
}

// newNotifier creates the notifier named by --notify
func newNotifier(name string) (notifier.Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "dry-run":
		return notifier.NewDryRunNotifier(os.Stderr), nil
	case "twitter":
		return notifier.NewTwitterNotifier()
	case "telegram":
		return notifier.NewTelegramNotifier()
	}
	return nil, fmt.Errorf("invalid notifier: %s (must be none, dry-run, twitter or telegram)", name)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	notify, err := newNotifier(flagWatchNotify)
	if err != nil {
		return err
	}

	dataDir := flagWatchDataDir
	if dataDir == "" {
		dataDir = cfg.Output.DataDir
	}
	store, err := storage.New(dataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	collector := pipeline.NewCollector(newClient(), screenOptions(),
		pipeline.WithMaxEvents(flagWatchMaxEvents),
		pipeline.WithMetrics(metrics.Default),
		pipeline.WithLogger(logger.Default()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	collected, err := collector.Collect(ctx, flagWatchOrg)
	if err != nil {
		return err
	}

	if flagWatchRefresh {
		if err := store.CreateSnapshotFromRecords(collected.Records, flagWatchOrg); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshot refreshed successfully.")
		return nil
	}

	diff, changes, err := updateSnapshot(store, flagWatchOrg, collected.Records)
	if err != nil {
		return err
	}

	result := &WatchResult{
		OrgID:       flagWatchOrg,
		CheckedAt:   time.Now().UTC(),
		NewRecords:  diff.NewRecords,
		RecordCount: len(diff.NewRecords),
		ByClass:     diff.ByClass,
		Changes:     changes,
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		err = writeJSON(out, result)
	} else {
		err = writeWatchText(out, result, flagVerbose)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if notify != nil && len(diff.NewRecords) > 0 {
		if err := notify.Notify(notifier.Limit(diff.NewRecords, flagWatchMaxPosts)); err != nil {
			return fmt.Errorf("posting notifications: %w", err)
		}
	}

	// Set exit code based on whether new records were found
	if len(diff.NewRecords) > 0 {
		return &ExitCodeError{Code: ExitNewRecords}
	}
	return nil
}

// updateSnapshot diffs records against the saved snapshot, folds them into it
// and saves it again. Holder changes are only reported once a previous run
// left records to compare with.
func updateSnapshot(store *storage.Storage, orgID int64, records []record.Candidate) (*snapshot.DiffResult, []*snapshot.Change, error) {
	previous, err := store.LoadSnapshot(orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if flagVerbose {
		fmt.Fprintf(os.Stderr, "Loaded previous snapshot with %d records\n", len(previous.Records))
	}

	diff := snapshot.Diff(previous, records)
	var changes []*snapshot.Change
	if len(previous.Records) > 0 {
		current := snapshot.Create(records, time.Now().UTC().Format(time.RFC3339))
		changes = snapshot.CompareHolders(previous, current)
	}

	previous.Merge(records)
	previous.ChangeLog = append(previous.ChangeLog, changes...)
	if err := store.SaveSnapshot(previous, orgID); err != nil {
		return nil, nil, fmt.Errorf("saving snapshot: %w", err)
	}
	return diff, changes, nil
}
