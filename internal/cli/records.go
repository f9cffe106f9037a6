package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/speedhive-tools/internal/export"
	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
	"github.com/pfrederiksen/speedhive-tools/internal/pipeline"
	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

const (
	recordsJSONFile   = "records.json"
	recordsCSVFile    = "records.csv"
	malformedLogFile  = "malformed_announcements.ndjson"
	trackRecordsCSV   = "track_records_%d.csv"
	defaultRecordSort = "class"
)

var (
	flagRecordsOrg       int64
	flagRecordsOutDir    string
	flagRecordsMaxEvents int
	flagRecordsSQLite    string
	flagRecordsSort      string
)

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Collect an organization's track records from the API",
		Long: `Walks every event and session of an organization, screens the session
announcements and writes the accepted records to records.json and records.csv.
Malformed announcements are logged to malformed_announcements.ndjson.`,
		RunE: runRecords,
	}

	cmd.Flags().Int64Var(&flagRecordsOrg, "org", 0, "Organization id (required)")
	cmd.Flags().StringVar(&flagRecordsOutDir, "out-dir", "", "Output directory (default <data_dir>/records/<org>)")
	cmd.Flags().IntVar(&flagRecordsMaxEvents, "max-events", 0, "Only walk the first N events (0 = all)")
	cmd.Flags().StringVar(&flagRecordsSQLite, "sqlite", "", "Also upsert records into this SQLite database")
	cmd.Flags().StringVar(&flagRecordsSort, "sort", defaultRecordSort, "Sort order: date, class, laptime or driver")
	addFilterFlags(cmd)

	cmd.MarkFlagRequired("org")

	return cmd
}

func runRecords(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	order, err := parseSortOrder(flagRecordsSort)
	if err != nil {
		return err
	}
	f, err := buildFilter()
	if err != nil {
		return err
	}

	outDir := flagRecordsOutDir
	if outDir == "" {
		if outDir, err = dataPath("records", strconv.FormatInt(flagRecordsOrg, 10)); err != nil {
			return err
		}
	}

	collector := pipeline.NewCollector(newClient(), screenOptions(),
		pipeline.WithMaxEvents(flagRecordsMaxEvents),
		pipeline.WithMetrics(metrics.Default),
		pipeline.WithLogger(logger.Default()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	collected, err := collector.Collect(ctx, flagRecordsOrg)
	if err != nil {
		return err
	}

	collected.Records = f.Apply(collected.Records)
	sortRecords(collected.Records, order)

	result := &RecordsResult{
		OrgID:       flagRecordsOrg,
		CollectedAt: time.Now().UTC(),
		Stats:       collected.Stats,
		Records:     collected.Records,
	}
	if result.Files, err = writeRecordFiles(ctx, outDir, collected); err != nil {
		return err
	}

	if flagVerbose {
		fmt.Fprintf(os.Stderr, "Collected %d records for organization %d\n", len(collected.Records), flagRecordsOrg)
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		err = writeJSON(out, result)
	} else {
		err = writeRecordsText(out, result, flagVerbose)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func screenOptions() record.ScreenOptions {
	return record.ScreenOptions{AllowMissingClass: cfg.Parsing.AllowMissingClass}
}

// writeRecordFiles writes the JSON, CSV, malformed log and optional SQLite
// outputs of a collection run and returns the paths written.
func writeRecordFiles(ctx context.Context, outDir string, collected *pipeline.Result) ([]string, error) {
	jsonPath := filepath.Join(outDir, recordsJSONFile)
	if err := export.WriteRecordsJSONFile(jsonPath, collected.Records); err != nil {
		return nil, err
	}
	metrics.Default.ObserveExport("json", len(collected.Records))

	csvPath := filepath.Join(outDir, recordsCSVFile)
	if err := export.WriteRecordsCSVFile(csvPath, collected.Records); err != nil {
		return nil, err
	}
	metrics.Default.ObserveExport("csv", len(collected.Records))

	logPath := filepath.Join(outDir, malformedLogFile)
	if err := writeMalformedLog(logPath, collected.Malformed); err != nil {
		return nil, err
	}
	files := []string{jsonPath, csvPath, logPath}

	if flagRecordsSQLite != "" {
		store, err := export.OpenSQLite(flagRecordsSQLite)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		defer store.Close()
		if err := store.SaveRecords(ctx, collected.Records); err != nil {
			return nil, err
		}
		metrics.Default.ObserveExport("sqlite", len(collected.Records))
		files = append(files, flagRecordsSQLite)
	}
	return files, nil
}

func writeMalformedLog(path string, rejected []pipeline.Rejected) error {
	log, err := export.OpenMalformedLog(path)
	if err != nil {
		return err
	}
	for _, r := range rejected {
		if err := log.Append(export.NewMalformedEntry(r.Announcement, r.Outcome)); err != nil {
			log.Close()
			return err
		}
	}
	return log.Close()
}
