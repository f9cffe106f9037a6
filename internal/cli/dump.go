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
	"github.com/pfrederiksen/speedhive-tools/internal/report"
	"github.com/pfrederiksen/speedhive-tools/internal/storage"
)

var (
	flagDumpOrgs        []int64
	flagDumpOutput      string
	flagDumpNoCompress  bool
	flagDumpConcurrency int
	flagDumpMaxEvents   int
	flagDumpNoLaps      bool

	flagExtractOrg     int64
	flagExtractDumpDir string
	flagExtractOutDir  string

	flagFastestOrg     int64
	flagFastestDumpDir string
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Export everything an organization published to NDJSON",
		Long: `Writes events, sessions, announcements and laps of each organization to
<output>/<org>/ as newline-delimited JSON (gzip compressed by default) together
with a manifest.json describing the run.`,
		RunE: runDump,
	}

	cmd.Flags().Int64SliceVar(&flagDumpOrgs, "org", nil, "Organization id (repeatable, required)")
	cmd.Flags().StringVar(&flagDumpOutput, "output", "", "Output directory (default <data_dir>/dumps)")
	cmd.Flags().BoolVar(&flagDumpNoCompress, "no-compress", false, "Write plain .ndjson files")
	cmd.Flags().IntVar(&flagDumpConcurrency, "concurrency", 0, "Events fetched in parallel (default from config)")
	cmd.Flags().IntVar(&flagDumpMaxEvents, "max-events", 0, "Only dump the first N events (0 = all)")
	cmd.Flags().BoolVar(&flagDumpNoLaps, "no-laps", false, "Skip lap data")

	cmd.MarkFlagRequired("org")

	return cmd
}

// dumpDir returns the dump directory of one organization
func dumpDir(base string, orgID int64) (string, error) {
	if base == "" {
		var err error
		if base, err = dataPath("dumps"); err != nil {
			return "", err
		}
	}
	return filepath.Join(base, strconv.FormatInt(orgID, 10)), nil
}

func runDump(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	dumpCfg := cfg.Dump
	if flagDumpConcurrency > 0 {
		dumpCfg.Concurrency = flagDumpConcurrency
	}
	if flagDumpNoLaps {
		dumpCfg.IncludeLaps = false
	}
	compress := cfg.Output.Compress && !flagDumpNoCompress

	dumper := storage.NewDumper(newClient(), dumpCfg, compress, logger.Default())
	dumper.SetMaxEvents(flagDumpMaxEvents)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	manifests := make([]*storage.Manifest, 0, len(flagDumpOrgs))
	for _, orgID := range flagDumpOrgs {
		dir, err := dumpDir(flagDumpOutput, orgID)
		if err != nil {
			return err
		}
		m, err := dumper.DumpOrganization(ctx, orgID, dir)
		if err != nil {
			return fmt.Errorf("dumping organization %d: %w", orgID, err)
		}
		manifests = append(manifests, m)

		if format == FormatText {
			fmt.Fprintf(cmd.OutOrStdout(), "Organization %d -> %s\n", orgID, dir)
			fmt.Fprintf(cmd.OutOrStdout(), "  events: %d, sessions: %d, announcements: %d, laps: %d\n",
				m.Counts[storage.StreamEvents], m.Counts[storage.StreamSessions],
				m.Counts[storage.StreamAnnouncements], m.Counts[storage.StreamLaps])
			if len(m.Errors) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  %d sessions had errors (see manifest.json)\n", len(m.Errors))
			}
		}
	}

	if format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), manifests)
	}
	return nil
}

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Parse track records out of a dump",
		Long: `Reads the announcements of a dump produced by "speedhive dump" and writes
the accepted records to track_records_<org>.csv, without calling the API.`,
		RunE: runExtract,
	}

	cmd.Flags().Int64Var(&flagExtractOrg, "org", 0, "Organization id (required)")
	cmd.Flags().StringVar(&flagExtractDumpDir, "dump-dir", "", "Dump directory (default <data_dir>/dumps/<org>)")
	cmd.Flags().StringVar(&flagExtractOutDir, "out-dir", "", "Output directory (default the dump directory)")

	cmd.MarkFlagRequired("org")

	return cmd
}

// screenDump screens every announcement of an organization's dump
func screenDump(orgID int64, dir string) (string, *pipeline.Result, error) {
	if dir == "" {
		var err error
		if dir, err = dumpDir("", orgID); err != nil {
			return "", nil, err
		}
	}
	anns, err := storage.LoadDumpAnnouncements(dir)
	if err != nil {
		return "", nil, fmt.Errorf("loading dump: %w", err)
	}
	return dir, pipeline.ScreenAll(anns, screenOptions(), metrics.Default), nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	dir, screened, err := screenDump(flagExtractOrg, flagExtractDumpDir)
	if err != nil {
		return err
	}
	sortRecords(screened.Records, SortByClass)

	outDir := flagExtractOutDir
	if outDir == "" {
		outDir = dir
	}
	csvPath := filepath.Join(outDir, fmt.Sprintf(trackRecordsCSV, flagExtractOrg))
	if err := export.WriteRecordsCSVFile(csvPath, screened.Records); err != nil {
		return err
	}
	metrics.Default.ObserveExport("csv", len(screened.Records))

	logPath := filepath.Join(outDir, malformedLogFile)
	if err := writeMalformedLog(logPath, screened.Malformed); err != nil {
		return err
	}

	if flagVerbose {
		fmt.Fprintf(os.Stderr, "Screened %d announcements from %s\n", screened.Stats.Announcements, dir)
	}

	result := &RecordsResult{
		OrgID:       flagExtractOrg,
		CollectedAt: time.Now().UTC(),
		Stats:       screened.Stats,
		Records:     screened.Records,
		Files:       []string{csvPath, logPath},
	}
	if format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return writeRecordsText(cmd.OutOrStdout(), result, flagVerbose)
}

func newFastestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fastest",
		Short: "Show the fastest record per class from a dump",
		RunE:  runFastest,
	}

	cmd.Flags().Int64Var(&flagFastestOrg, "org", 0, "Organization id (required)")
	cmd.Flags().StringVar(&flagFastestDumpDir, "dump-dir", "", "Dump directory (default <data_dir>/dumps/<org>)")
	addFilterFlags(cmd)

	cmd.MarkFlagRequired("org")

	return cmd
}

func runFastest(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	f, err := buildFilter()
	if err != nil {
		return err
	}

	_, screened, err := screenDump(flagFastestOrg, flagFastestDumpDir)
	if err != nil {
		return err
	}
	if flagVerbose && !f.IsEmpty() {
		fmt.Fprintf(os.Stderr, "Filter: %s\n", f)
	}

	result := buildFastest(flagFastestOrg, f.Apply(screened.Records))
	if format == FormatJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return writeFastestText(cmd.OutOrStdout(), result)
}

func buildFastest(orgID int64, records []record.Candidate) *FastestResult {
	fastest := report.FastestByClass(records)
	result := &FastestResult{OrgID: orgID, Classes: report.SortedClasses(fastest)}
	for _, class := range result.Classes {
		result.Fastest = append(result.Fastest, fastest[class])
	}
	return result
}
