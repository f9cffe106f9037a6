package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/speedhive-tools/internal/config"
	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
	"github.com/pfrederiksen/speedhive-tools/internal/speedhive"
)

const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitNewRecords = 2
)

// Version is set at build time.
var Version = "dev"

var (
	flagConfig   string
	flagVerbose  bool
	flagFormat   string
	flagLogLevel string
)

// cfg is loaded before any subcommand runs.
var cfg = config.Default()

// ExitCodeError makes Execute exit with Code without printing an error.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speedhive",
		Short: "Collect and parse track record announcements from Speedhive",
		Long: `A CLI tool for the Speedhive event results API.
Finds "New Track Record" and "New Class Record" announcements, parses them into
structured records and exports, reports or watches them.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.DefaultPath+")")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")

	cmd.AddCommand(
		newParseCmd(),
		newOrgsCmd(),
		newRecordsCmd(),
		newDumpCmd(),
		newExtractCmd(),
		newFastestCmd(),
		newWatchCmd(),
		newServeCmd(),
	)

	return cmd
}

// loadConfig reads the config file and sets up logging
func loadConfig(cmd *cobra.Command, args []string) error {
	if _, err := outputFormat(); err != nil {
		return err
	}

	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	cfg = loaded

	levelName := cfg.Logging.Level
	if flagLogLevel != "" {
		levelName = flagLogLevel
	}
	if flagVerbose {
		levelName = "debug"
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger.SetDefault(logger.New(level, os.Stderr))
	return nil
}

// outputFormat validates the --format flag
func outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(flagFormat)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	return format, nil
}

// newClient creates an API client from the loaded configuration
func newClient() *speedhive.Client {
	return speedhive.New(cfg.API, cfg.Retry,
		speedhive.WithLogger(logger.Default()),
		speedhive.WithMetrics(metrics.Default))
}

// dataPath resolves a path under the configured data directory
func dataPath(elem ...string) (string, error) {
	dir, err := config.ExpandHome(cfg.Output.DataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{dir}, elem...)...), nil
}

// Execute runs the CLI
func Execute() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		var exitErr *ExitCodeError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}
