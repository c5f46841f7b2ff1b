// Package cmd provides the command-line interface for secanalytics.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"secanalytics/bootstrap"
	"secanalytics/config"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	configFile string
	outputJSON bool
	outputYAML bool
	noColor    bool
	quiet      bool
	verbose    bool
)

// defaultTimeout bounds one-shot CLI operations
const defaultTimeout = 5 * time.Minute

// NewRootCmd creates the secanalytics command. Without a subcommand it
// runs the server.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "secanalytics",
		Short: "Security Analytics overview service",
		Long: `secanalytics aggregates detectors, findings and alerts from an OpenSearch
Security Analytics backend into a single overview.

Run without a subcommand to start the API server with auto-refresh, or use
one of the subcommands for a one-shot query.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default: ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVar(&outputYAML, "yaml", false, "Output in YAML format")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show service logs on stderr")
	root.MarkFlagsMutuallyExclusive("json", "yaml")

	root.AddCommand(newServeCmd())
	root.AddCommand(newOverviewCmd())
	root.AddCommand(newDetectorsCmd())
	root.AddCommand(newFindingsCmd())
	root.AddCommand(newAlertsCmd())
	root.AddCommand(newThreatIntelCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and the overview auto-refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := bootstrap.NewApp(ctx, configFile)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(); err != nil {
		app.Shutdown()
		return fmt.Errorf("failed to start application: %w", err)
	}

	app.WaitForShutdown()
	app.Shutdown()
	return nil
}

// initComponents loads the config and wires the stores for a one-shot
// command. Service logs go to stderr only with --verbose.
func initComponents(ctx context.Context) (*bootstrap.Components, *config.Config, func(), error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		// stdout carries command output, so logs go to stderr
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	sugar := logger.Sugar()

	components, err := bootstrap.NewComponents(ctx, cfg, noop.NewTracerProvider(), sugar)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		components.Close(closeCtx, sugar)
		_ = logger.Sync()
	}
	return components, cfg, cleanup, nil
}

// withSpinner runs fn behind a progress spinner unless output is machine-readable
func withSpinner(suffix string, fn func()) {
	if outputJSON || outputYAML || quiet {
		fn()
		return
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	defer s.Stop()
	fn()
}

// structured writes data as JSON or YAML when requested and reports
// whether it did
func structured(w io.Writer, data interface{}) (bool, error) {
	switch {
	case outputJSON:
		return true, outputAsJSON(w, data)
	case outputYAML:
		return true, outputAsYAML(w, data)
	}
	return false, nil
}

func outputAsJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputAsYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}
