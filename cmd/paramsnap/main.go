package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ormasoftchile/paramsnap/pkg/config"
	"github.com/ormasoftchile/paramsnap/pkg/logging"
	"github.com/ormasoftchile/paramsnap/pkg/metrics"
	"github.com/ormasoftchile/paramsnap/pkg/restore"
	"github.com/ormasoftchile/paramsnap/pkg/snapshot"
	"github.com/ormasoftchile/paramsnap/pkg/storage"
	"github.com/ormasoftchile/paramsnap/pkg/trace"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	loadDotEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotEnv reads .env from the working directory without overriding
// variables that are already set. A missing file is fine.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}
}

var (
	configPath  string
	logLevel    string
	tracePath   string
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "paramsnap",
	Short: "Snapshot and restore slider banks and points in a graph canvas",
	Long: "paramsnap stores slider-bank and point parameters to a JSON snapshot and restores them\n" +
		"into a canvas document, rewiring downstream consumers and laying the new nodes out.",
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// app holds what every command shares once flags and config are resolved.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	trace   *trace.Writer
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	store   storage.Store
}

var rt *app

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if tracePath != "" {
		cfg.Trace.Path = tracePath
	}
	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		trace: trace.Nop(),
		reg:   prometheus.NewRegistry(),
	}
	a.metrics = metrics.New(a.reg)
	if cfg.Trace.Path != "" {
		tw, err := trace.NewFileWriter(cfg.Trace.Path)
		if err != nil {
			return err
		}
		a.trace = tw
	}
	rt = a
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if rt == nil {
		return nil
	}
	var errs []error
	if metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, rt.reg); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if c, ok := rt.store.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, rt.trace.Close())
	return errors.Join(errs...)
}

// snapshots opens the configured snapshot store on first use.
func (a *app) snapshots(ctx context.Context) (storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := storage.Open(ctx, a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	a.store = s
	return s, nil
}

func (a *app) writer(store storage.Store) *snapshot.Writer {
	return snapshot.NewWriter(store,
		snapshot.WithWriterLogger(a.log),
		snapshot.WithWriterTrace(a.trace),
		snapshot.WithWriterMetrics(a.metrics))
}

func (a *app) restoreOptions() (restore.Options, error) {
	return a.cfg.RestoreOptions()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("paramsnap %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to paramsnap.yaml (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&tracePath, "trace", "", "Append JSONL trace events to this file")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file on exit")

	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(diagramCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(versionCmd)
}
