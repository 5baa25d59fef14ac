// tradesync — synchronizes broker CSV exports into a master transaction
// ledger in object storage.
//
// Usage:
//
//	tradesync --config config.yaml --export fresh_export.csv [--dry-run]
//
// Flags:
//
//	--config       Path to config.yaml (default: config.yaml)
//	--export       Path to the fresh CSV export (required)
//	--dry-run      Merge and report, but do not touch storage
//	--xlsx         Also write the merged ledger to this XLSX file
//	--reset-state  Drop the local checkpoint before running
//	--version      Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tradesync/pkg/audit"
	"github.com/ruslano69/tradesync/pkg/config"
	"github.com/ruslano69/tradesync/pkg/notify"
	"github.com/ruslano69/tradesync/pkg/resultlog"
	"github.com/ruslano69/tradesync/pkg/storage"
	"github.com/ruslano69/tradesync/pkg/syncer"
	"github.com/ruslano69/tradesync/pkg/upload"
)

const version = "1.2.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	exportPath := flag.String("export", "", "path to the fresh CSV export")
	dryRun := flag.Bool("dry-run", false, "merge and report without touching storage")
	xlsxPath := flag.String("xlsx", "", "also write the merged ledger to this XLSX file")
	resetState := flag.Bool("reset-state", false, "drop the local checkpoint before running")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tradesync %s\n", version)
		return
	}

	// Pretty console log; switch to JSON in production via log.Logger = zerolog.New(os.Stderr)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if *exportPath == "" {
		flag.Usage()
		log.Fatal().Msg("--export is required")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("config load failed")
	}
	if *xlsxPath != "" {
		cfg.Report.Enabled = true
		cfg.Report.Destination = *xlsxPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := storage.NewS3Client(ctx, cfg.Storage, cfg.Retry)
	if err != nil {
		log.Fatal().Err(err).Msg("storage setup failed")
	}

	auditLogger, err := buildAuditLogger(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("audit setup failed")
	}
	defer auditLogger.Close()

	var results syncer.ResultPublisher
	if cfg.ResultLog.Type == "redis" {
		publisher := resultlog.NewRedisPublisher(cfg.ResultLog)
		defer publisher.Close()
		results = publisher
	}

	notifier, err := notify.New(cfg.Notify)
	if err != nil {
		log.Fatal().Err(err).Msg("notifier setup failed")
	}
	if err := notifier.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("notifier connection failed")
	}
	defer notifier.Close()

	var state *syncer.StateManager
	if cfg.State.Path != "" {
		state, err = syncer.NewStateManager(cfg.State.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.State.Path).Msg("state load failed")
		}
		if *resetState {
			if err := state.Reset(cfg.Name); err != nil {
				log.Fatal().Err(err).Msg("state reset failed")
			}
			log.Info().Str("pipeline", cfg.Name).Msg("checkpoint dropped")
		}
	}

	s, err := syncer.New(cfg, syncer.Options{
		Client:   client,
		Audit:    auditLogger,
		Results:  results,
		Notifier: notifier,
		State:    state,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("syncer setup failed")
	}

	summary, err := s.Run(ctx, *exportPath, *dryRun)
	printSummary(cfg, summary)
	if err != nil {
		log.Error().Err(err).Msg("sync failed")
		os.Exit(1)
	}
}

// buildAuditLogger assembles the appender chain the config asks for.
func buildAuditLogger(cfg *config.Config) (audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return audit.NewNullLogger(), nil
	}

	var appenders []audit.Appender
	if cfg.Audit.Output != "" {
		fa, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath: cfg.Audit.Output,
			Level:    audit.LevelStandard,
		})
		if err != nil {
			return nil, fmt.Errorf("file appender: %w", err)
		}
		appenders = append(appenders, fa)
	}
	if cfg.Audit.Database != "" {
		da, err := audit.NewDatabaseAppender(audit.DatabaseAppenderConfig{
			Path:  cfg.Audit.Database,
			Level: audit.LevelStandard,
		})
		if err != nil {
			return nil, fmt.Errorf("database appender: %w", err)
		}
		appenders = append(appenders, da)
	}
	if len(appenders) == 0 {
		return audit.NewNullLogger(), nil
	}

	return audit.NewLogger(audit.LoggerConfig{
		DefaultPipeline: cfg.Name,
		OnError: func(err error) {
			log.Warn().Err(err).Msg("audit appender failed")
		},
	}, appenders...), nil
}

func printSummary(cfg *config.Config, summary *syncer.Summary) {
	if summary == nil {
		return
	}

	switch summary.Outcome {
	case string(upload.Committed):
		fmt.Printf("✓ %s: %d new transaction(s), ledger now %d rows (%.2fs)\n",
			cfg.Target.MasterName, summary.Added, summary.Total, summary.Duration.Seconds())
	case string(upload.PartiallyFailed):
		fmt.Printf("⚠ %s: ledger updated (%d new, %d total) but with warnings:\n",
			cfg.Target.MasterName, summary.Added, summary.Total)
		for _, w := range summary.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	case syncer.OutcomeSkipped:
		fmt.Printf("✓ %s: already up to date (%d duplicates skipped)\n",
			cfg.Target.MasterName, summary.Duplicates)
	case syncer.OutcomeDryRun:
		fmt.Printf("dry run: %d new of %d fresh rows would be merged into %d total\n",
			summary.Added, summary.FreshRows, summary.Total)
	default:
		fmt.Printf("✗ %s: sync failed\n", cfg.Target.MasterName)
	}
}
