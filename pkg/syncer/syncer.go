package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tradesync/pkg/audit"
	"github.com/ruslano69/tradesync/pkg/config"
	"github.com/ruslano69/tradesync/pkg/csvcodec"
	"github.com/ruslano69/tradesync/pkg/dataset"
	"github.com/ruslano69/tradesync/pkg/fingerprint"
	"github.com/ruslano69/tradesync/pkg/merge"
	"github.com/ruslano69/tradesync/pkg/normalize"
	"github.com/ruslano69/tradesync/pkg/notify"
	"github.com/ruslano69/tradesync/pkg/resultlog"
	"github.com/ruslano69/tradesync/pkg/storage"
	"github.com/ruslano69/tradesync/pkg/upload"
	"github.com/ruslano69/tradesync/pkg/xlsx"
)

// Run outcomes beyond the upload orchestrator's own.
const (
	// OutcomeSkipped means the merge produced nothing new, so storage
	// was not touched.
	OutcomeSkipped = "skipped"

	// OutcomeDryRun means the run stopped before persisting by request.
	OutcomeDryRun = "dry_run"
)

// ResultPublisher publishes run results for orchestrators. Satisfied by
// resultlog.RedisPublisher.
type ResultPublisher interface {
	Publish(ctx context.Context, result resultlog.SyncResult) error
	Close() error
}

// Summary is what one sync run did.
type Summary struct {
	Outcome    string
	MasterRows int
	FreshRows  int
	Added      int
	Duplicates int
	Total      int
	Warnings   []string
	Duration   time.Duration
	DryRun     bool
}

// Options are the collaborators of a Syncer. Client is required; nil
// optional collaborators are replaced by no-ops.
type Options struct {
	Client   storage.Client
	Audit    audit.Logger
	Results  ResultPublisher
	Notifier notify.Publisher
	State    *StateManager
}

// Syncer runs the full pipeline: download master, merge the fresh
// export into it, persist the result with backups and retention, and
// fan the outcome out to audit, result log and notifications.
type Syncer struct {
	cfg      *config.Config
	client   storage.Client
	codec    *csvcodec.Codec
	norm     *normalize.Normalizer
	engine   *merge.Engine
	audit    audit.Logger
	results  ResultPublisher
	notifier notify.Publisher
	state    *StateManager
}

// New wires a Syncer from configuration.
func New(cfg *config.Config, opts Options) (*Syncer, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("storage client is required")
	}

	norm := normalize.New(normalize.Config{
		NumericFields: cfg.CSV.NumericFields,
		DateField:     cfg.CSV.DateField,
		DateFormats:   cfg.CSV.DateFormats,
	})

	codec := csvcodec.New(csvcodec.Config{
		Delimiter:  firstRune(cfg.CSV.Delimiter),
		Encoding:   cfg.CSV.Encoding,
		DecimalSep: firstRune(cfg.CSV.DecimalSep),
	}, norm)

	auditLogger := opts.Audit
	if auditLogger == nil {
		auditLogger = audit.NewNullLogger()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewNullPublisher()
	}

	return &Syncer{
		cfg:      cfg,
		client:   opts.Client,
		codec:    codec,
		norm:     norm,
		engine:   merge.NewEngine(norm),
		audit:    auditLogger,
		results:  opts.Results,
		notifier: notifier,
		state:    opts.State,
	}, nil
}

// Run synchronizes one fresh export into the master ledger. The error
// is non-nil only for fatal conditions: unreadable input, undecodable
// data, or a failed master update. Backup and reporting trouble surfaces
// as warnings in the summary instead.
func (s *Syncer) Run(ctx context.Context, exportPath string, dryRun bool) (*Summary, error) {
	start := time.Now()
	summary := &Summary{DryRun: dryRun}

	finish := func(outcome string, runErr error) (*Summary, error) {
		summary.Outcome = outcome
		summary.Duration = time.Since(start)
		s.publish(ctx, start, summary, runErr)
		return summary, runErr
	}

	freshBytes, err := os.ReadFile(exportPath)
	if err != nil {
		return finish(string(upload.Failed), fmt.Errorf("failed to read export: %w", err))
	}
	freshDS, err := s.codec.Decode(freshBytes)
	if err != nil {
		return finish(string(upload.Failed), fmt.Errorf("failed to decode export: %w", err))
	}

	masterID, masterBytes, masterDS, err := s.fetchMaster(ctx)
	if err != nil {
		s.audit.LogFailure(ctx, audit.OpDownload, err)
		return finish(string(upload.Failed), err)
	}

	result := s.engine.Merge(masterDS, freshDS)
	summary.MasterRows = result.Stats.MasterRowsIn
	summary.FreshRows = result.Stats.FreshRowsIn
	summary.Added = result.Added
	summary.Duplicates = result.Stats.Duplicates
	summary.Total = result.Dataset.Len()

	s.audit.Log(ctx, audit.NewEntry(audit.OpMerge, audit.StatusSuccess).
		WithResource(s.cfg.Target.MasterName).
		WithRecordsAffected(int64(result.Dataset.Len())).
		WithMetadata("added", result.Added).
		WithMetadata("duplicates", result.Stats.Duplicates))

	encoded, err := s.codec.Encode(result.Dataset)
	if err != nil {
		return finish(string(upload.Failed), fmt.Errorf("failed to encode merged ledger: %w", err))
	}
	checksum := fingerprint.Checksum(encoded)

	// Nothing new and nothing changed: leave storage alone. The ledger
	// in place stays authoritative.
	if masterID != "" && (result.Added == 0 || checksum == fingerprint.Checksum(masterBytes)) {
		log.Info().Str("master", s.cfg.Target.MasterName).Msg("no new transactions, skipping upload")
		s.checkpoint(OutcomeSkipped, summary, checksum, nil)
		return finish(OutcomeSkipped, nil)
	}

	if dryRun {
		log.Info().
			Int("added", result.Added).
			Int("total", result.Dataset.Len()).
			Msg("dry run, not persisting")
		return finish(OutcomeDryRun, nil)
	}

	report, err := s.persist(ctx, masterID, encoded)
	summary.Warnings = append(summary.Warnings, report.Warnings...)
	if err != nil {
		s.audit.Log(ctx, audit.NewEntry(audit.OpUpload, audit.StatusFailure).
			WithResource(s.cfg.Target.MasterName).
			WithError(err))
		s.checkpoint(string(report.Outcome), summary, "", err)
		return finish(string(report.Outcome), err)
	}

	s.audit.Log(ctx, audit.NewEntry(audit.OpUpload, audit.StatusSuccess).
		WithResource(s.cfg.Target.MasterName).
		WithRecordsAffected(int64(result.Dataset.Len())))

	if s.cfg.Report.Enabled {
		if err := xlsx.Export(result.Dataset, s.norm, s.cfg.Report.Destination, s.cfg.Report.Sheet); err != nil {
			warning := fmt.Sprintf("xlsx report: %v", err)
			summary.Warnings = append(summary.Warnings, warning)
			s.audit.LogFailure(ctx, audit.OpExport, err)
			log.Warn().Err(err).Msg("failed to write xlsx report")
		} else {
			s.audit.Log(ctx, audit.NewEntry(audit.OpExport, audit.StatusSuccess).
				WithResource(s.cfg.Report.Destination))
		}
	}

	outcome := string(report.Outcome)
	if len(summary.Warnings) > 0 {
		outcome = string(upload.PartiallyFailed)
	}
	s.checkpoint(outcome, summary, checksum, nil)
	return finish(outcome, nil)
}

// fetchMaster locates, downloads and decodes the master ledger. A
// missing master is a legitimate first run: all returns are zero. A
// master that exists but cannot be decoded is fatal, overwriting it
// could destroy the ledger.
func (s *Syncer) fetchMaster(ctx context.Context) (string, []byte, *dataset.Dataset, error) {
	id, err := s.client.FindFile(ctx, s.cfg.Target.Prefix, s.cfg.Target.MasterName)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info().Str("master", s.cfg.Target.MasterName).Msg("master not found, first sync will create it")
		return "", nil, nil, nil
	}
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to locate master: %w", err)
	}

	data, err := s.client.Download(ctx, id)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to download master: %w", err)
	}

	ds, err := s.codec.Decode(data)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to decode master: %w", err)
	}

	s.audit.Log(ctx, audit.NewEntry(audit.OpDownload, audit.StatusSuccess).
		WithResource(s.cfg.Target.MasterName).
		WithRecordsAffected(int64(ds.Len())))

	return id, data, ds, nil
}

// persist runs the upload orchestration. The backup chain only runs when
// a master already existed: the first sync has no prior snapshot worth
// preserving.
func (s *Syncer) persist(ctx context.Context, masterID string, encoded []byte) (*upload.Report, error) {
	orchestrator := upload.NewOrchestrator(s.client, s.cfg.Upload.Workers)
	return orchestrator.Run(ctx, upload.Plan{
		MasterName:  s.cfg.Target.MasterName,
		ContainerID: s.cfg.Target.Prefix,
		MasterID:    masterID,
		Data:        encoded,
		Backup: upload.BackupPlan{
			Enabled:    s.cfg.Backup.Enabled && masterID != "",
			FolderName: s.cfg.Backup.Folder,
			Keep:       s.cfg.Backup.Keep,
			Compress:   s.cfg.Backup.Compress,
		},
	})
}

// checkpoint records the run in the local state file.
func (s *Syncer) checkpoint(outcome string, summary *Summary, checksum string, runErr error) {
	if s.state == nil {
		return
	}

	state := RunState{
		Pipeline:       s.cfg.Name,
		LastOutcome:    outcome,
		RowsTotal:      summary.Total,
		RowsAdded:      summary.Added,
		MasterChecksum: checksum,
	}
	if runErr != nil {
		state.LastError = runErr.Error()
	}
	if err := s.state.Update(state); err != nil {
		log.Warn().Err(err).Msg("failed to save sync state")
	}
}

// publish fans the outcome out to the result log and the notifier.
// Both are best effort; the run's verdict is already decided.
func (s *Syncer) publish(ctx context.Context, start time.Time, summary *Summary, runErr error) {
	if s.results != nil {
		result := resultlog.SyncResult{
			Pipeline:   s.cfg.Name,
			Status:     summary.Outcome,
			StartedAt:  start,
			FinishedAt: time.Now(),
			DurationMs: time.Since(start).Milliseconds(),
			RowsTotal:  summary.Total,
			RowsAdded:  summary.Added,
			Duplicates: summary.Duplicates,
			Warnings:   summary.Warnings,
		}
		if runErr != nil {
			errStr := runErr.Error()
			result.Error = &errStr
		}
		if err := s.results.Publish(ctx, result); err != nil {
			log.Warn().Err(err).Msg("failed to publish sync result")
		}
	}

	event := notify.Event{
		Pipeline:   s.cfg.Name,
		Outcome:    summary.Outcome,
		MasterName: s.cfg.Target.MasterName,
		RowsTotal:  summary.Total,
		RowsAdded:  summary.Added,
		Warnings:   summary.Warnings,
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish sync event")
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
