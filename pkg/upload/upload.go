package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tradesync/pkg/retention"
	"github.com/ruslano69/tradesync/pkg/storage"
)

// Outcome is the terminal state of an upload run.
type Outcome string

const (
	// Committed means the master update succeeded and so did everything
	// else that was attempted.
	Committed Outcome = "committed"

	// PartiallyFailed means the master update succeeded but a secondary
	// task (backup, retention) did not. The ledger is safe.
	PartiallyFailed Outcome = "partially_failed"

	// Failed means the master update itself failed. Secondary results
	// are irrelevant to the verdict.
	Failed Outcome = "failed"
)

// BackupTimeFormat names backup objects: backup_20240115_1030_master.csv.
const BackupTimeFormat = "20060102_1504"

// Plan is everything the orchestrator needs for one run.
type Plan struct {
	// MasterName is the ledger file name in storage.
	MasterName string

	// ContainerID is the folder/prefix holding the ledger.
	ContainerID string

	// MasterID is the existing ledger object, empty when this is the
	// first run and the master must be created.
	MasterID string

	// Data is the encoded merged ledger.
	Data []byte

	// Backup configures the optional backup chain.
	Backup BackupPlan
}

// BackupPlan configures the secondary backup-and-retention task.
type BackupPlan struct {
	Enabled    bool
	FolderName string
	Keep       int
	Compress   bool
}

// TaskResult is the outcome of one task.
type TaskResult struct {
	Task     string
	Err      error
	Duration time.Duration
}

// Report is the outcome of an upload run. Warnings collects secondary
// failures in human-readable form; it is empty on a clean commit.
type Report struct {
	Outcome  Outcome
	Results  []TaskResult
	Warnings []string
}

// Orchestrator runs the persistence tasks of a sync concurrently through
// a bounded worker pool. The master update is mandatory and alone decides
// success; the backup chain is best effort.
type Orchestrator struct {
	client  storage.Client
	workers int
}

// DefaultWorkers bounds concurrent storage operations.
const DefaultWorkers = 3

// NewOrchestrator creates an Orchestrator. workers <= 0 uses
// DefaultWorkers.
func NewOrchestrator(client storage.Client, workers int) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{client: client, workers: workers}
}

// Run executes the plan. The error return mirrors the outcome: non-nil
// exactly when the master update failed.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (*Report, error) {
	type task struct {
		name string
		fn   func(context.Context) error
	}

	tasks := []task{
		{name: "master_update", fn: func(ctx context.Context) error {
			return o.persistMaster(ctx, plan)
		}},
	}
	if plan.Backup.Enabled {
		tasks = append(tasks, task{name: "backup", fn: func(ctx context.Context) error {
			return o.runBackupChain(ctx, plan)
		}})
	}

	results := make(chan TaskResult, len(tasks))
	sem := make(chan struct{}, o.workers)
	var wg sync.WaitGroup

	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := time.Now()
			err := t.fn(ctx)
			results <- TaskResult{Task: t.name, Err: err, Duration: time.Since(start)}
		}(t)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	report := &Report{}
	var masterErr error
	for r := range results {
		report.Results = append(report.Results, r)
		if r.Err == nil {
			continue
		}
		if r.Task == "master_update" {
			masterErr = r.Err
		} else {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%s: %v", r.Task, r.Err))
			log.Warn().Err(r.Err).Str("task", r.Task).Msg("secondary task failed")
		}
	}

	// Only the master result decides the verdict.
	switch {
	case masterErr != nil:
		report.Outcome = Failed
		return report, fmt.Errorf("master update failed: %w", masterErr)
	case len(report.Warnings) > 0:
		report.Outcome = PartiallyFailed
	default:
		report.Outcome = Committed
	}
	return report, nil
}

// persistMaster updates the existing ledger object, or creates it when
// the plan carries no ID.
func (o *Orchestrator) persistMaster(ctx context.Context, plan Plan) error {
	if plan.MasterID != "" {
		return o.client.Update(ctx, plan.MasterID, plan.Data)
	}
	_, err := o.client.Upload(ctx, plan.ContainerID, plan.MasterName, plan.Data)
	return err
}

// runBackupChain ensures the backup folder, uploads a timestamped copy
// and applies retention. The steps are sequential: each depends on its
// predecessor, so the chain occupies a single worker slot.
func (o *Orchestrator) runBackupChain(ctx context.Context, plan Plan) error {
	folderID, err := o.client.EnsureFolder(ctx, plan.ContainerID, plan.Backup.FolderName)
	if err != nil {
		return fmt.Errorf("failed to ensure backup folder: %w", err)
	}

	name := fmt.Sprintf("backup_%s_%s", time.Now().Format(BackupTimeFormat), plan.MasterName)
	data := plan.Data
	if plan.Backup.Compress {
		if data, err = Compress(plan.Data); err != nil {
			return fmt.Errorf("failed to compress backup: %w", err)
		}
		name += CompressedSuffix
	}

	if _, err := o.client.Upload(ctx, folderID, name, data); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	log.Debug().Str("name", name).Int("bytes", len(data)).Msg("backup uploaded")

	// Retention is best effort: individual delete failures are already
	// logged by the manager and never fail the chain, only a broken
	// listing does.
	mgr := retention.NewManager(o.client, plan.Backup.Keep)
	if _, _, err := mgr.Apply(ctx, folderID, "backup_"); err != nil {
		return fmt.Errorf("failed to apply retention: %w", err)
	}
	return nil
}
