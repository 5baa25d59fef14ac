package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level controls how much of an entry reaches an appender.
type Level int

const (
	// LevelMinimal keeps only the core operation fields.
	LevelMinimal Level = iota

	// LevelStandard keeps everything except raw operation data.
	LevelStandard

	// LevelFull keeps everything.
	LevelFull
)

func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// Operation names a step of the sync pipeline.
type Operation string

const (
	OpSync     Operation = "sync"
	OpDownload Operation = "download"
	OpMerge    Operation = "merge"
	OpUpload   Operation = "upload"
	OpBackup   Operation = "backup"
	OpPrune    Operation = "prune"
	OpExport   Operation = "export"
)

// Status is how an operation ended.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
	StatusSkipped Status = "skipped"
)

// Entry is one audit record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`
	Status    Status    `json:"status"`

	// Pipeline is the configured pipeline name.
	Pipeline string `json:"pipeline,omitempty"`

	// Resource is the object acted on (master file, backup name).
	Resource string `json:"resource,omitempty"`

	// RecordsAffected counts rows touched by the operation.
	RecordsAffected int64 `json:"records_affected,omitempty"`

	Duration     time.Duration  `json:"duration,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`

	// Data holds operation payload details, written only at LevelFull.
	Data any `json:"data,omitempty"`
}

// NewEntry creates an entry stamped with the current time.
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        generateID(),
		Timestamp: time.Now(),
		Operation: operation,
		Status:    status,
		Metadata:  make(map[string]any),
	}
}

func (e *Entry) WithPipeline(name string) *Entry {
	e.Pipeline = name
	return e
}

func (e *Entry) WithResource(resource string) *Entry {
	e.Resource = resource
	return e
}

func (e *Entry) WithRecordsAffected(count int64) *Entry {
	e.RecordsAffected = count
	return e
}

func (e *Entry) WithDuration(duration time.Duration) *Entry {
	e.Duration = duration
	return e
}

// WithError records the error and flips the status to failure.
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.ErrorMessage = err.Error()
		e.Status = StatusFailure
	}
	return e
}

func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

func (e *Entry) WithData(data any) *Entry {
	e.Data = data
	return e
}

// ToJSON marshals the entry.
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Entry) String() string {
	return fmt.Sprintf("[%s] %s %s (resource=%s, records=%d, duration=%v)",
		e.Timestamp.Format(time.RFC3339),
		e.Operation,
		e.Status,
		e.Resource,
		e.RecordsAffected,
		e.Duration,
	)
}

// Clone returns a copy sharing no mutable state with the original.
func (e *Entry) Clone() *Entry {
	clone := *e
	if e.Metadata != nil {
		clone.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// FilterByLevel strips fields the level does not keep.
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()

	switch level {
	case LevelMinimal:
		filtered.Metadata = nil
		filtered.Data = nil

	case LevelStandard:
		filtered.Data = nil

	case LevelFull:
	}

	return filtered
}

func generateID() string {
	return fmt.Sprintf("audit-%d-%d",
		time.Now().UnixNano(),
		time.Now().Unix()%1000,
	)
}
