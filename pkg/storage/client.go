package storage

import (
	"context"
	"time"
)

// BackupDescriptor identifies one stored backup object.
type BackupDescriptor struct {
	// Name is the object's display name (the last path element).
	Name string

	// ID is the opaque storage identifier used for deletion.
	ID string

	// CreatedAt is the storage-reported creation time.
	CreatedAt time.Time
}

// Client is the remote storage surface the sync pipeline runs against.
// IDs are opaque: callers obtain them from FindFile, EnsureFolder and
// Upload and pass them back unchanged.
type Client interface {
	// FindFile looks up a file by name inside a container. Returns
	// ErrNotFound when no such file exists.
	FindFile(ctx context.Context, containerID, name string) (string, error)

	// EnsureFolder returns the ID of a named folder inside a parent,
	// creating it when absent.
	EnsureFolder(ctx context.Context, parentID, name string) (string, error)

	// Download fetches an object's content.
	Download(ctx context.Context, id string) ([]byte, error)

	// Upload creates a new object inside a container and returns its ID.
	Upload(ctx context.Context, containerID, name string, data []byte) (string, error)

	// Update replaces the content of an existing object in place.
	Update(ctx context.Context, id string, data []byte) error

	// ListBackups returns the backups in a container whose names start
	// with prefix, newest first.
	ListBackups(ctx context.Context, containerID, prefix string) ([]BackupDescriptor, error)

	// Delete removes an object.
	Delete(ctx context.Context, id string) error
}
