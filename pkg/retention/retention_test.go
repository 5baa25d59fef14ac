package retention

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ruslano69/tradesync/pkg/storage"
)

type fakeClient struct {
	storage.Client

	backups []storage.BackupDescriptor
	listErr error
	deleted []string
	failIDs map[string]bool
}

func (f *fakeClient) ListBackups(ctx context.Context, containerID, prefix string) ([]storage.BackupDescriptor, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.backups, nil
}

func (f *fakeClient) Delete(ctx context.Context, id string) error {
	if f.failIDs[id] {
		return errors.New("delete refused")
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func descriptors(n int) []storage.BackupDescriptor {
	// Newest first, as ListBackups guarantees.
	out := make([]storage.BackupDescriptor, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = storage.BackupDescriptor{
			Name:      fmt.Sprintf("backup_%02d.csv", n-i),
			ID:        fmt.Sprintf("id-%02d", n-i),
			CreatedAt: base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestPrune(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		keep   int
		doomed int
	}{
		{"excess deleted", 15, 10, 5},
		{"exactly at limit", 10, 10, 0},
		{"under limit", 3, 10, 0},
		{"keep zero disables", 15, 0, 0},
		{"negative keep disables", 15, -1, 0},
		{"empty list", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Prune(descriptors(tt.total), tt.keep)
			if len(got) != tt.doomed {
				t.Errorf("expected %d doomed, got %d", tt.doomed, len(got))
			}
		})
	}
}

func TestPruneSelectsOldest(t *testing.T) {
	backups := descriptors(5)
	doomed := Prune(backups, 3)

	if len(doomed) != 2 {
		t.Fatalf("expected 2 doomed, got %d", len(doomed))
	}
	// The doomed entries are the tail of the newest-first list.
	if doomed[0].ID != backups[3].ID || doomed[1].ID != backups[4].ID {
		t.Errorf("wrong backups selected: %v", doomed)
	}
}

func TestApplyDeletesExcess(t *testing.T) {
	fc := &fakeClient{backups: descriptors(15)}
	m := NewManager(fc, 10)

	deleted, failed, err := m.Apply(context.Background(), "folder", "backup_")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if deleted != 5 || failed != 0 {
		t.Errorf("expected 5 deleted 0 failed, got %d/%d", deleted, failed)
	}
}

func TestApplyBestEffort(t *testing.T) {
	backups := descriptors(15)
	fc := &fakeClient{
		backups: backups,
		failIDs: map[string]bool{backups[12].ID: true},
	}
	m := NewManager(fc, 10)

	deleted, failed, err := m.Apply(context.Background(), "folder", "backup_")
	if err != nil {
		t.Fatalf("a failed delete must not fail Apply: %v", err)
	}
	if deleted != 4 {
		t.Errorf("remaining deletes must proceed, got %d deleted", deleted)
	}
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
}

func TestApplyListFailure(t *testing.T) {
	fc := &fakeClient{listErr: errors.New("listing broke")}
	m := NewManager(fc, 10)

	if _, _, err := m.Apply(context.Background(), "folder", "backup_"); err == nil {
		t.Fatal("expected error when listing fails")
	}
	if len(fc.deleted) != 0 {
		t.Error("nothing must be deleted when listing fails")
	}
}
