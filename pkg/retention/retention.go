package retention

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tradesync/pkg/storage"
)

// Prune selects the backups to delete from a newest-first list: everything
// past the first keep entries. keep <= 0 deletes nothing (retention
// disabled rather than scorched earth). The input is not modified.
func Prune(backups []storage.BackupDescriptor, keep int) []storage.BackupDescriptor {
	if keep <= 0 || len(backups) <= keep {
		return nil
	}
	doomed := make([]storage.BackupDescriptor, len(backups)-keep)
	copy(doomed, backups[keep:])
	return doomed
}

// Manager applies the retention policy against remote storage.
type Manager struct {
	client storage.Client
	keep   int
}

// NewManager creates a Manager keeping the newest keep backups.
func NewManager(client storage.Client, keep int) *Manager {
	return &Manager{client: client, keep: keep}
}

// Apply lists backups matching prefix in a container and deletes the
// excess. Deletion is best effort: a failed delete is logged and counted
// but never stops the remaining deletes, and Apply itself only fails when
// the listing does.
func (m *Manager) Apply(ctx context.Context, containerID, prefix string) (deleted, failed int, err error) {
	backups, err := m.client.ListBackups(ctx, containerID, prefix)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list backups: %w", err)
	}

	doomed := Prune(backups, m.keep)
	for _, b := range doomed {
		if err := m.client.Delete(ctx, b.ID); err != nil {
			log.Warn().Err(err).Str("name", b.Name).Str("id", b.ID).
				Msg("failed to delete expired backup")
			failed++
			continue
		}
		log.Debug().Str("name", b.Name).Msg("deleted expired backup")
		deleted++
	}

	if len(doomed) > 0 {
		log.Info().Int("kept", m.keep).Int("deleted", deleted).Int("failed", failed).
			Msg("retention applied")
	}
	return deleted, failed, nil
}
