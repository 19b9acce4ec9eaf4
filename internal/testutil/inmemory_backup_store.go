package testutil

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/domain/backup"
)

// InMemoryBackupStore implements backup.Repository
type InMemoryBackupStore struct {
	*InMemoryStore[*backup.Backup]
}

func NewInMemoryBackupStore() *InMemoryBackupStore {
	return &InMemoryBackupStore{
		InMemoryStore: NewInMemoryStore[*backup.Backup](),
	}
}

func copyBackup(b *backup.Backup) *backup.Backup {
	if b == nil {
		return nil
	}
	cp := *b
	return &cp
}

func (s *InMemoryBackupStore) Create(ctx context.Context, b *backup.Backup) error {
	return s.InMemoryStore.Create(ctx, b.ID, copyBackup(b))
}

func (s *InMemoryBackupStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *backup.Backup, _ interface{}) bool {
		return item.TakenAt.Before(cutoff)
	}, nil)
	if err != nil {
		return 0, err
	}
	for _, b := range stale {
		if err := s.InMemoryStore.Delete(ctx, b.ID); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
