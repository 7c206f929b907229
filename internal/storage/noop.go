package storage

import (
	"context"

	"github.com/queuewise/backend/internal/types"
)

// Store defines the durable storage interface
type Store interface {
	SaveQueueItem(ctx context.Context, record types.QueueItemRecord) error
	LoadOpenItems(ctx context.Context) ([]types.QueueItemRecord, error)
	GetDepartmentItems(ctx context.Context, departmentID string) ([]types.QueueItemRecord, error)
	TruncateAll(ctx context.Context) error
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveQueueItem(_ context.Context, _ types.QueueItemRecord) error { return nil }
func (s *NoopStore) LoadOpenItems(_ context.Context) ([]types.QueueItemRecord, error) {
	return nil, nil
}
func (s *NoopStore) GetDepartmentItems(_ context.Context, _ string) ([]types.QueueItemRecord, error) {
	return nil, nil
}
func (s *NoopStore) TruncateAll(_ context.Context) error { return nil }
