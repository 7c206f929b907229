package queuestore

import (
	"context"

	"github.com/queuewise/backend/internal/types"
)

// Mirror is the fast external cache the store mirrors items into
// (redis hash in production). Best-effort: failures are logged, not
// propagated.
type Mirror interface {
	SaveItem(ctx context.Context, item *types.QueueItem) error
	RemoveItem(ctx context.Context, id string) error
}

// DurableWriter receives the write-behind copy of every committed mutation
type DurableWriter interface {
	SaveQueueItem(ctx context.Context, record types.QueueItemRecord) error
}
