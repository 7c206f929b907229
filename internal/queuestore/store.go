package queuestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/queuewise/backend/internal/qerrors"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// validTransitions encodes the queue item state machine
var validTransitions = map[types.QueueStatus][]types.QueueStatus{
	types.StatusWaiting:    {types.StatusAssigned, types.StatusClosed},
	types.StatusAssigned:   {types.StatusProcessing, types.StatusClosed},
	types.StatusProcessing: {types.StatusClosed},
	types.StatusClosed:     {},
}

func transitionAllowed(from, to types.QueueStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Store is the authoritative in-process representation of queue items.
// Mutations are mirrored asynchronously to the fast cache and the durable
// store; neither is consulted on the hot path. A single background writer
// drains the write-behind queue, so external copies always see mutations
// for an item in commit order.
type Store struct {
	items    map[string]*types.QueueItem
	byTicket map[string]string // departmentID+"/"+ticketID -> open item id

	mirror  Mirror
	durable DurableWriter
	writes  chan writeOp

	closedTTL time.Duration
	mu        sync.RWMutex
	logger    zerolog.Logger
}

// writeOp is one entry in the write-behind queue: either a committed item
// snapshot to save or an id to remove from the mirror
type writeOp struct {
	item   *types.QueueItem
	remove string
}

const writeQueueSize = 1024

// Option configures a Store
type Option func(*Store)

// WithMirror attaches a fast-cache mirror (redis)
func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

// WithDurable attaches the durable write-behind store
func WithDurable(d DurableWriter) Option {
	return func(s *Store) { s.durable = d }
}

// WithClosedTTL overrides how long CLOSED items stay resident for metrics
// and audit before the janitor evicts them
func WithClosedTTL(ttl time.Duration) Option {
	return func(s *Store) { s.closedTTL = ttl }
}

// New creates an empty store
func New(logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		items:     make(map[string]*types.QueueItem),
		byTicket:  make(map[string]string),
		closedTTL: 30 * time.Minute,
		logger:    logger.With().Str("component", "queuestore").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mirror != nil || s.durable != nil {
		s.writes = make(chan writeOp, writeQueueSize)
		go s.writeLoop()
	}
	return s
}

// Insert adds a new queue item. Fails validation when an open item already
// exists for the same ticket and department.
func (s *Store) Insert(item *types.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return qerrors.NewValidation("id", "queue item already exists")
	}
	key := ticketKey(item.DepartmentID, item.TicketID)
	if _, exists := s.byTicket[key]; exists {
		return qerrors.NewValidation("ticketId", "open queue item already exists for ticket")
	}

	stored := cloneItem(item)
	s.items[item.ID] = stored
	if stored.Status != types.StatusClosed {
		s.byTicket[key] = item.ID
	}

	s.writeBehind(cloneItem(stored))
	return nil
}

// Get returns a copy of the item with the given id
func (s *Store) Get(id string) (*types.QueueItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return cloneItem(item), true
}

// FindOpenByTicket returns the open item for a ticket within a department
func (s *Store) FindOpenByTicket(departmentID, ticketID string) (*types.QueueItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTicket[ticketKey(departmentID, ticketID)]
	if !ok {
		return nil, false
	}
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return cloneItem(item), true
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	DepartmentID string
	Status       types.QueueStatus
}

// List returns copies of all items matching the filter, in no particular
// order. It is a read-skew snapshot: concurrent writers are not blocked.
func (s *Store) List(filter Filter) []*types.QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.QueueItem, 0, len(s.items))
	for _, item := range s.items {
		if filter.DepartmentID != "" && item.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		out = append(out, cloneItem(item))
	}
	return out
}

// ListWaiting returns WAITING items ordered by priority (urgent first) and
// entry time within a tier. Empty departmentID scans every department.
func (s *Store) ListWaiting(departmentID string) []*types.QueueItem {
	items := s.List(Filter{DepartmentID: departmentID, Status: types.StatusWaiting})
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority.Rank() != items[j].Priority.Rank() {
			return items[i].Priority.Rank() > items[j].Priority.Rank()
		}
		return items[i].EnteredAt.Before(items[j].EnteredAt)
	})
	return items
}

// Mutate applies fn to the stored item under the store lock and bumps
// LastUpdate. fn must not change ID, Status or EnteredAt; use the transition
// methods for status changes. Returns a copy of the mutated item.
func (s *Store) Mutate(id string, fn func(*types.QueueItem) error) (*types.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, qerrors.ErrNotFound
	}
	if err := fn(item); err != nil {
		return nil, err
	}
	item.LastUpdate = time.Now()

	updated := cloneItem(item)
	s.writeBehind(cloneItem(item))
	return updated, nil
}

// Assign transitions an item WAITING -> ASSIGNED and records the agent
func (s *Store) Assign(id, agentID string) (*types.QueueItem, error) {
	return s.transition(id, types.StatusAssigned, func(item *types.QueueItem) {
		item.AssignedTo = agentID
	})
}

// MarkProcessing transitions an item ASSIGNED -> PROCESSING, the explicit
// "agent actively engaged" signal
func (s *Store) MarkProcessing(id string) (*types.QueueItem, error) {
	return s.transition(id, types.StatusProcessing, nil)
}

// Close transitions an item to CLOSED with a resolution note. AssignedTo is
// cleared: it is only meaningful while the item is assigned or processing.
func (s *Store) Close(id, resolution string) (*types.QueueItem, error) {
	return s.transition(id, types.StatusClosed, func(item *types.QueueItem) {
		item.Resolution = resolution
		item.AssignedTo = ""
	})
}

// transition validates the state machine edge and applies the change
// atomically. Invalid edges leave stored state untouched.
func (s *Store) transition(id string, to types.QueueStatus, mutate func(*types.QueueItem)) (*types.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, qerrors.ErrNotFound
	}
	if !transitionAllowed(item.Status, to) {
		return nil, &qerrors.InvalidTransitionError{
			ItemID: id,
			From:   string(item.Status),
			To:     string(to),
		}
	}

	item.Status = to
	item.LastUpdate = time.Now()
	if mutate != nil {
		mutate(item)
	}
	if to == types.StatusClosed {
		delete(s.byTicket, ticketKey(item.DepartmentID, item.TicketID))
	}

	updated := cloneItem(item)
	s.writeBehind(cloneItem(item))
	return updated, nil
}

// Remove deletes an item outright. Normal flow closes items and lets the
// janitor evict them; Remove exists for administrative cleanup.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return qerrors.ErrNotFound
	}
	delete(s.items, id)
	delete(s.byTicket, ticketKey(item.DepartmentID, item.TicketID))

	s.removeBehind(id)
	return nil
}

// Seed loads recovered items without triggering write-behind, used once at
// startup before any traffic
func (s *Store) Seed(items []*types.QueueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		stored := cloneItem(item)
		s.items[item.ID] = stored
		if stored.Status != types.StatusClosed {
			s.byTicket[ticketKey(item.DepartmentID, item.TicketID)] = item.ID
		}
	}
	s.logger.Info().Int("count", len(items)).Msg("seeded queue items from recovery")
}

// Count returns the number of resident items
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// StartJanitor evicts CLOSED items older than the closed TTL on a fixed
// interval until the context is cancelled
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := s.evictClosed(); evicted > 0 {
				s.logger.Debug().Int("evicted", evicted).Msg("evicted closed queue items")
			}
		}
	}
}

func (s *Store) evictClosed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-s.closedTTL)
	evicted := 0
	for id, item := range s.items {
		if item.Status == types.StatusClosed && item.LastUpdate.Before(threshold) {
			delete(s.items, id)
			evicted++
			s.removeBehind(id)
		}
	}
	return evicted
}

// writeBehind queues a committed mutation for the background writer without
// blocking the caller. Callers hold the store lock, so queue order matches
// commit order. Failures are logged; the in-process copy stays
// authoritative.
func (s *Store) writeBehind(item *types.QueueItem) {
	s.enqueueWrite(writeOp{item: item})
}

// removeBehind queues a mirror removal for an evicted or deleted item
func (s *Store) removeBehind(id string) {
	s.enqueueWrite(writeOp{remove: id})
}

func (s *Store) enqueueWrite(op writeOp) {
	if s.writes == nil {
		return
	}
	select {
	case s.writes <- op:
	default:
		s.logger.Error().Msg("write-behind queue full, dropping persistence update")
	}
}

// writeLoop is the single write-behind worker. Draining the queue
// sequentially keeps the mirror and the durable store from observing
// updates for one item out of order.
func (s *Store) writeLoop() {
	for op := range s.writes {
		if op.remove != "" {
			if s.mirror != nil {
				if err := s.mirror.RemoveItem(context.Background(), op.remove); err != nil {
					s.logger.Error().Err(err).Str("item_id", op.remove).Msg("failed to remove item from mirror")
				}
			}
			continue
		}
		if s.mirror != nil {
			if err := s.mirror.SaveItem(context.Background(), op.item); err != nil {
				s.logger.Error().Err(err).Str("item_id", op.item.ID).Msg("failed to mirror queue item")
			}
		}
		if s.durable != nil {
			if err := s.durable.SaveQueueItem(context.Background(), types.ItemToRecord(op.item)); err != nil {
				s.logger.Error().Err(err).Str("item_id", op.item.ID).Msg("failed to persist queue item")
			}
		}
	}
}

func ticketKey(departmentID, ticketID string) string {
	return departmentID + "/" + ticketID
}

func cloneItem(item *types.QueueItem) *types.QueueItem {
	c := *item
	c.Metadata.Tags = append([]string(nil), item.Metadata.Tags...)
	return &c
}
