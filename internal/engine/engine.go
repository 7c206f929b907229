package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/queuewise/backend/internal/cache"
	"github.com/queuewise/backend/internal/metrics"
	"github.com/queuewise/backend/internal/priority"
	"github.com/queuewise/backend/internal/qerrors"
	"github.com/queuewise/backend/internal/queuestore"
	"github.com/queuewise/backend/internal/retry"
	"github.com/queuewise/backend/internal/selector"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// Distribution failure reasons
const (
	ReasonOutsideWorkingHours = "outside working hours"
	ReasonNoAgentAvailable    = "no agent available"
	ReasonAssignmentFailed    = "assignment call failed"
	ReasonAlreadyAssigned     = "already assigned"
	ReasonConfigUnavailable   = "department config unavailable"
)

// DefaultAssignTimeout bounds a single outbound assignment attempt
const DefaultAssignTimeout = 10 * time.Second

// Engine orchestrates the queue item lifecycle: classification, agent
// selection, outbound assignment and event emission. One engine serves all
// departments of a process; every collaborator is injected.
type Engine struct {
	store      *queuestore.Store
	perf       *cache.PerformanceStore
	classifier *priority.Classifier
	directory  Directory
	channel    OutboundChannel
	publisher  Publisher
	rules      RuleSource
	history    *cache.AssignmentHistory
	histSink   HistorySink
	metrics    MetricsNotifier
	collectors *metrics.Collectors

	counter       selector.Counter
	rnd           selector.RandSource
	retryCfg      retry.Config
	assignTimeout time.Duration

	locks  *keyedMutex
	logger zerolog.Logger
	now    func() time.Time
}

// Config wires an Engine. Store, Perf, Directory, Channel and Publisher are
// required; the rest have working defaults.
type Config struct {
	Store      *queuestore.Store
	Perf       *cache.PerformanceStore
	Classifier *priority.Classifier
	Directory  Directory
	Channel    OutboundChannel
	Publisher  Publisher
	Rules      RuleSource
	History    *cache.AssignmentHistory
	HistSink   HistorySink
	Metrics    MetricsNotifier
	Collectors *metrics.Collectors

	Counter       selector.Counter
	Rand          selector.RandSource
	Retry         retry.Config
	AssignTimeout time.Duration
}

// New constructs an Engine from its collaborators
func New(cfg Config, logger zerolog.Logger) *Engine {
	e := &Engine{
		store:         cfg.Store,
		perf:          cfg.Perf,
		classifier:    cfg.Classifier,
		directory:     cfg.Directory,
		channel:       cfg.Channel,
		publisher:     cfg.Publisher,
		rules:         cfg.Rules,
		history:       cfg.History,
		histSink:      cfg.HistSink,
		metrics:       cfg.Metrics,
		collectors:    cfg.Collectors,
		counter:       cfg.Counter,
		rnd:           cfg.Rand,
		retryCfg:      cfg.Retry,
		assignTimeout: cfg.AssignTimeout,
		locks:         newKeyedMutex(),
		logger:        logger.With().Str("component", "engine").Logger(),
		now:           time.Now,
	}
	if e.classifier == nil {
		e.classifier = priority.NewClassifier(logger)
	}
	if e.history == nil {
		e.history = cache.NewAssignmentHistory(1000)
	}
	if e.retryCfg.MaxAttempts == 0 {
		e.retryCfg = retry.DefaultConfig()
	}
	if e.assignTimeout == 0 {
		e.assignTimeout = DefaultAssignTimeout
	}
	return e
}

// Enqueue places an inbound message into a department's queue. When an open
// item already exists for the ticket, the message is appended to it instead
// of creating a duplicate. A failed immediate distribution attempt is not an
// error: the item stays WAITING for the sweep.
func (e *Engine) Enqueue(ctx context.Context, msg types.Message, departmentID, ticketID string, prio types.QueuePriority) (*types.QueueItem, error) {
	if departmentID == "" {
		return nil, qerrors.NewValidation("departmentId", "must not be empty")
	}
	if msg.From == "" {
		return nil, qerrors.NewValidation("message.from", "must not be empty")
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil, qerrors.NewValidation("message.content", "must not be empty")
	}
	if prio != "" && !prio.Valid() {
		return nil, qerrors.NewValidation("priority", "unknown priority "+string(prio))
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = e.now()
	}

	if ticketID != "" {
		if existing, ok := e.store.FindOpenByTicket(departmentID, ticketID); ok {
			return e.appendMessage(ctx, existing.ID, msg)
		}
	} else {
		ticketID = "T-" + uuid.New().String()
	}

	item := &types.QueueItem{
		ID:           uuid.New().String(),
		TicketID:     ticketID,
		DepartmentID: departmentID,
		Priority:     prio,
		Status:       types.StatusWaiting,
		EnteredAt:    e.now(),
		LastUpdate:   e.now(),
		Metadata: types.QueueMetadata{
			MessageCount: 1,
			FirstMessage: msg,
			LastMessage:  msg,
			Source:       msgSource(msg),
			Tags:         []string{},
		},
	}

	if item.Priority == "" {
		rules, vip := e.loadRules(ctx)
		item.Priority = e.classifier.Classify(msg, item, rules, vip)
	}

	if err := e.store.Insert(item); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("item_id", item.ID).
		Str("ticket_id", item.TicketID).
		Str("department_id", departmentID).
		Str("priority", string(item.Priority)).
		Msg("queue item added")

	e.publishItemEvent(types.TopicQueueAdded, item)
	e.notifyMetrics(departmentID)

	// Immediate attempt; the sweep covers it if this fails or races
	go func() {
		if _, err := e.Distribute(context.WithoutCancel(ctx), item.ID); err != nil {
			e.logger.Debug().Err(err).Str("item_id", item.ID).Msg("immediate distribution attempt failed")
		}
	}()

	return item, nil
}

// appendMessage folds a repeated inbound message into the existing open item
func (e *Engine) appendMessage(ctx context.Context, itemID string, msg types.Message) (*types.QueueItem, error) {
	updated, err := e.store.Mutate(itemID, func(item *types.QueueItem) error {
		item.Metadata.MessageCount++
		item.Metadata.LastMessage = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publishItemEvent(types.TopicQueueUpdated, updated)
	e.notifyMetrics(updated.DepartmentID)

	if updated.Status == types.StatusWaiting {
		go func() {
			if _, err := e.Distribute(context.WithoutCancel(ctx), updated.ID); err != nil {
				e.logger.Debug().Err(err).Str("item_id", updated.ID).Msg("immediate distribution attempt failed")
			}
		}()
	}
	return updated, nil
}

// Distribute attempts to match one queue item to an agent. Attempts for the
// same item serialize on a per-item lock; an item that is no longer WAITING
// is reported as a no-op, never double-assigned. State only mutates after
// the outbound assignment call succeeds.
func (e *Engine) Distribute(ctx context.Context, itemID string) (types.DistributionResult, error) {
	e.locks.Lock(itemID)
	defer e.locks.Unlock(itemID)

	item, ok := e.store.Get(itemID)
	if !ok {
		return types.DistributionResult{}, qerrors.ErrNotFound
	}
	if item.Status != types.StatusWaiting {
		return types.DistributionResult{Item: item, Reason: ReasonAlreadyAssigned}, nil
	}

	config, err := e.directory.GetQueueConfig(ctx, item.DepartmentID)
	if err != nil {
		return e.failure(item, ReasonConfigUnavailable, err)
	}

	if !withinWorkingHours(config.WorkingHours, e.now()) {
		return e.failure(item, ReasonOutsideWorkingHours, nil)
	}

	agents, err := e.directory.GetDepartmentAgents(ctx, item.DepartmentID)
	if err != nil {
		return e.failure(item, ReasonNoAgentAvailable, err)
	}

	agentIDs := make([]string, len(agents))
	for i, a := range agents {
		agentIDs[i] = a.ID
	}
	performances := e.perf.GetMany(agentIDs)

	candidates := selector.FilterAvailable(agents, performances)
	if len(candidates) == 0 {
		return e.failure(item, ReasonNoAgentAvailable, nil)
	}

	strategy, err := selector.ForMethod(config.Method, e.counter, e.rnd)
	if err != nil {
		return e.failure(item, ReasonConfigUnavailable, err)
	}

	agent := strategy.SelectAgent(candidates, performances, item)
	if agent == nil {
		return e.failure(item, ReasonNoAgentAvailable, nil)
	}

	if err := e.assignWithRetry(ctx, item, agent.ID); err != nil {
		return e.failure(item, ReasonAssignmentFailed, err)
	}

	assigned, err := e.store.Assign(item.ID, agent.ID)
	if err != nil {
		// Raced with a close between the snapshot and the commit; the
		// outbound channel tolerates the duplicate assignment
		e.logger.Warn().Err(err).Str("item_id", item.ID).Msg("assignment committed after state change")
		return e.failure(item, ReasonAlreadyAssigned, err)
	}

	e.perf.RecordAssignment(agent.ID)
	e.recordHistory(ctx, assigned, agent.ID)

	if e.collectors != nil {
		e.collectors.Assignments.WithLabelValues(assigned.DepartmentID).Inc()
	}

	e.logger.Info().
		Str("item_id", assigned.ID).
		Str("agent_id", agent.ID).
		Str("department_id", assigned.DepartmentID).
		Float64("wait_secs", assigned.WaitDuration(e.now()).Seconds()).
		Msg("queue item assigned")

	e.publishItemEvent(types.TopicQueueAssigned, assigned)
	e.notifyMetrics(assigned.DepartmentID)

	return types.DistributionResult{Success: true, Item: assigned, AssignedTo: agent.ID}, nil
}

// assignWithRetry runs the outbound assignment under the retry policy, each
// attempt bounded by its own deadline
func (e *Engine) assignWithRetry(ctx context.Context, item *types.QueueItem, agentID string) error {
	obs := retry.Observer{
		OnRetry: func(attempt int, nextDelay time.Duration, err error) {
			if e.collectors != nil {
				e.collectors.RetryAttempts.Inc()
			}
			e.logger.Warn().Err(err).
				Str("item_id", item.ID).
				Int("attempt", attempt).
				Dur("next_delay", nextDelay).
				Msg("outbound assignment attempt failed, retrying")
		},
		OnFailure: func(attempts int, elapsed time.Duration, err error) {
			if e.collectors != nil {
				e.collectors.RetryFailures.Inc()
			}
			e.logger.Error().Err(err).
				Str("item_id", item.ID).
				Int("attempts", attempts).
				Dur("elapsed", elapsed).
				Msg("outbound assignment failed after retries")
		},
	}

	result := retry.Execute(ctx, e.retryCfg, obs, func(ctx context.Context) (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.assignTimeout)
		defer cancel()

		err := e.channel.AssignChat(callCtx, item.TicketID, agentID, item.DepartmentID)
		if errors.Is(err, context.DeadlineExceeded) {
			return struct{}{}, qerrors.ErrOutboundTimeout
		}
		return struct{}{}, err
	})

	return result.Err
}

// RunEscalation computes and applies SLA escalation for a waiting item.
// Compute and apply are separate steps: the classifier only proposes, the
// engine commits. Returns the (possibly updated) item.
func (e *Engine) RunEscalation(ctx context.Context, item *types.QueueItem) *types.QueueItem {
	rules, _ := e.loadRules(ctx)
	escalated, ok := e.classifier.CheckEscalation(item, rules)
	if !ok {
		return item
	}

	from := item.Priority
	updated, err := e.store.Mutate(item.ID, func(stored *types.QueueItem) error {
		// Re-check under the store lock so concurrent escalations stay monotonic
		if escalated.Rank() <= stored.Priority.Rank() {
			return nil
		}
		stored.Priority = escalated
		return nil
	})
	if err != nil {
		e.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to apply escalation")
		return item
	}
	if updated.Priority == from {
		return updated
	}

	if e.collectors != nil {
		e.collectors.Escalations.WithLabelValues(string(from), string(updated.Priority)).Inc()
	}
	e.logger.Info().
		Str("item_id", item.ID).
		Str("from", string(from)).
		Str("to", string(updated.Priority)).
		Msg("priority escalated after SLA breach")

	e.publishItemEvent(types.TopicQueueUpdated, updated)
	e.notifyMetrics(updated.DepartmentID)
	return updated
}

// UpdatePriority sets a caller-chosen priority on a WAITING or ASSIGNED item
func (e *Engine) UpdatePriority(ctx context.Context, itemID, departmentID string, prio types.QueuePriority) error {
	if !prio.Valid() {
		return qerrors.NewValidation("priority", "unknown priority "+string(prio))
	}

	item, ok := e.store.Get(itemID)
	if !ok || item.DepartmentID != departmentID {
		return qerrors.ErrNotFound
	}

	updated, err := e.store.Mutate(itemID, func(stored *types.QueueItem) error {
		// Status is checked under the store lock: the item may have closed
		// between the snapshot above and this mutation
		if stored.Status != types.StatusWaiting && stored.Status != types.StatusAssigned {
			return qerrors.ErrNotFound
		}
		stored.Priority = prio
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info().
		Str("item_id", itemID).
		Str("priority", string(prio)).
		Msg("priority updated")

	e.publishItemEvent(types.TopicQueueUpdated, updated)
	e.notifyMetrics(departmentID)
	return nil
}

// MarkProcessing records the explicit "agent actively engaged" signal
func (e *Engine) MarkProcessing(ctx context.Context, itemID string) error {
	e.locks.Lock(itemID)
	defer e.locks.Unlock(itemID)

	updated, err := e.store.MarkProcessing(itemID)
	if err != nil {
		if qerrors.IsInvalidTransition(err) {
			e.logger.Warn().Err(err).Str("item_id", itemID).Msg("rejected processing transition")
		}
		return err
	}

	e.publishItemEvent(types.TopicQueueUpdated, updated)
	e.notifyMetrics(updated.DepartmentID)
	return nil
}

// Close resolves or abandons a queue item
func (e *Engine) Close(ctx context.Context, itemID, resolution string) error {
	e.locks.Lock(itemID)
	defer e.locks.Unlock(itemID)

	item, ok := e.store.Get(itemID)
	if !ok {
		return qerrors.ErrNotFound
	}
	agentID := item.AssignedTo

	closed, err := e.store.Close(itemID, resolution)
	if err != nil {
		if qerrors.IsInvalidTransition(err) {
			e.logger.Warn().Err(err).Str("item_id", itemID).Msg("rejected close transition")
		}
		return err
	}

	if agentID != "" {
		e.perf.RecordRelease(agentID)
	}

	e.logger.Info().
		Str("item_id", itemID).
		Str("resolution", resolution).
		Msg("queue item closed")

	e.publishItemEvent(types.TopicQueueClosed, closed)
	e.notifyMetrics(closed.DepartmentID)
	return nil
}

// History returns the most recent in-process assignment records
func (e *Engine) History(limit int) []types.AssignmentRecord {
	return e.history.Recent(limit)
}

func (e *Engine) failure(item *types.QueueItem, reason string, err error) (types.DistributionResult, error) {
	if e.collectors != nil {
		e.collectors.DistributionFailures.WithLabelValues(reason).Inc()
	}
	return types.DistributionResult{Item: item, Reason: reason},
		&qerrors.DistributionFailure{ItemID: item.ID, Reason: reason, Err: err}
}

func (e *Engine) loadRules(ctx context.Context) ([]types.PriorityRule, types.VIPConfig) {
	if e.rules == nil {
		return nil, types.VIPConfig{}
	}
	rules, err := e.rules.PriorityRules(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to load priority rules, using none")
		rules = nil
	}
	vip, err := e.rules.VIPConfig(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to load VIP config, using none")
		vip = types.VIPConfig{}
	}
	return rules, vip
}

func (e *Engine) recordHistory(ctx context.Context, item *types.QueueItem, agentID string) {
	record := types.AssignmentRecord{
		ItemID:       item.ID,
		TicketID:     item.TicketID,
		AgentID:      agentID,
		DepartmentID: item.DepartmentID,
		Timestamp:    e.now(),
	}
	e.history.Add(record)

	if e.histSink != nil {
		go func() {
			if err := e.histSink.AddAssignment(context.WithoutCancel(ctx), record); err != nil {
				e.logger.Error().Err(err).Str("item_id", record.ItemID).Msg("failed to record assignment history")
			}
		}()
	}
}

func (e *Engine) publishItemEvent(topic string, item *types.QueueItem) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(topic, item.DepartmentID, types.QueueEvent{
		Type:         topic,
		Item:         item,
		DepartmentID: item.DepartmentID,
		AgentID:      item.AssignedTo,
		Timestamp:    e.now(),
	})
}

func (e *Engine) notifyMetrics(departmentID string) {
	if e.metrics == nil {
		return
	}
	e.metrics.PublishSnapshot(departmentID)
	e.metrics.PublishSnapshot("")
}

func msgSource(msg types.Message) string {
	if msg.ChannelID != "" {
		return msg.ChannelID
	}
	return "chat"
}

// withinWorkingHours reports whether now falls on a configured work day and
// inside the [start,end] window, evaluated in the department's timezone.
// A department without configured hours is always open.
func withinWorkingHours(wh types.WorkingHours, now time.Time) bool {
	if wh.Start == "" || wh.End == "" {
		return true
	}

	if wh.Timezone != "" {
		if loc, err := time.LoadLocation(wh.Timezone); err == nil {
			now = now.In(loc)
		}
	}

	if len(wh.WorkDays) > 0 {
		day := now.Weekday()
		found := false
		for _, d := range wh.WorkDays {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	start, ok := parseClock(wh.Start)
	if !ok {
		return true
	}
	end, ok := parseClock(wh.End)
	if !ok {
		return true
	}

	current := now.Hour()*60 + now.Minute()
	return current >= start && current <= end
}

// parseClock parses "HH:MM" into minutes since midnight
func parseClock(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}
