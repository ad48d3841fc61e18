// Package assignment turns an accepted help response into a committed,
// race-free issue assignment.
//
// Accepted responses are explicit asynchronous tasks: each one is queued,
// processed by a worker, and reports its outcome on a completion channel.
// The commit itself is a conditional status update against the issue
// store, so of two racing acceptances exactly one wins; the loser fails at
// the data layer without corrupting state.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/huddle/internal/adapters/mq/queue"
	"github.com/okian/huddle/internal/adapters/store"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/replay"
	"github.com/okian/huddle/internal/realtime/events"
	"github.com/okian/huddle/internal/realtime/rooms"
	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
)

// Default coordinator configuration constants.
const (
	defaultQueueSize       = 10_000
	defaultWorkerCount     = 4
	defaultReplayCacheSize = 100_000
	defaultSweepInterval   = time.Minute
)

// ErrNotOwner signals that the handshake requester does not own the issue.
var ErrNotOwner = errors.New("requester does not own issue")

// Notifier fans an event out to a topic. Satisfied by *rooms.Router.
type Notifier interface {
	Broadcast(topic string, ev events.Event, excludeConnID string)
}

// Outcome labels how an accepted-handshake task ended.
type Outcome string

const (
	OutcomeAssigned     Outcome = "assigned"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeBackpressure Outcome = "backpressure"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeNotOwner     Outcome = "not_owner"
	OutcomeUnassignable Outcome = "unassignable"
	OutcomeRaceLost     Outcome = "race_lost"
)

// Result reports the completion or failure of one accepted-handshake task.
type Result struct {
	Outcome Outcome
	Issue   model.Issue
	Err     error
}

// Task is one accepted help response awaiting commit.
type Task struct {
	IssueID     string
	RequesterID string
	Responder   model.Profile
	done        chan Result
}

// Coordinator owns the handshake state: the pending-ask set, the replay
// guard, and the worker pool that commits acceptances.
type Coordinator struct {
	issues     store.IssueStore
	identities store.IdentityStore
	notifier   Notifier

	queueSize       int
	workerCount     int
	replayCacheSize int
	helpRequestTTL  time.Duration
	sweepInterval   time.Duration

	guard replay.Guard
	tasks *queue.InMemory[Task]

	mu       sync.Mutex
	pending  map[string]time.Time // ask key -> recorded at
	started  bool
	cancel   context.CancelFunc
	workerWG sync.WaitGroup
	sweepWG  sync.WaitGroup

	logger logger.Logger
}

// NewCoordinator creates a coordinator with configuration options.
func NewCoordinator(issues store.IssueStore, identities store.IdentityStore, notifier Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		issues:          issues,
		identities:      identities,
		notifier:        notifier,
		queueSize:       defaultQueueSize,
		workerCount:     defaultWorkerCount,
		replayCacheSize: defaultReplayCacheSize,
		sweepInterval:   defaultSweepInterval,
		pending:         make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("assignment")
	}
	return c
}

// Start spins up the replay guard, the task queue and the worker pool.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	c.guard = replay.NewGuard(replay.WithMaxSize(c.replayCacheSize))
	c.tasks = queue.NewInMemory[Task](queue.WithCapacity(c.queueSize))

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	startWorkers(workerCtx, c, &c.workerWG)

	if c.helpRequestTTL > 0 {
		c.sweepWG.Add(1)
		go c.sweepPending(workerCtx)
	}

	c.started = true
	c.logger.Info(ctx, "assignment coordinator started",
		logger.Int("workers", c.workerCount),
		logger.Int("queueSize", c.queueSize),
		logger.Duration("helpRequestTTL", c.helpRequestTTL),
	)
	return nil
}

// Stop closes the queue, lets the workers finish every task already
// admitted, then stops the sweeper. Cancelling before the drain would
// drop queued tasks with their completion channels never written.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	tasks := c.tasks
	cancel := c.cancel
	c.mu.Unlock()

	_ = tasks.Close()
	c.workerWG.Wait()
	cancel()
	c.sweepWG.Wait()
}

// RecordAsk registers a pending help request. The ask carries no state
// change; the record only feeds expiry and observability.
func (c *Coordinator) RecordAsk(requesterID, targetID, issueID string) {
	c.mu.Lock()
	c.pending[askKey(issueID, requesterID, targetID)] = time.Now()
	c.mu.Unlock()
	metrics.RecordHelpRequest()
}

// PendingAsks returns the number of unanswered help requests on record.
func (c *Coordinator) PendingAsks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Accept enqueues the commit of an accepted help response and returns its
// completion channel. Duplicate deliveries of the same response are
// detected by the replay guard and complete immediately with
// OutcomeDuplicate; queue backpressure completes with OutcomeBackpressure
// and releases the guard so a retry can succeed.
func (c *Coordinator) Accept(ctx context.Context, responder model.Profile, requesterID, issueID string) <-chan Result {
	done := make(chan Result, 1)

	key := responseKey(issueID, responder.ID)
	if c.guard.SeenAndRecord(ctx, key) {
		done <- Result{Outcome: OutcomeDuplicate}
		close(done)
		return done
	}

	t := Task{
		IssueID:     issueID,
		RequesterID: requesterID,
		Responder:   responder,
		done:        done,
	}
	if !c.tasks.Enqueue(ctx, t) {
		c.guard.Unrecord(ctx, key)
		metrics.RecordAssignmentFailure(string(OutcomeBackpressure))
		done <- Result{Outcome: OutcomeBackpressure, Err: errors.New("assignment queue full")}
		close(done)
	}
	return done
}

// process runs on a worker: load, check, compare-and-swap, notify.
func (c *Coordinator) process(ctx context.Context, t Task) {
	start := time.Now()
	defer func() {
		metrics.RecordAssignmentLatency(float64(time.Since(start).Milliseconds()))
	}()

	res := c.commit(ctx, t)
	if res.Outcome == OutcomeAssigned {
		metrics.RecordAssignmentCommitted()
		c.notifyAssigned(t, res.Issue)
		c.clearAsk(t.IssueID, t.RequesterID, t.Responder.ID)
	} else {
		// The losing responder never sees a success; the failure is
		// swallowed at the notification layer but kept observable here.
		if res.Outcome == OutcomeRaceLost {
			metrics.RecordAssignmentRaceLost()
		} else {
			metrics.RecordAssignmentFailure(string(res.Outcome))
		}
		c.logger.Warn(ctx, "accepted handshake not committed",
			logger.String("issueID", t.IssueID),
			logger.String("responder", t.Responder.ID),
			logger.String("outcome", string(res.Outcome)),
			logger.Error(res.Err),
		)
	}

	t.done <- res
	close(t.done)
}

func (c *Coordinator) commit(ctx context.Context, t Task) Result {
	issue, err := c.issues.FindByID(ctx, t.IssueID)
	if err != nil {
		return Result{Outcome: OutcomeNotFound, Err: err}
	}
	if issue.PostedBy != t.RequesterID {
		return Result{Outcome: OutcomeNotOwner, Err: fmt.Errorf("issue %s: %w", t.IssueID, ErrNotOwner)}
	}
	if issue.Status == model.StatusResolved || issue.Status == model.StatusClosed {
		return Result{Outcome: OutcomeUnassignable, Err: fmt.Errorf("issue %s already %s: %w", t.IssueID, issue.Status, store.ErrInvalidTransition)}
	}

	// Assignment is only legal from open; anything else that slipped in
	// between the read and this write loses the race.
	updated, err := c.issues.UpdateStatus(ctx, t.IssueID, model.StatusOpen, model.StatusAssigned, store.StatusFields{
		AssignedTo: t.Responder.ID,
	})
	switch {
	case err == nil:
		return Result{Outcome: OutcomeAssigned, Issue: updated}
	case errors.Is(err, store.ErrRaceLost), errors.Is(err, store.ErrInvalidTransition):
		return Result{Outcome: OutcomeRaceLost, Err: err}
	case errors.Is(err, store.ErrNotFound):
		return Result{Outcome: OutcomeNotFound, Err: err}
	default:
		return Result{Outcome: OutcomeRaceLost, Err: err}
	}
}

// notifyAssigned broadcasts the committed assignment to both personal
// topics, with the responder as acting identity.
func (c *Coordinator) notifyAssigned(t Task, issue model.Issue) {
	ev := events.New(events.IssueAssigned, t.Responder, map[string]any{
		"issue_id":    issue.ID,
		"status":      issue.Status,
		"assigned_to": issue.AssignedTo,
	})
	c.notifier.Broadcast(rooms.UserTopic(t.Responder.ID), ev, "")
	c.notifier.Broadcast(rooms.UserTopic(t.RequesterID), ev, "")
}

// Assign is the simpler owner-initiated path: the owner picks a helper
// (possibly from ranking output) and the same forward-only conditional
// update commits before the caller notifies the assignee.
func (c *Coordinator) Assign(ctx context.Context, owner model.Profile, issueID, assigneeID string) (model.Issue, error) {
	issue, err := c.issues.FindByID(ctx, issueID)
	if err != nil {
		return model.Issue{}, err
	}
	if issue.PostedBy != owner.ID {
		return model.Issue{}, fmt.Errorf("issue %s: %w", issueID, ErrNotOwner)
	}

	updated, err := c.issues.UpdateStatus(ctx, issueID, model.StatusOpen, model.StatusAssigned, store.StatusFields{
		AssignedTo: assigneeID,
	})
	if err != nil {
		return model.Issue{}, err
	}
	metrics.RecordAssignmentCommitted()
	return updated, nil
}

// Resolve marks the issue resolved on behalf of the assigned helper and
// requests the contribution credit from the identity store.
func (c *Coordinator) Resolve(ctx context.Context, resolver model.Profile, issueID, solution string, timeSpentMinutes int) (model.Issue, error) {
	issue, err := c.issues.Resolve(ctx, issueID, resolver.ID, solution, timeSpentMinutes)
	if err != nil {
		return model.Issue{}, err
	}
	if err := c.identities.CreditContribution(ctx, resolver.ID, store.ResolutionPoints()); err != nil {
		// The resolution committed; a missed credit is observable, not fatal.
		c.logger.Warn(ctx, "contribution credit failed",
			logger.String("resolver", resolver.ID),
			logger.Error(err),
		)
	}
	return issue, nil
}

// QueueDepth reports the number of tasks awaiting a worker.
func (c *Coordinator) QueueDepth(ctx context.Context) int {
	c.mu.Lock()
	tasks := c.tasks
	c.mu.Unlock()
	if tasks == nil {
		return 0
	}
	return tasks.Len(ctx)
}

func (c *Coordinator) clearAsk(issueID, requesterID, targetID string) {
	c.mu.Lock()
	delete(c.pending, askKey(issueID, requesterID, targetID))
	c.mu.Unlock()
}

// sweepPending expires unanswered help requests past the configured TTL.
func (c *Coordinator) sweepPending(ctx context.Context) {
	defer c.sweepWG.Done()

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-c.helpRequestTTL)
			c.mu.Lock()
			for key, at := range c.pending {
				if at.Before(cutoff) {
					delete(c.pending, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func askKey(issueID, requesterID, targetID string) string {
	return issueID + "|" + requesterID + "|" + targetID
}

func responseKey(issueID, responderID string) string {
	return issueID + "|" + responderID
}
