// Package app provides the core coordination service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/huddle/internal/adapters/store"
	"github.com/okian/huddle/internal/auth"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/ranking"
	"github.com/okian/huddle/internal/realtime/assignment"
	"github.com/okian/huddle/internal/realtime/dispatch"
	"github.com/okian/huddle/internal/realtime/events"
	"github.com/okian/huddle/internal/realtime/presence"
	"github.com/okian/huddle/internal/realtime/rooms"
	"github.com/okian/huddle/internal/realtime/session"
	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
)

// Service wires the coordination components together: presence, rooms,
// event dispatch, ranking and the assignment coordinator.
type Service struct {
	mu sync.RWMutex

	// Core components
	presence    *presence.Registry
	rooms       *rooms.Router
	dispatcher  *dispatch.Dispatcher
	coordinator *assignment.Coordinator
	ranker      *ranking.Engine
	verifier    *auth.Verifier
	issues      store.IssueStore
	identities  store.IdentityStore

	// Configuration
	authSecret      string
	authIssuer      string
	sendBuffer      int
	queueSize       int
	workerCount     int
	suggestionLimit int
	replayCacheSize int
	helpRequestTTL  time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		authIssuer:      "huddle",
		sendBuffer:      64,
		queueSize:       10_000,
		workerCount:     runtime.NumCPU() * 2,
		suggestionLimit: 10,
		replayCacheSize: 100_000,
		helpRequestTTL:  15 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	verifier, err := auth.NewVerifier(s.authSecret, s.authIssuer)
	if err != nil {
		return fmt.Errorf("configure verifier: %w", err)
	}
	s.verifier = verifier

	if s.issues == nil {
		s.issues = store.NewMemoryIssueStore()
	}
	if s.identities == nil {
		s.identities = store.NewMemoryIdentityStore()
	}

	s.presence = presence.NewRegistry()
	s.rooms = rooms.NewRouter()
	s.ranker = ranking.NewEngine()

	s.coordinator = assignment.NewCoordinator(s.issues, s.identities, s.rooms,
		assignment.WithLogger(s.logger.Named("assignment")),
		assignment.WithQueueSize(s.queueSize),
		assignment.WithWorkerCount(s.workerCount),
		assignment.WithReplayCacheSize(s.replayCacheSize),
		assignment.WithHelpRequestTTL(s.helpRequestTTL),
	)
	if err := s.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}

	s.dispatcher = dispatch.New(s.rooms, s.coordinator, s.identities,
		dispatch.WithLogger(s.logger.Named("dispatch")),
		dispatch.WithDisconnectFunc(func(ctx context.Context, conn *session.Conn) {
			s.Disconnect(ctx, conn)
		}),
	)

	s.started = true
	s.logger.Info(ctx, "coordination service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("suggestionLimit", s.suggestionLimit),
	)
	return nil
}

// Stop gracefully shuts down the service, closing all live connections.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	for _, identity := range s.presence.OnlineIdentities() {
		if conn := s.presence.Lookup(identity); conn != nil {
			s.teardown(ctx, conn)
		}
	}
	s.coordinator.Stop()

	s.started = false
	s.logger.Info(ctx, "coordination service stopped")
}

// Connect authenticates the bearer token and registers a live connection.
// A new connection for the same identity supersedes the prior one
// (last-write-wins). Verification failure terminates the attempt with no
// state committed.
func (s *Service) Connect(ctx context.Context, token string) (*session.Conn, error) {
	if err := s.requireStarted(); err != nil {
		return nil, err
	}

	profile, err := s.verifier.Verify(token)
	if err != nil {
		metrics.RecordAuthFailure()
		return nil, err
	}

	conn := session.New(profile, s.sendBuffer)
	if superseded := s.presence.Register(conn); superseded != nil {
		s.logger.Debug(ctx, "connection superseded",
			logger.String("identity", profile.ID),
			logger.String("old", superseded.ID()),
		)
		s.teardown(ctx, superseded)
	}

	// Membership is rebuilt from scratch on every connect.
	s.rooms.Join(conn, rooms.UserTopic(profile.ID))
	if profile.Department != "" {
		s.rooms.Join(conn, rooms.DepartmentTopic(profile.Department))
	}

	if err := s.identities.UpdateLastActive(ctx, profile.ID, time.Now().UTC()); err != nil {
		s.logger.Debug(ctx, "last-active update skipped", logger.Error(err))
	}

	metrics.RecordConnectionOpened()
	conn.Send(events.NewSystem(events.Connected, map[string]any{
		"connection_id": conn.ID(),
		"identity":      profile.ID,
	}))

	s.logger.Info(ctx, "connection registered",
		logger.String("identity", profile.ID),
		logger.String("connection", conn.ID()),
	)
	return conn, nil
}

// Disconnect removes the connection from presence and every room, stamps
// last-active, and closes the outbound stream. Safe to call twice.
func (s *Service) Disconnect(ctx context.Context, conn *session.Conn) {
	if conn == nil || conn.Closed() {
		return
	}
	s.presence.Unregister(conn.ID())
	s.teardown(ctx, conn)
	if err := s.identities.UpdateLastActive(ctx, conn.Identity(), time.Now().UTC()); err != nil {
		s.logger.Debug(ctx, "last-active update skipped", logger.Error(err))
	}
}

// teardown clears memberships and closes the channel without touching the
// registry (the caller decides whether the mapping is stale).
func (s *Service) teardown(_ context.Context, conn *session.Conn) {
	if conn.Closed() {
		return
	}
	s.rooms.LeaveAll(conn.ID())
	conn.Close()
	metrics.RecordConnectionClosed()
}

// Authenticate verifies a bearer token and returns the public profile.
func (s *Service) Authenticate(token string) (model.Profile, error) {
	if err := s.requireStarted(); err != nil {
		return model.Profile{}, err
	}
	profile, err := s.verifier.Verify(token)
	if err != nil {
		metrics.RecordAuthFailure()
		return model.Profile{}, err
	}
	return profile, nil
}

// Dispatch routes one inbound client event. The token must belong to the
// identity owning the connection; anything else is rejected before the
// handler table is consulted.
func (s *Service) Dispatch(ctx context.Context, token, connID, name string, payload map[string]any) error {
	if err := s.requireStarted(); err != nil {
		return err
	}

	profile, err := s.verifier.Verify(token)
	if err != nil {
		metrics.RecordAuthFailure()
		return err
	}
	conn := s.presence.ConnByID(connID)
	if conn == nil {
		return fmt.Errorf("connection %s: %w", connID, ErrUnknownConnection)
	}
	if conn.Identity() != profile.ID {
		return fmt.Errorf("connection %s: %w", connID, ErrConnectionMismatch)
	}
	return s.dispatcher.Handle(ctx, conn, name, payload)
}

// WatchIssue joins the connection to the per-issue topic so it receives
// comment broadcasts for that issue.
func (s *Service) WatchIssue(ctx context.Context, token, connID, issueID string) error {
	conn, err := s.authorizedConn(token, connID)
	if err != nil {
		return err
	}
	if _, err := s.issues.FindByID(ctx, issueID); err != nil {
		return err
	}
	s.rooms.Join(conn, rooms.IssueTopic(issueID))
	return nil
}

// UnwatchIssue leaves the per-issue topic.
func (s *Service) UnwatchIssue(_ context.Context, token, connID, issueID string) error {
	conn, err := s.authorizedConn(token, connID)
	if err != nil {
		return err
	}
	s.rooms.Leave(conn, rooms.IssueTopic(issueID))
	return nil
}

// VoteIssue records a single up or down vote on the issue for the
// authenticated identity. A second vote in either direction is rejected
// by the store.
func (s *Service) VoteIssue(ctx context.Context, token, issueID string, upvote bool) (model.Issue, error) {
	if err := s.requireStarted(); err != nil {
		return model.Issue{}, err
	}
	profile, err := s.verifier.Verify(token)
	if err != nil {
		metrics.RecordAuthFailure()
		return model.Issue{}, err
	}
	return s.issues.Vote(ctx, issueID, profile.ID, upvote)
}

func (s *Service) authorizedConn(token, connID string) (*session.Conn, error) {
	if err := s.requireStarted(); err != nil {
		return nil, err
	}
	profile, err := s.verifier.Verify(token)
	if err != nil {
		metrics.RecordAuthFailure()
		return nil, err
	}
	conn := s.presence.ConnByID(connID)
	if conn == nil {
		return nil, fmt.Errorf("connection %s: %w", connID, ErrUnknownConnection)
	}
	if conn.Identity() != profile.ID {
		return nil, fmt.Errorf("connection %s: %w", connID, ErrConnectionMismatch)
	}
	return conn, nil
}

// Suggestions ranks the helper pool for an issue and returns the top
// slice. The candidate pool is fetched here; the ranking engine itself
// performs no I/O.
func (s *Service) Suggestions(ctx context.Context, issueID string, limit int) ([]ranking.RankedCandidate, error) {
	if err := s.requireStarted(); err != nil {
		return nil, err
	}

	issue, err := s.issues.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	pool, err := s.identities.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	// The owner never helps their own issue.
	candidates := pool[:0:0]
	for _, c := range pool {
		if c.ID != issue.PostedBy {
			candidates = append(candidates, c)
		}
	}

	start := time.Now()
	ranked, err := s.ranker.Rank(candidates, ranking.Request{
		RequiredSkills: issue.RequiredSkills,
		Category:       issue.Category,
		Priority:       issue.Priority,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordRankingRequest()
	metrics.RecordRankingLatency(float64(time.Since(start).Microseconds()) / 1000)

	if limit <= 0 || limit > s.suggestionLimit {
		limit = s.suggestionLimit
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// IsOnline reports whether the identity currently has a live connection.
func (s *Service) IsOnline(identity string) bool {
	if s.presence == nil {
		return false
	}
	return s.presence.IsOnline(identity)
}

// Issues exposes the issue store for seeding and external wiring.
func (s *Service) Issues() store.IssueStore { return s.issues }

// Identities exposes the identity store for seeding and external wiring.
func (s *Service) Identities() store.IdentityStore { return s.identities }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"suggestionLimit": s.suggestionLimit,
	}
	if s.started {
		stats["connections"] = s.presence.Count()
		stats["rooms"] = s.rooms.RoomCount()
		stats["pendingAsks"] = s.coordinator.PendingAsks()
		stats["assignQueueDepth"] = s.coordinator.QueueDepth(context.Background())
	}
	return stats
}

func (s *Service) requireStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}
