package simulate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/huddle/internal/adapters/http/api"
	"github.com/okian/huddle/internal/adapters/store"
	"github.com/okian/huddle/internal/app"
	"github.com/okian/huddle/internal/auth"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/pkg/logger"
)

const (
	tokenTTL    = time.Hour
	settleDelay = 2 * time.Second
)

var skillPool = []string{"network", "vpn", "linux", "windows", "printers", "email", "sql"}

// Run executes a full simulation: embedded service, seeded data, streams,
// concurrent help handshakes, verification.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("simulate")

	issues, identities := seed(ctx, cfg)

	svc := app.New(
		app.WithLogger(log),
		app.WithAuthSecret(cfg.Secret, cfg.Issuer),
		app.WithIssueStore(issues),
		app.WithIdentityStore(identities),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start embedded service: %w", err)
	}
	defer svc.Stop()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{Handler: api.NewServer(svc).Router(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Error(context.Background(), "embedded server failed", logger.Error(serveErr))
		}
	}()
	defer srv.Close()

	baseURL := "http://" + ln.Addr().String()
	log.Info(ctx, "embedded instance listening", logger.String("url", baseURL))

	cli := newClient(baseURL, cfg.Timeout)
	if err := cli.checkHealth(ctx); err != nil {
		return err
	}

	verifier, err := auth.NewVerifier(cfg.Secret, cfg.Issuer)
	if err != nil {
		return err
	}

	// Connect helper streams. Each helper drains its stream and answers
	// every help:ask with an accepting help:respond.
	helpers := make([]*streamConn, cfg.Helpers)
	for i := range helpers {
		token, signErr := verifier.Sign(helperProfile(i), tokenTTL)
		if signErr != nil {
			return signErr
		}
		conn, openErr := cli.openStream(ctx, token)
		if openErr != nil {
			return fmt.Errorf("helper %d stream: %w", i, openErr)
		}
		defer conn.Close()
		helpers[i] = conn
		atomic.AddInt64(&stats.Connected, 1)

		go answerAsks(ctx, cli, conn, stats, cfg.Verbose, log)
	}

	// Connect one requester stream per issue, fire the asks, and count
	// issue:assigned notifications coming back.
	var assigned int64
	for i := 0; i < cfg.Issues; i++ {
		token, signErr := verifier.Sign(requesterProfile(i), tokenTTL)
		if signErr != nil {
			return signErr
		}
		conn, openErr := cli.openStream(ctx, token)
		if openErr != nil {
			return fmt.Errorf("requester %d stream: %w", i, openErr)
		}
		defer conn.Close()
		atomic.AddInt64(&stats.Connected, 1)

		go func(conn *streamConn) {
			for ev := range conn.Events {
				atomic.AddInt64(&stats.EventsPushed, 1)
				if ev.Name == "issue:assigned" {
					atomic.AddInt64(&assigned, 1)
				}
			}
		}(conn)

		// Two helpers race to accept the same issue.
		issueID := issueID(i)
		for _, h := range []int{i % cfg.Helpers, (i + 1) % cfg.Helpers} {
			if dispatchErr := cli.dispatch(ctx, conn, "help:ask", map[string]any{
				"to":       helperID(h),
				"issue_id": issueID,
			}); dispatchErr != nil {
				atomic.AddInt64(&stats.OtherErrors, 1)
				log.Warn(ctx, "help:ask failed", logger.String("issue", issueID), logger.Error(dispatchErr))
				continue
			}
			atomic.AddInt64(&stats.Asks, 1)
		}
	}

	// Let the accepts land, then probe suggestions for one issue to
	// exercise the ranking path end to end.
	time.Sleep(settleDelay)
	if cfg.Issues > 0 {
		if token, signErr := verifier.Sign(requesterProfile(0), tokenTTL); signErr == nil {
			probeSuggestions(ctx, cli, token, issueID(0), log)
		}
	}

	stats.Assigned = atomic.LoadInt64(&assigned)
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	report(ctx, cfg, stats, log)

	if stats.Assigned != int64(cfg.Issues) {
		return fmt.Errorf("expected %d assignments, observed %d", cfg.Issues, stats.Assigned)
	}
	return nil
}

// answerAsks accepts every help request pushed to a helper stream.
func answerAsks(ctx context.Context, cli *client, conn *streamConn, stats *Stats, verbose bool, log logger.Logger) {
	for ev := range conn.Events {
		atomic.AddInt64(&stats.EventsPushed, 1)
		if ev.Name != "help:ask" {
			continue
		}
		issueID, _ := ev.Payload["issue_id"].(string)
		requester := ev.ActorID
		if requester == "" {
			continue
		}
		if verbose {
			log.Debug(ctx, "accepting help request", logger.String("issue", issueID))
		}
		if err := cli.dispatch(ctx, conn, "help:respond", map[string]any{
			"to":       requester,
			"issue_id": issueID,
			"accepted": true,
		}); err != nil {
			atomic.AddInt64(&stats.OtherErrors, 1)
			log.Warn(ctx, "help:respond failed", logger.String("issue", issueID), logger.Error(err))
			continue
		}
		atomic.AddInt64(&stats.Accepts, 1)
	}
}

// probeSuggestions fetches the helper ranking for one issue.
func probeSuggestions(ctx context.Context, cli *client, token, issueID string, log logger.Logger) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cli.base+"/issues/"+issueID+"/suggestions", nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := cli.httpCli.Do(req)
	if err != nil {
		log.Warn(ctx, "suggestions probe failed", logger.Error(err))
		return
	}
	defer resp.Body.Close()
	log.Info(ctx, "suggestions probe", logger.Int("status", resp.StatusCode))
}

// seed builds pre-populated in-memory stores for the run.
func seed(ctx context.Context, cfg *Config) (*store.MemoryIssueStore, *store.MemoryIdentityStore) {
	issues := store.NewMemoryIssueStore()
	identities := store.NewMemoryIdentityStore()

	for i := 0; i < cfg.Helpers; i++ {
		identities.Put(ctx, model.Candidate{
			ID:           helperID(i),
			DisplayName:  fmt.Sprintf("Helper %d", i),
			ExternalID:   uuid.NewString(),
			Department:   "support",
			Skills:       helperSkills(i),
			Availability: model.Available,
			LastActiveAt: time.Now().UTC(),
		})
	}

	for i := 0; i < cfg.Issues; i++ {
		now := time.Now().UTC()
		_ = issues.Save(ctx, model.Issue{
			ID:             issueID(i),
			Title:          fmt.Sprintf("Simulated issue %d", i),
			Status:         model.StatusOpen,
			Priority:       "medium",
			Category:       "network",
			PostedBy:       requesterID(i),
			RequiredSkills: []string{skillPool[i%len(skillPool)]},
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	return issues, identities
}

func helperID(i int) string    { return fmt.Sprintf("sim-helper-%d", i) }
func requesterID(i int) string { return fmt.Sprintf("sim-requester-%d", i) }
func issueID(i int) string     { return fmt.Sprintf("sim-issue-%d", i) }

func helperProfile(i int) model.Profile {
	return model.Profile{
		ID:          helperID(i),
		DisplayName: fmt.Sprintf("Helper %d", i),
		Department:  "support",
	}
}

func requesterProfile(i int) model.Profile {
	return model.Profile{
		ID:          requesterID(i),
		DisplayName: fmt.Sprintf("Requester %d", i),
		Department:  "sales",
	}
}

func helperSkills(i int) []model.Skill {
	out := make([]model.Skill, 0, 2)
	for j := 0; j < 2; j++ {
		out = append(out, model.Skill{
			Name:     skillPool[(i+j)%len(skillPool)],
			Level:    3 + (i+j)%3,
			Verified: j == 0,
		})
	}
	return out
}

// report prints the final counters.
func report(ctx context.Context, cfg *Config, stats *Stats, log logger.Logger) {
	log.Info(ctx, "simulation finished",
		logger.Duration("duration", stats.Duration),
		logger.Int("issues", cfg.Issues),
		logger.Int("helpers", cfg.Helpers),
		logger.Any("connected", stats.Connected),
		logger.Any("asks", stats.Asks),
		logger.Any("accepts", stats.Accepts),
		logger.Any("assigned", stats.Assigned),
		logger.Any("eventsPushed", stats.EventsPushed),
		logger.Any("errors", stats.OtherErrors),
	)
}
