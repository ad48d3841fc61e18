// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/huddle/internal/adapters/store"
	"github.com/okian/huddle/internal/app"
	"github.com/okian/huddle/internal/auth"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/ranking"
	"github.com/okian/huddle/internal/realtime/assignment"
	"github.com/okian/huddle/internal/realtime/dispatch"
	"github.com/okian/huddle/internal/realtime/session"
	"github.com/okian/huddle/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Connect(ctx context.Context, token string) (*session.Conn, error)
	Disconnect(ctx context.Context, conn *session.Conn)
	Dispatch(ctx context.Context, token, connID, name string, payload map[string]any) error
	WatchIssue(ctx context.Context, token, connID, issueID string) error
	UnwatchIssue(ctx context.Context, token, connID, issueID string) error
	VoteIssue(ctx context.Context, token, issueID string, upvote bool) (model.Issue, error)
	Authenticate(token string) (model.Profile, error)
	Suggestions(ctx context.Context, issueID string, limit int) ([]ranking.RankedCandidate, error)
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the coordination API.
type Server struct {
	deps Dependencies
}

// NewServer creates a new API server.
func NewServer(deps Dependencies) *Server {
	return &Server{deps: deps}
}

// Router builds the chi router with all routes attached.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", Metrics("healthz", s.handleHealth))
	r.Get("/stats", Metrics("stats", s.handleStats))
	r.Get("/stream", s.handleStream) // long-lived; excluded from latency metrics
	r.Post("/dispatch", Metrics("dispatch", s.handleDispatch))
	r.Route("/issues/{issueID}", func(r chi.Router) {
		r.Get("/suggestions", Metrics("suggestions", s.handleSuggestions))
		r.Post("/watch", Metrics("watch", s.handleWatch))
		r.Post("/unwatch", Metrics("unwatch", s.handleUnwatch))
		r.Post("/vote", Metrics("vote", s.handleVote))
	})
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates upstream sentinel kinds into HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoSecret):
		writeError(w, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, app.ErrConnectionMismatch),
		errors.Is(err, assignment.ErrNotOwner),
		errors.Is(err, store.ErrNotAssignee):
		writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, app.ErrUnknownConnection), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, store.ErrRaceLost),
		errors.Is(err, store.ErrAlreadyVoted):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, dispatch.ErrUnknownEvent),
		errors.Is(err, dispatch.ErrMalformedPayload),
		errors.Is(err, ranking.ErrNoRequiredSkills):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// bearerToken extracts the credential from the Authorization header or,
// for transports that cannot set headers (EventSource), the token query
// parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return r.URL.Query().Get("token")
}
