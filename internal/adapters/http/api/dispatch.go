package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// dispatchRequest is the wire shape for POST /dispatch.
type dispatchRequest struct {
	ConnectionID string         `json:"connection_id"`
	Event        string         `json:"event"`
	Payload      map[string]any `json:"payload"`
}

func (d dispatchRequest) validate() error {
	switch {
	case strings.TrimSpace(d.ConnectionID) == "":
		return errors.New("missing connection_id")
	case strings.TrimSpace(d.Event) == "":
		return errors.New("missing event")
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
}

// handleDispatch handles POST /dispatch: one inbound client event.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := s.deps.Dispatch(r.Context(), bearerToken(r), req.ConnectionID, req.Event, req.Payload); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// watchRequest is the wire shape for the watch/unwatch endpoints.
type watchRequest struct {
	ConnectionID string `json:"connection_id"`
}

// handleWatch handles POST /issues/{issueID}/watch.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	s.handleMembership(w, r, s.deps.WatchIssue)
}

// handleUnwatch handles POST /issues/{issueID}/unwatch.
func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	s.handleMembership(w, r, s.deps.UnwatchIssue)
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, token, connID, issueID string) error) {
	issueID := chi.URLParam(r, "issueID")

	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.ConnectionID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing connection_id"))
		return
	}

	if err := op(r.Context(), bearerToken(r), req.ConnectionID, issueID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}

// voteRequest is the wire shape for POST /issues/{issueID}/vote.
type voteRequest struct {
	Direction string `json:"direction"`
}

type voteResponse struct {
	IssueID   string `json:"issue_id"`
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
}

// handleVote handles POST /issues/{issueID}/vote.
func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	issueID := chi.URLParam(r, "issueID")

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var upvote bool
	switch req.Direction {
	case "up":
		upvote = true
	case "down":
		upvote = false
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadDirection)
		return
	}

	issue, err := s.deps.VoteIssue(r.Context(), bearerToken(r), issueID, upvote)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{
		IssueID:   issue.ID,
		Upvotes:   len(issue.Upvoters),
		Downvotes: len(issue.Downvoters),
	})
}
