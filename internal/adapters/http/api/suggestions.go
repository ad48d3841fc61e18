package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/huddle/internal/domain/ranking"
)

type suggestionsResponse struct {
	IssueID     string                   `json:"issue_id"`
	Suggestions []ranking.RankedCandidate `json:"suggestions"`
}

// handleSuggestions handles GET /issues/{issueID}/suggestions requests.
// The caller must present a valid token; the ranking itself is driven by
// the issue's required skills, not by who asks.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Authenticate(bearerToken(r)); err != nil {
		writeDomainError(w, err)
		return
	}

	issueID := chi.URLParam(r, "issueID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadLimit)
			return
		}
		limit = n
	}

	ranked, err := s.deps.Suggestions(r.Context(), issueID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{IssueID: issueID, Suggestions: ranked})
}
