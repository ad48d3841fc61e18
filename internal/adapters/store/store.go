// Package store defines the read/write contracts this core consumes from
// the external issue and identity stores, plus in-memory implementations
// used for tests and single-process deployments.
package store

import (
	"context"
	"time"

	"github.com/okian/huddle/internal/domain/model"
)

// StatusFields carries the extra fields applied together with a status
// transition. Zero values are left untouched.
type StatusFields struct {
	// AssignedTo sets the helper identity when non-empty.
	AssignedTo string
}

// IssueStore is the authoritative home of issue records. The conditional
// UpdateStatus is the single mutual-exclusion point of the accepted
// handshake: the expected status is compared and swapped atomically, so of
// two racing writers exactly one succeeds.
type IssueStore interface {
	// FindByID returns the issue or ErrNotFound.
	FindByID(ctx context.Context, id string) (model.Issue, error)

	// Save upserts an issue record.
	Save(ctx context.Context, issue model.Issue) error

	// UpdateStatus atomically moves the issue from expected to next and
	// applies fields. It fails with ErrInvalidTransition when the move is
	// not a forward step, and with ErrRaceLost when the stored status no
	// longer equals expected.
	UpdateStatus(ctx context.Context, id string, expected, next model.Status, fields StatusFields) (model.Issue, error)

	// Vote records a single up or down vote. An identity that has voted in
	// either direction gets ErrAlreadyVoted; the existing vote is never
	// overwritten.
	Vote(ctx context.Context, id, voterID string, upvote bool) (model.Issue, error)

	// Resolve marks the issue resolved. Only the currently assigned helper
	// may resolve; anyone else gets ErrNotAssignee.
	Resolve(ctx context.Context, id, resolverID, solution string, timeSpentMinutes int) (model.Issue, error)
}

// IdentityStore exposes public profile data and the write-backs this core
// requests as side effects. Secret fields never cross this interface.
type IdentityStore interface {
	// FindByID returns the public profile or ErrNotFound.
	FindByID(ctx context.Context, id string) (model.Profile, error)

	// Candidate returns the full ranking view for one identity.
	Candidate(ctx context.Context, id string) (model.Candidate, error)

	// Candidates returns the ranking views for the whole helper pool.
	Candidates(ctx context.Context) ([]model.Candidate, error)

	// UpdateLastActive stamps the identity's last-seen time.
	UpdateLastActive(ctx context.Context, id string, at time.Time) error

	// CreditContribution bumps the identity's resolved counter and points
	// after a resolution. Requested by this core, performed by the store.
	CreditContribution(ctx context.Context, id string, points int) error
}
