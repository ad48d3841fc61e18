package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/huddle/internal/domain/model"
)

// MemoryIssueStore implements IssueStore with a mutex-guarded map. The
// compare-and-swap of UpdateStatus is the map mutation under one lock.
type MemoryIssueStore struct {
	mu     sync.RWMutex
	issues map[string]model.Issue
}

// NewMemoryIssueStore creates an empty in-memory issue store.
func NewMemoryIssueStore() *MemoryIssueStore {
	return &MemoryIssueStore{issues: make(map[string]model.Issue)}
}

// FindByID implements IssueStore.FindByID.
func (s *MemoryIssueStore) FindByID(_ context.Context, id string) (model.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return model.Issue{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	return cloneIssue(issue), nil
}

// Save implements IssueStore.Save.
func (s *MemoryIssueStore) Save(_ context.Context, issue model.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	issue.UpdatedAt = now
	s.issues[issue.ID] = cloneIssue(issue)
	return nil
}

// UpdateStatus implements IssueStore.UpdateStatus. The whole
// check-then-write runs under the write lock, which is what makes it a
// compare-and-swap: a racing caller observes ErrRaceLost, never a double
// assignment.
func (s *MemoryIssueStore) UpdateStatus(_ context.Context, id string, expected, next model.Status, fields StatusFields) (model.Issue, error) {
	if !expected.CanAdvanceTo(next) {
		return model.Issue{}, fmt.Errorf("%s -> %s: %w", expected, next, ErrInvalidTransition)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return model.Issue{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	if issue.Status != expected {
		return model.Issue{}, fmt.Errorf("issue %s is %s, expected %s: %w", id, issue.Status, expected, ErrRaceLost)
	}

	issue.Status = next
	if fields.AssignedTo != "" {
		issue.AssignedTo = fields.AssignedTo
	}
	issue.UpdatedAt = time.Now().UTC()
	s.issues[id] = issue
	return cloneIssue(issue), nil
}

// Vote implements IssueStore.Vote.
func (s *MemoryIssueStore) Vote(_ context.Context, id, voterID string, upvote bool) (model.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return model.Issue{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	if issue.HasVoted(voterID) {
		return model.Issue{}, fmt.Errorf("issue %s, voter %s: %w", id, voterID, ErrAlreadyVoted)
	}

	if upvote {
		issue.Upvoters = append(issue.Upvoters, voterID)
	} else {
		issue.Downvoters = append(issue.Downvoters, voterID)
	}
	issue.UpdatedAt = time.Now().UTC()
	s.issues[id] = issue
	return cloneIssue(issue), nil
}

// Resolve implements IssueStore.Resolve.
func (s *MemoryIssueStore) Resolve(_ context.Context, id, resolverID, solution string, timeSpentMinutes int) (model.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[id]
	if !ok {
		return model.Issue{}, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	if issue.AssignedTo == "" || issue.AssignedTo != resolverID {
		return model.Issue{}, fmt.Errorf("issue %s, resolver %s: %w", id, resolverID, ErrNotAssignee)
	}
	if !issue.Status.CanAdvanceTo(model.StatusResolved) {
		return model.Issue{}, fmt.Errorf("issue %s is %s: %w", id, issue.Status, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	issue.Status = model.StatusResolved
	issue.ResolvedBy = resolverID
	issue.Solution = solution
	issue.ResolvedAt = now
	issue.TimeSpent = timeSpentMinutes
	issue.UpdatedAt = now
	s.issues[id] = issue
	return cloneIssue(issue), nil
}

// Count returns the number of stored issues.
func (s *MemoryIssueStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.issues)
}

// cloneIssue deep-copies the slice-valued fields so callers never alias
// stored state.
func cloneIssue(issue model.Issue) model.Issue {
	issue.RequiredSkills = append([]string(nil), issue.RequiredSkills...)
	issue.Upvoters = append([]string(nil), issue.Upvoters...)
	issue.Downvoters = append([]string(nil), issue.Downvoters...)
	return issue
}
