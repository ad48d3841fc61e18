package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/huddle/internal/domain/model"
)

// Points credited per resolved issue. The identity store owns the counter;
// this core only requests the increment.
const resolutionPoints = 10

// MemoryIdentityStore implements IdentityStore with a mutex-guarded map.
type MemoryIdentityStore struct {
	mu         sync.RWMutex
	candidates map[string]model.Candidate
}

// NewMemoryIdentityStore creates an empty in-memory identity store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{candidates: make(map[string]model.Candidate)}
}

// Put seeds or replaces a candidate record.
func (s *MemoryIdentityStore) Put(_ context.Context, c model.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[c.ID] = cloneCandidate(c)
}

// FindByID implements IdentityStore.FindByID.
func (s *MemoryIdentityStore) FindByID(_ context.Context, id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.candidates[id]
	if !ok {
		return model.Profile{}, fmt.Errorf("identity %s: %w", id, ErrNotFound)
	}
	return c.Profile(), nil
}

// Candidate implements IdentityStore.Candidate.
func (s *MemoryIdentityStore) Candidate(_ context.Context, id string) (model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.candidates[id]
	if !ok {
		return model.Candidate{}, fmt.Errorf("identity %s: %w", id, ErrNotFound)
	}
	return cloneCandidate(c), nil
}

// Candidates implements IdentityStore.Candidates. The pool is returned
// sorted by ID so downstream stable ranking breaks ties the same way on
// every call.
func (s *MemoryIdentityStore) Candidates(_ context.Context) ([]model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		out = append(out, cloneCandidate(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateLastActive implements IdentityStore.UpdateLastActive.
func (s *MemoryIdentityStore) UpdateLastActive(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok {
		return fmt.Errorf("identity %s: %w", id, ErrNotFound)
	}
	c.LastActiveAt = at
	s.candidates[id] = c
	return nil
}

// CreditContribution implements IdentityStore.CreditContribution.
func (s *MemoryIdentityStore) CreditContribution(_ context.Context, id string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok {
		return fmt.Errorf("identity %s: %w", id, ErrNotFound)
	}
	c.IssuesResolved++
	c.Points += points
	s.candidates[id] = c
	return nil
}

// ResolutionPoints returns the per-resolution point credit.
func ResolutionPoints() int { return resolutionPoints }

func cloneCandidate(c model.Candidate) model.Candidate {
	c.Skills = append([]model.Skill(nil), c.Skills...)
	return c
}
