// Package model contains domain models passed between layers.
package model

import "time"

// Status is the lifecycle state of an issue. Transitions only move forward.
type Status string

const (
	StatusOpen       Status = "open"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// order maps each status to its position in the lifecycle.
var order = map[Status]int{
	StatusOpen:       0,
	StatusAssigned:   1,
	StatusInProgress: 2,
	StatusResolved:   3,
	StatusClosed:     4,
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	_, ok := order[s]
	return ok
}

// CanAdvanceTo reports whether moving from s to next is a legal forward step.
// Equal or backward moves are never legal.
func (s Status) CanAdvanceTo(next Status) bool {
	from, ok := order[s]
	if !ok {
		return false
	}
	to, ok := order[next]
	if !ok {
		return false
	}
	return to > from
}

// Issue is the persistent record owned by the external issue store. The
// coordination layer reads and conditionally writes it, never caches it.
type Issue struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Status         Status    `json:"status"`
	Priority       string    `json:"priority"`
	Category       string    `json:"category"`
	PostedBy       string    `json:"posted_by"`
	AssignedTo     string    `json:"assigned_to,omitempty"`
	RequiredSkills []string  `json:"required_skills"`
	Upvoters       []string  `json:"upvoters,omitempty"`
	Downvoters     []string  `json:"downvoters,omitempty"`
	Solution       string    `json:"solution,omitempty"`
	ResolvedBy     string    `json:"resolved_by,omitempty"`
	ResolvedAt     time.Time `json:"resolved_at,omitzero"`
	TimeSpent      int       `json:"time_spent_minutes,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
	UpdatedAt      time.Time `json:"updated_at,omitzero"`
}

// HasVoted reports whether id already appears in either vote set.
func (i *Issue) HasVoted(id string) bool {
	for _, v := range i.Upvoters {
		if v == id {
			return true
		}
	}
	for _, v := range i.Downvoters {
		if v == id {
			return true
		}
	}
	return false
}
