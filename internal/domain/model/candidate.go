package model

import "time"

// Availability is a helper's self-reported readiness to take work.
type Availability string

const (
	Available   Availability = "available"
	Busy        Availability = "busy"
	Unavailable Availability = "unavailable"
)

// Weight maps availability to its engagement sub-score contribution.
func (a Availability) Weight() float64 {
	switch a {
	case Available:
		return 1.0
	case Busy:
		return 0.5
	default:
		return 0
	}
}

// Profile is the public slice of an identity, safe to stamp on outbound
// events. Secret fields never leave the identity store.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ExternalID  string `json:"external_id"`
	Department  string `json:"department,omitempty"`
}

// Skill is a named proficiency on a candidate's profile.
type Skill struct {
	Name     string `json:"name"`
	Level    int    `json:"level"`
	Verified bool   `json:"verified"`
}

// Candidate is the read-only view of a helper used for ranking. All of its
// fields are supplied by the identity store; the ranking engine never
// fetches or mutates anything.
type Candidate struct {
	ID             string       `json:"id"`
	DisplayName    string       `json:"display_name"`
	ExternalID     string       `json:"external_id"`
	Department     string       `json:"department"`
	Skills         []Skill      `json:"skills"`
	IssuesResolved int          `json:"issues_resolved"`
	Points         int          `json:"points"`
	RatingAverage  float64      `json:"rating_average"`
	RatingCount    int          `json:"rating_count"`
	Availability   Availability `json:"availability"`
	LastActiveAt   time.Time    `json:"last_active_at"`
}

// Profile projects the candidate's public identity fields.
func (c *Candidate) Profile() Profile {
	return Profile{
		ID:          c.ID,
		DisplayName: c.DisplayName,
		ExternalID:  c.ExternalID,
		Department:  c.Department,
	}
}
