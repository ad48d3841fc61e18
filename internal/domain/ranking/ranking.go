// Package ranking computes deterministic helper rankings for an issue.
//
// The engine is a pure function over its inputs: it performs no I/O, never
// mutates candidates, and two calls with identical inputs and candidate
// order produce identical output order.
package ranking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/huddle/internal/domain/model"
)

// Base score weights. They sum to 1; the priority multiplier can push the
// final score up to 1.2.
const (
	skillWeight      = 0.35
	historyWeight    = 0.30
	domainWeight     = 0.20
	engagementWeight = 0.15
)

// History sub-score shape.
const (
	historyPointsWeight   = 0.4
	historyResolvedWeight = 0.3
	historyRatingWeight   = 0.3
	historyPointsCap      = 100
	historyResolvedCap    = 10
	ratingScale           = 5
)

// Engagement recency window: activity older than this scores zero.
const recencyWindowDays = 30

// Domain score for a category with no keyword mapping.
const unmappedCategoryScore = 0.2

// Priority multipliers. An unknown priority falls back to medium.
var priorityMultipliers = map[string]float64{
	"urgent": 1.2,
	"high":   1.1,
	"medium": 1.0,
	"low":    0.95,
}

// defaultDomainKeywords maps an issue category to department keywords. A
// candidate whose department contains any keyword scores full domain marks.
var defaultDomainKeywords = map[string][]string{
	"hardware": {"it", "infrastructure", "helpdesk", "support"},
	"software": {"it", "engineering", "development", "support"},
	"network":  {"it", "infrastructure", "network", "operations"},
	"security": {"it", "security", "compliance"},
	"access":   {"it", "security", "helpdesk", "admin"},
}

// Request carries the issue-side inputs for a ranking call.
type Request struct {
	RequiredSkills []string
	Category       string
	Priority       string
}

// RankedCandidate is one row of ranking output, with the sub-scores kept
// for explainability.
type RankedCandidate struct {
	Candidate  model.Candidate `json:"candidate"`
	Score      float64         `json:"score"`
	Skill      float64         `json:"skill_score"`
	History    float64         `json:"history_score"`
	Domain     float64         `json:"domain_score"`
	Engagement float64         `json:"engagement_score"`
}

// Engine ranks candidates. The clock is injectable so recency scoring is
// deterministic under test.
type Engine struct {
	now            func() time.Time
	domainKeywords map[string][]string
}

// NewEngine creates an Engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:            time.Now,
		domainKeywords: defaultDomainKeywords,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank scores every candidate against the request and returns the full list
// ordered by score descending. Ties keep first-seen input order (stable
// sort). An empty RequiredSkills set is an error, never a silent zero.
func (e *Engine) Rank(candidates []model.Candidate, req Request) ([]RankedCandidate, error) {
	if len(req.RequiredSkills) == 0 {
		return nil, fmt.Errorf("%w: required skills must not be empty", ErrNoRequiredSkills)
	}

	required := make(map[string]struct{}, len(req.RequiredSkills))
	for _, s := range req.RequiredSkills {
		required[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	multiplier, ok := priorityMultipliers[strings.ToLower(req.Priority)]
	if !ok {
		multiplier = priorityMultipliers["medium"]
	}

	now := e.now()
	ranked := make([]RankedCandidate, len(candidates))
	for i := range candidates {
		c := candidates[i]
		skill := skillScore(&c, required)
		history := historyScore(&c)
		domain := e.domainScore(&c, req.Category)
		engagement := engagementScore(&c, now)

		base := skillWeight*skill + historyWeight*history + domainWeight*domain + engagementWeight*engagement
		ranked[i] = RankedCandidate{
			Candidate:  c,
			Score:      base * multiplier,
			Skill:      skill,
			History:    history,
			Domain:     domain,
			Engagement: engagement,
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})
	return ranked, nil
}

// skillScore is the matched fraction of the required skill set,
// case-insensitive on skill names.
func skillScore(c *model.Candidate, required map[string]struct{}) float64 {
	matched := 0
	seen := make(map[string]struct{}, len(c.Skills))
	for _, s := range c.Skills {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := required[name]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}

// historyScore blends cumulative contribution counters and rating.
func historyScore(c *model.Candidate) float64 {
	points := min(float64(c.Points)/historyPointsCap, 1)
	resolved := min(float64(c.IssuesResolved)/historyResolvedCap, 1)
	rating := c.RatingAverage / ratingScale
	return historyPointsWeight*points + historyResolvedWeight*resolved + historyRatingWeight*rating
}

// engagementScore averages recency and availability. Recency is clamped
// to [0,1] so a future last-active timestamp cannot push the final score
// past the priority ceiling.
func engagementScore(c *model.Candidate, now time.Time) float64 {
	days := now.Sub(c.LastActiveAt).Hours() / 24
	recency := min(max(0, 1-days/recencyWindowDays), 1)
	return (recency + c.Availability.Weight()) / 2
}

// domainScore checks the candidate's department against the category's
// keyword list. Categories with no mapping score a small constant so they
// never dominate nor zero out.
func (e *Engine) domainScore(c *model.Candidate, category string) float64 {
	keywords, ok := e.domainKeywords[strings.ToLower(strings.TrimSpace(category))]
	if !ok || len(keywords) == 0 {
		return unmappedCategoryScore
	}
	department := strings.ToLower(c.Department)
	for _, kw := range keywords {
		if strings.Contains(department, kw) {
			return 1
		}
	}
	return 0
}
