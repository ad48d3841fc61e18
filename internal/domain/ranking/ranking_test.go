package ranking_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/domain/ranking"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func candidate(id string) model.Candidate {
	return model.Candidate{
		ID:           id,
		DisplayName:  id,
		Department:   "IT Support",
		Skills:       []model.Skill{{Name: "network", Level: 3}},
		Availability: model.Available,
		LastActiveAt: fixedClock(),
	}
}

func TestEngine_Rank(t *testing.T) {
	Convey("Given a ranking engine with a fixed clock", t, func() {
		engine := ranking.NewEngine(ranking.WithClock(fixedClock))

		Convey("When required skills are empty", func() {
			_, err := engine.Rank([]model.Candidate{candidate("a")}, ranking.Request{
				Category: "network",
				Priority: "medium",
			})

			Convey("Then it should reject the request", func() {
				So(err, ShouldNotBeNil)
				So(err, ShouldWrap, ranking.ErrNoRequiredSkills)
			})
		})

		Convey("When a candidate covers half of the required skills", func() {
			ranked, err := engine.Rank([]model.Candidate{candidate("a")}, ranking.Request{
				RequiredSkills: []string{"network", "vpn"},
				Category:       "network",
				Priority:       "medium",
			})

			Convey("Then the skill sub-score is the matched fraction", func() {
				So(err, ShouldBeNil)
				So(ranked, ShouldHaveLength, 1)
				So(ranked[0].Skill, ShouldAlmostEqual, 0.5)
			})
		})

		Convey("When skill names differ only in case", func() {
			c := candidate("a")
			c.Skills = []model.Skill{{Name: "NetWork"}, {Name: "network"}, {Name: "VPN"}}
			ranked, err := engine.Rank([]model.Candidate{c}, ranking.Request{
				RequiredSkills: []string{"Network", "vpn"},
				Category:       "network",
				Priority:       "medium",
			})

			Convey("Then matching is case-insensitive and duplicates count once", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Skill, ShouldAlmostEqual, 1.0)
			})
		})

		Convey("When the same candidate is ranked at different priorities", func() {
			pool := []model.Candidate{candidate("a")}
			req := ranking.Request{RequiredSkills: []string{"network"}, Category: "network"}

			req.Priority = "medium"
			medium, err := engine.Rank(pool, req)
			So(err, ShouldBeNil)

			req.Priority = "urgent"
			urgent, err := engine.Rank(pool, req)
			So(err, ShouldBeNil)

			Convey("Then urgent scores exactly 1.2x medium", func() {
				So(urgent[0].Score, ShouldAlmostEqual, medium[0].Score*1.2)
			})

			Convey("And an unknown priority falls back to medium", func() {
				req.Priority = "catastrophic"
				unknown, rankErr := engine.Rank(pool, req)
				So(rankErr, ShouldBeNil)
				So(unknown[0].Score, ShouldAlmostEqual, medium[0].Score)
			})
		})

		Convey("When a candidate is perfect on every axis", func() {
			c := model.Candidate{
				ID:             "perfect",
				Department:     "IT Support",
				Skills:         []model.Skill{{Name: "network"}, {Name: "vpn"}},
				IssuesResolved: 10,
				Points:         100,
				RatingAverage:  5,
				Availability:   model.Available,
				LastActiveAt:   fixedClock(),
			}
			ranked, err := engine.Rank([]model.Candidate{c}, ranking.Request{
				RequiredSkills: []string{"network", "vpn"},
				Category:       "network",
				Priority:       "urgent",
			})

			Convey("Then the score hits the 1.2 ceiling and never exceeds it", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Score, ShouldAlmostEqual, 1.2)
				So(ranked[0].Skill, ShouldAlmostEqual, 1.0)
				So(ranked[0].History, ShouldAlmostEqual, 1.0)
				So(ranked[0].Domain, ShouldAlmostEqual, 1.0)
				So(ranked[0].Engagement, ShouldAlmostEqual, 1.0)
			})
		})

		Convey("When candidates differ in history", func() {
			strong := candidate("strong")
			strong.Points = 100
			strong.IssuesResolved = 10
			strong.RatingAverage = 5
			weak := candidate("weak")

			ranked, err := engine.Rank([]model.Candidate{weak, strong}, ranking.Request{
				RequiredSkills: []string{"network"},
				Category:       "network",
				Priority:       "medium",
			})

			Convey("Then output is ordered by score descending", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Candidate.ID, ShouldEqual, "strong")
				So(ranked[1].Candidate.ID, ShouldEqual, "weak")
				So(ranked[0].Score, ShouldBeGreaterThan, ranked[1].Score)
			})
		})

		Convey("When two candidates tie exactly", func() {
			first := candidate("first")
			second := candidate("second")
			ranked, err := engine.Rank([]model.Candidate{first, second}, ranking.Request{
				RequiredSkills: []string{"network"},
				Category:       "network",
				Priority:       "medium",
			})

			Convey("Then input order is preserved", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Candidate.ID, ShouldEqual, "first")
				So(ranked[1].Candidate.ID, ShouldEqual, "second")
			})
		})

		Convey("When a candidate has been inactive beyond the recency window", func() {
			stale := candidate("stale")
			stale.LastActiveAt = fixedClock().Add(-60 * 24 * time.Hour)
			stale.Availability = model.Unavailable
			ranked, err := engine.Rank([]model.Candidate{stale}, ranking.Request{
				RequiredSkills: []string{"network"},
				Category:       "network",
				Priority:       "medium",
			})

			Convey("Then engagement bottoms out at zero", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Engagement, ShouldAlmostEqual, 0)
			})
		})

		Convey("When a candidate reports a last-active time in the future", func() {
			ahead := candidate("ahead")
			ahead.LastActiveAt = fixedClock().Add(90 * 24 * time.Hour)
			ahead.IssuesResolved = 10
			ahead.Points = 100
			ahead.RatingAverage = 5
			ranked, err := engine.Rank([]model.Candidate{ahead}, ranking.Request{
				RequiredSkills: []string{"network"},
				Category:       "hardware",
				Priority:       "urgent",
			})

			Convey("Then engagement is capped at one and the score stays within the ceiling", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Engagement, ShouldAlmostEqual, 1)
				So(ranked[0].Score, ShouldAlmostEqual, 1.2)
			})
		})

		Convey("When the issue category has no keyword mapping", func() {
			ranked, err := engine.Rank([]model.Candidate{candidate("a")}, ranking.Request{
				RequiredSkills: []string{"network"},
				Category:       "poltergeists",
				Priority:       "medium",
			})

			Convey("Then the domain sub-score is the unmapped constant", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Domain, ShouldAlmostEqual, 0.2)
			})
		})

		Convey("When ranking runs over a candidate pool", func() {
			a := candidate("a")
			b := candidate("b")
			b.Points = 100
			pool := []model.Candidate{a, b}

			_, err := engine.Rank(pool, ranking.Request{
				RequiredSkills: []string{"network"},
				Category:       "network",
				Priority:       "urgent",
			})

			Convey("Then the input slice is not reordered or mutated", func() {
				So(err, ShouldBeNil)
				So(pool[0].ID, ShouldEqual, "a")
				So(pool[1].ID, ShouldEqual, "b")
				So(pool[0].Points, ShouldEqual, 0)
				So(pool[1].Points, ShouldEqual, 100)
			})
		})

		Convey("When custom domain keywords are supplied", func() {
			custom := ranking.NewEngine(
				ranking.WithClock(fixedClock),
				ranking.WithDomainKeywords(map[string][]string{
					"facilities": {"maintenance"},
				}),
			)
			c := candidate("a")
			c.Department = "Building Maintenance"
			ranked, err := custom.Rank([]model.Candidate{c}, ranking.Request{
				RequiredSkills: []string{"network"},
				Category:       "facilities",
				Priority:       "medium",
			})

			Convey("Then the custom mapping drives the domain score", func() {
				So(err, ShouldBeNil)
				So(ranked[0].Domain, ShouldAlmostEqual, 1.0)
			})
		})
	})
}
