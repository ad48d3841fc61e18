package model_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/huddle/internal/domain/model"
)

func TestStatus(t *testing.T) {
	Convey("Given the issue lifecycle", t, func() {
		Convey("When validating status values", func() {
			So(model.StatusOpen.Valid(), ShouldBeTrue)
			So(model.StatusClosed.Valid(), ShouldBeTrue)
			So(model.Status("limbo").Valid(), ShouldBeFalse)
		})

		Convey("When checking forward transitions", func() {
			So(model.StatusOpen.CanAdvanceTo(model.StatusAssigned), ShouldBeTrue)
			So(model.StatusAssigned.CanAdvanceTo(model.StatusResolved), ShouldBeTrue)
			So(model.StatusOpen.CanAdvanceTo(model.StatusClosed), ShouldBeTrue)
		})

		Convey("When checking illegal transitions", func() {
			Convey("Then backward moves are rejected", func() {
				So(model.StatusResolved.CanAdvanceTo(model.StatusAssigned), ShouldBeFalse)
				So(model.StatusClosed.CanAdvanceTo(model.StatusOpen), ShouldBeFalse)
			})

			Convey("And self transitions are rejected", func() {
				So(model.StatusOpen.CanAdvanceTo(model.StatusOpen), ShouldBeFalse)
			})

			Convey("And unknown statuses never transition", func() {
				So(model.Status("limbo").CanAdvanceTo(model.StatusOpen), ShouldBeFalse)
				So(model.StatusOpen.CanAdvanceTo(model.Status("limbo")), ShouldBeFalse)
			})
		})
	})
}

func TestIssueHasVoted(t *testing.T) {
	Convey("Given an issue with recorded votes", t, func() {
		issue := model.Issue{
			Upvoters:   []string{"alice"},
			Downvoters: []string{"bob"},
		}

		Convey("When checking voters", func() {
			So(issue.HasVoted("alice"), ShouldBeTrue)
			So(issue.HasVoted("bob"), ShouldBeTrue)
			So(issue.HasVoted("carol"), ShouldBeFalse)
		})
	})
}
