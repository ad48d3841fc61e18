package rooms_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/realtime/events"
	"github.com/okian/huddle/internal/realtime/rooms"
	"github.com/okian/huddle/internal/realtime/session"
)

func newConn(identity string) *session.Conn {
	return session.New(model.Profile{ID: identity, DisplayName: identity}, 8)
}

// drain returns every event currently buffered on the connection.
func drain(conn *session.Conn) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-conn.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestRouter(t *testing.T) {
	Convey("Given a room router with two members in a department topic", t, func() {
		r := rooms.NewRouter()
		topic := rooms.DepartmentTopic("it")
		alice := newConn("alice")
		bob := newConn("bob")
		r.Join(alice, topic)
		r.Join(bob, topic)

		Convey("When broadcasting without exclusion", func() {
			r.Broadcast(topic, events.NewSystem("issue:update", map[string]any{"issue_id": "i1"}), "")

			Convey("Then every member receives the event", func() {
				So(drain(alice), ShouldHaveLength, 1)
				So(drain(bob), ShouldHaveLength, 1)
			})
		})

		Convey("When broadcasting with the sender excluded", func() {
			r.Broadcast(topic, events.NewSystem("issue:update", nil), alice.ID())

			Convey("Then the sender does not hear its own event", func() {
				So(drain(alice), ShouldBeEmpty)
				So(drain(bob), ShouldHaveLength, 1)
			})
		})

		Convey("When a member leaves the topic", func() {
			r.Leave(bob, topic)
			r.Broadcast(topic, events.NewSystem("issue:update", nil), "")

			Convey("Then it no longer receives broadcasts", func() {
				So(drain(bob), ShouldBeEmpty)
				So(drain(alice), ShouldHaveLength, 1)
				So(r.MemberCount(topic), ShouldEqual, 1)
			})
		})

		Convey("When a connection leaves all topics on disconnect", func() {
			issueTopic := rooms.IssueTopic("i1")
			r.Join(bob, issueTopic)
			So(r.Topics(bob.ID()), ShouldHaveLength, 2)

			r.LeaveAll(bob.ID())

			Convey("Then it is gone from every topic", func() {
				So(r.Topics(bob.ID()), ShouldBeEmpty)
				So(r.MemberCount(topic), ShouldEqual, 1)
				So(r.MemberCount(issueTopic), ShouldEqual, 0)
			})

			Convey("And empty topics are dropped from the room count", func() {
				So(r.RoomCount(), ShouldEqual, 1)
			})
		})

		Convey("When joining the same topic twice", func() {
			r.Join(alice, topic)

			Convey("Then membership is unchanged and delivery is single", func() {
				So(r.MemberCount(topic), ShouldEqual, 2)
				r.Broadcast(topic, events.NewSystem("issue:update", nil), "")
				So(drain(alice), ShouldHaveLength, 1)
			})
		})

		Convey("When a member's buffer is full", func() {
			tiny := session.New(model.Profile{ID: "carol"}, 1)
			r.Join(tiny, topic)
			r.Broadcast(topic, events.NewSystem("issue:update", nil), "")
			r.Broadcast(topic, events.NewSystem("issue:update", nil), "")

			Convey("Then the overflow is dropped without blocking the broadcast", func() {
				So(drain(tiny), ShouldHaveLength, 1)
				So(drain(alice), ShouldHaveLength, 2)
			})
		})

		Convey("When a member has closed its connection", func() {
			bob.Close()
			So(func() {
				r.Broadcast(topic, events.NewSystem("issue:update", nil), "")
			}, ShouldNotPanic)

			Convey("Then the remaining member still receives the event", func() {
				So(drain(alice), ShouldHaveLength, 1)
			})
		})
	})
}
