package dispatch_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/huddle/internal/adapters/store"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/realtime/assignment"
	"github.com/okian/huddle/internal/realtime/dispatch"
	"github.com/okian/huddle/internal/realtime/events"
	"github.com/okian/huddle/internal/realtime/rooms"
	"github.com/okian/huddle/internal/realtime/session"
	"github.com/okian/huddle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fixture struct {
	router     *rooms.Router
	coord      *assignment.Coordinator
	issues     *store.MemoryIssueStore
	identities *store.MemoryIdentityStore
	dispatcher *dispatch.Dispatcher
}

func newFixture(ctx context.Context) *fixture {
	f := &fixture{
		router:     rooms.NewRouter(),
		issues:     store.NewMemoryIssueStore(),
		identities: store.NewMemoryIdentityStore(),
	}
	f.coord = assignment.NewCoordinator(f.issues, f.identities, f.router)
	So(f.coord.Start(ctx), ShouldBeNil)
	f.dispatcher = dispatch.New(f.router, f.coord, f.identities)
	return f
}

// connect wires a test connection into its personal and department rooms,
// mirroring what the service does on connect.
func (f *fixture) connect(id, dept string) *session.Conn {
	conn := session.New(model.Profile{ID: id, DisplayName: id, Department: dept}, 16)
	f.router.Join(conn, rooms.UserTopic(id))
	if dept != "" {
		f.router.Join(conn, rooms.DepartmentTopic(dept))
	}
	return conn
}

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

// awaitEvent waits for the next pushed event, tolerating worker latency.
func awaitEvent(conn *session.Conn) (events.Event, bool) {
	select {
	case ev := <-conn.Events():
		return ev, true
	case <-time.After(2 * time.Second):
		return events.Event{}, false
	}
}

func TestDispatcher_Routing(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dispatcher with three connected users", t, func() {
		f := newFixture(ctx)
		Reset(f.coord.Stop)

		alice := f.connect("alice", "it")
		bob := f.connect("bob", "it")
		carol := f.connect("carol", "sales")

		Convey("When an unknown event arrives", func() {
			err := f.dispatcher.Handle(ctx, alice, "issue:explode", nil)

			Convey("Then it is rejected and nothing is broadcast", func() {
				So(err, ShouldWrap, dispatch.ErrUnknownEvent)
				So(drain(bob), ShouldBeEmpty)
				So(drain(carol), ShouldBeEmpty)
			})
		})

		Convey("When an issue update has a malformed payload", func() {
			err := f.dispatcher.Handle(ctx, alice, events.IssueUpdate, map[string]any{
				"issue_id": 42,
				"updates":  map[string]any{"title": "new"},
			})

			Convey("Then it is dropped without partial fan-out", func() {
				So(err, ShouldWrap, dispatch.ErrMalformedPayload)
				So(drain(bob), ShouldBeEmpty)
			})
		})

		Convey("When a valid issue update is dispatched", func() {
			err := f.dispatcher.Handle(ctx, alice, events.IssueUpdate, map[string]any{
				"issue_id": "i1",
				"updates":  map[string]any{"title": "clearer title"},
			})

			Convey("Then the department hears it, sender and outsiders excluded", func() {
				So(err, ShouldBeNil)
				got := drain(bob)
				So(got, ShouldHaveLength, 1)
				So(got[0].Name, ShouldEqual, events.IssueUpdate)
				So(got[0].Actor.ID, ShouldEqual, "alice")
				So(drain(alice), ShouldBeEmpty)
				So(drain(carol), ShouldBeEmpty)
			})
		})

		Convey("When a comment lands on a watched issue", func() {
			f.router.Join(carol, rooms.IssueTopic("i1"))
			f.router.Join(alice, rooms.IssueTopic("i1"))

			err := f.dispatcher.Handle(ctx, alice, events.CommentAdd, map[string]any{
				"issue_id": "i1",
				"comment":  "try turning it off and on",
			})

			Convey("Then every watcher including the sender receives it", func() {
				So(err, ShouldBeNil)
				So(drain(alice), ShouldHaveLength, 1)
				got := drain(carol)
				So(got, ShouldHaveLength, 1)
				So(got[0].Payload["comment"], ShouldEqual, "try turning it off and on")
				So(drain(bob), ShouldBeEmpty)
			})
		})

		Convey("When a direct message is sent", func() {
			err := f.dispatcher.Handle(ctx, alice, events.MessageSend, map[string]any{
				"to":   "carol",
				"body": "lunch?",
			})

			Convey("Then the recipient gets the message and the sender gets a confirmation", func() {
				So(err, ShouldBeNil)
				got := drain(carol)
				So(got, ShouldHaveLength, 1)
				So(got[0].Name, ShouldEqual, events.MessageSend)
				So(got[0].Payload["body"], ShouldEqual, "lunch?")

				ack := drain(alice)
				So(ack, ShouldHaveLength, 1)
				So(ack[0].Name, ShouldEqual, events.MessageSent)
				So(drain(bob), ShouldBeEmpty)
			})
		})

		Convey("When availability changes", func() {
			err := f.dispatcher.Handle(ctx, alice, events.AvailabilityUpdate, map[string]any{
				"availability": "busy",
			})

			Convey("Then the department is told, sender excluded", func() {
				So(err, ShouldBeNil)
				got := drain(bob)
				So(got, ShouldHaveLength, 1)
				So(got[0].Payload["availability"], ShouldEqual, "busy")
				So(drain(alice), ShouldBeEmpty)
			})
		})

		Convey("When an out-of-range availability arrives", func() {
			badErr := f.dispatcher.Handle(ctx, alice, events.AvailabilityUpdate, map[string]any{
				"availability": "on the moon",
			})

			Convey("Then it is rejected as malformed with no fan-out", func() {
				So(badErr, ShouldWrap, dispatch.ErrMalformedPayload)
				So(drain(bob), ShouldBeEmpty)
			})
		})

		Convey("When typing indicators fire", func() {
			So(f.dispatcher.Handle(ctx, alice, events.TypingStart, map[string]any{"to": "bob"}), ShouldBeNil)
			So(f.dispatcher.Handle(ctx, alice, events.TypingStop, map[string]any{"to": "bob"}), ShouldBeNil)

			Convey("Then the peer sees start and stop in order", func() {
				got := drain(bob)
				So(got, ShouldHaveLength, 2)
				So(got[0].Name, ShouldEqual, events.TypingStart)
				So(got[1].Name, ShouldEqual, events.TypingStop)
			})
		})
	})
}

func TestDispatcher_Handshake(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dispatcher with an open issue and connected parties", t, func() {
		f := newFixture(ctx)
		Reset(f.coord.Stop)

		owner := f.connect("owner-1", "sales")
		helper := f.connect("helper-1", "it")

		So(f.issues.Save(ctx, model.Issue{
			ID:             "i1",
			Title:          "laptop bricked",
			Status:         model.StatusOpen,
			Priority:       "urgent",
			Category:       "hardware",
			PostedBy:       "owner-1",
			RequiredSkills: []string{"hardware"},
		}), ShouldBeNil)

		Convey("When the owner asks the helper for help", func() {
			err := f.dispatcher.Handle(ctx, owner, events.HelpAsk, map[string]any{
				"to":       "helper-1",
				"issue_id": "i1",
				"note":     "please",
			})

			Convey("Then the helper is notified and the owner acked", func() {
				So(err, ShouldBeNil)
				got := drain(helper)
				So(got, ShouldHaveLength, 1)
				So(got[0].Name, ShouldEqual, events.HelpAsk)
				So(got[0].Actor.ID, ShouldEqual, "owner-1")

				ack := drain(owner)
				So(ack, ShouldHaveLength, 1)
				So(ack[0].Name, ShouldEqual, events.HelpAskAck)
				So(f.coord.PendingAsks(), ShouldEqual, 1)
			})
		})

		Convey("When the helper declines", func() {
			err := f.dispatcher.Handle(ctx, helper, events.HelpRespond, map[string]any{
				"to":       "owner-1",
				"issue_id": "i1",
				"accepted": false,
			})

			Convey("Then the owner hears the decline and no assignment happens", func() {
				So(err, ShouldBeNil)
				got := drain(owner)
				So(got, ShouldHaveLength, 1)
				So(got[0].Name, ShouldEqual, events.HelpRespond)
				So(got[0].Payload["accepted"], ShouldEqual, false)

				issue, findErr := f.issues.FindByID(ctx, "i1")
				So(findErr, ShouldBeNil)
				So(issue.Status, ShouldEqual, model.StatusOpen)
			})
		})

		Convey("When the helper accepts", func() {
			err := f.dispatcher.Handle(ctx, helper, events.HelpRespond, map[string]any{
				"to":       "owner-1",
				"issue_id": "i1",
				"accepted": true,
			})
			So(err, ShouldBeNil)

			Convey("Then both parties eventually see the committed assignment", func() {
				// owner first hears the respond relay, then the assignment
				relay, ok := awaitEvent(owner)
				So(ok, ShouldBeTrue)
				So(relay.Name, ShouldEqual, events.HelpRespond)

				assigned, ok := awaitEvent(owner)
				So(ok, ShouldBeTrue)
				So(assigned.Name, ShouldEqual, events.IssueAssigned)
				So(assigned.Payload["assigned_to"], ShouldEqual, "helper-1")

				// helper hears its ack, then the assignment
				ack, ok := awaitEvent(helper)
				So(ok, ShouldBeTrue)
				So(ack.Name, ShouldEqual, events.HelpRespondAck)

				helperAssigned, ok := awaitEvent(helper)
				So(ok, ShouldBeTrue)
				So(helperAssigned.Name, ShouldEqual, events.IssueAssigned)

				issue, findErr := f.issues.FindByID(ctx, "i1")
				So(findErr, ShouldBeNil)
				So(issue.Status, ShouldEqual, model.StatusAssigned)
				So(issue.AssignedTo, ShouldEqual, "helper-1")
			})
		})

		Convey("When the owner assigns directly via issue:assign", func() {
			err := f.dispatcher.Handle(ctx, owner, events.IssueAssign, map[string]any{
				"issue_id":    "i1",
				"assignee_id": "helper-1",
			})

			Convey("Then the assignee is notified with the committed state", func() {
				So(err, ShouldBeNil)
				got := drain(helper)
				So(got, ShouldHaveLength, 1)
				So(got[0].Name, ShouldEqual, events.IssueAssign)
				So(got[0].Payload["assigned_to"], ShouldEqual, "helper-1")
			})

			Convey("And a non-owner attempting issue:assign is refused", func() {
				badErr := f.dispatcher.Handle(ctx, helper, events.IssueAssign, map[string]any{
					"issue_id":    "i1",
					"assignee_id": "helper-1",
				})
				So(badErr, ShouldWrap, assignment.ErrNotOwner)
			})
		})

		Convey("When the assignee resolves via issue:resolve", func() {
			f.identities.Put(ctx, model.Candidate{ID: "helper-1", DisplayName: "Helper"})
			So(f.dispatcher.Handle(ctx, owner, events.IssueAssign, map[string]any{
				"issue_id":    "i1",
				"assignee_id": "helper-1",
			}), ShouldBeNil)

			err := f.dispatcher.Handle(ctx, helper, events.IssueResolve, map[string]any{
				"issue_id":           "i1",
				"solution":           "reseated the RAM",
				"time_spent_minutes": float64(20),
			})

			Convey("Then the issue is resolved and the helper's department is told", func() {
				So(err, ShouldBeNil)
				issue, findErr := f.issues.FindByID(ctx, "i1")
				So(findErr, ShouldBeNil)
				So(issue.Status, ShouldEqual, model.StatusResolved)
				So(issue.TimeSpent, ShouldEqual, 20)

				c, candErr := f.identities.Candidate(ctx, "helper-1")
				So(candErr, ShouldBeNil)
				So(c.IssuesResolved, ShouldEqual, 1)
			})
		})
	})
}
