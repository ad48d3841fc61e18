// Package dispatch routes inbound client events through a single handler
// table keyed by event name.
//
// Every catalogue event has a fixed payload contract and a fixed routing
// rule. Malformed payloads are dropped with a log line and a counter
// bump; they never crash the process or produce a partial broadcast.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/huddle/internal/adapters/store"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/realtime/assignment"
	"github.com/okian/huddle/internal/realtime/events"
	"github.com/okian/huddle/internal/realtime/rooms"
	"github.com/okian/huddle/internal/realtime/session"
	"github.com/okian/huddle/pkg/logger"
	"github.com/okian/huddle/pkg/metrics"
)

// Disconnect is the terminal pseudo-event: it triggers presence cleanup
// rather than any fan-out.
const Disconnect = "disconnect"

type handlerFunc func(ctx context.Context, conn *session.Conn, p payload) error

// Dispatcher owns the catalogue table. One instance serves all
// connections.
type Dispatcher struct {
	rooms       *rooms.Router
	coordinator *assignment.Coordinator
	identities  store.IdentityStore

	// disconnect is installed by the owning service so teardown stays in
	// one place.
	disconnect func(ctx context.Context, conn *session.Conn)

	handlers map[string]handlerFunc
	logger   logger.Logger
}

// New builds the dispatcher and its handler table.
func New(router *rooms.Router, coordinator *assignment.Coordinator, identities store.IdentityStore, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		rooms:       router,
		coordinator: coordinator,
		identities:  identities,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logger.Get().Named("dispatch")
	}

	// The closed catalogue: one entry per inbound event.
	d.handlers = map[string]handlerFunc{
		events.IssueUpdate:        d.handleIssueUpdate,
		events.CommentAdd:         d.handleCommentAdd,
		events.IssueAssign:        d.handleIssueAssign,
		events.IssueResolve:       d.handleIssueResolve,
		events.AvailabilityUpdate: d.handleAvailabilityUpdate,
		events.MessageSend:        d.handleMessageSend,
		events.HelpAsk:            d.handleHelpAsk,
		events.HelpRespond:        d.handleHelpRespond,
		events.TypingStart:        d.handleTyping(events.TypingStart),
		events.TypingStop:         d.handleTyping(events.TypingStop),
		Disconnect:                d.handleDisconnect,
	}
	return d
}

// Handle routes one inbound event from a live connection. Unknown names
// and malformed payloads are counted and reported to the transport; they
// produce no outbound effect.
func (d *Dispatcher) Handle(ctx context.Context, conn *session.Conn, name string, raw map[string]any) error {
	start := time.Now()
	defer func() {
		metrics.RecordDispatchLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	h, ok := d.handlers[name]
	if !ok {
		metrics.RecordEventUnknown()
		d.logger.Warn(ctx, "unknown event dropped",
			logger.String("event", name),
			logger.String("identity", conn.Identity()),
		)
		return fmt.Errorf("%s: %w", name, ErrUnknownEvent)
	}

	if err := h(ctx, conn, payload(raw)); err != nil {
		if isMalformed(err) {
			metrics.RecordEventMalformed()
			d.logger.Warn(ctx, "malformed event dropped",
				logger.String("event", name),
				logger.String("identity", conn.Identity()),
				logger.Error(err),
			)
		}
		return err
	}

	metrics.RecordEventDispatched(name)
	return nil
}

// handleIssueUpdate echoes an issue edit to the sender's department,
// sender excluded.
func (d *Dispatcher) handleIssueUpdate(_ context.Context, conn *session.Conn, p payload) error {
	issueID, err := p.str("issue_id")
	if err != nil {
		return err
	}
	updates, err := p.object("updates")
	if err != nil {
		return err
	}

	dept := conn.Profile().Department
	if dept == "" {
		return nil
	}
	ev := events.New(events.IssueUpdate, conn.Profile(), map[string]any{
		"issue_id": issueID,
		"updates":  updates,
	})
	d.rooms.Broadcast(rooms.DepartmentTopic(dept), ev, conn.ID())
	return nil
}

// handleCommentAdd echoes a comment to everyone watching the issue.
func (d *Dispatcher) handleCommentAdd(_ context.Context, conn *session.Conn, p payload) error {
	issueID, err := p.str("issue_id")
	if err != nil {
		return err
	}
	comment, err := p.str("comment")
	if err != nil {
		return err
	}

	ev := events.New(events.CommentAdd, conn.Profile(), map[string]any{
		"issue_id": issueID,
		"comment":  comment,
	})
	d.rooms.Broadcast(rooms.IssueTopic(issueID), ev, "")
	return nil
}

// handleIssueAssign commits the owner-initiated assignment, then notifies
// the assignee directly.
func (d *Dispatcher) handleIssueAssign(ctx context.Context, conn *session.Conn, p payload) error {
	issueID, err := p.str("issue_id")
	if err != nil {
		return err
	}
	assigneeID, err := p.str("assignee_id")
	if err != nil {
		return err
	}

	issue, err := d.coordinator.Assign(ctx, conn.Profile(), issueID, assigneeID)
	if err != nil {
		return err
	}

	ev := events.New(events.IssueAssign, conn.Profile(), map[string]any{
		"issue_id":    issue.ID,
		"status":      issue.Status,
		"assigned_to": issue.AssignedTo,
	})
	d.rooms.Broadcast(rooms.UserTopic(assigneeID), ev, "")
	return nil
}

// handleIssueResolve resolves the issue on behalf of the assigned helper
// and echoes the resolution to the sender's department, sender excluded.
func (d *Dispatcher) handleIssueResolve(ctx context.Context, conn *session.Conn, p payload) error {
	issueID, err := p.str("issue_id")
	if err != nil {
		return err
	}
	solution, err := p.str("solution")
	if err != nil {
		return err
	}
	timeSpent := p.intOr("time_spent_minutes", 0)

	issue, err := d.coordinator.Resolve(ctx, conn.Profile(), issueID, solution, timeSpent)
	if err != nil {
		return err
	}

	if dept := conn.Profile().Department; dept != "" {
		ev := events.New(events.IssueResolve, conn.Profile(), map[string]any{
			"issue_id":    issue.ID,
			"status":      issue.Status,
			"solution":    issue.Solution,
			"resolved_by": issue.ResolvedBy,
		})
		d.rooms.Broadcast(rooms.DepartmentTopic(dept), ev, conn.ID())
	}
	return nil
}

// handleAvailabilityUpdate echoes the new availability to the sender's
// department, sender excluded.
func (d *Dispatcher) handleAvailabilityUpdate(_ context.Context, conn *session.Conn, p payload) error {
	availability, err := p.str("availability")
	if err != nil {
		return err
	}
	switch model.Availability(availability) {
	case model.Available, model.Busy, model.Unavailable:
	default:
		return fmt.Errorf("availability %q: %w", availability, ErrMalformedPayload)
	}

	dept := conn.Profile().Department
	if dept == "" {
		return nil
	}
	ev := events.New(events.AvailabilityUpdate, conn.Profile(), map[string]any{
		"availability": availability,
	})
	d.rooms.Broadcast(rooms.DepartmentTopic(dept), ev, conn.ID())
	return nil
}

// handleMessageSend delivers a direct message and confirms to the sender.
// Messages are never persisted.
func (d *Dispatcher) handleMessageSend(_ context.Context, conn *session.Conn, p payload) error {
	to, err := p.str("to")
	if err != nil {
		return err
	}
	body, err := p.str("body")
	if err != nil {
		return err
	}

	ev := events.New(events.MessageSend, conn.Profile(), map[string]any{
		"body": body,
	})
	d.rooms.Broadcast(rooms.UserTopic(to), ev, "")

	conn.Send(events.New(events.MessageSent, conn.Profile(), map[string]any{
		"to": to,
	}))
	return nil
}

// handleHelpAsk starts the handshake: notify the target, ack the
// requester. No issue state changes here.
func (d *Dispatcher) handleHelpAsk(_ context.Context, conn *session.Conn, p payload) error {
	to, err := p.str("to")
	if err != nil {
		return err
	}
	issueID, err := p.str("issue_id")
	if err != nil {
		return err
	}
	note := p.strOr("note", "")

	d.coordinator.RecordAsk(conn.Identity(), to, issueID)

	ev := events.New(events.HelpAsk, conn.Profile(), map[string]any{
		"issue_id": issueID,
		"note":     note,
	})
	d.rooms.Broadcast(rooms.UserTopic(to), ev, "")

	conn.Send(events.New(events.HelpAskAck, conn.Profile(), map[string]any{
		"issue_id": issueID,
		"to":       to,
	}))
	return nil
}

// handleHelpRespond completes the handshake: the requester is always
// notified and the responder always acked; an acceptance additionally
// spawns the coordinator's commit task. A commit failure is swallowed
// here; the coordinator logs and counts it.
func (d *Dispatcher) handleHelpRespond(ctx context.Context, conn *session.Conn, p payload) error {
	to, err := p.str("to")
	if err != nil {
		return err
	}
	issueID, err := p.str("issue_id")
	if err != nil {
		return err
	}
	accepted, err := p.boolean("accepted")
	if err != nil {
		return err
	}
	note := p.strOr("note", "")

	outcome := "declined"
	if accepted {
		outcome = "accepted"
	}
	metrics.RecordHelpResponse(outcome)

	ev := events.New(events.HelpRespond, conn.Profile(), map[string]any{
		"issue_id": issueID,
		"accepted": accepted,
		"note":     note,
	})
	d.rooms.Broadcast(rooms.UserTopic(to), ev, "")

	conn.Send(events.New(events.HelpRespondAck, conn.Profile(), map[string]any{
		"issue_id": issueID,
		"accepted": accepted,
	}))

	if accepted {
		done := d.coordinator.Accept(ctx, conn.Profile(), to, issueID)
		go func() {
			res := <-done
			d.logger.Debug(context.WithoutCancel(ctx), "accept task completed",
				logger.String("issueID", issueID),
				logger.String("outcome", string(res.Outcome)),
			)
		}()
	}
	return nil
}

// handleTyping relays typing indicators; nothing is stored.
func (d *Dispatcher) handleTyping(name string) handlerFunc {
	return func(_ context.Context, conn *session.Conn, p payload) error {
		to, err := p.str("to")
		if err != nil {
			return err
		}
		d.rooms.Broadcast(rooms.UserTopic(to), events.New(name, conn.Profile(), nil), "")
		return nil
	}
}

// handleDisconnect tears the connection down via the owning service.
func (d *Dispatcher) handleDisconnect(ctx context.Context, conn *session.Conn, _ payload) error {
	if d.disconnect != nil {
		d.disconnect(ctx, conn)
	}
	return nil
}
