// Package rooms manages topic membership and fan-out of named events to
// topic members.
//
// A topic is an opaque string key: personal ("user:<id>"), organizational
// ("department:<name>"), or per-issue ("issue:<id>"). Membership is not
// persisted; it is rebuilt from scratch on every new connection.
package rooms

import (
	"fmt"
	"sync"

	"github.com/okian/huddle/internal/realtime/events"
	"github.com/okian/huddle/internal/realtime/session"
	"github.com/okian/huddle/pkg/metrics"
)

// Topic key constructors.

func UserTopic(identity string) string   { return fmt.Sprintf("user:%s", identity) }
func DepartmentTopic(name string) string { return fmt.Sprintf("department:%s", name) }
func IssueTopic(issueID string) string   { return fmt.Sprintf("issue:%s", issueID) }

// Router tracks topic membership and broadcasts to members. Delivery is
// best-effort and fire-and-forget: a member that disconnected between the
// membership check and the send is silently skipped.
type Router struct {
	mu      sync.RWMutex
	members map[string]map[string]*session.Conn // topic -> conn id -> conn
	topics  map[string]map[string]struct{}      // conn id -> topic set
}

// NewRouter creates an empty room router.
func NewRouter() *Router {
	return &Router{
		members: make(map[string]map[string]*session.Conn),
		topics:  make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to a topic. Joining twice is a no-op.
func (r *Router) Join(conn *session.Conn, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[topic]
	if !ok {
		m = make(map[string]*session.Conn)
		r.members[topic] = m
	}
	m[conn.ID()] = conn

	t, ok := r.topics[conn.ID()]
	if !ok {
		t = make(map[string]struct{})
		r.topics[conn.ID()] = t
	}
	t[topic] = struct{}{}

	metrics.UpdateRoomsActive(len(r.members))
}

// Leave removes the connection from a topic; no-op when not a member.
func (r *Router) Leave(conn *session.Conn, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conn.ID(), topic)
}

// LeaveAll removes the connection from every topic it joined. Invoked on
// disconnect so no lingering broadcast targets remain.
func (r *Router) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic := range r.topics[connID] {
		r.leaveLocked(connID, topic)
	}
	delete(r.topics, connID)
}

func (r *Router) leaveLocked(connID, topic string) {
	m, ok := r.members[topic]
	if !ok {
		return
	}
	delete(m, connID)
	if len(m) == 0 {
		delete(r.members, topic)
	}
	if t, ok := r.topics[connID]; ok {
		delete(t, topic)
	}
	metrics.UpdateRoomsActive(len(r.members))
}

// Topics returns the topics the connection currently belongs to.
func (r *Router) Topics(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.topics[connID]))
	for topic := range r.topics[connID] {
		out = append(out, topic)
	}
	return out
}

// MemberCount returns the number of members in a topic.
func (r *Router) MemberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[topic])
}

// RoomCount returns the number of topics with at least one member.
func (r *Router) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Broadcast delivers the event to every current member of the topic except
// the optional excluded connection id. Dropped deliveries (closed conn,
// full buffer) are counted, never returned as errors.
func (r *Router) Broadcast(topic string, ev events.Event, excludeConnID string) {
	// Copy the member list so no lock is held during sends.
	r.mu.RLock()
	receivers := make([]*session.Conn, 0, len(r.members[topic]))
	for id, conn := range r.members[topic] {
		if id == excludeConnID {
			continue
		}
		receivers = append(receivers, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range receivers {
		if conn.Send(ev) {
			delivered++
		} else {
			metrics.RecordBroadcastDropped()
		}
	}
	if delivered > 0 {
		metrics.RecordBroadcastSent(ev.Name, delivered)
	}
}
