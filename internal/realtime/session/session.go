// Package session holds the ephemeral connection type owned by the
// coordination process. A Conn exists from successful authentication until
// disconnect; nothing about it is persisted.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/realtime/events"
)

// Conn is one live client connection: an identity reference plus a
// buffered outbound event channel. Sends are non-blocking; a full buffer
// drops the event rather than stalling the sender.
type Conn struct {
	id      string
	profile model.Profile

	mu     sync.Mutex
	ch     chan events.Event
	closed bool
}

// New creates a live connection for the authenticated profile.
func New(profile model.Profile, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 64
	}
	return &Conn{
		id:      uuid.NewString(),
		profile: profile,
		ch:      make(chan events.Event, buffer),
	}
}

// ID returns the connection handle, unique per connection.
func (c *Conn) ID() string { return c.id }

// Identity returns the owning identity id.
func (c *Conn) Identity() string { return c.profile.ID }

// Profile returns the owning identity's public profile.
func (c *Conn) Profile() model.Profile { return c.profile }

// Send delivers an event to the connection's outbound buffer. It returns
// false when the connection is closed or the buffer is full; the caller
// treats either as a silent skip, never an error.
func (c *Conn) Send(ev events.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.ch <- ev:
		return true
	default:
		return false
	}
}

// Events exposes the outbound stream for the transport to drain.
func (c *Conn) Events() <-chan events.Event { return c.ch }

// Close terminates the connection. Further sends are no-ops; the event
// channel is closed so the transport loop ends. Safe to call twice.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
