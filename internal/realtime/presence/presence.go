// Package presence tracks which identity is attached to which live
// connection: a pure in-memory bidirectional map.
package presence

import (
	"sync"

	"github.com/okian/huddle/internal/realtime/session"
)

// Registry keeps the identity -> connection mapping and its inverse
// consistent as a pair. All operations are O(1) and safe under concurrent
// invocation from independent connection lifecycles.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string]*session.Conn
	byConn     map[string]string // connection id -> identity
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]*session.Conn),
		byConn:     make(map[string]string),
	}
}

// Register inserts or overwrites both maps for the connection's identity.
// Last write wins per identity: the superseded connection, if any, is
// returned so the caller can tear it down.
func (r *Registry) Register(conn *session.Conn) (superseded *session.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity := conn.Identity()
	if prior, ok := r.byIdentity[identity]; ok && prior.ID() != conn.ID() {
		delete(r.byConn, prior.ID())
		superseded = prior
	}
	r.byIdentity[identity] = conn
	r.byConn[conn.ID()] = identity
	return superseded
}

// Unregister removes both entries for the connection handle if present;
// no-op otherwise. When the identity has already been superseded by a
// newer connection, that newer mapping is left untouched.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if current, ok := r.byIdentity[identity]; ok && current.ID() == connID {
		delete(r.byIdentity, identity)
	}
}

// Lookup returns the live connection for an identity, or nil.
func (r *Registry) Lookup(identity string) *session.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byIdentity[identity]
}

// ConnByID returns the live connection for a connection handle, or nil.
func (r *Registry) ConnByID(connID string) *session.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	return r.byIdentity[identity]
}

// IsOnline reports whether the identity has a live connection.
func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byIdentity[identity]
	return ok
}

// OnlineIdentities returns the set of identities with a live connection.
func (r *Registry) OnlineIdentities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byIdentity))
	for identity := range r.byIdentity {
		out = append(out, identity)
	}
	return out
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
