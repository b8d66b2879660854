// Package session binds authenticated identities to live connections and to
// their active match. Per identity the lifecycle runs
// Unauthenticated -> Authenticated(conn) -> InMatch(conn, match) and back; a
// dropped connection leaves the match binding in place so the player can
// reconnect during the forfeiture grace window.
package session

import (
	"log"
	"sync"

	"github.com/sakshee44566/4-IN-A-ROW/internal/net/proto"
)

// Conn is the bidirectional message channel bound to one client. Send
// marshals and delivers a single message; Close tears the transport down.
// Implementations must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(v any) error
	Close(reason string)
}

// Registry owns the identity<->connection indices. All maps live behind one
// mutex; notification and close of a superseded connection happen after the
// lock is released.
type Registry struct {
	mu         sync.Mutex
	conns      map[string]Conn   // connection id -> live connection
	identities map[string]string // connection id -> authenticated identity
	byIdentity map[string]string // identity -> connection id
	matches    map[string]string // identity -> active match id
	logger     *log.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		conns:      make(map[string]Conn),
		identities: make(map[string]string),
		byIdentity: make(map[string]string),
		matches:    make(map[string]string),
		logger:     logger,
	}
}

// Bind records identity<->conn. If the identity is already bound to a
// different live connection, that connection is told it was superseded,
// force-closed, and purged; the new binding always wins. The superseded
// connection (if any) is returned so the caller can release any per-identity
// obligations it was tracking for the old session.
func (r *Registry) Bind(identity string, conn Conn) Conn {
	var superseded Conn

	r.mu.Lock()
	if oldID, ok := r.byIdentity[identity]; ok && oldID != conn.ID() {
		if old, live := r.conns[oldID]; live {
			superseded = old
		}
		delete(r.conns, oldID)
		delete(r.identities, oldID)
	}
	r.conns[conn.ID()] = conn
	r.identities[conn.ID()] = identity
	r.byIdentity[identity] = conn.ID()
	r.mu.Unlock()

	if superseded != nil {
		r.logger.Printf("session for %s superseded by connection %s", identity, conn.ID())
		superseded.Send(proto.AuthError{
			Type:    proto.TypeAuthError,
			Message: "You have logged in from another device/session",
		})
		superseded.Close("superseded")
	}
	return superseded
}

// ResolveConnection returns the connection bound to identity. When the
// primary index is stale it falls back to scanning every live authenticated
// connection and repairs the index on a hit. The scan is defensive
// consistency repair, not the primary mechanism.
func (r *Registry) ResolveConnection(identity string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if connID, ok := r.byIdentity[identity]; ok {
		if conn, live := r.conns[connID]; live {
			return conn, true
		}
	}

	for connID, bound := range r.identities {
		if bound != identity {
			continue
		}
		if conn, live := r.conns[connID]; live {
			r.byIdentity[identity] = connID
			r.logger.Printf("recovered stale connection index for %s via scan", identity)
			return conn, true
		}
	}
	return nil, false
}

// IdentityFor returns the identity authenticated on the given connection.
func (r *Registry) IdentityFor(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[connID]
	return identity, ok
}

// Unbind removes every index entry referencing conn and returns the identity
// that was bound, if any. The identity's match binding is left untouched so a
// reconnect can pick the game back up.
func (r *Registry) Unbind(conn Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := conn.ID()
	identity, ok := r.identities[connID]
	delete(r.identities, connID)
	delete(r.conns, connID)
	if ok && r.byIdentity[identity] == connID {
		delete(r.byIdentity, identity)
	}
	return identity, ok
}

// SetActiveMatch marks identity as playing matchID.
func (r *Registry) SetActiveMatch(identity, matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[identity] = matchID
}

// ClearActiveMatch drops the identity's match binding, but only if it still
// points at matchID; a newer match must not be clobbered by a late retire.
func (r *Registry) ClearActiveMatch(identity, matchID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.matches[identity] == matchID {
		delete(r.matches, identity)
	}
}

// ActiveMatch returns the match identity is currently bound to.
func (r *Registry) ActiveMatch(identity string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matchID, ok := r.matches[identity]
	return matchID, ok
}

// ConnectionCount reports how many live connections are tracked.
func (r *Registry) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
