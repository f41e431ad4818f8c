// internal/relay/registry.go
package relay

import "github.com/google/uuid"

// ConnRegistry maps live connection ids to the player identity each
// connection last claimed. A connection that never hosted or joined has
// no entry; that is a normal state, not an error.
//
// The registry is owned by the Relay and only touched under its lock.
type ConnRegistry struct {
	ids map[uuid.UUID]string
}

// NewConnRegistry returns an empty registry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{ids: make(map[uuid.UUID]string)}
}

// Record associates a connection with a player identity, overwriting
// any identity the connection claimed before.
func (r *ConnRegistry) Record(connID uuid.UUID, playerID string) {
	r.ids[connID] = playerID
}

// Lookup returns the identity last claimed by the connection.
func (r *ConnRegistry) Lookup(connID uuid.UUID) (string, bool) {
	id, ok := r.ids[connID]
	return id, ok
}

// Forget removes the connection's record and returns the identity it
// held. The disconnect cascade calls this exactly once per connection;
// a repeated disconnect finds nothing and stops there.
func (r *ConnRegistry) Forget(connID uuid.UUID) (string, bool) {
	id, ok := r.ids[connID]
	if ok {
		delete(r.ids, connID)
	}
	return id, ok
}
