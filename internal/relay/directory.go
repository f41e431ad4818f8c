// internal/relay/directory.go
package relay

import "github.com/iPanja/ei-dungeon-server/internal/protocol"

// Directory is the public list of hosts currently seeking players.
// Entries exist exactly while the host's lobby is open.
//
// Owned by the Relay and only touched under its lock; the Relay
// broadcasts a full snapshot after every mutation.
type Directory struct {
	entries map[string]protocol.PlayerInfo
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]protocol.PlayerInfo)}
}

// Publish adds or overwrites the listing for a host.
func (d *Directory) Publish(hostID string, info protocol.PlayerInfo) {
	d.entries[hostID] = info
}

// Retract removes a host's listing. Removing an absent entry is a
// no-op; the return value reports whether anything changed.
func (d *Directory) Retract(hostID string) bool {
	if _, ok := d.entries[hostID]; !ok {
		return false
	}
	delete(d.entries, hostID)
	return true
}

// Snapshot returns a copy of the directory, safe to hand to a write
// pump after the relay lock is released.
func (d *Directory) Snapshot() map[string]protocol.PlayerInfo {
	snap := make(map[string]protocol.PlayerInfo, len(d.entries))
	for k, v := range d.entries {
		snap[k] = v
	}
	return snap
}
