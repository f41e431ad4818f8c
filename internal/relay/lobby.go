// internal/relay/lobby.go
package relay

import "github.com/iPanja/ei-dungeon-server/internal/protocol"

// Lobby is an ephemeral group of players coordinated under one host.
// The host is always present in Members but its connection lives in
// Host, not Sessions: Sessions holds joiners only, so Sessions[p] is
// defined exactly when Members[p] is defined for every non-host p.
type Lobby struct {
	HostID   string
	HostName string

	// Members maps player identity -> display info, host included.
	Members map[string]protocol.PlayerInfo
	// Sessions maps joined player identity -> live session.
	Sessions map[string]*Session
	// Host is the session that opened the lobby.
	Host *Session
}

func newLobby(hostID, hostName string, host *Session) *Lobby {
	l := &Lobby{
		HostID:   hostID,
		HostName: hostName,
		Members:  make(map[string]protocol.PlayerInfo),
		Sessions: make(map[string]*Session),
		Host:     host,
	}
	l.Members[hostID] = protocol.PlayerInfo{Name: hostName}
	return l
}

func (l *Lobby) addMember(playerID, name string, s *Session) {
	l.Members[playerID] = protocol.PlayerInfo{Name: name}
	l.Sessions[playerID] = s
}

// removeMember deletes a player from both maps and returns the info it
// held, so the caller can name the player in the host notification.
func (l *Lobby) removeMember(playerID string) (protocol.PlayerInfo, bool) {
	info, ok := l.Members[playerID]
	if !ok {
		return protocol.PlayerInfo{}, false
	}
	delete(l.Members, playerID)
	delete(l.Sessions, playerID)
	return info, true
}

// snapshot copies the membership map for an acknowledgment payload.
func (l *Lobby) snapshot() map[string]protocol.PlayerInfo {
	snap := make(map[string]protocol.PlayerInfo, len(l.Members))
	for k, v := range l.Members {
		snap[k] = v
	}
	return snap
}
