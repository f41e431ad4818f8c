// internal/relay/relay.go
package relay

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iPanja/ei-dungeon-server/internal/journal"
	"github.com/iPanja/ei-dungeon-server/internal/protocol"
)

// Relay owns all matchmaking state: the connection registry, the
// matchmaking directory, the open lobbies, and the table of pending
// dungeon-state requests. One mutex guards the lot, so every inbound
// event runs to completion before the next touches the maps. Outbound
// delivery goes through non-blocking session channels and never holds
// the lock hostage.
type Relay struct {
	mu sync.Mutex

	log     *logrus.Logger
	journal journal.Journal

	conns     *ConnRegistry
	directory *Directory
	lobbies   map[string]*Lobby

	// sessions is every connected client, identified or not, for
	// directory broadcasts.
	sessions map[uuid.UUID]*Session

	// pending maps state-sync request ids to their waiting joiner.
	pending     map[string]*stateSync
	syncTimeout time.Duration
}

// stateSync is one in-flight requestDungeonState handshake: the host
// connection expected to answer, and the joiner waiting for the state.
type stateSync struct {
	hostConn uuid.UUID
	joiner   *Session
	timer    *time.Timer
}

// New builds a relay. syncTimeout bounds how long a dungeon-state
// request stays open waiting for the host; zero or negative falls back
// to ten seconds.
func New(log *logrus.Logger, j journal.Journal, syncTimeout time.Duration) *Relay {
	if j == nil {
		j = journal.Nop{}
	}
	if syncTimeout <= 0 {
		syncTimeout = 10 * time.Second
	}
	return &Relay{
		log:         log,
		journal:     j,
		conns:       NewConnRegistry(),
		directory:   NewDirectory(),
		lobbies:     make(map[string]*Lobby),
		sessions:    make(map[uuid.UUID]*Session),
		pending:     make(map[string]*stateSync),
		syncTimeout: syncTimeout,
	}
}

// Connect registers a freshly accepted session and sends it the
// current directory snapshot.
func (r *Relay) Connect(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	snap := r.directory.Snapshot()
	r.mu.Unlock()

	s.WriteEvent(protocol.EventUpdatePlayerList, snap)
}

// HandleMessage decodes one inbound frame and routes it. Malformed
// input is answered with an error event and otherwise ignored; nothing
// a client sends can take the relay down.
func (r *Relay) HandleMessage(s *Session, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.log.WithField("conn", s.ID).Warnf("invalid frame: %v", err)
		s.WriteError("invalid JSON frame")
		return
	}

	switch env.Event {
	case protocol.EventLookingForGame:
		var req protocol.OpenRequest
		if !decode(s, env.Data, &req) {
			return
		}
		r.handleOpen(s, req)
	case protocol.EventStopLookingForGame:
		var req protocol.CloseRequest
		if !decode(s, env.Data, &req) {
			return
		}
		r.handleClose(s, req)
	case protocol.EventJoinGame:
		var req protocol.JoinRequest
		if !decode(s, env.Data, &req) {
			return
		}
		r.handleJoin(s, req, env.Ack)
	case protocol.EventLeaveGame:
		var req protocol.LeaveRequest
		if !decode(s, env.Data, &req) {
			return
		}
		r.handleLeave(s, req)
	case protocol.EventSendPlayerAction:
		var req protocol.ActionRequest
		if !decode(s, env.Data, &req) {
			return
		}
		r.handleAction(s, req)
	case protocol.EventDungeonState:
		var reply protocol.StateReply
		if !decode(s, env.Data, &reply) {
			return
		}
		r.handleStateReply(s, reply)
	default:
		r.log.WithFields(logrus.Fields{
			"conn":  s.ID,
			"event": env.Event,
		}).Warn("unknown event")
		s.WriteError(fmt.Sprintf("unknown event: %s", env.Event))
	}
}

func decode(s *Session, data json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(data, v); err != nil {
		s.WriteError("invalid event payload")
		return false
	}
	return true
}

// handleOpen creates the sender's lobby with the host as sole member
// and publishes it in the directory. Reopening an already-open lobby
// silently replaces it.
func (r *Relay) handleOpen(s *Session, req protocol.OpenRequest) {
	r.mu.Lock()
	r.conns.Record(s.ID, req.HostID)
	r.lobbies[req.HostID] = newLobby(req.HostID, req.HostName, s)
	r.directory.Publish(req.HostID, protocol.PlayerInfo{Name: req.HostName})
	r.broadcastDirectoryLocked()
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"host": req.HostID,
		"name": req.HostName,
	}).Info("lobby opened")
	r.record(journal.EventLobbyOpened, req.HostID, req.HostID, s)
}

// handleClose tears down the lobby keyed by the request's host id,
// notifying every joined member. Closing an absent lobby only retracts
// any stray directory entry.
func (r *Relay) handleClose(s *Session, req protocol.CloseRequest) {
	r.mu.Lock()
	r.directory.Retract(req.HostID)
	if lobby, ok := r.lobbies[req.HostID]; ok {
		for _, sess := range lobby.Sessions {
			sess.WriteEvent(protocol.EventLobbyClosed, nil)
		}
		delete(r.lobbies, req.HostID)
	}
	r.broadcastDirectoryLocked()
	r.mu.Unlock()

	r.log.WithField("host", req.HostID).Info("lobby closed")
	r.record(journal.EventLobbyClosed, req.HostID, req.HostID, s)
}

// handleJoin adds a player to a lobby. An unknown host yields a
// negative acknowledgment and mutates nothing. On success the host is
// notified, the joiner gets the membership snapshot, and the
// dungeon-state handshake is fired at the host; the ack never waits
// for the host's reply.
func (r *Relay) handleJoin(s *Session, req protocol.JoinRequest, ackID uint64) {
	r.mu.Lock()
	lobby, ok := r.lobbies[req.HostID]
	if !ok {
		r.mu.Unlock()
		s.WriteAck(ackID, protocol.JoinAck{Status: protocol.StatusNotFound})
		return
	}

	r.conns.Record(s.ID, req.PlayerID)
	lobby.addMember(req.PlayerID, req.PlayerName, s)

	lobby.Host.WriteEvent(protocol.EventPlayerJoinedGame, protocol.PlayerJoined{
		PlayerName: req.PlayerName,
		PlayerID:   req.PlayerID,
	})
	s.WriteAck(ackID, protocol.JoinAck{
		Status:  protocol.StatusOK,
		HostID:  req.HostID,
		Players: lobby.snapshot(),
	})

	r.requestStateLocked(lobby.Host, s)
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"host":   req.HostID,
		"player": req.PlayerID,
	}).Info("player joined lobby")
	r.record(journal.EventPlayerJoined, req.HostID, req.PlayerID, s)
}

// requestStateLocked opens one dungeon-state handshake: ask the host,
// remember who is waiting, and expire the request if the host never
// answers. The original protocol had no timeout; one is enforced here
// so the pending table cannot grow without bound.
func (r *Relay) requestStateLocked(host, joiner *Session) {
	req := uuid.NewString()
	ss := &stateSync{hostConn: host.ID, joiner: joiner}
	ss.timer = time.AfterFunc(r.syncTimeout, func() {
		r.mu.Lock()
		if r.pending[req] == ss {
			delete(r.pending, req)
			r.mu.Unlock()
			r.log.WithField("req", req).Debug("dungeon state request expired")
			return
		}
		r.mu.Unlock()
	})
	r.pending[req] = ss

	host.WriteEvent(protocol.EventRequestDungeonState, protocol.StateRequest{Req: req})
}

// handleStateReply completes a pending handshake. Replies from anyone
// but the host that was asked, replies to unknown or expired request
// ids, and empty states are all dropped.
func (r *Relay) handleStateReply(s *Session, reply protocol.StateReply) {
	r.mu.Lock()
	ss, ok := r.pending[reply.Req]
	if !ok || ss.hostConn != s.ID {
		r.mu.Unlock()
		r.log.WithFields(logrus.Fields{
			"conn": s.ID,
			"req":  reply.Req,
		}).Debug("dropping stale dungeon state reply")
		return
	}
	ss.timer.Stop()
	delete(r.pending, reply.Req)
	joiner := ss.joiner
	r.mu.Unlock()

	if len(reply.State) == 0 || string(reply.State) == "null" {
		return
	}
	joiner.WriteEvent(protocol.EventDungeonState, reply.State)
}

// handleLeave removes a player from a lobby and tells the host. A
// missing lobby, member, or host connection degrades to a log line;
// the host may simply have disconnected first.
func (r *Relay) handleLeave(s *Session, req protocol.LeaveRequest) {
	r.mu.Lock()
	lobby, ok := r.lobbies[req.HostID]
	if !ok {
		r.mu.Unlock()
		r.log.WithField("host", req.HostID).Warn("leave for unknown lobby")
		return
	}
	info, ok := lobby.removeMember(req.PlayerID)
	host := lobby.Host
	r.mu.Unlock()

	if !ok {
		r.log.WithFields(logrus.Fields{
			"host":   req.HostID,
			"player": req.PlayerID,
		}).Warn("leave for player not in lobby")
		return
	}
	if host == nil {
		r.log.WithField("host", req.HostID).Warn("host connection missing, leave not delivered")
	} else {
		host.WriteEvent(protocol.EventPlayerLeftGame, protocol.PlayerLeft{
			PlayerID:   req.PlayerID,
			PlayerName: info.Name,
		})
	}

	r.record(journal.EventPlayerLeft, req.HostID, req.PlayerID, s)
}

// handleAction fans an opaque payload out to every lobby member except
// the sender, plus the host when the host is not the sender. Unknown
// lobby is a silent no-op.
func (r *Relay) handleAction(s *Session, req protocol.ActionRequest) {
	r.mu.Lock()
	lobby, ok := r.lobbies[req.HostID]
	if !ok {
		r.mu.Unlock()
		return
	}
	for playerID, sess := range lobby.Sessions {
		if playerID == req.PlayerID {
			continue
		}
		sess.WriteEvent(protocol.EventPlayerAction, req.Action)
	}
	if lobby.Host != nil && lobby.Host != s {
		lobby.Host.WriteEvent(protocol.EventPlayerAction, req.Action)
	}
	r.mu.Unlock()

	r.record(journal.EventPlayerAction, req.HostID, req.PlayerID, s)
}

// Disconnect runs the cleanup cascade for a dropped connection:
// forget its identity, retract its directory entry, close the lobby it
// hosted, and sweep it out of every lobby it had joined. A connection
// that never claimed an identity, or that already disconnected, stops
// at step one.
func (r *Relay) Disconnect(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID)
	r.dropPendingLocked(s)

	playerID, ok := r.conns.Forget(s.ID)
	if !ok {
		r.mu.Unlock()
		return
	}

	changed := r.directory.Retract(playerID)

	if lobby, hosted := r.lobbies[playerID]; hosted {
		for _, sess := range lobby.Sessions {
			sess.WriteEvent(protocol.EventLobbyClosed, nil)
		}
		delete(r.lobbies, playerID)
		r.log.WithField("host", playerID).Info("lobby closed by disconnect")
	}

	// The same identity may linger in other lobbies; this is the one
	// place cost scales with the number of open lobbies.
	for _, lobby := range r.lobbies {
		info, member := lobby.removeMember(playerID)
		if !member {
			continue
		}
		if lobby.Host == nil {
			continue
		}
		lobby.Host.WriteEvent(protocol.EventPlayerLeftGame, protocol.PlayerLeft{
			PlayerID:   playerID,
			PlayerName: info.Name,
		})
	}

	if changed {
		r.broadcastDirectoryLocked()
	}
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"conn":   s.ID,
		"player": playerID,
	}).Info("connection cleaned up")
	r.record(journal.EventDisconnected, "", playerID, s)
}

// dropPendingLocked cancels state-sync handshakes that can no longer
// complete because one side of them is gone.
func (r *Relay) dropPendingLocked(s *Session) {
	for req, ss := range r.pending {
		if ss.hostConn == s.ID || ss.joiner == s {
			ss.timer.Stop()
			delete(r.pending, req)
		}
	}
}

// broadcastDirectoryLocked sends the full directory snapshot to every
// connected session. Session writes are non-blocking, so holding the
// relay lock across the loop is safe.
func (r *Relay) broadcastDirectoryLocked() {
	snap := r.directory.Snapshot()
	for _, sess := range r.sessions {
		sess.WriteEvent(protocol.EventUpdatePlayerList, snap)
	}
}

func (r *Relay) record(event, hostID, playerID string, s *Session) {
	r.journal.Record(journal.Entry{
		Event:     event,
		HostID:    hostID,
		PlayerID:  playerID,
		ConnID:    s.ID.String(),
		Timestamp: time.Now().UnixMilli(),
	})
}
