// internal/protocol/protocol.go
package protocol

import "encoding/json"

// Event names, client to server.
const (
	EventLookingForGame     = "lookingForGame"
	EventStopLookingForGame = "stopLookingForGame"
	EventJoinGame           = "joinGame"
	EventLeaveGame          = "leaveGame"
	EventSendPlayerAction   = "sendPlayerAction"
	EventDungeonState       = "dungeonState" // also server to client, forwarded to the joiner
)

// Event names, server to client.
const (
	EventUpdatePlayerList    = "updatePlayerList"
	EventLobbyClosed         = "lobbyClosed"
	EventPlayerJoinedGame    = "playerJoinedGame"
	EventPlayerLeftGame      = "playerLeftGame"
	EventPlayerAction        = "playerAction"
	EventRequestDungeonState = "requestDungeonState"
	EventAck                 = "ack"
	EventError               = "error"
)

// Join acknowledgment statuses.
const (
	StatusOK       = "ok"
	StatusNotFound = "not found"
)

// Envelope is the inbound wire frame: an event name, an optional
// client-chosen ack id echoed back on the acknowledgment, and the
// event payload left raw until the event is routed.
type Envelope struct {
	Event string          `json:"e"`
	Ack   uint64          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"d,omitempty"`
}

// Message is the outbound wire frame. Data is marshaled by the write
// pump just before it hits the socket.
type Message struct {
	Event string      `json:"e"`
	Ack   uint64      `json:"ack,omitempty"`
	Data  interface{} `json:"d,omitempty"`
}

// PlayerInfo is the display record kept in the matchmaking directory
// and in lobby membership maps.
type PlayerInfo struct {
	Name string `json:"name"`
}

// OpenRequest opens (or silently replaces) the sender's lobby.
// DungeonState is accepted for wire compatibility with the client but
// the server never inspects it; joiners receive state through the
// request/reply handshake instead.
type OpenRequest struct {
	HostName     string          `json:"hostName"`
	HostID       string          `json:"hostId"`
	DungeonState json.RawMessage `json:"dungeonState,omitempty"`
}

// CloseRequest closes the lobby keyed by HostID.
type CloseRequest struct {
	HostID string `json:"hostId"`
}

// JoinRequest asks to join the lobby keyed by HostID.
type JoinRequest struct {
	HostID     string `json:"hostId"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

// JoinAck is the acknowledgment payload for a join. Players is the
// full membership snapshot at the instant the join was applied.
type JoinAck struct {
	Status  string                `json:"status"`
	HostID  string                `json:"hostId,omitempty"`
	Players map[string]PlayerInfo `json:"players,omitempty"`
}

// LeaveRequest removes the sender's player from a lobby.
type LeaveRequest struct {
	HostID   string `json:"hostId"`
	PlayerID string `json:"playerId"`
}

// ActionRequest relays an opaque action to the rest of a lobby.
type ActionRequest struct {
	HostID   string          `json:"hostId"`
	PlayerID string          `json:"playerId"`
	Action   json.RawMessage `json:"action"`
}

// StateRequest is sent to a host to ask for its current dungeon state.
// Req correlates the host's eventual reply.
type StateRequest struct {
	Req string `json:"req"`
}

// StateReply is the host's answer to a StateRequest. State is opaque.
type StateReply struct {
	Req   string          `json:"req"`
	State json.RawMessage `json:"state"`
}

// PlayerJoined notifies a host that a player entered its lobby.
type PlayerJoined struct {
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId"`
}

// PlayerLeft notifies a host that a player left its lobby.
type PlayerLeft struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// ErrorPayload is sent back on malformed input.
type ErrorPayload struct {
	Message string `json:"message"`
}
