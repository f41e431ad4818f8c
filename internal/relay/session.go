// internal/relay/session.go
package relay

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iPanja/ei-dungeon-server/internal/protocol"
)

// Session is a single client's presence on the relay. The transport
// handler owns the socket; the relay only ever talks to the session
// through its buffered out channel.
type Session struct {
	ID  uuid.UUID
	Out chan protocol.Message

	log *logrus.Logger
}

// NewSession allocates a session with a fresh connection id and an out
// channel of the given capacity.
func NewSession(log *logrus.Logger, buffer int) *Session {
	if buffer <= 0 {
		buffer = 16
	}
	return &Session{
		ID:  uuid.New(),
		Out: make(chan protocol.Message, buffer),
		log: log,
	}
}

// Write pushes a message onto the session's out channel without
// blocking. A full channel means the write pump has stalled; the
// message is dropped and logged rather than holding up the relay.
func (s *Session) Write(msg protocol.Message) {
	select {
	case s.Out <- msg:
	default:
		s.log.WithFields(logrus.Fields{
			"conn":  s.ID,
			"event": msg.Event,
		}).Warn("session out channel full, dropping message")
	}
}

// WriteEvent sends a named event with the given payload.
func (s *Session) WriteEvent(event string, data interface{}) {
	s.Write(protocol.Message{Event: event, Data: data})
}

// WriteAck sends an acknowledgment correlated to a client request id.
func (s *Session) WriteAck(ackID uint64, data interface{}) {
	s.Write(protocol.Message{Event: protocol.EventAck, Ack: ackID, Data: data})
}

// WriteError is a convenience to report malformed input back to the
// offending client.
func (s *Session) WriteError(msg string) {
	s.WriteEvent(protocol.EventError, protocol.ErrorPayload{Message: msg})
}
