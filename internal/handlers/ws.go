// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/iPanja/ei-dungeon-server/internal/config"
	"github.com/iPanja/ei-dungeon-server/internal/middleware"
	"github.com/iPanja/ei-dungeon-server/internal/relay"
)

// WSHandler upgrades the connection and runs the relay event channel
// over it. Each connection gets a session registered with the relay, a
// read pump feeding inbound frames to it one at a time, and a write
// pump draining the session's out channel; when the read pump exits
// the disconnect cascade runs exactly once.
func WSHandler(logger *logrus.Logger, rly *relay.Relay, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"dungeon"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "dungeon" {
			c.Close(BadSubprotocolError, "client must speak the dungeon subprotocol")
			return
		}

		sess := relay.NewSession(logger, cfg.SessionBuffer)
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, sess.ID)

		rly.Connect(sess)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, sess, logger)
		readErr := readPump(ctx, c, sess, rly, logger)

		rly.Disconnect(sess)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, sess.ID, readErr)
	}
}

// readPump feeds inbound frames to the relay until the connection
// drops. Returns nil for a normal closure, the terminal read error
// otherwise.
func readPump(ctx context.Context, c *websocket.Conn, sess *relay.Session, rly *relay.Relay, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			logger.WithField("conn", sess.ID).Warnf("ignoring non-text message type %d", typ)
			continue
		}

		rly.HandleMessage(sess, data)
	}
}

// writePump drains the session's out channel onto the socket and keeps
// the connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, sess *relay.Session, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sess.Out:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.WithField("conn", sess.ID).Warnf("failed to marshal outgoing msg: %v", err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.WithField("conn", sess.ID).Warnf("websocket write failed: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.WithField("conn", sess.ID).Warnf("ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}
