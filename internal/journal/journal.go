// internal/journal/journal.go

// Package journal provides a best-effort audit trail of relay events,
// pushed onto a Redis list for a separate analysis consumer. The relay
// never blocks on it and never fails because of it; when no Redis
// address is configured the journal is a no-op.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Relay event names recorded in the journal.
const (
	EventLobbyOpened  = "lobby_opened"
	EventLobbyClosed  = "lobby_closed"
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventPlayerAction = "player_action"
	EventDisconnected = "disconnected"
)

// Entry is one journaled relay event. Opaque payload contents are
// never recorded, only who did what to which lobby and when.
type Entry struct {
	Event     string `json:"event"`
	HostID    string `json:"host_id,omitempty"`
	PlayerID  string `json:"player_id,omitempty"`
	ConnID    string `json:"conn_id,omitempty"`
	Timestamp int64  `json:"ts"`
}

// Journal accepts relay events. Implementations must not block the
// caller.
type Journal interface {
	Record(e Entry)
}

// Nop discards every entry. Used when journaling is disabled.
type Nop struct{}

// Record implements Journal.
func (Nop) Record(Entry) {}

// RedisJournal pushes entries onto a Redis list from a single
// background worker. Record hands the entry to the worker without
// blocking; if the worker is behind, the entry is dropped.
type RedisJournal struct {
	rdb   *redis.Client
	queue string
	log   *logrus.Logger

	entries chan Entry
	done    chan struct{}
}

// NewRedis connects to Redis and starts the journal worker. The
// connection is verified with a short ping so a misconfigured address
// fails at startup rather than silently dropping every entry.
func NewRedis(log *logrus.Logger, addr string, db int, queue string) (*RedisJournal, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	j := &RedisJournal{
		rdb:     rdb,
		queue:   queue,
		log:     log,
		entries: make(chan Entry, 256),
		done:    make(chan struct{}),
	}
	go j.run()
	return j, nil
}

// Record implements Journal.
func (j *RedisJournal) Record(e Entry) {
	select {
	case j.entries <- e:
	default:
		j.log.Warn("journal backlog full, dropping entry")
	}
}

// Close drains queued entries and releases the Redis client.
func (j *RedisJournal) Close() error {
	close(j.entries)
	<-j.done
	return j.rdb.Close()
}

func (j *RedisJournal) run() {
	defer close(j.done)
	for e := range j.entries {
		data, err := json.Marshal(e)
		if err != nil {
			j.log.Warnf("failed to marshal journal entry: %v", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = j.rdb.RPush(ctx, j.queue, data).Err()
		cancel()
		if err != nil {
			j.log.Warnf("failed to push journal entry: %v", err)
		}
	}
}
