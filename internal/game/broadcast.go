// internal/game/broadcast.go
package game

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultOutBuffer is the number of messages a connection may lag behind before it is dropped.
const DefaultOutBuffer = 64

// Conn is one player's live connection as seen by the broadcaster. The transport drains Out
// and stops when the context behind cancel is done.
type Conn struct {
	PlayerID uuid.UUID

	out     chan Message
	cancel  context.CancelFunc
	dropped atomic.Bool
}

// NewConn creates a connection with a buffered outbound queue. cancel is called when the
// connection is dropped or replaced.
func NewConn(playerID uuid.UUID, buffer int, cancel context.CancelFunc) *Conn {
	if buffer <= 0 {
		buffer = DefaultOutBuffer
	}
	return &Conn{PlayerID: playerID, out: make(chan Message, buffer), cancel: cancel}
}

// Out is the queue the transport's writer drains.
func (c *Conn) Out() <-chan Message {
	return c.out
}

// Send pushes msg without blocking. A full queue drops the connection; the client resyncs
// with a full gameState when it reconnects.
func (c *Conn) Send(msg Message) bool {
	if c.dropped.Load() {
		return false
	}
	select {
	case c.out <- msg:
		return true
	default:
		c.Drop()
		return false
	}
}

// Drop stops the connection. Safe to call more than once.
func (c *Conn) Drop() {
	if c.dropped.CompareAndSwap(false, true) && c.cancel != nil {
		c.cancel()
	}
}

// Dropped reports whether the connection has been dropped or replaced.
func (c *Conn) Dropped() bool {
	return c.dropped.Load()
}

// Broadcaster owns the connection table and fans committed events out to it. It implements
// Publisher for every session.
type Broadcaster struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]map[uuid.UUID]*Conn // session -> player -> connection
	logger *logrus.Logger
}

func NewBroadcaster(logger *logrus.Logger) *Broadcaster {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Broadcaster{conns: make(map[uuid.UUID]map[uuid.UUID]*Conn), logger: logger}
}

// Attach registers conn for (sessionID, conn.PlayerID). An existing connection for the same
// player is dropped; the newest connection wins.
func (b *Broadcaster) Attach(sessionID uuid.UUID, conn *Conn) {
	b.mu.Lock()
	players, ok := b.conns[sessionID]
	if !ok {
		players = make(map[uuid.UUID]*Conn)
		b.conns[sessionID] = players
	}
	old := players[conn.PlayerID]
	players[conn.PlayerID] = conn
	b.mu.Unlock()

	if old != nil && old != conn {
		b.logger.WithFields(logrus.Fields{"game": sessionID, "player": conn.PlayerID}).Info("replacing existing connection")
		old.Drop()
	}
}

// Detach removes conn if it is still the player's registered connection and reports whether
// it was.
func (b *Broadcaster) Detach(sessionID uuid.UUID, conn *Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	players := b.conns[sessionID]
	if players == nil || players[conn.PlayerID] != conn {
		return false
	}
	delete(players, conn.PlayerID)
	if len(players) == 0 {
		delete(b.conns, sessionID)
	}
	return true
}

// DropSession closes every connection of a session that the registry has removed.
func (b *Broadcaster) DropSession(sessionID uuid.UUID) {
	b.mu.Lock()
	players := b.conns[sessionID]
	delete(b.conns, sessionID)
	b.mu.Unlock()
	for _, c := range players {
		c.Drop()
	}
}

// Publish renders each event once per connected player and queues it.
func (b *Broadcaster) Publish(snap Snapshot, events []Event) {
	b.mu.RLock()
	targets := make([]*Conn, 0, len(b.conns[snap.GameID]))
	for _, c := range b.conns[snap.GameID] {
		targets = append(targets, c)
	}
	b.mu.RUnlock()

	for _, ev := range events {
		for _, c := range targets {
			if c.Dropped() {
				continue
			}
			if !c.Send(Render(ev, snap, c.PlayerID)) {
				b.logger.WithFields(logrus.Fields{
					"game":   snap.GameID,
					"player": c.PlayerID,
					"event":  ev.Type,
				}).Warn("outbound queue full or closed, dropping connection")
			}
		}
	}
}

// Send queues msg for a single player. It returns false when the player has no live
// connection.
func (b *Broadcaster) Send(sessionID, playerID uuid.UUID, msg Message) bool {
	b.mu.RLock()
	c := b.conns[sessionID][playerID]
	b.mu.RUnlock()
	if c == nil {
		return false
	}
	return c.Send(msg)
}

// Count returns the number of live connections for a session.
func (b *Broadcaster) Count(sessionID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns[sessionID])
}
