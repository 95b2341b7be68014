// internal/game/helpers_test.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/cache"
	"github.com/jason-s-yu/forty/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type published struct {
	snap   Snapshot
	events []Event
}

// recordingPublisher collects published batches instead of sending them anywhere.
type recordingPublisher struct {
	mu      sync.Mutex
	batches []published
}

func (p *recordingPublisher) Publish(snap Snapshot, events []Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, published{snap: snap, events: append([]Event(nil), events...)})
}

func (p *recordingPublisher) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = nil
}

func (p *recordingPublisher) last() published {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.batches) == 0 {
		return published{}
	}
	return p.batches[len(p.batches)-1]
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func (p *recordingPublisher) eventTypes() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []EventType
	for _, b := range p.batches {
		for _, ev := range b.events {
			out = append(out, ev.Type)
		}
	}
	return out
}

// recordingActions stands in for the Redis action queue.
type recordingActions struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (a *recordingActions) LogAction(rec cache.GameActionRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
}

func (a *recordingActions) types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.records))
	for i, r := range a.records {
		out[i] = r.ActionType
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// newTestSession creates a lobby with numPlayers seated (P0 is host) and a fixed seed.
func newTestSession(t *testing.T, numPlayers int, rules *Rules, seed int64) (*Session, []uuid.UUID, *recordingPublisher) {
	t.Helper()
	r := DefaultRules()
	if rules != nil {
		r = *rules
	}
	pub := &recordingPublisher{}
	s, host, err := NewSession("TESTAB", "P0", SessionOptions{
		Rules:     r,
		Publisher: pub,
		Logger:    quietLogger(),
		Rand:      rand.New(rand.NewSource(seed)),
	})
	require.NoError(t, err)

	ids := []uuid.UUID{host}
	for i := 1; i < numPlayers; i++ {
		id, err := s.Join(fmt.Sprintf("P%d", i))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return s, ids, pub
}

// setupTestGame returns a started game with the publisher cleared.
func setupTestGame(t *testing.T, numPlayers int, rules *Rules) (*Session, []uuid.UUID, *recordingPublisher) {
	t.Helper()
	s, ids, pub := newTestSession(t, numPlayers, rules, 42)
	require.NoError(t, s.Start(ids[0]))
	require.Equal(t, PhasePlaying, s.Snapshot().Phase)
	pub.clear()
	return s, ids, pub
}

// rigHands replaces the dealt hands, seat by seat.
func rigHands(s *Session, hands ...[]models.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range hands {
		s.st.players[i].Hand = append([]models.Card(nil), h...)
	}
}

func card(rank string, suit models.Suit, value int) models.Card {
	return models.Card{Rank: models.Rank(rank), Suit: suit, Value: value}
}

func joker() models.Card {
	return models.Card{Rank: models.RankJoker, Suit: models.SuitNone}
}

// seatPlayers builds bare players holding the given hands, in seating order.
func seatPlayers(hands ...[]models.Card) []*models.Player {
	players := make([]*models.Player, len(hands))
	for i, h := range hands {
		players[i] = &models.Player{ID: uuid.New(), Name: fmt.Sprintf("P%d", i), Hand: h}
	}
	return players
}
