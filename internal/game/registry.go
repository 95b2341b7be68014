// internal/game/registry.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RegistryOptions configures a Registry and the sessions it creates.
type RegistryOptions struct {
	DefaultRules      Rules
	GameOverRetention time.Duration
	LobbyIdleTimeout  time.Duration

	Publisher Publisher
	Actions   ActionLogger
	Logger    *logrus.Logger

	// OnGameOver is attached to every session the registry creates.
	OnGameOver func(GameResult)
	// OnRemove runs after a session has been dropped from the registry.
	OnRemove func(id uuid.UUID)

	// test hooks
	Now     func() time.Time
	NewCode func() string
	NewRand func() *rand.Rand
}

// Registry maps ids and join codes to live sessions. Its mutex only guards the maps; game
// operations lock the individual session.
type Registry struct {
	mu    sync.Mutex
	games map[uuid.UUID]*Session
	codes map[string]uuid.UUID
	rng   *rand.Rand
	opts  RegistryOptions
	log   *logrus.Logger
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRand == nil {
		opts.NewRand = newRand
	}
	if opts.DefaultRules.Values == nil {
		opts.DefaultRules = DefaultRules()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	r := &Registry{
		games: make(map[uuid.UUID]*Session),
		codes: make(map[string]uuid.UUID),
		rng:   newRand(),
		opts:  opts,
		log:   opts.Logger,
	}
	if r.opts.NewCode == nil {
		r.opts.NewCode = func() string { return NewCode(r.rng) }
	}
	return r
}

// Create makes a new session in the Lobby phase with hostName as host. overrides, when
// present, are applied on top of the registry's default rules.
func (r *Registry) Create(hostName string, overrides map[string]interface{}) (*Session, uuid.UUID, error) {
	rules := r.opts.DefaultRules
	if len(overrides) > 0 {
		var err error
		rules, err = ParseRules(overrides, r.opts.DefaultRules)
		if err != nil {
			return nil, uuid.Nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code := ""
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		c := NormalizeCode(r.opts.NewCode())
		if _, taken := r.codes[c]; !taken {
			code = c
			break
		}
	}
	if code == "" {
		r.log.Errorf("could not allocate a game code after %d attempts (%d live games)", maxCodeAttempts, len(r.games))
		return nil, uuid.Nil, ErrCodeSpaceExhausted
	}

	s, hostID, err := NewSession(code, hostName, SessionOptions{
		Rules:     rules,
		Publisher: r.opts.Publisher,
		Actions:   r.opts.Actions,
		Logger:    r.opts.Logger,
		Rand:      r.opts.NewRand(),
		Now:       r.opts.Now,
	})
	if err != nil {
		return nil, uuid.Nil, err
	}
	s.OnGameOver = r.opts.OnGameOver

	r.games[s.ID] = s
	r.codes[code] = s.ID
	r.log.WithFields(logrus.Fields{"game": s.ID, "code": code, "host": hostID}).Info("game created")
	return s, hostID, nil
}

// Find returns the session with the given id.
func (r *Registry) Find(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.games[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// FindByCode looks a session up by join code, ignoring case and surrounding blanks.
func (r *Registry) FindByCode(code string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.codes[NormalizeCode(code)]
	if !ok {
		return nil, ErrSessionNotFound.With("no game with code %q", code)
	}
	return r.games[id], nil
}

// Remove drops a session and frees its code.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.games[id]
	if ok {
		delete(r.games, id)
		delete(r.codes, s.Code)
	}
	r.mu.Unlock()

	if ok && r.opts.OnRemove != nil {
		r.opts.OnRemove(id)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games)
}

// Sweep removes finished games past the retention window and lobbies that have been empty
// for longer than the idle timeout. It returns the number of sessions removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	candidates := make([]*Session, 0, len(r.games))
	for _, s := range r.games {
		candidates = append(candidates, s)
	}
	r.mu.Unlock()

	removed := 0
	for _, s := range candidates {
		if s.Expired(now, r.opts.GameOverRetention, r.opts.LobbyIdleTimeout) {
			r.Remove(s.ID)
			removed++
		}
	}
	if removed > 0 {
		r.log.Infof("swept %d expired games, %d remaining", removed, r.Len())
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.opts.Now())
		}
	}
}
