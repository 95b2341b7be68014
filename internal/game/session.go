// internal/game/session.go
package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/cache"
	"github.com/jason-s-yu/forty/internal/models"
	"github.com/sirupsen/logrus"
)

// Phase is the session lifecycle stage.
type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseRoundEnd Phase = "roundEnd"
	PhaseGameOver Phase = "gameOver"
)

// Publisher receives every committed change of a session, in commit order.
type Publisher interface {
	Publish(snap Snapshot, events []Event)
}

// ActionLogger records committed actions for the historian. Implementations must not block.
type ActionLogger interface {
	LogAction(rec cache.GameActionRecord)
}

// PlayerResult is one row of a finished game's standings.
type PlayerResult struct {
	PlayerID        uuid.UUID
	Name            string
	Seat            int
	EliminatedRound int // 0 for the winner
	Placement       int // 1 is the winner
}

// GameResult summarizes a finished game for archival.
type GameResult struct {
	GameID     uuid.UUID
	Code       string
	WinnerID   uuid.UUID
	Rounds     int
	CreatedAt  time.Time
	FinishedAt time.Time
	Players    []PlayerResult
}

// SessionOptions carries a session's collaborators. Only Rules is required.
type SessionOptions struct {
	Rules     Rules
	Publisher Publisher
	Actions   ActionLogger
	Logger    *logrus.Logger
	Rand      *rand.Rand
	Now       func() time.Time
}

type state struct {
	players      []*models.Player
	phase        Phase
	round        Round
	winner       uuid.UUID
	eliminatedIn map[uuid.UUID]int
	finishedAt   time.Time
	emptySince   time.Time
}

func (st *state) clone() state {
	out := *st
	out.players = make([]*models.Player, len(st.players))
	for i, p := range st.players {
		cp := *p
		cp.Hand = append([]models.Card(nil), p.Hand...)
		out.players[i] = &cp
	}
	if st.round.LastCard != nil {
		c := *st.round.LastCard
		out.round.LastCard = &c
	}
	out.eliminatedIn = make(map[uuid.UUID]int, len(st.eliminatedIn))
	for k, v := range st.eliminatedIn {
		out.eliminatedIn[k] = v
	}
	return out
}

func (st *state) player(id uuid.UUID) *models.Player {
	for _, p := range st.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Session owns the state of one game. mu guards the state; pubMu orders publishing so that
// events reach subscribers in commit order without holding mu during I/O.
type Session struct {
	ID        uuid.UUID
	Code      string
	CreatedAt time.Time

	mu          sync.Mutex
	pubMu       sync.Mutex
	st          state
	rules       Rules
	rng         *rand.Rand
	version     uint64
	actionIndex int

	publisher Publisher
	actions   ActionLogger
	now       func() time.Time
	log       *logrus.Entry

	// OnGameOver is called once, outside the session lock, when the last elimination happens.
	OnGameOver func(GameResult)
}

// NewSession creates a session in the Lobby phase with hostName seated as player 0.
func NewSession(code, hostName string, opts SessionOptions) (*Session, uuid.UUID, error) {
	name, err := cleanName(hostName)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, uuid.Nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = newRand()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	s := &Session{
		ID:        uuid.New(),
		Code:      code,
		rules:     opts.Rules.Clone(),
		rng:       opts.Rand,
		publisher: opts.Publisher,
		actions:   opts.Actions,
		now:       opts.Now,
	}
	s.CreatedAt = s.now()
	s.log = logger.WithFields(logrus.Fields{"game": s.ID, "code": code})

	host := &models.Player{ID: uuid.New(), Name: name}
	s.st = state{
		players:      []*models.Player{host},
		phase:        PhaseLobby,
		round:        Round{Number: 1, State: RoundDealt},
		eliminatedIn: map[uuid.UUID]int{},
		emptySince:   s.CreatedAt,
	}
	s.logAction(models.ActionCreateSession, host.ID, map[string]interface{}{"playerName": name})
	return s, host.ID, nil
}

// Rules returns a copy of the session's rules.
func (s *Session) Rules() Rules {
	return s.rules.Clone()
}

// Join seats a new player at the end of the table.
func (s *Session) Join(name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.apply(models.ActionJoinSession, uuid.Nil, func(st *state) ([]Event, error) {
		if st.phase != PhaseLobby {
			return nil, ErrAlreadyStarted
		}
		if len(st.players) >= s.rules.MaxPlayers {
			return nil, ErrSessionFull
		}
		clean, err := cleanName(name)
		if err != nil {
			return nil, err
		}
		if s.rules.UniqueNames {
			for _, p := range st.players {
				if strings.EqualFold(p.Name, clean) {
					return nil, ErrDuplicateName
				}
			}
		}
		p := &models.Player{ID: uuid.New(), Name: clean}
		st.players = append(st.players, p)
		id = p.ID
		name = clean
		return []Event{{Type: EventPlayerJoined, PlayerID: p.ID}}, nil
	}, func() (uuid.UUID, map[string]interface{}) {
		return id, map[string]interface{}{"playerName": name}
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Start deals the first round. Only the host may start, and only from the lobby.
func (s *Session) Start(playerID uuid.UUID) error {
	return s.apply(models.ActionStartGame, playerID, func(st *state) ([]Event, error) {
		if st.player(playerID) == nil {
			return nil, ErrPlayerNotFound
		}
		if st.phase != PhaseLobby {
			return nil, ErrAlreadyStarted
		}
		if st.players[0].ID != playerID {
			return nil, ErrNotHost.With("only the host can start the game")
		}
		if len(st.players) < MinPlayers {
			return nil, ErrTooFewPlayers
		}
		if err := s.dealLocked(st); err != nil {
			return nil, err
		}
		st.round = NewRound(1, 0)
		st.phase = PhasePlaying
		return []Event{{Type: EventGameStarted}}, nil
	}, nil)
}

// PlayCard plays card from playerID's hand. A joker requires target unless no other active
// player holds cards.
func (s *Session) PlayCard(playerID uuid.UUID, card models.Card, target *uuid.UUID) (PlayOutcome, error) {
	var out PlayOutcome
	err := s.apply(models.ActionPlayCard, playerID, func(st *state) ([]Event, error) {
		if st.phase != PhasePlaying {
			return nil, ErrWrongPhase.With("cards can only be played while a round is in progress")
		}
		p := st.player(playerID)
		if p == nil {
			return nil, ErrPlayerNotFound
		}
		if p.Eliminated {
			return nil, ErrEliminated
		}
		if !card.Valid() {
			return nil, ErrMalformedCard
		}

		var err error
		out, err = st.round.Play(st.players, playerID, card, target)
		if err != nil {
			return nil, err
		}

		played := out.Card
		events := []Event{{Type: EventCardPlayed, PlayerID: playerID, Card: &played}}
		if out.Redirected {
			events[0].TargetPlayerID = *target
		}

		switch {
		case out.Eliminated != uuid.Nil:
			st.eliminatedIn[out.Eliminated] = st.round.Number
			events = append(events, Event{
				Type:         EventRoundEnd,
				EliminatedID: out.Eliminated,
				Remaining:    out.Remaining,
				FinalTotal:   out.Total,
			})
			if out.Winner != uuid.Nil {
				st.phase = PhaseGameOver
				st.winner = out.Winner
				st.finishedAt = s.now()
				events = append(events, Event{Type: EventGameOver, WinnerID: out.Winner})
			} else {
				st.phase = PhaseRoundEnd
			}
		case out.Exhausted:
			st.phase = PhaseRoundEnd
			events = append(events, Event{Type: EventRoundEnd, FinalTotal: out.Total, Exhausted: true})
		}
		return events, nil
	}, func() (uuid.UUID, map[string]interface{}) {
		payload := map[string]interface{}{"card": out.Card, "total": out.Total}
		if out.Redirected {
			payload["targetPlayerId"] = target.String()
		}
		if out.Eliminated != uuid.Nil {
			payload["eliminated"] = out.Eliminated.String()
		}
		if out.Winner != uuid.Nil {
			payload["winner"] = out.Winner.String()
		}
		return playerID, payload
	})
	if err != nil {
		return PlayOutcome{}, err
	}
	return out, nil
}

// AdvanceRound redeals the active players after a round has concluded.
func (s *Session) AdvanceRound(playerID uuid.UUID) error {
	return s.apply(models.ActionAdvanceRound, playerID, func(st *state) ([]Event, error) {
		p := st.player(playerID)
		if p == nil {
			return nil, ErrPlayerNotFound
		}
		if st.phase != PhaseRoundEnd {
			return nil, ErrWrongPhase.With("the next round can only start after a round ends")
		}
		// host-only advancing lapses once the host is out, or nobody could continue
		if s.rules.AdvanceHostOnly && st.players[0].Active() && st.players[0].ID != playerID {
			return nil, ErrNotHost.With("only the host can start the next round")
		}
		if p.Eliminated {
			return nil, ErrEliminated
		}

		from := st.round.Current
		if st.round.Eliminated != uuid.Nil {
			from = seatOf(st.players, st.round.Eliminated)
		}
		first, err := Advance(from, st.players)
		if err != nil {
			return nil, err
		}
		if err := s.dealLocked(st); err != nil {
			return nil, err
		}
		st.round = NewRound(st.round.Number+1, first)
		st.phase = PhasePlaying
		return []Event{{Type: EventNewRound}}, nil
	}, nil)
}

// Connect marks the player present and publishes the full state to everyone, the newly
// connected player included.
func (s *Session) Connect(playerID uuid.UUID) error {
	return s.apply("", playerID, func(st *state) ([]Event, error) {
		p := st.player(playerID)
		if p == nil {
			return nil, ErrPlayerNotFound
		}
		p.Connected = true
		st.emptySince = time.Time{}
		return []Event{{Type: EventGameState}}, nil
	}, nil)
}

// Disconnect marks the player absent. The player stays seated and keeps their turn.
func (s *Session) Disconnect(playerID uuid.UUID) error {
	return s.apply("", playerID, func(st *state) ([]Event, error) {
		p := st.player(playerID)
		if p == nil {
			return nil, ErrPlayerNotFound
		}
		p.Connected = false
		anyone := false
		for _, pl := range st.players {
			anyone = anyone || pl.Connected
		}
		if !anyone {
			st.emptySince = s.now()
		}
		return []Event{{Type: EventGameState}}, nil
	}, nil)
}

// State returns the full view of the session as playerID would receive it.
func (s *Session) State(playerID uuid.UUID) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.player(playerID) == nil {
		return Message{}, ErrPlayerNotFound
	}
	return Render(Event{Type: EventGameState}, s.snapshotLocked(), playerID), nil
}

// Snapshot returns a consistent copy of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Players returns the public view of every seated player.
func (s *Session) Players() []PlayerView {
	return s.Snapshot().Players
}

// HasPlayer reports whether playerID is seated in this session.
func (s *Session) HasPlayer(playerID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.player(playerID) != nil
}

// Expired reports whether the registry may drop the session: finished games after the
// retention window, and lobbies nobody has been connected to for idle.
func (s *Session) Expired(now time.Time, retention, idle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.st.phase {
	case PhaseGameOver:
		return now.Sub(s.st.finishedAt) > retention
	case PhaseLobby:
		return !s.st.emptySince.IsZero() && now.Sub(s.st.emptySince) > idle
	}
	return false
}

// apply runs op against the state under mu. On error or panic the state is restored from a
// copy taken beforehand. On success the version is bumped, a snapshot is taken, and the
// events are published while pubMu is held so that commits and publishes share one order.
// record, when non-nil, is evaluated after a successful op to build the action log entry.
func (s *Session) apply(action models.ActionType, actor uuid.UUID, op func(*state) ([]Event, error), record func() (uuid.UUID, map[string]interface{})) error {
	s.mu.Lock()
	backup := s.st.clone()
	wasOver := s.st.phase == PhaseGameOver

	events, err := runOp(&s.st, op)
	if err != nil {
		s.st = backup
		s.mu.Unlock()
		if IsInvariant(err) {
			s.log.WithFields(logrus.Fields{"action": action, "player": actor}).WithError(err).Error("session invariant violated")
		}
		return err
	}

	s.version++
	if action != "" {
		payload := map[string]interface{}{}
		if record != nil {
			actor, payload = record()
		}
		s.logAction(action, actor, payload)
	}
	snap := s.snapshotLocked()
	var result *GameResult
	if !wasOver && s.st.phase == PhaseGameOver {
		r := s.resultLocked()
		result = &r
	}

	s.pubMu.Lock()
	s.mu.Unlock()
	if s.publisher != nil && len(events) > 0 {
		s.publisher.Publish(snap, events)
	}
	s.pubMu.Unlock()

	if result != nil {
		s.log.WithField("winner", result.WinnerID).Infof("game over after %d rounds", result.Rounds)
		if s.OnGameOver != nil {
			s.OnGameOver(*result)
		}
	}
	return nil
}

func runOp(st *state, op func(*state) ([]Event, error)) (events []Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = ErrCorruptState.With("operation aborted: %v", r)
		}
	}()
	return op(st)
}

// logAction must be called with mu held (or before the session is shared).
func (s *Session) logAction(action models.ActionType, actor uuid.UUID, payload map[string]interface{}) {
	if s.actions == nil {
		return
	}
	s.actionIndex++
	s.actions.LogAction(cache.GameActionRecord{
		GameID:        s.ID,
		ActionIndex:   s.actionIndex,
		ActorPlayerID: actor,
		ActionType:    string(action),
		ActionPayload: payload,
		Timestamp:     s.now().UnixMilli(),
	})
}

// dealLocked shuffles a fresh deck and hands it out to the active players in seat order.
func (s *Session) dealLocked(st *state) error {
	var active []*models.Player
	for _, p := range st.players {
		p.Hand = nil
		if p.Active() {
			active = append(active, p)
		}
	}
	hands, err := Deal(Shuffle(BuildDeck(s.rules), s.rng), len(active))
	if err != nil {
		return err
	}
	for i, p := range active {
		p.Hand = hands[i]
	}
	return nil
}

func (s *Session) snapshotLocked() Snapshot {
	st := &s.st
	snap := Snapshot{
		GameID:      s.ID,
		Code:        s.Code,
		Phase:       st.phase,
		Version:     s.version,
		RoundNumber: st.round.Number,
		Total:       st.round.Total,
		HostID:      st.players[0].ID,
		WinnerID:    st.winner,
		Players:     make([]PlayerView, len(st.players)),
		hands:       make(map[uuid.UUID][]models.Card, len(st.players)),
	}
	if st.phase == PhasePlaying && st.round.Current >= 0 && st.round.Current < len(st.players) {
		snap.CurrentPlayerID = st.players[st.round.Current].ID
	}
	if st.round.LastCard != nil {
		c := *st.round.LastCard
		snap.LastCard = &c
	}
	for i, p := range st.players {
		snap.Players[i] = PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			Eliminated: p.Eliminated,
			Connected:  p.Connected,
			CardCount:  len(p.Hand),
			IsHost:     i == 0,
		}
		snap.hands[p.ID] = append([]models.Card(nil), p.Hand...)
	}
	return snap
}

func (s *Session) resultLocked() GameResult {
	st := &s.st
	n := len(st.players)
	res := GameResult{
		GameID:     s.ID,
		Code:       s.Code,
		WinnerID:   st.winner,
		Rounds:     st.round.Number,
		CreatedAt:  s.CreatedAt,
		FinishedAt: st.finishedAt,
		Players:    make([]PlayerResult, n),
	}
	// a player finishes behind everyone who outlasted them; rounds end with at most one
	// elimination, so placements are distinct
	for i, p := range st.players {
		pr := PlayerResult{PlayerID: p.ID, Name: p.Name, Seat: i, Placement: 1}
		if r, ok := st.eliminatedIn[p.ID]; ok {
			pr.EliminatedRound = r
			for _, q := range st.players {
				if qr, out := st.eliminatedIn[q.ID]; !out || qr > r {
					pr.Placement++
				}
			}
		}
		res.Players[i] = pr
	}
	return res
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
