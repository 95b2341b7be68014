// internal/game/view.go
package game

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/models"
)

// PlayerView is the public face of a player. It never includes hand contents.
type PlayerView struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Eliminated bool      `json:"eliminated"`
	Connected  bool      `json:"connected"`
	CardCount  int       `json:"cardCount"`
	IsHost     bool      `json:"isHost"`
}

// PlayerRef names a player in round and game results.
type PlayerRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Snapshot is an immutable copy of a session taken at commit time. Hands are kept private and
// only ever rendered for their owner.
type Snapshot struct {
	GameID          uuid.UUID
	Code            string
	Phase           Phase
	Version         uint64
	RoundNumber     int
	Total           int
	CurrentPlayerID uuid.UUID
	LastCard        *models.Card
	HostID          uuid.UUID
	WinnerID        uuid.UUID
	Players         []PlayerView

	hands map[uuid.UUID][]models.Card
}

// Hand returns a copy of the given player's hand as of the snapshot.
func (s Snapshot) Hand(playerID uuid.UUID) []models.Card {
	h := s.hands[playerID]
	out := make([]models.Card, len(h))
	copy(out, h)
	return out
}

// Ref looks up a player's name for result payloads.
func (s Snapshot) Ref(playerID uuid.UUID) *PlayerRef {
	for _, p := range s.Players {
		if p.ID == playerID {
			return &PlayerRef{ID: p.ID, Name: p.Name}
		}
	}
	return nil
}

// Payload is the body of every outbound message. The shared block is identical for all
// recipients; Hand is the recipient's own hand and nobody else's.
type Payload struct {
	GameID          uuid.UUID     `json:"gameId"`
	GameCode        string        `json:"gameCode"`
	Phase           Phase         `json:"phase"`
	Version         uint64        `json:"version"`
	HostID          uuid.UUID     `json:"hostId"`
	Players         []PlayerView  `json:"players"`
	CurrentTotal    int           `json:"currentTotal"`
	CurrentPlayerID *uuid.UUID    `json:"currentPlayerId"`
	RoundNumber     int           `json:"roundNumber"`
	LastCard        *models.Card  `json:"lastCard"`
	Hand            []models.Card `json:"hand"`

	PlayerID         *uuid.UUID   `json:"playerId,omitempty"`
	Card             *models.Card `json:"card,omitempty"`
	NextPlayerID     *uuid.UUID   `json:"nextPlayerId,omitempty"`
	TargetPlayerID   *uuid.UUID   `json:"targetPlayerId,omitempty"`
	EliminatedPlayer *PlayerRef   `json:"eliminatedPlayer,omitempty"`
	Remaining        []uuid.UUID  `json:"remaining,omitempty"`
	FinalTotal       *int         `json:"finalTotal,omitempty"`
	Exhausted        bool         `json:"exhausted,omitempty"`
	Winner           *PlayerRef   `json:"winner,omitempty"`
}

// Message is the outbound envelope. Message and Code are only set on errors; the web client
// reads the text at the top level.
type Message struct {
	Type    EventType `json:"type"`
	Payload *Payload  `json:"payload,omitempty"`
	Message string    `json:"message,omitempty"`
	Code    string    `json:"code,omitempty"`
}

func idPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Render builds the message recipient receives for ev.
func Render(ev Event, snap Snapshot, recipient uuid.UUID) Message {
	p := &Payload{
		GameID:          snap.GameID,
		GameCode:        snap.Code,
		Phase:           snap.Phase,
		Version:         snap.Version,
		HostID:          snap.HostID,
		Players:         snap.Players,
		CurrentTotal:    snap.Total,
		CurrentPlayerID: idPtr(snap.CurrentPlayerID),
		RoundNumber:     snap.RoundNumber,
		LastCard:        snap.LastCard,
		Hand:            snap.Hand(recipient),
	}

	switch ev.Type {
	case EventPlayerJoined:
		p.PlayerID = idPtr(ev.PlayerID)
	case EventCardPlayed:
		p.PlayerID = idPtr(ev.PlayerID)
		p.Card = ev.Card
		p.NextPlayerID = idPtr(snap.CurrentPlayerID)
		p.TargetPlayerID = idPtr(ev.TargetPlayerID)
	case EventRoundEnd:
		p.EliminatedPlayer = snap.Ref(ev.EliminatedID)
		p.Remaining = ev.Remaining
		total := ev.FinalTotal
		p.FinalTotal = &total
		p.Exhausted = ev.Exhausted
	case EventGameOver:
		p.Winner = snap.Ref(ev.WinnerID)
	}
	return Message{Type: ev.Type, Payload: p}
}

// ErrorMessage renders a failure for the acting client. Invariant violations are reported
// generically; their details stay in the server log.
func ErrorMessage(err error) Message {
	var ge *Error
	if errors.As(err, &ge) && ge.Kind != KindInvariant {
		return Message{Type: EventError, Message: ge.Message, Code: ge.Code}
	}
	return Message{Type: EventError, Message: "internal error", Code: "internal"}
}
