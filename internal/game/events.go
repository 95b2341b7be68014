// internal/game/events.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/models"
)

// EventType is the wire name of an outbound message.
type EventType string

const (
	EventGameState    EventType = "gameState"
	EventPlayerJoined EventType = "playerJoined"
	EventGameStarted  EventType = "gameStarted"
	EventCardPlayed   EventType = "cardPlayed"
	EventRoundEnd     EventType = "roundEnd"
	EventNewRound     EventType = "newRound"
	EventGameOver     EventType = "gameOver"
	EventError        EventType = "error"
)

// Event describes one committed change. It carries only what differs between event types; the
// rest of each outbound message comes from the Snapshot published alongside it.
type Event struct {
	Type EventType

	PlayerID       uuid.UUID // joining player, or the player who played a card
	Card           *models.Card
	TargetPlayerID uuid.UUID // joker redirect target

	EliminatedID uuid.UUID
	Remaining    []uuid.UUID
	FinalTotal   int
	Exhausted    bool

	WinnerID uuid.UUID
}
