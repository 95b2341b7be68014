package models

import "github.com/google/uuid"

// ActionType names an inbound client action. The same names are used as the "type" of
// WebSocket frames and as the historian's action_type column.
type ActionType string

const (
	ActionCreateSession ActionType = "createSession"
	ActionJoinSession   ActionType = "joinSession"
	ActionStartGame     ActionType = "startGame"
	ActionPlayCard      ActionType = "playCard"
	ActionAdvanceRound  ActionType = "advanceRound"
)

// GameAction captures a client request in transport-neutral form.
type GameAction struct {
	Type           ActionType             `json:"type"`
	GameID         uuid.UUID              `json:"gameId,omitempty"`
	PlayerID       uuid.UUID              `json:"playerId,omitempty"`
	PlayerName     string                 `json:"playerName,omitempty"`
	GameCode       string                 `json:"gameCode,omitempty"`
	Card           *Card                  `json:"card,omitempty"`
	TargetPlayerID *uuid.UUID             `json:"targetPlayerId,omitempty"`
	Rules          map[string]interface{} `json:"rules,omitempty"`
}
