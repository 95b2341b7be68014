// internal/handlers/game_server.go
package handlers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/auth"
	"github.com/jason-s-yu/forty/internal/config"
	"github.com/jason-s-yu/forty/internal/game"
	"github.com/jason-s-yu/forty/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	errUnknownAction = &game.Error{Code: "UnknownAction", Kind: game.KindValidation, Message: "unknown action type"}
	errBadRequest    = &game.Error{Code: "BadRequest", Kind: game.KindValidation, Message: "malformed request body"}
	errUnauthorized  = &game.Error{Code: "Unauthorized", Kind: game.KindValidation, Message: "missing or invalid player token"}
	errRateLimited   = &game.Error{Code: "RateLimited", Kind: game.KindValidation, Message: "too many messages, slow down"}
)

// GameServer is the single entry point for client actions. REST handlers and the WebSocket
// read loop both decode into a models.GameAction and call Dispatch.
type GameServer struct {
	Registry    *game.Registry
	Broadcaster *game.Broadcaster
	Logger      *logrus.Logger
	Config      config.Config
}

// NewGameServer wires a server around an existing registry and broadcaster.
func NewGameServer(reg *game.Registry, b *game.Broadcaster, logger *logrus.Logger, cfg config.Config) *GameServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GameServer{Registry: reg, Broadcaster: b, Logger: logger, Config: cfg}
}

// ActionResult is returned to the caller of a successful action. Only create and join fill it.
type ActionResult struct {
	GameID   uuid.UUID         `json:"gameId,omitempty"`
	PlayerID uuid.UUID         `json:"playerId,omitempty"`
	GameCode string            `json:"gameCode,omitempty"`
	Players  []game.PlayerView `json:"players,omitempty"`
	Token    string            `json:"token,omitempty"`
}

// Dispatch routes one action to the registry or the target session.
func (gs *GameServer) Dispatch(ctx context.Context, a models.GameAction) (ActionResult, error) {
	if err := ctx.Err(); err != nil {
		return ActionResult{}, err
	}
	switch a.Type {
	case models.ActionCreateSession:
		sess, playerID, err := gs.Registry.Create(a.PlayerName, a.Rules)
		if err != nil {
			return ActionResult{}, err
		}
		return gs.seated(sess, playerID)

	case models.ActionJoinSession:
		sess, err := gs.lookup(a)
		if err != nil {
			return ActionResult{}, err
		}
		playerID, err := sess.Join(a.PlayerName)
		if err != nil {
			return ActionResult{}, err
		}
		return gs.seated(sess, playerID)

	case models.ActionStartGame:
		sess, err := gs.Registry.Find(a.GameID)
		if err != nil {
			return ActionResult{}, err
		}
		return ActionResult{}, sess.Start(a.PlayerID)

	case models.ActionPlayCard:
		sess, err := gs.Registry.Find(a.GameID)
		if err != nil {
			return ActionResult{}, err
		}
		if a.Card == nil {
			return ActionResult{}, game.ErrMalformedCard
		}
		_, err = sess.PlayCard(a.PlayerID, *a.Card, a.TargetPlayerID)
		return ActionResult{}, err

	case models.ActionAdvanceRound:
		sess, err := gs.Registry.Find(a.GameID)
		if err != nil {
			return ActionResult{}, err
		}
		return ActionResult{}, sess.AdvanceRound(a.PlayerID)
	}
	return ActionResult{}, errUnknownAction
}

// lookup resolves a join target by code, falling back to the game id.
func (gs *GameServer) lookup(a models.GameAction) (*game.Session, error) {
	if a.GameCode != "" {
		return gs.Registry.FindByCode(a.GameCode)
	}
	return gs.Registry.Find(a.GameID)
}

func (gs *GameServer) seated(sess *game.Session, playerID uuid.UUID) (ActionResult, error) {
	token, err := auth.CreateJWT(sess.ID, playerID)
	if err != nil {
		return ActionResult{}, game.ErrCorruptState.With("issue token: %v", err)
	}
	return ActionResult{
		GameID:   sess.ID,
		PlayerID: playerID,
		GameCode: sess.Code,
		Players:  sess.Players(),
		Token:    token,
	}, nil
}

// authorize checks that token was issued for this game and player. It is a no-op unless
// REQUIRE_TOKEN is set.
func (gs *GameServer) authorize(token string, gameID, playerID uuid.UUID) error {
	if !gs.Config.RequireToken {
		return nil
	}
	if token == "" {
		return errUnauthorized
	}
	g, p, err := auth.AuthenticateJWT(token)
	if err != nil {
		gs.Logger.WithError(err).Debug("token rejected")
		return errUnauthorized
	}
	if g != gameID || p != playerID {
		return errUnauthorized
	}
	return nil
}

// logFailure records failures that are not the client's fault.
func (gs *GameServer) logFailure(a models.GameAction, err error) {
	var ge *game.Error
	if errors.As(err, &ge) && ge.Kind != game.KindInvariant {
		gs.Logger.WithFields(logrus.Fields{"action": a.Type, "game": a.GameID, "player": a.PlayerID}).
			Debugf("action rejected: %s", ge.Code)
		return
	}
	gs.Logger.WithFields(logrus.Fields{"action": a.Type, "game": a.GameID, "player": a.PlayerID}).
		WithError(err).Error("action failed")
}
