// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/game"
	"github.com/jason-s-yu/forty/internal/models"
)

const maxBodyBytes = 1 << 16

// apiResponse is the envelope of every REST reply. ActionResult fields are inlined.
type apiResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Code    string        `json:"code,omitempty"`
	State   *game.Payload `json:"state,omitempty"`
	*ActionResult
}

type createRequest struct {
	PlayerName string                 `json:"playerName"`
	Rules      map[string]interface{} `json:"rules,omitempty"`
}

type joinRequest struct {
	GameCode   string `json:"gameCode"`
	PlayerName string `json:"playerName"`
}

type playerRequest struct {
	PlayerID       uuid.UUID    `json:"playerId"`
	Card           *models.Card `json:"card,omitempty"`
	TargetPlayerID *uuid.UUID   `json:"targetPlayerId,omitempty"`
}

// statusFor maps an error to its HTTP status by kind.
func statusFor(err error) int {
	if errors.Is(err, errUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, errRateLimited) {
		return http.StatusTooManyRequests
	}
	var ge *game.Error
	if !errors.As(err, &ge) {
		return http.StatusInternalServerError
	}
	switch ge.Kind {
	case game.KindValidation:
		return http.StatusBadRequest
	case game.KindTurnOrder:
		return http.StatusConflict
	case game.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	msg := game.ErrorMessage(err)
	writeJSON(w, statusFor(err), apiResponse{Success: false, Error: msg.Message, Code: msg.Code})
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return errBadRequest.With("malformed request body: %v", err)
	}
	return nil
}

func gameIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "gameId"))
	if err != nil {
		return uuid.Nil, game.ErrSessionNotFound
	}
	return id, nil
}

// setTokenCookie mirrors the token into a cookie for browser clients.
func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CreateGameHandler handles POST /api/games/create.
func CreateGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		action := models.GameAction{Type: models.ActionCreateSession, PlayerName: req.PlayerName, Rules: req.Rules}
		res, err := gs.Dispatch(r.Context(), action)
		if err != nil {
			gs.logFailure(action, err)
			writeError(w, err)
			return
		}
		setTokenCookie(w, res.Token)
		writeJSON(w, http.StatusOK, apiResponse{Success: true, ActionResult: &res})
	}
}

// JoinGameHandler handles POST /api/games/join.
func JoinGameHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		action := models.GameAction{Type: models.ActionJoinSession, GameCode: req.GameCode, PlayerName: req.PlayerName}
		if action.GameCode == "" {
			writeError(w, game.ErrSessionNotFound)
			return
		}
		res, err := gs.Dispatch(r.Context(), action)
		if err != nil {
			gs.logFailure(action, err)
			writeError(w, err)
			return
		}
		// the code identifies the game already; the client does not need it echoed
		res.GameCode = ""
		setTokenCookie(w, res.Token)
		writeJSON(w, http.StatusOK, apiResponse{Success: true, ActionResult: &res})
	}
}

// PlayerActionHandler handles the in-game POST routes: start, play, and next-round. All of
// them take the acting player in the body and the game in the path.
func PlayerActionHandler(gs *GameServer, actionType models.ActionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := gameIDParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req playerRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if err := gs.authorize(tokenFromRequest(r), gameID, req.PlayerID); err != nil {
			writeError(w, err)
			return
		}

		action := models.GameAction{
			Type:           actionType,
			GameID:         gameID,
			PlayerID:       req.PlayerID,
			Card:           req.Card,
			TargetPlayerID: req.TargetPlayerID,
		}
		if _, err := gs.Dispatch(r.Context(), action); err != nil {
			gs.logFailure(action, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true})
	}
}

// StateHandler handles GET /api/games/{gameId}/state?playerId=, returning the same view the
// player would get over the websocket.
func StateHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := gameIDParam(r)
		if err != nil {
			writeError(w, err)
			return
		}
		playerID, err := uuid.Parse(r.URL.Query().Get("playerId"))
		if err != nil {
			writeError(w, game.ErrPlayerNotFound)
			return
		}
		if err := gs.authorize(tokenFromRequest(r), gameID, playerID); err != nil {
			writeError(w, err)
			return
		}
		sess, err := gs.Registry.Find(gameID)
		if err != nil {
			writeError(w, err)
			return
		}
		msg, err := sess.State(playerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, State: msg.Payload})
	}
}
