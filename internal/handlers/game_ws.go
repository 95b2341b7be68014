// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/game"
	"github.com/jason-s-yu/forty/internal/middleware"
	"github.com/jason-s-yu/forty/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	replyBuffer  = 16
	readLimit    = 1 << 16
)

// GameMessage is an inbound WebSocket frame: {type, payload}. The payload carries the same
// fields as the REST bodies.
type GameMessage struct {
	Type    models.ActionType `json:"type"`
	Payload json.RawMessage   `json:"payload,omitempty"`
}

// ackMessage answers a create or join sent over the socket. The socket stays bound to the
// game it was opened for; the client reconnects with the returned ids.
type ackMessage struct {
	Type    string        `json:"type"`
	Action  string        `json:"action"`
	Payload *ActionResult `json:"payload"`
}

const actionPing models.ActionType = "ping"

// GameWSHandler upgrades GET /ws?gameId=&playerId=[&token=] for a seated player. The
// connection is attached to the broadcaster before Connect so the player's first frame is
// the full game state.
func GameWSHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := gs.Logger
		q := r.URL.Query()

		gameID, err := uuid.Parse(q.Get("gameId"))
		if err != nil {
			http.Error(w, "invalid gameId", http.StatusBadRequest)
			return
		}
		sess, err := gs.Registry.Find(gameID)
		if err != nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}
		playerID, err := uuid.Parse(q.Get("playerId"))
		if err != nil || !sess.HasPlayer(playerID) {
			http.Error(w, "player not found in this game", http.StatusNotFound)
			return
		}
		if err := gs.authorize(tokenFromRequest(r), gameID, playerID); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns(gs.Config.AllowedOrigins),
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for game %s: %v", gameID, err)
			return
		}
		c.SetReadLimit(readLimit)

		fields := logrus.Fields{"game": gameID, "player": playerID}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, fields)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn := game.NewConn(playerID, gs.Config.WSOutBuffer, cancel)
		gs.Broadcaster.Attach(sess.ID, conn)
		if err := sess.Connect(playerID); err != nil {
			// the session was swept between lookup and attach
			gs.Broadcaster.Detach(sess.ID, conn)
			c.Close(InvalidGameIDError, "game no longer exists")
			return
		}

		replies := make(chan interface{}, replyBuffer)
		writeDone := make(chan error, 1)
		go func() {
			writeDone <- writePump(ctx, c, conn, replies)
		}()

		limiter := newLimiter(gs.Config.WSRateLimit, gs.Config.WSRateBurst)
		readErr := readPump(ctx, c, gs, sess, playerID, limiter, replies, logger.WithFields(fields))

		cancel()
		writeErr := <-writeDone

		if gs.Broadcaster.Detach(sess.ID, conn) {
			if err := sess.Disconnect(playerID); err != nil && !errors.Is(err, game.ErrPlayerNotFound) {
				logger.WithFields(fields).WithError(err).Warn("disconnect")
			}
		}

		if conn.Dropped() {
			c.Close(ConnectionDroppedError, "connection replaced or too far behind")
		} else {
			c.Close(websocket.StatusNormalClosure, "")
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, fields, closeReason(readErr, writeErr))
	}
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// closeReason drops the errors every normal shutdown produces.
func closeReason(errs ...error) error {
	for _, err := range errs {
		if err == nil || errors.Is(err, context.Canceled) {
			continue
		}
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			continue
		}
		return err
	}
	return nil
}

// writePump is the only writer on c. It drains the broadcaster's queue for this connection and
// the read loop's direct replies, and pings the client periodically.
func writePump(ctx context.Context, c *websocket.Conn, conn *game.Conn, replies <-chan interface{}) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-conn.Out():
			if err := writeFrame(ctx, c, msg); err != nil {
				return err
			}
		case reply := <-replies:
			if err := writeFrame(ctx, c, reply); err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func writeFrame(ctx context.Context, c *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.Write(writeCtx, websocket.MessageText, data)
}

// readPump reads frames until the connection closes, converting each into an action for the
// dispatcher. In-game actions always act as the connection's own player in its own game.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, sess *game.Session, playerID uuid.UUID, limiter *rate.Limiter, replies chan<- interface{}, log *logrus.Entry) error {
	reply := func(v interface{}) {
		select {
		case replies <- v:
		default:
			log.Warn("reply queue full, dropping reply")
		}
	}

	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != websocket.MessageText {
			log.Debugf("ignoring non-text message type %d", msgType)
			continue
		}
		if !limiter.Allow() {
			reply(game.ErrorMessage(errRateLimited))
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply(game.ErrorMessage(errBadRequest))
			continue
		}
		if msg.Type == actionPing {
			reply(map[string]string{"type": "pong"})
			continue
		}

		action := models.GameAction{}
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &action); err != nil {
				reply(game.ErrorMessage(errBadRequest))
				continue
			}
		}
		action.Type = msg.Type
		switch action.Type {
		case models.ActionStartGame, models.ActionPlayCard, models.ActionAdvanceRound:
			action.GameID = sess.ID
			action.PlayerID = playerID
		}
		log.Debugf("received action '%s'", action.Type)

		res, err := gs.Dispatch(ctx, action)
		if err != nil {
			gs.logFailure(action, err)
			reply(game.ErrorMessage(err))
			continue
		}
		switch action.Type {
		case models.ActionCreateSession, models.ActionJoinSession:
			reply(ackMessage{Type: "actionResult", Action: string(action.Type), Payload: &res})
		}
	}
}
