package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/forty/internal/auth"
	"github.com/jason-s-yu/forty/internal/config"
	"github.com/jason-s-yu/forty/internal/game"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	gs  *GameServer
	srv *httptest.Server
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	require.NoError(t, auth.Init(0))

	cfg := config.Config{
		Rules:          game.DefaultRules(),
		AllowedOrigins: []string{"https://*", "http://*"},
		WSOutBuffer:    game.DefaultOutBuffer,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	logger, _ := test.NewNullLogger()
	b := game.NewBroadcaster(logger)
	reg := game.NewRegistry(game.RegistryOptions{
		DefaultRules: cfg.Rules,
		Publisher:    b,
		Logger:       logger,
		OnRemove:     b.DropSession,
	})
	gs := NewGameServer(reg, b, logger, cfg)
	srv := httptest.NewServer(NewRouter(gs))
	t.Cleanup(srv.Close)
	return &testEnv{gs: gs, srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (e *testEnv) post(t *testing.T, path string, body interface{}, token string) (int, map[string]interface{}) {
	return e.do(t, http.MethodPost, path, body, token)
}

// seatedGame creates a game hosted by names[0] and joins the rest. It returns the game id and
// each player's id and token, in seat order.
func (e *testEnv) seatedGame(t *testing.T, names ...string) (string, []string, []string) {
	t.Helper()
	status, created := e.post(t, "/api/games/create", map[string]interface{}{"playerName": names[0]}, "")
	require.Equal(t, http.StatusOK, status, created)

	gameID := created["gameId"].(string)
	code := created["gameCode"].(string)
	ids := []string{created["playerId"].(string)}
	tokens := []string{created["token"].(string)}
	for _, name := range names[1:] {
		status, joined := e.post(t, "/api/games/join", map[string]interface{}{"gameCode": code, "playerName": name}, "")
		require.Equal(t, http.StatusOK, status, joined)
		ids = append(ids, joined["playerId"].(string))
		tokens = append(tokens, joined["token"].(string))
	}
	return gameID, ids, tokens
}

func (e *testEnv) wsURL(gameID, playerID, token string) string {
	u := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?gameId=" + gameID + "&playerId=" + playerID
	if token != "" {
		u += "&token=" + token
	}
	return u
}

func (e *testEnv) dial(t *testing.T, gameID, playerID, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, e.wsURL(gameID, playerID, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

type frame struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
	Message string                 `json:"message"`
	Code    string                 `json:"code"`
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, c *websocket.Conn, typ string) frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		var f frame
		require.NoError(t, wsjson.Read(ctx, c, &f), "waiting for %s", typ)
		if f.Type == typ {
			return f
		}
	}
}

func send(t *testing.T, c *websocket.Conn, v interface{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, v))
}

// firstPlainCard returns the first non-joker card of a rendered hand.
func firstPlainCard(t *testing.T, hand interface{}) map[string]interface{} {
	t.Helper()
	for _, c := range hand.([]interface{}) {
		card := c.(map[string]interface{})
		if joker, _ := card["isJoker"].(bool); !joker {
			return card
		}
	}
	t.Fatal("hand holds only jokers")
	return nil
}
