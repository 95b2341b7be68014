// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the game handler.
// These provide more specific reasons for closure than standard codes.
const (
	InvalidAuthTokenError  websocket.StatusCode = 3001 // token missing, invalid, or issued for another seat
	InvalidPlayerIDError   websocket.StatusCode = 3002 // playerId is malformed or not seated in the game
	InvalidGameIDError     websocket.StatusCode = 3003 // gameId is malformed or the game no longer exists
	ConnectionDroppedError websocket.StatusCode = 3004 // replaced by a newer connection, fell too far behind, or the game was removed
)
