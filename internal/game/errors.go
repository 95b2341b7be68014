// internal/game/errors.go
package game

import "fmt"

// ErrorKind classifies failures by who caused them and how they are surfaced.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation" // bad input; acting client only, state unchanged
	KindTurnOrder  ErrorKind = "turn_order" // out-of-turn or illegal redirect; state unchanged
	KindNotFound   ErrorKind = "not_found"  // unknown session, code or player
	KindInvariant  ErrorKind = "invariant"  // engine bug; logged and reported generically
)

// Error is the typed failure returned by every fallible engine operation.
// Code is stable and safe to send to clients; Message is human-readable.
type Error struct {
	Code    string
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches on Code so that a detailed error still satisfies errors.Is against its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With returns a copy of the sentinel carrying a more specific message.
func (e *Error) With(format string, args ...interface{}) *Error {
	return &Error{Code: e.Code, Kind: e.Kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidName       = &Error{Code: "InvalidName", Kind: KindValidation, Message: "player name must be 1 to 20 characters"}
	ErrDuplicateName     = &Error{Code: "DuplicateName", Kind: KindValidation, Message: "that name is already taken in this game"}
	ErrMalformedCard     = &Error{Code: "MalformedCard", Kind: KindValidation, Message: "card is not a valid rank and suit"}
	ErrSessionFull       = &Error{Code: "SessionFull", Kind: KindValidation, Message: "game is full"}
	ErrAlreadyStarted    = &Error{Code: "GameAlreadyStarted", Kind: KindValidation, Message: "game has already started"}
	ErrNotHost           = &Error{Code: "NotHost", Kind: KindValidation, Message: "only the host can do that"}
	ErrTooFewPlayers     = &Error{Code: "TooFewPlayers", Kind: KindValidation, Message: "need at least 2 players to start"}
	ErrWrongPhase        = &Error{Code: "WrongPhase", Kind: KindValidation, Message: "action not allowed in the current phase"}
	ErrEliminated        = &Error{Code: "PlayerEliminated", Kind: KindValidation, Message: "eliminated players cannot do that"}
	ErrCardNotHeld       = &Error{Code: "CardNotHeld", Kind: KindValidation, Message: "you do not hold that card"}
	ErrInvalidRules      = &Error{Code: "InvalidRules", Kind: KindValidation, Message: "invalid game rules"}
	ErrInsufficientCards = &Error{Code: "InsufficientCards", Kind: KindValidation, Message: "not enough cards to deal"}

	ErrNotYourTurn           = &Error{Code: "NotYourTurn", Kind: KindTurnOrder, Message: "it's not your turn"}
	ErrInvalidRedirectTarget = &Error{Code: "InvalidRedirectTarget", Kind: KindTurnOrder, Message: "joker needs another active player as target"}

	ErrSessionNotFound = &Error{Code: "SessionNotFound", Kind: KindNotFound, Message: "game not found"}
	ErrPlayerNotFound  = &Error{Code: "PlayerNotFound", Kind: KindNotFound, Message: "player not found in this game"}

	ErrNoActivePlayers    = &Error{Code: "NoActivePlayers", Kind: KindInvariant, Message: "no active players left to take a turn"}
	ErrCorruptState       = &Error{Code: "CorruptState", Kind: KindInvariant, Message: "session state is inconsistent"}
	ErrCodeSpaceExhausted = &Error{Code: "CodeSpaceExhausted", Kind: KindInvariant, Message: "could not allocate a unique game code"}
)

// IsInvariant reports whether err signals an engine bug rather than a client mistake.
func IsInvariant(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Kind == KindInvariant
	}
	return false
}
