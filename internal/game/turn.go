// internal/game/turn.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/forty/internal/models"
)

// Advance returns the index of the next non-eliminated player after current in seating order,
// wrapping around. current itself is considered last, so a lone survivor gets the turn back.
func Advance(current int, players []*models.Player) (int, error) {
	n := len(players)
	if n == 0 {
		return -1, ErrNoActivePlayers
	}
	for step := 1; step <= n; step++ {
		idx := ((current+step)%n + n) % n
		if players[idx].Active() {
			return idx, nil
		}
	}
	return -1, ErrNoActivePlayers
}

// RedirectTo validates a joker target and returns its seat index. The target must be seated,
// not eliminated and not the current player. Connection state does not matter.
func RedirectTo(current int, target uuid.UUID, players []*models.Player) (int, error) {
	for i, p := range players {
		if p.ID != target {
			continue
		}
		if i == current {
			return -1, ErrInvalidRedirectTarget.With("cannot redirect the turn to yourself")
		}
		if p.Eliminated {
			return -1, ErrInvalidRedirectTarget.With("%s is already eliminated", p.Name)
		}
		return i, nil
	}
	return -1, ErrInvalidRedirectTarget.With("target player %s is not in this game", target)
}

// RedirectTargets lists the players a joker played from seat current may pass the turn to.
func RedirectTargets(current int, players []*models.Player) []uuid.UUID {
	var out []uuid.UUID
	for i, p := range players {
		if i != current && p.Active() {
			out = append(out, p.ID)
		}
	}
	return out
}

// ActiveCount returns the number of players not yet eliminated.
func ActiveCount(players []*models.Player) int {
	n := 0
	for _, p := range players {
		if p.Active() {
			n++
		}
	}
	return n
}
