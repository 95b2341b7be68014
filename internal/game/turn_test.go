// internal/game/turn_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceSkipsEliminated(t *testing.T) {
	players := seatPlayers(nil, nil, nil, nil)
	players[1].Eliminated = true

	next, err := Advance(0, players)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	next, err = Advance(3, players)
	require.NoError(t, err)
	assert.Equal(t, 0, next, "wraps around")

	// a full cycle visits every active player exactly once, in seat order
	var order []int
	cur := 0
	for i := 0; i < 3; i++ {
		cur, err = Advance(cur, players)
		require.NoError(t, err)
		order = append(order, cur)
	}
	assert.Equal(t, []int{2, 3, 0}, order)
}

func TestAdvanceLoneSurvivor(t *testing.T) {
	players := seatPlayers(nil, nil, nil)
	players[0].Eliminated = true
	players[2].Eliminated = true

	next, err := Advance(1, players)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	players[1].Eliminated = true
	_, err = Advance(1, players)
	assert.ErrorIs(t, err, ErrNoActivePlayers)
	assert.True(t, IsInvariant(err))

	_, err = Advance(0, nil)
	assert.ErrorIs(t, err, ErrNoActivePlayers)
}

func TestRedirectTo(t *testing.T) {
	players := seatPlayers(nil, nil, nil)
	players[1].Eliminated = true
	players[2].Connected = false

	idx, err := RedirectTo(0, players[2].ID, players)
	require.NoError(t, err, "disconnected players are valid targets")
	assert.Equal(t, 2, idx)

	_, err = RedirectTo(0, players[0].ID, players)
	assert.ErrorIs(t, err, ErrInvalidRedirectTarget)

	_, err = RedirectTo(0, players[1].ID, players)
	assert.ErrorIs(t, err, ErrInvalidRedirectTarget)

	_, err = RedirectTo(0, uuid.New(), players)
	assert.ErrorIs(t, err, ErrInvalidRedirectTarget)
}

func TestRedirectTargetsTwoPlayers(t *testing.T) {
	players := seatPlayers(nil, nil)
	assert.Equal(t, []uuid.UUID{players[1].ID}, RedirectTargets(0, players))

	players = seatPlayers(nil, nil, nil)
	players[2].Eliminated = true
	assert.Equal(t, []uuid.UUID{players[0].ID}, RedirectTargets(1, players))
	assert.Equal(t, 2, ActiveCount(players))
}
