// internal/game/rules_test.go
package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesValid(t *testing.T) {
	rules := DefaultRules()
	require.NoError(t, rules.Validate())
	assert.Equal(t, 1, rules.ValueOf("A"))
	assert.Equal(t, -10, rules.ValueOf("J"))
	assert.Equal(t, -5, rules.ValueOf("Q"))
	assert.Equal(t, 0, rules.ValueOf("K"))
	assert.Equal(t, 0, rules.ValueOf("JOKER"))
}

func TestParseRulesFromJSON(t *testing.T) {
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"jokerCount": 4, "advanceHostOnly": true, "values": {"q": -7}}`), &raw))

	base := DefaultRules()
	rules, err := ParseRules(raw, base)
	require.NoError(t, err)
	assert.Equal(t, 4, rules.JokerCount)
	assert.True(t, rules.AdvanceHostOnly)
	assert.Equal(t, -7, rules.Values["Q"])
	assert.Equal(t, MaxSeats, rules.MaxPlayers, "missing keys keep their value")

	assert.Equal(t, -5, base.Values["Q"], "the base value table is not shared")
}

func TestParseRulesRejects(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"bool as string": {"uniqueNames": "yes"},
		"fractional int": {"jokerCount": 1.5},
		"too many seats": {"maxPlayers": float64(MaxSeats + 1)},
		"one seat":       {"maxPlayers": float64(1)},
		"negative joker": {"jokerCount": float64(-1)},
		"unknown rank":   {"values": map[string]interface{}{"Z": float64(3)}},
		"values not map": {"values": "A=1"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			base := DefaultRules()
			got, err := ParseRules(in, base)
			assert.ErrorIs(t, err, ErrInvalidRules)
			assert.Equal(t, base, got)
		})
	}
}
