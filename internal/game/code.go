// internal/game/code.go
package game

import (
	"math/rand"
	"strings"
)

// CodeLength is the length of a join code.
const CodeLength = 6

// codeAlphabet leaves out characters that are easy to confuse when read aloud or typed:
// 0/O, 1/I/L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// maxCodeAttempts bounds collision retries when allocating a code.
const maxCodeAttempts = 32

// NewCode draws a random join code.
func NewCode(r *rand.Rand) string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[r.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// NormalizeCode canonicalizes user input so lookups are case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
