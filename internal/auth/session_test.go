// internal/auth/session_test.go
package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	require.NoError(t, Init(0))
	game, player := uuid.New(), uuid.New()

	token, err := CreateJWT(game, player)
	require.NoError(t, err)

	gotGame, gotPlayer, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, game, gotGame)
	assert.Equal(t, player, gotPlayer)
}

func TestTokenRejected(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	token, err := CreateJWT(uuid.New(), uuid.New())
	require.NoError(t, err)

	_, _, err = AuthenticateJWT(token + "x")
	assert.Error(t, err, "tampered signature")

	_, _, err = AuthenticateJWT("not-a-token")
	assert.Error(t, err)

	// keys from a previous Init no longer verify
	require.NoError(t, Init(time.Hour))
	_, _, err = AuthenticateJWT(token)
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	require.NoError(t, Init(time.Hour))
	claims := jwt.MapClaims{
		"sub":  uuid.NewString(),
		"game": uuid.NewString(),
		"exp":  time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
	require.NoError(t, err)

	_, _, err = AuthenticateJWT(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenMissingGameClaim(t *testing.T) {
	require.NoError(t, Init(0))
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": uuid.NewString()}).SignedString(privateKey)
	require.NoError(t, err)

	_, _, err = AuthenticateJWT(token)
	assert.Error(t, err)
}

func TestInitFromPath(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath, pubPath := filepath.Join(dir, "key"), filepath.Join(dir, "key.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	require.NoError(t, InitFromPath(privPath, pubPath, 0))
	token, err := CreateJWT(uuid.New(), uuid.New())
	require.NoError(t, err)
	_, _, err = AuthenticateJWT(token)
	assert.NoError(t, err)

	require.NoError(t, os.WriteFile(pubPath, []byte("short"), 0o644))
	assert.Error(t, InitFromPath(privPath, pubPath, 0))
	assert.Error(t, InitFromPath(filepath.Join(dir, "missing"), pubPath, 0))
}
