// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying player tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpireTime is how long a token stays valid (0 => never).
	tokenExpireTime time.Duration
)

// ErrNotInitialized is returned when tokens are used before Init.
var ErrNotInitialized = errors.New("auth keys not initialized")

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration. Tokens do
// not survive a restart, and neither do the games they point at.
func Init(expireAfter time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	publicKey, privateKey = pub, priv
	tokenExpireTime = expireAfter
	return nil
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string, expireAfter time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("key files have the wrong size for ed25519")
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	tokenExpireTime = expireAfter
	return nil
}

// CreateJWT creates a signed token binding a player to one game: "sub" = playerID,
// "game" = gameID, plus exp when an expiry is configured.
func CreateJWT(gameID, playerID uuid.UUID) (string, error) {
	if privateKey == nil {
		return "", ErrNotInitialized
	}
	claims := jwt.MapClaims{
		"sub":  playerID.String(),
		"game": gameID.String(),
		"iat":  time.Now().Unix(),
	}
	if tokenExpireTime > 0 {
		claims["exp"] = time.Now().Add(tokenExpireTime).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token and returns the game and player it was issued for.
func AuthenticateJWT(tokenString string) (gameID, playerID uuid.UUID, err error) {
	if publicKey == nil {
		return uuid.Nil, uuid.Nil, ErrNotInitialized
	}
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid jwt claims")
	}

	sub, _ := claims["sub"].(string)
	playerID, err = uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("missing or malformed sub in jwt")
	}
	g, _ := claims["game"].(string)
	gameID, err = uuid.Parse(g)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("missing or malformed game in jwt")
	}
	return gameID, playerID, nil
}
