package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VideoGrant is the room access grant carried by a LiveKit join token.
type VideoGrant struct {
	Room     string `json:"room"`
	RoomJoin bool   `json:"roomJoin"`
}

// JoinClaims holds the LiveKit join token payload. The issuer is the API
// key and the subject is the participant identity, per the LiveKit token
// format.
type JoinClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
}

// ErrInvalidToken is returned when a token cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// TokenIssuer mints LiveKit room join tokens signed with the deployment's
// API secret.
type TokenIssuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

const defaultTokenTTL = 6 * time.Hour

func NewTokenIssuer(apiKey, apiSecret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl}
}

// JoinToken creates a signed token admitting identity into roomName.
func (t *TokenIssuer) JoinToken(roomName, identity string) (string, error) {
	if roomName == "" || identity == "" {
		return "", fmt.Errorf("auth.TokenIssuer.JoinToken: room name and identity are required")
	}

	now := time.Now()
	claims := JoinClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.apiKey,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Name: identity,
		Video: VideoGrant{
			Room:     roomName,
			RoomJoin: true,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(t.apiSecret))
	if err != nil {
		return "", fmt.Errorf("auth.TokenIssuer.JoinToken: %w", err)
	}

	return signed, nil
}

// ValidateJoinToken parses and validates a join token. Mainly used by
// tests and local tooling; LiveKit itself is the authoritative verifier.
func (t *TokenIssuer) ValidateJoinToken(tokenString string) (*JoinClaims, error) {
	claims := &JoinClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(t.apiSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("auth.TokenIssuer.ValidateJoinToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.TokenIssuer.ValidateJoinToken: %w", ErrInvalidToken)
	}

	return claims, nil
}
