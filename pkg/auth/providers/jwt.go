package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/cbodonnell/econempire/pkg/game/types"
	"github.com/golang-jwt/jwt/v5"
)

var _ AuthProvider = &JWTAuthProvider{}

// JWTAuthProvider verifies HS256 tokens signed with a shared secret.
type JWTAuthProvider struct {
	secret []byte
	issuer string
}

type gameClaims struct {
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Country string `json:"country,omitempty"`
	jwt.RegisteredClaims
}

func NewJWTAuthProvider(secret string, issuer string) *JWTAuthProvider {
	return &JWTAuthProvider{
		secret: []byte(secret),
		issuer: issuer,
	}
}

func (p *JWTAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	claims := &gameClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, &ErrAuthentication{Err: err}
	}
	if claims.Subject == "" {
		return nil, &ErrAuthentication{Err: fmt.Errorf("token has no subject")}
	}

	return &TokenClaims{
		UID:     claims.Subject,
		Name:    claims.Name,
		Role:    types.Role(claims.Role),
		Country: types.Country(claims.Country),
	}, nil
}

// IssueToken signs a token for the identity that expires after ttl.
func (p *JWTAuthProvider) IssueToken(identity types.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &gameClaims{
		Name:    identity.Name,
		Role:    string(identity.Role),
		Country: string(identity.Country),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.PlayerID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}
	return token, nil
}
