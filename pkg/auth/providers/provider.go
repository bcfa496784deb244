package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/cbodonnell/econempire/pkg/game/types"
)

type AuthProvider interface {
	VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error)
}

type TokenClaims struct {
	UID     string        `json:"uid"`
	Name    string        `json:"name,omitempty"`
	Role    types.Role    `json:"role,omitempty"`
	Country types.Country `json:"country,omitempty"`
}

// Identity converts verified claims to a game identity. Unknown roles are
// treated as players and unknown countries are dropped.
func (c *TokenClaims) Identity() types.Identity {
	identity := types.Identity{
		PlayerID: c.UID,
		Name:     c.Name,
		Role:     c.Role,
		Country:  c.Country,
	}
	if !identity.Role.Valid() {
		identity.Role = types.RolePlayer
	}
	if !identity.Country.Valid() {
		identity.Country = ""
	}
	if identity.Name == "" {
		identity.Name = c.UID
	}
	return identity
}

// ErrAuthentication is returned when a token cannot be verified.
type ErrAuthentication struct {
	Err error
}

func (e *ErrAuthentication) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *ErrAuthentication) Unwrap() error { return e.Err }

func (e *ErrAuthentication) Code() string { return "authentication" }

func IsAuthentication(err error) bool {
	var e *ErrAuthentication
	return errors.As(err, &e)
}
