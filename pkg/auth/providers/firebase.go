package providers

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"github.com/cbodonnell/econempire/pkg/game/types"
	"google.golang.org/api/option"
)

var _ AuthProvider = &FirebaseAuthProvider{}

type FirebaseAuthProvider struct {
	// app is the Firebase app
	app *firebase.App
	// auth is the Firebase Auth client
	auth *auth.Client
}

// NewFirebaseAuthProvider creates a new FirebaseAuthProvider
func NewFirebaseAuthProvider(ctx context.Context, projectID string, apiKey string) (*FirebaseAuthProvider, error) {
	opt := option.WithAPIKey(apiKey)
	cfg := &firebase.Config{
		ProjectID: projectID,
	}
	app, err := firebase.NewApp(ctx, cfg, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing app: %v", err)
	}

	auth, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Auth client: %v", err)
	}

	return &FirebaseAuthProvider{
		app:  app,
		auth: auth,
	}, nil
}

// VerifyToken verifies a Firebase ID token. The game role and an optional
// country come from the custom claims "role" and "country".
func (p *FirebaseAuthProvider) VerifyToken(ctx context.Context, idToken string) (*TokenClaims, error) {
	token, err := p.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, &ErrAuthentication{Err: err}
	}

	return claimsFromMap(token.UID, token.Claims), nil
}

func claimsFromMap(uid string, m map[string]interface{}) *TokenClaims {
	claims := &TokenClaims{
		UID: uid,
	}
	if v, ok := m["name"].(string); ok {
		claims.Name = v
	}
	if v, ok := m["role"].(string); ok {
		claims.Role = types.Role(v)
	}
	if v, ok := m["country"].(string); ok {
		claims.Country = types.Country(v)
	}
	return claims
}
