package db

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
)

// TokenVerifier checks a Firebase ID token and yields the owning user id.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (string, error)
}

type firebaseVerifier struct {
	auth *fbauth.Client
}

// NewTokenVerifier builds a verifier backed by Firebase Auth.
func NewTokenVerifier(ctx context.Context, client *Client) (TokenVerifier, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	authClient, err := client.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase auth: %w", err)
	}
	return &firebaseVerifier{auth: authClient}, nil
}

func (v *firebaseVerifier) Verify(ctx context.Context, idToken string) (string, error) {
	token, err := v.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", err
	}
	return token.UID, nil
}
