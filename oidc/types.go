package oidckit

import (
	"context"
	"errors"
	"time"
)

// StateData is what the login redirect remembers until the callback.
type StateData struct {
	Verifier  string    `json:"verifier"` // PKCE code_verifier
	CreatedAt time.Time `json:"created_at"`
}

// StateCache stores pending login states keyed by the opaque state value.
// Take returns and removes a state atomically.
type StateCache interface {
	Put(ctx context.Context, state string, v StateData) error
	Get(ctx context.Context, state string) (StateData, bool, error)
	Take(ctx context.Context, state string) (StateData, bool, error)
	Del(ctx context.Context, state string) error
}

var (
	ErrMissingCode  = errors.New("oidc: authorization code not found")
	ErrUnknownState = errors.New("oidc: unknown or expired state")
	ErrExchange     = errors.New("oidc: failed to obtain access token")
)
