package oidckit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// LoginFlow drives the authorization-code + PKCE redirect pair.
type LoginFlow struct {
	RP     *RelyingParty
	States StateCache
	now    func() time.Time
}

func NewLoginFlow(rp *RelyingParty, states StateCache) *LoginFlow {
	return &LoginFlow{RP: rp, States: states, now: time.Now}
}

// Begin stores a fresh state and returns the provider authorization URL.
func (f *LoginFlow) Begin(ctx context.Context) (string, error) {
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	if err := f.States.Put(ctx, state, StateData{Verifier: verifier, CreatedAt: f.now()}); err != nil {
		return "", err
	}
	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if f.RP.audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", f.RP.audience))
	}
	return f.RP.oauthConfig.AuthCodeURL(state, opts...), nil
}
