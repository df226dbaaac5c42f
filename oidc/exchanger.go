package oidckit

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Complete consumes state and exchanges code for tokens using the stored PKCE
// verifier. A state is single use.
func (f *LoginFlow) Complete(ctx context.Context, state, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, ErrMissingCode
	}
	if state == "" {
		return nil, ErrUnknownState
	}
	data, ok, err := f.States.Take(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownState
	}

	tok, err := f.RP.oauthConfig.Exchange(f.RP.context(ctx), code, oauth2.VerifierOption(data.Verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	return tok, nil
}
