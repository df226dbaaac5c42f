package oidckit_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	oidckit "github.com/PaulFidika/casting/oidc"
	memorystore "github.com/PaulFidika/casting/storage/memory"
	authtesting "github.com/PaulFidika/casting/testing"
)

func newFlow(t *testing.T, issuer *authtesting.TestIssuer) (*oidckit.LoginFlow, *memorystore.StateCache) {
	t.Helper()
	rp, err := oidckit.NewRelyingParty(context.Background(), oidckit.RPConfig{
		Issuer:       issuer.URL(),
		ClientID:     "client-1",
		ClientSecret: "secret",
		RedirectURL:  "https://casting.test/callback",
		Audience:     issuer.Audience(),
		HTTPClient:   issuer.Client(),
	})
	if err != nil {
		t.Fatalf("relying party: %v", err)
	}
	if rp.JWKSURL() != issuer.JWKSURL() {
		t.Fatalf("jwks_uri not discovered: %q", rp.JWKSURL())
	}
	states := memorystore.NewStateCache(0)
	t.Cleanup(func() { _ = states.Close() })
	return oidckit.NewLoginFlow(rp, states), states
}

func TestLoginFlow_BeginBuildsPKCERedirect(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	flow, states := newFlow(t, issuer)

	raw, err := flow.Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	if u.Path != authtesting.AuthorizePath {
		t.Fatalf("unexpected authorize path %q", u.Path)
	}
	q := u.Query()
	for key, want := range map[string]string{
		"client_id":             "client-1",
		"response_type":         "code",
		"redirect_uri":          "https://casting.test/callback",
		"audience":              "casting",
		"code_challenge_method": "S256",
	} {
		if got := q.Get(key); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
	if q.Get("code_challenge") == "" {
		t.Fatal("missing code_challenge")
	}
	data, ok, _ := states.Get(context.Background(), q.Get("state"))
	if !ok || data.Verifier == "" {
		t.Fatal("state with verifier must be stored")
	}
}

func TestLoginFlow_Complete(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	flow, _ := newFlow(t, issuer)
	ctx := context.Background()

	raw, _ := flow.Begin(ctx)
	u, _ := url.Parse(raw)
	state := u.Query().Get("state")

	tok, err := flow.Complete(ctx, state, issuer.IssueCode("auth0|user-1", "get:actors"))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if tok.AccessToken == "" || tok.TokenType != "Bearer" {
		t.Fatalf("unexpected token: %+v", tok)
	}

	if _, err := flow.Complete(ctx, state, issuer.IssueCode("auth0|user-1")); !errors.Is(err, oidckit.ErrUnknownState) {
		t.Fatalf("state must be single use, got %v", err)
	}
}

func TestLoginFlow_CompleteErrors(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	flow, _ := newFlow(t, issuer)
	ctx := context.Background()

	if _, err := flow.Complete(ctx, "s", ""); !errors.Is(err, oidckit.ErrMissingCode) {
		t.Fatalf("expected ErrMissingCode, got %v", err)
	}
	if _, err := flow.Complete(ctx, "never-issued", "code"); !errors.Is(err, oidckit.ErrUnknownState) {
		t.Fatalf("expected ErrUnknownState, got %v", err)
	}
	raw, _ := flow.Begin(ctx)
	u, _ := url.Parse(raw)
	if _, err := flow.Complete(ctx, u.Query().Get("state"), "bogus-code"); !errors.Is(err, oidckit.ErrExchange) {
		t.Fatalf("expected ErrExchange, got %v", err)
	}
}

func TestDiscoverJWKSURL(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()

	got, err := oidckit.DiscoverJWKSURL(context.Background(), issuer.URL(), issuer.Client())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if got != issuer.JWKSURL() {
		t.Fatalf("got %q, want %q", got, issuer.JWKSURL())
	}
	if _, err := oidckit.DiscoverJWKSURL(context.Background(), issuer.URL()+"other/", issuer.Client()); err == nil {
		t.Fatal("expected discovery against an unknown issuer to fail")
	}
}
