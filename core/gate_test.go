package core_test

import (
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	core "github.com/PaulFidika/casting/core"
	jwtkit "github.com/PaulFidika/casting/jwt"
	authtesting "github.com/PaulFidika/casting/testing"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func newGate(t *testing.T, issuer *authtesting.TestIssuer, cfg core.AcceptConfig, opts ...core.GateOption) (*core.Gate, *jwtkit.RemoteKeySet) {
	t.Helper()
	if cfg.Issuer == "" {
		cfg.Issuer = issuer.URL()
	}
	if cfg.Audience == "" {
		cfg.Audience = issuer.Audience()
	}
	cfg.JWKSURL = issuer.JWKSURL()
	logger, _ := logtest.NewNullLogger()
	g, keys, err := core.NewRemoteGate(cfg, []jwtkit.RemoteKeySetOption{
		jwtkit.WithHTTPClient(issuer.Client()),
		jwtkit.WithLogger(logger),
	}, opts...)
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	return g, keys
}

func expectKind(t *testing.T, err error, want core.Kind) *core.AuthError {
	t.Helper()
	var ae *core.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AuthError of kind %s, got %v", want, err)
	}
	if ae.Kind != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, ae.Kind, err)
	}
	return ae
}

func TestNewGate_RequiresConfig(t *testing.T) {
	if _, err := core.NewGate(core.AcceptConfig{Audience: "a"}, nil); err == nil {
		t.Fatal("expected missing issuer to fail")
	}
	if _, err := core.NewGate(core.AcceptConfig{Issuer: "i"}, nil); err == nil {
		t.Fatal("expected missing audience to fail")
	}
	if _, err := core.NewGate(core.AcceptConfig{Issuer: "i", Audience: "a"}, nil); err == nil {
		t.Fatal("expected missing resolver to fail")
	}
}

// A token granting several scopes, one of them required.
func TestAuthorize_GrantedScope(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	token := issuer.CreateToken("auth0|user-1", "get:actors", "get:movies")
	p, err := g.Authorize(context.Background(), "Bearer "+token, "get:actors")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if p.Subject != "auth0|user-1" {
		t.Fatalf("unexpected subject %q", p.Subject)
	}
	if !reflect.DeepEqual(p.Scopes, []string{"get:actors", "get:movies"}) {
		t.Fatalf("unexpected scopes %v", p.Scopes)
	}
	if !p.Has("get:movies") || p.Has("post:movies") {
		t.Fatalf("Has is inconsistent with %v", p.Scopes)
	}
}

// A valid token that lacks the required scope.
func TestAuthorize_InsufficientScope(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	token := issuer.CreateToken("auth0|user-1", "get:actors")
	_, err := g.Authorize(context.Background(), "Bearer "+token, "post:movies")
	ae := expectKind(t, err, core.InsufficientScope)
	if ae.RequiredScope != "post:movies" {
		t.Fatalf("expected required scope post:movies, got %q", ae.RequiredScope)
	}
	if strings.Contains(err.Error(), "get:actors") {
		t.Fatalf("granted scopes leaked into error: %v", err)
	}
	if !errors.Is(err, core.ErrInsufficientScope) {
		t.Fatal("errors.Is must match the sentinel")
	}
	if ae.Kind.Transient() {
		t.Fatal("insufficient scope is not transient")
	}
}

// Missing header and headers that are not "Bearer <token>".
func TestAuthorize_HeaderShape(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})
	token := issuer.CreateToken("auth0|user-1", "get:actors")

	if _, err := g.Authorize(context.Background(), "", "get:actors"); !errors.Is(err, core.ErrMissingHeader) {
		t.Fatalf("expected MissingHeader, got %v", err)
	}
	for _, h := range []string{
		"Token abc.def.ghi",
		"bearer " + token,
		"BEARER " + token,
		"Bearer",
		"Bearer ",
		"Bearer  " + token,
		"Bearer " + token + " extra",
		token,
	} {
		_, err := g.Authorize(context.Background(), h, "get:actors")
		expectKind(t, err, core.MalformedHeader)
	}
	if issuer.Fetches() != 0 {
		t.Fatal("header failures must not touch the key set")
	}
}

func TestAuthorize_MalformedToken(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	for _, tok := range []string{"abc", "abc.def", "a.b.c.d", "!!.??.**"} {
		_, err := g.Authorize(context.Background(), "Bearer "+tok, "get:actors")
		expectKind(t, err, core.MalformedToken)
	}
	none := issuer.CreateToken("auth0|user-1", "get:actors")
	parts := strings.Split(none, ".")
	parts[0] = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","kid":"test-key-1"}`))
	_, err := g.Authorize(context.Background(), "Bearer "+strings.Join(parts, "."), "get:actors")
	expectKind(t, err, core.MalformedToken)
}

func TestAuthorize_UnknownSigningKey(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	rogue, err := jwtkit.NewRSASigner(2048, "rogue-key")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	token := authtesting.SignWith(rogue, issuer.Claims("auth0|user-1", "get:actors"))
	_, err = g.Authorize(context.Background(), "Bearer "+token, "get:actors")
	expectKind(t, err, core.UnknownSigningKey)
	if got := issuer.Fetches(); got != 1 {
		t.Fatalf("expected at most one refresh, got %d fetches", got)
	}

	// Warm cache: the miss still costs exactly one refresh.
	_, _ = g.Authorize(context.Background(), "Bearer "+issuer.CreateToken("auth0|user-1"), "")
	before := issuer.Fetches()
	_, err = g.Authorize(context.Background(), "Bearer "+token, "get:actors")
	expectKind(t, err, core.UnknownSigningKey)
	if got := issuer.Fetches() - before; got != 1 {
		t.Fatalf("expected one refresh per miss, got %d", got)
	}
}

func TestAuthorize_RotatedKey(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	if _, err := g.Authorize(context.Background(), "Bearer "+issuer.CreateToken("u"), ""); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	issuer.Rotate()
	if _, err := g.Authorize(context.Background(), "Bearer "+issuer.CreateToken("u"), ""); err != nil {
		t.Fatalf("authorize after rotation: %v", err)
	}
}

func TestAuthorize_FlippedSignatureBit(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	// A clock far in the future would make claim validation fail with
	// Expired; InvalidSignature proves it never ran.
	g, _ := newGate(t, issuer, core.AcceptConfig{}, core.WithClock(func() time.Time {
		return time.Now().Add(48 * time.Hour)
	}))

	token := issuer.CreateToken("auth0|user-1", "get:actors")
	parts := strings.Split(token, ".")
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	sig[len(sig)/2] ^= 0x10
	parts[2] = base64.RawURLEncoding.EncodeToString(sig)
	_, err = g.Authorize(context.Background(), "Bearer "+strings.Join(parts, "."), "get:actors")
	expectKind(t, err, core.InvalidSignature)
}

func TestAuthorize_FlippedSignatureSegmentBit(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	token := issuer.CreateToken("auth0|user-1", "get:actors")
	parts := strings.Split(token, ".")
	sig := parts[2]
	idx := strings.IndexByte(alphabet, sig[len(sig)-1])

	// Every bit carried by the last character, including the unused ones.
	for bit := 0; bit < 6; bit++ {
		parts[2] = sig[:len(sig)-1] + string(alphabet[idx^(1<<bit)])
		_, err := g.Authorize(context.Background(), "Bearer "+strings.Join(parts, "."), "get:actors")
		expectKind(t, err, core.InvalidSignature)
	}
	// The same flip applied to the character's ASCII code.
	for _, mask := range []byte{0x01, 0x02, 0x04} {
		c := sig[len(sig)-1] ^ mask
		if strings.IndexByte(alphabet, c) < 0 {
			continue
		}
		parts[2] = sig[:len(sig)-1] + string(c)
		_, err := g.Authorize(context.Background(), "Bearer "+strings.Join(parts, "."), "get:actors")
		expectKind(t, err, core.InvalidSignature)
	}
}

func TestAuthorize_Expired(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()

	g, _ := newGate(t, issuer, core.AcceptConfig{})
	_, err := g.Authorize(context.Background(), "Bearer "+issuer.CreateExpiredToken("u", "get:actors"), "get:actors")
	expectKind(t, err, core.Expired)

	token := issuer.CreateToken("u", "get:actors")
	later, _ := newGate(t, issuer, core.AcceptConfig{}, core.WithClock(func() time.Time {
		return time.Now().Add(2 * time.Hour)
	}))
	_, err = later.Authorize(context.Background(), "Bearer "+token, "get:actors")
	if !errors.Is(err, core.ErrExpired) {
		t.Fatalf("expected Expired against the supplied clock, got %v", err)
	}
}

func TestAuthorize_ClaimFailures(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	ctx := context.Background()

	g, _ := newGate(t, issuer, core.AcceptConfig{})
	cases := []struct {
		name  string
		extra map[string]any
		want  core.Kind
	}{
		{"issuer", map[string]any{"iss": "https://someone-else.test/"}, core.IssuerMismatch},
		{"audience", map[string]any{"aud": []string{"other-api"}}, core.AudienceMismatch},
		{"not before", map[string]any{"nbf": time.Now().Add(time.Hour).Unix()}, core.NotYetValid},
		{"missing exp", map[string]any{"exp": nil}, core.Expired},
	}
	for _, tc := range cases {
		token := issuer.CreateTokenWithClaims("u", tc.extra)
		_, err := g.Authorize(ctx, "Bearer "+token, "")
		if core.KindOf(err) != tc.want {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.want, err)
		}
	}

	strict, _ := newGate(t, issuer, core.AcceptConfig{Audience: "another-service"})
	_, err := strict.Authorize(ctx, "Bearer "+issuer.CreateToken("u"), "")
	expectKind(t, err, core.AudienceMismatch)
}

func TestAuthorize_EmptyRequiredScope(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	p, err := g.Authorize(context.Background(), "Bearer "+issuer.CreateToken("u"), "")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if len(p.Scopes) != 0 {
		t.Fatalf("expected no scopes, got %v", p.Scopes)
	}
}

func TestAuthorize_ScopeStringClaim(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	token := issuer.CreateTokenWithClaims("u", map[string]any{"scope": "openid post:movies"})
	p, err := g.Authorize(context.Background(), "Bearer "+token, "post:movies")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !p.Has("openid") {
		t.Fatalf("expected scope string to be split, got %v", p.Scopes)
	}
}

func TestAuthorize_Idempotent(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	header := "Bearer " + issuer.CreateToken("auth0|user-1", "get:movies", "get:actors")
	p1, err := g.Authorize(context.Background(), header, "get:movies")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	p2, err := g.Authorize(context.Background(), header, "get:movies")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Fatalf("principals differ: %+v vs %+v", p1, p2)
	}
	if issuer.Fetches() != 1 {
		t.Fatalf("expected the cached set to be reused, got %d fetches", issuer.Fetches())
	}
}

// A key-set fetch that outlives the fetch timeout.
func TestAuthorize_KeySetTimeout(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	issuer.SetDelay(time.Second)
	g, _ := newGate(t, issuer, core.AcceptConfig{FetchTimeout: 50 * time.Millisecond})

	_, err := g.Authorize(context.Background(), "Bearer "+issuer.CreateToken("u", "get:actors"), "get:actors")
	ae := expectKind(t, err, core.AuthServiceUnavailable)
	if !ae.Kind.Transient() {
		t.Fatal("AuthServiceUnavailable must be transient")
	}
}

func TestAuthorize_KeySetDown(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	issuer.FailWith(502)
	g, _ := newGate(t, issuer, core.AcceptConfig{})

	_, err := g.Authorize(context.Background(), "Bearer "+issuer.CreateToken("u"), "")
	expectKind(t, err, core.AuthServiceUnavailable)

	issuer.FailWith(0)
	if _, err := g.Authorize(context.Background(), "Bearer "+issuer.CreateToken("u"), ""); err != nil {
		t.Fatalf("expected recovery once the key set is reachable: %v", err)
	}
}

func TestAuthorize_ConcurrentFirstUse(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	issuer.SetDelay(150 * time.Millisecond)
	g, _ := newGate(t, issuer, core.AcceptConfig{})
	header := "Bearer " + issuer.CreateToken("u", "get:actors")

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Authorize(context.Background(), header, "get:actors"); err != nil {
				t.Errorf("authorize: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()
	if got := issuer.Fetches(); got != 1 {
		t.Fatalf("expected one key-set fetch, got %d", got)
	}
}

func TestKind_CodesAreDistinct(t *testing.T) {
	seen := map[string]core.Kind{}
	for k := core.MissingHeader; k <= core.InsufficientScope; k++ {
		code := k.Code()
		if code == "unknown" || k.Description() == "" {
			t.Fatalf("kind %d has no text", k)
		}
		if prev, dup := seen[code]; dup {
			t.Fatalf("kinds %d and %d share code %q", prev, k, code)
		}
		seen[code] = k
		if k.Transient() != (k == core.AuthServiceUnavailable) {
			t.Fatalf("unexpected Transient for %s", k)
		}
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := core.WithPrincipal(context.Background(), core.Principal{Subject: "s", Scopes: []string{"a", "b"}})
	p, ok := core.PrincipalFromContext(ctx)
	if !ok || p.Subject != "s" || !p.Has("b") {
		t.Fatalf("principal not round-tripped: %+v", p)
	}
	if _, ok := core.PrincipalFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry a principal")
	}
}

func TestAuthorize_ES256Key(t *testing.T) {
	issuer := authtesting.NewTestIssuer()
	defer issuer.Close()
	ec, err := jwtkit.NewECSigner("ec-key-1")
	if err != nil {
		t.Fatalf("ec signer: %v", err)
	}
	issuer.Publish(ec)
	g, _ := newGate(t, issuer, core.AcceptConfig{Algorithms: []string{"ES256"}})

	token := authtesting.SignWith(ec, issuer.Claims("auth0|ec", "get:movies"))
	p, err := g.Authorize(context.Background(), "Bearer "+token, "get:movies")
	if err != nil {
		t.Fatalf("authorize ES256: %v", err)
	}
	if p.Subject != "auth0|ec" {
		t.Fatalf("unexpected subject %q", p.Subject)
	}

	// RS256 is outside this gate's allow-list.
	_, err = g.Authorize(context.Background(), "Bearer "+issuer.CreateToken("u", "get:movies"), "get:movies")
	expectKind(t, err, core.MalformedToken)
}
