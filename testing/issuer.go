// Package testing provides a mock identity provider for tests of services
// that use the casting authorization gate. It serves a JWKS document over TLS
// and signs access tokens that verify against it.
//
// Example usage:
//
//	issuer := testing.NewTestIssuer()
//	defer issuer.Close()
//
//	keys, _ := jwtkit.NewRemoteKeySet(issuer.JWKSURL(), jwtkit.WithHTTPClient(issuer.Client()))
//	token := issuer.CreateToken("auth0|user-1", "get:actors")
package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	jwtkit "github.com/PaulFidika/casting/jwt"
	"github.com/google/uuid"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Endpoint paths served by TestIssuer.
const (
	JWKSPath      = "/.well-known/jwks.json"
	AuthorizePath = "/authorize"
	TokenPath     = "/oauth/token"
)

// TestIssuer runs a TLS server publishing a JWKS and signs tokens whose
// signatures validate against it. Failure modes can be injected to exercise
// key-set unavailability.
type TestIssuer struct {
	server   *httptest.Server
	audience string

	mu        sync.Mutex
	active    jwtkit.Signer
	published []jwtkit.Signer
	status    int
	body      []byte
	delay     time.Duration
	nextKID   int
	codes     map[string]jwt.MapClaims

	fetches atomic.Int64
}

// NewTestIssuer creates an issuer with audience "casting".
func NewTestIssuer() *TestIssuer {
	return NewTestIssuerWithAudience("casting")
}

// NewTestIssuerWithAudience creates an issuer that stamps the given audience.
func NewTestIssuerWithAudience(audience string) *TestIssuer {
	ti := &TestIssuer{audience: audience, codes: map[string]jwt.MapClaims{}}
	signer := ti.newSigner()
	ti.active = signer
	ti.published = []jwtkit.Signer{signer}

	mux := http.NewServeMux()
	mux.HandleFunc(JWKSPath, ti.handleJWKS)
	mux.HandleFunc("/.well-known/openid-configuration", ti.handleDiscovery)
	mux.HandleFunc(TokenPath, ti.handleToken)
	ti.server = httptest.NewTLSServer(mux)
	return ti
}

func (ti *TestIssuer) newSigner() jwtkit.Signer {
	ti.nextKID++
	signer, err := jwtkit.NewRSASigner(2048, fmt.Sprintf("test-key-%d", ti.nextKID))
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	return signer
}

// URL returns the issuer identifier, with a trailing slash as Auth0 issues it.
func (ti *TestIssuer) URL() string { return ti.server.URL + "/" }

// JWKSURL returns the https URL of the key set.
func (ti *TestIssuer) JWKSURL() string { return ti.server.URL + JWKSPath }

// Client returns an HTTP client that trusts the issuer's TLS certificate.
func (ti *TestIssuer) Client() *http.Client { return ti.server.Client() }

// Audience returns the audience stamped into tokens.
func (ti *TestIssuer) Audience() string { return ti.audience }

// Fetches returns how many times the JWKS endpoint was requested.
func (ti *TestIssuer) Fetches() int64 { return ti.fetches.Load() }

// Signer returns the active signer.
func (ti *TestIssuer) Signer() jwtkit.Signer {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.active
}

// Close shuts down the server.
func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

// Rotate publishes a new key next to the existing ones and makes it active.
func (ti *TestIssuer) Rotate() jwtkit.Signer {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	s := ti.newSigner()
	ti.published = append(ti.published, s)
	ti.active = s
	return s
}

// Publish adds a signer to the served key set.
func (ti *TestIssuer) Publish(s jwtkit.Signer) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.published = append(ti.published, s)
}

// FailWith makes the JWKS endpoint answer with status; 0 restores normal service.
func (ti *TestIssuer) FailWith(status int) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.status = status
}

// ServeBody replaces the JWKS document with body; nil restores it.
func (ti *TestIssuer) ServeBody(body []byte) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.body = body
}

// SetDelay holds each JWKS response for d before answering.
func (ti *TestIssuer) SetDelay(d time.Duration) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.delay = d
}

func (ti *TestIssuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	ti.fetches.Add(1)

	ti.mu.Lock()
	status, body, delay := ti.status, ti.body, ti.delay
	published := append([]jwtkit.Signer(nil), ti.published...)
	ti.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if body != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
		return
	}

	keys := make([]jwk.Key, 0, len(published))
	for _, s := range published {
		k, err := jwtkit.PublicJWK(s.PublicKey(), s.KID(), s.Algorithm())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		keys = append(keys, k)
	}
	set, err := jwtkit.NewJWKS(keys...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jwtkit.ServeJWKS(w, r, set)
}

// Claims returns valid access-token claims for subject carrying permissions
// as an array, the way Auth0 issues RBAC tokens.
func (ti *TestIssuer) Claims(subject string, permissions ...string) jwt.MapClaims {
	claims := jwtkit.AccessClaims(ti.URL(), subject, []string{ti.audience}, time.Hour)
	claims["permissions"] = append([]string{}, permissions...)
	return claims
}

// CreateToken signs a token for subject with the given permissions.
func (ti *TestIssuer) CreateToken(subject string, permissions ...string) string {
	return ti.Sign(ti.Claims(subject, permissions...))
}

// CreateTokenWithClaims signs a token whose standard claims are overridden or
// extended by extra. A nil value deletes the claim.
func (ti *TestIssuer) CreateTokenWithClaims(subject string, extra map[string]any) string {
	claims := ti.Claims(subject)
	for k, v := range extra {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return ti.Sign(claims)
}

// CreateExpiredToken signs a token that expired an hour ago.
func (ti *TestIssuer) CreateExpiredToken(subject string, permissions ...string) string {
	claims := ti.Claims(subject, permissions...)
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	return ti.Sign(claims)
}

// Sign signs claims with the active signer.
func (ti *TestIssuer) Sign(claims jwt.MapClaims) string {
	return SignWith(ti.Signer(), claims)
}

// SignWith signs claims with s, panicking on failure.
func SignWith(s jwtkit.Signer, claims jwt.MapClaims) string {
	token, err := s.Sign(claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// IssueCode registers a single-use authorization code that the token endpoint
// redeems for an access token carrying permissions.
func (ti *TestIssuer) IssueCode(subject string, permissions ...string) string {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	code := uuid.NewString()
	ti.codes[code] = ti.Claims(subject, permissions...)
	return code
}

func (ti *TestIssuer) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                                ti.URL(),
		"authorization_endpoint":                ti.server.URL + AuthorizePath,
		"token_endpoint":                        ti.server.URL + TokenPath,
		"jwks_uri":                              ti.JWKSURL(),
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (ti *TestIssuer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	tokenError := func(code string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		tokenError("unsupported_grant_type")
		return
	}
	if r.PostForm.Get("code_verifier") == "" {
		tokenError("invalid_request")
		return
	}
	ti.mu.Lock()
	claims, ok := ti.codes[r.PostForm.Get("code")]
	delete(ti.codes, r.PostForm.Get("code"))
	ti.mu.Unlock()
	if !ok {
		tokenError("invalid_grant")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": ti.Sign(claims),
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}
