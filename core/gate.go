package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtkit "github.com/PaulFidika/casting/jwt"
)

// Authorizer is the contract the routing layer depends on.
type Authorizer interface {
	Authorize(ctx context.Context, header, requiredScope string) (Principal, error)
}

// Gate runs the bearer-token pipeline: header, parse, key lookup, signature,
// claims, scope. It holds no per-request state and is safe for concurrent use.
type Gate struct {
	issuer    string
	audience  string
	parser    *jwtkit.Parser
	keys      jwtkit.KeyResolver
	validator jwtkit.ClaimValidator
	now       func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGate builds a gate over keys. cfg supplies issuer, audience, the
// algorithm allow-list and leeway; cfg.JWKSURL is not consulted here.
func NewGate(cfg AcceptConfig, keys jwtkit.KeyResolver, opts ...GateOption) (*Gate, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("gate: issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("gate: audience is required")
	}
	if keys == nil {
		return nil, errors.New("gate: key resolver is required")
	}
	g := &Gate{
		issuer:    cfg.Issuer,
		audience:  cfg.Audience,
		parser:    jwtkit.NewParser(cfg.Algorithms...),
		keys:      keys,
		validator: jwtkit.ClaimValidator{Leeway: cfg.Leeway},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// NewRemoteGate builds the key-set provider for cfg.JWKSURL and a gate over it.
func NewRemoteGate(cfg AcceptConfig, keyOpts []jwtkit.RemoteKeySetOption, opts ...GateOption) (*Gate, *jwtkit.RemoteKeySet, error) {
	keyOpts = append([]jwtkit.RemoteKeySetOption{jwtkit.WithFetchTimeout(cfg.FetchTimeout)}, keyOpts...)
	keys, err := jwtkit.NewRemoteKeySet(cfg.JWKSURL, keyOpts...)
	if err != nil {
		return nil, nil, err
	}
	g, err := NewGate(cfg, keys, opts...)
	if err != nil {
		return nil, nil, err
	}
	return g, keys, nil
}

// Authorize validates the raw Authorization header value and checks that the
// token grants requiredScope. An empty requiredScope only requires a valid
// token. Every failure is an *AuthError.
func (g *Gate) Authorize(ctx context.Context, header, requiredScope string) (Principal, error) {
	if header == "" {
		return Principal{}, &AuthError{Kind: MissingHeader}
	}
	raw, err := bearerToken(header)
	if err != nil {
		return Principal{}, &AuthError{Kind: MalformedHeader, Err: err}
	}

	tok, err := g.parser.Parse(raw)
	if err != nil {
		return Principal{}, &AuthError{Kind: MalformedToken, Err: err}
	}

	key, err := g.keys.Resolve(ctx, tok.Header.KeyID)
	if err != nil {
		return Principal{}, &AuthError{Kind: classify(err), Err: err}
	}

	payload, err := jwtkit.Verify(tok, key)
	if err != nil {
		return Principal{}, &AuthError{Kind: classify(err), Err: err}
	}

	claims, err := g.validator.Validate(payload, g.issuer, g.audience, g.now())
	if err != nil {
		return Principal{}, &AuthError{Kind: classify(err), Err: err}
	}

	if requiredScope != "" && !claims.Scopes.Has(requiredScope) {
		return Principal{}, &AuthError{Kind: InsufficientScope, RequiredScope: requiredScope}
	}
	return Principal{Subject: claims.Subject, Scopes: claims.Scopes.Sorted()}, nil
}

func bearerToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", fmt.Errorf("expected 2 parts, got %d", len(parts))
	}
	if parts[0] != "Bearer" {
		return "", errors.New("scheme is not Bearer")
	}
	if parts[1] == "" {
		return "", errors.New("empty token")
	}
	return parts[1], nil
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, jwtkit.ErrKeySetUnavailable):
		return AuthServiceUnavailable
	case errors.Is(err, jwtkit.ErrKeyNotFound):
		return UnknownSigningKey
	case errors.Is(err, jwtkit.ErrInvalidSignature):
		return InvalidSignature
	case errors.Is(err, jwtkit.ErrIssuerMismatch):
		return IssuerMismatch
	case errors.Is(err, jwtkit.ErrAudienceMismatch):
		return AudienceMismatch
	case errors.Is(err, jwtkit.ErrExpired):
		return Expired
	case errors.Is(err, jwtkit.ErrNotYetValid):
		return NotYetValid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return AuthServiceUnavailable
	default:
		return MalformedToken
	}
}
