package jwtkit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ClaimSet is the trusted view of a token after signature and claim checks.
type ClaimSet struct {
	Issuer    string
	Audience  []string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore *time.Time
	Scopes    ScopeSet
}

// ScopeSet is an unordered set of granted scope strings.
type ScopeSet map[string]struct{}

// NewScopeSet builds a set from the given scopes, dropping empty entries.
func NewScopeSet(scopes ...string) ScopeSet {
	s := make(ScopeSet, len(scopes))
	for _, v := range scopes {
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

// Has reports whether scope was granted.
func (s ScopeSet) Has(scope string) bool {
	_, ok := s[scope]
	return ok
}

// Sorted returns the scopes in lexical order.
func (s ScopeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ClaimValidator checks the registered claims of a verified payload.
// Leeway widens the exp and nbf comparisons; zero means exact.
type ClaimValidator struct {
	Leeway time.Duration
}

// Validate checks issuer, audience, exp, nbf and sub in that order and stops
// at the first failure. Scopes are read from "scope", "permissions" and "scp"; when
// more than one is present the union is granted.
func (v ClaimValidator) Validate(p *VerifiedPayload, issuer, audience string, now time.Time) (*ClaimSet, error) {
	if p == nil {
		return nil, ErrMalformed
	}
	c := p.claims
	if c.Issuer != issuer {
		return nil, fmt.Errorf("%w: got %q", ErrIssuerMismatch, c.Issuer)
	}
	if !containsString(c.Audience, audience) {
		return nil, ErrAudienceMismatch
	}
	if c.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrExpired)
	}
	exp := c.ExpiresAt.Time
	if !now.Before(exp.Add(v.Leeway)) {
		return nil, fmt.Errorf("%w: at %s", ErrExpired, exp.UTC().Format(time.RFC3339))
	}
	var nbf *time.Time
	if c.NotBefore != nil {
		t := c.NotBefore.Time
		if now.Add(v.Leeway).Before(t) {
			return nil, fmt.Errorf("%w: until %s", ErrNotYetValid, t.UTC().Format(time.RFC3339))
		}
		nbf = &t
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrMalformed)
	}

	scopes := NewScopeSet()
	for _, raw := range []json.RawMessage{c.Scope, c.Permissions, c.Scp} {
		for _, s := range scopeValues(raw) {
			scopes[s] = struct{}{}
		}
	}

	cs := &ClaimSet{
		Issuer:    c.Issuer,
		Audience:  append([]string(nil), c.Audience...),
		Subject:   c.Subject,
		ExpiresAt: exp,
		NotBefore: nbf,
		Scopes:    scopes,
	}
	if c.IssuedAt != nil {
		cs.IssuedAt = c.IssuedAt.Time
	}
	return cs, nil
}

// scopeValues accepts a space-delimited string or an array of strings.
// Any other shape grants nothing.
func scopeValues(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.Fields(s)
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if str, ok := e.(string); ok && str != "" {
			out = append(out, str)
		}
	}
	return out
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
