package jwtkit

import (
	"encoding/json"
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"
)

// VerifiedPayload is the decoded payload of a token whose signature checked
// out. Only Verify constructs one; ClaimValidator accepts nothing else.
type VerifiedPayload struct {
	claims payloadClaims
}

type payloadClaims struct {
	Issuer      string           `json:"iss"`
	Subject     string           `json:"sub"`
	Audience    jwt.ClaimStrings `json:"aud"`
	ExpiresAt   *jwt.NumericDate `json:"exp"`
	NotBefore   *jwt.NumericDate `json:"nbf"`
	IssuedAt    *jwt.NumericDate `json:"iat"`
	Scope       json.RawMessage  `json:"scope"`
	Permissions json.RawMessage  `json:"permissions"`
	Scp         json.RawMessage  `json:"scp"`
}

// Subject returns the sub claim of the verified payload.
func (p *VerifiedPayload) Subject() string { return p.claims.Subject }

// Verify checks the token signature against key using only the algorithm the
// token declares. The signed input is the original header and payload
// segments, never a re-encoding.
func Verify(tok *RawToken, key SigningKey) (*VerifiedPayload, error) {
	if tok == nil {
		return nil, ErrMalformed
	}
	if tok.nonCanonicalSig {
		return nil, fmt.Errorf("%w: non-canonical signature encoding", ErrInvalidSignature)
	}
	alg := tok.Header.Algorithm
	if !isSupported(alg) {
		return nil, fmt.Errorf("%w: unsupported alg %q", ErrInvalidSignature, alg)
	}
	if key.Algorithm != "" && key.Algorithm != alg {
		return nil, fmt.Errorf("%w: key %q is bound to %s", ErrInvalidSignature, key.ID, key.Algorithm)
	}
	method := jwt.GetSigningMethod(alg)
	if method == nil {
		return nil, fmt.Errorf("%w: no signing method for %s", ErrInvalidSignature, alg)
	}
	if err := method.Verify(tok.SigningInput(), tok.signature, key.Public); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var c payloadClaims
	if err := json.Unmarshal(tok.payload, &c); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	return &VerifiedPayload{claims: c}, nil
}

func isSupported(alg string) bool {
	for _, a := range supportedAlgs {
		if a == alg {
			return true
		}
	}
	return false
}
