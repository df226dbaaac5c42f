package jwtkit

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Signer mints asymmetric JWTs. The service itself only verifies; signers
// back the test issuer and local tooling.
type Signer interface {
	// Algorithm returns the JWS algorithm (e.g., RS256, ES256).
	Algorithm() string
	// KID returns the key id placed in the header.
	KID() string
	// PublicKey returns the verification key.
	PublicKey() crypto.PublicKey
	// Sign creates a signed JWT with the provided claims.
	Sign(claims jwt.MapClaims) (string, error)
}

// RSASigner signs RS256 tokens with an in-memory key.
type RSASigner struct {
	key *rsa.PrivateKey
	kid string
}

func NewRSASigner(bits int, kid string) (*RSASigner, error) {
	if bits == 0 {
		bits = 2048
	}
	k, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &RSASigner{key: k, kid: kid}, nil
}

func (s *RSASigner) Algorithm() string           { return jwt.SigningMethodRS256.Alg() }
func (s *RSASigner) KID() string                 { return s.kid }
func (s *RSASigner) PublicKey() crypto.PublicKey { return &s.key.PublicKey }

func (s *RSASigner) Sign(claims jwt.MapClaims) (string, error) {
	return signWithKID(jwt.SigningMethodRS256, s.kid, claims, s.key)
}

// ECSigner signs ES256 tokens with a P-256 key.
type ECSigner struct {
	key *ecdsa.PrivateKey
	kid string
}

func NewECSigner(kid string) (*ECSigner, error) {
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &ECSigner{key: k, kid: kid}, nil
}

func (s *ECSigner) Algorithm() string           { return jwt.SigningMethodES256.Alg() }
func (s *ECSigner) KID() string                 { return s.kid }
func (s *ECSigner) PublicKey() crypto.PublicKey { return &s.key.PublicKey }

func (s *ECSigner) Sign(claims jwt.MapClaims) (string, error) {
	return signWithKID(jwt.SigningMethodES256, s.kid, claims, s.key)
}

func signWithKID(m jwt.SigningMethod, kid string, claims jwt.MapClaims, key any) (string, error) {
	token := jwt.NewWithClaims(m, claims)
	token.Header["kid"] = kid
	return token.SignedString(key)
}

// AccessClaims builds the registered claims of an access token.
func AccessClaims(issuer, subject string, audiences []string, ttl time.Duration) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss": issuer,
		"sub": subject,
		"aud": audiences,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
}
