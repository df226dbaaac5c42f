package jwtkit

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Supported asymmetric JWS algorithms. Symmetric and "none" are never accepted.
var supportedAlgs = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// SupportedAlgorithms returns the algorithms a Parser can be configured to accept.
func SupportedAlgorithms() []string { return append([]string(nil), supportedAlgs...) }

// DecodedHeader is the JOSE header read before the signature is checked.
// Nothing in it is trusted yet.
type DecodedHeader struct {
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
	Type      string `json:"typ,omitempty"`
}

// RawToken is the structural decomposition of a compact JWS.
type RawToken struct {
	Raw       string
	Header    DecodedHeader
	segments  [3]string
	signature []byte
	payload   []byte

	nonCanonicalSig bool
}

// SigningInput returns the exact bytes the issuer signed, as received.
func (t *RawToken) SigningInput() string { return t.segments[0] + "." + t.segments[1] }

// HeaderSegment, PayloadSegment and SignatureSegment return the encoded parts.
func (t *RawToken) HeaderSegment() string    { return t.segments[0] }
func (t *RawToken) PayloadSegment() string   { return t.segments[1] }
func (t *RawToken) SignatureSegment() string { return t.segments[2] }

// Parser splits bearer tokens and enforces the algorithm allow-list.
type Parser struct {
	allowed map[string]struct{}
}

// NewParser builds a parser accepting the given algorithms. Entries outside
// SupportedAlgorithms are ignored; an empty list accepts all supported algorithms.
func NewParser(algs ...string) *Parser {
	supported := make(map[string]struct{}, len(supportedAlgs))
	for _, a := range supportedAlgs {
		supported[a] = struct{}{}
	}
	allowed := make(map[string]struct{}, len(supportedAlgs))
	for _, a := range algs {
		if _, ok := supported[a]; ok {
			allowed[a] = struct{}{}
		}
	}
	if len(allowed) == 0 {
		allowed = supported
	}
	return &Parser{allowed: allowed}
}

// Allows reports whether alg is on this parser's allow-list.
func (p *Parser) Allows(alg string) bool {
	_, ok := p.allowed[alg]
	return ok
}

// Parse decomposes raw into a RawToken without interpreting the payload.
func (p *Parser) Parse(raw string) (*RawToken, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: want 3 segments, got %d", ErrMalformed, len(parts))
	}
	tok := &RawToken{Raw: raw}
	var decoded [3][]byte
	for i, seg := range parts {
		if seg == "" {
			return nil, fmt.Errorf("%w: segment %d is empty", ErrMalformed, i)
		}
		b, err := decodeSegment(seg)
		if err != nil && i == 2 {
			// Alphabet-valid but non-canonical signatures fail in Verify.
			if b, err = decodeLenient(seg); err == nil {
				tok.nonCanonicalSig = true
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrMalformed, i, err)
		}
		tok.segments[i] = seg
		decoded[i] = b
	}
	if err := json.Unmarshal(decoded[0], &tok.Header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if tok.Header.Algorithm == "" {
		return nil, fmt.Errorf("%w: header missing alg", ErrMalformed)
	}
	if tok.Header.KeyID == "" {
		return nil, fmt.Errorf("%w: header missing kid", ErrMalformed)
	}
	if !p.Allows(tok.Header.Algorithm) {
		return nil, fmt.Errorf("%w: %q", ErrDisallowedAlgorithm, tok.Header.Algorithm)
	}
	tok.payload = decoded[1]
	tok.signature = decoded[2]
	return tok, nil
}

// decodeSegment accepts canonical base64url with or without trailing padding.
// Unused low bits in the final character must be zero.
func decodeSegment(seg string) ([]byte, error) {
	trimmed := strings.TrimRight(seg, "=")
	if trimmed == "" {
		return nil, errors.New("segment is only padding")
	}
	return base64.RawURLEncoding.Strict().DecodeString(trimmed)
}

func decodeLenient(seg string) ([]byte, error) {
	trimmed := strings.TrimRight(seg, "=")
	if trimmed == "" {
		return nil, errors.New("segment is only padding")
	}
	return base64.RawURLEncoding.DecodeString(trimmed)
}
