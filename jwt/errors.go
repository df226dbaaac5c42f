package jwtkit

import "errors"

// Pipeline stage errors. Callers classify with errors.Is; wrapped detail is
// for logs only and never carries key material.
var (
	// ErrMalformed reports a token that does not decompose into a usable JWS.
	ErrMalformed = errors.New("jwt: malformed token")
	// ErrDisallowedAlgorithm reports an alg outside the verifier's allow-list.
	// It is a kind of ErrMalformed.
	ErrDisallowedAlgorithm = &wrapped{msg: "jwt: disallowed algorithm", parent: ErrMalformed}

	ErrKeyNotFound       = errors.New("jwt: signing key not found")
	ErrKeySetUnavailable = errors.New("jwt: signing key set unavailable")

	ErrInvalidSignature = errors.New("jwt: invalid signature")

	ErrIssuerMismatch   = errors.New("jwt: issuer mismatch")
	ErrAudienceMismatch = errors.New("jwt: audience mismatch")
	ErrExpired          = errors.New("jwt: token expired")
	ErrNotYetValid      = errors.New("jwt: token not yet valid")
)

// wrapped is a sentinel that also matches its parent sentinel.
type wrapped struct {
	msg    string
	parent error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.parent }
