package core

import (
	"errors"
	"fmt"
)

// Kind classifies why authorization failed. The set is closed.
type Kind int

const (
	MissingHeader Kind = iota + 1
	MalformedHeader
	MalformedToken
	UnknownSigningKey
	AuthServiceUnavailable
	InvalidSignature
	IssuerMismatch
	AudienceMismatch
	Expired
	NotYetValid
	InsufficientScope
)

var kindText = map[Kind]struct{ code, desc string }{
	MissingHeader:          {"authorization_header_missing", "Authorization header is expected."},
	MalformedHeader:        {"invalid_header", "Authorization header must be of the form 'Bearer <token>'."},
	MalformedToken:         {"invalid_token", "Token could not be decoded."},
	UnknownSigningKey:      {"unknown_signing_key", "Token was signed with an unknown key."},
	AuthServiceUnavailable: {"auth_service_unavailable", "Signing keys could not be retrieved; try again later."},
	InvalidSignature:       {"invalid_signature", "Token signature is invalid."},
	IssuerMismatch:         {"invalid_issuer", "Token issuer is not accepted."},
	AudienceMismatch:       {"invalid_audience", "Token audience is not accepted."},
	Expired:                {"token_expired", "Token expired."},
	NotYetValid:            {"token_not_yet_valid", "Token is not valid yet."},
	InsufficientScope:      {"insufficient_scope", "Token does not grant the required scope."},
}

// Code is the stable machine-readable identifier of the kind.
func (k Kind) Code() string {
	if t, ok := kindText[k]; ok {
		return t.code
	}
	return "unknown"
}

// Description is a caller-safe explanation of the kind.
func (k Kind) Description() string {
	if t, ok := kindText[k]; ok {
		return t.desc
	}
	return "Authorization failed."
}

func (k Kind) String() string { return k.Code() }

// Transient reports whether retrying the whole request may succeed.
func (k Kind) Transient() bool { return k == AuthServiceUnavailable }

// AuthError is the single error type returned by Gate.Authorize.
type AuthError struct {
	Kind          Kind
	RequiredScope string // set for InsufficientScope only
	Err           error  // underlying pipeline error, for logs
}

func (e *AuthError) Error() string {
	msg := "authorization: " + e.Kind.Code()
	if e.RequiredScope != "" {
		msg += fmt.Sprintf(" (requires %q)", e.RequiredScope)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any *AuthError of the same Kind, so the sentinels below work
// with errors.Is.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrMissingHeader          = &AuthError{Kind: MissingHeader}
	ErrMalformedHeader        = &AuthError{Kind: MalformedHeader}
	ErrMalformedToken         = &AuthError{Kind: MalformedToken}
	ErrUnknownSigningKey      = &AuthError{Kind: UnknownSigningKey}
	ErrAuthServiceUnavailable = &AuthError{Kind: AuthServiceUnavailable}
	ErrInvalidSignature       = &AuthError{Kind: InvalidSignature}
	ErrIssuerMismatch         = &AuthError{Kind: IssuerMismatch}
	ErrAudienceMismatch       = &AuthError{Kind: AudienceMismatch}
	ErrExpired                = &AuthError{Kind: Expired}
	ErrNotYetValid            = &AuthError{Kind: NotYetValid}
	ErrInsufficientScope      = &AuthError{Kind: InsufficientScope}
)

// KindOf returns the Kind carried by err, or 0 if err is not an *AuthError.
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
