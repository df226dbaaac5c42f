package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Challenge is the HTTP rendering of an authorization failure: status code,
// RFC 6750 WWW-Authenticate value and the JSON error fields.
type Challenge struct {
	Status          int
	WWWAuthenticate string // empty when no challenge applies
	Code            string
	Description     string
	RequiredScope   string
}

// NewChallenge maps err onto a response. Errors other than *AuthError map to
// 500 with no challenge.
func NewChallenge(err error, realm string) Challenge {
	var ae *AuthError
	if !errors.As(err, &ae) {
		return Challenge{Status: http.StatusInternalServerError, Code: "internal_error", Description: "Authorization failed."}
	}
	ch := Challenge{Code: ae.Kind.Code(), Description: ae.Kind.Description()}
	switch ae.Kind {
	case MissingHeader:
		ch.Status = http.StatusUnauthorized
		ch.WWWAuthenticate = bearer(realm)
	case MalformedHeader:
		ch.Status = http.StatusUnauthorized
		ch.WWWAuthenticate = bearer(realm, "error", "invalid_request", "error_description", ch.Description)
	case InsufficientScope:
		ch.Status = http.StatusForbidden
		ch.RequiredScope = ae.RequiredScope
		ch.WWWAuthenticate = bearer(realm, "error", "insufficient_scope", "error_description", ch.Description, "scope", ae.RequiredScope)
	case AuthServiceUnavailable:
		ch.Status = http.StatusServiceUnavailable
	default:
		ch.Status = http.StatusUnauthorized
		ch.WWWAuthenticate = bearer(realm, "error", "invalid_token", "error_description", ch.Description)
	}
	return ch
}

// Body returns the JSON error envelope.
func (c Challenge) Body() map[string]any {
	body := map[string]any{
		"success":     false,
		"error":       c.Status,
		"code":        c.Code,
		"description": c.Description,
	}
	if c.RequiredScope != "" {
		body["required_scope"] = c.RequiredScope
	}
	return body
}

// bearer renders `Bearer realm="r", k1="v1", ...`; empty values are skipped.
func bearer(realm string, kv ...string) string {
	parts := make([]string, 0, 1+len(kv)/2)
	if realm != "" {
		parts = append(parts, fmt.Sprintf("realm=%q", realm))
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%q", kv[i], strings.ReplaceAll(kv[i+1], `"`, `'`)))
	}
	if len(parts) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(parts, ", ")
}
