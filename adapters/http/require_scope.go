// Package authhttp guards plain net/http handlers with the authorization gate.
package authhttp

import (
	"encoding/json"
	"net/http"

	core "github.com/PaulFidika/casting/core"
)

// RequireScope returns middleware that rejects requests whose bearer token does
// not grant scope. An empty scope admits any valid token. The principal is
// stored on the request context for core.PrincipalFromContext.
func RequireScope(gate core.Authorizer, scope, realm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := gate.Authorize(r.Context(), r.Header.Get("Authorization"), scope)
			if err != nil {
				writeChallenge(w, core.NewChallenge(err, realm))
				return
			}
			next.ServeHTTP(w, r.WithContext(core.WithPrincipal(r.Context(), p)))
		})
	}
}

func writeChallenge(w http.ResponseWriter, ch core.Challenge) {
	if ch.WWWAuthenticate != "" {
		w.Header().Set("WWW-Authenticate", ch.WWWAuthenticate)
	}
	if ch.Status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(ch.Status)
	_ = json.NewEncoder(w).Encode(ch.Body())
}
