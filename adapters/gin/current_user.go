package authgin

import (
	core "github.com/PaulFidika/casting/core"
	"github.com/gin-gonic/gin"
)

// PrincipalView is the JSON shape of the caller returned by /me.
type PrincipalView struct {
	Subject string   `json:"sub"`
	Scopes  []string `json:"scopes"`

	// Source is "gate" when Require ran, "none" otherwise.
	Source string `json:"source"`
}

// CurrentPrincipal returns the principal stored by Require.
func CurrentPrincipal(c *gin.Context) (core.Principal, bool) {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(core.Principal); ok {
			return p, true
		}
	}
	return core.PrincipalFromContext(c.Request.Context())
}

// CurrentUser returns a view of the caller for handlers.
func CurrentUser(c *gin.Context) (PrincipalView, bool) {
	p, ok := CurrentPrincipal(c)
	if !ok || p.Subject == "" {
		return PrincipalView{Scopes: []string{}, Source: "none"}, false
	}
	scopes := p.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return PrincipalView{Subject: p.Subject, Scopes: scopes, Source: "gate"}, true
}

// AuthOutcome returns the decision recorded by Require: core.OutcomeAuthorized,
// a failure Kind code, or "" when no guard ran.
func AuthOutcome(c *gin.Context) string { return c.GetString(outcomeKey) }
