package authgin

import (
	"net/http"
	"time"

	"github.com/PaulFidika/casting/adapters/ginutil"
	core "github.com/PaulFidika/casting/core"
	"github.com/gin-gonic/gin"
)

const (
	principalKey = "auth.principal"
	outcomeKey   = "auth.outcome"
)

// Auth turns a core.Authorizer into per-route gin guards.
type Auth struct {
	gate   core.Authorizer
	events core.AuthEventLogger
	realm  string
}

// Option configures Auth.
type Option func(*Auth)

// WithEventLogger records every decision on l.
func WithEventLogger(l core.AuthEventLogger) Option {
	return func(a *Auth) {
		if l != nil {
			a.events = l
		}
	}
}

// WithRealm sets the realm advertised in WWW-Authenticate challenges.
func WithRealm(realm string) Option {
	return func(a *Auth) { a.realm = realm }
}

func NewAuth(gate core.Authorizer, opts ...Option) *Auth {
	a := &Auth{gate: gate, events: core.NopEventLogger{}, realm: "casting"}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Require aborts the request unless its bearer token grants scope. An empty
// scope admits any valid token. On success the principal is available through
// CurrentPrincipal and core.PrincipalFromContext.
func (a *Auth) Require(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.gate.Authorize(c.Request.Context(), c.GetHeader("Authorization"), scope)
		a.record(c, scope, p, err)
		if err != nil {
			ch := core.NewChallenge(err, a.realm)
			if ch.WWWAuthenticate != "" {
				c.Header("WWW-Authenticate", ch.WWWAuthenticate)
			}
			if ch.Status == http.StatusServiceUnavailable {
				c.Header("Retry-After", "5")
			}
			c.Set(outcomeKey, ch.Code)
			c.AbortWithStatusJSON(ch.Status, ch.Body())
			return
		}
		c.Set(principalKey, p)
		c.Set(outcomeKey, core.OutcomeAuthorized)
		c.Request = c.Request.WithContext(core.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func (a *Auth) record(c *gin.Context, scope string, p core.Principal, err error) {
	ev := core.AuthEvent{
		At:            time.Now().UTC(),
		RequestID:     ginutil.RequestID(c),
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		RequiredScope: scope,
		Subject:       p.Subject,
		Outcome:       core.OutcomeAuthorized,
	}
	if err != nil {
		ev.Outcome = core.KindOf(err).Code()
	}
	if ip := c.ClientIP(); ip != "" {
		ev.IP = &ip
	}
	if ua := c.Request.UserAgent(); ua != "" {
		ev.UserAgent = &ua
	}
	if lerr := a.events.LogDecision(c.Request.Context(), ev); lerr != nil {
		ginutil.Logger(c).WithError(lerr).Warn("audit event dropped")
	}
}
