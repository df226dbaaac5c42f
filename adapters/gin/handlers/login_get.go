package handlers

import (
	"net/http"

	"github.com/PaulFidika/casting/adapters/ginutil"
	oidckit "github.com/PaulFidika/casting/oidc"
	"github.com/gin-gonic/gin"
)

// HandleLoginGET handles GET /login by redirecting to the provider.
func HandleLoginGET(flow *oidckit.LoginFlow, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLLogin) {
			ginutil.TooMany(c)
			return
		}
		target, err := flow.Begin(c.Request.Context())
		if err != nil {
			ginutil.Logger(c).WithError(err).Error("login state not stored")
			ginutil.ServerErr(c, "login_unavailable")
			return
		}
		c.Redirect(http.StatusFound, target)
	}
}
