package handlers

import (
	"errors"
	"net/http"

	"github.com/PaulFidika/casting/adapters/ginutil"
	oidckit "github.com/PaulFidika/casting/oidc"
	"github.com/gin-gonic/gin"
)

// HandleCallbackGET handles GET /callback: it redeems the authorization code
// and returns the access token to the caller.
func HandleCallbackGET(flow *oidckit.LoginFlow, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLLogin) {
			ginutil.TooMany(c)
			return
		}
		if e := c.Query("error"); e != "" {
			ginutil.BadRequest(c, e)
			return
		}
		tok, err := flow.Complete(c.Request.Context(), c.Query("state"), c.Query("code"))
		switch {
		case errors.Is(err, oidckit.ErrMissingCode):
			ginutil.BadRequest(c, "Authorization code not found")
			return
		case errors.Is(err, oidckit.ErrUnknownState):
			ginutil.BadRequest(c, "invalid_state")
			return
		case err != nil:
			ginutil.Logger(c).WithError(err).Warn("code exchange failed")
			ginutil.BadRequest(c, "Failed to obtain access token")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"access_token": tok.AccessToken,
			"token_type":   tok.Type(),
			"expires_at":   tok.Expiry,
		})
	}
}
