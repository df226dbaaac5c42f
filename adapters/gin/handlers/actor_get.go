package handlers

import (
	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleActorGET handles GET /actors/:id
func HandleActorGET(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLRead) {
			ginutil.TooMany(c)
			return
		}
		id, ok := pathID(c)
		if !ok {
			return
		}
		actor, err := store.GetActor(c.Request.Context(), id)
		if err != nil {
			storeErr(c, err)
			return
		}
		ginutil.OK(c, gin.H{"actor": actor})
	}
}
