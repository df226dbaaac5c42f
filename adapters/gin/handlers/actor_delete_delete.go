package handlers

import (
	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleActorDeleteDELETE handles DELETE /actors/:id
func HandleActorDeleteDELETE(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLWrite) {
			ginutil.TooMany(c)
			return
		}
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := store.DeleteActor(c.Request.Context(), id); err != nil {
			storeErr(c, err)
			return
		}
		ginutil.OK(c, gin.H{"deleted": id})
	}
}
