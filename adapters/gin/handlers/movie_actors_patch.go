package handlers

import (
	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleMovieActorsPATCH handles PATCH /movies/:id/actors. The body's
// actor_ids replace the cast; unknown ids are ignored and a missing list
// clears it.
func HandleMovieActorsPATCH(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	type linkReq struct {
		ActorIDs []int64 `json:"actor_ids"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLWrite) {
			ginutil.TooMany(c)
			return
		}
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req linkReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, msgBadRequest)
			return
		}
		movie, err := store.SetMovieActors(c.Request.Context(), id, req.ActorIDs)
		if err != nil {
			storeErr(c, err)
			return
		}
		ginutil.OK(c, gin.H{"movie": movie})
	}
}
