package handlers

import (
	"strings"

	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleActorUpdatePATCH handles PATCH /actors/:id. Empty or zero fields are
// left unchanged.
func HandleActorUpdatePATCH(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	type updateReq struct {
		Name   string `json:"name"`
		Age    int    `json:"age"`
		Gender string `json:"gender"`
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
		var req updateReq
		if err := c.ShouldBindJSON(&req); err != nil || req.Age < 0 {
			ginutil.BadRequest(c, msgBadRequest)
			return
		}
		var patch catalog.ActorPatch
		if v := strings.TrimSpace(req.Name); v != "" {
			patch.Name = &v
		}
		if req.Age > 0 {
			patch.Age = &req.Age
		}
		if v := strings.TrimSpace(req.Gender); v != "" {
			patch.Gender = &v
		}
		actor, err := store.UpdateActor(c.Request.Context(), id, patch)
		if err != nil {
			storeErr(c, err)
			return
		}
		ginutil.OK(c, gin.H{"actor": actor})
	}
}
