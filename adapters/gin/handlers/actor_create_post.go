package handlers

import (
	"strings"

	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleActorCreatePOST handles POST /actors
func HandleActorCreatePOST(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	type createReq struct {
		Name   string `json:"name"`
		Age    int    `json:"age"`
		Gender string `json:"gender"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLWrite) {
			ginutil.TooMany(c)
			return
		}
		var req createReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, msgBadRequest)
			return
		}
		name, gender := strings.TrimSpace(req.Name), strings.TrimSpace(req.Gender)
		if name == "" || gender == "" || req.Age <= 0 {
			ginutil.BadRequest(c, msgBadRequest)
			return
		}
		actor, err := store.CreateActor(c.Request.Context(), catalog.Actor{Name: name, Age: req.Age, Gender: gender})
		if err != nil {
			storeErr(c, err)
			return
		}
		ginutil.OK(c, gin.H{"actor": actor})
	}
}
