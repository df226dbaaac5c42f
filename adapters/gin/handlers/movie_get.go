package handlers

import (
	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleMovieGET handles GET /movies/:id
func HandleMovieGET(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLRead) {
			ginutil.TooMany(c)
			return
		}
		id, ok := pathID(c)
		if !ok {
			return
		}
		movie, err := store.GetMovie(c.Request.Context(), id)
		if err != nil {
			storeErr(c, err)
			return
		}
		ginutil.OK(c, gin.H{"movie": movie})
	}
}
