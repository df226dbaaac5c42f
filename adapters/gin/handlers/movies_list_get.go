package handlers

import (
	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleMoviesListGET handles GET /movies. An empty catalog is a 404.
func HandleMoviesListGET(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLRead) {
			ginutil.TooMany(c)
			return
		}
		movies, err := store.ListMovies(c.Request.Context())
		if err != nil {
			storeErr(c, err)
			return
		}
		if len(movies) == 0 {
			ginutil.NotFound(c, msgNotFound)
			return
		}
		ginutil.OK(c, gin.H{"movies": movies})
	}
}
