package handlers

import (
	"strings"

	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleMovieUpdatePATCH handles PATCH /movies/:id. Empty fields are left
// unchanged.
func HandleMovieUpdatePATCH(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	type updateReq struct {
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"`
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
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, msgBadRequest)
			return
		}
		var patch catalog.MoviePatch
		if v := strings.TrimSpace(req.Title); v != "" {
			patch.Title = &v
		}
		if strings.TrimSpace(req.ReleaseDate) != "" {
			date, err := catalog.ParseReleaseDate(req.ReleaseDate)
			if err != nil {
				ginutil.BadRequest(c, err.Error())
				return
			}
			patch.ReleaseDate = &date
		}
		movie, err := store.UpdateMovie(c.Request.Context(), id, patch)
		if err != nil {
			storeErr(c, err)
			return
		}
		ginutil.OK(c, gin.H{"movie": movie})
	}
}
