package handlers

import (
	"strings"

	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

// HandleMovieCreatePOST handles POST /movies
func HandleMovieCreatePOST(store catalog.Store, rl ginutil.RateLimiter) gin.HandlerFunc {
	type createReq struct {
		Title       string `json:"title"`
		ReleaseDate string `json:"release_date"` // ISO 8601
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
		title := strings.TrimSpace(req.Title)
		if title == "" || strings.TrimSpace(req.ReleaseDate) == "" {
			ginutil.BadRequest(c, msgBadRequest)
			return
		}
		date, err := catalog.ParseReleaseDate(req.ReleaseDate)
		if err != nil {
			ginutil.BadRequest(c, err.Error())
			return
		}
		movie, err := store.CreateMovie(c.Request.Context(), catalog.Movie{Title: title, ReleaseDate: date})
		if err != nil {
			storeErr(c, err)
			return
		}
		ginutil.OK(c, gin.H{"movie": movie})
	}
}
