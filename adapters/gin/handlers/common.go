package handlers

import (
	"errors"
	"strconv"

	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	"github.com/gin-gonic/gin"
)

const (
	msgNotFound      = "Resource not found"
	msgBadRequest    = "Bad Request"
	msgUnprocessable = "unprocessable"
)

// pathID parses the :id route parameter. A non-numeric id names no resource.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ginutil.NotFound(c, msgNotFound)
		return 0, false
	}
	return id, true
}

// storeErr renders a catalog error: ErrNotFound as 404, anything else as 422.
func storeErr(c *gin.Context, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		ginutil.NotFound(c, msgNotFound)
		return
	}
	ginutil.Logger(c).WithError(err).Error("catalog operation failed")
	ginutil.Unprocessable(c, msgUnprocessable)
}
