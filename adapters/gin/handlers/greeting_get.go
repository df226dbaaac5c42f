package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleGreetingGET handles GET /
func HandleGreetingGET() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome!")
	}
}
