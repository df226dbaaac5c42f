package authgin

import (
	"net/http"

	"github.com/PaulFidika/casting/adapters/gin/handlers"
	"github.com/PaulFidika/casting/adapters/ginutil"
	"github.com/PaulFidika/casting/catalog"
	oidckit "github.com/PaulFidika/casting/oidc"
	"github.com/gin-gonic/gin"
)

// Scopes required by the catalog endpoints.
const (
	ScopeGetActors    = "get:actors"
	ScopePostActors   = "post:actors"
	ScopePatchActors  = "patch:actors"
	ScopeDeleteActors = "delete:actors"
	ScopeGetMovies    = "get:movies"
	ScopePostMovies   = "post:movies"
	ScopePatchMovies  = "patch:movies"
	ScopeDeleteMovies = "delete:movies"
)

// Deps are the collaborators the routes need. Login is optional.
type Deps struct {
	Store   catalog.Store
	Auth    *Auth
	Limiter ginutil.RateLimiter
	Login   *oidckit.LoginFlow
}

// Register mounts the public, login and catalog routes on r.
func Register(r gin.IRouter, d Deps) {
	rl, a := d.Limiter, d.Auth

	r.GET("/", handlers.HandleGreetingGET())
	if d.Login != nil {
		r.GET("/login", handlers.HandleLoginGET(d.Login, rl))
		r.GET("/callback", handlers.HandleCallbackGET(d.Login, rl))
	}
	r.GET("/me", a.Require(""), func(c *gin.Context) {
		v, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "user": v})
	})

	r.GET("/actors", a.Require(ScopeGetActors), handlers.HandleActorsListGET(d.Store, rl))
	r.GET("/actors/:id", a.Require(ScopeGetActors), handlers.HandleActorGET(d.Store, rl))
	r.POST("/actors", a.Require(ScopePostActors), handlers.HandleActorCreatePOST(d.Store, rl))
	r.PATCH("/actors/:id", a.Require(ScopePatchActors), handlers.HandleActorUpdatePATCH(d.Store, rl))
	r.DELETE("/actors/:id", a.Require(ScopeDeleteActors), handlers.HandleActorDeleteDELETE(d.Store, rl))

	r.GET("/movies", a.Require(ScopeGetMovies), handlers.HandleMoviesListGET(d.Store, rl))
	r.GET("/movies/:id", a.Require(ScopeGetMovies), handlers.HandleMovieGET(d.Store, rl))
	r.POST("/movies", a.Require(ScopePostMovies), handlers.HandleMovieCreatePOST(d.Store, rl))
	r.PATCH("/movies/:id", a.Require(ScopePatchMovies), handlers.HandleMovieUpdatePATCH(d.Store, rl))
	r.DELETE("/movies/:id", a.Require(ScopeDeleteMovies), handlers.HandleMovieDeleteDELETE(d.Store, rl))
	r.PATCH("/movies/:id/actors", a.Require(ScopePatchMovies), handlers.HandleMovieActorsPATCH(d.Store, rl))
}

// NotFoundHandler renders unknown routes in the JSON envelope.
func NotFoundHandler(c *gin.Context) { ginutil.NotFound(c, "Resource not found") }

// MethodNotAllowedHandler renders 405 in the JSON envelope.
func MethodNotAllowedHandler(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": http.StatusMethodNotAllowed, "message": "Method not allowed."})
}
