// Package api exposes the pipeline over HTTP: health, run status and
// manual run triggers.
package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(coord Coordinator) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	RegisterPipelineRoutes(r, coord)
	return r
}
