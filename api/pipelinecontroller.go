package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"medscribe/pipeline"
	"medscribe/types"
)

// Coordinator is the slice of the run coordinator the API needs.
type Coordinator interface {
	Start(kw types.Keyword) (string, error)
	Status() types.StatusResponse
	Busy() bool
}

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterPipelineRoutes registers run status and trigger endpoints.
func RegisterPipelineRoutes(r *gin.Engine, coord Coordinator) {
	g := r.Group("/api")
	g.GET("/status", handleStatus(coord))
	g.POST("/start", handleStart(coord))
}

// handleStatus returns the in-flight run's snapshot (or the idle state).
func handleStatus(coord Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, coord.Status())
	}
}

// StartRequest is the POST /api/start payload.
type StartRequest struct {
	Keyword  string  `json:"keyword" binding:"required"`
	Priority float64 `json:"priority"`
}

// handleStart triggers a run asynchronously. Returns 409 while another run
// is in flight.
func handleStart(coord Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(req.Keyword) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "keyword must not be empty"})
			return
		}

		runID, err := coord.Start(types.Keyword{Text: req.Keyword, Priority: req.Priority})
		if errors.Is(err, pipeline.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status": "started",
			"run_id": runID,
		})
	}
}
