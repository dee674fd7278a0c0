package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/devcontext-backend/internal/data/graph"
	"github.com/yungbote/devcontext-backend/internal/http/response"
)

type GraphInspector interface {
	Stats() graph.Stats
	SampleQueries() []string
}

type GraphHandler struct {
	graph GraphInspector
}

func NewGraphHandler(g GraphInspector) *GraphHandler {
	return &GraphHandler{graph: g}
}

// GET /api/graph/stats
func (h *GraphHandler) Stats(c *gin.Context) {
	response.RespondOK(c, h.graph.Stats())
}

// GET /api/graph/samples
func (h *GraphHandler) Samples(c *gin.Context) {
	response.RespondOK(c, gin.H{"queries": h.graph.SampleQueries()})
}
