package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/devcontext-backend/internal/http/response"
	"github.com/yungbote/devcontext-backend/internal/modules/query"
)

type QueryRouter interface {
	Search(ctx context.Context, q string, opts query.Options) (*query.Response, error)
	Explain(q string) query.Explanation
}

type QueryHandler struct {
	router QueryRouter
}

func NewQueryHandler(router QueryRouter) *QueryHandler {
	return &QueryHandler{router: router}
}

type queryRequest struct {
	Query     string `json:"query"`
	UseGraph  *bool  `json:"use_graph"`
	UseVector *bool  `json:"use_vector"`
}

// POST /api/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "malformed_input", err)
		return
	}
	opts := query.DefaultOptions()
	if req.UseGraph != nil {
		opts.UseGraph = *req.UseGraph
	}
	if req.UseVector != nil {
		opts.UseVector = *req.UseVector
	}
	res, err := h.router.Search(c.Request.Context(), req.Query, opts)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/query/explain?q=
func (h *QueryHandler) Explain(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.RespondError(c, http.StatusBadRequest, "malformed_input", errMissing("q"))
		return
	}
	response.RespondOK(c, h.router.Explain(q))
}
