package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/http/response"
	"github.com/yungbote/devcontext-backend/internal/modules/feedback"
)

type FeedbackService interface {
	Submit(ctx context.Context, in feedback.SubmitInput) (*types.Feedback, error)
	Assess(ctx context.Context, sessionID string) (*types.QualityAssessment, error)
}

type FeedbackHandler struct {
	feedback FeedbackService
}

func NewFeedbackHandler(svc FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: svc}
}

// POST /api/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var in feedback.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "malformed_input", err)
		return
	}
	fb, err := h.feedback.Submit(c.Request.Context(), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feedback": fb})
}

// POST /api/feedback/assess/:session_id
func (h *FeedbackHandler) Assess(c *gin.Context) {
	qa, err := h.feedback.Assess(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assessment": qa})
}
