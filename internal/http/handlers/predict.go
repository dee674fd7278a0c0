package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/http/response"
	"github.com/yungbote/devcontext-backend/internal/modules/predict"
)

type Predictor interface {
	Predict(ctx context.Context, ev types.FocusEvent) (*predict.Prediction, error)
	Stats() predict.Stats
}

type PredictHandler struct {
	predictor Predictor
}

func NewPredictHandler(predictor Predictor) *PredictHandler {
	return &PredictHandler{predictor: predictor}
}

// POST /api/predict
func (h *PredictHandler) Predict(c *gin.Context) {
	ev, ok := bindFocusEvent(c)
	if !ok {
		return
	}
	p, err := h.predictor.Predict(c.Request.Context(), ev)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, p)
}

// GET /api/predict/stats
func (h *PredictHandler) Stats(c *gin.Context) {
	response.RespondOK(c, h.predictor.Stats())
}
