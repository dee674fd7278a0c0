package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/http/response"
	"github.com/yungbote/devcontext-backend/internal/modules/contextengine"
	"github.com/yungbote/devcontext-backend/internal/platform/ctxutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type ContextAssembler interface {
	Assemble(ctx context.Context, ev types.FocusEvent) (*contextengine.Package, error)
	UsageStats() contextengine.UsageStats
}

// SessionRecorder remembers which sources a context session carried so later
// feedback can be attributed to them.
type SessionRecorder interface {
	SaveSession(ctx context.Context, sessionID, developerID, filePath string, sources []string, confidence float64) error
}

type ContextHandler struct {
	log      *logger.Logger
	engine   ContextAssembler
	sessions SessionRecorder
}

func NewContextHandler(log *logger.Logger, engine ContextAssembler, sessions SessionRecorder) *ContextHandler {
	return &ContextHandler{
		log:      log.With("handler", "ContextHandler"),
		engine:   engine,
		sessions: sessions,
	}
}

type contextResponse struct {
	SessionID string                 `json:"session_id"`
	Context   *contextengine.Package `json:"context"`
}

// POST /api/context
func (h *ContextHandler) Assemble(c *gin.Context) {
	ev, ok := bindFocusEvent(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	pkg, err := h.engine.Assemble(ctx, ev)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if ev.SessionID == "" {
		ev.SessionID = uuid.New().String()
	}
	if h.sessions != nil {
		if err := h.sessions.SaveSession(ctx, ev.SessionID, ev.DeveloperID, ev.FilePath, pkg.Sources(), pkg.ConfidenceScore); err != nil {
			h.log.Warn("context session not saved", append([]interface{}{"error", err}, ctxutil.LogFields(ctx)...)...)
		}
	}
	response.RespondOK(c, contextResponse{SessionID: ev.SessionID, Context: pkg})
}

// GET /api/context/stats
func (h *ContextHandler) Stats(c *gin.Context) {
	response.RespondOK(c, h.engine.UsageStats())
}

// bindFocusEvent rejects a missing file path before any work starts. The
// developer id falls back to the X-Developer-Id header.
func bindFocusEvent(c *gin.Context) (types.FocusEvent, bool) {
	var ev types.FocusEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.RespondError(c, http.StatusBadRequest, "malformed_input", err)
		return ev, false
	}
	ev.FilePath = strings.TrimSpace(ev.FilePath)
	if ev.FilePath == "" {
		response.RespondError(c, http.StatusBadRequest, "malformed_input", errMissing("file_path"))
		return ev, false
	}
	if ev.DeveloperID == "" {
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			ev.DeveloperID = td.DeveloperID
		}
	}
	return ev, true
}
