package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/devcontext-backend/internal/http"
	httpH "github.com/yungbote/devcontext-backend/internal/http/handlers"
	"github.com/yungbote/devcontext-backend/internal/observability"
	"github.com/yungbote/devcontext-backend/internal/platform/envutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Query    *httpH.QueryHandler
	Context  *httpH.ContextHandler
	Predict  *httpH.PredictHandler
	Feedback *httpH.FeedbackHandler
	Graph    *httpH.GraphHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Query:    httpH.NewQueryHandler(services.Query),
		Context:  httpH.NewContextHandler(log, services.Context, services.Feedback),
		Predict:  httpH.NewPredictHandler(services.Predict),
		Feedback: httpH.NewFeedbackHandler(services.Feedback),
		Graph:    httpH.NewGraphHandler(services.Graph),
	}
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		Metrics:         observability.Current(),
		Tracing:         envutil.Bool("OTEL_ENABLED", false, log),
		ServiceName:     cfg.ServiceName,
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   handlers.Health,
		QueryHandler:    handlers.Query,
		ContextHandler:  handlers.Context,
		PredictHandler:  handlers.Predict,
		FeedbackHandler: handlers.Feedback,
		GraphHandler:    handlers.Graph,
	})
}
