package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/devcontext-backend/internal/http/handlers"
	httpMW "github.com/yungbote/devcontext-backend/internal/http/middleware"
	"github.com/yungbote/devcontext-backend/internal/observability"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	Tracing     bool
	ServiceName string
	CORSOrigins []string

	HealthHandler   *httpH.HealthHandler
	QueryHandler    *httpH.QueryHandler
	ContextHandler  *httpH.ContextHandler
	PredictHandler  *httpH.PredictHandler
	FeedbackHandler *httpH.FeedbackHandler
	GraphHandler    *httpH.GraphHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		name := cfg.ServiceName
		if name == "" {
			name = "devcontext"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	r.GET("/metrics", func(c *gin.Context) {
		cfg.Metrics.WriteHTTP(c.Writer, c.Request)
	})

	api := r.Group("/api")
	{
		// Query router
		if cfg.QueryHandler != nil {
			api.POST("/query", cfg.QueryHandler.Query)
			api.GET("/query/explain", cfg.QueryHandler.Explain)
		}

		// Context assembly
		if cfg.ContextHandler != nil {
			api.POST("/context", cfg.ContextHandler.Assemble)
			api.GET("/context/stats", cfg.ContextHandler.Stats)
		}

		// Predictions
		if cfg.PredictHandler != nil {
			api.POST("/predict", cfg.PredictHandler.Predict)
			api.GET("/predict/stats", cfg.PredictHandler.Stats)
		}

		// Feedback loop
		if cfg.FeedbackHandler != nil {
			api.POST("/feedback", cfg.FeedbackHandler.Submit)
			api.POST("/feedback/assess/:session_id", cfg.FeedbackHandler.Assess)
		}

		// Graph inspection
		if cfg.GraphHandler != nil {
			api.GET("/graph/stats", cfg.GraphHandler.Stats)
			api.GET("/graph/samples", cfg.GraphHandler.Samples)
		}
	}

	return r
}
