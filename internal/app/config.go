package app

import (
	"time"

	"github.com/yungbote/devcontext-backend/internal/platform/envutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	CORSOrigins []string

	ContextCacheTTL       time.Duration
	ContextCacheCapacity  int
	ContextSubtaskTimeout time.Duration
	PredictSubtaskTimeout time.Duration
	VectorMinSimilarity   float64
	VectorTopK            int

	IngestRepoPath     string
	IngestLimit        int
	IngestExcludeGlobs []string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        envutil.String("PORT", "8080", log),
		ServiceName: envutil.String("SERVICE_NAME", "devcontext", log),
		Environment: envutil.String("APP_ENV", "development", log),
		CORSOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil, log),

		ContextCacheTTL:       envutil.Duration("CONTEXT_CACHE_TTL_SECONDS", 5*time.Minute, time.Second, log),
		ContextCacheCapacity:  envutil.Int("CONTEXT_CACHE_CAPACITY", 100, log),
		ContextSubtaskTimeout: envutil.Duration("CONTEXT_SUBTASK_TIMEOUT_MS", 5*time.Second, time.Millisecond, log),
		PredictSubtaskTimeout: envutil.Duration("PREDICT_SUBTASK_TIMEOUT_MS", 5*time.Second, time.Millisecond, log),
		VectorMinSimilarity:   envutil.Float("VECTOR_MIN_SIMILARITY", 0.3, log),
		VectorTopK:            envutil.Int("VECTOR_TOP_K", 5, log),

		IngestRepoPath:     envutil.String("INGEST_REPO_PATH", "", log),
		IngestLimit:        envutil.Int("INGEST_LIMIT", 0, log),
		IngestExcludeGlobs: envutil.List("INGEST_EXCLUDE_GLOBS", nil, log),
	}
}
