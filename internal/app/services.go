package app

import (
	"context"
	"errors"

	"github.com/yungbote/devcontext-backend/internal/data/activity"
	"github.com/yungbote/devcontext-backend/internal/data/graph"
	"github.com/yungbote/devcontext-backend/internal/modules/contextengine"
	"github.com/yungbote/devcontext-backend/internal/modules/feedback"
	"github.com/yungbote/devcontext-backend/internal/modules/ingest"
	"github.com/yungbote/devcontext-backend/internal/modules/predict"
	"github.com/yungbote/devcontext-backend/internal/modules/query"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type Services struct {
	Graph    *graph.Store
	Mirror   *graph.Neo4jMirror
	Activity *activity.Tracker
	Vector   vectorBackend

	Query    *query.Router
	Context  *contextengine.Engine
	Predict  *predict.Analyzer
	Feedback *feedback.Service
	Ingest   *ingest.Ingester
}

func wireServices(ctx context.Context, log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	// Graph
	var graphOpts []graph.Option
	mirror := graph.NewNeo4jMirror(ctx, clients.Neo4j, log, graph.MirrorConfig{})
	if mirror != nil {
		graphOpts = append(graphOpts, graph.WithMirror(mirror))
	}
	store := graph.NewStore(log, graphOpts...)

	// Vector search
	vb, err := resolveVectorBackend(ctx, log)
	if err != nil {
		var be *VectorBootstrapError
		if errors.As(err, &be) && be.Fatal() {
			return Services{}, err
		}
		log.Warn("vector search disabled", "error", err)
	}

	// Shared per-developer state
	tracker := activity.NewTracker(log)

	fb := feedback.New(feedback.Deps{
		Log:         log,
		Feedback:    reposet.Feedback,
		Assessments: reposet.Assessments,
		Sessions:    reposet.Sessions,
	})

	ctxDeps := contextengine.Deps{
		Log:      log,
		Graph:    store,
		Search:   vb.Searcher,
		Activity: tracker,
		Weights:  fb,
	}
	if clients.Redis != nil {
		ctxDeps.Shared = contextengine.NewRedisCache(clients.Redis, "")
	}
	engine := contextengine.New(ctxDeps, contextengine.Config{
		CacheTTL:       cfg.ContextCacheTTL,
		CacheCapacity:  cfg.ContextCacheCapacity,
		SubtaskTimeout: cfg.ContextSubtaskTimeout,
		MinSimilarity:  cfg.VectorMinSimilarity,
	})

	router := query.NewRouter(log, store, vb.Searcher, query.Config{
		TopK:          cfg.VectorTopK,
		MinSimilarity: cfg.VectorMinSimilarity,
	})

	analyzer := predict.New(predict.Deps{
		Log:      log,
		Graph:    store,
		Activity: tracker,
	}, predict.Config{AnalysisTimeout: cfg.PredictSubtaskTimeout})

	filter, bad := ingest.NewFilter(cfg.IngestExcludeGlobs...)
	if len(bad) > 0 {
		log.Warn("ignoring invalid ingest exclude globs", "globs", bad)
	}

	return Services{
		Graph:    store,
		Mirror:   mirror,
		Activity: tracker,
		Vector:   vb,
		Query:    router,
		Context:  engine,
		Predict:  analyzer,
		Feedback: fb,
		Ingest:   ingest.New(log, store, filter),
	}, nil
}
