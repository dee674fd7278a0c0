package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/devcontext-backend/internal/http"
	"github.com/yungbote/devcontext-backend/internal/observability"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services

	server       *http.Server
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	observability.Init(log)
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})

	clientset, err := wireClients(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(clientset.DB, log)

	serviceset, err := wireServices(context.Background(), log, cfg, clientset, reposet)
	if err != nil {
		clientset.Close(context.Background())
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset)
	router := wireRouter(log, cfg, handlerset)

	return &App{
		Log:          log,
		DB:           clientset.DB,
		Router:       router,
		Cfg:          cfg,
		Clients:      clientset,
		Repos:        reposet,
		Services:     serviceset,
		server:       http.NewServer(router),
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background collectors and, when INGEST_REPO_PATH is
// set, loads the repository history into the in-memory graph.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if m := observability.Current(); m != nil {
		m.StartGraphCollector(ctx, a.graphSnapshot)
		if a.Clients.Redis != nil {
			m.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}

	if a.Cfg.IngestRepoPath != "" {
		go func() {
			res, err := a.Services.Ingest.IngestRepo(ctx, a.Cfg.IngestRepoPath, a.Cfg.IngestLimit)
			if err != nil {
				a.Log.Error("startup ingest failed", "repo", a.Cfg.IngestRepoPath, "error", err)
				return
			}
			a.Log.Info("startup ingest complete", "repo", a.Cfg.IngestRepoPath, "commits", res.Commits, "files", res.Files)
		}()
	}
}

func (a *App) graphSnapshot() observability.GraphSnapshot {
	st := a.Services.Graph.Stats()
	snap := observability.GraphSnapshot{
		NodesByKind: make(map[string]int, len(st.NodesByKind)),
		EdgesByType: make(map[string]int, len(st.EdgesByType)),
	}
	for k, n := range st.NodesByKind {
		snap.NodesByKind[string(k)] = n
	}
	for r, n := range st.EdgesByType {
		snap.EdgesByType[string(r)] = n
	}
	if a.Services.Mirror != nil {
		snap.Dropped = a.Services.Mirror.Dropped()
	}
	return snap
}

// Run serves HTTP until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("HTTP server listening", "addr", addr)
		errCh <- a.server.Run(addr)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	}
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Services.Graph.Close(ctx); err != nil && a.Log != nil {
		a.Log.Warn("graph mirror flush failed", "error", err)
	}
	a.Clients.Close(ctx)
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
