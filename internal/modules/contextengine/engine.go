package contextengine

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/devcontext-backend/internal/data/activity"
	"github.com/yungbote/devcontext-backend/internal/data/graph"
	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/modules/search"
	"github.com/yungbote/devcontext-backend/internal/observability"
	"github.com/yungbote/devcontext-backend/internal/pkg/bulkhead"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
	"github.com/yungbote/devcontext-backend/internal/pkg/strutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

// GraphReader is the part of the graph store used for relationships.
type GraphReader interface {
	HasFile(path string) bool
	FindFileHistory(filePath string) []graph.FileChange
	CommitFiles(hash string) []types.File
	CommitFeatures(hash string) []types.Feature
}

type Config struct {
	CacheTTL       time.Duration
	CacheCapacity  int
	SubtaskTimeout time.Duration
	MinSimilarity  float64
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = 100
	}
	if c.SubtaskTimeout <= 0 {
		c.SubtaskTimeout = 5 * time.Second
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.3
	}
	return c
}

type Deps struct {
	Log      *logger.Logger
	Graph    GraphReader
	Search   search.Searcher
	Activity *activity.Tracker
	Weights  WeightSource
	Shared   SharedCache
}

const (
	maxCommitHistory  = 5
	relatedFromFirstN = 3
	maxRelatedFiles   = 8
	maxDocQueries     = 3
	hitsPerDocQuery   = 2
	maxDocs           = 6
	docPreviewChars   = 500

	cacheHit   = "hit"
	cacheL2Hit = "l2_hit"
	cacheMiss  = "miss"
)

type Engine struct {
	log      *logger.Logger
	graph    GraphReader
	search   search.Searcher
	activity *activity.Tracker
	weights  WeightSource
	shared   SharedCache
	cfg      Config
	now      func() time.Time

	cache  *ExpiringCache[*Package]
	flight singleflight.Group
	events eventLog
}

func New(deps Deps, cfg Config) *Engine {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()
	s := deps.Search
	if s == nil {
		s = search.Disabled()
	}
	tracker := deps.Activity
	if tracker == nil {
		tracker = activity.NewTracker(log)
	}
	return &Engine{
		log:      log.With("service", "ContextEngine"),
		graph:    deps.Graph,
		search:   s,
		activity: tracker,
		weights:  deps.Weights,
		shared:   deps.Shared,
		cfg:      cfg,
		now:      time.Now,
		cache:    NewExpiringCache[*Package](cfg.CacheTTL, cfg.CacheCapacity),
	}
}

type fetched struct {
	pkg    *Package
	status string
}

// Assemble returns the context package for ev, from cache when an identical
// request was served within the TTL. Only a missing file path is an error;
// failing sources degrade to empty and lower the confidence score.
func (e *Engine) Assemble(ctx context.Context, ev types.FocusEvent) (*Package, error) {
	ev.FilePath = strings.TrimSpace(ev.FilePath)
	if ev.FilePath == "" {
		return nil, fmt.Errorf("contextengine: file_path required: %w", pkgerrors.ErrInvalidArgument)
	}
	if ev.EventType == "" {
		ev.EventType = types.EventFileOpened
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now()
	}
	start := time.Now()

	ctx, span := observability.StartSpan(ctx, "contextengine.Assemble",
		attribute.String("context.event_type", ev.EventType),
		attribute.String("context.language", types.LanguageOf(ev.FilePath)),
	)
	defer span.End()

	key := CacheKey(ev)
	res := fetched{status: cacheHit}
	if p, ok := e.cache.Get(key); ok {
		res.pkg = p
	} else {
		// Concurrent misses for one key share a single assembly. The shared
		// work must not die with the first caller's context.
		flightCtx := context.WithoutCancel(ctx)
		v, _, _ := e.flight.Do(key, func() (any, error) {
			if p, ok := e.cache.Get(key); ok {
				return fetched{pkg: p, status: cacheHit}, nil
			}
			if p, ok := e.sharedGet(flightCtx, key); ok {
				e.cache.Set(key, p)
				return fetched{pkg: p, status: cacheL2Hit}, nil
			}
			p := e.assemble(flightCtx, ev, key)
			e.cache.Set(key, p)
			e.sharedSet(flightCtx, key, p)
			return fetched{pkg: p, status: cacheMiss}, nil
		})
		res = v.(fetched)
	}

	dur := time.Since(start)
	e.record(ev, res, dur)
	span.SetAttributes(
		attribute.String("context.cache", res.status),
		attribute.Float64("context.confidence", res.pkg.ConfidenceScore),
	)
	return res.pkg, nil
}

type branchErrors struct {
	mu   sync.Mutex
	errs map[string]string
}

func (b *branchErrors) record(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.errs == nil {
		b.errs = map[string]string{}
	}
	b.errs[name] = err.Error()
}

func runSubtask[T any](ctx context.Context, e *Engine, name string, fallback T, errs *branchErrors, fn func(context.Context) (T, error)) T {
	v, err := bulkhead.Run(ctx, e.cfg.SubtaskTimeout, fn)
	if err != nil {
		errs.record(name, err)
		observability.Current().IncContextSubtaskError(name)
		e.log.Warn("context subtask failed", "subtask", name, "error", err)
		return fallback
	}
	return v
}

func (e *Engine) assemble(ctx context.Context, ev types.FocusEvent, key string) *Package {
	start := time.Now()

	var errs branchErrors
	weights := runSubtask(ctx, e, "weights", DefaultWeights(), &errs, e.loadWeights)

	var (
		primary  *FileContext
		rel      = emptyRelationships()
		docs     = []Doc{}
		insights = activity.Insights{CurrentDeveloper: ev.DeveloperID, ExpertiseLevel: "unknown", RecentActivity: []activity.Interaction{}}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		primary = runSubtask(gctx, e, "file_context", primary, &errs, func(context.Context) (*FileContext, error) {
			return e.fileContext(ev), nil
		})
		return nil
	})
	g.Go(func() error {
		rel = runSubtask(gctx, e, "graph_relationships", rel, &errs, func(ctx context.Context) (Relationships, error) {
			return e.relationships(ctx, ev.FilePath)
		})
		return nil
	})
	g.Go(func() error {
		docs = runSubtask(gctx, e, "documentation", docs, &errs, func(ctx context.Context) ([]Doc, error) {
			return e.documentation(ctx, ev)
		})
		return nil
	})
	g.Go(func() error {
		insights = runSubtask(gctx, e, "developer_insights", insights, &errs, func(context.Context) (activity.Insights, error) {
			return e.activity.Insights(ev.DeveloperID, ev.FilePath), nil
		})
		return nil
	})
	_ = g.Wait()

	pkg := &Package{
		PrimaryContext:     primary,
		GraphRelationships: rel,
		RelatedFiles:       rel.RelatedFiles,
		CommitHistory:      rel.CommitHistory,
		FeatureConnections: rel.FeatureConnections,
		DeveloperInsights:  insights,
		Documentation:      docs,
		ConfidenceScore:    confidence(primary, rel, docs),
		CacheKey:           key,
		AssembledAt:        e.now().UTC(),
		WeightsUsed:        weights,
		Errors:             errs.errs,
	}
	weights.apply(pkg)
	pkg.AssemblyTime = time.Since(start).Seconds()
	return pkg
}

// loadWeights merges the latest feedback-derived weights over the defaults.
// It runs as a bounded subtask so a stalled feedback store cannot hold up
// assembly.
func (e *Engine) loadWeights(ctx context.Context) (Weights, error) {
	w := DefaultWeights()
	if e.weights == nil {
		return w, nil
	}
	loaded, err := e.weights.LatestWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load context weights: %w", err)
	}
	for k, v := range loaded {
		w[k] = v
	}
	return w, nil
}

func (e *Engine) fileContext(ev types.FocusEvent) *FileContext {
	p := ev.FilePath
	inGraph := false
	if e.graph != nil {
		inGraph = e.graph.HasFile(p)
	}
	return &FileContext{
		FilePath:  p,
		FileName:  path.Base(p),
		Directory: path.Dir(p),
		Extension: path.Ext(p),
		Language:  types.LanguageOf(p),
		InGraph:   inGraph,
		Focus: Focus{
			Function: ev.FunctionName,
			Class:    ev.ClassName,
			Cursor:   ev.Cursor,
		},
	}
}

func (e *Engine) relationships(ctx context.Context, filePath string) (Relationships, error) {
	rel := emptyRelationships()
	if e.graph == nil {
		return rel, nil
	}
	hist := e.graph.FindFileHistory(filePath)
	if len(hist) == 0 {
		return rel, nil
	}

	for i, h := range hist {
		if i == maxCommitHistory {
			break
		}
		rel.CommitHistory = append(rel.CommitHistory, CommitRef{
			Hash:      h.Commit.Hash,
			Message:   h.Commit.Message,
			Author:    h.Commit.Author,
			Timestamp: h.Commit.Timestamp,
		})
	}

	seenFiles := map[string]struct{}{filePath: {}}
	for i, h := range hist {
		if i == relatedFromFirstN || len(rel.RelatedFiles) == maxRelatedFiles {
			break
		}
		for _, f := range e.graph.CommitFiles(h.Commit.Hash) {
			if _, dup := seenFiles[f.Path]; dup {
				continue
			}
			seenFiles[f.Path] = struct{}{}
			rel.RelatedFiles = append(rel.RelatedFiles, RelatedFile{Path: f.Path, Relation: "co_changed"})
			if len(rel.RelatedFiles) == maxRelatedFiles {
				break
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return emptyRelationships(), err
	}

	seenFeatures := map[string]struct{}{}
	seenDevs := map[string]struct{}{}
	for _, h := range hist {
		for _, f := range e.graph.CommitFeatures(h.Commit.Hash) {
			k := f.NaturalKey()
			if _, dup := seenFeatures[k]; dup {
				continue
			}
			seenFeatures[k] = struct{}{}
			rel.FeatureConnections = append(rel.FeatureConnections, FeatureLink{
				Name:        f.Name,
				TicketID:    f.TicketID,
				Description: f.Description,
				ViaCommit:   h.Commit.Hash,
			})
		}
		if h.Author == nil {
			continue
		}
		k := h.Author.NaturalKey()
		if _, dup := seenDevs[k]; dup {
			continue
		}
		seenDevs[k] = struct{}{}
		rel.Collaborators = append(rel.Collaborators, Collaborator{Name: h.Author.Name})
	}
	return rel, nil
}

type docQuery struct {
	text   string
	filter map[string]any
}

// docQueries phrases one similarity query per contextual dimension of ev.
// The language guide query only matches chunks of the focused file's language.
func docQueries(ev types.FocusEvent) []docQuery {
	qs := []docQuery{{text: "documentation for " + ev.FilePath}}
	if ev.FunctionName != "" {
		qs = append(qs, docQuery{text: ev.FunctionName + " function implementation example"})
	}
	if ev.ClassName != "" {
		qs = append(qs, docQuery{text: ev.ClassName + " class usage documentation"})
	}
	stem := strings.TrimSuffix(path.Base(ev.FilePath), path.Ext(ev.FilePath))
	byLang := map[string]any{"language": types.LanguageOf(ev.FilePath)}
	switch path.Ext(ev.FilePath) {
	case ".dart":
		qs = append(qs, docQuery{text: "Flutter Dart " + stem + " best practices", filter: byLang})
	case ".py":
		qs = append(qs, docQuery{text: "Python " + stem + " implementation guide", filter: byLang})
	}
	if len(qs) > maxDocQueries {
		qs = qs[:maxDocQueries]
	}
	return qs
}

func (e *Engine) documentation(ctx context.Context, ev types.FocusEvent) ([]Doc, error) {
	queries := docQueries(ev)
	results := make([][]types.SearchHit, len(queries))
	failures := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			hits, err := e.search.Search(gctx, q.text, hitsPerDocQuery, q.filter)
			if err != nil {
				failures[i] = err
				return nil
			}
			results[i] = search.MinSimilarity(hits, e.cfg.MinSimilarity)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range failures {
		if err != nil {
			failed++
		}
	}
	if failed == len(queries) {
		return []Doc{}, fmt.Errorf("documentation: all %d queries failed: %w", failed, failures[0])
	}

	docs := []Doc{}
	seen := map[string]struct{}{}
	for _, hits := range results {
		for _, h := range hits {
			d := docFromHit(h)
			if _, dup := seen[d.DocID]; dup {
				continue
			}
			seen[d.DocID] = struct{}{}
			docs = append(docs, d)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Similarity > docs[j].Similarity })
	if len(docs) > maxDocs {
		docs = docs[:maxDocs]
	}
	return docs, nil
}

func docFromHit(h types.SearchHit) Doc {
	id := h.Metadata.ChunkID
	if id == "" {
		id = fmt.Sprintf("%s:%d", h.Metadata.FilePath, h.Metadata.StartLine)
	}
	d := Doc{
		DocID:      id,
		Title:      h.Metadata.Title,
		Content:    strutil.Ellipsize(h.Content, docPreviewChars),
		Similarity: h.Similarity,
		Source:     h.Metadata.FilePath,
		DocType:    h.Metadata.ChunkType,
	}
	if d.Title == "" {
		d.Title = "Documentation"
	}
	if d.Source == "" {
		d.Source = "unknown"
	}
	if d.DocType == "" {
		d.DocType = "documentation"
	}
	return d
}

func (e *Engine) sharedGet(ctx context.Context, key string) (*Package, bool) {
	if e.shared == nil {
		return nil, false
	}
	p, ok, err := e.shared.Get(ctx, key)
	if err != nil {
		e.log.Warn("shared context cache read failed", "error", err)
		return nil, false
	}
	return p, ok
}

func (e *Engine) sharedSet(ctx context.Context, key string, p *Package) {
	if e.shared == nil {
		return
	}
	if err := e.shared.Set(ctx, key, p, e.cfg.CacheTTL); err != nil {
		e.log.Warn("shared context cache write failed", "error", err)
	}
}

func (e *Engine) record(ev types.FocusEvent, res fetched, dur time.Duration) {
	e.events.append(Event{
		At:           e.now().UTC(),
		DeveloperID:  ev.DeveloperID,
		FilePath:     ev.FilePath,
		EventType:    ev.EventType,
		FunctionName: ev.FunctionName,
		ClassName:    ev.ClassName,
		Cache:        res.status,
		AssemblyTime: dur.Seconds(),
		Confidence:   res.pkg.ConfidenceScore,
		RelatedFiles: len(res.pkg.RelatedFiles),
		Docs:         len(res.pkg.Documentation),
	})
	e.activity.RecordInteraction(ev)
	e.activity.RecordFile(ev.DeveloperID, ev.FilePath)
	observability.Current().ObserveContextAssembly(res.status, ev.EventType, res.pkg.ConfidenceScore, dur)
	e.log.Debug("context served",
		"developer_id", ev.DeveloperID,
		"file_path", ev.FilePath,
		"event_type", ev.EventType,
		"cache", res.status,
		"confidence", res.pkg.ConfidenceScore,
		"duration_ms", dur.Milliseconds(),
	)
}

// UsageStats summarizes the rolling event log.
func (e *Engine) UsageStats() UsageStats {
	stats := usageStats(e.events.snapshot(), e.now())
	stats.CacheSize = e.cache.Len()
	return stats
}
