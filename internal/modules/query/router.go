package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/devcontext-backend/internal/data/graph"
	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/modules/search"
	"github.com/yungbote/devcontext-backend/internal/observability"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

// GraphReader is the part of the graph store the router traverses.
type GraphReader interface {
	FindDeveloperWork(devName, keyword string) []graph.WorkItem
	FindFileHistory(filePath string) []graph.FileChange
	FindFeatureContributors(featureName string) []graph.Contribution
	FindCommit(hashPrefix string) (graph.CommitDetails, bool)
	RecentWork(limit int) []graph.RecentItem
	HasFile(path string) bool
	FilePaths() []string
}

type Config struct {
	TopK          int
	MinSimilarity float64
	Timeout       time.Duration
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.MinSimilarity <= 0 {
		c.MinSimilarity = 0.3
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

type Options struct {
	UseGraph  bool
	UseVector bool
}

func DefaultOptions() Options { return Options{UseGraph: true, UseVector: true} }

// Combined is one merged result. Which fields are set depends on Type.
type Combined struct {
	Type              string            `json:"type"`
	Source            string            `json:"source"`
	Data              any               `json:"data,omitempty"`
	VectorContext     []types.SearchHit `json:"vector_context,omitempty"`
	ContributionCount int               `json:"contribution_count,omitempty"`
	Title             string            `json:"title,omitempty"`
	Content           string            `json:"content,omitempty"`
	FilePath          string            `json:"file_path,omitempty"`
	Similarity        float64           `json:"similarity_score,omitempty"`
}

const (
	TypeEnhancedCommit     = "enhanced_commit"
	TypeFileChange         = "file_change"
	TypeContributorSummary = "contributor_summary"
	TypeGraphResult        = "graph_result"
	TypeVectorResult       = "vector_result"
	TypeGraphOnly          = "graph_only"
	TypeVectorOnly         = "vector_only"
)

type Response struct {
	Query           string            `json:"query"`
	QueryType       Intent            `json:"query_type"`
	Parameters      map[string]string `json:"parameters"`
	GraphResults    []any             `json:"graph_results"`
	VectorResults   []types.SearchHit `json:"vector_results"`
	CombinedResults []Combined        `json:"combined_results"`
	ExecutionTime   float64           `json:"execution_time"`
	Errors          map[string]string `json:"errors,omitempty"`
}

type Router struct {
	log    *logger.Logger
	graph  GraphReader
	search search.Searcher
	cfg    Config
}

func NewRouter(log *logger.Logger, g GraphReader, s search.Searcher, cfg Config) *Router {
	if log == nil {
		log = logger.Nop()
	}
	if s == nil {
		s = search.Disabled()
	}
	return &Router{
		log:    log.With("service", "QueryRouter"),
		graph:  g,
		search: s,
		cfg:    cfg.withDefaults(),
	}
}

// Search classifies q and runs the graph and vector branches concurrently.
// A failing branch contributes an empty list; only an empty query is an error.
func (r *Router) Search(ctx context.Context, q string, opts Options) (*Response, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("query: empty query: %w", pkgerrors.ErrInvalidArgument)
	}
	start := time.Now()
	cls := Classify(q)

	ctx, span := observability.StartSpan(ctx, "query.Search",
		attribute.String("query.intent", string(cls.Intent)),
		attribute.Bool("query.use_graph", opts.UseGraph),
		attribute.Bool("query.use_vector", opts.UseVector),
	)
	defer span.End()

	resp := &Response{
		Query:         q,
		QueryType:     cls.Intent,
		Parameters:    cls.Params,
		GraphResults:  []any{},
		VectorResults: []types.SearchHit{},
	}

	var (
		mu       sync.Mutex
		branchEr = map[string]string{}
	)
	fail := func(branch string, err error) {
		mu.Lock()
		branchEr[branch] = err.Error()
		mu.Unlock()
		span.RecordError(err, trace.WithAttributes(attribute.String("query.branch", branch)))
		observability.Current().IncQueryBranchError(branch)
		r.log.Warn("query branch failed", "branch", branch, "intent", cls.Intent, "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.UseGraph && cls.Intent != IntentGeneral && r.graph != nil {
		g.Go(func() error {
			res, err := guard(func() ([]any, error) { return r.runGraph(cls), nil })
			if err != nil {
				fail("graph", err)
				return nil
			}
			resp.GraphResults = res
			return nil
		})
	}
	if opts.UseVector {
		g.Go(func() error {
			vctx, cancel := context.WithTimeout(gctx, r.cfg.Timeout)
			defer cancel()
			hits, err := r.search.Search(vctx, q, r.cfg.TopK, nil)
			if err != nil {
				fail("vector", err)
				return nil
			}
			resp.VectorResults = search.MinSimilarity(hits, r.cfg.MinSimilarity)
			return nil
		})
	}
	_ = g.Wait()

	resp.CombinedResults = combine(cls, resp.GraphResults, resp.VectorResults)
	if len(branchEr) > 0 {
		resp.Errors = branchEr
		span.SetStatus(codes.Error, "partial results")
	}
	elapsed := time.Since(start)
	resp.ExecutionTime = elapsed.Seconds()
	observability.Current().ObserveQuery(string(cls.Intent), elapsed)
	span.SetAttributes(
		attribute.Int("query.graph_results", len(resp.GraphResults)),
		attribute.Int("query.vector_results", len(resp.VectorResults)),
	)
	return resp, nil
}

// guard turns a panic inside a branch into an error.
func guard[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("branch panic: %v: %w", rec, pkgerrors.ErrUnavailable)
		}
	}()
	return fn()
}

func (r *Router) runGraph(cls Classification) []any {
	p := cls.Params
	out := []any{}
	switch cls.Intent {
	case IntentDeveloperWork:
		for _, w := range r.graph.FindDeveloperWork(p[ParamDeveloper], p[ParamKeyword]) {
			out = append(out, w)
		}
	case IntentFileHistory:
		path := r.resolvePath(p[ParamFilePath])
		p[ParamFilePath] = path
		for _, fc := range r.graph.FindFileHistory(path) {
			out = append(out, fc)
		}
	case IntentFeatureContributors:
		for _, c := range r.graph.FindFeatureContributors(p[ParamFeature]) {
			out = append(out, c)
		}
	case IntentCommitDetails:
		if d, ok := r.graph.FindCommit(p[ParamCommit]); ok {
			out = append(out, d)
		}
	case IntentRecentWork:
		// A scope naming a known developer narrows recent work to them.
		if scope := p[ParamScope]; scope != "" {
			if work := r.graph.FindDeveloperWork(scope, ""); len(work) > 0 {
				if len(work) > recentLimit {
					work = work[:recentLimit]
				}
				for _, w := range work {
					out = append(out, w)
				}
				return out
			}
		}
		for _, it := range r.graph.RecentWork(recentLimit) {
			out = append(out, it)
		}
	}
	return out
}

const recentLimit = 10

// resolvePath maps a bare file name onto a recorded path when the exact path
// is unknown. Ties resolve to the lexicographically first path.
func (r *Router) resolvePath(p string) string {
	if p == "" || r.graph.HasFile(p) {
		return p
	}
	suffix := "/" + strings.TrimPrefix(p, "/")
	var candidates []string
	for _, fp := range r.graph.FilePaths() {
		if strings.HasSuffix(fp, suffix) {
			candidates = append(candidates, fp)
		}
	}
	if len(candidates) == 0 {
		return p
	}
	sort.Strings(candidates)
	return candidates[0]
}
