package contextengine

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/devcontext-backend/internal/data/activity"
	"github.com/yungbote/devcontext-backend/internal/data/graph/graphtest"
	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/modules/search/searchtest"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
)

const scorePath = "lib/services/score_service.dart"

func countingSearcher(calls *atomic.Int32, delay time.Duration) searchtest.Func {
	return func(ctx context.Context, _ string, _ int, _ map[string]any) ([]types.SearchHit, error) {
		calls.Add(1)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return []types.SearchHit{
			searchtest.Hit("doc-1", "docs/scoring.md", "Score service rounds half up", 0.8),
			searchtest.Hit("doc-2", "docs/services.md", "Services are stateless", 0.5),
			searchtest.Hit("doc-3", "docs/misc.md", "barely related", 0.2),
		}, nil
	}
}

func focus(p string) types.FocusEvent {
	return types.FocusEvent{EventType: types.EventFileOpened, FilePath: p, DeveloperID: "dev-1"}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAssembleScoreService(t *testing.T) {
	var calls atomic.Int32
	e := New(Deps{Graph: graphtest.Seeded(t), Search: countingSearcher(&calls, 0)}, Config{})

	pkg, err := e.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if pkg.PrimaryContext == nil || pkg.PrimaryContext.Language != "dart" || !pkg.PrimaryContext.InGraph {
		t.Fatalf("primary context: got=%+v", pkg.PrimaryContext)
	}
	if got := len(pkg.GraphRelationships.CommitHistory); got != 3 {
		t.Fatalf("full commit history: want=3 got=%d", got)
	}
	if !strings.HasPrefix(pkg.GraphRelationships.CommitHistory[0].Hash, "c3d4") {
		t.Fatalf("commit history not newest first: %+v", pkg.GraphRelationships.CommitHistory)
	}
	if got := len(pkg.CommitHistory); got != weightedCommitLimit {
		t.Fatalf("weighted commit history: want=%d got=%d", weightedCommitLimit, got)
	}
	if got := len(pkg.RelatedFiles); got != 3 {
		t.Fatalf("related files: want=3 got=%d (%+v)", got, pkg.RelatedFiles)
	}
	for _, rf := range pkg.RelatedFiles {
		if rf.Path == scorePath || rf.Relation != "co_changed" {
			t.Fatalf("related file: got=%+v", rf)
		}
	}
	if got := len(pkg.FeatureConnections); got != 1 || pkg.FeatureConnections[0].Name != "leaderboard" {
		t.Fatalf("features: got=%+v", pkg.FeatureConnections)
	}
	if got := len(pkg.GraphRelationships.Collaborators); got != 2 {
		t.Fatalf("collaborators: want=2 got=%d", got)
	}
	if got := len(pkg.Documentation); got != 2 {
		t.Fatalf("documentation: want=2 got=%d", got)
	}
	if pkg.Documentation[0].DocID != "doc-1" {
		t.Fatalf("documentation order: got=%+v", pkg.Documentation)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("doc queries: want=2 got=%d", got)
	}
	if !almostEqual(pkg.ConfidenceScore, 0.94) {
		t.Fatalf("confidence: want=0.94 got=%v", pkg.ConfidenceScore)
	}
	if len(pkg.Errors) != 0 {
		t.Fatalf("unexpected subtask errors: %v", pkg.Errors)
	}
}

func TestAssembleRejectsEmptyPath(t *testing.T) {
	e := New(Deps{}, Config{})
	_, err := e.Assemble(context.Background(), types.FocusEvent{FilePath: "  "})
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("err: want=%v got=%v", pkgerrors.ErrInvalidArgument, err)
	}
}

func TestConfidenceIsMonotonic(t *testing.T) {
	primary := &FileContext{FilePath: "x"}
	full := Relationships{
		CommitHistory:      []CommitRef{{Hash: "a"}},
		RelatedFiles:       []RelatedFile{{Path: "b"}},
		FeatureConnections: []FeatureLink{{Name: "f"}},
	}
	docCounts := []int{0, 1, 3, 10}

	build := func(mask int, docs int) (*FileContext, Relationships, []Doc) {
		var p *FileContext
		rel := emptyRelationships()
		if mask&1 != 0 {
			p = primary
		}
		if mask&2 != 0 {
			rel.CommitHistory = full.CommitHistory
		}
		if mask&4 != 0 {
			rel.RelatedFiles = full.RelatedFiles
		}
		if mask&8 != 0 {
			rel.FeatureConnections = full.FeatureConnections
		}
		return p, rel, make([]Doc, docs)
	}

	for mask := 0; mask < 16; mask++ {
		for di, docs := range docCounts {
			base := confidence(build(mask, docs))
			if base < 0 || base > 1 {
				t.Fatalf("confidence out of range: %v", base)
			}
			for bit := 1; bit < 16; bit <<= 1 {
				if got := confidence(build(mask|bit, docs)); got < base {
					t.Fatalf("adding source %d decreased confidence: %v -> %v", bit, base, got)
				}
			}
			if di+1 < len(docCounts) {
				if got := confidence(build(mask, docCounts[di+1])); got < base {
					t.Fatalf("more docs decreased confidence: %v -> %v", base, got)
				}
			}
		}
	}
}

func TestCacheHitWithinTTLAndRecomputeAfter(t *testing.T) {
	var calls atomic.Int32
	e := New(Deps{Graph: graphtest.Seeded(t), Search: countingSearcher(&calls, 0)}, Config{CacheTTL: time.Minute})
	clock := &fakeClock{t: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	e.cache.now = clock.now

	first, err := e.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	clock.advance(59 * time.Second)
	second, _ := e.Assemble(context.Background(), focus(scorePath))
	if first != second {
		t.Fatalf("expected cached package within ttl")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("searches after cache hit: want=2 got=%d", got)
	}

	clock.advance(2 * time.Second)
	third, _ := e.Assemble(context.Background(), focus(scorePath))
	if third == first {
		t.Fatalf("expected recomputation after ttl")
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("searches after expiry: want=4 got=%d", got)
	}
}

func TestSlowSearchFallsBackToEmpty(t *testing.T) {
	blocking := searchtest.Func(func(ctx context.Context, _ string, _ int, _ map[string]any) ([]types.SearchHit, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := New(Deps{Graph: graphtest.Seeded(t), Search: blocking}, Config{SubtaskTimeout: 30 * time.Millisecond})

	start := time.Now()
	pkg, err := e.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("assembly waited on the slow search")
	}
	if len(pkg.Documentation) != 0 || pkg.Errors["documentation"] == "" {
		t.Fatalf("documentation should degrade: docs=%d errors=%v", len(pkg.Documentation), pkg.Errors)
	}
	if len(pkg.CommitHistory) == 0 {
		t.Fatalf("graph facts should survive a search timeout")
	}
	if !almostEqual(pkg.ConfidenceScore, 0.9) {
		t.Fatalf("confidence: want=0.9 got=%v", pkg.ConfidenceScore)
	}
}

func TestLanguageDocQueryIsFiltered(t *testing.T) {
	var (
		mu      sync.Mutex
		filters = map[string]map[string]any{}
	)
	rec := searchtest.Func(func(_ context.Context, text string, _ int, filter map[string]any) ([]types.SearchHit, error) {
		mu.Lock()
		filters[text] = filter
		mu.Unlock()
		return nil, nil
	})
	e := New(Deps{Graph: graphtest.Seeded(t), Search: rec}, Config{})
	if _, err := e.Assemble(context.Background(), focus(scorePath)); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if f := filters["documentation for "+scorePath]; f != nil {
		t.Fatalf("path query should be unfiltered: got=%v", f)
	}
	f, ok := filters["Flutter Dart score_service best practices"]
	if !ok || f["language"] != "dart" {
		t.Fatalf("language query filter: got=%v (queries=%v)", f, filters)
	}
}

func TestDocPreviewKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("é", 400)
	src := searchtest.Func(func(context.Context, string, int, map[string]any) ([]types.SearchHit, error) {
		return []types.SearchHit{searchtest.Hit("doc-1", "docs/accents.md", long, 0.9)}, nil
	})
	e := New(Deps{Graph: graphtest.Seeded(t), Search: src}, Config{})
	pkg, err := e.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pkg.Documentation) != 1 {
		t.Fatalf("docs: want=1 got=%d", len(pkg.Documentation))
	}
	got := pkg.Documentation[0].Content
	if !utf8.ValidString(got) || !strings.HasSuffix(got, "...") {
		t.Fatalf("preview: valid=%v got=%q", utf8.ValidString(got), got)
	}
	if n := len(strings.TrimSuffix(got, "...")); n > docPreviewChars {
		t.Fatalf("preview length: want<=%d got=%d", docPreviewChars, n)
	}
}

func TestConcurrentRequestsStayIndependent(t *testing.T) {
	var calls atomic.Int32
	e := New(Deps{Graph: graphtest.Seeded(t), Search: countingSearcher(&calls, 5*time.Millisecond)}, Config{})

	paths := []string{scorePath, "lib/services/auth_service.dart"}
	pkgs := make([]*Package, len(paths))
	var wg sync.WaitGroup
	for i, p := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pkg, err := e.Assemble(context.Background(), focus(p))
			if err != nil {
				t.Errorf("Assemble(%s): %v", p, err)
				return
			}
			pkgs[i] = pkg
		}()
	}
	wg.Wait()

	if pkgs[0] == nil || pkgs[1] == nil {
		t.Fatalf("missing packages")
	}
	if pkgs[0].PrimaryContext.FilePath != scorePath || pkgs[1].PrimaryContext.FilePath != paths[1] {
		t.Fatalf("primary contexts crossed")
	}
	auth := pkgs[1].GraphRelationships.CommitHistory
	if len(auth) != 1 || !strings.HasPrefix(auth[0].Hash, "d4c3") {
		t.Fatalf("auth history: got=%+v", auth)
	}
	for _, c := range pkgs[0].GraphRelationships.CommitHistory {
		if strings.HasPrefix(c.Hash, "d4c3") {
			t.Fatalf("score history leaked auth commit")
		}
	}
	if got := len(e.activity.RecentFiles("dev-1")); got != 2 {
		t.Fatalf("recent files: want=2 got=%d", got)
	}
}

func TestConcurrentMissesShareOneAssembly(t *testing.T) {
	var calls atomic.Int32
	e := New(Deps{Graph: graphtest.Seeded(t), Search: countingSearcher(&calls, 20*time.Millisecond)}, Config{})

	var wg sync.WaitGroup
	results := make([]*Package, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = e.Assemble(context.Background(), focus(scorePath))
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 2 {
		t.Fatalf("searches: want=2 got=%d", got)
	}
	for i, p := range results {
		if p != results[0] {
			t.Fatalf("result %d differs from the shared package", i)
		}
	}
	if got := e.UsageStats().TotalContextEvents; got != len(results) {
		t.Fatalf("events: want=%d got=%d", len(results), got)
	}
}

type staticWeights struct {
	w   Weights
	err error
}

func (s staticWeights) LatestWeights(context.Context) (Weights, error) { return s.w, s.err }

func TestBoostedWeightKeepsFullList(t *testing.T) {
	var calls atomic.Int32
	e := New(Deps{
		Graph:   graphtest.Seeded(t),
		Search:  countingSearcher(&calls, 0),
		Weights: staticWeights{w: Weights{WeightRecentCommits: 1.1}},
	}, Config{})

	pkg, err := e.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := len(pkg.CommitHistory); got != 3 {
		t.Fatalf("boosted commits: want=3 got=%d", got)
	}
	if pkg.WeightsUsed[WeightSemanticDocs] != 1.0 || pkg.WeightsUsed[WeightPredictedFiles] != 0.8 {
		t.Fatalf("defaults not merged: %v", pkg.WeightsUsed)
	}
}

func TestWeightSourceFailureUsesDefaults(t *testing.T) {
	var calls atomic.Int32
	e := New(Deps{
		Graph:   graphtest.Seeded(t),
		Search:  countingSearcher(&calls, 0),
		Weights: staticWeights{err: errors.New("db down")},
	}, Config{})

	pkg, err := e.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if got := len(pkg.CommitHistory); got != weightedCommitLimit {
		t.Fatalf("commits: want=%d got=%d", weightedCommitLimit, got)
	}
}

type blockingWeights struct{}

func (blockingWeights) LatestWeights(ctx context.Context) (Weights, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStalledWeightSourceTimesOut(t *testing.T) {
	var calls atomic.Int32
	e := New(Deps{
		Graph:   graphtest.Seeded(t),
		Search:  countingSearcher(&calls, 0),
		Weights: blockingWeights{},
	}, Config{SubtaskTimeout: 50 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan *Package, 1)
	go func() {
		pkg, err := e.Assemble(ctx, focus(scorePath))
		if err != nil {
			t.Errorf("Assemble: %v", err)
		}
		done <- pkg
	}()

	select {
	case pkg := <-done:
		if pkg == nil {
			return
		}
		if pkg.Errors["weights"] == "" {
			t.Fatalf("weights error not recorded: %v", pkg.Errors)
		}
		if pkg.WeightsUsed[WeightRecentCommits] != 1.0 || pkg.WeightsUsed[WeightPredictedFiles] != 0.8 {
			t.Fatalf("weights: want defaults got=%v", pkg.WeightsUsed)
		}
		if got := len(pkg.CommitHistory); got != weightedCommitLimit {
			t.Fatalf("commits: want=%d got=%d", weightedCommitLimit, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("assembly blocked on the weight source")
	}
}

type memShared struct {
	mu sync.Mutex
	m  map[string]*Package
}

func (s *memShared) Get(_ context.Context, key string) (*Package, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[key]
	return p, ok, nil
}

func (s *memShared) Set(_ context.Context, key string, p *Package, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]*Package{}
	}
	s.m[key] = p
	return nil
}

func TestSharedCacheServesOtherEngines(t *testing.T) {
	shared := &memShared{}
	var callsA, callsB atomic.Int32
	a := New(Deps{Graph: graphtest.Seeded(t), Search: countingSearcher(&callsA, 0), Shared: shared}, Config{})
	b := New(Deps{Graph: graphtest.Seeded(t), Search: countingSearcher(&callsB, 0), Shared: shared}, Config{})

	pa, err := a.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble a: %v", err)
	}
	pb, err := b.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble b: %v", err)
	}
	if callsB.Load() != 0 {
		t.Fatalf("second engine should be served by the shared tier")
	}
	if pa.ConfidenceScore != pb.ConfidenceScore || pa.CacheKey != pb.CacheKey {
		t.Fatalf("shared package differs: %v vs %v", pa.ConfidenceScore, pb.ConfidenceScore)
	}
}

func TestUnreachableRedisDegrades(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	var calls atomic.Int32
	e := New(Deps{Graph: graphtest.Seeded(t), Search: countingSearcher(&calls, 0), Shared: NewRedisCache(rdb, "")}, Config{})
	pkg, err := e.Assemble(context.Background(), focus(scorePath))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pkg.CommitHistory) == 0 {
		t.Fatalf("expected a fresh package when redis is down")
	}
}

func TestUsageStats(t *testing.T) {
	var calls atomic.Int32
	tracker := activity.NewTracker(nil)
	e := New(Deps{Graph: graphtest.Seeded(t), Search: countingSearcher(&calls, 0), Activity: tracker}, Config{})

	for _, p := range []string{scorePath, scorePath, "lib/services/auth_service.dart"} {
		if _, err := e.Assemble(context.Background(), focus(p)); err != nil {
			t.Fatalf("Assemble: %v", err)
		}
	}
	stats := e.UsageStats()
	if stats.TotalContextEvents != 3 || stats.EventsLast24h != 3 || stats.UniqueDevelopers != 1 || stats.UniqueFilesAccessed != 2 {
		t.Fatalf("stats: got=%+v", stats)
	}
	if stats.CacheSize != 2 {
		t.Fatalf("cache size: want=2 got=%d", stats.CacheSize)
	}
	if stats.MostActiveFiles[0].FilePath != scorePath || stats.MostActiveFiles[0].AccessCount != 2 {
		t.Fatalf("most active: got=%+v", stats.MostActiveFiles)
	}
	if in := tracker.Insights("dev-1", scorePath); len(in.RecentActivity) != 2 {
		t.Fatalf("interactions recorded: want=2 got=%d", len(in.RecentActivity))
	}
}

func TestEventLogTrims(t *testing.T) {
	var l eventLog
	for i := 0; i <= eventLogMax; i++ {
		l.append(Event{AssemblyTime: float64(i)})
	}
	got := l.snapshot()
	if len(got) != eventLogKeep {
		t.Fatalf("len: want=%d got=%d", eventLogKeep, len(got))
	}
	if got[len(got)-1].AssemblyTime != float64(eventLogMax) {
		t.Fatalf("newest event dropped")
	}
}
