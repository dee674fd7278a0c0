package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/observability"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/openai"
	"github.com/yungbote/devcontext-backend/internal/platform/qdrant"
)

// Searcher is the semantic similarity collaborator. Hits are ordered by
// similarity, highest first.
type Searcher interface {
	Search(ctx context.Context, text string, k int, filter map[string]any) ([]types.SearchHit, error)
}

// Namespace holds indexed chunks inside the qdrant collection.
const Namespace = "chunks"

type pointSearcher interface {
	Search(ctx context.Context, namespace string, vector []float32, topK int, filter map[string]any) ([]qdrant.ScoredPoint, error)
}

type vectorSearcher struct {
	log      *logger.Logger
	embedder openai.Embedder
	points   pointSearcher
}

func NewVectorSearcher(log *logger.Logger, embedder openai.Embedder, points pointSearcher) Searcher {
	return &vectorSearcher{
		log:      log.With("service", "VectorSearcher"),
		embedder: embedder,
		points:   points,
	}
}

func (s *vectorSearcher) Search(ctx context.Context, text string, k int, filter map[string]any) ([]types.SearchHit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("search: empty query: %w", pkgerrors.ErrInvalidArgument)
	}
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w: %w", pkgerrors.ErrUnavailable, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("search: embed query returned %d vectors: %w", len(vecs), pkgerrors.ErrUnavailable)
	}
	points, err := s.points.Search(ctx, Namespace, vecs[0], k, filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	out := make([]types.SearchHit, 0, len(points))
	for _, p := range points {
		out = append(out, HitFromPoint(p))
	}
	return out, nil
}

// HitFromPoint reads the chunk payload written by the indexer.
func HitFromPoint(p qdrant.ScoredPoint) types.SearchHit {
	str := func(k string) string {
		v, _ := p.Payload[k].(string)
		return v
	}
	num := func(k string) int {
		switch v := p.Payload[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		case int64:
			return int(v)
		}
		return 0
	}
	chunkID := str("chunkId")
	if chunkID == "" {
		chunkID = p.ID
	}
	return types.SearchHit{
		Content: str("content"),
		Metadata: types.ChunkMetadata{
			FilePath:  str("filePath"),
			ChunkID:   chunkID,
			Title:     str("title"),
			StartLine: num("startLine"),
			EndLine:   num("endLine"),
			Language:  str("language"),
			ChunkType: str("chunkType"),
		},
		Similarity: p.Similarity,
	}
}

type disabled struct{}

// Disabled is used when no vector backend is configured. Every call reports
// ErrUnavailable so callers degrade to empty results.
func Disabled() Searcher { return disabled{} }

func (disabled) Search(context.Context, string, int, map[string]any) ([]types.SearchHit, error) {
	return nil, fmt.Errorf("search: vector backend not configured: %w", pkgerrors.ErrUnavailable)
}

type instrumented struct {
	inner Searcher
	log   *logger.Logger
}

// Instrument adds tracing, latency metrics and failure logging.
func Instrument(log *logger.Logger, inner Searcher) Searcher {
	if inner == nil {
		inner = Disabled()
	}
	return &instrumented{inner: inner, log: log.With("service", "Search")}
}

func (s *instrumented) Search(ctx context.Context, text string, k int, filter map[string]any) ([]types.SearchHit, error) {
	ctx, span := observability.StartSpan(ctx, "search.Search", attribute.Int("k", k))
	defer span.End()

	start := time.Now()
	hits, err := s.inner.Search(ctx, text, k, filter)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Debug("vector search failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	}
	observability.Current().ObserveVectorSearch(status, time.Since(start))
	span.SetAttributes(attribute.Int("hits", len(hits)))
	return hits, err
}

// MinSimilarity drops hits below min. Order is preserved.
func MinSimilarity(hits []types.SearchHit, min float64) []types.SearchHit {
	out := hits[:0:0]
	for _, h := range hits {
		if h.Similarity >= min {
			out = append(out, h)
		}
	}
	return out
}
