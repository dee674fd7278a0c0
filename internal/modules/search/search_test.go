package search

import (
	"context"
	"errors"
	"testing"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/modules/search/searchtest"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/qdrant"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(_ context.Context, in []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(in))
	for i := range in {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakePoints struct {
	gotNS string
	pts   []qdrant.ScoredPoint
}

func (f *fakePoints) Search(_ context.Context, ns string, _ []float32, _ int, _ map[string]any) ([]qdrant.ScoredPoint, error) {
	f.gotNS = ns
	return f.pts, nil
}

func TestVectorSearcherMapsPayload(t *testing.T) {
	pts := &fakePoints{pts: []qdrant.ScoredPoint{{
		ID:         "lib/a.dart#0",
		Similarity: 0.8,
		Payload: map[string]any{
			"content":   "class ScoreService {}",
			"filePath":  "lib/a.dart",
			"startLine": float64(1),
			"endLine":   float64(12),
			"chunkType": "class",
		},
	}}}
	s := NewVectorSearcher(logger.Nop(), fakeEmbedder{}, pts)
	hits, err := s.Search(context.Background(), "score service", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if pts.gotNS != Namespace {
		t.Fatalf("namespace: want=%q got=%q", Namespace, pts.gotNS)
	}
	if len(hits) != 1 {
		t.Fatalf("hits: want=1 got=%d", len(hits))
	}
	h := hits[0]
	if h.Metadata.ChunkID != "lib/a.dart#0" || h.Metadata.EndLine != 12 || h.Metadata.ChunkType != "class" {
		t.Fatalf("metadata: got=%+v", h.Metadata)
	}
	if h.Similarity != 0.8 {
		t.Fatalf("similarity: want=0.8 got=%v", h.Similarity)
	}
}

func TestVectorSearcherEmbedFailureIsUnavailable(t *testing.T) {
	s := NewVectorSearcher(logger.Nop(), fakeEmbedder{err: errors.New("429")}, &fakePoints{})
	if _, err := s.Search(context.Background(), "x", 1, nil); !errors.Is(err, pkgerrors.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable got=%v", err)
	}
	if _, err := s.Search(context.Background(), "  ", 1, nil); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument got=%v", err)
	}
}

func TestDisabledAndInstrumented(t *testing.T) {
	s := Instrument(logger.Nop(), nil)
	if _, err := s.Search(context.Background(), "x", 1, nil); !errors.Is(err, pkgerrors.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable got=%v", err)
	}

	corpus := &searchtest.Corpus{Hits: []types.SearchHit{
		searchtest.Hit("c1", "lib/a.dart", "score service docs", 0.9),
		searchtest.Hit("c2", "lib/b.dart", "auth flow", 0.2),
	}}
	hits, err := Instrument(logger.Nop(), corpus).Search(context.Background(), "score", 5, nil)
	if err != nil || len(hits) != 1 || hits[0].Metadata.ChunkID != "c1" {
		t.Fatalf("instrumented corpus: hits=%+v err=%v", hits, err)
	}
	if got := MinSimilarity(corpus.Hits, 0.3); len(got) != 1 {
		t.Fatalf("MinSimilarity: want=1 got=%d", len(got))
	}
}
