package index

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/yungbote/devcontext-backend/internal/modules/search"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/qdrant"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		out[i] = []float32{float32(len(s)), 1}
	}
	return out, nil
}

type fakePoints struct {
	mu      sync.Mutex
	byNS    map[string][]qdrant.Point
	failOn  string
	cleared []string
}

func (f *fakePoints) DeleteWhere(_ context.Context, ns string, filter map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp, _ := filter["filePath"].(string)
	f.cleared = append(f.cleared, fp)
	kept := f.byNS[ns][:0:0]
	for _, p := range f.byNS[ns] {
		if p.Payload["filePath"] != fp {
			kept = append(kept, p)
		}
	}
	if f.byNS != nil {
		f.byNS[ns] = kept
	}
	return nil
}

func (f *fakePoints) Upsert(_ context.Context, ns string, points []qdrant.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byNS == nil {
		f.byNS = map[string][]qdrant.Point{}
	}
	for _, p := range points {
		if p.ID == f.failOn {
			return errors.New("qdrant down")
		}
	}
	f.byNS[ns] = append(f.byNS[ns], points...)
	return nil
}

func repoFS() fstest.MapFS {
	return fstest.MapFS{
		"lib/models/score.dart":   {Data: []byte(dartSource(120))},
		"lib/models/score.g.dart": {Data: []byte(dartSource(10))},
		"bin/blob.dart":           {Data: []byte{'a', 0, 'b'}},
		"docs/scoring.md":         {Data: []byte("# Scoring\nHow scores are computed.\n## Usage\nrun the service\n")},
		"notes.txt":               {Data: []byte("not included")},
	}
}

func TestIndexFS(t *testing.T) {
	emb := &fakeEmbedder{}
	pts := &fakePoints{}
	ix := New(logger.Nop(), nil, emb, pts)

	res, err := ix.IndexFS(context.Background(), repoFS(), nil)
	if err != nil {
		t.Fatalf("IndexFS: %v", err)
	}
	if res.Files != 2 || res.Chunks != 5 || res.Skipped != 1 || res.Dropped != 0 {
		t.Fatalf("result: got %+v", res)
	}

	points := pts.byNS[search.Namespace]
	if len(points) != 5 {
		t.Fatalf("points: want=5 got=%d", len(points))
	}
	ids := make([]string, 0, len(points))
	byID := map[string]qdrant.Point{}
	for _, p := range points {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}
	sort.Strings(ids)
	want := []string{"docs/scoring.md#0", "docs/scoring.md#1", "lib/models/score.dart#0", "lib/models/score.dart#1", "lib/models/score.dart#2"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids: want=%v got=%v", want, ids)
		}
	}

	hit := search.HitFromPoint(qdrant.ScoredPoint{ID: "x", Payload: byID["lib/models/score.dart#1"].Payload, Similarity: 0.9})
	if hit.Metadata.ChunkID != "lib/models/score.dart#1" || hit.Metadata.StartLine != 41 || hit.Metadata.EndLine != 90 {
		t.Fatalf("payload round trip: %+v", hit.Metadata)
	}
	if hit.Metadata.Language != "dart" || hit.Metadata.FilePath != "lib/models/score.dart" {
		t.Fatalf("payload round trip: %+v", hit.Metadata)
	}
	if q, _ := byID["docs/scoring.md#1"].Payload["qualityScore"].(float64); q != 0.75 {
		t.Fatalf("qualityScore payload: want=0.75 got=%v", q)
	}
}

func TestIndexFSIncludeGlobs(t *testing.T) {
	pts := &fakePoints{}
	ix := New(logger.Nop(), nil, &fakeEmbedder{}, pts)

	res, err := ix.IndexFS(context.Background(), repoFS(), []string{"docs/**", "**/*.md"})
	if err != nil {
		t.Fatalf("IndexFS: %v", err)
	}
	if res.Files != 1 || res.Chunks != 2 {
		t.Fatalf("overlapping globs should index once: got %+v", res)
	}

	if _, err := ix.IndexFS(context.Background(), repoFS(), []string{"["}); err == nil {
		t.Fatalf("invalid glob should fail")
	}
}

func TestIndexFSErrors(t *testing.T) {
	ix := New(logger.Nop(), nil, &fakeEmbedder{err: errors.New("rate limited")}, &fakePoints{})
	if _, err := ix.IndexFS(context.Background(), repoFS(), []string{"**/*.md"}); err == nil {
		t.Fatalf("embed failure should surface")
	}

	ix = New(logger.Nop(), nil, &fakeEmbedder{}, &fakePoints{failOn: "docs/scoring.md#0"})
	if _, err := ix.IndexFS(context.Background(), repoFS(), []string{"**/*.md"}); err == nil {
		t.Fatalf("upsert failure should surface")
	}
}

func TestReindexReplacesStaleChunks(t *testing.T) {
	pts := &fakePoints{}
	ix := New(logger.Nop(), nil, &fakeEmbedder{}, pts)
	ctx := context.Background()

	if _, _, err := ix.IndexFile(ctx, "lib/models/score.dart", dartSource(120)); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	if n, _, err := ix.IndexFile(ctx, "docs/scoring.md", "# Scoring\nHow scores are computed.\n## Usage\nrun the service\n"); err != nil || n != 2 {
		t.Fatalf("IndexFile: n=%d err=%v", n, err)
	}
	if n, _, err := ix.IndexFile(ctx, "docs/scoring.md", "# Scoring\nHow scores are computed.\n"); err != nil || n != 1 {
		t.Fatalf("re-IndexFile: n=%d err=%v", n, err)
	}

	var docs, others int
	for _, p := range pts.byNS[search.Namespace] {
		if p.Payload["filePath"] == "docs/scoring.md" {
			docs++
			if p.ID != "docs/scoring.md#0" {
				t.Fatalf("stale chunk survived: %s", p.ID)
			}
		} else {
			others++
		}
	}
	if docs != 1 {
		t.Fatalf("docs chunks: want=1 got=%d", docs)
	}
	if others == 0 {
		t.Fatalf("other files must keep their chunks")
	}
}

func TestIndexFileAllDropped(t *testing.T) {
	emb := &fakeEmbedder{}
	pts := &fakePoints{}
	ix := New(logger.Nop(), nil, emb, pts)
	n, dropped, err := ix.IndexFile(context.Background(), "notes/todo.txt", "hi")
	if err != nil || n != 0 || dropped != 1 {
		t.Fatalf("IndexFile: n=%d dropped=%d err=%v", n, dropped, err)
	}
	if emb.calls != 0 {
		t.Fatalf("embedder should not be called when nothing survives")
	}
	if len(pts.cleared) != 1 || pts.cleared[0] != "notes/todo.txt" {
		t.Fatalf("earlier chunks should be cleared: got=%v", pts.cleared)
	}
}
