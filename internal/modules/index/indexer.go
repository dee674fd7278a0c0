package index

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/modules/ingest"
	"github.com/yungbote/devcontext-backend/internal/modules/search"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/openai"
	"github.com/yungbote/devcontext-backend/internal/platform/qdrant"
)

type pointStore interface {
	Upsert(ctx context.Context, namespace string, points []qdrant.Point) error
	DeleteWhere(ctx context.Context, namespace string, filter map[string]any) error
}

// DefaultIncludes covers source and documentation the assistant is asked about.
var DefaultIncludes = []string{
	"**/*.dart",
	"**/*.py",
	"**/*.go",
	"**/*.md",
	"**/*.yaml",
	"**/*.yml",
	"**/*.json",
}

const maxFileBytes = 1 << 20

type Result struct {
	Files   int `json:"files"`
	Chunks  int `json:"chunks"`
	Dropped int `json:"dropped"`
	Skipped int `json:"skipped"`
}

type Indexer struct {
	log      *logger.Logger
	chunker  *Chunker
	filter   *ingest.Filter
	embedder openai.Embedder
	points   pointStore
}

func New(log *logger.Logger, chunker *Chunker, embedder openai.Embedder, points pointStore) *Indexer {
	if chunker == nil {
		chunker = NewChunker(DefaultChunkerConfig())
	}
	f, _ := ingest.NewFilter()
	return &Indexer{
		log:      log.With("service", "Indexer"),
		chunker:  chunker,
		filter:   f,
		embedder: embedder,
		points:   points,
	}
}

// IndexFS walks fsys with the include globs (DefaultIncludes when empty),
// chunks every matching text file and upserts the surviving chunks. A file
// is only counted once even when several globs match it.
func (ix *Indexer) IndexFS(ctx context.Context, fsys fs.FS, includes []string) (Result, error) {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	start := time.Now()
	var res Result
	seen := map[string]bool{}

	for _, pattern := range includes {
		pattern = strings.TrimSpace(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return res, fmt.Errorf("index: invalid include pattern %q", pattern)
		}
		err := doublestar.GlobWalk(fsys, pattern, func(p string, _ fs.DirEntry) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if seen[p] || ix.filter.Excluded(p) {
				return nil
			}
			seen[p] = true
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return fmt.Errorf("index: read %s: %w", p, err)
			}
			if !isText(data) {
				res.Skipped++
				return nil
			}
			n, dropped, err := ix.IndexFile(ctx, p, string(data))
			if err != nil {
				return err
			}
			res.Files++
			res.Chunks += n
			res.Dropped += dropped
			return nil
		}, doublestar.WithFilesOnly())
		if err != nil {
			return res, err
		}
	}

	ix.log.Info("index complete",
		"files", res.Files,
		"chunks", res.Chunks,
		"dropped", res.Dropped,
		"skipped", res.Skipped,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// IndexFile returns how many chunks were stored and how many fell under the
// quality threshold. Chunks from an earlier pass over filePath are replaced.
func (ix *Indexer) IndexFile(ctx context.Context, filePath, content string) (int, int, error) {
	all, dropped := ix.chunker.Chunk(filePath, content)
	if len(all) == 0 {
		if err := ix.clearFile(ctx, filePath); err != nil {
			return 0, 0, err
		}
		return 0, dropped, nil
	}

	inputs := make([]string, len(all))
	for i, ch := range all {
		inputs[i] = embeddingText(ch)
	}
	vecs, err := ix.embedder.Embed(ctx, inputs)
	if err != nil {
		return 0, 0, fmt.Errorf("index: embed %s: %w", filePath, err)
	}
	if len(vecs) != len(all) {
		return 0, 0, fmt.Errorf("index: embed %s: want %d vectors got %d", filePath, len(all), len(vecs))
	}

	points := make([]qdrant.Point, len(all))
	for i, ch := range all {
		id := ChunkID(filePath, i)
		points[i] = qdrant.Point{ID: id, Vector: vecs[i], Payload: payload(id, ch)}
	}
	if err := ix.clearFile(ctx, filePath); err != nil {
		return 0, 0, err
	}
	if err := ix.points.Upsert(ctx, search.Namespace, points); err != nil {
		return 0, 0, fmt.Errorf("index: upsert %s: %w", filePath, err)
	}
	ix.log.Debug("file indexed", "file_path", filePath, "chunks", len(all))
	return len(all), dropped, nil
}

// clearFile drops stale chunks so a file that shrank leaves no tail behind.
func (ix *Indexer) clearFile(ctx context.Context, filePath string) error {
	if err := ix.points.DeleteWhere(ctx, search.Namespace, map[string]any{"filePath": filePath}); err != nil {
		return fmt.Errorf("index: clear %s: %w", filePath, err)
	}
	return nil
}

func ChunkID(filePath string, i int) string {
	return fmt.Sprintf("%s#%d", filePath, i)
}

// payload keys are read back by search.HitFromPoint.
func payload(id string, ch types.Chunk) map[string]any {
	return map[string]any{
		"content":      ch.Content,
		"filePath":     ch.FilePath,
		"chunkId":      id,
		"title":        ch.Title,
		"startLine":    ch.StartLine,
		"endLine":      ch.EndLine,
		"language":     ch.Language,
		"chunkType":    ch.ChunkType,
		"qualityScore": ch.QualityScore,
	}
}

func embeddingText(ch types.Chunk) string {
	if ch.Title == "" {
		return ch.FilePath + "\n" + ch.Content
	}
	return ch.FilePath + " " + ch.Title + "\n" + ch.Content
}

func isText(data []byte) bool {
	if len(data) > maxFileBytes || bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	return utf8.Valid(data)
}
