// Package searchtest provides in-memory Searcher fakes.
package searchtest

import (
	"context"
	"strings"
	"sync"

	types "github.com/yungbote/devcontext-backend/internal/domain"
)

// Corpus answers queries by substring match against each hit's content and
// file path. Every query is recorded.
type Corpus struct {
	Hits []types.SearchHit
	Err  error

	mu      sync.Mutex
	queries []string
}

func (c *Corpus) Search(_ context.Context, text string, k int, _ map[string]any) ([]types.SearchHit, error) {
	c.mu.Lock()
	c.queries = append(c.queries, text)
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	q := strings.ToLower(text)
	out := []types.SearchHit{}
	for _, h := range c.Hits {
		if matches(q, h) {
			out = append(out, h)
		}
		if k > 0 && len(out) >= k {
			break
		}
	}
	return out, nil
}

func (c *Corpus) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

func matches(q string, h types.SearchHit) bool {
	for _, word := range strings.Fields(q) {
		if len(word) < 3 {
			continue
		}
		if strings.Contains(strings.ToLower(h.Content), word) || strings.Contains(strings.ToLower(h.Metadata.FilePath), word) {
			return true
		}
	}
	return false
}

// Func adapts a function to Searcher.
type Func func(ctx context.Context, text string, k int, filter map[string]any) ([]types.SearchHit, error)

func (f Func) Search(ctx context.Context, text string, k int, filter map[string]any) ([]types.SearchHit, error) {
	return f(ctx, text, k, filter)
}

// Hit builds a search hit for tests.
func Hit(chunkID, filePath, content string, similarity float64) types.SearchHit {
	return types.SearchHit{
		Content:    content,
		Metadata:   types.ChunkMetadata{FilePath: filePath, ChunkID: chunkID},
		Similarity: similarity,
	}
}
