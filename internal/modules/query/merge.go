package query

import (
	"strings"

	"github.com/yungbote/devcontext-backend/internal/data/graph"
	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/pkg/strutil"
)

const (
	sourceGraph  = "graph"
	sourceVector = "vector"
	sourceHybrid = "graph + vector"

	previewChars = 200
)

func combine(cls Classification, graphRes []any, vectorRes []types.SearchHit) []Combined {
	switch {
	case len(graphRes) > 0 && len(vectorRes) > 0:
		return join(cls, graphRes, vectorRes)
	case len(graphRes) > 0:
		out := make([]Combined, 0, len(graphRes))
		for _, g := range graphRes {
			out = append(out, Combined{Type: TypeGraphOnly, Source: sourceGraph, Data: g})
		}
		return out
	case len(vectorRes) > 0:
		out := make([]Combined, 0, len(vectorRes))
		for _, h := range vectorRes {
			out = append(out, vectorCombined(TypeVectorOnly, h, false))
		}
		return out
	default:
		return []Combined{}
	}
}

func join(cls Classification, graphRes []any, hits []types.SearchHit) []Combined {
	out := []Combined{}
	switch cls.Intent {
	case IntentDeveloperWork:
		for _, g := range graphRes {
			w, ok := g.(graph.WorkItem)
			if !ok {
				continue
			}
			hash := strings.ToLower(w.Commit.Hash)
			out = append(out, Combined{
				Type:   TypeEnhancedCommit,
				Source: sourceHybrid,
				Data:   w,
				VectorContext: mentioning(hits, 2, func(content string) bool {
					return hash != "" && (strings.Contains(content, hash) || strings.Contains(content, short(hash, 8)))
				}),
			})
		}
	case IntentFileHistory:
		path := strings.ToLower(cls.Params[ParamFilePath])
		for _, g := range graphRes {
			fc, ok := g.(graph.FileChange)
			if !ok {
				continue
			}
			out = append(out, Combined{
				Type:   TypeFileChange,
				Source: sourceHybrid,
				Data:   fc,
				VectorContext: mentioning(hits, 1, func(content string) bool {
					return path != "" && strings.Contains(content, path)
				}),
			})
		}
	case IntentFeatureContributors:
		for _, g := range graphRes {
			c, ok := g.(graph.Contribution)
			if !ok {
				continue
			}
			name := strings.ToLower(strings.TrimSpace(c.Developer.Name))
			out = append(out, Combined{
				Type:              TypeContributorSummary,
				Source:            sourceHybrid,
				Data:              c,
				ContributionCount: len(c.Commits),
				VectorContext: mentioning(hits, 2, func(content string) bool {
					return name != "" && strings.Contains(content, name)
				}),
			})
		}
	default:
		for i, g := range graphRes {
			if i == 3 {
				break
			}
			out = append(out, Combined{Type: TypeGraphResult, Source: sourceGraph, Data: g})
		}
		for i, h := range hits {
			if i == 2 {
				break
			}
			out = append(out, vectorCombined(TypeVectorResult, h, true))
		}
	}
	return out
}

// mentioning returns up to limit hits whose lowercased content satisfies match.
func mentioning(hits []types.SearchHit, limit int, match func(content string) bool) []types.SearchHit {
	var out []types.SearchHit
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		if match(strings.ToLower(h.Content)) {
			out = append(out, h)
		}
	}
	return out
}

func vectorCombined(typ string, h types.SearchHit, preview bool) Combined {
	content := h.Content
	if preview {
		content = strutil.Ellipsize(content, previewChars)
	}
	return Combined{
		Type:       typ,
		Source:     sourceVector,
		Title:      h.Metadata.Title,
		Content:    content,
		FilePath:   h.Metadata.FilePath,
		Similarity: h.Similarity,
	}
}

func short(s string, n int) string {
	out, _ := strutil.Truncate(s, n)
	return out
}
