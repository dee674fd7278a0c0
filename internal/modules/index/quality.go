package index

import (
	"math"

	types "github.com/yungbote/devcontext-backend/internal/domain"
)

// Quality is four equally weighted parts: length fit, chunk type specificity,
// metadata completeness and language coverage.
func (c *Chunker) Quality(ch types.Chunk) float64 {
	score := 0.0

	switch n := len(ch.Content); {
	case n >= 100 && n <= c.cfg.MaxChunkSize:
		score += 0.25
	case n < 100:
		score += 0.1
	}

	switch ch.ChunkType {
	case types.ChunkTypeFunction, types.ChunkTypeClass, types.ChunkTypeAPIDefinition:
		score += 0.25
	case types.ChunkTypeDocumentation, types.ChunkTypeConfig:
		score += 0.2
	case types.ChunkTypeGeneric:
		score += 0.1
	}

	present := 0
	for _, v := range []string{ch.FilePath, ch.Language, ch.Description} {
		if v != "" {
			present++
		}
	}
	score += float64(present) / 3 * 0.25

	switch ch.Language {
	case "python", "dart", "cairo":
		score += 0.25
	case "markdown", "json", "yaml":
		score += 0.2
	default:
		score += 0.1
	}

	return math.Round(math.Min(1, score)*100) / 100
}
