package index

import (
	"fmt"
	"regexp"
	"strings"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/pkg/strutil"
)

// ChunkerConfig sizes are in characters; line windows assume 80 chars per line.
type ChunkerConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	MaxChunkSize     int
	QualityThreshold float64
}

func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		ChunkSize:        4000,
		ChunkOverlap:     800,
		MaxChunkSize:     8000,
		QualityThreshold: 0.7,
	}
}

const charsPerLine = 80

type Chunker struct {
	cfg         ChunkerConfig
	windowLines int
	stepLines   int
}

func NewChunker(cfg ChunkerConfig) *Chunker {
	def := DefaultChunkerConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MaxChunkSize < cfg.ChunkSize {
		cfg.MaxChunkSize = 2 * cfg.ChunkSize
	}
	window := max(1, cfg.ChunkSize/charsPerLine)
	step := max(1, window-cfg.ChunkOverlap/charsPerLine)
	return &Chunker{cfg: cfg, windowLines: window, stepLines: step}
}

var markdownHeader = regexp.MustCompile(`^(#+)\s+(.+)$`)

// Chunk splits one file into scored units and drops those under the quality
// threshold, returning how many were dropped. Markdown is split by section;
// everything else, and markdown without headers, falls back to overlapping
// line windows.
func (c *Chunker) Chunk(filePath, content string) ([]types.Chunk, int) {
	lang := types.LanguageOf(filePath)
	var chunks []types.Chunk
	if lang == "markdown" {
		chunks = c.markdownSections(filePath, content)
	}
	if len(chunks) == 0 {
		chunks = c.bySize(filePath, content, lang)
	}

	out := chunks[:0]
	dropped := 0
	for _, ch := range chunks {
		ch.QualityScore = c.Quality(ch)
		if c.cfg.QualityThreshold > 0 && ch.QualityScore < c.cfg.QualityThreshold {
			dropped++
			continue
		}
		out = append(out, ch)
	}
	return out, dropped
}

func (c *Chunker) bySize(filePath, content, lang string) []types.Chunk {
	lines := strings.Split(content, "\n")
	var out []types.Chunk
	for i := 0; i < len(lines); i += c.stepLines {
		end := min(i+c.windowLines, len(lines))
		body := strings.Join(lines[i:end], "\n")
		if strings.TrimSpace(body) != "" {
			out = append(out, types.Chunk{
				Content:     body,
				FilePath:    filePath,
				ChunkType:   types.ChunkTypeGeneric,
				Language:    lang,
				Description: fmt.Sprintf("%s code segment", lang),
				StartLine:   i + 1,
				EndLine:     end,
			})
		}
		if end == len(lines) {
			break
		}
	}
	return out
}

func (c *Chunker) markdownSections(filePath, content string) []types.Chunk {
	lines := strings.Split(content, "\n")
	var (
		out    []types.Chunk
		title  string
		start  int
		inSect bool
	)
	flush := func(end int) {
		if !inSect {
			return
		}
		body := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(body) == "" {
			return
		}
		body, _ = strutil.Truncate(body, c.cfg.MaxChunkSize)
		out = append(out, types.Chunk{
			Content:     body,
			FilePath:    filePath,
			ChunkType:   types.ChunkTypeDocumentation,
			Language:    "markdown",
			Title:       title,
			Description: "Documentation section: " + title,
			StartLine:   start + 1,
			EndLine:     end,
		})
	}
	for i, line := range lines {
		m := markdownHeader.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		flush(i)
		title = strings.TrimSpace(m[2])
		start = i
		inSect = true
	}
	flush(len(lines))
	return out
}
