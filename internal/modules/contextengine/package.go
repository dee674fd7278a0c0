package contextengine

import (
	"strings"
	"time"

	"github.com/yungbote/devcontext-backend/internal/data/activity"
	types "github.com/yungbote/devcontext-backend/internal/domain"
)

type Focus struct {
	Function string        `json:"function,omitempty"`
	Class    string        `json:"class,omitempty"`
	Cursor   *types.Cursor `json:"cursor_position,omitempty"`
}

type FileContext struct {
	FilePath  string `json:"filepath"`
	FileName  string `json:"filename"`
	Directory string `json:"directory"`
	Extension string `json:"extension"`
	Language  string `json:"language"`
	InGraph   bool   `json:"in_graph"`
	Focus     Focus  `json:"focus_context"`
}

type CommitRef struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

type RelatedFile struct {
	Path     string `json:"path"`
	Relation string `json:"relation"`
}

type FeatureLink struct {
	Name        string `json:"name"`
	TicketID    string `json:"ticket,omitempty"`
	Description string `json:"description,omitempty"`
	ViaCommit   string `json:"via_commit"`
}

type Collaborator struct {
	Name string `json:"name"`
}

type Relationships struct {
	CommitHistory      []CommitRef    `json:"commit_history"`
	RelatedFiles       []RelatedFile  `json:"related_files"`
	FeatureConnections []FeatureLink  `json:"feature_connections"`
	Collaborators      []Collaborator `json:"collaborators"`
}

func emptyRelationships() Relationships {
	return Relationships{
		CommitHistory:      []CommitRef{},
		RelatedFiles:       []RelatedFile{},
		FeatureConnections: []FeatureLink{},
		Collaborators:      []Collaborator{},
	}
}

type Doc struct {
	DocID      string  `json:"doc_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	Source     string  `json:"source"`
	DocType    string  `json:"doc_type"`
}

// Package is the assembled context for one focus event. Packages served from
// cache are shared between callers and must not be modified.
type Package struct {
	PrimaryContext     *FileContext      `json:"primary_context"`
	GraphRelationships Relationships     `json:"graph_relationships"`
	RelatedFiles       []RelatedFile     `json:"related_files"`
	CommitHistory      []CommitRef       `json:"commit_history"`
	FeatureConnections []FeatureLink     `json:"feature_connections"`
	DeveloperInsights  activity.Insights `json:"developer_insights"`
	Documentation      []Doc             `json:"documentation"`
	AssemblyTime       float64           `json:"assembly_time"`
	ConfidenceScore    float64           `json:"confidence_score"`
	CacheKey           string            `json:"cache_key"`
	AssembledAt        time.Time         `json:"assembled_at"`
	WeightsUsed        Weights           `json:"weights_used"`
	Errors             map[string]string `json:"errors,omitempty"`
}

// Sources names the weighted sources that carried data. Feedback for the
// session is attributed to these.
func (p *Package) Sources() []string {
	out := []string{}
	if len(p.CommitHistory) > 0 {
		out = append(out, WeightRecentCommits)
	}
	if len(p.FeatureConnections) > 0 {
		out = append(out, WeightRelatedFeatures)
	}
	if len(p.Documentation) > 0 {
		out = append(out, WeightSemanticDocs)
	}
	return out
}

// CacheKey identifies packages that may be served from cache.
func CacheKey(ev types.FocusEvent) string {
	return strings.Join([]string{
		strings.TrimSpace(ev.FilePath),
		ev.EventType,
		ev.FunctionName,
		ev.ClassName,
	}, "|")
}

// confidence is a weighted indicator sum over the populated sources, computed
// before weights truncate any list.
func confidence(primary *FileContext, rel Relationships, docs []Doc) float64 {
	score := 0.0
	if primary != nil {
		score += 0.3
	}
	if len(rel.CommitHistory) > 0 {
		score += 0.3
	}
	if len(rel.RelatedFiles) > 0 {
		score += 0.2
	}
	if len(rel.FeatureConnections) > 0 {
		score += 0.1
	}
	if n := len(docs); n > 0 {
		score += min(0.1, float64(n)*0.02)
	}
	return max(0, min(1, score))
}
