package contextengine

import (
	"context"
)

const (
	WeightRecentCommits   = "recent_commits"
	WeightRelatedFeatures = "related_features"
	WeightSemanticDocs    = "semantic_docs"
	WeightPredictedFiles  = "predicted_files"
)

// Weights are per-source multipliers derived from feedback.
type Weights map[string]float64

func DefaultWeights() Weights {
	return Weights{
		WeightRecentCommits:   1.0,
		WeightRelatedFeatures: 1.0,
		WeightSemanticDocs:    1.0,
		WeightPredictedFiles:  0.8,
	}
}

// WeightSource supplies the weights derived from the latest quality
// assessment.
type WeightSource interface {
	LatestWeights(ctx context.Context) (Weights, error)
}

func (w Weights) get(key string) float64 {
	if v, ok := w[key]; ok {
		return v
	}
	return 1.0
}

// Truncation limits applied to a source whose weight is not above 1.0.
const (
	weightedCommitLimit  = 2
	weightedFeatureLimit = 1
	weightedDocLimit     = 2
)

// apply trims the weighted sources of p. A source keeps its full list only
// when its weight was boosted above 1.0.
func (w Weights) apply(p *Package) {
	if w.get(WeightRecentCommits) <= 1.0 && len(p.CommitHistory) > weightedCommitLimit {
		p.CommitHistory = p.CommitHistory[:weightedCommitLimit]
	}
	if w.get(WeightRelatedFeatures) <= 1.0 && len(p.FeatureConnections) > weightedFeatureLimit {
		p.FeatureConnections = p.FeatureConnections[:weightedFeatureLimit]
	}
	if w.get(WeightSemanticDocs) <= 1.0 && len(p.Documentation) > weightedDocLimit {
		p.Documentation = p.Documentation[:weightedDocLimit]
	}
}
