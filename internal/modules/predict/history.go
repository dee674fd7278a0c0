package predict

import (
	"sync"
	"time"
)

const (
	historyMax  = 500
	historyKeep = 250
)

type record struct {
	At          time.Time
	DeveloperID string
	FilePath    string
	EventType   string
	Intent      string
	Confidence  float64
	NextFiles   int
	RiskScore   float64
	BlastRadius float64
}

type history struct {
	mu      sync.Mutex
	records []record
}

func (h *history) append(r record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	if len(h.records) > historyMax {
		h.records = append([]record(nil), h.records[len(h.records)-historyKeep:]...)
	}
}

func (h *history) snapshot() []record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]record(nil), h.records...)
}

type Stats struct {
	TotalPredictions   int            `json:"total_predictions"`
	PredictionsLast24h int            `json:"predictions_last_24h"`
	AverageConfidence  float64        `json:"average_confidence"`
	AverageRiskScore   float64        `json:"average_risk_score"`
	IntentDistribution map[string]int `json:"intent_distribution"`
	DevelopersTracked  int            `json:"developers_tracked"`
	TransitionPatterns int            `json:"transition_patterns"`
	WorkflowPatterns   int            `json:"workflow_patterns"`
}

func summarize(records []record, now time.Time) Stats {
	st := Stats{TotalPredictions: len(records), IntentDistribution: map[string]int{}}
	if len(records) == 0 {
		return st
	}
	var conf, risk float64
	for _, r := range records {
		conf += r.Confidence
		risk += r.RiskScore
		st.IntentDistribution[r.Intent]++
		if now.Sub(r.At) <= 24*time.Hour {
			st.PredictionsLast24h++
		}
	}
	st.AverageConfidence = conf / float64(len(records))
	st.AverageRiskScore = risk / float64(len(records))
	return st
}
