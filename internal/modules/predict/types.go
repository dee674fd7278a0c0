package predict

import "time"

type IntentPrediction struct {
	PrimaryIntent    string   `json:"primary_intent"`
	Confidence       float64  `json:"intent_confidence"`
	SecondaryIntents []string `json:"secondary_intents"`
	Indicators       []string `json:"intent_indicators"`
}

type FilePrediction struct {
	FilePath       string  `json:"file_path"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
	PredictionType string  `json:"prediction_type"`
}

const (
	PredictionDependency   = "dependency_graph"
	PredictionWorkflow     = "workflow_pattern"
	PredictionArchitecture = "architectural_pattern"
	PredictionHistory      = "developer_history"
)

type Impact struct {
	FilePath  string  `json:"file_path"`
	Type      string  `json:"impact_type"`
	Strength  float64 `json:"impact_strength"`
	Reason    string  `json:"reason"`
	ViaCommit string  `json:"via_commit,omitempty"`
	Pattern   string  `json:"pattern,omitempty"`
}

const (
	ImpactCoChange     = "co_change"
	ImpactArchitecture = "architectural_dependency"
	ImpactTest         = "test_dependency"
)

type CriticalPath struct {
	Type        string   `json:"path_type"`
	FileCount   int      `json:"file_count"`
	Files       []string `json:"files"`
	Description string   `json:"description"`
}

type ImpactAnalysis struct {
	DirectImpacts    []Impact       `json:"direct_impacts"`
	IndirectImpacts  []Impact       `json:"indirect_impacts"`
	TestImpacts      []Impact       `json:"test_impacts"`
	BlastRadiusScore float64        `json:"blast_radius_score"`
	CriticalPaths    []CriticalPath `json:"critical_paths"`
}

func emptyImpact() ImpactAnalysis {
	return ImpactAnalysis{
		DirectImpacts:   []Impact{},
		IndirectImpacts: []Impact{},
		TestImpacts:     []Impact{},
		CriticalPaths:   []CriticalPath{},
	}
}

const (
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

type RiskAssessment struct {
	OverallRisk           string   `json:"overall_risk"`
	RiskScore             float64  `json:"risk_score"`
	RiskFactors           []string `json:"risk_factors"`
	MitigationSuggestions []string `json:"mitigation_suggestions"`
}

// Prediction is the full result of one analysis pass over a focus event.
type Prediction struct {
	PredictedIntent IntentPrediction  `json:"predicted_intent"`
	ImpactAnalysis  ImpactAnalysis    `json:"impact_analysis"`
	NextLikelyFiles []FilePrediction  `json:"next_likely_files"`
	RiskAssessment  RiskAssessment    `json:"risk_assessment"`
	Recommendations []string          `json:"recommendations"`
	Confidence      float64           `json:"confidence"`
	AnalysisTime    float64           `json:"analysis_time"`
	Timestamp       time.Time         `json:"timestamp"`
	Errors          map[string]string `json:"errors,omitempty"`
}
