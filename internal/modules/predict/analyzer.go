package predict

import (
	"context"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/devcontext-backend/internal/data/activity"
	"github.com/yungbote/devcontext-backend/internal/data/graph"
	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/observability"
	"github.com/yungbote/devcontext-backend/internal/pkg/bulkhead"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

// GraphReader is the part of the graph store used for predictions.
type GraphReader interface {
	HasFile(path string) bool
	FindFileHistory(filePath string) []graph.FileChange
	CommitFiles(hash string) []types.File
	FileDependents(path string) []types.File
	FileDependencies(path string) []types.File
}

type Config struct {
	AnalysisTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = 5 * time.Second
	}
	return c
}

type Deps struct {
	Log       *logger.Logger
	Graph     GraphReader
	Activity  *activity.Tracker
	Workflows []Workflow
}

const (
	directCommitLimit  = 5
	maxDirectImpacts   = 8
	coChangeStrength   = 0.7
	blastNormalization = 10.0
	criticalStrength   = 0.7
	maxNextFiles       = 6
	archConfidence     = 0.6
	minRecentForLearn  = 2
)

const (
	analysisIntent          = "intent"
	analysisImpact          = "impact"
	analysisNextFiles       = "next_files"
	analysisRisk            = "risk"
	analysisRecommendations = "recommendations"
)

type Analyzer struct {
	log       *logger.Logger
	graph     GraphReader
	activity  *activity.Tracker
	workflows []Workflow
	cfg       Config
	now       func() time.Time
	history   history
}

func New(deps Deps, cfg Config) *Analyzer {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	tracker := deps.Activity
	if tracker == nil {
		tracker = activity.NewTracker(log)
	}
	wfs := deps.Workflows
	if wfs == nil {
		wfs = LoadWorkflows(log)
	}
	return &Analyzer{
		log:       log.With("service", "PredictiveAnalyzer"),
		graph:     deps.Graph,
		activity:  tracker,
		workflows: wfs,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

type analysisErrors struct {
	mu   sync.Mutex
	errs map[string]string
}

func (a *analysisErrors) record(name string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.errs == nil {
		a.errs = map[string]string{}
	}
	a.errs[name] = err.Error()
}

func runAnalysis[T any](ctx context.Context, a *Analyzer, name string, fallback T, errs *analysisErrors, fn func(context.Context) (T, error)) T {
	v, err := bulkhead.Run(ctx, a.cfg.AnalysisTimeout, fn)
	if err != nil {
		errs.record(name, err)
		observability.Current().IncPredictionBranchError(name)
		a.log.Warn("prediction analysis failed", "analysis", name, "error", err)
		return fallback
	}
	return v
}

// Predict runs the five analyses for ev concurrently and then feeds ev into
// the developer's transition model. A failing analysis leaves its own section
// at a neutral value and is reported under Errors.
func (a *Analyzer) Predict(ctx context.Context, ev types.FocusEvent) (*Prediction, error) {
	ev.FilePath = strings.TrimSpace(ev.FilePath)
	if ev.FilePath == "" {
		return nil, fmt.Errorf("predict: file_path required: %w", pkgerrors.ErrInvalidArgument)
	}
	if ev.EventType == "" {
		ev.EventType = types.EventFileOpened
	}
	start := time.Now()

	ctx, span := observability.StartSpan(ctx, "predict.Predict",
		attribute.String("predict.language", types.LanguageOf(ev.FilePath)),
	)
	defer span.End()

	var (
		errs   analysisErrors
		intent = IntentPrediction{PrimaryIntent: IntentUnknown, SecondaryIntents: []string{}, Indicators: []string{}}
		impact = emptyImpact()
		next   = []FilePrediction{}
		risk   = RiskAssessment{OverallRisk: RiskUnknown, RiskFactors: []string{}, MitigationSuggestions: []string{}}
		recs   = []string{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		intent = runAnalysis(gctx, a, analysisIntent, intent, &errs, func(context.Context) (IntentPrediction, error) {
			return a.predictIntent(ev), nil
		})
		return nil
	})
	g.Go(func() error {
		impact = runAnalysis(gctx, a, analysisImpact, impact, &errs, func(context.Context) (ImpactAnalysis, error) {
			return a.analyzeImpact(ev.FilePath), nil
		})
		return nil
	})
	g.Go(func() error {
		next = runAnalysis(gctx, a, analysisNextFiles, next, &errs, func(context.Context) ([]FilePrediction, error) {
			return a.predictNextFiles(ev), nil
		})
		return nil
	})
	g.Go(func() error {
		risk = runAnalysis(gctx, a, analysisRisk, risk, &errs, func(context.Context) (RiskAssessment, error) {
			return a.assessRisk(ev.FilePath), nil
		})
		return nil
	})
	g.Go(func() error {
		recs = runAnalysis(gctx, a, analysisRecommendations, recs, &errs, func(context.Context) ([]string, error) {
			return recommendations(ev.FilePath, ev.FunctionName), nil
		})
		return nil
	})
	_ = g.Wait()

	p := &Prediction{
		PredictedIntent: intent,
		ImpactAnalysis:  impact,
		NextLikelyFiles: next,
		RiskAssessment:  risk,
		Recommendations: recs,
		Confidence:      overallConfidence(intent, impact, next),
		Timestamp:       a.now().UTC(),
		Errors:          errs.errs,
	}
	p.AnalysisTime = time.Since(start).Seconds()

	a.activity.RecordFile(ev.DeveloperID, ev.FilePath)
	a.history.append(record{
		At:          p.Timestamp,
		DeveloperID: ev.DeveloperID,
		FilePath:    ev.FilePath,
		EventType:   ev.EventType,
		Intent:      intent.PrimaryIntent,
		Confidence:  p.Confidence,
		NextFiles:   len(next),
		RiskScore:   risk.RiskScore,
		BlastRadius: impact.BlastRadiusScore,
	})
	observability.Current().ObservePrediction(intent.PrimaryIntent)
	span.SetAttributes(
		attribute.String("predict.intent", intent.PrimaryIntent),
		attribute.Float64("predict.confidence", p.Confidence),
		attribute.Int("predict.errors", len(p.Errors)),
	)
	a.log.Debug("prediction served",
		"developer_id", ev.DeveloperID,
		"file_path", ev.FilePath,
		"intent", intent.PrimaryIntent,
		"confidence", p.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return p, nil
}

func overallConfidence(intent IntentPrediction, impact ImpactAnalysis, next []FilePrediction) float64 {
	c := intent.Confidence * 0.4
	if impact.BlastRadiusScore > 0 {
		c += 0.3
	}
	if len(next) > 0 {
		var sum float64
		for _, f := range next {
			sum += f.Confidence
		}
		c += sum / float64(len(next)) * 0.3
	}
	return clamp01(c)
}

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }

// round2 keeps rule arithmetic like 0.7-0.1*2 from printing as 0.49999.
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (a *Analyzer) predictIntent(ev types.FocusEvent) IntentPrediction {
	out := IntentPrediction{
		PrimaryIntent:    IntentCodeNavigation,
		Confidence:       0.5,
		SecondaryIntents: []string{},
		Indicators:       []string{},
	}
	stem := strings.ToLower(fileStem(ev.FilePath))
	for _, r := range intentRules {
		if containsAny(stem, r.keywords) {
			out.PrimaryIntent, out.Confidence = r.intent, r.confidence
			out.Indicators = append(out.Indicators, r.indicator)
			break
		}
	}

	if fn := strings.ToLower(ev.FunctionName); fn != "" {
		for _, r := range functionRules {
			if containsAny(fn, r.keywords) {
				out.SecondaryIntents = append(out.SecondaryIntents, r.intent)
				out.Indicators = append(out.Indicators, fmt.Sprintf("Function '%s' suggests %s", ev.FunctionName, r.verb))
				break
			}
		}
	}

	recent := a.activity.RecentFiles(ev.DeveloperID)
	if len(recent) >= minRecentForLearn {
		seq := recent
		// the context engine may already have recorded this focus
		if recent[len(recent)-1] != ev.FilePath {
			seq = append(seq, ev.FilePath)
		}
		for _, wf := range a.workflows {
			if !wf.matches(seq) {
				continue
			}
			out.SecondaryIntents = append(out.SecondaryIntents, "following_"+wf.Name)
			out.Indicators = append(out.Indicators, "File sequence matches "+wf.Description)
			out.Confidence = round2(math.Min(0.9, out.Confidence+0.1))
		}
	}
	return out
}

func (a *Analyzer) hasFile(p string) bool {
	return a.graph != nil && a.graph.HasFile(p)
}

func (a *Analyzer) analyzeImpact(filePath string) ImpactAnalysis {
	out := emptyImpact()
	if !a.hasFile(filePath) {
		return out
	}
	out.DirectImpacts = a.directImpacts(filePath)
	out.IndirectImpacts = a.indirectImpacts(filePath)
	out.TestImpacts = a.testImpacts(filePath)

	total := len(out.DirectImpacts) + len(out.IndirectImpacts) + len(out.TestImpacts)
	out.BlastRadiusScore = math.Min(1, float64(total)/blastNormalization)
	out.CriticalPaths = criticalPaths(append(append([]Impact{}, out.DirectImpacts...), out.IndirectImpacts...))
	return out
}

func (a *Analyzer) directImpacts(filePath string) []Impact {
	out := []Impact{}
	seen := map[string]struct{}{filePath: {}}
	for i, h := range a.graph.FindFileHistory(filePath) {
		if i == directCommitLimit || len(out) == maxDirectImpacts {
			break
		}
		for _, f := range a.graph.CommitFiles(h.Commit.Hash) {
			if _, dup := seen[f.Path]; dup {
				continue
			}
			seen[f.Path] = struct{}{}
			out = append(out, Impact{
				FilePath:  f.Path,
				Type:      ImpactCoChange,
				Strength:  coChangeStrength,
				Reason:    "Modified together in commit " + shortHash(h.Commit.Hash),
				ViaCommit: h.Commit.Hash,
			})
			if len(out) == maxDirectImpacts {
				break
			}
		}
	}
	return out
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func (a *Analyzer) indirectImpacts(filePath string) []Impact {
	out := []Impact{}
	ext := path.Ext(filePath)
	dir, stem := path.Dir(filePath), fileStem(filePath)
	for _, s := range siblingRules[ext] {
		rel := s.name(stem)
		candidate := path.Join(dir, rel)
		if candidate == filePath || !a.hasFile(candidate) {
			continue
		}
		out = append(out, Impact{
			FilePath: candidate,
			Type:     ImpactArchitecture,
			Strength: s.strength,
			Reason:   "Naming convention links it to " + path.Base(filePath),
			Pattern:  rel,
		})
	}
	return out
}

func (a *Analyzer) testImpacts(filePath string) []Impact {
	out := []Impact{}
	for _, candidate := range testCandidates(fileStem(filePath)) {
		if candidate == filePath || !a.hasFile(candidate) {
			continue
		}
		out = append(out, Impact{
			FilePath: candidate,
			Type:     ImpactTest,
			Strength: 0.9,
			Reason:   "Test file that validates this component",
		})
	}
	return out
}

func criticalPaths(impacts []Impact) []CriticalPath {
	byType := map[string][]string{}
	var order []string
	for _, im := range impacts {
		if im.Strength <= criticalStrength {
			continue
		}
		if _, ok := byType[im.Type]; !ok {
			order = append(order, im.Type)
		}
		byType[im.Type] = append(byType[im.Type], im.FilePath)
	}
	out := make([]CriticalPath, 0, len(order))
	for _, t := range order {
		files := byType[t]
		out = append(out, CriticalPath{
			Type:        t,
			FileCount:   len(files),
			Files:       files,
			Description: fmt.Sprintf("%d files affected via %s", len(files), strings.ReplaceAll(t, "_", " ")),
		})
	}
	return out
}

func (a *Analyzer) assessRisk(filePath string) RiskAssessment {
	out := RiskAssessment{OverallRisk: RiskLow, RiskFactors: []string{}, MitigationSuggestions: []string{}}
	var score float64

	if a.hasFile(filePath) {
		hist := a.graph.FindFileHistory(filePath)
		switch n := len(hist); {
		case n > 10:
			score += 0.3
			out.RiskFactors = append(out.RiskFactors, fmt.Sprintf("High change frequency (%d commits)", n))
		case n > 5:
			score += 0.1
			out.RiskFactors = append(out.RiskFactors, fmt.Sprintf("Moderate change frequency (%d commits)", n))
		}
		devs := map[string]struct{}{}
		for _, h := range hist {
			if h.Author != nil {
				devs[h.Author.NaturalKey()] = struct{}{}
			}
		}
		if len(devs) > 3 {
			score += 0.2
			out.RiskFactors = append(out.RiskFactors, fmt.Sprintf("Multiple developers (%d) work on this file", len(devs)))
		}
	}

	critical := containsAny(strings.ToLower(path.Base(filePath)), criticalKeywords)
	if critical {
		score += 0.2
		out.RiskFactors = append(out.RiskFactors, "File appears to be critical system component")
	}

	score = round2(score)
	out.OverallRisk = riskBand(score)
	out.RiskScore = math.Min(1, score)
	if score > 0.5 {
		out.MitigationSuggestions = append(out.MitigationSuggestions, mitigationTests, mitigationHistory, mitigationCoordinate)
	}
	if critical {
		out.MitigationSuggestions = append(out.MitigationSuggestions, mitigationCriticalMsg)
	}
	return out
}

func riskBand(score float64) string {
	switch {
	case score < 0.3:
		return RiskLow
	case score < 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

func (a *Analyzer) predictNextFiles(ev types.FocusEvent) []FilePrediction {
	var all []FilePrediction
	all = append(all, a.fromDependencies(ev.FilePath)...)
	all = append(all, a.fromWorkflows(ev.FilePath)...)
	all = append(all, fromArchitecture(ev.FilePath)...)
	all = append(all, a.fromHistory(ev)...)

	out := []FilePrediction{}
	seen := map[string]struct{}{ev.FilePath: {}}
	for _, p := range all {
		if _, dup := seen[p.FilePath]; dup {
			continue
		}
		seen[p.FilePath] = struct{}{}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > maxNextFiles {
		out = out[:maxNextFiles]
	}
	return out
}

func (a *Analyzer) fromDependencies(filePath string) []FilePrediction {
	if !a.hasFile(filePath) {
		return nil
	}
	isModel := path.Ext(filePath) == ".dart" && strings.Contains(filePath, "/models/")
	var out []FilePrediction
	for _, f := range a.graph.FileDependents(filePath) {
		conf := 0.75
		if isModel && (strings.Contains(f.Path, "/services/") || strings.Contains(f.Path, "/screens/")) {
			conf = 0.85
		}
		out = append(out, FilePrediction{
			FilePath:       f.Path,
			Confidence:     conf,
			Reason:         "Depends on " + path.Base(filePath),
			PredictionType: PredictionDependency,
		})
	}
	for _, f := range a.graph.FileDependencies(filePath) {
		out = append(out, FilePrediction{
			FilePath:       f.Path,
			Confidence:     0.75,
			Reason:         "Used by " + path.Base(filePath),
			PredictionType: PredictionDependency,
		})
	}
	return out
}

func (a *Analyzer) fromWorkflows(filePath string) []FilePrediction {
	ext := path.Ext(filePath)
	dir, stem := path.Dir(filePath), strings.ToLower(fileStem(filePath))
	var out []FilePrediction
	for _, wf := range a.workflows {
		if !wf.appliesTo(ext) {
			continue
		}
		cur := wf.roleOf(stem)
		if cur < 0 {
			continue
		}
		for i := cur + 1; i < len(wf.Roles); i++ {
			name := strings.ReplaceAll(stem, wf.Roles[cur], wf.Roles[i])
			out = append(out, FilePrediction{
				FilePath:       path.Join(dir, name+ext),
				Confidence:     round2(0.7 - 0.1*float64(i-cur-1)),
				Reason:         fmt.Sprintf("Next step in %s: %s -> %s", wf.Name, wf.Roles[cur], wf.Roles[i]),
				PredictionType: PredictionWorkflow,
			})
		}
	}
	return out
}

func fromArchitecture(filePath string) []FilePrediction {
	ext := path.Ext(filePath)
	rules := architectureRules[ext]
	dir, stem := path.Dir(filePath), strings.ToLower(fileStem(filePath))
	for _, r := range rules {
		if !strings.Contains(stem, r.role) {
			continue
		}
		out := make([]FilePrediction, 0, len(r.next))
		for _, next := range r.next {
			out = append(out, FilePrediction{
				FilePath:       path.Join(dir, strings.ReplaceAll(stem, r.role, next)+ext),
				Confidence:     archConfidence,
				Reason:         fmt.Sprintf("Architectural dependency: %s -> %s", r.role, next),
				PredictionType: PredictionArchitecture,
			})
		}
		return out
	}
	return nil
}

func (a *Analyzer) fromHistory(ev types.FocusEvent) []FilePrediction {
	if len(a.activity.RecentFiles(ev.DeveloperID)) < minRecentForLearn {
		return nil
	}
	var out []FilePrediction
	for _, t := range a.activity.TransitionsFrom(ev.DeveloperID, ev.FilePath) {
		out = append(out, FilePrediction{
			FilePath:       t.To,
			Confidence:     math.Min(0.8, float64(t.Count)/10),
			Reason:         fmt.Sprintf("Developer pattern: opened %d times after %s", t.Count, path.Base(ev.FilePath)),
			PredictionType: PredictionHistory,
		})
	}
	return out
}

// Stats summarizes the prediction history and the learned transition model.
func (a *Analyzer) Stats() Stats {
	st := summarize(a.history.snapshot(), a.now())
	st.DevelopersTracked, st.TransitionPatterns = a.activity.Stats()
	st.WorkflowPatterns = len(a.workflows)
	return st
}
