package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/devcontext-backend/internal/data/activity"
	"github.com/yungbote/devcontext-backend/internal/data/graph"
	"github.com/yungbote/devcontext-backend/internal/data/graph/graphtest"
	types "github.com/yungbote/devcontext-backend/internal/domain"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
)

const (
	modelPath   = "lib/models/score_model.dart"
	servicePath = "lib/services/score_service.dart"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func focus(dev, p string) types.FocusEvent {
	return types.FocusEvent{EventType: types.EventFileOpened, FilePath: p, DeveloperID: dev}
}

func newAnalyzer(t *testing.T, g GraphReader) *Analyzer {
	t.Helper()
	return New(Deps{Graph: g, Workflows: fallbackWorkflows}, Config{})
}

func TestPredictModelFile(t *testing.T) {
	a := newAnalyzer(t, graphtest.Seeded(t))
	p, err := a.Predict(context.Background(), focus("dev-1", modelPath))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(p.Errors) != 0 {
		t.Fatalf("errors: want none got=%v", p.Errors)
	}
	if p.PredictedIntent.PrimaryIntent != IntentDataModeling || !almostEqual(p.PredictedIntent.Confidence, 0.7) {
		t.Fatalf("intent: got=%+v", p.PredictedIntent)
	}

	want := []struct {
		path string
		conf float64
	}{
		{"lib/services/score_service.dart", 0.85},
		{"lib/models/score_service.dart", 0.7},
		{"lib/models/score_screen.dart", 0.7},
		{"lib/models/score_controller.dart", 0.6},
		{"lib/models/score_repository.dart", 0.6},
		{"lib/models/score_test.dart", 0.5},
	}
	if len(p.NextLikelyFiles) != len(want) {
		t.Fatalf("next files: want=%d got=%+v", len(want), p.NextLikelyFiles)
	}
	for i, w := range want {
		got := p.NextLikelyFiles[i]
		if got.FilePath != w.path || !almostEqual(got.Confidence, w.conf) {
			t.Fatalf("next[%d]: want=%s@%.2f got=%s@%.2f", i, w.path, w.conf, got.FilePath, got.Confidence)
		}
	}
	if p.NextLikelyFiles[0].PredictionType != PredictionDependency {
		t.Fatalf("top prediction type: want=%s got=%s", PredictionDependency, p.NextLikelyFiles[0].PredictionType)
	}

	if !almostEqual(p.ImpactAnalysis.BlastRadiusScore, 0.1) {
		t.Fatalf("blast radius: want=0.1 got=%v", p.ImpactAnalysis.BlastRadiusScore)
	}
	if p.RiskAssessment.OverallRisk != RiskLow || len(p.RiskAssessment.MitigationSuggestions) != 0 {
		t.Fatalf("risk: got=%+v", p.RiskAssessment)
	}
	wantConf := 0.7*0.4 + 0.3 + (0.85+0.7+0.7+0.6+0.6+0.5)/6*0.3
	if !almostEqual(p.Confidence, wantConf) {
		t.Fatalf("confidence: want=%v got=%v", wantConf, p.Confidence)
	}
}

func TestImpactForService(t *testing.T) {
	a := newAnalyzer(t, graphtest.Seeded(t))
	im := a.analyzeImpact(servicePath)

	direct := make([]string, 0, len(im.DirectImpacts))
	for _, d := range im.DirectImpacts {
		direct = append(direct, d.FilePath)
		if d.Type != ImpactCoChange || d.Strength != coChangeStrength || d.ViaCommit == "" {
			t.Fatalf("direct impact shape: got=%+v", d)
		}
	}
	wantDirect := []string{"lib/screens/leaderboard_screen.dart", "test/score_service_test.dart", "lib/models/score_model.dart"}
	if !slices.Equal(direct, wantDirect) {
		t.Fatalf("direct impacts: want=%v got=%v", wantDirect, direct)
	}
	if len(im.TestImpacts) != 1 || im.TestImpacts[0].FilePath != "test/score_service_test.dart" {
		t.Fatalf("test impacts: got=%+v", im.TestImpacts)
	}
	if !almostEqual(im.BlastRadiusScore, 0.4) {
		t.Fatalf("blast radius: want=0.4 got=%v", im.BlastRadiusScore)
	}
	if len(im.CriticalPaths) != 0 {
		t.Fatalf("critical paths: want none got=%+v", im.CriticalPaths)
	}
}

func TestImpactUnknownFileIsEmpty(t *testing.T) {
	a := newAnalyzer(t, graphtest.Seeded(t))
	im := a.analyzeImpact("lib/nowhere.dart")
	if im.BlastRadiusScore != 0 || len(im.DirectImpacts)+len(im.IndirectImpacts)+len(im.TestImpacts) != 0 {
		t.Fatalf("unknown file impact: got=%+v", im)
	}
}

func TestIndirectSiblingsAndCriticalPaths(t *testing.T) {
	s := graph.NewStore(nil)
	graphtest.AddCommit(t, s, graphtest.Commit{
		Hash:    "abcdef0123",
		Message: "profile",
		Author:  "Dana",
		At:      time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Files: []string{
			"lib/profile.dart",
			"lib/profile_service.dart",
			"lib/profile_widget.dart",
		},
	})
	a := newAnalyzer(t, s)
	im := a.analyzeImpact("lib/profile.dart")

	if len(im.IndirectImpacts) != 2 {
		t.Fatalf("indirect impacts: want=2 got=%+v", im.IndirectImpacts)
	}
	if im.IndirectImpacts[0].FilePath != "lib/profile_widget.dart" || im.IndirectImpacts[1].FilePath != "lib/profile_service.dart" {
		t.Fatalf("indirect order: got=%+v", im.IndirectImpacts)
	}
	if len(im.CriticalPaths) != 1 {
		t.Fatalf("critical paths: want=1 got=%+v", im.CriticalPaths)
	}
	cp := im.CriticalPaths[0]
	if cp.Type != ImpactArchitecture || cp.FileCount != 1 || cp.Description != "1 files affected via architectural dependency" {
		t.Fatalf("critical path: got=%+v", cp)
	}
	if !almostEqual(im.BlastRadiusScore, 0.4) {
		t.Fatalf("blast radius: want=0.4 got=%v", im.BlastRadiusScore)
	}
}

func TestBlastRadiusClamped(t *testing.T) {
	s := graph.NewStore(nil)
	files := []string{"lib/hub.dart", "lib/hub_service.dart", "lib/hub_repository.dart", "lib/hub_test.dart", "test/hub_test.dart"}
	for i := range 8 {
		files = append(files, fmt.Sprintf("lib/spoke_%02d.dart", i))
	}
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range 2 {
		graphtest.AddCommit(t, s, graphtest.Commit{
			Hash: fmt.Sprintf("feed%04d", i), Message: "wide change", Author: "Eve",
			At: at.Add(time.Duration(i) * time.Hour), Files: files,
		})
	}
	a := newAnalyzer(t, s)
	im := a.analyzeImpact("lib/hub.dart")
	if len(im.DirectImpacts) != maxDirectImpacts {
		t.Fatalf("direct cap: want=%d got=%d", maxDirectImpacts, len(im.DirectImpacts))
	}
	if len(im.IndirectImpacts) != 3 || len(im.TestImpacts) != 1 {
		t.Fatalf("indirect/test: got=%d/%d", len(im.IndirectImpacts), len(im.TestImpacts))
	}
	if im.BlastRadiusScore != 1 {
		t.Fatalf("blast radius must clamp to 1: got=%v", im.BlastRadiusScore)
	}
}

func churn(t *testing.T, s *graph.Store, file string, commits int, authors ...string) {
	t.Helper()
	at := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := range commits {
		graphtest.AddCommit(t, s, graphtest.Commit{
			Hash:    fmt.Sprintf("c0ffee%04d", i),
			Message: "tweak",
			Author:  authors[i%len(authors)],
			At:      at.Add(time.Duration(i) * time.Hour),
			Files:   []string{file},
		})
	}
}

func TestRiskBands(t *testing.T) {
	cases := []struct {
		name        string
		commits     int
		authors     []string
		file        string
		wantBand    string
		wantScore   float64
		mitigations int
	}{
		{"quiet", 1, []string{"a"}, "lib/util.py", RiskLow, 0, 0},
		{"critical only", 1, []string{"a"}, "lib/payment_api.py", RiskLow, 0.2, 1},
		{"moderate critical", 6, []string{"a"}, "lib/payment_api.py", RiskMedium, 0.3, 1},
		{"hot shared critical", 11, []string{"a", "b", "c", "d"}, "lib/payment_api.py", RiskHigh, 0.7, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := graph.NewStore(nil)
			churn(t, s, tc.file, tc.commits, tc.authors...)
			r := newAnalyzer(t, s).assessRisk(tc.file)
			if r.OverallRisk != tc.wantBand || !almostEqual(r.RiskScore, tc.wantScore) {
				t.Fatalf("risk: want=%s/%.1f got=%s/%v", tc.wantBand, tc.wantScore, r.OverallRisk, r.RiskScore)
			}
			if len(r.MitigationSuggestions) != tc.mitigations {
				t.Fatalf("mitigations: want=%d got=%v", tc.mitigations, r.MitigationSuggestions)
			}
		})
	}
}

func TestRiskBandBoundaries(t *testing.T) {
	for score, want := range map[float64]string{0: RiskLow, 0.29: RiskLow, 0.3: RiskMedium, 0.59: RiskMedium, 0.6: RiskHigh, 1: RiskHigh} {
		if got := riskBand(score); got != want {
			t.Fatalf("riskBand(%v): want=%s got=%s", score, want, got)
		}
	}
}

type panickyGraph struct{ *graph.Store }

func (panickyGraph) FileDependents(string) []types.File { panic("dependents exploded") }

func TestFailingAnalysisIsIsolated(t *testing.T) {
	a := newAnalyzer(t, panickyGraph{graphtest.Seeded(t)})
	p, err := a.Predict(context.Background(), focus("dev-1", modelPath))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if _, ok := p.Errors[analysisNextFiles]; !ok || len(p.Errors) != 1 {
		t.Fatalf("errors: want only %s got=%v", analysisNextFiles, p.Errors)
	}
	if len(p.NextLikelyFiles) != 0 {
		t.Fatalf("next files after failure: got=%+v", p.NextLikelyFiles)
	}
	if p.PredictedIntent.PrimaryIntent != IntentDataModeling || !almostEqual(p.ImpactAnalysis.BlastRadiusScore, 0.1) {
		t.Fatalf("other analyses must survive: intent=%+v blast=%v", p.PredictedIntent, p.ImpactAnalysis.BlastRadiusScore)
	}
	if !almostEqual(p.Confidence, 0.7*0.4+0.3) {
		t.Fatalf("confidence: want=%v got=%v", 0.7*0.4+0.3, p.Confidence)
	}
}

func TestEmptyPathRejected(t *testing.T) {
	a := newAnalyzer(t, nil)
	if _, err := a.Predict(context.Background(), focus("dev-1", "  ")); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument got=%v", err)
	}
}

func TestLearningFeedsTransitions(t *testing.T) {
	a := newAnalyzer(t, nil)
	ctx := context.Background()
	for _, f := range []string{"notes/alpha.txt", "notes/beta.txt", "notes/alpha.txt"} {
		if _, err := a.Predict(ctx, focus("dev-2", f)); err != nil {
			t.Fatalf("Predict(%s): %v", f, err)
		}
	}
	p, err := a.Predict(ctx, focus("dev-2", "notes/alpha.txt"))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(p.NextLikelyFiles) != 1 {
		t.Fatalf("next files: want=1 got=%+v", p.NextLikelyFiles)
	}
	got := p.NextLikelyFiles[0]
	if got.FilePath != "notes/beta.txt" || got.PredictionType != PredictionHistory || !almostEqual(got.Confidence, 0.1) {
		t.Fatalf("learned prediction: got=%+v", got)
	}

	other, err := a.Predict(ctx, focus("dev-3", "notes/alpha.txt"))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(other.NextLikelyFiles) != 0 {
		t.Fatalf("transitions must be per developer: got=%+v", other.NextLikelyFiles)
	}
}

func TestWorkflowMatchRaisesIntent(t *testing.T) {
	tracker := activity.NewTracker(nil)
	tracker.RecordFile("dev-w", "lib/models/user_model.dart")
	tracker.RecordFile("dev-w", "lib/services/user_service.dart")
	a := New(Deps{Activity: tracker, Workflows: fallbackWorkflows}, Config{})

	intent := a.predictIntent(focus("dev-w", "lib/controllers/user_controller.dart"))
	if intent.PrimaryIntent != IntentCodeNavigation {
		t.Fatalf("primary: want=%s got=%s", IntentCodeNavigation, intent.PrimaryIntent)
	}
	for _, want := range []string{"following_model_change_workflow", "following_database_change_workflow"} {
		if !slices.Contains(intent.SecondaryIntents, want) {
			t.Fatalf("secondary intents: want %s in %v", want, intent.SecondaryIntents)
		}
	}
	if slices.Contains(intent.SecondaryIntents, "following_api_integration_workflow") {
		t.Fatalf("out-of-order roles must not match: %v", intent.SecondaryIntents)
	}
	if !almostEqual(intent.Confidence, 0.7) {
		t.Fatalf("confidence: want=0.7 got=%v", intent.Confidence)
	}
}

func TestRecordedFocusIsNotAWorkflow(t *testing.T) {
	tracker := activity.NewTracker(nil)
	tracker.RecordFile("dev-r", "README.txt")
	// the context engine records the focus before the prediction runs
	tracker.RecordFile("dev-r", modelPath)
	a := New(Deps{Activity: tracker, Workflows: fallbackWorkflows}, Config{})

	for i := 0; i < 2; i++ {
		p, err := a.Predict(context.Background(), focus("dev-r", modelPath))
		if err != nil {
			t.Fatalf("Predict #%d: %v", i, err)
		}
		for _, s := range p.PredictedIntent.SecondaryIntents {
			if strings.HasPrefix(s, "following_") {
				t.Fatalf("Predict #%d: single file matched %s", i, s)
			}
		}
		if !almostEqual(p.PredictedIntent.Confidence, 0.7) {
			t.Fatalf("Predict #%d confidence: want=0.7 got=%v", i, p.PredictedIntent.Confidence)
		}
	}
}

func TestFunctionSecondaryIntent(t *testing.T) {
	a := newAnalyzer(t, nil)
	ev := focus("dev-1", "lib/widgets/badge.dart")
	ev.FunctionName = "fixOverflow"
	intent := a.predictIntent(ev)
	if !slices.Equal(intent.SecondaryIntents, []string{IntentDebugging}) {
		t.Fatalf("secondary: want=[%s] got=%v", IntentDebugging, intent.SecondaryIntents)
	}
}

func TestRecommendations(t *testing.T) {
	got := recommendations("lib/services/api.dart", "fetchApiToken")
	if len(got) != maxRecommendations {
		t.Fatalf("cap: want=%d got=%v", maxRecommendations, got)
	}
	if got[3] != "Check if API contracts or service interfaces need updating" {
		t.Fatalf("function line: got=%q", got[3])
	}
	plain := recommendations("README", "")
	if !slices.Equal(plain, generalRecommendations) {
		t.Fatalf("general only: want=%v got=%v", generalRecommendations, plain)
	}
}

func TestStatsAndHistoryTrim(t *testing.T) {
	a := newAnalyzer(t, graphtest.Seeded(t))
	ctx := context.Background()
	for _, f := range []string{modelPath, servicePath, "test/score_service_test.dart"} {
		if _, err := a.Predict(ctx, focus("dev-1", f)); err != nil {
			t.Fatalf("Predict(%s): %v", f, err)
		}
	}
	st := a.Stats()
	if st.TotalPredictions != 3 || st.PredictionsLast24h != 3 {
		t.Fatalf("totals: got=%+v", st)
	}
	if st.IntentDistribution[IntentDataModeling] != 1 || st.IntentDistribution[IntentBusinessLogic] != 1 || st.IntentDistribution[IntentTesting] != 1 {
		t.Fatalf("intent distribution: got=%v", st.IntentDistribution)
	}
	if st.DevelopersTracked != 1 || st.TransitionPatterns != 2 || st.WorkflowPatterns != len(fallbackWorkflows) {
		t.Fatalf("learning stats: got=%+v", st)
	}

	var h history
	for i := range historyMax + 1 {
		h.append(record{FilePath: fmt.Sprint(i)})
	}
	snap := h.snapshot()
	if len(snap) != historyKeep || snap[len(snap)-1].FilePath != fmt.Sprint(historyMax) {
		t.Fatalf("trim: want=%d newest kept got=%d", historyKeep, len(snap))
	}
}
