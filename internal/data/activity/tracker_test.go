package activity

import (
	"sync"
	"testing"
	"time"

	types "github.com/yungbote/devcontext-backend/internal/domain"
)

func TestRecordFileKeepsLastTen(t *testing.T) {
	tr := NewTracker(nil)
	for i := 0; i < 15; i++ {
		tr.RecordFile("dev-1", string(rune('a'+i))+".dart")
	}
	recent := tr.RecentFiles("dev-1")
	if len(recent) != recentFilesLimit {
		t.Fatalf("recent: want=%d got=%d", recentFilesLimit, len(recent))
	}
	if recent[0] != "f.dart" || recent[9] != "o.dart" {
		t.Fatalf("recent window: got=%v", recent)
	}
}

func TestTransitions(t *testing.T) {
	tr := NewTracker(nil)
	for _, p := range []string{"a", "b", "a", "b", "a", "c", "c"} {
		tr.RecordFile("dev-1", p)
	}
	got := tr.TransitionsFrom("dev-1", "a")
	if len(got) != 2 {
		t.Fatalf("transitions: want=2 got=%v", got)
	}
	if got[0].To != "b" || got[0].Count != 2 || got[1].To != "c" || got[1].Count != 1 {
		t.Fatalf("transitions order: got=%v", got)
	}
	if self := tr.TransitionsFrom("dev-1", "c"); len(self) != 0 {
		t.Fatalf("repeated focus should not count: got=%v", self)
	}
	devs, n := tr.Stats()
	if devs != 1 || n != 3 {
		t.Fatalf("stats: want=1/3 got=%d/%d", devs, n)
	}
}

func TestInsights(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(nil).WithClock(func() time.Time { return now })

	old := types.FocusEvent{DeveloperID: "dev-1", FilePath: "a.dart", FunctionName: "build", Timestamp: now.Add(-10 * 24 * time.Hour)}
	tr.RecordInteraction(old)
	for i := 0; i < 6; i++ {
		fn := "build"
		if i%3 == 0 {
			fn = "dispose"
		}
		tr.RecordInteraction(types.FocusEvent{DeveloperID: "dev-1", FilePath: "a.dart", FunctionName: fn, Timestamp: now.Add(-time.Duration(6-i) * time.Hour)})
	}

	in := tr.Insights("dev-1", "a.dart")
	if in.ExpertiseLevel != "intermediate" {
		t.Fatalf("expertise: want=intermediate got=%s", in.ExpertiseLevel)
	}
	if len(in.RecentActivity) != insightRecentLimit {
		t.Fatalf("recent activity: want=%d got=%d", insightRecentLimit, len(in.RecentActivity))
	}
	if in.FocusPatterns == nil || in.FocusPatterns.InteractionCount != 7 {
		t.Fatalf("focus patterns: got=%+v", in.FocusPatterns)
	}
	top := in.FocusPatterns.FrequentlyEditedFunctions[0]
	if top.Name != "build" || top.Count != 5 {
		t.Fatalf("top function: got=%+v", top)
	}

	if empty := tr.Insights("dev-2", "a.dart"); empty.ExpertiseLevel != "novice" || len(empty.RecentActivity) != 0 || empty.FocusPatterns != nil {
		t.Fatalf("unknown developer: got=%+v", empty)
	}
}

func TestConcurrentRecording(t *testing.T) {
	tr := NewTracker(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.RecordInteraction(types.FocusEvent{DeveloperID: "dev", FilePath: "x.go"})
				tr.RecordFile("dev", []string{"x.go", "y.go"}[j%2])
			}
		}(i)
	}
	wg.Wait()
	if got := len(tr.RecentFiles("dev")); got == 0 || got > recentFilesLimit {
		t.Fatalf("recent files: got=%d", got)
	}
}
