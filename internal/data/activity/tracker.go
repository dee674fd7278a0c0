package activity

import (
	"sort"
	"strings"
	"sync"
	"time"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

const (
	recentFilesLimit     = 10
	interactionsPerFile  = 200
	insightWindow        = 7 * 24 * time.Hour
	insightRecentLimit   = 5
	focusPatternMinCount = 3
)

type Interaction struct {
	At           time.Time `json:"timestamp"`
	EventType    string    `json:"event_type"`
	FunctionName string    `json:"function_name,omitempty"`
	ClassName    string    `json:"class_name,omitempty"`
}

type workflow struct {
	recent      []string
	transitions map[string]map[string]int
}

// Tracker holds per-developer focus history: file interactions for insights,
// the last files touched, and how often one file followed another.
type Tracker struct {
	log *logger.Logger
	now func() time.Time

	mu           sync.RWMutex
	interactions map[string]map[string][]Interaction
	workflows    map[string]*workflow
}

func NewTracker(log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{
		log:          log.With("component", "ActivityTracker"),
		now:          time.Now,
		interactions: map[string]map[string][]Interaction{},
		workflows:    map[string]*workflow{},
	}
}

// WithClock replaces the tracker clock. Used by tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	if now != nil {
		t.now = now
	}
	return t
}

// RecordInteraction appends ev to the developer's history for its file.
func (t *Tracker) RecordInteraction(ev types.FocusEvent) {
	dev, path := strings.TrimSpace(ev.DeveloperID), strings.TrimSpace(ev.FilePath)
	if dev == "" || path == "" {
		return
	}
	at := ev.Timestamp
	if at.IsZero() {
		at = t.now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	byFile := t.interactions[dev]
	if byFile == nil {
		byFile = map[string][]Interaction{}
		t.interactions[dev] = byFile
	}
	list := append(byFile[path], Interaction{
		At:           at.UTC(),
		EventType:    ev.EventType,
		FunctionName: ev.FunctionName,
		ClassName:    ev.ClassName,
	})
	if len(list) > interactionsPerFile {
		list = list[len(list)-interactionsPerFile:]
	}
	byFile[path] = list
}

// RecordFile appends path to the developer's recent files and counts the
// transition from the previous file. Repeated focus on the same file is
// collapsed.
func (t *Tracker) RecordFile(developerID, path string) {
	dev, path := strings.TrimSpace(developerID), strings.TrimSpace(path)
	if dev == "" || path == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	wf := t.workflows[dev]
	if wf == nil {
		wf = &workflow{transitions: map[string]map[string]int{}}
		t.workflows[dev] = wf
	}
	if n := len(wf.recent); n > 0 {
		prev := wf.recent[n-1]
		if prev == path {
			return
		}
		if wf.transitions[prev] == nil {
			wf.transitions[prev] = map[string]int{}
		}
		wf.transitions[prev][path]++
	}
	wf.recent = append(wf.recent, path)
	if len(wf.recent) > recentFilesLimit {
		wf.recent = wf.recent[len(wf.recent)-recentFilesLimit:]
	}
}

// RecentFiles returns the developer's last files, oldest first.
func (t *Tracker) RecentFiles(developerID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	wf := t.workflows[strings.TrimSpace(developerID)]
	if wf == nil {
		return []string{}
	}
	return append([]string(nil), wf.recent...)
}

type Transition struct {
	To    string `json:"to"`
	Count int    `json:"count"`
}

// TransitionsFrom lists files the developer moved to after from, most
// frequent first.
func (t *Tracker) TransitionsFrom(developerID, from string) []Transition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	wf := t.workflows[strings.TrimSpace(developerID)]
	if wf == nil {
		return []Transition{}
	}
	out := make([]Transition, 0, len(wf.transitions[from]))
	for to, n := range wf.transitions[from] {
		out = append(out, Transition{To: to, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].To < out[j].To
	})
	return out
}

type FunctionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type FocusPatterns struct {
	FrequentlyEditedFunctions []FunctionCount `json:"frequently_edited_functions"`
	InteractionCount          int             `json:"interaction_count"`
}

type Insights struct {
	CurrentDeveloper string         `json:"current_developer"`
	ExpertiseLevel   string         `json:"expertise_level"`
	RecentActivity   []Interaction  `json:"recent_activity"`
	FocusPatterns    *FocusPatterns `json:"focus_patterns,omitempty"`
}

// Insights summarizes the developer's history with one file.
func (t *Tracker) Insights(developerID, path string) Insights {
	dev := strings.TrimSpace(developerID)
	t.mu.RLock()
	list := append([]Interaction(nil), t.interactions[dev][strings.TrimSpace(path)]...)
	t.mu.RUnlock()

	out := Insights{
		CurrentDeveloper: dev,
		ExpertiseLevel:   expertise(len(list)),
		RecentActivity:   []Interaction{},
	}
	cutoff := t.now().Add(-insightWindow)
	for _, it := range list {
		if it.At.After(cutoff) {
			out.RecentActivity = append(out.RecentActivity, it)
		}
	}
	if n := len(out.RecentActivity); n > insightRecentLimit {
		out.RecentActivity = out.RecentActivity[n-insightRecentLimit:]
	}

	if len(list) >= focusPatternMinCount {
		counts := map[string]int{}
		for _, it := range list {
			if it.FunctionName != "" {
				counts[it.FunctionName]++
			}
		}
		if len(counts) > 0 {
			fns := make([]FunctionCount, 0, len(counts))
			for name, n := range counts {
				fns = append(fns, FunctionCount{Name: name, Count: n})
			}
			sort.Slice(fns, func(i, j int) bool {
				if fns[i].Count != fns[j].Count {
					return fns[i].Count > fns[j].Count
				}
				return fns[i].Name < fns[j].Name
			})
			if len(fns) > 3 {
				fns = fns[:3]
			}
			out.FocusPatterns = &FocusPatterns{FrequentlyEditedFunctions: fns, InteractionCount: len(list)}
		}
	}
	return out
}

func expertise(interactions int) string {
	switch {
	case interactions > 10:
		return "experienced"
	case interactions > 3:
		return "intermediate"
	default:
		return "novice"
	}
}

// Stats reports how many developers have a workflow model and how many
// distinct transitions were learned.
func (t *Tracker) Stats() (developers, transitions int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, wf := range t.workflows {
		for _, to := range wf.transitions {
			transitions += len(to)
		}
	}
	return len(t.workflows), transitions
}
