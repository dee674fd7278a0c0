package contextengine

import (
	"sort"
	"sync"
	"time"
)

const (
	eventLogMax      = 1000
	eventLogKeep     = 500
	activeFileWindow = 100
	activeFileLimit  = 5
)

type Event struct {
	At           time.Time `json:"timestamp"`
	DeveloperID  string    `json:"developer_id"`
	FilePath     string    `json:"filepath"`
	EventType    string    `json:"event_type"`
	FunctionName string    `json:"function_name,omitempty"`
	ClassName    string    `json:"class_name,omitempty"`
	Cache        string    `json:"cache"`
	AssemblyTime float64   `json:"assembly_time"`
	Confidence   float64   `json:"confidence_score"`
	RelatedFiles int       `json:"related_files_count"`
	Docs         int       `json:"documentation_count"`
}

// eventLog is a bounded rolling log. Once it passes eventLogMax entries it
// keeps only the newest eventLogKeep.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if len(l.events) > eventLogMax {
		kept := make([]Event, eventLogKeep)
		copy(kept, l.events[len(l.events)-eventLogKeep:])
		l.events = kept
	}
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

type FileCount struct {
	FilePath    string `json:"filepath"`
	AccessCount int    `json:"access_count"`
}

type UsageStats struct {
	TotalContextEvents     int         `json:"total_context_events"`
	EventsLast24h          int         `json:"events_last_24h"`
	UniqueDevelopers       int         `json:"unique_developers"`
	UniqueFilesAccessed    int         `json:"unique_files_accessed"`
	AverageAssemblyTime    float64     `json:"average_assembly_time"`
	AverageConfidenceScore float64     `json:"average_confidence_score"`
	CacheSize              int         `json:"cache_size"`
	MostActiveFiles        []FileCount `json:"most_active_files"`
	SystemHealth           string      `json:"system_health"`
}

func usageStats(events []Event, now time.Time) UsageStats {
	out := UsageStats{
		TotalContextEvents: len(events),
		MostActiveFiles:    []FileCount{},
		SystemHealth:       "operational",
	}
	devs := map[string]struct{}{}
	files := map[string]struct{}{}
	cutoff := now.Add(-24 * time.Hour)
	var sumTime, sumConf float64
	for _, e := range events {
		devs[e.DeveloperID] = struct{}{}
		files[e.FilePath] = struct{}{}
		if e.At.After(cutoff) {
			out.EventsLast24h++
			sumTime += e.AssemblyTime
			sumConf += e.Confidence
		}
	}
	out.UniqueDevelopers = len(devs)
	out.UniqueFilesAccessed = len(files)
	if out.EventsLast24h > 0 {
		out.AverageAssemblyTime = sumTime / float64(out.EventsLast24h)
		out.AverageConfidenceScore = sumConf / float64(out.EventsLast24h)
	}

	window := events
	if len(window) > activeFileWindow {
		window = window[len(window)-activeFileWindow:]
	}
	counts := map[string]int{}
	for _, e := range window {
		counts[e.FilePath]++
	}
	for path, n := range counts {
		out.MostActiveFiles = append(out.MostActiveFiles, FileCount{FilePath: path, AccessCount: n})
	}
	sort.Slice(out.MostActiveFiles, func(i, j int) bool {
		a, b := out.MostActiveFiles[i], out.MostActiveFiles[j]
		if a.AccessCount != b.AccessCount {
			return a.AccessCount > b.AccessCount
		}
		return a.FilePath < b.FilePath
	})
	if len(out.MostActiveFiles) > activeFileLimit {
		out.MostActiveFiles = out.MostActiveFiles[:activeFileLimit]
	}
	return out
}
