// Package graphtest builds small populated graphs for tests.
package graphtest

import (
	"testing"
	"time"

	"github.com/yungbote/devcontext-backend/internal/data/graph"
	types "github.com/yungbote/devcontext-backend/internal/domain"
)

type Commit struct {
	Hash     string
	Message  string
	Author   string
	At       time.Time
	Files    []string
	Features []string
}

var base = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

// Commits is the default fixture history, oldest first.
var Commits = []Commit{
	{
		Hash:     "a1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0",
		Message:  "Implement leaderboard FE-GAME-02",
		Author:   "Alice",
		At:       base,
		Files:    []string{"lib/models/score_model.dart", "lib/services/score_service.dart"},
		Features: []string{"leaderboard"},
	},
	{
		Hash:    "d4c3b2a1f6e5d4c3b2a1f6e5d4c3b2a1f6e5d4c3",
		Message: "Update auth flow",
		Author:  "Carol",
		At:      base.Add(24 * time.Hour),
		Files:   []string{"lib/services/auth_service.dart"},
	},
	{
		Hash:    "b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0a1",
		Message: "Fix score service rounding bug",
		Author:  "Bob",
		At:      base.Add(48 * time.Hour),
		Files:   []string{"lib/services/score_service.dart", "test/score_service_test.dart"},
	},
	{
		Hash:     "c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0a1b2",
		Message:  "Add leaderboard screen",
		Author:   "Alice",
		At:       base.Add(120 * time.Hour),
		Files:    []string{"lib/screens/leaderboard_screen.dart", "lib/services/score_service.dart"},
		Features: []string{"leaderboard"},
	},
}

// Uses lists File USES File pairs of the default fixture.
var Uses = [][2]string{
	{"lib/services/score_service.dart", "lib/models/score_model.dart"},
	{"lib/screens/leaderboard_screen.dart", "lib/services/score_service.dart"},
}

// Seeded returns a store holding Commits and Uses.
func Seeded(t testing.TB) *graph.Store {
	t.Helper()
	s := graph.NewStore(nil)
	for _, c := range Commits {
		AddCommit(t, s, c)
	}
	for _, u := range Uses {
		AddUses(t, s, u[0], u[1])
	}
	return s
}

func AddCommit(t testing.TB, s *graph.Store, c Commit) {
	t.Helper()
	devID, err := s.UpsertDeveloper(types.Developer{Name: c.Author})
	if err != nil {
		t.Fatalf("UpsertDeveloper(%s): %v", c.Author, err)
	}
	commitID, err := s.UpsertCommit(types.Commit{Hash: c.Hash, Message: c.Message, Author: c.Author, Timestamp: c.At})
	if err != nil {
		t.Fatalf("UpsertCommit(%s): %v", c.Hash, err)
	}
	s.AddEdge(devID, types.RelAuthored, commitID, nil)
	for _, f := range c.Files {
		fileID, err := s.UpsertFile(types.File{Path: f, Language: languageOf(f)})
		if err != nil {
			t.Fatalf("UpsertFile(%s): %v", f, err)
		}
		s.AddEdge(commitID, types.RelModifies, fileID, nil)
	}
	for _, name := range c.Features {
		featID, err := s.UpsertFeature(types.Feature{Name: name})
		if err != nil {
			t.Fatalf("UpsertFeature(%s): %v", name, err)
		}
		s.AddEdge(commitID, types.RelImplements, featID, nil)
	}
}

func AddUses(t testing.TB, s *graph.Store, from, to string) {
	t.Helper()
	a, err := s.UpsertFile(types.File{Path: from, Language: languageOf(from)})
	if err != nil {
		t.Fatalf("UpsertFile(%s): %v", from, err)
	}
	b, err := s.UpsertFile(types.File{Path: to, Language: languageOf(to)})
	if err != nil {
		t.Fatalf("UpsertFile(%s): %v", to, err)
	}
	s.AddEdge(a, types.RelUses, b, nil)
}

func languageOf(p string) string {
	if lang := types.LanguageOf(p); lang != types.LanguageUnknown {
		return lang
	}
	return ""
}
