package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/yungbote/devcontext-backend/internal/data/graph"
	types "github.com/yungbote/devcontext-backend/internal/domain"
)

type fixtureCommit struct {
	author  string
	message string
	files   map[string]string
}

func buildRepo(t *testing.T, commits []fixtureCommit) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	for i, c := range commits {
		for name, body := range c.files {
			full := filepath.Join(dir, filepath.FromSlash(name))
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
				t.Fatalf("write %s: %v", name, err)
			}
			if _, err := wt.Add(name); err != nil {
				t.Fatalf("add %s: %v", name, err)
			}
		}
		sig := &object.Signature{Name: c.author, Email: strings.ToLower(c.author) + "@example.com", When: at.Add(time.Duration(i) * time.Hour)}
		if _, err := wt.Commit(c.message, &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
	return dir
}

var fixtureHistory = []fixtureCommit{
	{
		author:  "Alice",
		message: "Add user model FEAT-7",
		files:   map[string]string{"lib/models/user_model.dart": "class User {}\n"},
	},
	{
		author:  "Bob",
		message: "User service with \"Profile Sync\"",
		files: map[string]string{
			"lib/services/user_service.dart": "import '../models/user_model.dart';\n",
			"build/generated.dart":           "// generated\n",
		},
	},
	{
		author:  "Alice",
		message: "Add logo",
		files:   map[string]string{"assets/logo.png": "\x89PNG"},
	},
}

func TestIngestRepo(t *testing.T) {
	dir := buildRepo(t, fixtureHistory)
	g := graph.NewStore(nil)
	in := New(nil, g, nil)

	res, err := in.IngestRepo(context.Background(), dir, 0)
	if err != nil {
		t.Fatalf("IngestRepo: %v", err)
	}
	if res.Commits != 2 || res.Skipped != 1 {
		t.Fatalf("commits: want=2 skipped=1 got=%+v", res)
	}
	if res.Dependencies != 1 {
		t.Fatalf("dependencies: want=1 got=%+v", res)
	}
	if g.HasFile("build/generated.dart") || g.HasFile("assets/logo.png") {
		t.Fatalf("excluded files must not be ingested")
	}

	deps := g.FileDependents("lib/models/user_model.dart")
	if len(deps) != 1 || deps[0].Path != "lib/services/user_service.dart" {
		t.Fatalf("USES edge: got=%+v", deps)
	}
	work := g.FindDeveloperWork("alice", "")
	if len(work) != 1 || work[0].Commit.Message != "Add user model FEAT-7" {
		t.Fatalf("alice work: got=%+v", work)
	}
	hist := g.FindFileHistory("lib/services/user_service.dart")
	if len(hist) != 1 || hist[0].Author == nil || hist[0].Author.Name != "Bob" {
		t.Fatalf("service history: got=%+v", hist)
	}
	if got := g.FindFeatureContributors("profile sync"); len(got) != 1 {
		t.Fatalf("feature contributors: got=%+v", got)
	}
}

func TestIngestRepoLimit(t *testing.T) {
	dir := buildRepo(t, fixtureHistory)
	g := graph.NewStore(nil)
	res, err := New(nil, g, nil).IngestRepo(context.Background(), dir, 2)
	if err != nil {
		t.Fatalf("IngestRepo: %v", err)
	}
	if res.Commits != 1 || res.Skipped != 1 {
		t.Fatalf("limit 2 reads the two newest commits: got=%+v", res)
	}
	if g.NodeCount(types.KindCommit) != 1 {
		t.Fatalf("commit nodes: want=1 got=%d", g.NodeCount(types.KindCommit))
	}
}

func TestIngestPullRequests(t *testing.T) {
	g := graph.NewStore(nil)
	in := New(nil, g, nil)
	body := `[
		{"number": 12, "title": "Leaderboard", "author": "Alice", "state": "merged",
		 "created_at": "2024-06-02T10:00:00Z", "commits": ["abc12345", "def67890"]},
		{"number": 13, "title": "Draft", "state": "open", "created_at": "2024-06-03T10:00:00Z"}
	]`
	res, err := in.IngestPullRequests(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("IngestPullRequests: %v", err)
	}
	if res.PullRequests != 2 || res.Edges != 3 {
		t.Fatalf("result: want prs=2 edges=3 got=%+v", res)
	}
	if g.NodeCount(types.KindPullRequest) != 2 || g.NodeCount(types.KindCommit) != 2 {
		t.Fatalf("nodes: prs=%d commits=%d", g.NodeCount(types.KindPullRequest), g.NodeCount(types.KindCommit))
	}

	if _, err := in.IngestPullRequests(context.Background(), strings.NewReader(`[{"number": 0}]`)); err == nil {
		t.Fatalf("non-positive PR number must fail")
	}
}
