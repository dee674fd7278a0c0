package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

// GraphWriter is the write side of the relationship graph.
type GraphWriter interface {
	UpsertDeveloper(d types.Developer) (uuid.UUID, error)
	UpsertCommit(c types.Commit) (uuid.UUID, error)
	UpsertFile(f types.File) (uuid.UUID, error)
	UpsertFeature(f types.Feature) (uuid.UUID, error)
	UpsertPullRequest(p types.PullRequest) (uuid.UUID, error)
	AddEdge(from uuid.UUID, rel types.RelType, to uuid.UUID, attrs map[string]any)
}

type Result struct {
	Commits      int `json:"commits"`
	Skipped      int `json:"skipped"`
	Files        int `json:"files"`
	Features     int `json:"features"`
	Dependencies int `json:"dependencies"`
	PullRequests int `json:"pull_requests"`
	Edges        int `json:"edges"`
}

func (r *Result) add(o Result) {
	r.Commits += o.Commits
	r.Skipped += o.Skipped
	r.Files += o.Files
	r.Features += o.Features
	r.Dependencies += o.Dependencies
	r.PullRequests += o.PullRequests
	r.Edges += o.Edges
}

type Ingester struct {
	log    *logger.Logger
	graph  GraphWriter
	filter *Filter
}

func New(log *logger.Logger, g GraphWriter, f *Filter) *Ingester {
	if log == nil {
		log = logger.Nop()
	}
	if f == nil {
		f, _ = NewFilter()
	}
	return &Ingester{log: log.With("service", "Ingester"), graph: g, filter: f}
}

// IngestCommits writes developers, commits, important files and extracted
// features with their AUTHORED, MODIFIES and IMPLEMENTS edges. Commits that
// touch no important file are skipped.
func (in *Ingester) IngestCommits(ctx context.Context, commits []CommitRecord) (Result, error) {
	var res Result
	for _, c := range commits {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var files []string
		for _, f := range c.Files {
			if in.filter.Important(f) {
				files = append(files, f)
			}
		}
		if len(files) == 0 {
			res.Skipped++
			in.log.Debug("commit skipped, no important files", "hash", c.Hash)
			continue
		}
		r, err := in.ingestCommit(c, files)
		if err != nil {
			return res, fmt.Errorf("ingest commit %s: %w", c.Hash, err)
		}
		res.add(r)
	}
	return res, nil
}

func (in *Ingester) ingestCommit(c CommitRecord, files []string) (Result, error) {
	var res Result
	devID, err := in.graph.UpsertDeveloper(types.Developer{Name: c.Author, Email: c.Email})
	if err != nil {
		return res, err
	}
	commitID, err := in.graph.UpsertCommit(types.Commit{Hash: c.Hash, Message: c.Message, Author: c.Author, Timestamp: c.Timestamp})
	if err != nil {
		return res, err
	}
	in.graph.AddEdge(devID, types.RelAuthored, commitID, nil)
	res.Commits++
	res.Edges++

	for _, p := range files {
		fileID, err := in.graph.UpsertFile(types.File{Path: p, Language: languageOf(p)})
		if err != nil {
			return res, err
		}
		in.graph.AddEdge(commitID, types.RelModifies, fileID, nil)
		res.Files++
		res.Edges++
	}
	for _, f := range ExtractFeatures(c.Message) {
		featID, err := in.graph.UpsertFeature(f)
		if err != nil {
			return res, err
		}
		in.graph.AddEdge(commitID, types.RelImplements, featID, nil)
		res.Features++
		res.Edges++
	}
	return res, nil
}

// IngestDependencies records File USES File edges.
func (in *Ingester) IngestDependencies(deps []Dependency) (Result, error) {
	var res Result
	for _, d := range deps {
		if !in.filter.Important(d.From) || !in.filter.Important(d.To) {
			continue
		}
		from, err := in.graph.UpsertFile(types.File{Path: d.From, Language: languageOf(d.From)})
		if err != nil {
			return res, err
		}
		to, err := in.graph.UpsertFile(types.File{Path: d.To, Language: languageOf(d.To)})
		if err != nil {
			return res, err
		}
		in.graph.AddEdge(from, types.RelUses, to, nil)
		res.Dependencies++
		res.Edges++
	}
	return res, nil
}

// IngestRepo reads up to limit commits from the repository at repoPath plus
// the import graph of its HEAD tree.
func (in *Ingester) IngestRepo(ctx context.Context, repoPath string, limit int) (Result, error) {
	start := time.Now()
	src, err := OpenGit(repoPath)
	if err != nil {
		return Result{}, err
	}
	commits, err := src.Commits(ctx, limit)
	if err != nil {
		return Result{}, err
	}
	res, err := in.IngestCommits(ctx, commits)
	if err != nil {
		return res, err
	}

	sources, err := src.HeadSources(func(p string) bool {
		return in.filter.Important(p) && (strings.HasSuffix(p, ".dart") || strings.HasSuffix(p, ".py"))
	})
	if err != nil {
		in.log.Warn("reading HEAD sources failed; skipping import graph", "error", err)
	} else {
		deps, err := in.IngestDependencies(ResolveImports(sources))
		if err != nil {
			return res, err
		}
		res.add(deps)
	}

	in.log.Info("repository ingested",
		"repo", repoPath,
		"commits", res.Commits,
		"skipped", res.Skipped,
		"files", res.Files,
		"features", res.Features,
		"dependencies", res.Dependencies,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// PullRequestRecord is the JSON shape accepted by IngestPullRequests.
type PullRequestRecord struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	Commits   []string  `json:"commits"`
}

// IngestPullRequests reads a JSON array of pull requests and links them to
// their author (CREATED) and commits (INCLUDES).
func (in *Ingester) IngestPullRequests(ctx context.Context, r io.Reader) (Result, error) {
	var prs []PullRequestRecord
	if err := json.NewDecoder(r).Decode(&prs); err != nil {
		return Result{}, fmt.Errorf("decode pull requests: %w", err)
	}
	var res Result
	for _, pr := range prs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		prID, err := in.graph.UpsertPullRequest(types.PullRequest{
			Number:    pr.Number,
			Title:     pr.Title,
			Author:    pr.Author,
			State:     pr.State,
			CreatedAt: pr.CreatedAt,
		})
		if err != nil {
			return res, fmt.Errorf("pull request %d: %w", pr.Number, err)
		}
		res.PullRequests++
		if strings.TrimSpace(pr.Author) != "" {
			devID, err := in.graph.UpsertDeveloper(types.Developer{Name: pr.Author})
			if err != nil {
				return res, err
			}
			in.graph.AddEdge(devID, types.RelCreated, prID, nil)
			res.Edges++
		}
		for _, h := range pr.Commits {
			commitID, err := in.graph.UpsertCommit(types.Commit{Hash: h})
			if err != nil {
				return res, err
			}
			in.graph.AddEdge(prID, types.RelIncludes, commitID, nil)
			res.Edges++
		}
	}
	return res, nil
}

func languageOf(p string) string {
	if lang := types.LanguageOf(p); lang != types.LanguageUnknown {
		return lang
	}
	return ""
}
