package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// CommitRecord is one commit as read from history.
type CommitRecord struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Files     []string  `json:"files"`
}

// GitSource reads commit history and the HEAD tree of a local repository.
type GitSource struct {
	repo *git.Repository
	path string
}

func OpenGit(repoPath string) (*GitSource, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return &GitSource{repo: repo, path: repoPath}, nil
}

func (g *GitSource) head() (*object.Commit, error) {
	ref, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	c, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting commit: %w", err)
	}
	return c, nil
}

// Commits walks history from HEAD, newest first. limit <= 0 reads all.
func (g *GitSource) Commits(ctx context.Context, limit int) ([]CommitRecord, error) {
	head, err := g.head()
	if err != nil {
		return nil, err
	}
	iter, err := g.repo.Log(&git.LogOptions{From: head.Hash, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	var out []CommitRecord
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		files, err := changedFiles(ctx, c)
		if err != nil {
			return fmt.Errorf("commit %s: %w", c.Hash.String()[:8], err)
		}
		out = append(out, CommitRecord{
			Hash:      c.Hash.String(),
			Author:    c.Author.Name,
			Email:     c.Author.Email,
			Message:   strings.TrimSpace(c.Message),
			Timestamp: c.Author.When.UTC(),
			Files:     files,
		})
		if limit > 0 && len(out) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, err
	}
	return out, nil
}

// changedFiles diffs c against its first parent; a root commit lists its
// whole tree.
func changedFiles(ctx context.Context, c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}
	var files []string
	if c.NumParents() == 0 {
		err := tree.Files().ForEach(func(f *object.File) error {
			files = append(files, f.Name)
			return nil
		})
		return files, err
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("getting parent: %w", err)
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting parent tree: %w", err)
	}
	changes, err := parentTree.DiffContext(ctx, tree)
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		files = append(files, name)
	}
	return files, nil
}

// HeadSources returns the contents of the HEAD files accepted by keep.
func (g *GitSource) HeadSources(keep func(path string) bool) (map[string]string, error) {
	head, err := g.head()
	if err != nil {
		return nil, err
	}
	tree, err := head.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting tree: %w", err)
	}
	out := map[string]string{}
	err = tree.Files().ForEach(func(f *object.File) error {
		if keep != nil && !keep(f.Name) {
			return nil
		}
		if bin, err := f.IsBinary(); err != nil || bin {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reading file %s: %w", f.Name, err)
		}
		out[f.Name] = content
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
