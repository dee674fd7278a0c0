package graph

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/devcontext-backend/internal/domain"
)

type WorkItem struct {
	Commit types.Commit `json:"commit"`
	Files  []types.File `json:"files"`
}

type Contribution struct {
	Developer types.Developer `json:"developer"`
	Commits   []types.Commit  `json:"commits"`
}

type FileChange struct {
	Commit types.Commit     `json:"commit"`
	Author *types.Developer `json:"author,omitempty"`
}

type CommitDetails struct {
	Commit   types.Commit     `json:"commit"`
	Author   *types.Developer `json:"author,omitempty"`
	Files    []types.File     `json:"files"`
	Features []types.Feature  `json:"features"`
}

type RecentItem struct {
	Commit types.Commit     `json:"commit"`
	Author *types.Developer `json:"author,omitempty"`
	Files  []types.File     `json:"files"`
}

// FindDeveloperWork lists commits authored by devName (case-insensitive),
// newest first. A keyword keeps a commit when it appears in the message or in
// any modified path; kept commits always carry their full file list, so the
// filtered result is a subset of the unfiltered one.
func (s *Store) FindDeveloperWork(devName, keyword string) []WorkItem {
	devKey := types.Developer{Name: devName}.NaturalKey()
	if devKey == "" {
		return []WorkItem{}
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))

	s.mu.RLock()
	defer s.mu.RUnlock()
	devID := NodeID(types.KindDeveloper, devKey)
	if _, ok := s.nodes[devID]; !ok {
		return []WorkItem{}
	}

	out := []WorkItem{}
	for _, cn := range s.neighborsLocked(devID, types.RelAuthored, true) {
		if cn.Kind != types.KindCommit {
			continue
		}
		commit := types.CommitFromNode(*cn)
		files := s.commitFilesLocked(cn.ID)
		if kw != "" && !commitMatches(commit, files, kw) {
			continue
		}
		out = append(out, WorkItem{Commit: commit, Files: files})
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Commit, out[j].Commit) })
	return out
}

func commitMatches(c types.Commit, files []types.File, kw string) bool {
	if strings.Contains(strings.ToLower(c.Message), kw) {
		return true
	}
	for _, f := range files {
		if strings.Contains(strings.ToLower(f.Path), kw) {
			return true
		}
	}
	return false
}

// FindFeatureContributors returns developers whose authored commits mention
// featureName in the message (case-insensitive). Developers are ordered by
// name; their commits newest first.
func (s *Store) FindFeatureContributors(featureName string) []Contribution {
	needle := strings.ToLower(strings.TrimSpace(featureName))
	if needle == "" {
		return []Contribution{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byDev := map[uuid.UUID]*Contribution{}
	for _, cid := range s.byKind[types.KindCommit] {
		cn := s.nodes[cid]
		commit := types.CommitFromNode(*cn)
		if !strings.Contains(strings.ToLower(commit.Message), needle) {
			continue
		}
		for _, dn := range s.neighborsLocked(cid, types.RelAuthored, false) {
			if dn.Kind != types.KindDeveloper {
				continue
			}
			c, ok := byDev[dn.ID]
			if !ok {
				c = &Contribution{Developer: types.DeveloperFromNode(*dn)}
				byDev[dn.ID] = c
			}
			c.Commits = append(c.Commits, commit)
		}
	}

	out := make([]Contribution, 0, len(byDev))
	for _, c := range byDev {
		sortCommitsDesc(c.Commits)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Developer.Name) < strings.ToLower(out[j].Developer.Name)
	})
	return out
}

// FindFileHistory returns every commit that modified filePath ordered by
// commit timestamp, newest first.
func (s *Store) FindFileHistory(filePath string) []FileChange {
	path := strings.TrimSpace(filePath)
	if path == "" {
		return []FileChange{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	fileID := NodeID(types.KindFile, path)
	if _, ok := s.nodes[fileID]; !ok {
		return []FileChange{}
	}

	out := []FileChange{}
	for _, cn := range s.neighborsLocked(fileID, types.RelModifies, false) {
		if cn.Kind != types.KindCommit {
			continue
		}
		out = append(out, FileChange{
			Commit: types.CommitFromNode(*cn),
			Author: s.commitAuthorLocked(cn.ID),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Commit, out[j].Commit) })
	return out
}

// FindCommit resolves a commit by its full hash, or by a unique-enough hash
// prefix of at least 4 characters.
func (s *Store) FindCommit(hashPrefix string) (CommitDetails, bool) {
	prefix := strings.ToLower(strings.TrimSpace(hashPrefix))
	if prefix == "" {
		return CommitDetails{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *types.Node
	if id, ok := s.byKind[types.KindCommit][prefix]; ok {
		match = s.nodes[id]
	} else {
		if len(prefix) < minCommitPrefix {
			return CommitDetails{}, false
		}
		keys := make([]string, 0, len(s.byKind[types.KindCommit]))
		for key := range s.byKind[types.KindCommit] {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		}
		if len(keys) == 0 {
			return CommitDetails{}, false
		}
		sort.Strings(keys)
		match = s.nodes[s.byKind[types.KindCommit][keys[0]]]
	}

	return CommitDetails{
		Commit:   types.CommitFromNode(*match),
		Author:   s.commitAuthorLocked(match.ID),
		Files:    s.commitFilesLocked(match.ID),
		Features: s.commitFeaturesLocked(match.ID),
	}, true
}

const minCommitPrefix = 4

// RecentWork returns the newest commits across all developers.
func (s *Store) RecentWork(limit int) []RecentItem {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	commits := make([]*types.Node, 0, len(s.byKind[types.KindCommit]))
	for _, id := range s.byKind[types.KindCommit] {
		commits = append(commits, s.nodes[id])
	}
	sort.SliceStable(commits, func(i, j int) bool {
		return newer(types.CommitFromNode(*commits[i]), types.CommitFromNode(*commits[j]))
	})
	if len(commits) > limit {
		commits = commits[:limit]
	}

	out := make([]RecentItem, 0, len(commits))
	for _, cn := range commits {
		out = append(out, RecentItem{
			Commit: types.CommitFromNode(*cn),
			Author: s.commitAuthorLocked(cn.ID),
			Files:  s.commitFilesLocked(cn.ID),
		})
	}
	return out
}

// CommitFeatures returns features implemented by the commit with hash.
func (s *Store) CommitFeatures(hash string) []types.Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := NodeID(types.KindCommit, types.Commit{Hash: hash}.NaturalKey())
	if _, ok := s.nodes[id]; !ok {
		return []types.Feature{}
	}
	return s.commitFeaturesLocked(id)
}

// CommitFiles returns the files modified by the commit with hash.
func (s *Store) CommitFiles(hash string) []types.File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := NodeID(types.KindCommit, types.Commit{Hash: hash}.NaturalKey())
	if _, ok := s.nodes[id]; !ok {
		return []types.File{}
	}
	return s.commitFilesLocked(id)
}

// FileDependents returns files that USE path.
func (s *Store) FileDependents(path string) []types.File {
	return s.fileNeighbors(path, false)
}

// FileDependencies returns files that path USES.
func (s *Store) FileDependencies(path string) []types.File {
	return s.fileNeighbors(path, true)
}

func (s *Store) fileNeighbors(path string, outgoing bool) []types.File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := NodeID(types.KindFile, strings.TrimSpace(path))
	out := []types.File{}
	for _, n := range s.neighborsLocked(id, types.RelUses, outgoing) {
		if n.Kind == types.KindFile {
			out = append(out, types.FileFromNode(*n))
		}
	}
	return out
}

func newer(a, b types.Commit) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.Hash < b.Hash
	}
	return a.Timestamp.After(b.Timestamp)
}
