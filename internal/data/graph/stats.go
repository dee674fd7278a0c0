package graph

import (
	"strings"

	types "github.com/yungbote/devcontext-backend/internal/domain"
)

type Stats struct {
	TotalNodes  int                    `json:"total_nodes"`
	TotalEdges  int                    `json:"total_edges"`
	NodesByKind map[types.NodeKind]int `json:"nodes_by_kind"`
	EdgesByType map[types.RelType]int  `json:"edges_by_type"`
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalNodes:  len(s.nodes),
		TotalEdges:  len(s.edges),
		NodesByKind: make(map[types.NodeKind]int, len(types.AllNodeKinds)),
		EdgesByType: make(map[types.RelType]int, len(types.AllRelTypes)),
	}
	for _, k := range types.AllNodeKinds {
		st.NodesByKind[k] = len(s.byKind[k])
	}
	for _, r := range types.AllRelTypes {
		st.EdgesByType[r] = 0
	}
	for _, e := range s.edges {
		st.EdgesByType[e.Type]++
	}
	return st
}

var sampleQueries = []string{
	"What has Alice worked on for leaderboard?",
	"Who last changed lib/screens/leaderboard_screen.dart?",
	"Who worked on authentication?",
	"Show me details of commit a1b2c3d4",
	"What is the latest work?",
	"How does the scoring service compute streaks?",
}

// SampleQueries returns example questions the router understands.
func (s *Store) SampleQueries() []string {
	out := make([]string, len(sampleQueries))
	copy(out, sampleQueries)
	return out
}

// FindFile returns the File node recorded for path.
func (s *Store) FindFile(path string) (types.File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[NodeID(types.KindFile, strings.TrimSpace(path))]
	if !ok {
		return types.File{}, false
	}
	return types.FileFromNode(*n), true
}

// CommitsModifying returns commits touching path, newest first.
func (s *Store) CommitsModifying(path string) []types.Commit {
	hist := s.FindFileHistory(path)
	out := make([]types.Commit, 0, len(hist))
	for _, h := range hist {
		out = append(out, h.Commit)
	}
	return out
}

// FilePaths lists every recorded file path.
func (s *Store) FilePaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byKind[types.KindFile]))
	for key := range s.byKind[types.KindFile] {
		out = append(out, key)
	}
	return out
}
