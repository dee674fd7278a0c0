package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

var nodeIDNamespace = uuid.MustParse("5b7c2f0e-4d1a-4c63-9a58-2f1e0b7d9c41")

// NodeID derives the stable id for a natural key.
func NodeID(kind types.NodeKind, naturalKey string) uuid.UUID {
	return uuid.NewSHA1(nodeIDNamespace, []byte(string(kind)+"|"+naturalKey))
}

// Mirror receives every accepted write. Implementations must not block.
type Mirror interface {
	MirrorNode(n types.Node)
	MirrorEdge(e types.Edge, from, to types.Node)
	Close(ctx context.Context) error
}

// Store is the in-memory relationship graph. It is append-only: nodes and
// edges are never updated in place or removed. A single RWMutex guards all
// mutation; edges are indexed by node id and relationship type in both
// directions.
type Store struct {
	log    *logger.Logger
	mirror Mirror
	now    func() time.Time

	mu     sync.RWMutex
	nodes  map[uuid.UUID]*types.Node
	byKind map[types.NodeKind]map[string]uuid.UUID
	edges  []types.Edge
	out    map[uuid.UUID]map[types.RelType][]int
	in     map[uuid.UUID]map[types.RelType][]int
}

type Option func(*Store)

func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func NewStore(log *logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	s := &Store{
		log:    log.With("service", "GraphStore"),
		now:    time.Now,
		nodes:  map[uuid.UUID]*types.Node{},
		byKind: map[types.NodeKind]map[string]uuid.UUID{},
		out:    map[uuid.UUID]map[types.RelType][]int{},
		in:     map[uuid.UUID]map[types.RelType][]int{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close flushes and releases the mirror, if any.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.mirror == nil {
		return nil
	}
	return s.mirror.Close(ctx)
}

func validKind(kind types.NodeKind) bool {
	for _, k := range types.AllNodeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// UpsertNode returns the id for (kind, naturalKey), creating the node on first
// sight. Later upserts only fill attributes that were missing; existing values
// are never overwritten.
func (s *Store) UpsertNode(kind types.NodeKind, naturalKey string, attrs map[string]any) (uuid.UUID, error) {
	key := strings.TrimSpace(naturalKey)
	if !validKind(kind) {
		return uuid.Nil, fmt.Errorf("graph: unknown node kind %q: %w", kind, pkgerrors.ErrInvalidArgument)
	}
	if key == "" {
		return uuid.Nil, fmt.Errorf("graph: empty natural key for %s: %w", kind, pkgerrors.ErrInvalidArgument)
	}
	id := NodeID(kind, key)

	s.mu.Lock()
	n, exists := s.nodes[id]
	if !exists {
		n = &types.Node{ID: id, Kind: kind, Key: key, Attrs: map[string]any{}, CreatedAt: s.now().UTC()}
		s.nodes[id] = n
		if s.byKind[kind] == nil {
			s.byKind[kind] = map[string]uuid.UUID{}
		}
		s.byKind[kind][key] = id
	}
	changed := !exists
	for k, v := range attrs {
		if isZeroAttr(v) {
			continue
		}
		if cur, ok := n.Attrs[k]; ok && !isZeroAttr(cur) {
			continue
		}
		n.Attrs[k] = v
		changed = true
	}
	snapshot := cloneNode(n)
	s.mu.Unlock()

	if changed && s.mirror != nil {
		s.mirror.MirrorNode(snapshot)
	}
	return id, nil
}

func isZeroAttr(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case time.Time:
		return t.IsZero()
	default:
		return false
	}
}

func (s *Store) UpsertDeveloper(d types.Developer) (uuid.UUID, error) {
	return s.UpsertNode(types.KindDeveloper, d.NaturalKey(), d.Attrs())
}

func (s *Store) UpsertCommit(c types.Commit) (uuid.UUID, error) {
	return s.UpsertNode(types.KindCommit, c.NaturalKey(), c.Attrs())
}

func (s *Store) UpsertFile(f types.File) (uuid.UUID, error) {
	return s.UpsertNode(types.KindFile, f.NaturalKey(), f.Attrs())
}

func (s *Store) UpsertFeature(f types.Feature) (uuid.UUID, error) {
	return s.UpsertNode(types.KindFeature, f.NaturalKey(), f.Attrs())
}

func (s *Store) UpsertPullRequest(p types.PullRequest) (uuid.UUID, error) {
	if p.Number <= 0 {
		return uuid.Nil, fmt.Errorf("graph: pull request number must be positive: %w", pkgerrors.ErrInvalidArgument)
	}
	return s.UpsertNode(types.KindPullRequest, p.NaturalKey(), p.Attrs())
}

// AddEdge records one observed relationship. It always succeeds; duplicates
// are kept. Edges whose endpoints are unknown are stored but never traversed.
func (s *Store) AddEdge(from uuid.UUID, rel types.RelType, to uuid.UUID, attrs map[string]any) {
	e := types.Edge{From: from, To: to, Type: rel, CreatedAt: s.now().UTC()}
	if len(attrs) > 0 {
		e.Attrs = make(map[string]any, len(attrs))
		for k, v := range attrs {
			e.Attrs[k] = v
		}
	}

	s.mu.Lock()
	idx := len(s.edges)
	s.edges = append(s.edges, e)
	if s.out[from] == nil {
		s.out[from] = map[types.RelType][]int{}
	}
	s.out[from][rel] = append(s.out[from][rel], idx)
	if s.in[to] == nil {
		s.in[to] = map[types.RelType][]int{}
	}
	s.in[to][rel] = append(s.in[to][rel], idx)
	fromNode, okFrom := s.nodes[from]
	toNode, okTo := s.nodes[to]
	var fromSnap, toSnap types.Node
	if okFrom && okTo {
		fromSnap, toSnap = cloneNode(fromNode), cloneNode(toNode)
	}
	s.mu.Unlock()

	if s.mirror != nil && okFrom && okTo {
		s.mirror.MirrorEdge(e, fromSnap, toSnap)
	}
}

func (s *Store) GetNode(id uuid.UUID) (types.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return types.Node{}, false
	}
	return cloneNode(n), true
}

// NodeCount returns the number of nodes of kind.
func (s *Store) NodeCount(kind types.NodeKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKind[kind])
}

// HasFile reports whether path was ever recorded as a File node.
func (s *Store) HasFile(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[NodeID(types.KindFile, strings.TrimSpace(path))]
	return ok
}

// ---- locked helpers (callers hold s.mu) ----

func (s *Store) neighborsLocked(id uuid.UUID, rel types.RelType, outgoing bool) []*types.Node {
	var idxs []int
	if outgoing {
		idxs = s.out[id][rel]
	} else {
		idxs = s.in[id][rel]
	}
	if len(idxs) == 0 {
		return nil
	}
	out := make([]*types.Node, 0, len(idxs))
	seen := make(map[uuid.UUID]struct{}, len(idxs))
	for _, i := range idxs {
		other := s.edges[i].To
		if !outgoing {
			other = s.edges[i].From
		}
		if _, dup := seen[other]; dup {
			continue
		}
		n, ok := s.nodes[other]
		if !ok {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (s *Store) commitFilesLocked(commitID uuid.UUID) []types.File {
	nodes := s.neighborsLocked(commitID, types.RelModifies, true)
	files := make([]types.File, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == types.KindFile {
			files = append(files, types.FileFromNode(*n))
		}
	}
	return files
}

func (s *Store) commitAuthorLocked(commitID uuid.UUID) *types.Developer {
	for _, n := range s.neighborsLocked(commitID, types.RelAuthored, false) {
		if n.Kind == types.KindDeveloper {
			d := types.DeveloperFromNode(*n)
			return &d
		}
	}
	return nil
}

func (s *Store) commitFeaturesLocked(commitID uuid.UUID) []types.Feature {
	nodes := s.neighborsLocked(commitID, types.RelImplements, true)
	out := make([]types.Feature, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == types.KindFeature {
			out = append(out, types.FeatureFromNode(*n))
		}
	}
	return out
}

func sortCommitsDesc(commits []types.Commit) {
	sort.SliceStable(commits, func(i, j int) bool { return newer(commits[i], commits[j]) })
}

func cloneNode(n *types.Node) types.Node {
	out := *n
	out.Attrs = make(map[string]any, len(n.Attrs))
	for k, v := range n.Attrs {
		out.Attrs[k] = v
	}
	return out
}
