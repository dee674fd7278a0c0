package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/neo4jdb"
)

type cypherStatement struct {
	Query  string
	Params map[string]any
}

type statementWriter func(ctx context.Context, stmts []cypherStatement) error

type mirrorOp struct {
	node *types.Node
	edge *types.Edge
	from types.Node
	to   types.Node
}

// Neo4jMirror copies accepted graph writes into Neo4j in batches. The queue
// is bounded; when it is full the write is dropped and counted. Mirror
// failures never reach the in-memory store.
type Neo4jMirror struct {
	log        *logger.Logger
	write      statementWriter
	queue      chan mirrorOp
	batchSize  int
	flushEvery time.Duration

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

type MirrorConfig struct {
	QueueSize  int
	BatchSize  int
	FlushEvery time.Duration
}

func (c MirrorConfig) withDefaults() MirrorConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 4096
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.FlushEvery <= 0 {
		c.FlushEvery = 500 * time.Millisecond
	}
	return c
}

// NewNeo4jMirror returns nil when client is nil.
func NewNeo4jMirror(ctx context.Context, client *neo4jdb.Client, log *logger.Logger, cfg MirrorConfig) *Neo4jMirror {
	if client == nil || client.Driver == nil {
		return nil
	}
	stmts := make([]string, 0, len(types.AllNodeKinds))
	for _, k := range types.AllNodeKinds {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT devctx_%s_id IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			strings.ToLower(string(k)), k,
		))
	}
	client.RunSchema(ctx, stmts...)

	writer := func(ctx context.Context, batch []cypherStatement) error {
		return client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) error {
			for _, st := range batch {
				res, err := tx.Run(ctx, st.Query, st.Params)
				if err != nil {
					return err
				}
				if _, err := res.Consume(ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return newNeo4jMirror(log, writer, cfg)
}

func newNeo4jMirror(log *logger.Logger, write statementWriter, cfg MirrorConfig) *Neo4jMirror {
	if log == nil {
		log = logger.Nop()
	}
	cfg = cfg.withDefaults()
	m := &Neo4jMirror{
		log:        log.With("service", "Neo4jMirror"),
		write:      write,
		queue:      make(chan mirrorOp, cfg.QueueSize),
		batchSize:  cfg.BatchSize,
		flushEvery: cfg.FlushEvery,
		done:       make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Neo4jMirror) MirrorNode(n types.Node) {
	m.enqueue(mirrorOp{node: &n})
}

func (m *Neo4jMirror) MirrorEdge(e types.Edge, from, to types.Node) {
	m.enqueue(mirrorOp{edge: &e, from: from, to: to})
}

func (m *Neo4jMirror) enqueue(op mirrorOp) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.queue <- op:
	default:
		if n := m.dropped.Add(1); n == 1 || n%1000 == 0 {
			m.log.Warn("neo4j mirror queue full; dropping writes", "dropped_total", n)
		}
	}
}

// Dropped reports how many writes were discarded because the queue was full.
func (m *Neo4jMirror) Dropped() int64 { return m.dropped.Load() }

// Close stops accepting writes and waits for the queue to drain.
func (m *Neo4jMirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.queue)
	}
	m.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if n := m.failed.Load(); n > 0 {
		return fmt.Errorf("neo4j mirror: %d batches failed", n)
	}
	return nil
}

func (m *Neo4jMirror) run() {
	defer close(m.done)
	ticker := time.NewTicker(m.flushEvery)
	defer ticker.Stop()

	batch := make([]mirrorOp, 0, m.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := m.write(ctx, buildMirrorStatements(batch))
		cancel()
		if err != nil {
			m.failed.Add(1)
			m.log.Warn("neo4j mirror batch failed", "ops", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case op, ok := <-m.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, op)
			if len(batch) >= m.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// buildMirrorStatements groups a batch into one UNWIND statement per node
// label and per (label, relationship, label) triple. Node statements come
// first so edge endpoints always exist.
func buildMirrorStatements(ops []mirrorOp) []cypherStatement {
	nodeRows := map[types.NodeKind][]map[string]any{}
	edgeRows := map[string][]map[string]any{}
	edgeShape := map[string][3]string{}

	for _, op := range ops {
		switch {
		case op.node != nil:
			n := op.node
			nodeRows[n.Kind] = append(nodeRows[n.Kind], map[string]any{
				"id":    n.ID.String(),
				"key":   n.Key,
				"props": neo4jProps(n.Attrs),
			})
		case op.edge != nil:
			e := op.edge
			shape := [3]string{string(op.from.Kind), string(e.Type), string(op.to.Kind)}
			gk := strings.Join(shape[:], "|")
			edgeShape[gk] = shape
			edgeRows[gk] = append(edgeRows[gk], map[string]any{
				"from": e.From.String(),
				"to":   e.To.String(),
				"at":   e.CreatedAt.UTC().Format(time.RFC3339Nano),
			})
		}
	}

	out := make([]cypherStatement, 0, len(nodeRows)+len(edgeRows))
	kinds := make([]string, 0, len(nodeRows))
	for k := range nodeRows {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		out = append(out, cypherStatement{
			Query: fmt.Sprintf(`
UNWIND $rows AS r
MERGE (n:%s {id: r.id})
SET n.key = r.key, n += r.props
`, k),
			Params: map[string]any{"rows": nodeRows[types.NodeKind(k)]},
		})
	}

	groups := make([]string, 0, len(edgeRows))
	for g := range edgeRows {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		s := edgeShape[g]
		out = append(out, cypherStatement{
			Query: fmt.Sprintf(`
UNWIND $rows AS r
MERGE (a:%s {id: r.from})
MERGE (b:%s {id: r.to})
MERGE (a)-[e:%s]->(b)
ON CREATE SET e.count = 1, e.first_seen_at = r.at
ON MATCH SET e.count = e.count + 1
SET e.last_seen_at = r.at
`, s[0], s[2], s[1]),
			Params: map[string]any{"rows": edgeRows[g]},
		})
	}
	return out
}

// neo4jProps converts attribute values to types the driver accepts as
// property values.
func neo4jProps(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch t := v.(type) {
		case nil:
		case string, bool, int64, float64:
			out[k] = t
		case int:
			out[k] = int64(t)
		case time.Time:
			if !t.IsZero() {
				out[k] = t.UTC().Format(time.RFC3339Nano)
			}
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
