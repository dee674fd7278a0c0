package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/yungbote/devcontext-backend/internal/data/graph"
	"github.com/yungbote/devcontext-backend/internal/modules/ingest"
	"github.com/yungbote/devcontext-backend/internal/platform/envutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/neo4jdb"
)

type globList []string

func (l *globList) String() string { return strings.Join(*l, ",") }
func (l *globList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// ingest loads a repository's history, and optionally a pull request export,
// into the relationship graph and mirrors it to Neo4j.
func main() {
	var (
		repo     string
		prs      string
		limit    int
		excludes globList
	)
	flag.StringVar(&repo, "repo", ".", "path to the git repository")
	flag.StringVar(&prs, "prs", "", "JSON file of pull requests to ingest")
	flag.IntVar(&limit, "limit", 0, "most recent commits to ingest (0 = all)")
	flag.Var(&excludes, "exclude", "extra exclude glob (repeatable or comma separated)")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development", nil))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("neo4j unavailable; graph will not be persisted", "error", err)
		client = nil
	}
	var opts []graph.Option
	mirror := graph.NewNeo4jMirror(ctx, client, log, graph.MirrorConfig{})
	if mirror != nil {
		opts = append(opts, graph.WithMirror(mirror))
	}
	store := graph.NewStore(log, opts...)

	filter, bad := ingest.NewFilter(excludes...)
	if len(bad) > 0 {
		log.Warn("ignoring invalid exclude globs", "globs", bad)
	}
	in := ingest.New(log, store, filter)

	out := struct {
		Repo         ingest.Result  `json:"repo"`
		PullRequests *ingest.Result `json:"pull_requests,omitempty"`
		Graph        graph.Stats    `json:"graph"`
		Dropped      int64          `json:"mirror_dropped"`
	}{}

	exit := 0
	out.Repo, err = in.IngestRepo(ctx, repo, limit)
	if err != nil {
		log.Error("repo ingest failed", "repo", repo, "error", err)
		exit = 1
	}
	if prs != "" && exit == 0 {
		if res, err := ingestPRs(ctx, in, prs); err != nil {
			log.Error("pull request ingest failed", "file", prs, "error", err)
			exit = 1
		} else {
			out.PullRequests = &res
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Close(flushCtx); err != nil {
		log.Warn("graph mirror flush failed", "error", err)
	}
	if client != nil {
		_ = client.Close(flushCtx)
	}
	if mirror != nil {
		out.Dropped = mirror.Dropped()
	}
	out.Graph = store.Stats()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
	if exit != 0 {
		os.Exit(exit)
	}
}

func ingestPRs(ctx context.Context, in *ingest.Ingester, path string) (ingest.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Result{}, err
	}
	defer f.Close()
	return in.IngestPullRequests(ctx, f)
}
