package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/yungbote/devcontext-backend/internal/modules/index"
	"github.com/yungbote/devcontext-backend/internal/platform/envutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/openai"
	"github.com/yungbote/devcontext-backend/internal/platform/qdrant"
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

// index chunks a source tree, embeds the chunks and stores them in qdrant
// for the vector half of query routing.
func main() {
	var (
		root     string
		includes globList
	)
	flag.StringVar(&root, "root", ".", "directory to index")
	flag.Var(&includes, "include", "include glob relative to root (repeatable or comma separated)")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development", nil))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	qcfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		log.Fatal("qdrant config", "error", err)
	}
	embedder, err := openai.NewFromEnv(log)
	if err != nil {
		log.Fatal("openai client", "error", err)
	}
	if embedder == nil {
		log.Fatal("OPENAI_API_KEY is required for indexing")
	}
	store, err := qdrant.NewVectorStore(ctx, log, qcfg)
	if err != nil {
		log.Fatal("connect qdrant", "error", err)
	}

	ix := index.New(log, index.NewChunker(index.DefaultChunkerConfig()), embedder, store)
	res, err := ix.IndexFS(ctx, os.DirFS(root), includes)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
	if err != nil {
		log.Error("index failed", "root", root, "error", err)
		os.Exit(1)
	}
}
