package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/devcontext-backend/internal/data/db"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
	"github.com/yungbote/devcontext-backend/internal/platform/neo4jdb"
	"github.com/yungbote/devcontext-backend/internal/platform/redisdb"
)

// Clients are the external backends. Only the feedback database is
// required; the rest are nil when their env configuration is absent.
type Clients struct {
	DB    *gorm.DB
	Redis *goredis.Client
	Neo4j *neo4jdb.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Feedback store
	theDB, err := db.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init feedback db: %w", err)
	}

	// Redis
	rdb, err := redisdb.NewFromEnv(log)
	if err != nil {
		log.Warn("redis unavailable; running without shared context cache", "error", err)
		rdb = nil
	}

	// Neo4j
	n4j, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("neo4j unavailable; running without graph mirror", "error", err)
		n4j = nil
	}

	return Clients{DB: theDB, Redis: rdb, Neo4j: n4j}, nil
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Neo4j != nil {
		_ = c.Neo4j.Close(ctx)
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
