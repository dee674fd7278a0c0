package redisdb

import (
	"testing"

	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

func TestNewFromEnvDisabledWithoutAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	rdb, err := NewFromEnv(logger.Nop())
	if err != nil || rdb != nil {
		t.Fatalf("NewFromEnv: want=nil,nil got=%v,%v", rdb, err)
	}
}

func TestNewFromEnvRequiresLogger(t *testing.T) {
	if _, err := NewFromEnv(nil); err == nil {
		t.Fatalf("expected error without logger")
	}
}
