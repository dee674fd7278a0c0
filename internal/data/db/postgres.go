package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/devcontext-backend/internal/platform/envutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

func openPostgres(log *logger.Logger) (*gorm.DB, error) {
	host := envutil.String("POSTGRES_HOST", "localhost", log)
	port := envutil.String("POSTGRES_PORT", "5432", log)
	user := envutil.String("POSTGRES_USER", "postgres", log)
	password := envutil.String("POSTGRES_PASSWORD", "", log)
	name := envutil.String("POSTGRES_NAME", "devcontext", log)

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user,
		password,
		host,
		port,
		name,
	)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return db, nil
}
