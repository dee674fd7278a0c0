package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/devcontext-backend/internal/platform/envutil"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// NewFromEnv opens the feedback store selected by FEEDBACK_DB_DRIVER and
// migrates it.
func NewFromEnv(baseLog *logger.Logger) (*gorm.DB, error) {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	serviceLog := baseLog.With("service", "FeedbackDB")

	driver := strings.ToLower(envutil.String("FEEDBACK_DB_DRIVER", DriverSQLite, baseLog))
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = OpenSQLite(envutil.String("FEEDBACK_SQLITE_PATH", "devcontext.db", baseLog))
	case DriverPostgres:
		db, err = openPostgres(baseLog)
	default:
		return nil, fmt.Errorf("db: unsupported FEEDBACK_DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("db: migrate: %w", err)
	}
	serviceLog.Info("feedback store ready", "driver", driver)
	return db, nil
}

// OpenSQLite opens a sqlite database at path; "file::memory:" works for tests.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	return db, nil
}

func gormConfig() *gorm.Config {
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}
}
