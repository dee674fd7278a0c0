package db

import (
	"gorm.io/gorm"

	types "github.com/yungbote/devcontext-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// feedback loop
		&types.Feedback{},
		&types.QualityAssessment{},
		&types.ContextSession{},
	)
}
