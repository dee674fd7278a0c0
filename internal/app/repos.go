package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/devcontext-backend/internal/data/repos"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type Repos struct {
	Feedback    repos.FeedbackRepo
	Assessments repos.QualityAssessmentRepo
	Sessions    repos.ContextSessionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Feedback:    repos.NewFeedbackRepo(db, log),
		Assessments: repos.NewQualityAssessmentRepo(db, log),
		Sessions:    repos.NewContextSessionRepo(db, log),
	}
}
