package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/devcontext-backend/internal/data/repos/feedback"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type FeedbackRepo = feedback.FeedbackRepo
type QualityAssessmentRepo = feedback.QualityAssessmentRepo
type ContextSessionRepo = feedback.ContextSessionRepo

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	return feedback.NewFeedbackRepo(db, baseLog)
}
func NewQualityAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) QualityAssessmentRepo {
	return feedback.NewQualityAssessmentRepo(db, baseLog)
}
func NewContextSessionRepo(db *gorm.DB, baseLog *logger.Logger) ContextSessionRepo {
	return feedback.NewContextSessionRepo(db, baseLog)
}
