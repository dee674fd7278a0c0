package feedback

import (
	"context"

	"gorm.io/gorm"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type FeedbackRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Feedback) ([]*types.Feedback, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.Feedback, error)
}

type feedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) FeedbackRepo {
	repoLog := baseLog.With("repo", "FeedbackRepo")
	return &feedbackRepo{db: db, log: repoLog}
}

func (r *feedbackRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Feedback) ([]*types.Feedback, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Feedback{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBySession returns the session's feedback, oldest first.
func (r *feedbackRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.Feedback, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Feedback
	if sessionID == "" {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
