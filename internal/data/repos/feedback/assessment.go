package feedback

import (
	"context"
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type QualityAssessmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.QualityAssessment) error
	// Latest returns nil, nil when nothing was assessed yet.
	Latest(ctx context.Context, tx *gorm.DB) (*types.QualityAssessment, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.QualityAssessment, error)
}

type qualityAssessmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQualityAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) QualityAssessmentRepo {
	repoLog := baseLog.With("repo", "QualityAssessmentRepo")
	return &qualityAssessmentRepo{db: db, log: repoLog}
}

func (r *qualityAssessmentRepo) Create(ctx context.Context, tx *gorm.DB, a *types.QualityAssessment) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if a == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(a).Error
}

func (r *qualityAssessmentRepo) Latest(ctx context.Context, tx *gorm.DB) (*types.QualityAssessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.QualityAssessment
	err := transaction.WithContext(ctx).
		Order("created_at DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *qualityAssessmentRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID string) ([]*types.QualityAssessment, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.QualityAssessment
	if err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
