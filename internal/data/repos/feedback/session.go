package feedback

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

type ContextSessionRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, s *types.ContextSession) error
	// Get returns nil, nil for an unknown session.
	Get(ctx context.Context, tx *gorm.DB, sessionID string) (*types.ContextSession, error)
}

type contextSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContextSessionRepo(db *gorm.DB, baseLog *logger.Logger) ContextSessionRepo {
	repoLog := baseLog.With("repo", "ContextSessionRepo")
	return &contextSessionRepo{db: db, log: repoLog}
}

func (r *contextSessionRepo) Upsert(ctx context.Context, tx *gorm.DB, s *types.ContextSession) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if s == nil || s.SessionID == "" {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"developer_id", "file_path", "context_features", "confidence", "updated_at"}),
		}).
		Create(s).Error
}

func (r *contextSessionRepo) Get(ctx context.Context, tx *gorm.DB, sessionID string) (*types.ContextSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.ContextSession
	err := transaction.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
