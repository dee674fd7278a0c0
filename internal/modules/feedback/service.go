package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/devcontext-backend/internal/data/repos"
	types "github.com/yungbote/devcontext-backend/internal/domain"
	"github.com/yungbote/devcontext-backend/internal/modules/contextengine"
	"github.com/yungbote/devcontext-backend/internal/observability"
	pkgerrors "github.com/yungbote/devcontext-backend/internal/pkg/errors"
	"github.com/yungbote/devcontext-backend/internal/platform/logger"
)

const (
	highQualityAbove = 0.7
	lowQualityBelow  = 0.4
	boostFactor      = 1.1
	penaltyFactor    = 0.9
)

type Deps struct {
	Log         *logger.Logger
	Feedback    repos.FeedbackRepo
	Assessments repos.QualityAssessmentRepo
	Sessions    repos.ContextSessionRepo
}

// Service records developer ratings of delivered context and reduces them
// into the per-source weights the context engine reads.
type Service struct {
	log         *logger.Logger
	feedback    repos.FeedbackRepo
	assessments repos.QualityAssessmentRepo
	sessions    repos.ContextSessionRepo
	now         func() time.Time
}

func New(deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		log:         log.With("service", "FeedbackService"),
		feedback:    deps.Feedback,
		assessments: deps.Assessments,
		sessions:    deps.Sessions,
		now:         time.Now,
	}
}

type SubmitInput struct {
	SessionID   string  `json:"session_id"`
	DeveloperID string  `json:"developer_id"`
	TaskID      string  `json:"task_id,omitempty"`
	Rating      float64 `json:"rating"`
	Notes       string  `json:"notes,omitempty"`
}

func (s *Service) Submit(ctx context.Context, in SubmitInput) (*types.Feedback, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	if in.SessionID == "" {
		return nil, fmt.Errorf("feedback: session_id required: %w", pkgerrors.ErrInvalidArgument)
	}
	if in.Rating < 0 || in.Rating > 1 {
		return nil, fmt.Errorf("feedback: rating %v outside [0,1]: %w", in.Rating, pkgerrors.ErrInvalidArgument)
	}
	row := &types.Feedback{
		ID:          uuid.New(),
		SessionID:   in.SessionID,
		DeveloperID: strings.TrimSpace(in.DeveloperID),
		TaskID:      strings.TrimSpace(in.TaskID),
		Rating:      in.Rating,
		Notes:       in.Notes,
		CreatedAt:   s.now().UTC(),
	}
	if _, err := s.feedback.Create(ctx, nil, []*types.Feedback{row}); err != nil {
		return nil, fmt.Errorf("feedback: store: %w", err)
	}
	s.log.Info("feedback recorded", "session_id", row.SessionID, "developer_id", row.DeveloperID, "rating", row.Rating)
	return row, nil
}

// SaveSession remembers the sources populated in the package last served
// for sessionID. A blank session id is ignored.
func (s *Service) SaveSession(ctx context.Context, sessionID, developerID, filePath string, sources []string, confidence float64) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || s.sessions == nil {
		return nil
	}
	features, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	return s.sessions.Upsert(ctx, nil, &types.ContextSession{
		SessionID:       sessionID,
		DeveloperID:     developerID,
		FilePath:        filePath,
		ContextFeatures: datatypes.JSON(features),
		Confidence:      confidence,
		UpdatedAt:       s.now().UTC(),
	})
}

func qualityOf(avg float64) string {
	switch {
	case avg > highQualityAbove:
		return types.QualityHigh
	case avg < lowQualityBelow:
		return types.QualityLow
	default:
		return types.QualityMedium
	}
}

// Assess averages the session's ratings and stores the resulting quality
// assessment. A session without feedback is ErrNotFound.
func (s *Service) Assess(ctx context.Context, sessionID string) (*types.QualityAssessment, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("feedback: session_id required: %w", pkgerrors.ErrInvalidArgument)
	}
	rows, err := s.feedback.ListBySession(ctx, nil, sessionID)
	if err != nil {
		return nil, fmt.Errorf("feedback: list: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("feedback: no feedback for session %s: %w", sessionID, pkgerrors.ErrNotFound)
	}

	var sum float64
	for _, r := range rows {
		sum += r.Rating
	}
	avg := sum / float64(len(rows))
	quality := qualityOf(avg)

	features := []string{}
	if s.sessions != nil {
		sess, err := s.sessions.Get(ctx, nil, sessionID)
		if err != nil {
			return nil, fmt.Errorf("feedback: load session: %w", err)
		}
		if sess != nil && len(sess.ContextFeatures) > 0 {
			if err := json.Unmarshal(sess.ContextFeatures, &features); err != nil {
				s.log.Warn("context session features unreadable", "session_id", sessionID, "error", err)
				features = []string{}
			}
		}
	}

	featuresJSON, _ := json.Marshal(features)
	insightsJSON, _ := json.Marshal(insights(quality, avg, len(rows), features))
	a := &types.QualityAssessment{
		ID:              uuid.New(),
		SessionID:       sessionID,
		AverageRating:   avg,
		FeedbackCount:   len(rows),
		Quality:         quality,
		ContextFeatures: datatypes.JSON(featuresJSON),
		Insights:        datatypes.JSON(insightsJSON),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.assessments.Create(ctx, nil, a); err != nil {
		return nil, fmt.Errorf("feedback: store assessment: %w", err)
	}
	observability.Current().IncFeedback(quality)
	s.log.Info("context quality assessed", "session_id", sessionID, "quality", quality, "average_rating", avg)
	return a, nil
}

func insights(quality string, avg float64, n int, features []string) []string {
	out := []string{fmt.Sprintf("Average rating %.2f over %d ratings", avg, n)}
	src := "no tracked sources"
	if len(features) > 0 {
		src = strings.Join(features, ", ")
	}
	switch quality {
	case types.QualityHigh:
		out = append(out, "Context was useful; boosting "+src)
	case types.QualityLow:
		out = append(out, "Context missed the task; reducing "+src)
	default:
		out = append(out, "Context was adequate; weights unchanged")
	}
	return out
}

// LatestWeights derives the context weights from the most recent assessment:
// its sources are scaled up after high quality and down after low quality.
func (s *Service) LatestWeights(ctx context.Context) (contextengine.Weights, error) {
	w := contextengine.DefaultWeights()
	latest, err := s.assessments.Latest(ctx, nil)
	if err != nil {
		return w, fmt.Errorf("feedback: latest assessment: %w", err)
	}
	if latest == nil {
		return w, nil
	}
	var features []string
	if len(latest.ContextFeatures) > 0 {
		if err := json.Unmarshal(latest.ContextFeatures, &features); err != nil {
			return w, fmt.Errorf("feedback: decode features: %w", err)
		}
	}
	factor := 1.0
	switch latest.Quality {
	case types.QualityHigh:
		factor = boostFactor
	case types.QualityLow:
		factor = penaltyFactor
	}
	for _, f := range features {
		if v, ok := w[f]; ok {
			w[f] = v * factor
		}
	}
	return w, nil
}

var _ contextengine.WeightSource = (*Service)(nil)
