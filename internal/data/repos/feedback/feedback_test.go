package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/devcontext-backend/internal/data/repos/testutil"
	types "github.com/yungbote/devcontext-backend/internal/domain"
)

func TestFeedbackRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewFeedbackRepo(db, testutil.Logger(t))
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, nil, []*types.Feedback{
		{ID: uuid.New(), SessionID: "s-1", DeveloperID: "dev-1", Rating: 0.9, CreatedAt: base.Add(time.Minute)},
		{ID: uuid.New(), SessionID: "s-1", DeveloperID: "dev-1", Rating: 0.5, CreatedAt: base},
		{ID: uuid.New(), SessionID: "s-2", DeveloperID: "dev-2", Rating: 0.1, CreatedAt: base},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("Create: want=3 got=%d", len(created))
	}

	got, err := repo.ListBySession(ctx, nil, "s-1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 2 || got[0].Rating != 0.5 || got[1].Rating != 0.9 {
		t.Fatalf("ListBySession: want oldest first got=%+v", got)
	}

	none, err := repo.ListBySession(ctx, nil, "")
	if err != nil || len(none) != 0 {
		t.Fatalf("ListBySession(empty): want none got=%v err=%v", none, err)
	}
}

func TestQualityAssessmentRepoLatest(t *testing.T) {
	db := testutil.DB(t)
	repo := NewQualityAssessmentRepo(db, testutil.Logger(t))
	ctx := context.Background()

	latest, err := repo.Latest(ctx, nil)
	if err != nil || latest != nil {
		t.Fatalf("Latest on empty: want nil,nil got=%v,%v", latest, err)
	}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, q := range []string{types.QualityLow, types.QualityHigh} {
		if err := repo.Create(ctx, nil, &types.QualityAssessment{
			ID:              uuid.New(),
			SessionID:       "s-1",
			Quality:         q,
			ContextFeatures: datatypes.JSON([]byte(`["recent_commits"]`)),
			Insights:        datatypes.JSON([]byte(`[]`)),
			CreatedAt:       base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	latest, err = repo.Latest(ctx, nil)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.Quality != types.QualityHigh {
		t.Fatalf("Latest: want=%s got=%+v", types.QualityHigh, latest)
	}
	all, err := repo.ListBySession(ctx, nil, "s-1")
	if err != nil || len(all) != 2 {
		t.Fatalf("ListBySession: want=2 got=%d err=%v", len(all), err)
	}
}

func TestContextSessionRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	repo := NewContextSessionRepo(db, testutil.Logger(t))
	ctx := context.Background()

	missing, err := repo.Get(ctx, nil, "s-9")
	if err != nil || missing != nil {
		t.Fatalf("Get unknown: want nil,nil got=%v,%v", missing, err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := &types.ContextSession{SessionID: "s-1", DeveloperID: "dev-1", FilePath: "a.dart", ContextFeatures: datatypes.JSON([]byte(`["semantic_docs"]`)), Confidence: 0.4, UpdatedAt: now}
	if err := repo.Upsert(ctx, nil, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second := &types.ContextSession{SessionID: "s-1", DeveloperID: "dev-1", FilePath: "b.dart", ContextFeatures: datatypes.JSON([]byte(`["recent_commits"]`)), Confidence: 0.9, UpdatedAt: now.Add(time.Minute)}
	if err := repo.Upsert(ctx, nil, second); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	got, err := repo.Get(ctx, nil, "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.FilePath != "b.dart" || got.Confidence != 0.9 {
		t.Fatalf("Get: want latest upsert got=%+v", got)
	}
}
