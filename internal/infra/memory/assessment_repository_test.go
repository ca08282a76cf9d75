package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"safetyhub-assessment-service/internal/domain"
)

func sampleAssessment() domain.Assessment {
	return domain.Assessment{
		ID:           "assessment-1",
		Title:        "Earthquake Basics",
		PassingScore: 70,
		IsActive:     true,
		Questions: []domain.Question{
			{Text: "Drop, Cover, Hold On?", Kind: domain.TrueFalse, CorrectAnswer: "true", Points: 1},
		},
	}
}

func TestAssessmentStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewAssessmentStore()

	if _, err := store.GetAssessment(ctx, "assessment-1"); !errors.Is(err, domain.ErrAssessmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.CreateAssessment(ctx, sampleAssessment()); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.GetAssessment(ctx, "assessment-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Earthquake Basics" {
		t.Fatalf("unexpected assessment: %+v", got)
	}

	all, err := store.ListAssessments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 assessment, got %d", len(all))
	}
}

type countingRepository struct {
	*AssessmentStore
	calls int
}

func (r *countingRepository) GetAssessment(ctx context.Context, id string) (domain.Assessment, error) {
	r.calls++
	return r.AssessmentStore.GetAssessment(ctx, id)
}

func TestCachedRepositoryCaches(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepository{AssessmentStore: NewAssessmentStore()}
	_ = inner.CreateAssessment(ctx, sampleAssessment())

	repo := NewCachedAssessmentRepository(inner, time.Minute)

	if _, err := repo.GetAssessment(ctx, "assessment-1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected inner hit once, got %d", inner.calls)
	}

	if _, err := repo.GetAssessment(ctx, "assessment-1"); err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected cache hit, inner calls %d", inner.calls)
	}
}

func TestCachedRepositoryInvalidatesOnCreate(t *testing.T) {
	ctx := context.Background()
	inner := &countingRepository{AssessmentStore: NewAssessmentStore()}
	_ = inner.CreateAssessment(ctx, sampleAssessment())

	repo := NewCachedAssessmentRepository(inner, time.Minute)
	if _, err := repo.GetAssessment(ctx, "assessment-1"); err != nil {
		t.Fatalf("get: %v", err)
	}

	updated := sampleAssessment()
	updated.Title = "Earthquake Basics v2"
	if err := repo.CreateAssessment(ctx, updated); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetAssessment(ctx, "assessment-1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "Earthquake Basics v2" {
		t.Fatalf("stale cache entry after create: %+v", got)
	}
}
