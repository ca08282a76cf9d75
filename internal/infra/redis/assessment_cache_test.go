package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"safetyhub-assessment-service/internal/domain"
	"safetyhub-assessment-service/internal/infra/memory"
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

type countingRepository struct {
	*memory.AssessmentStore
	calls int
}

func (r *countingRepository) GetAssessment(ctx context.Context, id string) (domain.Assessment, error) {
	r.calls++
	return r.AssessmentStore.GetAssessment(ctx, id)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCachedRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	inner := &countingRepository{AssessmentStore: memory.NewAssessmentStore()}
	_ = inner.CreateAssessment(ctx, sampleAssessment())

	repo := NewCachedAssessmentRepository(newClient(mr), inner, time.Minute)

	got, err := repo.GetAssessment(ctx, "assessment-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Questions[0].CorrectAnswer != "true" {
		t.Fatalf("cached definition must keep the full rubric, got %+v", got.Questions[0])
	}
	if inner.calls != 1 {
		t.Fatalf("expected inner hit once, got %d", inner.calls)
	}
	if !mr.Exists("assessment:assessment-1") {
		t.Fatalf("expected redis key to be set")
	}

	// Second read comes from the cache.
	if _, err := repo.GetAssessment(ctx, "assessment-1"); err != nil {
		t.Fatalf("get 2: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected cache hit, inner calls=%d", inner.calls)
	}
}

func TestCachedRepositoryInvalidatesOnCreate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	inner := &countingRepository{AssessmentStore: memory.NewAssessmentStore()}
	_ = inner.CreateAssessment(ctx, sampleAssessment())

	repo := NewCachedAssessmentRepository(newClient(mr), inner, time.Minute)
	if _, err := repo.GetAssessment(ctx, "assessment-1"); err != nil {
		t.Fatalf("get: %v", err)
	}

	updated := sampleAssessment()
	updated.Title = "Earthquake Basics v2"
	if err := repo.CreateAssessment(ctx, updated); err != nil {
		t.Fatalf("create: %v", err)
	}
	if mr.Exists("assessment:assessment-1") {
		t.Fatalf("expected cache entry dropped on create")
	}
}

func TestCachedRepositoryMissPropagatesNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	inner := &countingRepository{AssessmentStore: memory.NewAssessmentStore()}
	repo := NewCachedAssessmentRepository(newClient(mr), inner, time.Minute)

	if _, err := repo.GetAssessment(context.Background(), "missing"); err != domain.ErrAssessmentNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
