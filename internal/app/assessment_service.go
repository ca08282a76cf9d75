package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"safetyhub-assessment-service/internal/domain"
)

// DefaultLeaderboardSize caps the ranked view when no override is configured.
const DefaultLeaderboardSize = 10

// AssessmentRepository stores quiz definitions (postgres, cached, or in-memory).
type AssessmentRepository interface {
	GetAssessment(ctx context.Context, id string) (domain.Assessment, error)
	ListAssessments(ctx context.Context) ([]domain.Assessment, error)
	CreateAssessment(ctx context.Context, assessment domain.Assessment) error
}

// AttemptStore is the append-only attempt history, partitioned by assessment.
// AppendAttempt must be atomic per assessment: two concurrent submissions to
// the same assessment both land, in some order, with neither lost. ListAttempts
// returns insertion order.
type AttemptStore interface {
	AppendAttempt(ctx context.Context, assessmentID string, attempt domain.Attempt) error
	ListAttempts(ctx context.Context, assessmentID string) ([]domain.Attempt, error)
}

// UserDirectory resolves user ids to display fields. Opaque to the core.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// LeaderboardCache holds computed leaderboards between submissions.
type LeaderboardCache interface {
	Get(ctx context.Context, assessmentID string) (domain.Leaderboard, bool)
	Set(ctx context.Context, assessmentID string, lb domain.Leaderboard)
	Invalidate(ctx context.Context, assessmentID string)
}

// AssessmentService contains the scoring and leaderboard use cases.
type AssessmentService struct {
	assessments AssessmentRepository
	attempts    AttemptStore
	users       UserDirectory
	cache       LeaderboardCache // nil disables caching
	hub         *LeaderboardHub
	topN        int
	log         *zap.Logger
	now         func() time.Time
}

func NewAssessmentService(assessments AssessmentRepository, attempts AttemptStore, users UserDirectory, log *zap.Logger) *AssessmentService {
	return &AssessmentService{
		assessments: assessments,
		attempts:    attempts,
		users:       users,
		hub:         NewLeaderboardHub(),
		topN:        DefaultLeaderboardSize,
		log:         log,
		now:         time.Now,
	}
}

// WithLeaderboardCache attaches a cache for computed leaderboards.
func (s *AssessmentService) WithLeaderboardCache(cache LeaderboardCache) *AssessmentService {
	s.cache = cache
	return s
}

// WithLeaderboardSize overrides the top-N cutoff.
func (s *AssessmentService) WithLeaderboardSize(n int) *AssessmentService {
	if n > 0 {
		s.topN = n
	}
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *AssessmentService) WithClock(now func() time.Time) *AssessmentService {
	s.now = now
	return s
}

// Hub exposes the live-update hub to the transport layer.
func (s *AssessmentService) Hub() *LeaderboardHub {
	return s.hub
}

// Submit grades a submission, appends the attempt to the assessment's history
// and returns the result summary. Persistence failures surface to the caller;
// nothing partial is recorded.
func (s *AssessmentService) Submit(ctx context.Context, assessmentID string, sub Submission) (domain.GradeResult, error) {
	assessment, err := s.assessments.GetAssessment(ctx, assessmentID)
	if err != nil {
		return domain.GradeResult{}, err
	}

	attempt := gradeAttempt(assessment, sub, s.log)
	attempt.ID = uuid.NewString()

	if err := s.attempts.AppendAttempt(ctx, assessmentID, attempt); err != nil {
		return domain.GradeResult{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, assessmentID)
	}
	s.publishLeaderboard(ctx, assessmentID)

	s.log.Info("attempt recorded",
		zap.String("assessmentId", assessmentID),
		zap.String("userId", sub.UserID),
		zap.Float64("score", attempt.Score),
		zap.Bool("passed", attempt.Passed))

	return domain.GradeResult{
		Score:        attempt.Score,
		Passed:       attempt.Passed,
		TimeTaken:    attempt.TimeTakenSeconds,
		PassingScore: assessment.PassingScore,
	}, nil
}

// Leaderboard folds the assessment's attempt history into the ranked top-N view.
func (s *AssessmentService) Leaderboard(ctx context.Context, assessmentID string) (domain.Leaderboard, error) {
	if s.cache != nil {
		if lb, ok := s.cache.Get(ctx, assessmentID); ok {
			return lb, nil
		}
	}

	lb, err := s.buildLeaderboard(ctx, assessmentID)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, assessmentID, lb)
	}
	return lb, nil
}

func (s *AssessmentService) buildLeaderboard(ctx context.Context, assessmentID string) (domain.Leaderboard, error) {
	if _, err := s.assessments.GetAssessment(ctx, assessmentID); err != nil {
		return domain.Leaderboard{}, err
	}
	attempts, err := s.attempts.ListAttempts(ctx, assessmentID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		AssessmentID: assessmentID,
		Rows:         aggregateLeaderboard(ctx, attempts, s.users, s.topN, s.log),
		UpdatedAt:    s.now(),
	}, nil
}

// publishLeaderboard pushes a fresh snapshot to live watchers. Recomputation
// is skipped when nobody is subscribed.
func (s *AssessmentService) publishLeaderboard(ctx context.Context, assessmentID string) {
	if !s.hub.HasSubscribers(assessmentID) {
		return
	}
	lb, err := s.buildLeaderboard(ctx, assessmentID)
	if err != nil {
		s.log.Warn("leaderboard push skipped", zap.String("assessmentId", assessmentID), zap.Error(err))
		return
	}
	s.hub.Publish(lb)
}

// ListAttempts returns every attempt on the assessment, highest score first,
// with user identity resolved for display. The underlying insertion order is
// untouched; the sort is presentation-only.
func (s *AssessmentService) ListAttempts(ctx context.Context, assessmentID string) ([]domain.UserAttempt, error) {
	if _, err := s.assessments.GetAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListAttempts(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	resolved := make([]domain.UserAttempt, 0, len(attempts))
	for _, attempt := range attempts {
		user, err := s.users.GetUser(ctx, attempt.UserID)
		if err != nil {
			// Keep the attempt; display falls back to the bare id.
			user = domain.User{ID: attempt.UserID}
		}
		resolved = append(resolved, domain.UserAttempt{Attempt: attempt, User: user})
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Score > resolved[j].Score
	})
	return resolved, nil
}

// UserAttempts returns one user's attempts on the assessment in submission order.
func (s *AssessmentService) UserAttempts(ctx context.Context, assessmentID, userID string) ([]domain.Attempt, error) {
	if _, err := s.assessments.GetAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.ListAttempts(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	mine := make([]domain.Attempt, 0)
	for _, attempt := range attempts {
		if attempt.UserID == userID {
			mine = append(mine, attempt)
		}
	}
	return mine, nil
}

// CreateAssessment validates and stores a new quiz definition.
func (s *AssessmentService) CreateAssessment(ctx context.Context, assessment domain.Assessment) (domain.Assessment, error) {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	if assessment.PassingScore == 0 {
		assessment.PassingScore = 70
	}
	if assessment.Difficulty == "" {
		assessment.Difficulty = domain.Beginner
	}
	for i := range assessment.Questions {
		if assessment.Questions[i].Points == 0 {
			assessment.Questions[i].Points = 1
		}
	}
	assessment.IsActive = true
	assessment.CreatedAt = s.now()

	if err := validateAssessment(assessment); err != nil {
		return domain.Assessment{}, err
	}
	if err := s.assessments.CreateAssessment(ctx, assessment); err != nil {
		return domain.Assessment{}, err
	}
	s.log.Info("assessment created", zap.String("assessmentId", assessment.ID), zap.String("title", assessment.Title))
	return assessment, nil
}

// GetAssessment loads one definition.
func (s *AssessmentService) GetAssessment(ctx context.Context, id string) (domain.Assessment, error) {
	return s.assessments.GetAssessment(ctx, id)
}

// ListActiveAssessments returns every active definition.
func (s *AssessmentService) ListActiveAssessments(ctx context.Context) ([]domain.Assessment, error) {
	all, err := s.assessments.ListAssessments(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.Assessment, 0, len(all))
	for _, a := range all {
		if a.IsActive {
			active = append(active, a)
		}
	}
	return active, nil
}

// Stats rolls up attempt activity across every active assessment for the dashboard.
func (s *AssessmentService) Stats(ctx context.Context) (domain.AssessmentStats, error) {
	assessments, err := s.ListActiveAssessments(ctx)
	if err != nil {
		return domain.AssessmentStats{}, err
	}

	stats := domain.AssessmentStats{TotalAssessments: len(assessments)}
	scoreSum := 0.0
	passCount := 0
	for _, assessment := range assessments {
		attempts, err := s.attempts.ListAttempts(ctx, assessment.ID)
		if err != nil {
			return domain.AssessmentStats{}, err
		}
		item := domain.AssessmentStatsItem{Name: assessment.Title, Attempts: len(attempts)}
		itemSum := 0.0
		for _, attempt := range attempts {
			itemSum += attempt.Score
			scoreSum += attempt.Score
			if attempt.Passed {
				passCount++
			}
		}
		if len(attempts) > 0 {
			item.AvgScore = itemSum / float64(len(attempts))
		}
		stats.TotalAttempts += len(attempts)
		stats.ByAssessment = append(stats.ByAssessment, item)
	}
	if stats.TotalAttempts > 0 {
		stats.AvgScore = scoreSum / float64(stats.TotalAttempts)
		stats.PassRate = 100 * float64(passCount) / float64(stats.TotalAttempts)
	}
	return stats, nil
}

// validateAssessment enforces authoring invariants; grading stays tolerant, so
// bad rubrics are rejected here instead.
func validateAssessment(a domain.Assessment) error {
	if a.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidAssessment)
	}
	if len(a.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", domain.ErrInvalidAssessment)
	}
	if a.PassingScore < 0 || a.PassingScore > 100 {
		return fmt.Errorf("%w: passing score must be between 0 and 100", domain.ErrInvalidAssessment)
	}
	for i, q := range a.Questions {
		if q.Points < 0 {
			return fmt.Errorf("%w: question %d has negative points", domain.ErrInvalidAssessment, i)
		}
		switch q.Kind {
		case domain.MultipleChoice:
			if !containsString(q.Options, q.CorrectAnswer) {
				return fmt.Errorf("%w: question %d correct answer is not one of its options", domain.ErrInvalidAssessment, i)
			}
		case domain.TrueFalse, domain.ShortAnswer:
		default:
			return fmt.Errorf("%w: question %d has unknown kind %q", domain.ErrInvalidAssessment, i, q.Kind)
		}
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
