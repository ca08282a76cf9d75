package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"safetyhub-assessment-service/internal/app"
	"safetyhub-assessment-service/internal/domain"
)

// AssessmentStore is an in-memory implementation of app.AssessmentRepository,
// used for demos and tests.
type AssessmentStore struct {
	mu          sync.RWMutex
	assessments map[string]domain.Assessment
	order       []string
}

func NewAssessmentStore() *AssessmentStore {
	return &AssessmentStore{assessments: make(map[string]domain.Assessment)}
}

func (s *AssessmentStore) GetAssessment(_ context.Context, id string) (domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assessment, ok := s.assessments[id]
	if !ok {
		return domain.Assessment{}, domain.ErrAssessmentNotFound
	}
	return assessment, nil
}

func (s *AssessmentStore) ListAssessments(_ context.Context) ([]domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Assessment, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.assessments[id])
	}
	return out, nil
}

func (s *AssessmentStore) CreateAssessment(_ context.Context, assessment domain.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assessments[assessment.ID]; !ok {
		s.order = append(s.order, assessment.ID)
	}
	s.assessments[assessment.ID] = assessment
	return nil
}

// CachedAssessmentRepository wraps another repository with a TTL cache for
// definition reads, collapsing concurrent misses through singleflight.
type CachedAssessmentRepository struct {
	inner app.AssessmentRepository
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedAssessment
}

type cachedAssessment struct {
	assessment domain.Assessment
	expiresAt  time.Time
}

func NewCachedAssessmentRepository(inner app.AssessmentRepository, ttl time.Duration) *CachedAssessmentRepository {
	return &CachedAssessmentRepository{
		inner: inner,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		cache: make(map[string]cachedAssessment),
	}
}

func (r *CachedAssessmentRepository) GetAssessment(ctx context.Context, id string) (domain.Assessment, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.assessment, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.assessment, nil
		}
		r.mu.RUnlock()

		assessment, err := r.inner.GetAssessment(ctx, id)
		if err != nil {
			return domain.Assessment{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedAssessment{
			assessment: assessment,
			expiresAt:  now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return assessment, nil
	})
	if err != nil {
		return domain.Assessment{}, err
	}
	return result.(domain.Assessment), nil
}

// ListAssessments always hits the inner repository; listings are rare.
func (r *CachedAssessmentRepository) ListAssessments(ctx context.Context) ([]domain.Assessment, error) {
	return r.inner.ListAssessments(ctx)
}

func (r *CachedAssessmentRepository) CreateAssessment(ctx context.Context, assessment domain.Assessment) error {
	if err := r.inner.CreateAssessment(ctx, assessment); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.cache, assessment.ID)
	r.mu.Unlock()
	return nil
}

func (r *CachedAssessmentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
