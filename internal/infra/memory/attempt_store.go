package memory

import (
	"context"
	"sync"

	"safetyhub-assessment-service/internal/domain"
)

// AttemptLog is an in-memory append-only attempt history, partitioned by
// assessment. Appends to the same assessment are serialized behind a per-key
// mutex so concurrent submissions cannot lose entries; different assessments
// never contend.
type AttemptLog struct {
	mu   sync.Mutex // guards the maps, not the per-assessment logs
	logs map[string]*assessmentLog
}

type assessmentLog struct {
	mu       sync.Mutex
	attempts []domain.Attempt
	tokens   map[string]struct{}
}

func NewAttemptLog() *AttemptLog {
	return &AttemptLog{logs: make(map[string]*assessmentLog)}
}

func (l *AttemptLog) logFor(assessmentID string) *assessmentLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	al, ok := l.logs[assessmentID]
	if !ok {
		al = &assessmentLog{tokens: make(map[string]struct{})}
		l.logs[assessmentID] = al
	}
	return al
}

func (l *AttemptLog) AppendAttempt(_ context.Context, assessmentID string, attempt domain.Attempt) error {
	al := l.logFor(assessmentID)
	al.mu.Lock()
	defer al.mu.Unlock()
	if attempt.ClientToken != "" {
		if _, seen := al.tokens[attempt.ClientToken]; seen {
			return domain.ErrDuplicateSubmission
		}
		al.tokens[attempt.ClientToken] = struct{}{}
	}
	al.attempts = append(al.attempts, attempt)
	return nil
}

func (l *AttemptLog) ListAttempts(_ context.Context, assessmentID string) ([]domain.Attempt, error) {
	al := l.logFor(assessmentID)
	al.mu.Lock()
	defer al.mu.Unlock()
	out := make([]domain.Attempt, len(al.attempts))
	copy(out, al.attempts)
	return out, nil
}
