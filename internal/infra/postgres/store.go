package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"safetyhub-assessment-service/internal/domain"
)

// Store persists assessments as JSONB documents and attempts as individual
// rows. Appending an attempt is a single INSERT, so concurrent submissions to
// the same assessment can never overwrite each other's history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetAssessment(ctx context.Context, id string) (domain.Assessment, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM assessments WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Assessment{}, domain.ErrAssessmentNotFound
	}
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("load assessment: %w", err)
	}
	var assessment domain.Assessment
	if err := json.Unmarshal(raw, &assessment); err != nil {
		return domain.Assessment{}, fmt.Errorf("unmarshal assessment: %w", err)
	}
	return assessment, nil
}

func (s *Store) ListAssessments(ctx context.Context) ([]domain.Assessment, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM assessments ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assessment
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		var assessment domain.Assessment
		if err := json.Unmarshal(raw, &assessment); err != nil {
			return nil, fmt.Errorf("unmarshal assessment: %w", err)
		}
		out = append(out, assessment)
	}
	return out, rows.Err()
}

func (s *Store) CreateAssessment(ctx context.Context, assessment domain.Assessment) error {
	raw, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO assessments (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
		assessment.ID, raw)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// AppendAttempt records one graded attempt. When the submission carries a
// client token, the partial unique index turns a retry into a no-op insert,
// reported as ErrDuplicateSubmission.
func (s *Store) AppendAttempt(ctx context.Context, assessmentID string, attempt domain.Attempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	var token interface{}
	if attempt.ClientToken != "" {
		token = attempt.ClientToken
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO attempts (id, assessment_id, user_id, client_token, data)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT DO NOTHING`,
		attempt.ID, assessmentID, attempt.UserID, token, raw)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateSubmission
	}
	return nil
}

// ListAttempts returns the assessment's history in insertion order.
func (s *Store) ListAttempts(ctx context.Context, assessmentID string) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM attempts WHERE assessment_id=$1 ORDER BY seq`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []domain.Attempt
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		var attempt domain.Attempt
		if err := json.Unmarshal(raw, &attempt); err != nil {
			return nil, fmt.Errorf("unmarshal attempt: %w", err)
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := s.pool.QueryRow(ctx, `SELECT id, name, email FROM users WHERE id=$1`, id).
		Scan(&user.ID, &user.Name, &user.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// UpsertUser installs or refreshes a directory entry (demo/seed users).
func (s *Store) UpsertUser(ctx context.Context, user domain.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, email=EXCLUDED.email`,
		user.ID, user.Name, user.Email)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
