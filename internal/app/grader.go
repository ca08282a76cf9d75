package app

import (
	"time"

	"go.uber.org/zap"

	"safetyhub-assessment-service/internal/domain"
)

// Submission is the raw input to the grader: who answered what, and when.
type Submission struct {
	UserID      string
	ClientToken string
	Answers     []domain.Answer
	StartedAt   time.Time
	CompletedAt time.Time
}

// gradeAttempt scores a submission against the assessment rubric and builds
// the immutable attempt record. It never fails: answers that reference a
// question outside the rubric, or that do not match the correct answer text
// verbatim, earn zero credit. Skipped answers are logged so malformed client
// payloads stay observable.
func gradeAttempt(assessment domain.Assessment, sub Submission, log *zap.Logger) domain.Attempt {
	totalPoints := assessment.TotalPoints()

	earned := 0
	for _, answer := range sub.Answers {
		if answer.QuestionIndex < 0 || answer.QuestionIndex >= len(assessment.Questions) {
			log.Warn("answer references unknown question, no credit",
				zap.String("assessmentId", assessment.ID),
				zap.String("userId", sub.UserID),
				zap.Int("questionIndex", answer.QuestionIndex))
			continue
		}
		question := assessment.Questions[answer.QuestionIndex]
		if answer.Answer == question.CorrectAnswer {
			earned += question.Points
		}
	}

	// An all-zero rubric grades to 0% rather than dividing by zero.
	score := 0.0
	if totalPoints > 0 {
		score = 100 * float64(earned) / float64(totalPoints)
	}

	return domain.Attempt{
		UserID:      sub.UserID,
		ClientToken: sub.ClientToken,
		Answers:     sub.Answers,
		Score:       score,
		Passed:      score >= assessment.PassingScore,
		StartedAt:   sub.StartedAt,
		CompletedAt: sub.CompletedAt,
		// Not clamped: clock skew between the client timestamps is recorded as-is.
		TimeTakenSeconds: sub.CompletedAt.Sub(sub.StartedAt).Seconds(),
	}
}
