package domain

import "time"

// QuestionKind enumerates the supported question formats.
type QuestionKind string

const (
	MultipleChoice QuestionKind = "multiple-choice"
	TrueFalse      QuestionKind = "true-false"
	ShortAnswer    QuestionKind = "short-answer"
)

// Difficulty grades an assessment for display and filtering.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Question is one quiz item. CorrectAnswer is matched verbatim against the
// submitted answer text, never by option index.
type Question struct {
	Text          string       `json:"text"`
	Kind          QuestionKind `json:"kind"`
	Options       []string     `json:"options,omitempty"` // multiple-choice only
	CorrectAnswer string       `json:"correctAnswer"`
	Points        int          `json:"points"` // defaults to 1 at authoring time
	Explanation   string       `json:"explanation,omitempty"`
}

// Assessment is a quiz definition. Question order is significant: submitted
// answers reference questions by index.
type Assessment struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Questions        []Question `json:"questions"`
	PassingScore     float64    `json:"passingScore"` // percentage threshold
	TimeLimitMinutes int        `json:"timeLimitMinutes,omitempty"`
	Difficulty       Difficulty `json:"difficulty"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// TotalPoints sums the point weights of every question.
func (a Assessment) TotalPoints() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// Answer pairs a question index with the submitted answer text.
type Answer struct {
	QuestionIndex int    `json:"questionIndex"`
	Answer        string `json:"answer"`
}

// Attempt is one graded submission. Immutable once appended to an
// assessment's history; raw answers are retained for audit even when they
// earned no credit.
type Attempt struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	ClientToken      string    `json:"clientToken,omitempty"`
	Answers          []Answer  `json:"answers"`
	Score            float64   `json:"score"` // percentage, 0-100
	Passed           bool      `json:"passed"`
	StartedAt        time.Time `json:"startedAt"`
	CompletedAt      time.Time `json:"completedAt"`
	TimeTakenSeconds float64   `json:"timeTaken"`
}

// GradeResult is the summary returned to the submitter.
type GradeResult struct {
	Score        float64 `json:"score"`
	Passed       bool    `json:"passed"`
	TimeTaken    float64 `json:"timeTaken"`
	PassingScore float64 `json:"passingScore"`
}

// User carries the display fields resolved for attempts and leaderboards.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LeaderboardRow is the per-user rollup of attempts on one assessment.
// Derived, never persisted.
type LeaderboardRow struct {
	User      User    `json:"user"`
	BestScore float64 `json:"bestScore"`
	AvgScore  float64 `json:"avgScore"`
}

// Leaderboard is the ranked top-N view for an assessment.
type Leaderboard struct {
	AssessmentID string           `json:"assessmentId"`
	Rows         []LeaderboardRow `json:"rows"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// UserAttempt is an attempt with its user resolved for display.
type UserAttempt struct {
	Attempt
	User User `json:"user"`
}

// AssessmentStats is the platform-wide rollup served to the dashboard.
type AssessmentStats struct {
	TotalAssessments int                   `json:"totalAssessments"`
	TotalAttempts    int                   `json:"totalAttempts"`
	AvgScore         float64               `json:"avgScore"`
	PassRate         float64               `json:"passRate"` // percentage of passing attempts
	ByAssessment     []AssessmentStatsItem `json:"attemptsByAssessment"`
}

// AssessmentStatsItem is one assessment's line in the stats rollup.
type AssessmentStatsItem struct {
	Name     string  `json:"name"`
	Attempts int     `json:"attempts"`
	AvgScore float64 `json:"avgScore"`
}
