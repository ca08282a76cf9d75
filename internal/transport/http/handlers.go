package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"safetyhub-assessment-service/internal/app"
	"safetyhub-assessment-service/internal/domain"
)

// Handler exposes the assessment use cases over REST.
type Handler struct {
	service           *app.AssessmentService
	auth              *Auth
	validate          *validator.Validate
	publicLeaderboard bool
	log               *zap.Logger
}

func NewHandler(service *app.AssessmentService, auth *Auth, publicLeaderboard bool, log *zap.Logger) *Handler {
	return &Handler{
		service:           service,
		auth:              auth,
		validate:          validator.New(),
		publicLeaderboard: publicLeaderboard,
		log:               log,
	}
}

// Routes wires the handler into a mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/assessments", h.listAssessments)
	mux.HandleFunc("POST /api/assessments", h.auth.Require(h.createAssessment))
	mux.HandleFunc("GET /api/assessments/{id}", h.getAssessment)
	mux.HandleFunc("POST /api/assessments/{id}/submit", h.auth.Require(h.submit))
	mux.HandleFunc("GET /api/assessments/{id}/attempts", h.auth.Require(h.listAttempts))
	mux.HandleFunc("GET /api/assessments/{id}/my", h.auth.Require(h.myAttempts))
	mux.HandleFunc("GET /api/stats/assessments", h.auth.Require(h.stats))
	mux.HandleFunc("GET /api/ws/leaderboard", h.streamLeaderboard)

	leaderboard := h.leaderboard
	if !h.publicLeaderboard {
		leaderboard = h.auth.Require(leaderboard)
	}
	mux.HandleFunc("GET /api/assessments/{id}/leaderboard", leaderboard)
	return mux
}

type answerPayload struct {
	QuestionIndex *int   `json:"questionIndex" validate:"required"`
	Answer        string `json:"answer"`
}

type submitRequest struct {
	Answers     []answerPayload `json:"answers" validate:"required,dive"`
	StartedAt   time.Time       `json:"startedAt" validate:"required"`
	CompletedAt time.Time       `json:"completedAt" validate:"required"`
	ClientToken string          `json:"clientToken"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
		return
	}

	answers := make([]domain.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, domain.Answer{QuestionIndex: *a.QuestionIndex, Answer: a.Answer})
	}

	result, err := h.service.Submit(r.Context(), r.PathValue("id"), app.Submission{
		UserID:      UserID(r.Context()),
		ClientToken: req.ClientToken,
		Answers:     answers,
		StartedAt:   req.StartedAt,
		CompletedAt: req.CompletedAt,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.service.Leaderboard(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.ListAttempts(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) myAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.service.UserAttempts(r.Context(), r.PathValue("id"), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

type questionPayload struct {
	Text          string   `json:"text" validate:"required"`
	Kind          string   `json:"kind" validate:"required,oneof=multiple-choice true-false short-answer"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	Points        int      `json:"points" validate:"gte=0"`
	Explanation   string   `json:"explanation"`
}

type createAssessmentRequest struct {
	Title            string            `json:"title" validate:"required"`
	Description      string            `json:"description"`
	PassingScore     float64           `json:"passingScore" validate:"gte=0,lte=100"`
	TimeLimitMinutes int               `json:"timeLimitMinutes" validate:"gte=0"`
	Difficulty       string            `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Questions        []questionPayload `json:"questions" validate:"required,min=1,dive"`
}

func (h *Handler) createAssessment(w http.ResponseWriter, r *http.Request) {
	var req createAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
		return
	}

	questions := make([]domain.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		questions = append(questions, domain.Question{
			Text:          q.Text,
			Kind:          domain.QuestionKind(q.Kind),
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
			Explanation:   q.Explanation,
		})
	}

	created, err := h.service.CreateAssessment(r.Context(), domain.Assessment{
		Title:            req.Title,
		Description:      req.Description,
		PassingScore:     req.PassingScore,
		TimeLimitMinutes: req.TimeLimitMinutes,
		Difficulty:       domain.Difficulty(req.Difficulty),
		Questions:        questions,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listAssessments(w http.ResponseWriter, r *http.Request) {
	assessments, err := h.service.ListActiveAssessments(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]assessmentView, 0, len(assessments))
	for _, a := range assessments {
		views = append(views, redactAssessment(a))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) getAssessment(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.service.GetAssessment(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, redactAssessment(assessment))
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// questionView is the client-facing question: correct answers stay server-side
// until grading returns explanations.
type questionView struct {
	Text        string   `json:"text"`
	Kind        string   `json:"kind"`
	Options     []string `json:"options,omitempty"`
	Points      int      `json:"points"`
	Explanation string   `json:"explanation,omitempty"`
}

type assessmentView struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Questions        []questionView `json:"questions"`
	PassingScore     float64        `json:"passingScore"`
	TimeLimitMinutes int            `json:"timeLimitMinutes,omitempty"`
	Difficulty       string         `json:"difficulty"`
	IsActive         bool           `json:"isActive"`
	CreatedAt        time.Time      `json:"createdAt"`
}

func redactAssessment(a domain.Assessment) assessmentView {
	questions := make([]questionView, 0, len(a.Questions))
	for _, q := range a.Questions {
		questions = append(questions, questionView{
			Text:        q.Text,
			Kind:        string(q.Kind),
			Options:     q.Options,
			Points:      q.Points,
			Explanation: q.Explanation,
		})
	}
	return assessmentView{
		ID:               a.ID,
		Title:            a.Title,
		Description:      a.Description,
		Questions:        questions,
		PassingScore:     a.PassingScore,
		TimeLimitMinutes: a.TimeLimitMinutes,
		Difficulty:       string(a.Difficulty),
		IsActive:         a.IsActive,
		CreatedAt:        a.CreatedAt,
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAssessmentNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidAssessment), errors.Is(err, domain.ErrInvalidSubmission):
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrDuplicateSubmission):
		writeJSON(w, http.StatusConflict, errorPayload{Message: err.Error()})
	default:
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorPayload{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
