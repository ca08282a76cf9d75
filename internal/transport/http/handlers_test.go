package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"safetyhub-assessment-service/internal/app"
	"safetyhub-assessment-service/internal/domain"
	"safetyhub-assessment-service/internal/infra/memory"
)

func sampleAssessment() domain.Assessment {
	return domain.Assessment{
		ID:           "assessment-1",
		Title:        "Flood Response",
		PassingScore: 70,
		IsActive:     true,
		Questions: []domain.Question{
			{
				Text:          "Should you drive through flooded roads?",
				Kind:          domain.TrueFalse,
				CorrectAnswer: "false",
				Points:        1,
			},
			{
				Text:          "What depth of moving water can sweep away a car?",
				Kind:          domain.MultipleChoice,
				Options:       []string{"30 cm", "2 m"},
				CorrectAnswer: "30 cm",
				Points:        1,
			},
		},
	}
}

func newTestServer(t *testing.T, publicLeaderboard bool) (*httptest.Server, *Auth) {
	t.Helper()
	assessments := memory.NewAssessmentStore()
	if err := assessments.CreateAssessment(context.Background(), sampleAssessment()); err != nil {
		t.Fatalf("seed assessment: %v", err)
	}
	users := memory.NewUserDirectory(
		domain.User{ID: "u1", Name: "Alice", Email: "alice@example.com"},
		domain.User{ID: "u2", Name: "Bob", Email: "bob@example.com"},
	)
	service := app.NewAssessmentService(assessments, memory.NewAttemptLog(), users, zap.NewNop())
	auth := NewAuth("test-secret")
	handler := NewHandler(service, auth, publicLeaderboard, zap.NewNop())

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server, auth
}

func bearerToken(t *testing.T, auth *Auth, userID string) string {
	t.Helper()
	token, err := auth.SignToken(userID, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func submitBody(answers ...map[string]any) []byte {
	body := map[string]any{
		"answers":     answers,
		"startedAt":   "2025-03-10T09:00:00Z",
		"completedAt": "2025-03-10T09:02:00Z",
	}
	raw, _ := json.Marshal(body)
	return raw
}

func doRequest(t *testing.T, method, url, token string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, raw
}

func TestSubmitEndpoint(t *testing.T) {
	server, auth := newTestServer(t, true)
	token := bearerToken(t, auth, "u1")

	resp, raw := doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", token,
		submitBody(
			map[string]any{"questionIndex": 0, "answer": "false"},
			map[string]any{"questionIndex": 1, "answer": "30 cm"},
		))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	var result domain.GradeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Score != 100 || !result.Passed || result.PassingScore != 70 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.TimeTaken != 120 {
		t.Fatalf("expected 120s taken, got %v", result.TimeTaken)
	}
}

func TestSubmitRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t, true)

	resp, _ := doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", "",
		submitBody(map[string]any{"questionIndex": 0, "answer": "false"}))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSubmitUnknownAssessment(t *testing.T) {
	server, auth := newTestServer(t, true)
	token := bearerToken(t, auth, "u1")

	resp, _ := doRequest(t, http.MethodPost, server.URL+"/api/assessments/missing/submit", token,
		submitBody(map[string]any{"questionIndex": 0, "answer": "false"}))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSubmitMalformedBody(t *testing.T) {
	server, auth := newTestServer(t, true)
	token := bearerToken(t, auth, "u1")

	resp, _ := doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", token,
		[]byte(`{"answers": "not-a-list"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}

	// Missing questionIndex fails validation before grading.
	resp, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", token,
		submitBody(map[string]any{"answer": "false"}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing question index, got %d", resp.StatusCode)
	}
}

func TestDuplicateClientTokenConflicts(t *testing.T) {
	server, auth := newTestServer(t, true)
	token := bearerToken(t, auth, "u1")

	body := map[string]any{
		"answers":     []map[string]any{{"questionIndex": 0, "answer": "false"}},
		"startedAt":   "2025-03-10T09:00:00Z",
		"completedAt": "2025-03-10T09:02:00Z",
		"clientToken": "retry-1",
	}
	raw, _ := json.Marshal(body)

	resp, _ := doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", token, raw)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", token, raw)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on retry, got %d", resp.StatusCode)
	}
}

func TestLeaderboardVisibilityFlag(t *testing.T) {
	public, _ := newTestServer(t, true)
	resp, _ := doRequest(t, http.MethodGet, public.URL+"/api/assessments/assessment-1/leaderboard", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public leaderboard must not require a token, got %d", resp.StatusCode)
	}

	private, auth := newTestServer(t, false)
	resp, _ = doRequest(t, http.MethodGet, private.URL+"/api/assessments/assessment-1/leaderboard", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("private leaderboard must require a token, got %d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodGet, private.URL+"/api/assessments/assessment-1/leaderboard",
		bearerToken(t, auth, "u1"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestLeaderboardRanking(t *testing.T) {
	server, auth := newTestServer(t, true)

	// Alice: 100 then 0. Bob: 50 twice. Alice's best wins.
	_, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", bearerToken(t, auth, "u1"),
		submitBody(
			map[string]any{"questionIndex": 0, "answer": "false"},
			map[string]any{"questionIndex": 1, "answer": "30 cm"},
		))
	_, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", bearerToken(t, auth, "u1"),
		submitBody(map[string]any{"questionIndex": 0, "answer": "true"}))
	for i := 0; i < 2; i++ {
		_, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", bearerToken(t, auth, "u2"),
			submitBody(map[string]any{"questionIndex": 0, "answer": "false"}))
	}

	resp, raw := doRequest(t, http.MethodGet, server.URL+"/api/assessments/assessment-1/leaderboard", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(raw, &lb); err != nil {
		t.Fatalf("unmarshal leaderboard: %v", err)
	}
	if len(lb.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lb.Rows))
	}
	if lb.Rows[0].User.Name != "Alice" || lb.Rows[0].BestScore != 100 || lb.Rows[0].AvgScore != 50 {
		t.Fatalf("expected Alice first with best=100 avg=50, got %+v", lb.Rows[0])
	}
	if lb.Rows[1].User.Name != "Bob" || lb.Rows[1].BestScore != 50 {
		t.Fatalf("expected Bob second with best=50, got %+v", lb.Rows[1])
	}
}

func TestMyAttemptsInSubmissionOrder(t *testing.T) {
	server, auth := newTestServer(t, true)
	token := bearerToken(t, auth, "u1")

	_, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", token,
		submitBody(map[string]any{"questionIndex": 0, "answer": "true"}))
	_, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", token,
		submitBody(map[string]any{"questionIndex": 0, "answer": "false"}))

	resp, raw := doRequest(t, http.MethodGet, server.URL+"/api/assessments/assessment-1/my", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var attempts []domain.Attempt
	if err := json.Unmarshal(raw, &attempts); err != nil {
		t.Fatalf("unmarshal attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Score != 0 || attempts[1].Score != 50 {
		t.Fatalf("expected submission order, got %+v", attempts)
	}
}

func TestListAssessmentsRedactsAnswers(t *testing.T) {
	server, _ := newTestServer(t, true)

	resp, raw := doRequest(t, http.MethodGet, server.URL+"/api/assessments", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if strings.Contains(string(raw), "correctAnswer") {
		t.Fatalf("listing must not leak correct answers: %s", raw)
	}
	if !strings.Contains(string(raw), "Flood Response") {
		t.Fatalf("expected the seeded assessment in the listing: %s", raw)
	}
}

func TestCreateAssessmentEndpoint(t *testing.T) {
	server, auth := newTestServer(t, true)
	token := bearerToken(t, auth, "u1")

	body := map[string]any{
		"title": "Heatwave Prep",
		"questions": []map[string]any{
			{"text": "Drink water regularly.", "kind": "true-false", "correctAnswer": "true"},
		},
	}
	raw, _ := json.Marshal(body)
	resp, out := doRequest(t, http.MethodPost, server.URL+"/api/assessments", token, raw)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, out)
	}

	// The options list must contain the correct answer for multiple choice.
	body = map[string]any{
		"title": "Broken",
		"questions": []map[string]any{
			{"text": "Pick one", "kind": "multiple-choice", "options": []string{"a", "b"}, "correctAnswer": "c"},
		},
	}
	raw, _ = json.Marshal(body)
	resp, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments", token, raw)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad rubric, got %d", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	server, auth := newTestServer(t, true)
	token := bearerToken(t, auth, "u1")

	_, _ = doRequest(t, http.MethodPost, server.URL+"/api/assessments/assessment-1/submit", token,
		submitBody(
			map[string]any{"questionIndex": 0, "answer": "false"},
			map[string]any{"questionIndex": 1, "answer": "30 cm"},
		))

	resp, raw := doRequest(t, http.MethodGet, server.URL+"/api/stats/assessments", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats domain.AssessmentStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.TotalAttempts != 1 || stats.AvgScore != 100 || stats.PassRate != 100 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	server, _ := newTestServer(t, true)

	resp, _ := doRequest(t, http.MethodGet, server.URL+"/api/assessments/assessment-1/my",
		"not-a-real-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestTokenSignedWithWrongSecretRejected(t *testing.T) {
	server, _ := newTestServer(t, true)
	other := NewAuth("different-secret")
	forged, _ := other.SignToken("u1", time.Hour)

	resp, _ := doRequest(t, http.MethodGet, server.URL+"/api/assessments/assessment-1/my", forged, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", resp.StatusCode)
	}
}
