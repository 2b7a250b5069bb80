package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/middleware"
	"github.com/aiquizzer/quizzer-backend/internal/model"
	"github.com/aiquizzer/quizzer-backend/internal/response"
	"github.com/aiquizzer/quizzer-backend/internal/service"
	"github.com/aiquizzer/quizzer-backend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// ─── Stubs ──────────────────────────────────────────────────────────

type stubAuth struct {
	loggedOut string
}

func (s *stubAuth) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	return &model.LoginResponse{AccessToken: "tok-" + req.Username, TokenType: "bearer"}, nil
}

func (s *stubAuth) Logout(_ context.Context, claims *service.Claims) error {
	s.loggedOut = claims.Username()
	return nil
}

type stubQuizzes struct {
	quiz    *model.Quiz
	err     error
	lastReq model.GenerateQuizRequest
	lastBy  string
}

func (s *stubQuizzes) Generate(_ context.Context, username string, req model.GenerateQuizRequest) (*model.Quiz, error) {
	s.lastReq, s.lastBy = req, username
	return s.quiz, s.err
}

func (s *stubQuizzes) Get(_ context.Context, id int64) (*model.Quiz, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quiz, nil
}

func (s *stubQuizzes) Hint(_ context.Context, quizID, questionID int64) (*model.HintResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.HintResponse{QuestionID: questionID, Hint: "think about it"}, nil
}

type stubSubmissions struct {
	err          error
	requireRetry bool
	filter       model.SubmissionFilter
}

func (s *stubSubmissions) Submit(_ context.Context, username string, quizID int64, req model.SubmitQuizRequest, requireRetry bool) (*model.SubmissionResult, error) {
	s.requireRetry = requireRetry
	if s.err != nil {
		return nil, s.err
	}
	return &model.SubmissionResult{SubmissionID: 1, QuizID: quizID, Score: 70, MaxScore: 100, IsRetry: requireRetry}, nil
}

func (s *stubSubmissions) Review(_ context.Context, username string, id int64) (*model.SubmissionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.SubmissionResult{SubmissionID: id}, nil
}

func (s *stubSubmissions) History(_ context.Context, f model.SubmissionFilter) ([]model.SubmissionSummary, *response.Pagination, error) {
	s.filter = f
	return []model.SubmissionSummary{{ID: 1}}, &response.Pagination{Page: 1, PerPage: 20, TotalItems: 1, TotalPages: 1}, nil
}

func (s *stubSubmissions) Suggestions(_ context.Context, username string, id int64) (*model.SuggestionsResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.SuggestionsResponse{SubmissionID: id, Suggestions: "review fractions"}, nil
}

type stubLeaderboard struct {
	filter model.LeaderboardFilter
}

func (s *stubLeaderboard) Top(_ context.Context, f model.LeaderboardFilter) ([]model.LeaderboardEntry, error) {
	s.filter = f
	return []model.LeaderboardEntry{{Rank: 1, Username: "alice", BestScore: 90}}, nil
}

// ─── Helpers ────────────────────────────────────────────────────────

func withUser(username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: username}})
		c.Next()
	}
}

func do(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
	return resp
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code response.ErrCode) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	resp := decode(t, w)
	if resp.Error == nil || resp.Error.Code != code {
		t.Fatalf("error = %+v, want %s", resp.Error, code)
	}
}

// ─── Auth ───────────────────────────────────────────────────────────

func TestLoginValidatesPayload(t *testing.T) {
	h := NewAuthHandler(&stubAuth{}, zerolog.Nop())
	r := gin.New()
	r.POST("/login", h.Login)

	w := do(r, http.MethodPost, "/login", map[string]string{"username": "alice"})
	expectError(t, w, http.StatusBadRequest, response.ErrValidation)
	if _, ok := decode(t, w).Error.Fields["password"]; !ok {
		t.Fatalf("expected a password field error, got %+v", decode(t, w).Error.Fields)
	}

	w = do(r, http.MethodPost, "/login", map[string]string{"username": "alice", "password": "x"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"access_token":"tok-alice"`) {
		t.Fatalf("missing token in %s", w.Body.String())
	}
}

func TestMeAndLogout(t *testing.T) {
	auth := &stubAuth{}
	h := NewAuthHandler(auth, zerolog.Nop())
	r := gin.New()
	r.GET("/me", withUser("bob"), h.Me)
	r.POST("/logout", withUser("bob"), h.Logout)
	r.GET("/anon", h.Me)

	w := do(r, http.MethodGet, "/me", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"username":"bob"`) {
		t.Fatalf("me = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/logout", nil)
	if w.Code != http.StatusOK || auth.loggedOut != "bob" {
		t.Fatalf("logout = %d, revoked %q", w.Code, auth.loggedOut)
	}

	expectError(t, do(r, http.MethodGet, "/anon", nil), http.StatusUnauthorized, response.ErrTokenRequired)
}

// ─── Quizzes ────────────────────────────────────────────────────────

func sampleQuiz() *model.Quiz {
	return &model.Quiz{
		ID: 7, Title: "Math Quiz - Grade 5", Subject: "math", Grade: 5,
		Difficulty: model.DifficultyMedium, MaxScore: 100,
		Questions: []model.Question{{
			ID: 1, QuizID: 7, Position: 1, Text: "2+2?",
			Options:       []model.Option{{Label: "A", Text: "3"}, {Label: "B", Text: "4"}},
			CorrectAnswer: "B",
		}},
	}
}

func TestGetQuizHidesAnswers(t *testing.T) {
	h := NewQuizHandler(&stubQuizzes{quiz: sampleQuiz()}, zerolog.Nop())
	r := gin.New()
	r.GET("/quizzes/:id", h.Get)

	w := do(r, http.MethodGet, "/quizzes/7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "correct_answer") {
		t.Fatalf("answer key leaked: %s", w.Body.String())
	}

	expectError(t, do(r, http.MethodGet, "/quizzes/abc", nil), http.StatusBadRequest, response.ErrInvalidID)
	expectError(t, do(r, http.MethodGet, "/quizzes/0", nil), http.StatusBadRequest, response.ErrInvalidID)
}

func TestQuizErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   response.ErrCode
	}{
		{service.ErrQuizNotFound, http.StatusNotFound, response.ErrQuizNotFound},
		{service.ErrQuestionNotFound, http.StatusNotFound, response.ErrQuestionNotFound},
		{service.ErrAIUnavailable, http.StatusServiceUnavailable, response.ErrAIUnavailable},
		{service.ErrAIInvalidOutput, http.StatusServiceUnavailable, response.ErrAIInvalidOutput},
		{context.DeadlineExceeded, http.StatusInternalServerError, response.ErrInternal},
	}
	for _, tc := range cases {
		h := NewQuizHandler(&stubQuizzes{err: tc.err}, zerolog.Nop())
		r := gin.New()
		r.GET("/quizzes/:id/questions/:question_id/hint", h.Hint)
		expectError(t, do(r, http.MethodGet, "/quizzes/1/questions/2/hint", nil), tc.status, tc.code)
	}
}

func TestGenerateQuiz(t *testing.T) {
	quizzes := &stubQuizzes{quiz: sampleQuiz()}
	h := NewQuizHandler(quizzes, zerolog.Nop())
	r := gin.New()
	r.POST("/generate", withUser("alice"), h.Generate)

	w := do(r, http.MethodPost, "/generate", map[string]interface{}{
		"grade": 5, "subject": "math", "total_questions": 1, "max_score": 100, "difficulty": "nightmare",
	})
	expectError(t, w, http.StatusBadRequest, response.ErrValidation)

	w = do(r, http.MethodPost, "/generate", map[string]interface{}{
		"grade": 5, "subject": "math", "total_questions": 1, "max_score": 100, "difficulty": "adaptive",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if quizzes.lastBy != "alice" || quizzes.lastReq.Difficulty != "adaptive" {
		t.Fatalf("service got %q %+v", quizzes.lastBy, quizzes.lastReq)
	}
	if strings.Contains(w.Body.String(), "correct_answer") {
		t.Fatalf("answer key leaked: %s", w.Body.String())
	}
}

// ─── Submissions ────────────────────────────────────────────────────

func TestSubmitAndRetry(t *testing.T) {
	subs := &stubSubmissions{}
	var logs bytes.Buffer
	h := NewSubmissionHandler(subs, zerolog.New(&logs))
	r := gin.New()
	r.Use(withUser("alice"))
	r.POST("/quizzes/:id/submit", h.Submit)
	r.POST("/quizzes/:id/retry", h.Retry)

	body := map[string]interface{}{"answers": []map[string]interface{}{{"question_id": 1, "answer": "B"}}}

	w := do(r, http.MethodPost, "/quizzes/7/submit", body)
	if w.Code != http.StatusCreated || subs.requireRetry {
		t.Fatalf("submit = %d, requireRetry %v", w.Code, subs.requireRetry)
	}
	// Grading is logged once, by the service.
	if logs.Len() != 0 {
		t.Errorf("handler logged a successful submit: %s", logs.String())
	}

	w = do(r, http.MethodPost, "/quizzes/7/retry", body)
	if w.Code != http.StatusCreated || !subs.requireRetry {
		t.Fatalf("retry = %d, requireRetry %v", w.Code, subs.requireRetry)
	}

	subs.err = service.ErrNoPriorSubmission
	expectError(t, do(r, http.MethodPost, "/quizzes/7/retry", body), http.StatusConflict, response.ErrNoPriorSubmission)

	bad := map[string]interface{}{"answers": []map[string]interface{}{{"answer": "B"}}}
	expectError(t, do(r, http.MethodPost, "/quizzes/7/submit", bad), http.StatusBadRequest, response.ErrValidation)
}

func TestHistoryParsesFilters(t *testing.T) {
	subs := &stubSubmissions{}
	h := NewSubmissionHandler(subs, zerolog.Nop())
	r := gin.New()
	r.GET("/submissions", withUser("alice"), h.History)

	w := do(r, http.MethodGet, "/submissions?quiz_id=3&subject=Math&grade=5&min_score=10&max_score=90&from=2026-01-01&to=2026-01-31&page=2&per_page=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if decode(t, w).Pagination == nil {
		t.Fatal("expected pagination")
	}

	f := subs.filter
	if f.Username != "alice" || *f.QuizID != 3 || f.Subject != "Math" || *f.Grade != 5 {
		t.Fatalf("filter = %+v", f)
	}
	if *f.MinScore != 10 || *f.MaxScore != 90 || f.Page != 2 || f.PerPage != 5 {
		t.Fatalf("filter = %+v", f)
	}
	if !f.From.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", f.From)
	}
	if !f.To.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)) {
		t.Fatalf("to = %v", f.To)
	}
}

func TestHistoryRejectsMalformedFilters(t *testing.T) {
	h := NewSubmissionHandler(&stubSubmissions{}, zerolog.Nop())
	r := gin.New()
	r.GET("/submissions", withUser("alice"), h.History)

	w := do(r, http.MethodGet, "/submissions?grade=zero&from=yesterday&min_score=-1", nil)
	expectError(t, w, http.StatusBadRequest, response.ErrValidation)
	fields := decode(t, w).Error.Fields
	for _, name := range []string{"grade", "from", "min_score"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("missing field error for %s in %+v", name, fields)
		}
	}
}

func TestReviewAndSuggestionsNotFound(t *testing.T) {
	h := NewSubmissionHandler(&stubSubmissions{err: service.ErrSubmissionNotFound}, zerolog.Nop())
	r := gin.New()
	r.Use(withUser("alice"))
	r.GET("/submissions/:id", h.Review)
	r.GET("/submissions/:id/suggestions", h.Suggestions)

	expectError(t, do(r, http.MethodGet, "/submissions/9", nil), http.StatusNotFound, response.ErrSubmissionNotFound)
	expectError(t, do(r, http.MethodGet, "/submissions/9/suggestions", nil), http.StatusNotFound, response.ErrSubmissionNotFound)
}

// ─── Leaderboard ────────────────────────────────────────────────────

func TestLeaderboardFilters(t *testing.T) {
	lb := &stubLeaderboard{}
	h := NewLeaderboardHandler(lb, zerolog.Nop())
	r := gin.New()
	r.GET("/leaderboard", h.Top)

	w := do(r, http.MethodGet, "/leaderboard?subject=science&grade=4&limit=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if lb.filter.Subject != "science" || *lb.filter.Grade != 4 || lb.filter.Limit != 3 || lb.filter.QuizID != nil {
		t.Fatalf("filter = %+v", lb.filter)
	}

	expectError(t, do(r, http.MethodGet, "/leaderboard?quiz_id=-2", nil), http.StatusBadRequest, response.ErrValidation)
}

func TestUpdateMatches(t *testing.T) {
	grade := 5
	quizID := int64(3)
	u := model.LeaderboardUpdate{QuizID: 3, Subject: "Math", Grade: 5}

	cases := []struct {
		name string
		f    model.LeaderboardFilter
		want bool
	}{
		{"global", model.LeaderboardFilter{}, true},
		{"subject case-insensitive", model.LeaderboardFilter{Subject: "math"}, true},
		{"other subject", model.LeaderboardFilter{Subject: "art"}, false},
		{"grade", model.LeaderboardFilter{Grade: &grade}, true},
		{"quiz", model.LeaderboardFilter{QuizID: &quizID}, true},
	}
	for _, tc := range cases {
		if got := updateMatches(tc.f, u); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}

	other := 6
	if updateMatches(model.LeaderboardFilter{Grade: &other}, u) {
		t.Error("grade mismatch should not match")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := formatDuration(90 * time.Second); got != "1m 30s" {
		t.Errorf("got %q", got)
	}
	if got := formatDuration(26 * time.Hour); got != "1d 2h 0m" {
		t.Errorf("got %q", got)
	}
}
