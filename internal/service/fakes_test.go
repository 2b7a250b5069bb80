package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/aiquizzer/quizzer-backend/internal/ai"
	"github.com/aiquizzer/quizzer-backend/internal/model"
)

type fakeQuizStore struct {
	mu      sync.Mutex
	quizzes map[int64]*model.Quiz
	nextID  int64
	created int
}

func newFakeQuizStore(quizzes ...*model.Quiz) *fakeQuizStore {
	f := &fakeQuizStore{quizzes: map[int64]*model.Quiz{}, nextID: 100}
	for _, q := range quizzes {
		f.quizzes[q.ID] = q
	}
	return f
}

func (f *fakeQuizStore) CreateWithQuestions(_ context.Context, q *model.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	q.ID = f.nextID
	for i := range q.Questions {
		f.nextID++
		q.Questions[i].ID = f.nextID
		q.Questions[i].QuizID = q.ID
		q.Questions[i].Position = i + 1
	}
	f.quizzes[q.ID] = q
	f.created++
	return nil
}

func (f *fakeQuizStore) GetWithQuestions(_ context.Context, id int64) (*model.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return q, nil
}

func (f *fakeQuizStore) GetQuestion(_ context.Context, quizID, questionID int64) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[quizID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return &q.Questions[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeGenerator struct {
	mu        sync.Mutex
	prompts   *ai.Prompts
	questions []ai.GeneratedQuestion
	text      string
	err       error
	lastReq   ai.QuestionRequest
	lastText  string
	textCalls int
}

func newFakeGenerator(t *testing.T) *fakeGenerator {
	t.Helper()
	p, err := ai.LoadPrompts("")
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	return &fakeGenerator{prompts: p}
}

func (f *fakeGenerator) GenerateQuestions(_ context.Context, req ai.QuestionRequest) ([]ai.GeneratedQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textCalls++
	f.lastText = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) Prompts() *ai.Prompts {
	return f.prompts
}

type fakeAdvisor struct {
	difficulty model.Difficulty
	calls      int
}

func (f *fakeAdvisor) RecommendDifficulty(context.Context, string, string) (model.Difficulty, error) {
	f.calls++
	return f.difficulty, nil
}

type fakeHintCache struct {
	mu    sync.Mutex
	hints map[int64]string
}

func (f *fakeHintCache) Get(_ context.Context, id int64) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hints[id]
	return h, ok, nil
}

func (f *fakeHintCache) Set(_ context.Context, id int64, hint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hints == nil {
		f.hints = map[int64]string{}
	}
	f.hints[id] = hint
	return nil
}

type fakeSubmissionStore struct {
	mu          sync.Mutex
	submissions []*model.Submission
	listFilter  model.SubmissionFilter
	listTotal   int
}

func (f *fakeSubmissionStore) Create(_ context.Context, s *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, prev := range f.submissions {
		if prev.QuizID == s.QuizID && prev.Username == s.Username {
			s.IsRetry = true
			break
		}
	}
	s.ID = int64(len(f.submissions) + 1)
	f.submissions = append(f.submissions, s)
	return nil
}

func (f *fakeSubmissionStore) HasSubmission(_ context.Context, quizID int64, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.submissions {
		if s.QuizID == quizID && s.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubmissionStore) GetForUser(_ context.Context, id int64, username string) (*model.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.submissions {
		if s.ID == id && s.Username == username {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSubmissionStore) List(_ context.Context, filter model.SubmissionFilter) ([]model.SubmissionSummary, int, error) {
	f.listFilter = filter
	return nil, f.listTotal, nil
}

type fakeStatsQueue struct {
	deltas []model.ProfileStatsDelta
}

func (f *fakeStatsQueue) Enqueue(_ context.Context, d model.ProfileStatsDelta) error {
	f.deltas = append(f.deltas, d)
	return nil
}

type fakeNotifier struct {
	updates []model.LeaderboardUpdate
}

func (f *fakeNotifier) NotifySubmission(_ context.Context, u model.LeaderboardUpdate) {
	f.updates = append(f.updates, u)
}

type fakeProfileStore struct {
	profiles map[string]*model.UserProfile
}

func (f *fakeProfileStore) Get(_ context.Context, username string) (*model.UserProfile, error) {
	p, ok := f.profiles[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}
