package grading

import (
	"testing"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

func threeQuestions() []model.Question {
	return []model.Question{
		{ID: 1, Text: "Q1", CorrectAnswer: "A"},
		{ID: 2, Text: "Q2", CorrectAnswer: "B"},
		{ID: 3, Text: "Q3", CorrectAnswer: "C"},
	}
}

func TestGrade_ProportionalScore(t *testing.T) {
	answers := []model.SubmittedAnswer{
		{QuestionID: 1, Answer: "A"},
		{QuestionID: 2, Answer: "x"},
		{QuestionID: 3, Answer: "C"},
	}

	res := Grade(10, threeQuestions(), answers)

	if res.Score != 7 {
		t.Errorf("expected score 7, got %d", res.Score)
	}
	if res.CorrectCount != 2 {
		t.Errorf("expected 2 correct, got %d", res.CorrectCount)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(res.Outcomes))
	}
	if res.Outcomes[1].IsCorrect {
		t.Error("question 2 should be incorrect")
	}
	if res.Outcomes[1].UserAnswer != "x" {
		t.Errorf("outcome should keep raw answer, got %q", res.Outcomes[1].UserAnswer)
	}
}

func TestGrade_ZeroQuestions(t *testing.T) {
	res := Grade(10, nil, []model.SubmittedAnswer{{QuestionID: 1, Answer: "A"}})

	if res.Score != 0 {
		t.Errorf("expected score 0, got %d", res.Score)
	}
	if len(res.Outcomes) != 0 {
		t.Errorf("expected empty breakdown, got %d outcomes", len(res.Outcomes))
	}
}

func TestGrade_IgnoresUnknownQuestionIDs(t *testing.T) {
	answers := []model.SubmittedAnswer{
		{QuestionID: 1, Answer: "A"},
		{QuestionID: 99, Answer: "A"},
	}

	res := Grade(9, threeQuestions(), answers)

	if len(res.Outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(res.Outcomes))
	}
	if res.Score != 3 {
		t.Errorf("expected score 3, got %d", res.Score)
	}
	if _, ok := res.Answers["99"]; ok {
		t.Error("unknown question id should not be recorded")
	}
}

func TestGrade_CaseAndWhitespaceInsensitive(t *testing.T) {
	questions := []model.Question{{ID: 1, CorrectAnswer: "A"}}

	res := Grade(5, questions, []model.SubmittedAnswer{{QuestionID: 1, Answer: "  a "}})

	if !res.Outcomes[0].IsCorrect {
		t.Error("expected 'a' to match key 'A'")
	}
	if res.Score != 5 {
		t.Errorf("expected full score, got %d", res.Score)
	}
}

func TestGrade_DuplicateAnswersLastWins(t *testing.T) {
	questions := []model.Question{{ID: 1, CorrectAnswer: "A"}}

	tests := []struct {
		name    string
		answers []model.SubmittedAnswer
		want    bool
	}{
		{"wrong then right", []model.SubmittedAnswer{{QuestionID: 1, Answer: "B"}, {QuestionID: 1, Answer: "A"}}, true},
		{"right then wrong", []model.SubmittedAnswer{{QuestionID: 1, Answer: "A"}, {QuestionID: 1, Answer: "B"}}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Grade(1, questions, tc.answers)
			if len(res.Outcomes) != 1 {
				t.Fatalf("expected a single outcome, got %d", len(res.Outcomes))
			}
			if res.Outcomes[0].IsCorrect != tc.want {
				t.Errorf("expected correct=%v", tc.want)
			}
		})
	}
}

func TestScore_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		max, correct, total int
		want                int
	}{
		{3, 5, 6, 3},    // 2.5
		{5, 1, 2, 3},    // 2.5
		{1, 1, 2, 1},    // 0.5
		{10, 2, 3, 7},   // 6.67
		{10, 1, 3, 3},   // 3.33
		{7, 3, 6, 4},    // 3.5
		{100, 1, 3, 33}, // 33.33
	}

	for _, tc := range tests {
		got := Score(tc.max, tc.correct, tc.total)
		if got != tc.want {
			t.Errorf("Score(%d, %d, %d) = %d, want %d", tc.max, tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for _, max := range []int{0, 1, 7, 10, 100} {
			if got := Score(max, n, n); got != max {
				t.Errorf("all correct (n=%d, max=%d): got %d", n, max, got)
			}
			if got := Score(max, 0, n); got != 0 {
				t.Errorf("none correct (n=%d, max=%d): got %d", n, max, got)
			}
			for c := 0; c <= n; c++ {
				got := Score(max, c, n)
				if got < 0 || got > max {
					t.Errorf("score %d out of [0,%d]", got, max)
				}
			}
		}
	}
}

func TestGrade_NoAnswers(t *testing.T) {
	res := Grade(10, threeQuestions(), nil)

	if res.Score != 0 || res.CorrectCount != 0 {
		t.Errorf("expected zero score, got %d", res.Score)
	}
	if res.TotalQuestions != 3 {
		t.Errorf("expected 3 total questions, got %d", res.TotalQuestions)
	}
}

func TestAnswersMatch(t *testing.T) {
	tests := []struct {
		submitted, key string
		want           bool
	}{
		{"A", "A", true},
		{"a", "A", true},
		{" Paris\n", "paris", true},
		{"B", "A", false},
		{"", "A", false},
	}
	for _, tc := range tests {
		if got := AnswersMatch(tc.submitted, tc.key); got != tc.want {
			t.Errorf("AnswersMatch(%q, %q) = %v", tc.submitted, tc.key, got)
		}
	}
}
