package model

// Option is one labeled choice of a multiple-choice question, e.g. {"A", "Paris"}.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question represents a single quiz question.
// CorrectAnswer is the key matched against submitted answers (usually the option label).
type Question struct {
	ID            int64      `json:"id"`
	QuizID        int64      `json:"quiz_id"`
	Position      int        `json:"position"`
	Text          string     `json:"text"`
	Options       []Option   `json:"options"`
	CorrectAnswer string     `json:"correct_answer"`
	Difficulty    Difficulty `json:"difficulty"`
}

// QuestionForUser is a question without the correct answer.
type QuestionForUser struct {
	ID         int64      `json:"id"`
	Position   int        `json:"position"`
	Text       string     `json:"text"`
	Options    []Option   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
}

// ForUser strips the answer key from the question.
func (q *Question) ForUser() QuestionForUser {
	return QuestionForUser{
		ID:         q.ID,
		Position:   q.Position,
		Text:       q.Text,
		Options:    q.Options,
		Difficulty: q.Difficulty,
	}
}

// HintResponse is returned by the hint endpoint.
type HintResponse struct {
	QuestionID int64  `json:"question_id"`
	Hint       string `json:"hint"`
	Cached     bool   `json:"cached"`
}
