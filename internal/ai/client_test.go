package ai

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prompts, err := LoadPrompts("")
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, prompts, zerolog.Nop())
}

func toolCallResponse(t *testing.T, name string, args any) []byte {
	t.Helper()
	argBytes, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	body := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"role": "assistant",
				"tool_calls": []any{map[string]any{
					"id":   "call_1",
					"type": "function",
					"function": map[string]any{
						"name":      name,
						"arguments": string(argBytes),
					},
				}},
			},
		}},
	}
	out, _ := json.Marshal(body)
	return out
}

func textResponse(content string) []byte {
	out, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-2",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return out
}

func TestGenerateQuestions_ParsesToolCall(t *testing.T) {
	var gotPath string
	var gotReq map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(toolCallResponse(t, submitQuestionsTool, map[string]any{
			"questions": []any{
				map[string]any{"text": "2+2?", "options": []string{"3", "4", "5", "6"}, "correct_answer": "B", "difficulty": "easy"},
				map[string]any{"text": "Capital of France?", "options": []string{"Rome", "Paris", "Oslo", "Bern"}, "correct_answer": "Paris", "difficulty": "bogus"},
				map[string]any{"text": "broken", "options": []string{"only", "three", "opts"}, "correct_answer": "A"},
				map[string]any{"text": "extra", "options": []string{"a", "b", "c", "d"}, "correct_answer": "A", "difficulty": "hard"},
			},
		}))
	})

	qs, err := client.GenerateQuestions(t.Context(), QuestionRequest{
		Subject: "Math", Grade: 5, Count: 2, Difficulty: model.DifficultyMedium,
	})
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotReq["model"] != "test-model" {
		t.Errorf("unexpected model %v", gotReq["model"])
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions (truncated to count), got %d", len(qs))
	}
	if qs[0].CorrectAnswer != "B" || qs[0].Options[1].Text != "4" || qs[0].Difficulty != model.DifficultyEasy {
		t.Errorf("unexpected first question %+v", qs[0])
	}
	if qs[1].CorrectAnswer != "B" {
		t.Errorf("answer given as option text should map to its label, got %q", qs[1].CorrectAnswer)
	}
	if qs[1].Difficulty != model.DifficultyMedium {
		t.Errorf("invalid difficulty should fall back to requested, got %q", qs[1].Difficulty)
	}
}

func TestGenerateQuestions_NoValidItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(toolCallResponse(t, submitQuestionsTool, map[string]any{
			"questions": []any{
				map[string]any{"text": "", "options": []string{"a", "b", "c", "d"}, "correct_answer": "A"},
				map[string]any{"text": "q", "options": []string{"a", "b", "c", "d"}, "correct_answer": "E"},
			},
		}))
	})

	_, err := client.GenerateQuestions(t.Context(), QuestionRequest{Subject: "Math", Grade: 5, Count: 2})
	if !errors.Is(err, ErrInvalidOutput) {
		t.Fatalf("expected ErrInvalidOutput, got %v", err)
	}
}

func TestGenerateQuestions_UpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	_, err := client.GenerateQuestions(t.Context(), QuestionRequest{Subject: "Math", Grade: 5, Count: 1})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGenerateText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(textResponse("  Think about even numbers.  "))
	})

	text, err := client.GenerateText(t.Context(), "hint please")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "Think about even numbers." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestClientWithoutKeyIsUnavailable(t *testing.T) {
	prompts, err := LoadPrompts("")
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(Config{}, prompts, zerolog.Nop())

	if _, err := client.GenerateText(t.Context(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestLoadPrompts_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("hint: \"Hint for {{.Question}}\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	prompts, err := LoadPrompts(path)
	if err != nil {
		t.Fatalf("LoadPrompts: %v", err)
	}

	out, err := prompts.Render(PromptHint, HintPromptData{Question: "2+2?"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "Hint for 2+2?" {
		t.Errorf("override not applied, got %q", out)
	}

	quiz, err := prompts.Render(PromptQuiz, QuizPromptData{Subject: "History", Grade: 8, Count: 3, Difficulty: model.DifficultyHard})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(quiz, "grade 8") || !strings.Contains(quiz, "History") {
		t.Errorf("embedded quiz prompt not rendered: %q", quiz)
	}
}

func TestSuggestionsPromptListsMistakes(t *testing.T) {
	prompts, err := LoadPrompts("")
	if err != nil {
		t.Fatal(err)
	}

	out, err := prompts.Render(PromptSuggestions, SuggestionsPromptData{
		Subject: "Math", Grade: 4, Score: 5, MaxScore: 10,
		Mistakes: []Mistake{{Question: "3*3?", UserAnswer: "6", CorrectAnswer: "9"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `3*3? (answered "6", correct "9")`) {
		t.Errorf("mistake missing from prompt: %q", out)
	}
}
