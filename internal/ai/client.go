// Package ai talks to an OpenAI-compatible chat completions endpoint (Gemini by default)
// to generate quiz questions and short free-text answers.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

var (
	// ErrUnavailable means the upstream call failed or the client is not configured.
	ErrUnavailable = errors.New("ai service unavailable")
	// ErrInvalidOutput means the upstream answered but nothing usable could be parsed.
	ErrInvalidOutput = errors.New("ai service returned invalid output")
)

const submitQuestionsTool = "submit_questions"

var optionLabels = []string{"A", "B", "C", "D"}

// Config configures the upstream endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// QuestionRequest describes a batch of questions to generate.
type QuestionRequest struct {
	Subject    string
	Grade      int
	Count      int
	Difficulty model.Difficulty
}

// GeneratedQuestion is a validated question returned by the model.
type GeneratedQuestion struct {
	Text          string
	Options       []model.Option
	CorrectAnswer string
	Difficulty    model.Difficulty
}

// Client generates structured questions and plain text.
type Client struct {
	api     *openai.Client
	model   string
	prompts *Prompts
	log     zerolog.Logger
}

// NewClient creates a Client. A client without an API key is still returned;
// every call on it fails with ErrUnavailable.
func NewClient(cfg Config, prompts *Prompts, log zerolog.Logger) *Client {
	c := &Client{
		model:   cfg.Model,
		prompts: prompts,
		log:     log.With().Str("component", "ai_client").Logger(),
	}
	if cfg.APIKey == "" {
		c.log.Warn().Msg("AI API key not set; AI-backed endpoints will return 503")
		return c
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	c.api = openai.NewClientWithConfig(oc)
	return c
}

// Prompts exposes the loaded prompt templates.
func (c *Client) Prompts() *Prompts {
	return c.prompts
}

// GenerateQuestions asks the model for req.Count questions through a forced
// tool call and returns the items that pass validation, at most req.Count.
func (c *Client) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]GeneratedQuestion, error) {
	if c.api == nil {
		return nil, fmt.Errorf("%w: client not configured", ErrUnavailable)
	}

	system, err := c.prompts.Render(PromptSystem, nil)
	if err != nil {
		return nil, err
	}
	prompt, err := c.prompts.Render(PromptQuiz, QuizPromptData{
		Subject:    req.Subject,
		Grade:      req.Grade,
		Count:      req.Count,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        submitQuestionsTool,
				Description: "Submit the generated multiple-choice questions",
				Parameters:  questionsSchema(),
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: submitQuestionsTool},
		},
	})
	if err != nil {
		c.log.Error().Err(err).Str("subject", req.Subject).Msg("Question generation request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: no tool call in response", ErrInvalidOutput)
	}
	call := resp.Choices[0].Message.ToolCalls[0]
	if call.Function.Name != submitQuestionsTool {
		return nil, fmt.Errorf("%w: unexpected tool call %q", ErrInvalidOutput, call.Function.Name)
	}

	var args struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	out := make([]GeneratedQuestion, 0, len(args.Questions))
	for i, raw := range args.Questions {
		q, ok := raw.normalize(req.Difficulty)
		if !ok {
			c.log.Warn().Int("index", i).Msg("Skipping malformed generated question")
			continue
		}
		out = append(out, q)
		if len(out) == req.Count {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no valid questions", ErrInvalidOutput)
	}

	c.log.Info().
		Str("subject", req.Subject).
		Int("requested", req.Count).
		Int("received", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Questions generated")
	return out, nil
}

// GenerateText returns a plain completion for prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%w: client not configured", ErrUnavailable)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Text generation request failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrInvalidOutput)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrInvalidOutput)
	}
	return text, nil
}

type rawQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Difficulty    string   `json:"difficulty"`
}

// normalize validates a raw item and converts it to labeled options. The
// correct answer may be given as a letter or as the full option text.
func (r rawQuestion) normalize(fallback model.Difficulty) (GeneratedQuestion, bool) {
	text := strings.TrimSpace(r.Text)
	if text == "" || len(r.Options) != len(optionLabels) {
		return GeneratedQuestion{}, false
	}

	key := strings.TrimSpace(r.CorrectAnswer)
	key = strings.TrimSuffix(strings.TrimSuffix(key, "."), ")")
	correct := ""
	options := make([]model.Option, len(r.Options))
	for i, o := range r.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			return GeneratedQuestion{}, false
		}
		options[i] = model.Option{Label: optionLabels[i], Text: o}
		if strings.EqualFold(key, optionLabels[i]) || strings.EqualFold(key, o) {
			if correct == "" {
				correct = optionLabels[i]
			}
		}
	}
	if correct == "" {
		return GeneratedQuestion{}, false
	}

	d := model.Difficulty(strings.ToLower(strings.TrimSpace(r.Difficulty)))
	if !d.Valid() {
		d = fallback
	}
	return GeneratedQuestion{Text: text, Options: options, CorrectAnswer: correct, Difficulty: d}, true
}

func questionsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{
							"type":        "string",
							"description": "The question text",
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 answer options, without letters",
						},
						"correct_answer": map[string]any{
							"type":        "string",
							"enum":        optionLabels,
							"description": "Letter of the correct option",
						},
						"difficulty": map[string]any{
							"type": "string",
							"enum": []string{"easy", "medium", "hard"},
						},
					},
					"required": []string{"text", "options", "correct_answer", "difficulty"},
				},
			},
		},
		"required": []string{"questions"},
	}
}
