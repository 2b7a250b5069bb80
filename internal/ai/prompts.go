package ai

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/aiquizzer/quizzer-backend/internal/model"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompt names.
const (
	PromptSystem      = "system"
	PromptQuiz        = "quiz"
	PromptHint        = "hint"
	PromptSuggestions = "suggestions"
)

// Prompts holds parsed prompt templates keyed by name.
type Prompts struct {
	templates map[string]*template.Template
}

// QuizPromptData feeds the quiz template.
type QuizPromptData struct {
	Subject    string
	Grade      int
	Count      int
	Difficulty model.Difficulty
}

// HintPromptData feeds the hint template.
type HintPromptData struct {
	Question string
	Options  []model.Option
}

// Mistake is one wrong answer listed in the suggestions prompt.
type Mistake struct {
	Question      string
	UserAnswer    string
	CorrectAnswer string
}

// SuggestionsPromptData feeds the suggestions template.
type SuggestionsPromptData struct {
	Subject  string
	Grade    int
	Score    int
	MaxScore int
	Mistakes []Mistake
}

// LoadPrompts parses the embedded prompts and, when overridePath is set,
// replaces any entries found in that YAML file.
func LoadPrompts(overridePath string) (*Prompts, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(defaultPrompts, &raw); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		override := map[string]string{}
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("parse prompts file %s: %w", overridePath, err)
		}
		for k, v := range override {
			raw[k] = v
		}
	}

	p := &Prompts{templates: make(map[string]*template.Template, len(raw))}
	for name, text := range raw {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", name, err)
		}
		p.templates[name] = tmpl
	}

	for _, name := range []string{PromptSystem, PromptQuiz, PromptHint, PromptSuggestions} {
		if _, ok := p.templates[name]; !ok {
			return nil, fmt.Errorf("prompt %q is missing", name)
		}
	}
	return p, nil
}

// Render executes the named template with data.
func (p *Prompts) Render(name string, data any) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
