package assistant

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultRulesPath = "rules/guardian.yaml"

//go:embed rules/*.yaml
var rulesFS embed.FS

// Response is one canned reply in both supported languages.
type Response struct {
	EN string `yaml:"en" validate:"required"`
	HI string `yaml:"hi" validate:"required"`
}

// In returns the localized text, reading English for unknown languages.
func (r Response) In(lang Language) string {
	if lang == Hindi {
		return r.HI
	}

	return r.EN
}

// ResponseRule pairs lower-case trigger substrings with a canned reply.
type ResponseRule struct {
	Keywords []string `yaml:"keywords" validate:"required,min=1,dive,required,lowercase"`
	Response Response `yaml:"response"`
}

type rulebookDocument struct {
	Fallback       Response       `yaml:"fallback"`
	Welcome        Response       `yaml:"welcome"`
	QuickQuestions []Response     `yaml:"quick_questions" validate:"dive"`
	Rules          []ResponseRule `yaml:"rules" validate:"required,min=1,dive"`
}

// Rulebook is an ordered, immutable rule table plus the fixed assistant
// texts. It is safe for concurrent use.
type Rulebook struct {
	rules          []ResponseRule
	fallback       Response
	welcome        Response
	quickQuestions []Response
}

var (
	defaultOnce     sync.Once
	defaultRulebook *Rulebook
)

// Default returns the built-in rulebook. The embedded table is validated by
// tests, so a parse failure here is a build defect.
func Default() *Rulebook {
	defaultOnce.Do(func() {
		content, err := rulesFS.ReadFile(defaultRulesPath)
		if err != nil {
			panic(fmt.Sprintf("assistant: read embedded rules: %v", err))
		}

		book, err := Parse(content)
		if err != nil {
			panic(fmt.Sprintf("assistant: embedded rules: %v", err))
		}
		defaultRulebook = book
	})

	return defaultRulebook
}

// LoadFile reads and validates a rulebook from a YAML file.
func LoadFile(path string) (*Rulebook, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("rules file path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	book, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("load rules file %s: %w", path, err)
	}

	return book, nil
}

// Parse decodes and validates a YAML rulebook document.
func Parse(content []byte) (*Rulebook, error) {
	var doc rulebookDocument
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}

	return newRulebook(doc), nil
}

func newRulebook(doc rulebookDocument) *Rulebook {
	rules := make([]ResponseRule, len(doc.Rules))
	for i, rule := range doc.Rules {
		rules[i] = ResponseRule{
			Keywords: append([]string(nil), rule.Keywords...),
			Response: rule.Response,
		}
	}

	return &Rulebook{
		rules:          rules,
		fallback:       doc.Fallback,
		welcome:        doc.Welcome,
		quickQuestions: append([]Response(nil), doc.QuickQuestions...),
	}
}

// Rules returns a copy of the ordered rule table.
func (b *Rulebook) Rules() []ResponseRule {
	out := make([]ResponseRule, len(b.rules))
	for i, rule := range b.rules {
		out[i] = ResponseRule{
			Keywords: append([]string(nil), rule.Keywords...),
			Response: rule.Response,
		}
	}

	return out
}

// Len returns the number of rules.
func (b *Rulebook) Len() int {
	return len(b.rules)
}

// Fallback returns the reply used when no rule matches.
func (b *Rulebook) Fallback(lang Language) string {
	return b.fallback.In(lang)
}

// Welcome returns the greeting that opens every conversation.
func (b *Rulebook) Welcome(lang Language) string {
	return b.welcome.In(lang)
}

// QuickQuestions returns the suggested openers in the given language.
func (b *Rulebook) QuickQuestions(lang Language) []string {
	out := make([]string, 0, len(b.quickQuestions))
	for _, question := range b.quickQuestions {
		out = append(out, question.In(lang))
	}

	return out
}
