package assistant

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Language selects which localized string of a rule is read.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
)

// ParseLanguage accepts ISO codes and English names, case-insensitively.
func ParseLanguage(input string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "en", "english":
		return English, nil
	case "hi", "hindi":
		return Hindi, nil
	default:
		return "", fmt.Errorf("unsupported language %q", input)
	}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == English || l == Hindi
}

// Toggle returns the other supported language.
func (l Language) Toggle() Language {
	if l == Hindi {
		return English
	}

	return Hindi
}

func (l Language) String() string {
	return string(l)
}

// DetectLanguage guesses a display language for text written by a client
// that did not pick one. Devanagari text selects Hindi, everything else
// English.
func DetectLanguage(text string) Language {
	if strings.TrimSpace(text) == "" {
		return English
	}

	info := whatlanggo.Detect(text)
	if info.Script == unicode.Devanagari || info.Lang == whatlanggo.Hin {
		return Hindi
	}

	return English
}
