package assistant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultRulebookOrder(t *testing.T) {
	book := Default()
	if book.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", book.Len())
	}

	var got [][]string
	for _, rule := range book.Rules() {
		got = append(got, rule.Keywords)
	}

	want := [][]string{
		{"hello", "hi", "namaste", "hey"},
		{"timing", "time", "schedule", "when", "samay"},
		{"direction", "route", "how to reach", "path", "rasta"},
		{"health", "medical", "doctor", "first aid", "swasthya"},
		{"crowd", "rush", "busy", "bheed"},
		{"food", "prasad", "bhojan", "khana"},
		{"lost", "missing", "help", "khoya", "madad"},
		{"donation", "daan", "seva"},
		{"parking", "vehicle", "car", "gaadi"},
		{"weather", "mausam", "temperature"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("keyword table mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultRulebookTexts(t *testing.T) {
	book := Default()

	for i, rule := range book.Rules() {
		if rule.Response.EN == "" || rule.Response.HI == "" {
			t.Fatalf("rule %d has an empty localized response", i)
		}
	}

	if !strings.HasPrefix(book.Welcome(English), "Hello! Welcome to Simhastha Guardian.") {
		t.Fatalf("welcome(en) = %q", book.Welcome(English))
	}
	if !strings.HasPrefix(book.Welcome(Hindi), "नमस्ते!") {
		t.Fatalf("welcome(hi) = %q", book.Welcome(Hindi))
	}

	want := []string{
		"What are the bathing timings?",
		"How to reach the main ghat?",
		"Current crowd status?",
		"Medical facilities available?",
	}
	if diff := cmp.Diff(want, book.QuickQuestions(English)); diff != "" {
		t.Fatalf("quick questions mismatch (-want +got):\n%s", diff)
	}
	if got := len(book.QuickQuestions(Hindi)); got != 4 {
		t.Fatalf("len(QuickQuestions(hi)) = %d, want 4", got)
	}
}

func TestRulesReturnsCopy(t *testing.T) {
	book := Default()

	rules := book.Rules()
	rules[0].Keywords[0] = "mutated"
	rules[0].Response.EN = "mutated"

	again := book.Rules()
	if again[0].Keywords[0] != "hello" || again[0].Response.EN == "mutated" {
		t.Fatal("Rules() exposed internal state")
	}
}

func TestParseRejectsInvalidRulebooks(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "uppercase keyword",
			content: `
fallback: {en: "no", hi: "नहीं"}
welcome: {en: "hi", hi: "नमस्ते"}
rules:
  - keywords: ["Hello"]
    response: {en: "a", hi: "b"}
`,
		},
		{
			name: "empty keywords",
			content: `
fallback: {en: "no", hi: "नहीं"}
welcome: {en: "hi", hi: "नमस्ते"}
rules:
  - keywords: []
    response: {en: "a", hi: "b"}
`,
		},
		{
			name: "missing hindi response",
			content: `
fallback: {en: "no", hi: "नहीं"}
welcome: {en: "hi", hi: "नमस्ते"}
rules:
  - keywords: ["hello"]
    response: {en: "a"}
`,
		},
		{
			name: "missing fallback",
			content: `
welcome: {en: "hi", hi: "नमस्ते"}
rules:
  - keywords: ["hello"]
    response: {en: "a", hi: "b"}
`,
		},
		{
			name:    "no rules",
			content: `fallback: {en: "no", hi: "नहीं"}`,
		},
		{
			name:    "malformed yaml",
			content: "rules: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.content)); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
fallback: {en: "unknown", hi: "अज्ञात"}
welcome: {en: "welcome", hi: "स्वागत"}
rules:
  - keywords: ["ghat"]
    response: {en: "ghat info", hi: "घाट जानकारी"}
  - keywords: ["gh"]
    response: {en: "never first", hi: "कभी नहीं"}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	book, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if got := book.Match("Ram GHAT", Hindi); got != "घाट जानकारी" {
		t.Fatalf("Match = %q, want %q", got, "घाट जानकारी")
	}
	if got := book.Match("temple", English); got != "unknown" {
		t.Fatalf("Match fallback = %q, want %q", got, "unknown")
	}
	if got := book.QuickQuestions(English); len(got) != 0 {
		t.Fatalf("QuickQuestions = %v, want empty", got)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
