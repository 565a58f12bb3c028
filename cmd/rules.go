package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"guardian/pkg/assistant"
	"guardian/pkg/config"

	"github.com/spf13/cobra"
)

const rulePreviewLimit = 60

var rulesLanguage string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active assistant rules",
	Long:  "Lists the rulebook in priority order: the first rule whose keyword appears in a question answers it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		lang, err := assistant.ParseLanguage(rulesLanguage)
		if err != nil {
			return err
		}

		rulebook, err := loadRulebook(cfg)
		if err != nil {
			return err
		}

		renderRules(cmd.OutOrStdout(), rulebook, lang)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVar(&rulesLanguage, "lang", "en", "language of the response preview: en or hi")
}

func renderRules(out io.Writer, rulebook *assistant.Rulebook, lang assistant.Language) {
	table := newTable(out, "#", "Keywords", "Response")
	for i, rule := range rulebook.Rules() {
		table.Append([]string{
			strconv.Itoa(i + 1),
			strings.Join(rule.Keywords, ", "),
			preview(rule.Response.In(lang), rulePreviewLimit),
		})
	}
	table.Render()

	fmt.Fprintf(out, "fallback: %s\n", preview(rulebook.Fallback(lang), rulePreviewLimit))
}

func preview(text string, limit int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= limit {
		return string(runes)
	}

	return string(runes[:limit]) + "…"
}
