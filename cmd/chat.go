package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"guardian/pkg/assistant"
	"guardian/pkg/config"
	"guardian/pkg/logger"
	"guardian/pkg/session"
	"guardian/pkg/session/runtime"
	"guardian/pkg/ui/chat"

	"github.com/spf13/cobra"
)

const localSessionKey = "cli:local"

var (
	promptText   string
	chatLanguage string
	plainMode    bool
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Ask one question or start an interactive chat",
	Long:  "Loads the Guardian rulebook and answers one question, or opens the terminal chat with quick questions and a language toggle.",
	Run: func(cmd *cobra.Command, args []string) {
		prompt := resolvePrompt(args)

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		lang, err := resolveLanguage(cfg)
		if err != nil {
			fmt.Printf("invalid language: %v\n", err)
			return
		}

		rulebook, err := loadRulebook(cfg)
		if err != nil {
			fmt.Printf("failed to load rulebook: %v\n", err)
			return
		}

		// Log lines would tear the full-screen UI.
		log := slog.New(slog.DiscardHandler)
		if plainMode {
			appLogger, closer, err := logger.New(cfg.Logging)
			if err != nil {
				fmt.Printf("failed to initialize logger: %v\n", err)
				return
			}
			defer closer.Close()
			log = appLogger
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		minDelay, maxDelay := cfg.Assistant.TypingDelay()
		conversation := session.New(localSessionKey, rulebook,
			session.WithLanguage(lang),
			session.WithTypingDelay(minDelay, maxDelay),
			session.WithLogger(log),
		)

		local, err := runtime.StartLocalSession(ctx, conversation, log, plainMode)
		if err != nil {
			fmt.Printf("failed to start chat session: %v\n", err)
			return
		}
		defer local.Close()

		switch {
		case plainMode && prompt != "":
			runSinglePrompt(ctx, local, prompt, os.Stdout)
		case plainMode:
			runInteractive(ctx, local, os.Stdin, os.Stdout)
		case prompt != "":
			if err := chat.RunOneShot(ctx, local, prompt); err != nil {
				fmt.Printf("chat failed: %v\n", err)
			}
		default:
			if err := chat.RunInteractive(ctx, local); err != nil {
				fmt.Printf("chat failed: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&promptText, "prompt", "p", "", "question to ask")
	chatCmd.Flags().StringVar(&chatLanguage, "lang", "", "reply language: en or hi (defaults to assistant.language)")
	chatCmd.Flags().BoolVar(&plainMode, "plain", false, "use line-based output instead of the full-screen chat")
}

func resolvePrompt(args []string) string {
	if value := strings.TrimSpace(promptText); value != "" {
		return value
	}

	return strings.TrimSpace(strings.Join(args, " "))
}

func resolveLanguage(cfg *config.Config) (assistant.Language, error) {
	if value := strings.TrimSpace(chatLanguage); value != "" {
		return assistant.ParseLanguage(value)
	}

	return assistant.ParseLanguage(cfg.Assistant.Language)
}

func runSinglePrompt(ctx context.Context, conv chat.Conversation, prompt string, out io.Writer) {
	reply, err := conv.Prompt(ctx, prompt)
	if err != nil {
		fmt.Fprintf(out, "prompt failed: %v\n", err)
		return
	}

	fmt.Fprintln(out, reply.Text)
}

// runInteractive reads one question per line. "/lang" toggles the reply
// language and shows the new welcome.
func runInteractive(ctx context.Context, conv chat.Conversation, in io.Reader, out io.Writer) {
	history := conv.Session().History()
	if len(history) > 0 {
		printAssistantMessage(out, history[0].Text)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "🙏 ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				fmt.Fprintf(out, "input error: %v\n", err)
			}
			return
		}

		prompt := strings.TrimSpace(scanner.Text())
		if prompt == "" {
			continue
		}
		if chat.IsExitCommand(prompt) {
			return
		}
		if prompt == "/lang" {
			next := conv.Session().Language().Toggle()
			if err := conv.SetLanguage(ctx, next); err != nil {
				fmt.Fprintf(out, "language switch failed: %v\n", err)
				continue
			}
			printAssistantMessage(out, conv.Session().History()[0].Text)
			continue
		}

		reply, err := conv.Prompt(ctx, prompt)
		if err != nil {
			fmt.Fprintf(out, "prompt failed: %v\n", err)
			if ctx.Err() != nil {
				return
			}
			continue
		}

		printAssistantMessage(out, reply.Text)
	}
}

func printAssistantMessage(out io.Writer, message string) {
	lines := assistantLines(message)
	for _, line := range lines {
		fmt.Fprintf(out, "🤖 %s\n", line)
	}
	if len(lines) > 0 {
		fmt.Fprintln(out)
	}
}

func assistantLines(message string) []string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "\n")
}
