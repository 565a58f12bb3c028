package chat

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunInteractive opens the full-screen chat until the user quits.
func RunInteractive(ctx context.Context, conv Conversation) error {
	model := newModel(ctx, conv, modeInteractive, "")
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return err
	}

	fmt.Println(renderGoodbyeBanner())
	return nil
}

// RunOneShot sends prompt, renders the answer and exits.
func RunOneShot(ctx context.Context, conv Conversation, prompt string) error {
	model := newModel(ctx, conv, modeOneShot, prompt)
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("166")).
		Padding(1, 2)

	return style.Render("🙏 Har Har Mahadev. Thanks for using Simhastha Guardian")
}
