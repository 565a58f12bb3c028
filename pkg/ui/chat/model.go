package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"guardian/pkg/assistant"
	"guardian/pkg/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type mode int

const (
	modeInteractive mode = iota
	modeOneShot
)

// Conversation is the chat session the UI drives.
type Conversation interface {
	Prompt(ctx context.Context, text string) (session.ChatMessage, error)
	SetLanguage(ctx context.Context, lang assistant.Language) error
	Session() *session.Session
}

type entry struct {
	fromUser bool
	isError  bool
	text     string
	time     string
}

type replyMsg struct {
	reply session.ChatMessage
	err   error
}

type model struct {
	ctx          context.Context
	conv         Conversation
	mode         mode
	oneShotInput string

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	entries   []entry
	language  assistant.Language
	quick     []string
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	followLog bool
}

func newModel(ctx context.Context, conv Conversation, runMode mode, prompt string) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	in := textinput.New()
	in.Prompt = ""
	in.Focus()
	in.CharLimit = 2000

	m := &model{
		ctx:          ctx,
		conv:         conv,
		mode:         runMode,
		oneShotInput: strings.TrimSpace(prompt),
		theme:        defaultTheme(),
		spinner:      spin,
		input:        in,
		viewport:     viewport.New(80, 12),
		width:        100,
		height:       28,
		followLog:    true,
	}
	m.syncHistory()
	return m
}

func (m *model) Init() tea.Cmd {
	if m.mode == modeOneShot && m.oneShotInput != "" {
		return m.submit(m.oneShotInput)
	}

	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case tea.MouseMsg:
		m.handleViewportMouse(typed)
		return m, nil
	case tea.KeyMsg:
		if next, handled := m.handleKey(typed); handled {
			return m, next
		}
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case replyMsg:
		m.isLoading = false
		if typed.err != nil {
			m.lastErr = typed.err.Error()
			m.entries = append(m.entries, entry{isError: true, text: typed.err.Error()})
		} else {
			m.lastErr = ""
			m.syncHistory()
		}
		m.refreshViewport(false)
		if m.mode == modeOneShot {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.mode == modeInteractive {
		m.input, cmd = m.input.Update(msg)
	}

	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return tea.Quit, true
	}

	if m.mode == modeOneShot {
		return nil, true
	}
	if m.handleViewportKey(msg) {
		return nil, true
	}

	switch key := msg.String(); key {
	case "ctrl+t":
		if m.isLoading {
			return nil, true
		}
		if err := m.conv.SetLanguage(m.ctx, m.language.Toggle()); err != nil {
			m.lastErr = err.Error()
			return nil, true
		}
		m.lastErr = ""
		m.syncHistory()
		m.followLog = true
		m.refreshViewport(true)
		return nil, true
	case "1", "2", "3", "4":
		if m.input.Value() != "" || len(m.quick) == 0 {
			return nil, false
		}
		idx, _ := strconv.Atoi(key)
		if idx > len(m.quick) {
			return nil, false
		}
		m.input.SetValue(m.quick[idx-1])
		m.input.CursorEnd()
		return nil, true
	case "enter":
		if m.isLoading {
			return nil, true
		}

		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return nil, true
		}
		if IsExitCommand(prompt) {
			return tea.Quit, true
		}

		m.input.SetValue("")
		return m.submit(prompt), true
	}

	return nil, false
}

func (m *model) submit(prompt string) tea.Cmd {
	m.lastErr = ""
	m.quick = nil
	m.entries = append(m.entries, entry{fromUser: true, text: prompt})
	m.isLoading = true
	m.followLog = true
	m.refreshViewport(true)
	return tea.Batch(m.spinner.Tick, sendPromptCmd(m.ctx, m.conv, prompt))
}

// syncHistory replaces the rendered conversation with the session's own.
func (m *model) syncHistory() {
	chat := m.conv.Session()
	m.language = chat.Language()
	m.quick = chat.QuickQuestions()

	history := chat.History()
	m.entries = make([]entry, 0, len(history))
	for _, msg := range history {
		m.entries = append(m.entries, entry{
			fromUser: msg.FromUser,
			text:     msg.Text,
			time:     msg.SentAt.Local().Format("15:04"),
		})
	}
	m.input.Placeholder = label(m.language, "Type your message...", "अपना संदेश टाइप करें...")
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}
	if m.mode == modeOneShot {
		return m.oneShotView()
	}

	header := m.theme.header.Width(m.width - 2).Render(label(m.language, "🕉  Simhastha Assistant", "🕉  सिंहस्थ सहायक"))
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"%s · %s · %s:%d",
		label(m.language, "Always here to help", "सहायता के लिए सदैव तत्पर"),
		label(m.language, "language: English", "भाषा: हिंदी"),
		label(m.language, "questions", "प्रश्न"),
		conversationTurns(m.entries),
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("Enter send · Ctrl+T " + label(m.language, "हिन्दी", "English") + " · PgUp/PgDn scroll · Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s %s", m.spinner.View(), label(m.language, "typing...", "टाइप कर रहा है...")))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("🚨 " + m.lastErr)
	}

	parts := []string{header, meta, line, m.theme.viewport.Width(m.width - 2).Render(m.viewport.View())}
	if len(m.quick) > 0 {
		parts = append(parts, m.quickQuestionsView())
	}
	parts = append(parts,
		status,
		m.theme.inputLabel.Render(label(m.language, "You", "आप"))+" "+m.theme.hint.Render("(exit, quit or :q)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *model) quickQuestionsView() string {
	lines := []string{m.theme.hint.Render(label(m.language, "Quick questions:", "त्वरित प्रश्न:"))}
	for i, question := range m.quick {
		if i >= 4 {
			break
		}
		lines = append(lines, m.theme.quick.Render(fmt.Sprintf("[%d] %s", i+1, question)))
	}

	return strings.Join(lines, "\n")
}

func (m *model) resizeComponents() {
	w := max(50, m.width-6)
	h := m.height - 12
	if m.mode == modeOneShot {
		h = m.height - 6
	}
	h = max(8, h)

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	sections := make([]string, 0, len(m.entries)+1)
	for _, item := range m.entries {
		sections = append(sections, m.renderEntry(item, m.viewport.Width))
	}
	if m.isLoading && m.mode == modeInteractive {
		sections = append(sections, m.renderCard(
			m.theme.assistantTitle.Render("[ 🤖 ]"),
			m.theme.assistantBox.Render(m.spinner.View()),
		))
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := max(0, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.SetYOffset(min(previousOffset, maxOffset))
}

func (m *model) renderEntry(item entry, width int) string {
	body := strings.TrimSpace(item.text)
	if item.time != "" {
		body += "\n" + m.theme.hint.Render(item.time)
	}

	switch {
	case item.isError:
		return m.renderCard(m.theme.errorTitle.Render("[ERROR]"), m.theme.errorBox.Width(width).Render(body))
	case item.fromUser:
		return m.renderCard(m.theme.userTitle.Render("[ 🙏 ]"), m.theme.userBox.Width(width).Render(body))
	default:
		return m.renderCard(m.theme.assistantTitle.Render("[ 🤖 ]"), m.theme.assistantBox.Width(width).Render(body))
	}
}

func (m *model) renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) oneShotView() string {
	contentWidth := max(40, m.width-6)
	parts := []string{m.renderEntry(entry{fromUser: true, text: m.oneShotInput}, contentWidth)}

	if m.isLoading {
		parts = append(parts, m.theme.statusBusy.Render(fmt.Sprintf("%s %s", m.spinner.View(), label(m.language, "typing...", "टाइप कर रहा है..."))))
		return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
	}

	if m.lastErr != "" {
		parts = append(parts, m.renderEntry(entry{isError: true, text: m.lastErr}, contentWidth))
		return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n\n"
	}

	parts = append(parts, m.renderEntry(entry{text: lastReply(m.entries)}, contentWidth))
	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n\n"
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.ScrollUp(3)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.ScrollDown(3)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func sendPromptCmd(ctx context.Context, conv Conversation, prompt string) tea.Cmd {
	return func() tea.Msg {
		reply, err := conv.Prompt(ctx, prompt)
		return replyMsg{reply: reply, err: err}
	}
}

func label(lang assistant.Language, english, hindi string) string {
	if lang == assistant.Hindi {
		return hindi
	}

	return english
}

func lastReply(entries []entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].fromUser && !entries[i].isError {
			return entries[i].text
		}
	}

	return ""
}

func conversationTurns(entries []entry) int {
	count := 0
	for _, item := range entries {
		if item.fromUser {
			count++
		}
	}

	return count
}

// IsExitCommand reports whether input asks to leave the chat.
func IsExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
