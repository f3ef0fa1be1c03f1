package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
)

type focus int

const (
	focusInput focus = iota
	focusFeedback
	focusHypotheses
	focusCount
)

// EventMsg wraps a controller event so it can be fed to the program with
// tea.Program.Send.
type EventMsg conversation.Event

type Model struct {
	ctx  context.Context
	ctrl *conversation.Controller

	state  conversation.State
	notice *conversation.Notice

	input      textinput.Model
	feedback   textarea.Model
	transcript viewport.Model

	focus  focus
	cursor int
	width  int
	height int
}

func NewModel(ctx context.Context, ctrl *conversation.Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.CharLimit = 4000
	ti.Focus()

	ta := textarea.New()
	ta.Placeholder = "Provide feedback here..."
	ta.ShowLineNumbers = false
	ta.SetHeight(3)

	m := Model{
		ctx:        ctx,
		ctrl:       ctrl,
		state:      ctrl.State(),
		input:      ti,
		feedback:   ta,
		transcript: viewport.New(80, 10),
		width:      80,
		height:     30,
	}
	m.layout()
	return m
}

// Subscribe forwards controller events into p until the returned func is called.
func Subscribe(p *tea.Program, ctrl *conversation.Controller) (unsubscribe func()) {
	return ctrl.Subscribe(func(e conversation.Event) {
		p.Send(EventMsg(e))
	})
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case EventMsg:
		return m.applyEvent(conversation.Event(msg)), nil

	case tea.KeyMsg:
		// A notice blocks the view until acknowledged.
		if m.notice != nil {
			m.notice = nil
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.setFocus((m.focus + 1) % focusCount)
			return m, nil
		case "shift+tab":
			m.setFocus((m.focus + focusCount - 1) % focusCount)
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}

		switch m.focus {
		case focusInput:
			return m.updateInput(msg)
		case focusFeedback:
			return m.updateFeedback(msg)
		case focusHypotheses:
			return m.updateHypotheses(msg)
		}
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		ctx, ctrl := m.ctx, m.ctrl
		return m, func() tea.Msg {
			ctrl.SendUserMessage(ctx, text)
			return nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetInput(m.input.Value())
	return m, cmd
}

func (m Model) updateFeedback(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.feedback, cmd = m.feedback.Update(msg)
	m.ctrl.SetFeedbackDraft(m.feedback.Value())
	return m, cmd
}

func (m Model) updateHypotheses(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Hypotheses)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= len(m.state.Hypotheses) {
			return m, nil
		}
		hypothesis := m.state.Hypotheses[m.cursor]
		ctx, ctrl := m.ctx, m.ctrl
		return m, func() tea.Msg {
			ctrl.SubmitFeedback(ctx, hypothesis)
			return nil
		}
	}
	return m, nil
}

func (m Model) applyEvent(e conversation.Event) Model {
	m.state = e.State
	if m.cursor >= len(m.state.Hypotheses) {
		m.cursor = max(0, len(m.state.Hypotheses)-1)
	}

	if e.Kind == conversation.EventNotice && e.Notice != nil {
		n := *e.Notice
		m.notice = &n
		// A finished submission clears the draft on the controller side.
		if n.Level != conversation.NoticeValidation {
			m.feedback.SetValue(e.State.FeedbackDraft)
		}
	}

	m.layout()
	return m
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.input.Blur()
	m.feedback.Blur()
	switch f {
	case focusInput:
		m.input.Focus()
	case focusFeedback:
		m.feedback.Focus()
	}
}

// layout sizes the widgets for the current window and refreshes the transcript.
func (m *Model) layout() {
	m.input.Width = max(10, m.width-4)
	m.feedback.SetWidth(max(10, m.width-2))

	// title, blank, feedback label + box, hypotheses label + list, blank, input, help
	fixed := 1 + 1 + 1 + m.feedback.Height() + 1 + max(1, len(m.state.Hypotheses)) + 1 + 1 + 1
	m.transcript.Width = m.width
	m.transcript.Height = max(3, m.height-fixed-1)
	m.transcript.SetContent(m.renderTranscript())
	m.transcript.GotoBottom()
}

func (m Model) renderTranscript() string {
	var sb strings.Builder
	right := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Right)
	body := lipgloss.NewStyle().Width(max(10, m.width*3/4))

	for _, msg := range m.state.Messages {
		if msg.Role == conversation.RoleUser {
			sb.WriteString(right.Render(userRoleStyle.Render(" You ")))
			sb.WriteString("\n")
			sb.WriteString(right.Render(body.Render(msg.Content)))
		} else {
			sb.WriteString(assistantRoleStyle.Render(" Sherpa "))
			sb.WriteString("\n")
			sb.WriteString(body.Render(msg.Content))
		}
		sb.WriteString("\n\n")
	}
	if m.state.IsLoading {
		sb.WriteString(loadingStyle.Render("Loading..."))
	}
	return sb.String()
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("The First Sherpa*AI"))
	sb.WriteString("\n")
	sb.WriteString(m.transcript.View())
	sb.WriteString("\n")

	sb.WriteString(labelStyle.Render("Feedback"))
	sb.WriteString("\n")
	sb.WriteString(m.feedback.View())
	sb.WriteString("\n")

	sb.WriteString(labelStyle.Render("Hypotheses"))
	sb.WriteString("\n")
	if len(m.state.Hypotheses) == 0 {
		sb.WriteString(dimStyle.Render("  (none yet)"))
		sb.WriteString("\n")
	}
	for i, h := range m.state.Hypotheses {
		if m.focus == focusHypotheses && i == m.cursor {
			sb.WriteString(selectedStyle.Render("> " + h))
		} else {
			sb.WriteString(normalStyle.Render("  " + h))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")

	if m.notice != nil {
		style, ok := noticeStyles[string(m.notice.Level)]
		if !ok {
			style = noticeStyles["error"]
		}
		sb.WriteString(style.Render(m.notice.Text))
		sb.WriteString(helpStyle.Render("  press any key"))
	} else {
		sb.WriteString(helpStyle.Render(fmt.Sprintf(
			"tab: focus (%s) | enter: send/submit | pgup/pgdown: scroll | esc: quit",
			m.focusName(),
		)))
	}
	return sb.String()
}

func (m Model) focusName() string {
	switch m.focus {
	case focusFeedback:
		return "feedback"
	case focusHypotheses:
		return "hypotheses"
	default:
		return "message"
	}
}
