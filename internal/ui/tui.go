package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/klipprompt/internal/prompt"
)

// Messages sent into the program by Presenter
type showPromptMsg struct {
	id        uint64
	prompt    *prompt.Prompt
	onChoice  func(prompt.Button)
	onDismiss func()
}

type hidePromptMsg struct {
	id uint64
}

type statusMsg string

// keyMap defines key bindings for the prompt screen
type keyMap struct {
	Prev    key.Binding
	Next    key.Binding
	Choose  key.Binding
	Dismiss key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Choose, k.Dismiss, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Choose},
		{k.Dismiss, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Prev: key.NewBinding(
			key.WithKeys("left", "shift+tab", "h"),
			key.WithHelp("←", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "tab", "l"),
			key.WithHelp("→", "next"),
		),
		Choose: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "choose"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// shownPrompt is the dialog currently on screen
type shownPrompt struct {
	id        uint64
	prompt    *prompt.Prompt
	buttons   []prompt.Button
	onChoice  func(prompt.Button)
	onDismiss func()
}

// Model is the Bubble Tea model for the watch screen. It shows a spinner
// while idle and the active dialog when a prompt is displayed.
type Model struct {
	Title    string
	Subtitle string
	Status   string

	// UI state
	Width  int
	Height int

	current   *shownPrompt
	selected  int
	pending   bool
	dismissed bool

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates the watch screen model
func NewModel(title, subtitle string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = PendingStyle

	return Model{
		Title:    title,
		Subtitle: subtitle,
		Status:   "Connecting...",
		Width:    GetTerminalWidth(),
		spinner:  s,
		help:     help.New(),
		keys:     defaultKeyMap(),
	}
}

// Init starts the idle spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles presenter messages and key presses
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case showPromptMsg:
		m.current = &shownPrompt{
			id:        msg.id,
			prompt:    msg.prompt,
			buttons:   msg.prompt.Buttons(),
			onChoice:  msg.onChoice,
			onDismiss: msg.onDismiss,
		}
		m.selected = 0
		m.pending = false
		m.dismissed = false
		return m, nil

	case hidePromptMsg:
		if m.current != nil && m.current.id == msg.id {
			m.current = nil
			m.pending = false
			m.dismissed = false
		}
		return m, nil

	case statusMsg:
		m.Status = string(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.current == nil || m.dismissed {
		return m, nil
	}

	// esc also cancels a choice still waiting for the printer
	if key.Matches(msg, m.keys.Dismiss) {
		m.pending = true
		m.dismissed = true
		onDismiss := m.current.onDismiss
		return m, func() tea.Msg {
			if onDismiss != nil {
				onDismiss()
			}
			return nil
		}
	}
	if m.pending {
		return m, nil
	}

	n := len(m.current.buttons)
	switch {
	case key.Matches(msg, m.keys.Prev):
		if n > 0 {
			m.selected = (m.selected - 1 + n) % n
		}

	case key.Matches(msg, m.keys.Next):
		if n > 0 {
			m.selected = (m.selected + 1) % n
		}

	case key.Matches(msg, m.keys.Choose):
		if n == 0 {
			return m, nil
		}
		m.pending = true
		b := m.current.buttons[m.selected]
		onChoice := m.current.onChoice
		return m, func() tea.Msg {
			if onChoice != nil {
				onChoice(b)
			}
			return nil
		}
	}

	return m, nil
}

// View renders the screen
func (m Model) View() string {
	width := clampWidth(m.Width)

	var b strings.Builder
	b.WriteString(RenderHeader(m.Title, m.Subtitle, width))
	b.WriteString("\n\n")

	if m.current == nil {
		b.WriteString(m.spinner.View() + " " + StatusStyle.Render("Waiting for a prompt"))
		b.WriteString("\n")
	} else {
		selected := -1
		if len(m.current.buttons) > 0 {
			selected = m.selected
		}
		b.WriteString(RenderPrompt(m.current.prompt, selected, width, m.pending))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StatusStyle.Render(m.Status))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(MutedColor).Render(m.help.View(m.keys)))

	return b.String()
}

// Selected returns the flattened index of the highlighted button, or -1
// when no prompt is shown.
func (m Model) Selected() int {
	if m.current == nil {
		return -1
	}
	return m.selected
}

// Pending reports whether a choice or dismissal awaits the printer
func (m Model) Pending() bool {
	return m.pending
}
