package ui

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/klipprompt/internal/prompt"
)

// Presenter shows prompts inside a running Bubble Tea program. Handles are
// uint64 ids so a late teardown cannot hide a newer dialog.
type Presenter struct {
	send func(tea.Msg)
	next atomic.Uint64
}

// NewPresenter returns a presenter that drives the given program
func NewPresenter(p *tea.Program) *Presenter {
	return &Presenter{send: p.Send}
}

// Display implements prompt.Presenter
func (p *Presenter) Display(pr *prompt.Prompt, onChoice func(prompt.Button), onDismiss func()) prompt.Handle {
	id := p.next.Add(1)
	p.send(showPromptMsg{id: id, prompt: pr, onChoice: onChoice, onDismiss: onDismiss})
	return id
}

// Teardown implements prompt.Presenter
func (p *Presenter) Teardown(h prompt.Handle) {
	id, ok := h.(uint64)
	if !ok {
		return
	}
	p.send(hidePromptMsg{id: id})
}

// SetStatus replaces the status line under the dialog
func (p *Presenter) SetStatus(format string, args ...any) {
	p.send(statusMsg(fmt.Sprintf(format, args...)))
}

// ConsolePresenter prints each displayed prompt and never reports a choice.
// Used to replay recorded console output.
type ConsolePresenter struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	count int
}

// NewConsolePresenter writes rendered dialogs to out
func NewConsolePresenter(out io.Writer, width int) *ConsolePresenter {
	return &ConsolePresenter{out: out, width: width}
}

// Display implements prompt.Presenter
func (c *ConsolePresenter) Display(pr *prompt.Prompt, _ func(prompt.Button), _ func()) prompt.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	fmt.Fprintln(c.out, RenderPrompt(pr, -1, c.width, false))
	return c.count
}

// Teardown implements prompt.Presenter
func (c *ConsolePresenter) Teardown(h prompt.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, StatusStyle.Render(fmt.Sprintf("prompt %v closed", h)))
}

// Displayed returns how many prompts were shown
func (c *ConsolePresenter) Displayed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
