package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/klipprompt/internal/logging"
	"github.com/muurk/klipprompt/internal/prompt"
)

var (
	// ErrNoPrompt is returned when the id does not name the displayed prompt
	ErrNoPrompt = errors.New("no such prompt")

	// ErrPending is returned for a second choice, or for anything after a
	// dismissal, while the prompt waits to be torn down
	ErrPending = errors.New("a choice is already pending")

	// ErrBadIndex is returned for a button index outside the prompt
	ErrBadIndex = errors.New("button index out of range")
)

// displayed is the prompt currently exposed over HTTP
type displayed struct {
	id        uuid.UUID
	prompt    *prompt.Prompt
	buttons   []prompt.Button
	onChoice  func(prompt.Button)
	onDismiss func()
	shownAt   time.Time
	chosen    bool
	dismissed bool
}

func (d *displayed) pending() bool {
	return d.chosen || d.dismissed
}

// Presenter keeps the active prompt for HTTP clients. Handles are uuids so
// a client holding an old id cannot act on a newer prompt.
type Presenter struct {
	mu      sync.Mutex
	current *displayed
	now     func() time.Time
}

// NewPresenter creates an empty HTTP presenter
func NewPresenter() *Presenter {
	return &Presenter{now: time.Now}
}

// Display implements prompt.Presenter
func (p *Presenter) Display(pr *prompt.Prompt, onChoice func(prompt.Button), onDismiss func()) prompt.Handle {
	d := &displayed{
		id:        uuid.New(),
		prompt:    pr,
		buttons:   pr.Buttons(),
		onChoice:  onChoice,
		onDismiss: onDismiss,
		shownAt:   p.now(),
	}

	p.mu.Lock()
	p.current = d
	p.mu.Unlock()

	logging.Info("Prompt published",
		zap.String("id", d.id.String()),
		zap.String("title", pr.Title),
		zap.Int("buttons", len(d.buttons)),
	)
	return d.id
}

// Teardown implements prompt.Presenter
func (p *Presenter) Teardown(h prompt.Handle) {
	id, ok := h.(uuid.UUID)
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil && p.current.id == id {
		p.current = nil
		logging.Debug("Prompt withdrawn", zap.String("id", id.String()))
	}
}

// View returns the active prompt, or nil when there is none
func (p *Presenter) View() *PromptView {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return newPromptView(p.current)
}

// Choose selects the button at index on the prompt named by id
func (p *Presenter) Choose(id uuid.UUID, index int) (prompt.Button, error) {
	p.mu.Lock()
	d, err := p.claim(id)
	if err == nil && d.pending() {
		err = ErrPending
	}
	if err != nil {
		p.mu.Unlock()
		return prompt.Button{}, err
	}
	if index < 0 || index >= len(d.buttons) {
		p.mu.Unlock()
		return prompt.Button{}, ErrBadIndex
	}
	d.chosen = true
	b := d.buttons[index]
	onChoice := d.onChoice
	p.mu.Unlock()

	// Callbacks re-enter the session, which may call Teardown
	if onChoice != nil {
		onChoice(b)
	}
	return b, nil
}

// Dismiss closes the prompt named by id without a choice. It is allowed
// while a choice waits for the printer, which may never acknowledge it.
func (p *Presenter) Dismiss(id uuid.UUID) error {
	p.mu.Lock()
	d, err := p.claim(id)
	if err == nil && d.dismissed {
		err = ErrPending
	}
	if err != nil {
		p.mu.Unlock()
		return err
	}
	d.dismissed = true
	onDismiss := d.onDismiss
	p.mu.Unlock()

	if onDismiss != nil {
		onDismiss()
	}
	return nil
}

// claim must be called with p.mu held
func (p *Presenter) claim(id uuid.UUID) (*displayed, error) {
	if p.current == nil || p.current.id != id {
		return nil, ErrNoPrompt
	}
	return p.current, nil
}
