package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/muurk/klipprompt/internal/logging"
	"github.com/muurk/klipprompt/internal/observability"
	"github.com/muurk/klipprompt/internal/protocol"
)

// State is the construction state of the machine
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// session is the prompt currently being built or displayed.
type session struct {
	id        uint64
	prompt    *Prompt
	openGroup *ButtonGroup // only while building, between group start and end
	handle    Handle       // only while active
}

// Machine reconstructs prompts from action comments, one line at a time.
//
// A Machine is not safe for concurrent use. Lines and presenter callbacks
// must be serialized by the caller; Session does that with an event loop.
type Machine struct {
	state   State
	current *session
	nextID  uint64

	presenter Presenter
	sink      CommandSink
	log       *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Machine
type Option func(*Machine)

// WithLogger sets the logger. Defaults to logging.GetLogger().
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithTracer sets the tracer. Defaults to observability.Tracer().
func WithTracer(t trace.Tracer) Option {
	return func(m *Machine) {
		if t != nil {
			m.tracer = t
		}
	}
}

// NewMachine creates an idle machine. presenter and sink may be nil, in which
// case display and command transmission are skipped.
func NewMachine(presenter Presenter, sink CommandSink, opts ...Option) *Machine {
	m := &Machine{
		state:     StateIdle,
		presenter: presenter,
		sink:      sink,
		log:       logging.GetLogger(),
		tracer:    observability.Tracer(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Prompt returns a copy of the prompt being built or displayed, or nil when idle.
func (m *Machine) Prompt() *Prompt {
	if m.current == nil {
		return nil
	}
	return m.current.prompt.Clone()
}

// OpenGroup returns a copy of the button group under construction, or nil.
func (m *Machine) OpenGroup() *ButtonGroup {
	if m.current == nil || m.current.openGroup == nil {
		return nil
	}
	g := m.current.openGroup.clone()
	return &g
}

// ProcessLine consumes one line of firmware output. It never fails: malformed
// or out-of-sequence input is logged and skipped.
func (m *Machine) ProcessLine(line string) {
	// Ordinary console output is the overwhelming majority; skip the span.
	if !strings.HasPrefix(line, protocol.Prefix) {
		return
	}

	_, span := m.tracer.Start(context.Background(), "prompt.process_line")
	defer span.End()

	from := m.state
	err := m.apply(line)

	span.SetAttributes(
		attribute.String("prompt.state.from", from.String()),
		attribute.String("prompt.state.to", m.state.String()),
	)
	if err != nil {
		m.report(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var perr *ProtocolError
		if errors.As(err, &perr) {
			span.SetAttributes(attribute.String("prompt.error.kind", perr.Kind.String()))
		}
	}
}

// apply runs one line through the machine and reports anything notable as a
// *ProtocolError. A non-nil error does not always mean nothing changed:
// replacing an open group is applied and still reported.
func (m *Machine) apply(line string) error {
	al, err := protocol.ParseLine(line)
	if err != nil {
		kind := KindUnknownAction
		if errors.Is(err, protocol.ErrNotAction) {
			kind = KindUnrecognizedLine
		}
		return &ProtocolError{Kind: kind, State: m.state, Line: line, Err: err}
	}

	if !allowedIn(al.Action, m.state) {
		return &ProtocolError{
			Kind:    KindIllegalState,
			Action:  al.Action,
			State:   m.state,
			Line:    line,
			Message: fmt.Sprintf("%s not allowed while %s", al.Action, m.state),
		}
	}

	switch al.Action {
	case protocol.ActionBegin:
		m.begin(al.Args)
		return nil
	case protocol.ActionButton:
		return m.addButton(al, false)
	case protocol.ActionFooterButton:
		return m.addButton(al, true)
	case protocol.ActionText:
		m.current.prompt.Contents = append(m.current.prompt.Contents, Text(al.Args))
		return nil
	case protocol.ActionButtonGroupStart:
		return m.startGroup(al)
	case protocol.ActionButtonGroupEnd:
		return m.endGroup(al)
	case protocol.ActionShow:
		return m.show(al)
	case protocol.ActionClose:
		m.close()
		return nil
	default:
		return &ProtocolError{Kind: KindUnknownAction, Action: al.Action, State: m.state, Line: line}
	}
}

// allowedIn is the legal-state table.
func allowedIn(a protocol.Action, s State) bool {
	switch a {
	case protocol.ActionBegin:
		return s == StateIdle
	case protocol.ActionButton,
		protocol.ActionFooterButton,
		protocol.ActionText,
		protocol.ActionButtonGroupStart,
		protocol.ActionButtonGroupEnd:
		return s == StateBuilding
	case protocol.ActionShow:
		return s == StateBuilding || s == StateActive
	case protocol.ActionClose:
		return true
	default:
		return false
	}
}

func (m *Machine) begin(title string) {
	m.nextID++
	m.current = &session{
		id:     m.nextID,
		prompt: &Prompt{Title: title},
	}
	m.transition(protocol.ActionBegin, StateBuilding)
}

func (m *Machine) addButton(al *protocol.ActionLine, footer bool) error {
	button, err := ParseButton(al.Args)
	if err != nil {
		return &ProtocolError{Kind: KindGrammar, Action: al.Action, State: m.state, Line: al.Raw, Err: err}
	}

	s := m.current
	switch {
	case footer:
		s.prompt.FooterButtons = append(s.prompt.FooterButtons, button)
	case s.openGroup != nil:
		s.openGroup.Buttons = append(s.openGroup.Buttons, button)
	default:
		s.prompt.Contents = append(s.prompt.Contents, button)
	}
	return nil
}

func (m *Machine) startGroup(al *protocol.ActionLine) error {
	s := m.current
	replaced := s.openGroup
	s.openGroup = &ButtonGroup{}

	if replaced != nil {
		return &ProtocolError{
			Kind:    KindProtocolMisuse,
			Action:  al.Action,
			State:   m.state,
			Line:    al.Raw,
			Message: fmt.Sprintf("button group started while another was open; %d button(s) discarded", len(replaced.Buttons)),
		}
	}
	return nil
}

func (m *Machine) endGroup(al *protocol.ActionLine) error {
	s := m.current
	if s.openGroup == nil {
		return &ProtocolError{
			Kind:    KindProtocolMisuse,
			Action:  al.Action,
			State:   m.state,
			Line:    al.Raw,
			Message: "no button group to end",
		}
	}
	s.prompt.Contents = append(s.prompt.Contents, *s.openGroup)
	s.openGroup = nil
	return nil
}

func (m *Machine) show(al *protocol.ActionLine) error {
	if m.state == StateActive {
		m.log.Debug("Prompt already shown", zap.String("title", m.current.prompt.Title))
		return nil
	}

	s := m.current
	var err error
	if s.openGroup != nil {
		err = &ProtocolError{
			Kind:    KindProtocolMisuse,
			Action:  al.Action,
			State:   m.state,
			Line:    al.Raw,
			Message: fmt.Sprintf("prompt shown with an unterminated button group; %d button(s) dropped", len(s.openGroup.Buttons)),
		}
		s.openGroup = nil
	}

	m.transition(protocol.ActionShow, StateActive)

	if m.presenter != nil {
		id := s.id
		var h Handle
		m.guard("display", func() {
			h = m.presenter.Display(
				s.prompt.Clone(),
				func(b Button) { m.choose(id, b) },
				func() { m.dismiss(id) },
			)
		})
		if m.current == s {
			s.handle = h
		} else if h != nil {
			// dismissed from inside Display, before the handle was known
			m.guard("teardown", func() { m.presenter.Teardown(h) })
		}
	}
	return err
}

func (m *Machine) close() {
	switch m.state {
	case StateBuilding:
		m.transition(protocol.ActionClose, StateIdle)
		m.current = nil
	case StateActive:
		m.dismiss(m.current.id)
	}
}

// Dismiss tears down the displayed prompt as if the user cancelled it.
// It is a no-op unless a prompt is active.
func (m *Machine) Dismiss() {
	if m.state == StateActive {
		m.dismiss(m.current.id)
	}
}

// Choose activates a button of the displayed prompt on behalf of the user.
func (m *Machine) Choose(b Button) {
	if m.state == StateActive {
		m.choose(m.current.id, b)
	}
}

func (m *Machine) isCurrent(id uint64) bool {
	return m.state == StateActive && m.current != nil && m.current.id == id
}

func (m *Machine) choose(id uint64, b Button) {
	if !m.isCurrent(id) {
		m.log.Debug("Ignoring choice for a prompt that is no longer shown",
			zap.String("label", b.Label),
		)
		return
	}

	script := b.Script()
	m.log.Info("Prompt choice",
		zap.String("title", m.current.prompt.Title),
		zap.String("label", b.Label),
		zap.String("script", script),
	)

	if m.sink == nil {
		m.dismiss(id)
		return
	}
	m.guard("send", func() { m.sink.Send(script, func() { m.dismiss(id) }) })
}

// dismiss is the single teardown path for firmware close, user cancel and
// acknowledged choices. State is reset before any external call so that a
// presenter reporting its own destruction finds nothing left to dismiss.
func (m *Machine) dismiss(id uint64) {
	if !m.isCurrent(id) {
		return
	}

	s := m.current
	m.transition(protocol.ActionClose, StateIdle)
	m.current = nil

	if m.presenter != nil && s.handle != nil {
		m.guard("teardown", func() { m.presenter.Teardown(s.handle) })
	}
	if m.sink != nil {
		m.guard("send", func() { m.sink.Send(protocol.CloseAckScript, nil) })
	}
}

// guard runs a presenter or sink call and logs a panic instead of
// propagating it. The machine's own state changes happen outside it.
func (m *Machine) guard(call string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Recovered panic in presenter or sink",
				zap.String("call", call),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}

func (m *Machine) transition(action protocol.Action, to State) {
	from := m.state
	m.state = to

	title := ""
	if m.current != nil {
		title = m.current.prompt.Title
	}
	m.log.Info("Prompt transition",
		zap.String("action", action.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("title", title),
	)
}

func (m *Machine) report(err error) {
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		m.log.Error("Prompt line failed", zap.Error(err))
		return
	}

	if ce := m.log.Check(perr.Kind.level(), "Prompt protocol issue"); ce != nil {
		fields := []zap.Field{
			zap.String("kind", perr.Kind.String()),
			zap.String("state", perr.State.String()),
			zap.String("line", perr.Line),
			zap.String("reason", perr.Error()),
		}
		ce.Write(fields...)
	}
}
