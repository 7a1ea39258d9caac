package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Action comment constants
const (
	// Prefix marks a firmware line as a prompt action comment.
	// Klipper emits these for `RESPOND TYPE=command MSG=action:prompt_<keyword> ...`.
	Prefix = "// action:prompt_"

	// RespondPrefix is the G-code that makes the firmware echo an action comment.
	RespondPrefix = "RESPOND TYPE=command MSG=action:prompt_"
)

// Action identifies a recognized prompt keyword.
type Action int

const (
	ActionBegin Action = iota
	ActionButton
	ActionFooterButton
	ActionText
	ActionButtonGroupStart
	ActionButtonGroupEnd
	ActionShow
	ActionClose
)

// Actions lists every recognized action in protocol order.
var Actions = []Action{
	ActionBegin,
	ActionButton,
	ActionFooterButton,
	ActionText,
	ActionButtonGroupStart,
	ActionButtonGroupEnd,
	ActionShow,
	ActionClose,
}

// keywords maps lower-case wire keywords to actions.
// "end" is what current Klipper releases document for closing a prompt.
var keywords = map[string]Action{
	"begin":              ActionBegin,
	"button":             ActionButton,
	"footer_button":      ActionFooterButton,
	"text":               ActionText,
	"button_group_start": ActionButtonGroupStart,
	"button_group_end":   ActionButtonGroupEnd,
	"show":               ActionShow,
	"close":              ActionClose,
	"end":                ActionClose,
}

// String returns the canonical wire keyword for the action
func (a Action) String() string {
	switch a {
	case ActionBegin:
		return "begin"
	case ActionButton:
		return "button"
	case ActionFooterButton:
		return "footer_button"
	case ActionText:
		return "text"
	case ActionButtonGroupStart:
		return "button_group_start"
	case ActionButtonGroupEnd:
		return "button_group_end"
	case ActionShow:
		return "show"
	case ActionClose:
		return "close"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// LookupAction resolves a keyword case-insensitively.
func LookupAction(keyword string) (Action, bool) {
	a, ok := keywords[strings.ToLower(keyword)]
	return a, ok
}

// ErrNotAction is returned by ParseLine for ordinary console output.
var ErrNotAction = errors.New("not a prompt action line")

// UnknownActionError reports a line that carries the prompt prefix but an
// unrecognized keyword.
type UnknownActionError struct {
	Keyword string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown prompt action %q", e.Keyword)
}

// ActionLine is a classified prompt action comment
type ActionLine struct {
	Action  Action
	Keyword string // keyword as it appeared on the wire
	Args    string // remainder after the keyword and one space, verbatim
	Raw     string
}

// ParseLine classifies a single line of firmware output.
//
// Only trailing CR/LF terminators are stripped; the keyword is everything up
// to the first space and the arguments are everything after it.
func ParseLine(line string) (*ActionLine, error) {
	line = strings.TrimRight(line, "\r\n")

	rest, ok := strings.CutPrefix(line, Prefix)
	if !ok {
		return nil, ErrNotAction
	}

	keyword, args, _ := strings.Cut(rest, " ")

	action, ok := LookupAction(keyword)
	if !ok {
		return nil, &UnknownActionError{Keyword: keyword}
	}

	return &ActionLine{
		Action:  action,
		Keyword: keyword,
		Args:    args,
		Raw:     line,
	}, nil
}

// String returns a human-readable representation of the line
func (l *ActionLine) String() string {
	if l.Args == "" {
		return fmt.Sprintf("ActionLine{action=%s}", l.Action)
	}
	return fmt.Sprintf("ActionLine{action=%s, args=%q}", l.Action, l.Args)
}
