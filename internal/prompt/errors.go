package prompt

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/muurk/klipprompt/internal/protocol"
)

// ErrorKind represents the category of a rejected or questionable line
type ErrorKind int

const (
	// KindUnrecognizedLine is ordinary console output, not a prompt action
	KindUnrecognizedLine ErrorKind = iota
	// KindUnknownAction carries the prompt prefix but an unknown keyword
	KindUnknownAction
	// KindIllegalState is a known action that is not allowed in the current state
	KindIllegalState
	// KindGrammar is a legal action whose arguments failed to parse
	KindGrammar
	// KindProtocolMisuse is a legal action used out of sequence
	KindProtocolMisuse
)

// String returns the name used in log fields
func (k ErrorKind) String() string {
	switch k {
	case KindUnrecognizedLine:
		return "unrecognized_line"
	case KindUnknownAction:
		return "unknown_action"
	case KindIllegalState:
		return "illegal_state"
	case KindGrammar:
		return "grammar"
	case KindProtocolMisuse:
		return "protocol_misuse"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// level is the log level a kind is reported at. Unrecognized lines are the
// bulk of firmware output and stay at debug.
func (k ErrorKind) level() zapcore.Level {
	switch k {
	case KindUnrecognizedLine:
		return zapcore.DebugLevel
	case KindUnknownAction, KindIllegalState:
		return zapcore.InfoLevel
	case KindProtocolMisuse:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// ProtocolError describes why a line was ignored or only partly applied.
// It never leaves the machine except through logs, traces and tests.
type ProtocolError struct {
	Kind    ErrorKind
	Action  protocol.Action
	State   State // state when the line arrived
	Line    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ProtocolError) Unwrap() error {
	return e.Err
}
