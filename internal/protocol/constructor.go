package protocol

import (
	"fmt"
	"strings"
)

// Constructor helpers for the outgoing side of the prompt protocol: the
// action comments a macro emits and the G-code that makes the firmware emit them.

// CloseAckScript is sent to the printer whenever a displayed prompt is dismissed.
const CloseAckScript = RespondPrefix + "close"

// BuildActionLine renders an action comment exactly as the firmware echoes it.
func BuildActionLine(action Action, args string) string {
	if args == "" {
		return Prefix + action.String()
	}
	return Prefix + action.String() + " " + args
}

// BuildRespondScript builds the RESPOND command that makes the firmware echo
// the given action comment.
//
// Arguments containing spaces are wrapped in double quotes as RESPOND
// requires. Arguments that cannot be quoted (embedded double quotes or line
// breaks) are rejected.
func BuildRespondScript(action Action, args string) (string, error) {
	if strings.ContainsAny(args, "\"\r\n") {
		return "", fmt.Errorf("arguments for %s cannot be expressed in RESPOND: %q", action, args)
	}

	msg := "action:prompt_" + action.String()
	if args != "" {
		msg += " " + args
	}

	if strings.ContainsAny(msg, " \t") {
		return `RESPOND TYPE=command MSG="` + msg + `"`, nil
	}
	return "RESPOND TYPE=command MSG=" + msg, nil
}

// BuildButtonArgs renders the label|action|color argument string.
// Empty optional fields are omitted; a color without an action falls back to
// repeating the label so the color stays in the third position.
func BuildButtonArgs(label, action, color string) (string, error) {
	if label == "" {
		return "", fmt.Errorf("button label must not be empty")
	}
	for _, field := range []string{label, action, color} {
		if strings.Contains(field, "|") {
			return "", fmt.Errorf("button field %q contains the field separator", field)
		}
	}

	switch {
	case color != "":
		if action == "" {
			action = label
		}
		return label + "|" + action + "|" + color, nil
	case action != "":
		return label + "|" + action, nil
	default:
		return label, nil
	}
}
