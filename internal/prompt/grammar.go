package prompt

import (
	"fmt"
	"regexp"
)

// buttonArgsPattern matches label[|action[|color]]. It is anchored at the
// start only: anything after the last matched field is ignored.
var buttonArgsPattern = regexp.MustCompile(`^([^|]+)(?:\|([^|]+)(?:\|([^|]+))?)?`)

// GrammarError reports button arguments that do not match the grammar
type GrammarError struct {
	Args string
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("invalid button arguments: %q", e.Args)
}

// ParseButton parses the label|action|color argument of a button action.
// Fields are kept verbatim, whitespace included.
func ParseButton(args string) (Button, error) {
	m := buttonArgsPattern.FindStringSubmatch(args)
	if m == nil {
		return Button{}, &GrammarError{Args: args}
	}
	return Button{Label: m[1], Action: m[2], Color: m[3]}, nil
}
