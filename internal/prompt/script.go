package prompt

import (
	"fmt"

	"github.com/muurk/klipprompt/internal/protocol"
)

// BuildLines returns the action comments that reconstruct p when fed to a
// Machine, ending with show.
func BuildLines(p *Prompt) ([]string, error) {
	var lines []string
	err := walk(p, func(a protocol.Action, args string) error {
		lines = append(lines, protocol.BuildActionLine(a, args))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// RespondScripts returns the RESPOND commands a macro runs to display p.
func RespondScripts(p *Prompt) ([]string, error) {
	var scripts []string
	err := walk(p, func(a protocol.Action, args string) error {
		s, err := protocol.BuildRespondScript(a, args)
		if err != nil {
			return err
		}
		scripts = append(scripts, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scripts, nil
}

func walk(p *Prompt, emit func(protocol.Action, string) error) error {
	if p == nil {
		return fmt.Errorf("prompt is nil")
	}

	if err := emit(protocol.ActionBegin, p.Title); err != nil {
		return fmt.Errorf("title: %w", err)
	}

	for i, item := range p.Contents {
		var err error
		switch c := item.(type) {
		case Text:
			err = emit(protocol.ActionText, string(c))
		case Button:
			err = emitButton(protocol.ActionButton, c, emit)
		case ButtonGroup:
			if err = emit(protocol.ActionButtonGroupStart, ""); err != nil {
				break
			}
			for _, b := range c.Buttons {
				if err = emitButton(protocol.ActionButton, b, emit); err != nil {
					break
				}
			}
			if err == nil {
				err = emit(protocol.ActionButtonGroupEnd, "")
			}
		default:
			err = fmt.Errorf("unsupported content %T", item)
		}
		if err != nil {
			return fmt.Errorf("content %d: %w", i, err)
		}
	}

	for i, b := range p.FooterButtons {
		if err := emitButton(protocol.ActionFooterButton, b, emit); err != nil {
			return fmt.Errorf("footer button %d: %w", i, err)
		}
	}

	return emit(protocol.ActionShow, "")
}

func emitButton(a protocol.Action, b Button, emit func(protocol.Action, string) error) error {
	args, err := protocol.BuildButtonArgs(b.Label, b.Action, b.Color)
	if err != nil {
		return err
	}
	return emit(a, args)
}
