package prompt

import "fmt"

// Button is a single choice. Action and Color are empty when absent; the
// grammar never produces an empty field that is present.
type Button struct {
	Label  string
	Action string
	Color  string
}

// Script returns the G-code sent when the button is chosen.
func (b Button) Script() string {
	if b.Action != "" {
		return b.Action
	}
	return b.Label
}

func (b Button) String() string {
	return fmt.Sprintf("Button{label=%q, action=%q, color=%q}", b.Label, b.Action, b.Color)
}

// ButtonGroup is a set of buttons laid out side by side.
type ButtonGroup struct {
	Buttons []Button
}

func (g ButtonGroup) String() string {
	return fmt.Sprintf("ButtonGroup{buttons=%d}", len(g.Buttons))
}

// Text is a free-form line of prompt content.
type Text string

// Content is one entry of a prompt body: Button, ButtonGroup or Text.
type Content interface {
	isContent()
}

func (Button) isContent()      {}
func (ButtonGroup) isContent() {}
func (Text) isContent()        {}

// Prompt is a modal dialog description. Contents keep the order in which the
// firmware sent them.
type Prompt struct {
	Title         string
	Contents      []Content
	FooterButtons []Button
}

// Clone returns a deep copy so presenters never share slices with the machine.
func (p *Prompt) Clone() *Prompt {
	if p == nil {
		return nil
	}

	c := &Prompt{Title: p.Title}
	if p.Contents != nil {
		c.Contents = make([]Content, len(p.Contents))
		for i, item := range p.Contents {
			if g, ok := item.(ButtonGroup); ok {
				item = g.clone()
			}
			c.Contents[i] = item
		}
	}
	if p.FooterButtons != nil {
		c.FooterButtons = append([]Button(nil), p.FooterButtons...)
	}
	return c
}

// Buttons returns every choosable button in display order: body buttons
// (groups flattened) followed by footer buttons.
func (p *Prompt) Buttons() []Button {
	var out []Button
	for _, item := range p.Contents {
		switch c := item.(type) {
		case Button:
			out = append(out, c)
		case ButtonGroup:
			out = append(out, c.Buttons...)
		}
	}
	return append(out, p.FooterButtons...)
}

func (p *Prompt) String() string {
	return fmt.Sprintf("Prompt{title=%q, contents=%d, footer=%d}", p.Title, len(p.Contents), len(p.FooterButtons))
}

func (g ButtonGroup) clone() ButtonGroup {
	if g.Buttons == nil {
		return ButtonGroup{}
	}
	return ButtonGroup{Buttons: append([]Button(nil), g.Buttons...)}
}
