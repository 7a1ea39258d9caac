package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/muurk/klipprompt/internal/prompt"
)

// PromptFile is the YAML form of a prompt definition:
//
//	title: Filament runout
//	contents:
//	  - text: Load new filament and continue?
//	  - group:
//	      - {label: Resume, action: RESUME, color: primary}
//	      - {label: Cancel, action: CANCEL_PRINT, color: error}
//	  - button: {label: Unload, action: UNLOAD_FILAMENT}
//	footer:
//	  - {label: Later}
type PromptFile struct {
	Title    string        `yaml:"title"`
	Contents []ContentItem `yaml:"contents"`
	Footer   []ButtonDef   `yaml:"footer"`
}

// ContentItem sets exactly one of its fields
type ContentItem struct {
	Text   *string     `yaml:"text,omitempty"`
	Button *ButtonDef  `yaml:"button,omitempty"`
	Group  []ButtonDef `yaml:"group,omitempty"`
}

// ButtonDef is one button of a prompt definition
type ButtonDef struct {
	Label  string `yaml:"label"`
	Action string `yaml:"action,omitempty"`
	Color  string `yaml:"color,omitempty"`
}

func (b ButtonDef) toButton() prompt.Button {
	return prompt.Button{Label: b.Label, Action: b.Action, Color: b.Color}
}

// LoadPromptFile reads a prompt definition from path, or stdin when path is "-".
func LoadPromptFile(path string) (*prompt.Prompt, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open prompt file: %w", err)
		}
		defer f.Close()
		r = f
	}
	return DecodePrompt(r)
}

// DecodePrompt parses a YAML prompt definition
func DecodePrompt(r io.Reader) (*prompt.Prompt, error) {
	var pf PromptFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("prompt file is empty")
		}
		return nil, fmt.Errorf("failed to parse prompt file: %w", err)
	}
	return pf.Prompt()
}

// Prompt converts the definition, rejecting items that set zero or several fields.
func (pf *PromptFile) Prompt() (*prompt.Prompt, error) {
	p := &prompt.Prompt{Title: pf.Title}

	for i, item := range pf.Contents {
		set := 0
		if item.Text != nil {
			set++
		}
		if item.Button != nil {
			set++
		}
		if item.Group != nil {
			set++
		}
		if set != 1 {
			return nil, fmt.Errorf("contents[%d]: exactly one of text, button or group must be set", i)
		}

		switch {
		case item.Text != nil:
			p.Contents = append(p.Contents, prompt.Text(*item.Text))
		case item.Button != nil:
			p.Contents = append(p.Contents, item.Button.toButton())
		default:
			g := prompt.ButtonGroup{}
			for _, b := range item.Group {
				g.Buttons = append(g.Buttons, b.toButton())
			}
			p.Contents = append(p.Contents, g)
		}
	}

	for _, b := range pf.Footer {
		p.FooterButtons = append(p.FooterButtons, b.toButton())
	}
	return p, nil
}
