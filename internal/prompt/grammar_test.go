package prompt

import (
	"errors"
	"testing"
)

func TestParseButton(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    Button
		wantErr bool
	}{
		{
			name: "label action color",
			args: "Yes|RESPOND MSG=yes|blue",
			want: Button{Label: "Yes", Action: "RESPOND MSG=yes", Color: "blue"},
		},
		{
			name: "label only",
			args: "Yes",
			want: Button{Label: "Yes"},
		},
		{
			name: "label and action",
			args: "Resume|RESUME",
			want: Button{Label: "Resume", Action: "RESUME"},
		},
		{
			name: "empty action stops the match",
			args: "A||blue",
			want: Button{Label: "A"},
		},
		{
			name: "trailing fields ignored",
			args: "a|b|c|d",
			want: Button{Label: "a", Action: "b", Color: "c"},
		},
		{
			name: "trailing pipe ignored",
			args: "a|",
			want: Button{Label: "a"},
		},
		{
			name: "whitespace preserved",
			args: " Load  | M117 hi |  red ",
			want: Button{Label: " Load  ", Action: " M117 hi ", Color: "  red "},
		},
		{
			name:    "leading pipe",
			args:    "|x",
			wantErr: true,
		},
		{
			name:    "empty",
			args:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseButton(tt.args)
			if tt.wantErr {
				var gerr *GrammarError
				if !errors.As(err, &gerr) {
					t.Fatalf("ParseButton(%q) error = %v, want *GrammarError", tt.args, err)
				}
				if gerr.Args != tt.args {
					t.Errorf("GrammarError.Args = %q, want %q", gerr.Args, tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseButton(%q) unexpected error: %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("ParseButton(%q) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestButtonScript(t *testing.T) {
	tests := []struct {
		button Button
		want   string
	}{
		{Button{Label: "Yes", Action: "RESPOND MSG=yes"}, "RESPOND MSG=yes"},
		{Button{Label: "G28"}, "G28"},
		{Button{Label: "Home", Color: "primary"}, "Home"},
	}

	for _, tt := range tests {
		if got := tt.button.Script(); got != tt.want {
			t.Errorf("%v.Script() = %q, want %q", tt.button, got, tt.want)
		}
	}
}

func TestPromptCloneIsDeep(t *testing.T) {
	orig := &Prompt{
		Title: "T",
		Contents: []Content{
			Text("hello"),
			ButtonGroup{Buttons: []Button{{Label: "A"}}},
		},
		FooterButtons: []Button{{Label: "F"}},
	}

	c := orig.Clone()
	c.Contents[1].(ButtonGroup).Buttons[0].Label = "changed"
	c.FooterButtons[0].Label = "changed"
	c.Contents = append(c.Contents, Text("extra"))

	if got := orig.Contents[1].(ButtonGroup).Buttons[0].Label; got != "A" {
		t.Errorf("group button label = %q after mutating clone, want A", got)
	}
	if got := orig.FooterButtons[0].Label; got != "F" {
		t.Errorf("footer label = %q after mutating clone, want F", got)
	}
	if len(orig.Contents) != 2 {
		t.Errorf("len(Contents) = %d, want 2", len(orig.Contents))
	}

	var nilPrompt *Prompt
	if nilPrompt.Clone() != nil {
		t.Error("Clone of nil prompt should be nil")
	}
}

func TestPromptButtons(t *testing.T) {
	p := &Prompt{
		Contents: []Content{
			Button{Label: "one"},
			Text("between"),
			ButtonGroup{Buttons: []Button{{Label: "two"}, {Label: "three"}}},
		},
		FooterButtons: []Button{{Label: "footer"}},
	}

	got := p.Buttons()
	want := []string{"one", "two", "three", "footer"}
	if len(got) != len(want) {
		t.Fatalf("Buttons() returned %d buttons, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Label != want[i] {
			t.Errorf("Buttons()[%d].Label = %q, want %q", i, got[i].Label, want[i])
		}
	}
}
