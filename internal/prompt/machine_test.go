package prompt

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/klipprompt/internal/protocol"
)

// recorder is a presenter and a sink that logs every call in order.
type recorder struct {
	calls     []string
	displayed []*Prompt
	choices   []func(Button)
	dismisses []func()
	acks      []func()
	panicOn   string

	// dismissOnDisplay reports the dialog closed before Display returns
	dismissOnDisplay bool
}

func (r *recorder) Display(p *Prompt, onChoice func(Button), onDismiss func()) Handle {
	if r.panicOn == "display" {
		panic("display exploded")
	}
	r.displayed = append(r.displayed, p)
	r.choices = append(r.choices, onChoice)
	r.dismisses = append(r.dismisses, onDismiss)
	h := len(r.displayed)
	r.calls = append(r.calls, fmt.Sprintf("display:%d:%s", h, p.Title))
	if r.dismissOnDisplay {
		onDismiss()
	}
	return h
}

func (r *recorder) Teardown(h Handle) {
	r.calls = append(r.calls, fmt.Sprintf("teardown:%v", h))
}

func (r *recorder) Send(script string, onAck func()) {
	if r.panicOn == "send" {
		panic("sink exploded")
	}
	r.calls = append(r.calls, "send:"+script)
	if onAck != nil {
		r.acks = append(r.acks, onAck)
	}
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func newTestMachine(t *testing.T) (*Machine, *recorder, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	r := &recorder{}
	m := NewMachine(r, r, WithLogger(zap.New(core)))
	return m, r, logs
}

func feed(m *Machine, lines ...string) {
	for _, l := range lines {
		m.ProcessLine(l)
	}
}

func issueKinds(logs *observer.ObservedLogs) []string {
	var kinds []string
	for _, e := range logs.FilterMessage("Prompt protocol issue").All() {
		kinds = append(kinds, e.ContextMap()["kind"].(string))
	}
	return kinds
}

func TestMachineShowAndClose(t *testing.T) {
	m, r, _ := newTestMachine(t)

	feed(m,
		"// action:prompt_begin Hello",
		"// action:prompt_show",
	)
	if m.State() != StateActive {
		t.Fatalf("state = %v, want active", m.State())
	}

	m.ProcessLine("// action:prompt_close")

	want := []string{
		"display:1:Hello",
		"teardown:1",
		"send:" + protocol.CloseAckScript,
	}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}
	if m.Prompt() != nil {
		t.Error("Prompt() should be nil when idle")
	}
}

func TestMachineCloseWhileBuilding(t *testing.T) {
	m, r, _ := newTestMachine(t)

	feed(m,
		"// action:prompt_begin Draft",
		"// action:prompt_text never shown",
		"// action:prompt_close",
	)

	if len(r.calls) != 0 {
		t.Errorf("presenter and sink should not be called, got %v", r.calls)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}
}

func TestMachineEndAlias(t *testing.T) {
	m, r, _ := newTestMachine(t)

	feed(m,
		"// action:prompt_begin Hello",
		"// action:prompt_show",
		"// action:prompt_end",
	)

	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}
	if r.count("teardown") != 1 {
		t.Errorf("teardown count = %d, want 1", r.count("teardown"))
	}
}

func TestMachineBuildsContentsInOrder(t *testing.T) {
	m, r, logs := newTestMachine(t)

	feed(m,
		"// action:prompt_begin Hello test prompt",
		"// action:prompt_text This is a test",
		"// action:prompt_button_group_start",
		"// action:prompt_button Yes|RESPOND MSG=yes|blue",
		"// action:prompt_button No",
		"// action:prompt_button_group_end",
		"// action:prompt_button Help|HELP",
		"// action:prompt_footer_button Cancel||error",
		"// action:prompt_show",
	)

	if len(r.displayed) != 1 {
		t.Fatalf("display count = %d, want 1", len(r.displayed))
	}
	want := &Prompt{
		Title: "Hello test prompt",
		Contents: []Content{
			Text("This is a test"),
			ButtonGroup{Buttons: []Button{
				{Label: "Yes", Action: "RESPOND MSG=yes", Color: "blue"},
				{Label: "No"},
			}},
			Button{Label: "Help", Action: "HELP"},
		},
		FooterButtons: []Button{{Label: "Cancel"}},
	}
	if !reflect.DeepEqual(r.displayed[0], want) {
		t.Errorf("displayed = %#v, want %#v", r.displayed[0], want)
	}
	if kinds := issueKinds(logs); len(kinds) != 0 {
		t.Errorf("unexpected protocol issues: %v", kinds)
	}
}

func TestMachineFooterIgnoresOpenGroup(t *testing.T) {
	m, _, _ := newTestMachine(t)

	feed(m,
		"// action:prompt_begin T",
		"// action:prompt_button_group_start",
		"// action:prompt_footer_button Later",
		"// action:prompt_button Inside",
	)

	p := m.Prompt()
	if len(p.FooterButtons) != 1 || p.FooterButtons[0].Label != "Later" {
		t.Errorf("footer = %v, want [Later]", p.FooterButtons)
	}
	if len(p.Contents) != 0 {
		t.Errorf("contents = %v, want none until the group ends", p.Contents)
	}
	g := m.OpenGroup()
	if g == nil || len(g.Buttons) != 1 || g.Buttons[0].Label != "Inside" {
		t.Errorf("open group = %v, want [Inside]", g)
	}
}

func TestMachineProtocolIssues(t *testing.T) {
	tests := []struct {
		name      string
		lines     []string
		wantKinds []string
		wantState State
	}{
		{
			name:      "button while idle",
			lines:     []string{"// action:prompt_button Yes"},
			wantKinds: []string{"illegal_state"},
			wantState: StateIdle,
		},
		{
			name:      "begin while building",
			lines:     []string{"// action:prompt_begin A", "// action:prompt_begin B"},
			wantKinds: []string{"illegal_state"},
			wantState: StateBuilding,
		},
		{
			name:      "group end without start",
			lines:     []string{"// action:prompt_begin A", "// action:prompt_button_group_end"},
			wantKinds: []string{"protocol_misuse"},
			wantState: StateBuilding,
		},
		{
			name: "group restarted",
			lines: []string{
				"// action:prompt_begin A",
				"// action:prompt_button_group_start",
				"// action:prompt_button_group_start",
			},
			wantKinds: []string{"protocol_misuse"},
			wantState: StateBuilding,
		},
		{
			name:      "unknown keyword",
			lines:     []string{"// action:prompt_frobnicate x"},
			wantKinds: []string{"unknown_action"},
			wantState: StateIdle,
		},
		{
			name:      "bad button grammar",
			lines:     []string{"// action:prompt_begin A", "// action:prompt_button |x"},
			wantKinds: []string{"grammar"},
			wantState: StateBuilding,
		},
		{
			name:      "text while active",
			lines:     []string{"// action:prompt_begin A", "// action:prompt_show", "// action:prompt_text late"},
			wantKinds: []string{"illegal_state"},
			wantState: StateActive,
		},
		{
			name:      "ordinary console output",
			lines:     []string{"ok", "// Klipper state: Ready", "echo: action:prompt_begin"},
			wantKinds: nil,
			wantState: StateIdle,
		},
		{
			name:      "close while idle",
			lines:     []string{"// action:prompt_close"},
			wantKinds: nil,
			wantState: StateIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, logs := newTestMachine(t)
			feed(m, tt.lines...)

			if got := issueKinds(logs); !reflect.DeepEqual(got, tt.wantKinds) {
				t.Errorf("issue kinds = %v, want %v", got, tt.wantKinds)
			}
			if m.State() != tt.wantState {
				t.Errorf("state = %v, want %v", m.State(), tt.wantState)
			}
		})
	}
}

func TestMachineIllegalLineLeavesPromptUnchanged(t *testing.T) {
	m, _, _ := newTestMachine(t)

	feed(m, "// action:prompt_begin Keep", "// action:prompt_text one")
	before := m.Prompt()

	feed(m,
		"// action:prompt_begin Other",
		"// action:prompt_button ||",
		"// action:prompt_button_group_end",
	)

	if !reflect.DeepEqual(m.Prompt(), before) {
		t.Errorf("prompt = %#v, want %#v", m.Prompt(), before)
	}
}

func TestMachineShowDropsUnterminatedGroup(t *testing.T) {
	m, r, logs := newTestMachine(t)

	feed(m,
		"// action:prompt_begin T",
		"// action:prompt_button Outside",
		"// action:prompt_button_group_start",
		"// action:prompt_button Lost",
		"// action:prompt_show",
	)

	if m.State() != StateActive {
		t.Fatalf("state = %v, want active", m.State())
	}
	got := r.displayed[0].Buttons()
	if len(got) != 1 || got[0].Label != "Outside" {
		t.Errorf("displayed buttons = %v, want [Outside]", got)
	}
	if m.OpenGroup() != nil {
		t.Error("open group should be cleared after show")
	}
	if kinds := issueKinds(logs); !reflect.DeepEqual(kinds, []string{"protocol_misuse"}) {
		t.Errorf("issue kinds = %v, want [protocol_misuse]", kinds)
	}
}

func TestMachineShowWhileActiveIsNoop(t *testing.T) {
	m, r, logs := newTestMachine(t)

	feed(m,
		"// action:prompt_begin T",
		"// action:prompt_show",
		"// action:prompt_show",
	)

	if r.count("display") != 1 {
		t.Errorf("display count = %d, want 1", r.count("display"))
	}
	if n := logs.FilterMessage("Prompt already shown").Len(); n != 1 {
		t.Errorf("already-shown log count = %d, want 1", n)
	}
}

func TestMachineChoiceSendsScriptThenDismissesOnAck(t *testing.T) {
	m, r, _ := newTestMachine(t)

	feed(m,
		"// action:prompt_begin Runout",
		"// action:prompt_button Resume|RESUME|primary",
		"// action:prompt_button Cancel",
		"// action:prompt_show",
	)

	r.choices[0](Button{Label: "Resume", Action: "RESUME", Color: "primary"})

	if m.State() != StateActive {
		t.Fatalf("state = %v before ack, want active", m.State())
	}
	if len(r.acks) != 1 {
		t.Fatalf("ack callbacks = %d, want 1", len(r.acks))
	}

	r.acks[0]()

	want := []string{
		"display:1:Runout",
		"send:RESUME",
		"teardown:1",
		"send:" + protocol.CloseAckScript,
	}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}
}

func TestMachineChoiceFallsBackToLabel(t *testing.T) {
	m, r, _ := newTestMachine(t)

	feed(m, "// action:prompt_begin T", "// action:prompt_show")
	m.Choose(Button{Label: "G28"})

	if r.count("send:G28") != 1 {
		t.Errorf("calls = %v, want send:G28", r.calls)
	}
}

func TestMachinePresenterDismiss(t *testing.T) {
	m, r, _ := newTestMachine(t)

	feed(m, "// action:prompt_begin T", "// action:prompt_show")
	r.dismisses[0]()

	// The firmware echoes the acknowledgement back; it must be harmless.
	m.ProcessLine("// action:prompt_close")
	// Presenters may report their own destruction after teardown.
	r.dismisses[0]()

	want := []string{
		"display:1:T",
		"teardown:1",
		"send:" + protocol.CloseAckScript,
	}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

func TestMachineStaleCallbacksIgnored(t *testing.T) {
	m, r, _ := newTestMachine(t)

	feed(m,
		"// action:prompt_begin First",
		"// action:prompt_show",
	)
	r.choices[0](Button{Label: "Old"})
	oldAck := r.acks[0]
	oldDismiss := r.dismisses[0]

	feed(m,
		"// action:prompt_close",
		"// action:prompt_begin Second",
		"// action:prompt_show",
	)

	oldAck()
	oldDismiss()
	r.choices[0](Button{Label: "Old again"})

	if m.State() != StateActive {
		t.Fatalf("state = %v, want active", m.State())
	}
	if got := m.Prompt().Title; got != "Second" {
		t.Errorf("title = %q, want Second", got)
	}
	if r.count("teardown") != 1 {
		t.Errorf("teardown count = %d, want 1", r.count("teardown"))
	}
	if r.count("send:Old again") != 0 {
		t.Error("stale choice should not reach the sink")
	}
}

func TestMachineWithoutPresenterOrSink(t *testing.T) {
	m := NewMachine(nil, nil)

	feed(m, "// action:prompt_begin T", "// action:prompt_show")
	m.Choose(Button{Label: "x"})

	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle after choice without sink", m.State())
	}
}

func TestMachineRecoversPresenterPanic(t *testing.T) {
	tests := []struct {
		name    string
		panicOn string
		lines   []string
		choose  bool
		want    State
	}{
		{"display", "display", []string{"// action:prompt_begin T", "// action:prompt_show"}, false, StateActive},
		{"send on choice", "send", []string{"// action:prompt_begin T", "// action:prompt_show"}, true, StateActive},
		{"send on close", "send", []string{"// action:prompt_begin T", "// action:prompt_show", "// action:prompt_close"}, false, StateIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, r, logs := newTestMachine(t)
			r.panicOn = tt.panicOn

			feed(m, tt.lines...)
			if tt.choose {
				m.Choose(Button{Label: "Go"})
			}

			entries := logs.FilterMessage("Recovered panic in presenter or sink").All()
			if len(entries) != 1 {
				t.Fatalf("panic log count = %d, want 1", len(entries))
			}
			if got := entries[0].ContextMap()["call"]; got != tt.panicOn {
				t.Errorf("call = %v", got)
			}
			if m.State() != tt.want {
				t.Errorf("state = %v, want %v", m.State(), tt.want)
			}
		})
	}
}

func TestMachineDismissDuringDisplay(t *testing.T) {
	m, r, _ := newTestMachine(t)
	r.dismissOnDisplay = true

	feed(m, "// action:prompt_begin Quick", "// action:prompt_show")

	want := []string{
		"display:1:Quick",
		"send:" + protocol.CloseAckScript,
		"teardown:1",
	}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if m.State() != StateIdle {
		t.Errorf("state = %v, want idle", m.State())
	}
}

func TestMachineSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	m := NewMachine(nil, nil, WithLogger(zap.NewNop()), WithTracer(tp.Tracer("test")))

	feed(m,
		"plain console output",
		"// action:prompt_begin T",
		"// action:prompt_button |bad",
	)

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("span count = %d, want 2", len(spans))
	}

	attrs := map[attribute.Key]string{}
	for _, kv := range spans[1].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs["prompt.state.from"] != "building" || attrs["prompt.state.to"] != "building" {
		t.Errorf("state attributes = %v", attrs)
	}
	if attrs["prompt.error.kind"] != "grammar" {
		t.Errorf("prompt.error.kind = %q, want grammar", attrs["prompt.error.kind"])
	}
}

func FuzzProcessLine(f *testing.F) {
	seeds := []string{
		"// action:prompt_begin Hello",
		"// action:prompt_button Yes|RESPOND MSG=yes|blue",
		"// action:prompt_button_group_start",
		"// action:prompt_show",
		"// action:prompt_close",
		"// action:prompt_",
		"ok",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, line string) {
		m := NewMachine(nil, nil, WithLogger(zap.NewNop()))
		m.ProcessLine("// action:prompt_begin fuzz")
		m.ProcessLine(line)
		m.ProcessLine("// action:prompt_show")
		m.ProcessLine(line)

		switch m.State() {
		case StateIdle, StateBuilding, StateActive:
		default:
			t.Fatalf("invalid state %v", m.State())
		}
		if m.State() == StateIdle && m.Prompt() != nil {
			t.Fatal("idle machine holds a prompt")
		}
	})
}
