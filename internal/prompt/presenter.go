package prompt

// Handle identifies a displayed prompt to the presenter that returned it.
type Handle any

// Presenter renders prompts and reports user choices back.
//
// Display must invoke onChoice at most once per activated button and
// onDismiss at most once when the dialog's own cancel affordance is used.
// Teardown removes the dialog and must be idempotent.
type Presenter interface {
	Display(p *Prompt, onChoice func(Button), onDismiss func()) Handle
	Teardown(h Handle)
}

// CommandSink transmits G-code to the printer. onAck, when non-nil, runs once
// the printer has accepted the script.
type CommandSink interface {
	Send(script string, onAck func())
}

// PresenterFuncs adapts plain functions to Presenter
type PresenterFuncs struct {
	DisplayFunc  func(p *Prompt, onChoice func(Button), onDismiss func()) Handle
	TeardownFunc func(h Handle)
}

func (f PresenterFuncs) Display(p *Prompt, onChoice func(Button), onDismiss func()) Handle {
	if f.DisplayFunc == nil {
		return nil
	}
	return f.DisplayFunc(p, onChoice, onDismiss)
}

func (f PresenterFuncs) Teardown(h Handle) {
	if f.TeardownFunc != nil {
		f.TeardownFunc(h)
	}
}

// SinkFunc adapts a function to CommandSink
type SinkFunc func(script string, onAck func())

func (f SinkFunc) Send(script string, onAck func()) {
	f(script, onAck)
}
