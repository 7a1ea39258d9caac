// Package prompt reconstructs host-side dialogs from Klipper action comments.
//
// A Machine consumes firmware output one line at a time and moves between
// three states:
//
//	idle --begin--> building --show--> active
//	  ^                |                  |
//	  +-----close------+------dismiss-----+
//
// While building, button, footer_button, text and the button group actions
// accumulate a Prompt. show hands a copy of it to a Presenter; from then on
// the prompt is frozen until it is dismissed.
//
// # Dismissal
//
// There is one dismissal path. A firmware close while active, the presenter's
// own cancel affordance and an acknowledged button choice all run it: the
// machine returns to idle, the presenter tears the dialog down, and
// protocol.CloseAckScript is sent so the firmware knows the dialog is gone.
// Callbacks are bound to the prompt they were issued for, so a late click on
// an old dialog never affects a newer one.
//
// # Errors
//
// ProcessLine never fails. Lines that cannot be applied are reported as
// *ProtocolError values through the logger and the current trace span, and
// the machine stays where it was.
//
// # Concurrency
//
// A Machine is single-threaded. Session wraps one in an event loop and routes
// presenter and sink callbacks back onto that loop, which is what the
// transports and presenters in this module use.
package prompt
