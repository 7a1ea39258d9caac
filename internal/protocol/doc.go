// Package protocol implements the Klipper prompt action-comment line protocol.
//
// Klipper macros drive a host-side dialog by making the firmware print
// specially prefixed comment lines. Each line carries one action:
//
//	// action:prompt_begin Filament runout
//	// action:prompt_text Load new filament and continue?
//	// action:prompt_button_group_start
//	// action:prompt_button Resume|RESUME|primary
//	// action:prompt_button Cancel|CANCEL_PRINT|error
//	// action:prompt_button_group_end
//	// action:prompt_footer_button Later
//	// action:prompt_show
//	// action:prompt_close
//
// # Classification
//
// ParseLine separates protocol lines from ordinary console output:
//   - Lines that do not start with Prefix return ErrNotAction (the common case)
//   - Lines with the prefix but an unknown keyword return *UnknownActionError
//   - Everything else yields an *ActionLine with the opaque argument string
//
// Keywords are matched case-insensitively. The argument string is everything
// after the keyword and a single separating space, untouched.
//
// # Construction
//
// The constructor helpers produce the reverse direction: action comments for
// tests and replays, RESPOND scripts for macros, and CloseAckScript, which a
// host sends whenever the user dismisses a prompt.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol
