// Package ui provides the terminal presenter for klipprompt.
//
// It uses Bubble Tea and Lipgloss to draw printer prompts as dialogs: the
// title, text lines, standalone buttons on their own row, button groups side
// by side and footer buttons right-aligned at the bottom.
//
// # Components
//
//   - Model: the interactive watch screen (spinner while idle, dialog when active)
//   - Presenter: implements prompt.Presenter by sending messages to a tea.Program
//   - ConsolePresenter: prints dialogs for non-interactive replay
//   - Result: success/failure boxes printed by one-shot commands
//
// # Keys
//
// Left and right (or tab) move the selection across every button in display
// order. Enter sends the selected button's script; the dialog then waits for
// the printer before it closes. Esc dismisses the prompt. q quits.
//
// # Colors
//
// Button colors primary, secondary, info, warning and error map to the
// palette in styles.go. Unknown colors use the default button style.
package ui
