package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Detail is one key-value line of a result box
type Detail struct {
	Key   string
	Value string
}

// Result represents a result box printed by one-shot commands
type Result struct {
	Type            ResultType
	Title           string
	Details         []Detail
	Error           error
	Troubleshooting []string
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details ...Detail) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting ...string) *Result {
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// AddDetail appends a detail line
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Detail{Key: key, Value: value})
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	var lines []string
	switch r.Type {
	case ResultFailure:
		lines = append(lines, ErrorTitleStyle.Render(fmt.Sprintf("%s  FAILED  ─  %s", FailureMarker, r.Title)), "")
		if r.Error != nil {
			lines = append(lines, ErrorMessageStyle.Render("Error: "+r.Error.Error()), "")
		}
	default:
		lines = append(lines, SuccessTitleStyle.Render(fmt.Sprintf("%s  %s", SuccessMarker, r.Title)), "")
	}

	for _, d := range r.Details {
		lines = append(lines, ResultKeyStyle.Render(d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(MutedColor).Bold(true).Render("Troubleshooting:"))
		for _, tip := range r.Troubleshooting {
			lines = append(lines, lipgloss.NewStyle().Foreground(MutedColor).Render("  • "+tip))
		}
	}

	content := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if r.Type == ResultFailure {
		return ErrorBoxStyle(width).Render(content)
	}
	return SuccessBoxStyle(width).Render(content)
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
