package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/klipprompt/internal/prompt"
)

// RenderPrompt renders a dialog. selected indexes prompt.Buttons(); pass -1
// for no selection. pending marks a choice awaiting acknowledgement.
func RenderPrompt(p *prompt.Prompt, selected int, width int, pending bool) string {
	width = clampWidth(width)
	inner := width - 6 // border and padding

	var rows []string
	rows = append(rows, PromptTitleStyle.Width(inner).Render(p.Title))
	rows = append(rows, RenderHorizontalDivider(inner, "─"))

	index := 0
	for _, item := range p.Contents {
		switch c := item.(type) {
		case prompt.Text:
			rows = append(rows, PromptTextStyle.Width(inner).Render(string(c)))
		case prompt.Button:
			rows = append(rows, renderButtonRow([]prompt.Button{c}, index, selected))
			index++
		case prompt.ButtonGroup:
			if len(c.Buttons) == 0 {
				continue
			}
			rows = append(rows, renderButtonRow(c.Buttons, index, selected))
			index += len(c.Buttons)
		}
	}

	if len(p.FooterButtons) > 0 {
		rows = append(rows, RenderHorizontalDivider(inner, "─"))
		footer := renderButtonRow(p.FooterButtons, index, selected)
		rows = append(rows, lipgloss.PlaceHorizontal(inner, lipgloss.Right, footer))
	}

	if pending {
		rows = append(rows, PendingStyle.Render("Waiting for the printer..."))
	}

	return DialogStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderButtonRow lays buttons out side by side. first is the flattened
// index of buttons[0].
func renderButtonRow(buttons []prompt.Button, first, selected int) string {
	cells := make([]string, 0, len(buttons)*2)
	for i, b := range buttons {
		if i > 0 {
			cells = append(cells, " ")
		}
		cells = append(cells, ButtonStyle(b.Color, first+i == selected).Render(b.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// RenderHeader renders the application banner
func RenderHeader(title, subtitle string, width int) string {
	width = clampWidth(width)
	content := HeaderTitleStyle.Render(strings.ToUpper(title))
	if subtitle != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, HeaderCommandStyle.Render(subtitle))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}
