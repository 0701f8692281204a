package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// renderInputLine renders a text input as exactly one line on the input background.
// A wrapped input view looks like a newline was typed, so newlines are flattened.
func renderInputLine(bodyW int, inputView string) string {
	if bodyW < 10 {
		bodyW = 10
	}
	inputView = strings.ReplaceAll(inputView, "\n", " ")
	inputView = strings.ReplaceAll(inputView, "\r", " ")

	line := lipgloss.PlaceHorizontal(
		bodyW,
		lipgloss.Left,
		" "+inputView+" ",
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > bodyW {
		line = xansi.Cut(line, 0, bodyW) + "\x1b[0m"
	}
	return line
}

// renderField renders a labelled form row; the focused row gets the accent marker.
func renderField(bodyW int, label, value string, focused bool) string {
	const labelW = 14
	marker := "  "
	lbl := styleMuted()
	if focused {
		marker = glyphCursor() + " "
		lbl = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	}
	head := marker + lbl.Render(fit(label, labelW))
	return head + renderInputLine(bodyW-labelW-2, value)
}
