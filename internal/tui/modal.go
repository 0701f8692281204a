package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	modalMaxW = 72
	modalMinW = 30
)

// modalBodyWidth is the inner text width of a modal rendered into a terminal of width w.
func modalBodyWidth(w int) int {
	boxW := w - 4
	if boxW > modalMaxW {
		boxW = modalMaxW
	}
	if boxW < modalMinW {
		boxW = modalMinW
	}
	// Border (2) + horizontal padding (2*2).
	return boxW - 6
}

// renderModalBox draws a titled box on the modal surface.
func renderModalBox(w int, title, body string) string {
	bodyW := modalBodyWidth(w)

	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSurfaceFg).
		Background(colorControlBg).
		Width(bodyW).
		Render(" " + strings.TrimSpace(title))

	content := lipgloss.NewStyle().
		Width(bodyW).
		Foreground(colorSurfaceFg).
		Background(colorSurfaceBg).
		Render(body)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSelectedBorder).
		BorderBackground(colorSurfaceBg).
		Background(colorSurfaceBg).
		Padding(0, 2).
		Render(head + "\n\n" + content)
}

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

func renderConfirmModal(width int, title, body, confirmLabel, cancelLabel string, focus confirmModalFocus) string {
	// No borders on buttons: nested borders on a colored modal leave artifacts in some terminals.
	btnBase := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(colorSurfaceFg).
		Background(colorControlBg)
	btnActive := btnBase.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true)

	confirm := btnBase.Render(confirmLabel)
	cancel := btnBase.Render(cancelLabel)
	if focus == confirmFocusConfirm {
		confirm = btnActive.Render(confirmLabel)
	} else {
		cancel = btnActive.Render(cancelLabel)
	}
	controls := lipgloss.JoinHorizontal(lipgloss.Top, confirm, " ", cancel)

	bodyW := modalBodyWidth(width)
	help := styleMuted().Width(bodyW).Render("tab: focus   enter: select   esc: cancel")
	return renderModalBox(width, title, strings.Join([]string{body, "", controls, "", help}, "\n"))
}
