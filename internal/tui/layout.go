package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to exactly width columns (ANSI-aware) and height lines.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		lines[i] = fit(ln, width)
	}
	return strings.Join(lines, "\n")
}

// fit pads or truncates one line to w columns.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	// Bound the width computation on pathological lines.
	if len(s) > 8192 {
		s = xansi.Cut(s, 0, w)
	}
	sw := xansi.StringWidth(s)
	if sw > w {
		s = xansi.Truncate(s, w, glyphEllipsis())
		if xansi.StringWidth(s) > w {
			s = xansi.Cut(s, 0, w)
		}
		sw = xansi.StringWidth(s)
	}
	if sw < w {
		s += strings.Repeat(" ", w-sw)
	}
	return s
}

// overlay centers box over the base view.
func overlay(base, box string, width, height int) string {
	if width <= 0 || height <= 0 {
		return box
	}
	bw := lipgloss.Width(box)
	bh := lipgloss.Height(box)
	x := (width - bw) / 2
	y := (height - bh) / 3
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	baseLines := strings.Split(normalizePane(base, width, height), "\n")
	for i, bl := range strings.Split(box, "\n") {
		row := y + i
		if row >= len(baseLines) {
			break
		}
		left := xansi.Cut(baseLines[row], 0, x)
		right := xansi.Cut(baseLines[row], x+xansi.StringWidth(bl), width)
		baseLines[row] = left + "\x1b[0m" + bl + right
	}
	return strings.Join(baseLines, "\n")
}
