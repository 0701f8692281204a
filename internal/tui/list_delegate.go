package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/view"
)

type compactItemDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
}

func newCompactItemDelegate() compactItemDelegate {
	return compactItemDelegate{
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
	}
}

func (d compactItemDelegate) Height() int                             { return 1 }
func (d compactItemDelegate) Spacing() int                            { return 0 }
func (d compactItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d compactItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}
	style := d.normal
	if index == m.Index() {
		style = d.selected
	}
	txt := fmt.Sprint(item)
	if t, ok := item.(interface{ Title() string }); ok {
		txt = t.Title()
	}
	fmt.Fprint(w, style.Render(fit(txt, contentW)))
}

// taskColumnWidths pairs with view.TaskColumns.
var taskColumnWidths = []int{8, 18, 12, 14, 12, 10, 8, 9, 10}

// taskRowDelegate renders a task row as fixed-width columns followed by its badges.
type taskRowDelegate struct {
	compactItemDelegate
}

func newTaskRowDelegate() taskRowDelegate {
	return taskRowDelegate{compactItemDelegate: newCompactItemDelegate()}
}

func (d taskRowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(taskItem)
	contentW := m.Width()
	if !ok || contentW < 4 {
		return
	}
	selected := index == m.Index()
	line := renderTaskCells(it.row.Cells, it.row.Task.Status, !selected)
	if len(it.row.Badges) > 0 {
		var bs []string
		for _, b := range it.row.Badges {
			if selected {
				bs = append(bs, "["+b+"]")
			} else {
				bs = append(bs, badgeStyle(b).Render("["+b+"]"))
			}
		}
		line += " " + strings.Join(bs, " ")
	}
	if selected {
		fmt.Fprint(w, d.selected.Render(fit(xansi.Strip(line), contentW)))
		return
	}
	fmt.Fprint(w, fit(line, contentW))
}

func renderTaskCells(cells []string, status model.Status, colored bool) string {
	parts := make([]string, 0, len(cells))
	for i, c := range cells {
		cw := 10
		if i < len(taskColumnWidths) {
			cw = taskColumnWidths[i]
		}
		cell := fit(c, cw)
		if colored && i < len(view.TaskColumns) && view.TaskColumns[i] == "Status" {
			cell = statusStyle(status).Render(cell)
		}
		parts = append(parts, cell)
	}
	return strings.Join(parts, " ")
}

func renderTaskHeader(width int) string {
	return styleMuted().Bold(true).Render(fit(renderTaskCells(view.TaskColumns, "", false), width))
}
