package format

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Tabular is implemented by CLI payloads that have a human table form.
type Tabular interface {
	TableHeaders() []string
	TableRows() [][]string
}

// TableData is a ready-made Tabular.
type TableData struct {
	Headers []string
	Rows    [][]string
}

func (t TableData) TableHeaders() []string { return t.Headers }
func (t TableData) TableRows() [][]string  { return t.Rows }

func WriteTable(w io.Writer, t Tabular) error {
	rows := t.TableRows()
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(t.TableHeaders()...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			st := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return st.Bold(true)
			}
			return st
		})
	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}
