package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"taskflow-cli/internal/view"
)

func newList(title string, items []list.Item, d list.ItemDelegate) list.Model {
	l := list.New(items, d, 0, 0)
	l.Title = title
	// The app renders its own header and footer, so list chrome stays off.
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	// Search is handled by the controller over rendered rows, not by the list.
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetKeys("q")
	l.KeyMap.ShowFullHelp.SetEnabled(false)
	l.KeyMap.CloseFullHelp.SetEnabled(false)
	// Letter keys belong to page actions; paging stays on arrows and pgup/pgdown.
	l.KeyMap.PrevPage.SetKeys("left", "pgup")
	l.KeyMap.NextPage.SetKeys("right", "pgdown")
	l.KeyMap.CursorUp.SetKeys("up", "k", "ctrl+p")
	l.KeyMap.CursorDown.SetKeys("down", "j", "ctrl+n")
	l.KeyMap.GoToStart.SetKeys("home", "g", "<")
	l.KeyMap.GoToEnd.SetKeys("end", "G", ">")
	return l
}

func newPicker(title string) list.Model {
	return newList(title, nil, newCompactItemDelegate())
}

type taskItem struct {
	row view.TaskRow
}

func (i taskItem) FilterValue() string { return i.row.Text }
func (i taskItem) Title() string       { return i.row.Task.OrderNo }
func (i taskItem) key() string         { return strconv.Itoa(i.row.Task.ID) }

type serviceItem struct {
	row view.ServiceRow
}

func (i serviceItem) FilterValue() string { return i.row.Service.Name }
func (i serviceItem) key() string         { return strconv.Itoa(i.row.Service.ID) }
func (i serviceItem) Title() string {
	sv := i.row.Service
	t := fmt.Sprintf("%-24s price %8s  fee %7s  charge %7s", sv.Name, view.Money(sv.Price), view.Money(sv.Fee), view.Money(sv.Charge))
	if i.row.Duplicate {
		t += "  " + glyphWarning() + " duplicate name"
	}
	return t
}

type userItem struct {
	row view.UserRow
}

func (i userItem) FilterValue() string { return i.row.User.Username }
func (i userItem) key() string         { return strconv.Itoa(i.row.User.ID) }
func (i userItem) Title() string {
	u := i.row.User
	return fmt.Sprintf("%-16s %-8s %-28s %3d tasks, %d open", u.Username, u.Role, u.Email, i.row.Tasks, i.row.Open)
}

// optionItem is one choice of a picker.
type optionItem struct {
	value string
	label string
}

func (i optionItem) FilterValue() string { return i.value }
func (i optionItem) key() string         { return i.value }
func (i optionItem) Title() string {
	if strings.TrimSpace(i.label) != "" {
		return i.label
	}
	return i.value
}

func optionItems(values []string, current string) []list.Item {
	items := make([]list.Item, 0, len(values))
	for _, v := range values {
		label := v
		if v == current {
			label = v + " " + glyphBullet()
		}
		items = append(items, optionItem{value: v, label: label})
	}
	return items
}

type keyed interface{ key() string }

func selectedKey(l list.Model) string {
	if it, ok := l.SelectedItem().(keyed); ok {
		return it.key()
	}
	return ""
}

// setItemsKeepSelection swaps the items and keeps the cursor on the same key when it survives.
func setItemsKeepSelection(l *list.Model, items []list.Item) {
	cur := selectedKey(*l)
	l.SetItems(items)
	if cur == "" {
		return
	}
	for i, it := range items {
		if k, ok := it.(keyed); ok && k.key() == cur {
			l.Select(i)
			return
		}
	}
}

func selectByValue(l *list.Model, v string) {
	for i, it := range l.Items() {
		if k, ok := it.(keyed); ok && k.key() == v {
			l.Select(i)
			return
		}
	}
}
