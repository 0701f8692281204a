package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the page-level bindings. Modal and form keys stay literal in their
// update functions since they never show in the footer.
type keyMap struct {
	Quit     key.Binding
	Refresh  key.Binding
	Logout   key.Binding
	Help     key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	Search   key.Binding
	Filter   key.Binding
	Clear    key.Binding
	New      key.Binding
	Edit     key.Binding
	Status   key.Binding
	Share    key.Binding
	TakeOver key.Binding
	View     key.Binding
	Copy     key.Binding
	Delete   key.Binding

	NewUser  key.Binding
	Markdown key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "keys")),
	NextPage: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next page")),
	PrevPage: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous page")),

	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	Clear:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear")),
	New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
	Edit:     key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
	Status:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
	Share:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "share")),
	TakeOver: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "take over")),
	View:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view")),
	Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),

	NewUser:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new user")),
	Markdown: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "markdown")),
}

// helpLine renders "key desc" pairs for the enabled bindings.
func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
