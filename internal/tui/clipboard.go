package tui

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// clipboardWrite is swapped out by tests.
var clipboardWrite = copyToClipboard

// copyToClipboard copies s using pbcopy, clip, wl-copy, xclip or xsel, whichever the
// platform has.
func copyToClipboard(s string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility found (install wl-copy, xclip or xsel)")
	}
	return clipboard.WriteAll(strings.ReplaceAll(s, "\r\n", "\n"))
}
