package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskflow-cli/internal/view"
)

type WriteOptions struct {
	Overwrite bool
	// Stamp adds the generation date to file names (reports-2024-05-01.md).
	Stamp bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteReports writes reports.md into toDir.
func WriteReports(r Report, toDir string, opt WriteOptions) (WriteResult, error) {
	p, err := outPath(toDir, "reports", r.GeneratedAt, opt)
	if err != nil {
		return WriteResult{}, err
	}
	if err := writeFile(p, []byte(ReportsMarkdown(r)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{p}}, nil
}

// WriteTasks writes tasks.md into toDir.
func WriteTasks(title string, rows []view.TaskRow, toDir string, at time.Time, opt WriteOptions) (WriteResult, error) {
	p, err := outPath(toDir, "tasks", at, opt)
	if err != nil {
		return WriteResult{}, err
	}
	if err := writeFile(p, []byte(TasksMarkdown(title, rows)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{p}}, nil
}

func outPath(toDir, base string, at time.Time, opt WriteOptions) (string, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return "", errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return "", err
	}
	name := base
	if opt.Stamp && !at.IsZero() {
		name += "-" + at.Format("2006-01-02")
	}
	return filepath.Join(toDir, name+".md"), nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
