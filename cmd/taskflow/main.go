package main

import (
	"os"
	"regexp"
	"strings"

	"taskflow-cli/internal/cli"
)

var orderNoRe = regexp.MustCompile(`^(?i)TF-\d+$`)

func isOrderNo(s string) bool {
	return orderNoRe.MatchString(strings.TrimSpace(s))
}

// rewriteDirectTaskLookupArgs turns `taskflow TF-001` into `taskflow tasks show TF-001`.
//
// Persistent flags may come first (`taskflow --profile work TF-001`), so the first
// positional token is located rather than assuming argv[1].
func rewriteDirectTaskLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--server":  true,
		"--profile": true,
		"--format":  true,
	}

	insert := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "tasks", "show")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isOrderNo(argv[i+1]) {
				return insert(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isOrderNo(a) {
			return insert(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectTaskLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
