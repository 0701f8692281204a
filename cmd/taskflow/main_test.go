package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteDirectTaskLookupArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"taskflow"},
			want: []string{"taskflow"},
		},
		{
			name: "order number first token",
			in:   []string{"taskflow", "TF-001"},
			want: []string{"taskflow", "tasks", "show", "TF-001"},
		},
		{
			name: "lower case order number",
			in:   []string{"taskflow", "tf-12"},
			want: []string{"taskflow", "tasks", "show", "tf-12"},
		},
		{
			name: "after value flag",
			in:   []string{"taskflow", "--profile", "work", "TF-001"},
			want: []string{"taskflow", "--profile", "work", "tasks", "show", "TF-001"},
		},
		{
			name: "after equals flag",
			in:   []string{"taskflow", "--server=http://localhost:5000", "TF-001"},
			want: []string{"taskflow", "--server=http://localhost:5000", "tasks", "show", "TF-001"},
		},
		{
			name: "after bool flag",
			in:   []string{"taskflow", "--pretty", "TF-001"},
			want: []string{"taskflow", "--pretty", "tasks", "show", "TF-001"},
		},
		{
			name: "after double dash",
			in:   []string{"taskflow", "--", "TF-001"},
			want: []string{"taskflow", "--", "tasks", "show", "TF-001"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"taskflow", "tasks", "show", "TF-001"},
			want: []string{"taskflow", "tasks", "show", "TF-001"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"taskflow", "wat"},
			want: []string{"taskflow", "wat"},
		},
		{
			name: "numeric id is not an order number",
			in:   []string{"taskflow", "42"},
			want: []string{"taskflow", "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, rewriteDirectTaskLookupArgs(tt.in))
		})
	}
}
