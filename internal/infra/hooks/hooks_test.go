package hooks

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name       string
		commands   []string
		wantOut    string
		wantFailed int
	}{
		{"no commands", nil, "", 0},
		{"shell features", []string{"echo one | tr a-z A-Z", "printf two"}, "ONE\ntwo", 0},
		{"failure does not stop later hooks", []string{"exit 3", "echo after"}, "after\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			r := Runner{Stdout: &out, Stderr: &errOut}

			failed := r.Run(context.Background(), tt.commands, "test")
			assert.Equal(t, tt.wantFailed, failed)
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}
