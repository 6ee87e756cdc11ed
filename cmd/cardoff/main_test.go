package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardoff/internal/pipeline"
	"cardoff/internal/scan"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[paths]")
	assert.Contains(t, string(data), "delete_originals")
	assert.Contains(t, out.String(), target)
}

func TestConfigInitRefusesExistingFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(target, []byte("# existing"), 0o644))

	cmd := newRootCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"config", "init", "--path", target})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConsoleGateConfirm(t *testing.T) {
	preview := &pipeline.Preview{
		Profile:    "Sony A7C",
		Confidence: 80,
		Date:       "20260831",
		Source:     "/media/card",
		Summary:    scan.Summary{Files: 3, TotalBytes: 4096, Photos: 2, Videos: 1},
	}

	tests := []struct {
		name     string
		input    string
		approved bool
	}{
		{"yes", "y\n", true},
		{"yes word", "yes\n", true},
		{"no", "n\n", false},
		{"default is no", "\n", false},
		{"eof is no", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			gate := newConsoleGate(strings.NewReader(tc.input), &out)
			approved, err := gate.Confirm(context.Background(), preview)
			require.NoError(t, err)
			assert.Equal(t, tc.approved, approved)
			assert.Contains(t, out.String(), "Sony A7C")
			assert.Contains(t, out.String(), "4.0 KiB")
		})
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	rendered := renderTable(
		[]string{"A", "B"},
		[][]string{{"only-a"}},
		[]columnAlignment{alignLeft, alignRight},
	)
	assert.Contains(t, rendered, "only-a")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("123456789abcdef"))
	assert.Equal(t, "abc", shortID("abc"))
}
