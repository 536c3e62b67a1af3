package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) (string, error) {
	var buf bytes.Buffer
	cmd := newRootCommand(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute("version")
	require.NoError(t, err)
	assert.Contains(t, out, "sample-site-tests dev")
}

func TestRunRejectsInvalidFilter(t *testing.T) {
	_, err := execute("run", "--run", "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid regex")
}

func TestRunRejectsMissingConfigFile(t *testing.T) {
	_, err := execute("run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunRejectsInvalidCasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "no locale"}]`), 0644))

	_, err := execute("run", "--cases", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no locale")
}

func TestRunSkippingEverything(t *testing.T) {
	out, err := execute("run", "--skip", ".")
	require.NoError(t, err)
	assert.Contains(t, out, "SKIPPED: legacy")
	assert.Contains(t, out, "SKIPPED: modern")
	assert.Contains(t, out, "All tests passed (0 passed, 2 skipped)")
}
