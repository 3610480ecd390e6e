package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/scenegrid/internal/cli"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, tree map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.json")
	require.NoError(t, os.WriteFile(path, testutil.MustJSON(t, tree), 0o600))
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "expected an ExitError, got %v", err)
	return exitErr.Code
}

func TestRun_ConfigLoadFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A config file with a syntax error fails app construction.
	configPath := filepath.Join(t.TempDir(), "scenegrid.hcl")
	require.NoError(t, os.WriteFile(configPath, []byte("executor {\n"), 0o600))
	args := []string{"validate", "-config", configPath, writeSpec(t, testutil.DungeonSpec())}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(out, args)

	// --- Assert ---
	require.Error(t, runErr)
	require.Equal(t, 1, exitCode(t, runErr))
	require.Contains(t, runErr.Error(), "critical startup error")
	require.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	args := []string{"validate", "--this-is-not-a-valid-flag", "a.json"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Equal(t, 2, exitCode(t, err))
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_ExitCodes(t *testing.T) {
	t.Parallel()

	invalid := testutil.DungeonSpec()
	delete(invalid, "grid")
	failing := testutil.DungeonSpec()
	failing["metadata"].(map[string]any)["force_fail"] = true

	testCases := []struct {
		name string
		args []string
		want int
	}{
		{name: "rejected spec", args: []string{"validate", "-log-level", "error", writeSpec(t, invalid)}, want: exitRejected},
		{name: "rolled back build", args: []string{"execute", "-log-level", "error", writeSpec(t, failing)}, want: exitFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := run(&bytes.Buffer{}, tc.args)

			require.Equal(t, tc.want, exitCode(t, err))
		})
	}
}

func TestRun_ExecuteSucceeds(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}

	err := run(out, []string{"execute", "-request-id", "main-1", writeSpec(t, testutil.DungeonSpec())})

	require.NoError(t, err)
	require.Contains(t, out.String(), "name:       Canvas3D_Scene_main-1")
}
