package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/unitalloc/internal/logger"
)

// regionPath returns a path for a region file in a per-test directory.
func regionPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done
	r.Close()

	return string(out), fnErr
}

// decodeJSON unmarshals command output into v.
func decodeJSON(t *testing.T, output string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(output), v), "invalid JSON output: %s", output)
}

// resetGlobals restores every flag to its default after the test, so values
// set by one command execution do not leak into the next.
func resetGlobals(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		rootCmd.PersistentFlags().VisitAll(reset)
		for _, cmd := range rootCmd.Commands() {
			cmd.Flags().VisitAll(reset)
		}
		appLog = logger.Discard()
	})
}

// mustCreate creates a region file of size bytes.
func mustCreate(t *testing.T, path string, size uint64) {
	t.Helper()
	_, err := captureOutput(t, func() error {
		return runCreate(t.Context(), path, size, false)
	})
	require.NoError(t, err)
}
