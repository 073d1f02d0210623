package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// AppendLines appends lines (each with a trailing newline) to path,
// creating the file if needed. Mirrors how the watched pipeline process
// writes its log: open, append, close.
func AppendLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	defer f.Close()
	for _, line := range lines {
		_, err := f.WriteString(line + "\n")
		require.NoError(t, err)
	}
	require.NoError(t, f.Sync())
}

// Truncate truncates path to zero bytes in place, simulating copytruncate
// style log rotation.
func Truncate(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.Truncate(path, 0))
}
