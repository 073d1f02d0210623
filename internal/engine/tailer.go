package engine

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
)

// Tailer is a stateful incremental reader over one log file. It owns the
// file handle exclusively: nobody else reads from or seeks the descriptor.
//
// Reading starts at end-of-file; historical content is never replayed. A
// file whose size regresses below the read cursor is assumed rotated or
// truncated; the tailer silently reopens from offset zero. A missing file
// is transient: the poll yields no lines and a later poll retries.
type Tailer struct {
	path        string
	file        *os.File
	pos         int64
	initialized bool
}

// NewTailer creates a tailer for path. No file access happens until Open.
func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// Open opens the watched file without seeking. The first ReadNewLines call
// positions the cursor at the current end of file.
func (t *Tailer) Open() error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	t.file = f
	return nil
}

// Close releases the file handle. Safe to call when already closed.
func (t *Tailer) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// ReadNewLines returns the trimmed, non-empty lines appended since the last
// call. rotated reports whether a rotation/truncation was detected on this
// poll. Transient conditions (file missing, reopen failed) return no lines
// and no error; the next poll retries.
func (t *Tailer) ReadNewLines() (lines []string, rotated bool, err error) {
	fi, err := os.Stat(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		// Log not yet produced (or mid-rotation). Drop the stale handle so
		// the reopen below picks up the replacement file.
		_ = t.Close()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	size := fi.Size()

	if !t.initialized {
		t.pos = size
		t.initialized = true
		return nil, false, nil
	}

	if size < t.pos {
		slog.Info("log rotation detected, resetting position", "path", t.path, "size", size, "cursor", t.pos)
		_ = t.Close()
		t.pos = 0
		rotated = true
	}

	if t.file == nil {
		if err := t.Open(); err != nil {
			return nil, rotated, nil
		}
	}

	if _, err := t.file.Seek(t.pos, io.SeekStart); err != nil {
		return nil, rotated, err
	}
	data, err := io.ReadAll(t.file)
	if err != nil {
		return nil, rotated, err
	}

	// Record the stream's post-read offset; fall back to the size observed
	// at the start of the poll if it cannot be determined.
	pos, err := t.file.Seek(0, io.SeekCurrent)
	if err != nil {
		pos = size
	}
	t.pos = pos

	return splitLines(data), rotated, nil
}

// splitLines breaks appended bytes into lines, strips trailing carriage
// returns, and drops empties. A trailing fragment without a newline is
// still returned as a line.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	var lines []string
	for _, raw := range bytes.Split(data, []byte{'\n'}) {
		raw = bytes.TrimSuffix(raw, []byte{'\r'})
		if len(raw) == 0 {
			continue
		}
		lines = append(lines, string(raw))
	}
	return lines
}
