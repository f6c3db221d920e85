package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// lineRing keeps the most recent lines written to a log file.
type lineRing struct {
	lines []string
	next  int
	count int
	seen  int
}

func newLineRing(capacity int) *lineRing {
	return &lineRing{lines: make([]string, max(capacity, 1))}
}

func (r *lineRing) push(line string) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	r.count = min(r.count+1, len(r.lines))
	r.seen++
}

// snapshot returns the kept lines oldest first.
func (r *lineRing) snapshot() []string {
	out := make([]string, 0, r.count)
	start := (r.next - r.count + len(r.lines)) % len(r.lines)

	for i := range r.count {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}

	return out
}

// LineCapWriter appends to a log file and periodically truncates it to the
// last maxLines lines. The file is rewritten once twice the cap has been
// written since the last truncation.
type LineCapWriter struct {
	mu   sync.Mutex
	file *os.File
	path string
	ring *lineRing
}

// OpenLineCapWriter opens path for appending with a line cap.
func OpenLineCapWriter(path string, maxLines int) (*LineCapWriter, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	return &LineCapWriter{
		file: file,
		path: path,
		ring: newLineRing(maxLines),
	}, nil
}

// Write implements io.Writer.
func (w *LineCapWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.ring.push(line)

		if w.ring.seen >= 2*len(w.ring.lines) {
			if err := w.truncate(); err != nil {
				return n, fmt.Errorf("failed to truncate log file: %w", err)
			}
			w.ring.seen = w.ring.count
		}
	}

	return n, nil
}

// Sync flushes the underlying file.
func (w *LineCapWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Sync()
}

// Close closes the underlying file.
func (w *LineCapWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

// truncate replaces the file with the kept lines through a temp file rename.
func (w *LineCapWriter) truncate() error {
	temp, err := os.CreateTemp(filepath.Dir(w.path), "temp-log-")
	if err != nil {
		return err
	}

	content := strings.Join(w.ring.snapshot(), "\n") + "\n"
	if _, err := io.WriteString(temp, content); err != nil {
		temp.Close()
		os.Remove(temp.Name())

		return err
	}

	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return err
	}

	w.file.Close()
	os.Remove(w.path)

	if err := os.Rename(temp.Name(), w.path); err != nil {
		return err
	}

	w.file, err = os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)

	return err
}
