package journal

import (
	"io"
	"sync"
	"time"

	"mountmon/mountmon"

	"github.com/pkg/errors"
)

// Writer journals events as single human-readable lines in the form
//
//	[YYYY-MM-DD HH:MM:SS] LEVEL: message
//
// Writes are concurrency safe; each event is written with one Write call so
// lines never interleave.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

var _ mountmon.Journaler = (*Writer)(nil)

// NewWriter creates a new line writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, now: time.Now}
}

// Write writes the given event into the writer.
func (l *Writer) Write(ev mountmon.Event) error {
	line := formatLine(l.now(), ev)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := io.WriteString(l.w, line); err != nil {
		return errors.Wrap(err, "failed to write event")
	}

	return nil
}
