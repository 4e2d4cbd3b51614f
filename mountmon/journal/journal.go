// Package journal implements mountmon's Journaler interface on an
// append-only log file. It also provides a file locking abstraction so that
// only one mountmon instance can run with the same log file.
package journal

import (
	"os"
	"path/filepath"
	"time"

	"mountmon/mountmon"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// multiWriter combines multiple journalers.
type multiWriter struct {
	writers []mountmon.Journaler
}

// MultiWriter creates a journaler that writes every event to all of the
// given journalers. The first write error is returned, but all writers are
// always attempted.
func MultiWriter(ws ...mountmon.Journaler) mountmon.Journaler {
	return &multiWriter{ws}
}

func (w *multiWriter) Write(event mountmon.Event) error {
	var firstErr error
	for _, writer := range w.writers {
		if err := writer.Write(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// FileLockJournaler is a journaler that uses a file lock (flock) to claim
// the log file and appends human-readable entries to it. The instance must
// be closed by the caller or by the operating system when the application
// exits.
type FileLockJournaler struct {
	*Writer
	f *os.File
	l *flock.Flock
}

// ErrLockedElsewhere is returned if NewFileLockJournaler can't acquire the
// file lock, meaning another mountmon instance owns this log.
var ErrLockedElsewhere = errors.New("log file already locked elsewhere")

// NewFileLockJournaler creates a new file journaler if it can acquire a
// flock on the path. The log's parent directory is created if needed.
func NewFileLockJournaler(path string) (*FileLockJournaler, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0640)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}

	l := flock.New(path)

	locked, err := l.TryLock()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to acquire lock")
	}
	if !locked {
		f.Close()
		return nil, ErrLockedElsewhere
	}

	return &FileLockJournaler{
		Writer: NewWriter(f),
		f:      f,
		l:      l,
	}, nil
}

// Close writes nothing; it releases the flock and closes the file. The
// caller is expected to have journaled its final shutdown entry already.
func (f *FileLockJournaler) Close() error {
	f.f.Close()
	return f.l.Unlock()
}

// timestamp is the log line time format: [YYYY-MM-DD HH:MM:SS].
const timestamp = "2006-01-02 15:04:05"

func formatLine(now time.Time, ev mountmon.Event) string {
	return "[" + now.Format(timestamp) + "] " + string(ev.Level()) + ": " + ev.Message() + "\n"
}
