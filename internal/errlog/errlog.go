// Package errlog is the append-only persistent error log the batch
// pipeline reports into. Appending never fails from the caller's point of
// view: a log that cannot be written is silently skipped so that logging
// problems can never break invoice processing.
package errlog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Log appends timestamped messages to a file. The zero value is a no-op
// sink, usable in tests.
type Log struct {
	path string
	mu   sync.Mutex

	// now is stubbed in tests; defaults to time.Now.
	now func() time.Time
}

// New returns a log appending to the given file path. An empty path
// produces a no-op log.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Append writes one timestamped line to the log file. The file is opened
// and closed per call so an unattended run never holds the handle. Errors
// are swallowed.
func (l *Log) Append(message string) {
	if l == nil || l.path == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	now := l.now
	if now == nil {
		now = time.Now
	}
	fmt.Fprintf(f, "[%s] %s\n", now().Format("2006-01-02 15:04:05"), message)
}

// Appendf formats and appends one line.
func (l *Log) Appendf(format string, args ...interface{}) {
	l.Append(fmt.Sprintf(format, args...))
}
