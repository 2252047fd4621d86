package errlog

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")

	l := New(path)
	l.now = func() time.Time {
		return time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)
	}

	l.Append("Parse error in batch.csv row 3")
	l.Appendf("Cannot read file %s: %v", "other.csv", os.ErrNotExist)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2024-06-15 10:30:00] Parse error in batch.csv row 3", lines[0])
	assert.Regexp(t, regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] Cannot read file other\.csv`), lines[1])
}

func TestAppendNeverFails(t *testing.T) {
	// Unwritable path: the failure is swallowed.
	l := New(filepath.Join(t.TempDir(), "missing", "nested", "errors.log"))
	assert.NotPanics(t, func() { l.Append("dropped on the floor") })

	// Empty path and nil receiver are no-ops.
	assert.NotPanics(t, func() { New("").Append("noop") })
	var nilLog *Log
	assert.NotPanics(t, func() { nilLog.Append("noop") })
	assert.NotPanics(t, func() { nilLog.Appendf("noop %d", 1) })
}
