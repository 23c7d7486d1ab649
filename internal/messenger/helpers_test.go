package messenger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Iron-Ham/polycephaly/internal/logging"
	"github.com/Iron-Ham/polycephaly/internal/mailbox"
)

// newTestRouter builds a router with "main" as the relay hub and one queue per
// name. Logs are captured in the returned buffer.
func newTestRouter(t *testing.T, capacity int, names []string, opts ...Option) (*Router, *bytes.Buffer) {
	t.Helper()

	dir := NewDirectory(mailbox.WithCapacity(capacity))
	for _, name := range names {
		if _, err := dir.Create(name, 0); err != nil {
			t.Fatalf("Create(%q) error = %v", name, err)
		}
	}

	var buf bytes.Buffer
	opts = append([]Option{WithLogger(logging.NewWriterLogger(&buf, logging.LevelDebug))}, opts...)
	return New(dir, "main", opts...), &buf
}

func mustQueue(t *testing.T, r *Router, name string) *Queue {
	t.Helper()
	q, ok := r.Directory().Get(name)
	if !ok {
		t.Fatalf("queue %q not found", name)
	}
	return q
}

// levels returns the level of every JSON log line in buf.
func levels(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var out []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		level, _ := entry["level"].(string)
		out = append(out, level)
	}
	return out
}

func hasLevel(t *testing.T, buf *bytes.Buffer, level string) bool {
	t.Helper()
	for _, l := range levels(t, buf) {
		if l == level {
			return true
		}
	}
	return false
}
