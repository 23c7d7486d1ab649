package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Process string         `json:"process,omitempty"`
	Thread  string         `json:"thread,omitempty"`
	Route   string         `json:"route,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Filter selects entries. Zero fields match everything; set fields are ANDed.
type Filter struct {
	// Level keeps entries at or above this level.
	Level    string
	Since    time.Time
	Until    time.Time
	Process  string
	Thread   string
	Contains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// maxLineSize bounds a single log line.
const maxLineSize = 1024 * 1024

// ReadEntries reads polycephaly.log in logDir together with its rotated
// backups, compressed or not, and returns every parseable entry ordered by
// time. Unparseable lines are skipped.
func ReadEntries(logDir string, maxBackups int) ([]Entry, error) {
	path := filepath.Join(logDir, LogFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file found in %s: %w", logDir, err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var entries []Entry
	for n := maxBackups; n >= 0; n-- {
		p := path
		if n > 0 {
			p = BackupPath(path, n)
		}
		got, err := readFile(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return a.Time.Compare(b.Time)
	})
	return entries, nil
}

// readFile reads p, or p.gz when only the compressed backup exists.
// A missing backup yields no entries.
func readFile(p string) ([]Entry, error) {
	var r io.Reader
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		f, err = os.Open(p + ".gz")
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open %s.gz: %w", p, err)
		}
		defer func() { _ = f.Close() }()
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s.gz: %w", p, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	} else if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", p, err)
	} else {
		defer func() { _ = f.Close() }()
		r = f
	}

	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", p, err)
	}
	return entries, nil
}

// ParseEntry parses one JSON log line.
func ParseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := Entry{Attrs: make(map[string]any)}
	for k, v := range raw {
		s, _ := v.(string)
		switch k {
		case "time":
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				entry.Time = t
			}
		case "level":
			entry.Level = s
		case "msg":
			entry.Message = s
		case "process":
			entry.Process = s
		case "thread":
			entry.Thread = s
		case "route":
			entry.Route = s
		default:
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterEntries returns the entries matching f.
func FilterEntries(entries []Entry, f Filter) []Entry {
	if f == (Filter{}) {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f Filter) matches(e Entry) bool {
	if f.Level != "" {
		floor, ok := levelOrder[strings.ToUpper(f.Level)]
		if lvl, known := levelOrder[e.Level]; ok && known && lvl < floor {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Time.After(f.Until) {
		return false
	}
	if f.Process != "" && e.Process != f.Process {
		return false
	}
	if f.Thread != "" && e.Thread != f.Thread {
		return false
	}
	if f.Contains != "" && !strings.Contains(e.Message, f.Contains) {
		return false
	}
	return true
}

// ExportFormats lists the formats accepted by WriteEntries.
func ExportFormats() []string {
	return []string{"text", "json", "csv"}
}

// WriteEntries writes entries to w as "text", "json", or "csv".
func WriteEntries(w io.Writer, entries []Entry, format string) error {
	switch strings.ToLower(format) {
	case "text", "":
		return writeText(w, entries)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "csv":
		return writeCSV(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: %s)", format, strings.Join(ExportFormats(), ", "))
	}
}

// writeText renders "[TIME] LEVEL process/thread - msg {attrs}".
func writeText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] %-5s", e.Time.Format("2006-01-02 15:04:05.000"), e.Level)

		origin := e.Process
		if e.Thread != "" {
			origin += "/" + e.Thread
		}
		if origin != "" {
			sb.WriteString(" " + origin)
		}
		sb.WriteString(" - " + e.Message)

		if len(e.Attrs) > 0 {
			attrs, _ := json.Marshal(e.Attrs)
			sb.WriteString(" " + string(attrs))
		}
		sb.WriteString("\n")

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

func writeCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "level", "message", "process", "thread", "route", "attrs"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range entries {
		attrs := ""
		if len(e.Attrs) > 0 {
			if b, err := json.Marshal(e.Attrs); err == nil {
				attrs = string(b)
			}
		}
		record := []string{e.Time.Format(time.RFC3339Nano), e.Level, e.Message, e.Process, e.Thread, e.Route, attrs}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
