// Package logfile reads denial candidates from local log files so an
// analysis can run without AWS access.
package logfile

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/denial"
)

const maxLineBytes = 1 << 20

// Source treats every file as one analysis source. Directories are expanded
// to the regular files beneath them.
type Source struct {
	Paths []string
}

func NewSource(paths ...string) *Source {
	return &Source{Paths: paths}
}

func (s *Source) Name() string { return "file" }

// Sources returns the distinct files named by Paths, sorted.
func (s *Source) Sources(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, p := range s.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			seen[filepath.Clean(p)] = struct{}{}
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				seen[path] = struct{}{}
			}
			return ctx.Err()
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Records reads one file. Files ending in .gz are decompressed.
func (s *Source) Records(ctx context.Context, path string) ([]denial.LogRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var fallback int64
	if info, err := f.Stat(); err == nil {
		fallback = info.ModTime().UnixMilli()
	}
	return ReadRecords(ctx, r, path, fallback)
}

// ReadRecords parses one record per non-blank line. Lines without their own
// timestamp get fallbackMillis. Lines longer than maxLineBytes are skipped.
func ReadRecords(ctx context.Context, r io.Reader, sourceID string, fallbackMillis int64) ([]denial.LogRecord, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var out []denial.LogRecord
	for n := 1; ; n++ {
		if n%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw, tooLong, err := readLine(br)
		if tooLong {
			slog.Debug("Skipping overlong line", "source", sourceID, "line", n, "limit", maxLineBytes)
		} else if line := strings.TrimSpace(string(raw)); line != "" {
			rec := ParseLine(line)
			rec.SourceID = sourceID
			if rec.TimestampMillis == 0 {
				rec.TimestampMillis = fallbackMillis
			}
			out = append(out, rec)
		}
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", sourceID, err)
		}
	}
}

// readLine returns the next line without its terminator. An overlong line is
// consumed to its end and reported with tooLong set and no data.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return line, tooLong, err
		}
		if !tooLong {
			if len(line)+len(chunk) > maxLineBytes {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// exportLine is a CloudWatch Logs event as written by export or
// `aws logs filter-log-events`.
type exportLine struct {
	Timestamp     *int64 `json:"timestamp"`
	Message       string `json:"message"`
	LogStreamName string `json:"logStreamName"`
	EventTime     string `json:"eventTime"`
	EventSource   string `json:"eventSource"`
}

// ParseLine turns one line into a record. Three shapes are recognized:
// a CloudWatch event object with "message", any other JSON object (kept
// whole so structured events such as CloudTrail parse as such), and text
// with an optional leading RFC 3339 or epoch-millisecond timestamp.
func ParseLine(line string) denial.LogRecord {
	if strings.HasPrefix(line, "{") {
		var ev exportLine
		if err := json.Unmarshal([]byte(line), &ev); err == nil {
			if ev.Message != "" {
				rec := denial.LogRecord{StreamID: ev.LogStreamName, RawMessage: ev.Message}
				if ev.Timestamp != nil {
					rec.TimestampMillis = *ev.Timestamp
				}
				return rec
			}
			rec := denial.LogRecord{StreamID: ev.EventSource, RawMessage: line}
			if t, err := time.Parse(time.RFC3339, ev.EventTime); err == nil {
				rec.TimestampMillis = t.UnixMilli()
			}
			return rec
		}
	}

	head, rest, found := strings.Cut(line, " ")
	if found {
		if ms, ok := parseTimestamp(head); ok {
			return denial.LogRecord{TimestampMillis: ms, RawMessage: strings.TrimSpace(rest)}
		}
	}
	return denial.LogRecord{RawMessage: line}
}

func parseTimestamp(s string) (int64, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli(), true
	}
	// Epoch milliseconds: 13 digits covers 2001 through 2286.
	if len(s) == 13 {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, true
		}
	}
	return 0, false
}
