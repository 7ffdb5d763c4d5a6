package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lkarlslund/usageguard/pkg/pricing"
)

var ErrRead = errors.New("transcript read failed")

const assistantType = "assistant"

// rawRecord maps the parts of a session log line that carry billing data.
type rawRecord struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId"`
	Message   *struct {
		Model string         `json:"model"`
		Usage *pricing.Usage `json:"usage"`
	} `json:"message"`
}

type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

type Result struct {
	Cost            float64
	RequestIDs      []string
	Records         int
	Offset          int64
	LatestTimestamp time.Time
	Skipped         int
	Malformed       int
}

// ParseFrom reads complete lines of path starting at offset and sums the cost
// of billable records inside win. Records whose request id is in seen, or was
// already counted earlier in this read, are skipped.
//
// On an I/O error the partial result is returned with Offset left at offset,
// together with an error wrapping ErrRead.
func ParseFrom(path string, offset int64, win Window, seen map[string]struct{}, table pricing.Table) (Result, error) {
	res := Result{Offset: offset}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("%w: open %s: %w", ErrRead, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return res, fmt.Errorf("%w: stat %s: %w", ErrRead, path, err)
	}
	if info.Size() <= offset {
		return res, nil
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return res, fmt.Errorf("%w: seek %s: %w", ErrRead, path, err)
	}
	return scan(f, path, offset, win, seen, table)
}

func scan(src io.Reader, path string, offset int64, win Window, seen map[string]struct{}, table pricing.Table) (Result, error) {
	res := Result{Offset: offset}
	counted := map[string]struct{}{}
	pos := offset
	r := bufio.NewReaderSize(src, 64*1024)
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// A trailing line without a newline is still being written.
				break
			}
			res.Offset = offset
			return res, fmt.Errorf("%w: read %s: %w", ErrRead, path, err)
		}
		pos += int64(len(line))
		res.consume(bytes.TrimSpace(line), win, seen, counted, table)
	}
	res.Offset = pos
	return res, nil
}

func (res *Result) consume(line []byte, win Window, seen, counted map[string]struct{}, table pricing.Table) {
	if len(line) == 0 {
		return
	}
	var rec rawRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		res.Malformed++
		return
	}
	if rec.Type != assistantType || rec.Message == nil || rec.Message.Usage == nil {
		res.Skipped++
		return
	}
	ts, ok := ParseTimestamp(rec.Timestamp)
	if !ok {
		res.Malformed++
		return
	}
	if !win.Contains(ts) {
		res.Skipped++
		return
	}
	id := strings.TrimSpace(rec.RequestID)
	if id != "" {
		if _, dup := seen[id]; dup {
			res.Skipped++
			return
		}
		if _, dup := counted[id]; dup {
			res.Skipped++
			return
		}
		counted[id] = struct{}{}
		res.RequestIDs = append(res.RequestIDs, id)
	}
	model := strings.TrimSpace(rec.Message.Model)
	if model == "" {
		model = pricing.DefaultModel
	}
	res.Cost += pricing.Cost(*rec.Message.Usage, model, table)
	res.Records++
	if ts.After(res.LatestTimestamp) {
		res.LatestTimestamp = ts
	}
}

func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		ts, err = time.Parse("2006-01-02T15:04:05.000Z", raw)
		if err != nil {
			return time.Time{}, false
		}
	}
	return ts.UTC(), true
}
