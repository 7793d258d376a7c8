package translog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

// FileSource reads the newline-delimited JSON log written by the indexer.
type FileSource struct {
	path string
	mu   sync.Mutex
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Path() string { return s.path }

// record is the on-disk shape. block and tokenId are accepted as numbers or
// strings.
type record struct {
	TS      *json.Number `json:"ts"`
	Block   flexString   `json:"block"`
	Tx      string       `json:"tx"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	TokenID flexString   `json:"tokenId"`
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// Snapshot reads the whole file. A missing file is an empty log. A final
// line without a newline is an in-progress write and is skipped.
func (s *FileSource) Snapshot(ctx context.Context) ([]models.TransferEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.TransferEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transfer log: %w", err)
	}

	// Drop everything after the last newline.
	if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
		data = data[:i+1]
	} else {
		data = nil
	}

	events := make([]models.TransferEvent, 0, bytes.Count(data, []byte{'\n'}))
	line := 0
	for len(data) > 0 {
		line++
		i := bytes.IndexByte(data, '\n')
		raw := bytes.TrimSpace(data[:i])
		data = data[i+1:]
		if len(raw) == 0 {
			continue
		}

		ev, err := decodeLine(raw)
		if err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeLine(raw []byte) (models.TransferEvent, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.TransferEvent{}, err
	}
	if rec.TS == nil {
		return models.TransferEvent{}, fmt.Errorf("%w: missing ts", ErrInvalidEvent)
	}
	ts, err := parseUnix(*rec.TS)
	if err != nil {
		return models.TransferEvent{}, err
	}

	ev := models.TransferEvent{
		Timestamp: ts,
		Block:     string(rec.Block),
		Tx:        rec.Tx,
		From:      rec.From,
		To:        rec.To,
		TokenID:   string(rec.TokenID),
	}
	return ev, validate(ev)
}

// parseUnix accepts integer or fractional unix seconds. Plain decimals are
// read digit by digit so nanoseconds survive; exponent forms go through
// float64.
func parseUnix(n json.Number) (time.Time, error) {
	if i, err := n.Int64(); err == nil {
		if i < 0 || i > maxUnix {
			return time.Time{}, fmt.Errorf("%w: ts %d out of range", ErrInvalidEvent, i)
		}
		return time.Unix(i, 0).UTC(), nil
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w: bad ts %q", ErrInvalidEvent, n.String())
	}
	if f < 0 || f >= maxUnix+1 {
		return time.Time{}, fmt.Errorf("%w: ts %s out of range", ErrInvalidEvent, n.String())
	}

	s := n.String()
	if whole, frac, ok := strings.Cut(s, "."); ok && !strings.ContainsAny(s, "eE") {
		sec, serr := strconv.ParseInt(whole, 10, 64)
		nsec, ferr := parseNanos(frac)
		if serr == nil && ferr == nil {
			return time.Unix(sec, nsec).UTC(), nil
		}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// parseNanos reads up to nine fractional digits; the rest are truncated.
func parseNanos(frac string) (int64, error) {
	if len(frac) > 9 {
		frac = frac[:9]
	}
	frac += strings.Repeat("0", 9-len(frac))
	return strconv.ParseInt(frac, 10, 64)
}

// formatUnix writes whole seconds as an integer and keeps sub-second
// precision as a decimal fraction.
func formatUnix(t time.Time) any {
	if t.Nanosecond() == 0 {
		return t.Unix()
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond()), "0")
	return json.Number(strconv.FormatInt(t.Unix(), 10) + "." + frac)
}

// Append writes events as complete lines. Numeric blocks are written as
// JSON numbers to match the indexer.
func (s *FileSource) Append(ctx context.Context, events ...models.TransferEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, ev := range events {
		if err := validate(ev); err != nil {
			return err
		}
		line, err := encodeLine(ev)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open transfer log: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("append transfer log: %w", err)
	}
	return f.Close()
}

func encodeLine(ev models.TransferEvent) ([]byte, error) {
	out := map[string]any{
		"ts":      formatUnix(ev.Timestamp),
		"block":   ev.Block,
		"tx":      ev.Tx,
		"from":    ev.From,
		"to":      ev.To,
		"tokenId": ev.TokenID,
	}
	if n, err := strconv.ParseInt(ev.Block, 10, 64); err == nil {
		out["block"] = n
	}
	return json.Marshal(out)
}
