package translog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/scalperguard/scoring/internal/models"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transfers.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource_MissingFileIsEmpty(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.jsonl"))
	events, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NotNil(t, events)
}

func TestFileSource_Snapshot(t *testing.T) {
	path := writeLog(t, ""+
		`{"ts":1700000000,"block":12,"tx":"0xaa","from":"0xA","to":"0xB","tokenId":"7"}`+"\n"+
		"\n"+
		`{"ts":1700000005,"block":"13","tx":"0xbb","from":"0xB","to":"0xA","tokenId":7}`+"\n")

	events, err := NewFileSource(path).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, models.TransferEvent{
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Block:     "12",
		Tx:        "0xaa",
		From:      "0xA",
		To:        "0xB",
		TokenID:   "7",
	}, events[0])
	assert.Equal(t, "13", events[1].Block)
	assert.Equal(t, "7", events[1].TokenID)
}

func TestFileSource_FractionalTimestamp(t *testing.T) {
	path := writeLog(t, `{"ts":1700000000.5,"from":"A","to":"B"}`+"\n")
	events, err := NewFileSource(path).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, time.Unix(1700000000, 500_000_000).UTC(), events[0].Timestamp)
}

func TestFileSource_PartialTrailingLineIgnored(t *testing.T) {
	path := writeLog(t, ""+
		`{"ts":1700000000,"block":1,"tx":"0x1","from":"A","to":"B","tokenId":"1"}`+"\n"+
		`{"ts":1700000001,"block":1,"tx":"0x2","fr`)

	events, err := NewFileSource(path).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestFileSource_OnlyPartialLine(t *testing.T) {
	path := writeLog(t, `{"ts":1700000000,"from":"A","to":"B"}`)
	events, err := NewFileSource(path).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFileSource_ParseErrors(t *testing.T) {
	good := `{"ts":1700000000,"from":"A","to":"B"}` + "\n"

	tests := []struct {
		name string
		bad  string
	}{
		{"invalid json", `{"ts":`},
		{"missing ts", `{"from":"A","to":"B"}`},
		{"missing from", `{"ts":1,"to":"B"}`},
		{"missing to", `{"ts":1,"from":"A"}`},
		{"non numeric ts", `{"ts":"soon","from":"A","to":"B"}`},
		{"object block", `{"ts":1,"block":{},"from":"A","to":"B"}`},
		{"huge float ts", `{"ts":1e30,"from":"A","to":"B"}`},
		{"ts past year 9999", `{"ts":253402300800,"from":"A","to":"B"}`},
		{"negative ts", `{"ts":-5,"from":"A","to":"B"}`},
		{"negative fractional ts", `{"ts":-0.5,"from":"A","to":"B"}`},
		{"int64 overflow ts", `{"ts":99999999999999999999,"from":"A","to":"B"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLog(t, good+"\n"+tt.bad+"\n"+good)
			_, err := NewFileSource(path).Snapshot(context.Background())
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, 3, perr.Line)
			assert.Contains(t, err.Error(), "line 3")
		})
	}
}

func TestFileSource_OutOfRangeTimestampFailsSnapshot(t *testing.T) {
	path := writeLog(t, `{"ts":1e30,"tx":"x","from":"A","to":"B"}`+"\n"+
		`{"ts":1700000000.5,"tx":"y","from":"A","to":"B"}`+"\n")

	events, err := NewFileSource(path).Snapshot(context.Background())
	require.Error(t, err)
	assert.Nil(t, events)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)
}

func TestParseUnix(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"0", time.Unix(0, 0).UTC()},
		{"1700000000", time.Unix(1700000000, 0).UTC()},
		{"1700000000.5", time.Unix(1700000000, 500_000_000).UTC()},
		{"1700000000.123456789", time.Unix(1700000000, 123456789).UTC()},
		{"1700000000.1234567891", time.Unix(1700000000, 123456789).UTC()},
		{"1.7e9", time.Unix(1700000000, 0).UTC()},
		{"253402300799", time.Unix(253402300799, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseUnix(json.Number(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSource(writeLog(t, "")).Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSource_AppendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfers.jsonl")
	src := NewFileSource(path)
	ctx := context.Background()

	in := []models.TransferEvent{
		{Timestamp: time.Unix(1700000000, 0).UTC(), Block: "5", Tx: "0x1", From: "A", To: "B", TokenID: "1"},
		{Timestamp: time.Unix(1700000003, 0).UTC(), Block: "pending", Tx: "0x2", From: "B", To: "A", TokenID: "1"},
	}
	require.NoError(t, src.Append(ctx, in[0]))
	require.NoError(t, src.Append(ctx, in[1]))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"block":5`)
	assert.Contains(t, string(raw), `"block":"pending"`)

	out, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFileSource_AppendRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		ev   models.TransferEvent
	}{
		{"missing to", models.TransferEvent{Timestamp: time.Now(), From: "A"}},
		{"before epoch", models.TransferEvent{Timestamp: time.Unix(-1, 0), From: "A", To: "B"}},
		{"after year 9999", models.TransferEvent{Timestamp: time.Unix(253402300800, 0), From: "A", To: "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "transfers.jsonl")
			err := NewFileSource(path).Append(context.Background(), tt.ev)
			assert.ErrorIs(t, err, ErrInvalidEvent)
			assert.NoFileExists(t, path)
		})
	}
}

func TestFileSource_AppendKeepsSubSecondTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfers.jsonl")
	src := NewFileSource(path)
	ctx := context.Background()

	in := []models.TransferEvent{
		{Timestamp: time.Unix(1700000000, 500_000_000).UTC(), Tx: "0x1", From: "A", To: "B"},
		{Timestamp: time.Unix(1700000001, 123456789).UTC(), Tx: "0x2", From: "B", To: "A"},
		{Timestamp: time.Unix(1700000002, 0).UTC(), Tx: "0x3", From: "A", To: "B"},
	}
	require.NoError(t, src.Append(ctx, in...))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"ts":1700000000.5`)
	assert.Contains(t, string(raw), `"ts":1700000001.123456789`)
	assert.Contains(t, string(raw), `"ts":1700000002,`)

	out, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(Config{Path: "x.jsonl"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)

	src, err = NewSource(Config{Backend: "FILE", Path: "x.jsonl"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x.jsonl", src.(*FileSource).Path())

	_, err = NewSource(Config{Backend: "file"}, nil)
	assert.Error(t, err)

	_, err = NewSource(Config{Backend: "postgres"}, nil)
	assert.Error(t, err)

	pg := &PostgresSource{}
	src, err = NewSource(Config{Backend: "postgres"}, pg)
	require.NoError(t, err)
	assert.Same(t, pg, src)

	_, err = NewSource(Config{Backend: "s3"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}
