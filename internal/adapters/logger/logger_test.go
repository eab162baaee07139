package logger_adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogAdapterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, IsJSON: true, Level: slog.LevelDebug})

	logger.WithFields(port.Fields{"run_id": "r-1"}).Error("store failed", errors.New("boom"), port.Fields{"address": "Ленина, 1"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "store failed", entry["msg"])
	assert.Equal(t, "r-1", entry["run_id"])
	assert.Equal(t, "Ленина, 1", entry["address"])
	assert.Equal(t, "boom", entry["error"])
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(SlogConfig{Writer: &buf, Level: slog.LevelWarn})

	logger.Info("hidden", nil)
	logger.Debug("hidden", nil)
	assert.Empty(t, buf.String())

	logger.Warn("visible", port.Fields{"page": 2})
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "page=2")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLogLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
}

type postedEntry struct {
	tag  string
	data port.Fields
}

type fakeFluent struct {
	mu      sync.Mutex
	entries []postedEntry
	closed  bool
}

func (f *fakeFluent) Post(tag string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, postedEntry{tag: tag, data: message.(port.Fields)})
	return nil
}

func (f *fakeFluent) Close() error {
	f.closed = true
	return nil
}

func TestFluentLoggerAdapter(t *testing.T) {
	client := &fakeFluent{}
	adapter, err := NewFluentLoggerAdapter(client, "avito-parser", slog.LevelInfo)
	require.NoError(t, err)

	logger := adapter.WithFields(port.Fields{"service_name": "avito-parser"})
	logger.Debug("dropped", nil)
	logger.Info("run started", port.Fields{"category": "rental"})
	logger.Error("run failed", errors.New("no browser"), nil)

	require.Len(t, client.entries, 2)
	assert.Equal(t, "avito-parser.info", client.entries[0].tag)
	assert.Equal(t, "rental", client.entries[0].data["category"])
	assert.Equal(t, "avito-parser", client.entries[0].data["service_name"])
	assert.Equal(t, "avito-parser.error", client.entries[1].tag)
	assert.Equal(t, "no browser", client.entries[1].data["error"])

	require.NoError(t, adapter.Close())
	assert.True(t, client.closed)
}

func TestNewFluentLoggerAdapterRequiresClient(t *testing.T) {
	_, err := NewFluentLoggerAdapter(nil, "", nil)
	assert.Error(t, err)
}

func TestMultiLoggerFansOut(t *testing.T) {
	var first, second bytes.Buffer
	multi, err := NewMultiLoggerAdapter(
		NewSlogAdapter(SlogConfig{Writer: &first}),
		nil,
		NewSlogAdapter(SlogConfig{Writer: &second}),
	)
	require.NoError(t, err)

	multi.WithFields(port.Fields{"category": "sale"}).Info("hello", nil)

	for _, out := range []string{first.String(), second.String()} {
		assert.True(t, strings.Contains(out, "hello") && strings.Contains(out, "category=sale"))
	}
}

func TestMultiLoggerRequiresOne(t *testing.T) {
	_, err := NewMultiLoggerAdapter()
	assert.Error(t, err)

	_, err = NewMultiLoggerAdapter(nil)
	assert.Error(t, err)
}

func TestKVFields(t *testing.T) {
	fields := KVFields("queue", "q1", 42, "skipped", "dangling")
	assert.Equal(t, port.Fields{"queue": "q1", "extra": "dangling"}, fields)
	assert.Empty(t, KVFields())
}

func TestKVBridgeQuietDemotesInfo(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogAdapter(SlogConfig{Writer: &buf, IsJSON: true, Level: slog.LevelInfo})

	NewKVBridge(base).Quiet().Info("wake", "now", "12:00")
	assert.Empty(t, buf.String())

	bridge := NewKVBridge(base)
	bridge.Info("connected", "url", "amqp://broker")
	bridge.Error(errors.New("closed"), "channel lost", "queue", "q1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "channel lost", entry["msg"])
	assert.Equal(t, "q1", entry["queue"])
}
