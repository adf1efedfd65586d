package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type detailErr struct {
	stage string
}

func (e *detailErr) Error() string {
	return "detail " + e.stage
}

func (e *detailErr) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("stage", e.stage)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.Nil(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestToLevel(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected slog.Level
		hasErr   bool
	}{
		"debug":   {"debug", slog.LevelDebug, false},
		"info":    {"INFO", slog.LevelInfo, false},
		"empty":   {"", slog.LevelInfo, false},
		"warn":    {"warn", slog.LevelWarn, false},
		"warning": {"warning", slog.LevelWarn, false},
		"error":   {"error", slog.LevelError, false},
		"bogus":   {"loud", slog.LevelInfo, true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			lvl, err := ToLevel(td.input)
			if td.hasErr {
				assert.ErrorIs(t, err, ErrInvalidLevel)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, lvl)
		})
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "json")
	require.Nil(t, err)

	logger.Debug("hidden")
	assert.Equal(t, 0, buf.Len())

	logger.With("kind", "linear").WithGroup("fit").Info("trained", "rows", 12, "r2", 0.5, "ok", true)
	out := decodeLine(t, &buf)
	assert.Equal(t, "trained", out["message"])
	assert.Equal(t, "info", out["level"])
	assert.Equal(t, "linear", out["kind"])
	assert.Equal(t, 12.0, out["fit.rows"])
	assert.Equal(t, 0.5, out["fit.r2"])
	assert.Equal(t, true, out["fit.ok"])
	assert.Contains(t, out, "time")
}

func TestErrorAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", "json")
	require.Nil(t, err)

	wrapped := errors.Wrap(errors.WithStack(&detailErr{stage: "aggregate"}), "building series")
	logger.Warn("failed", ErrAttr(wrapped))

	out := decodeLine(t, &buf)
	assert.Equal(t, "warn", out["level"])
	assert.Equal(t, "building series: detail aggregate", out["error"])
	detail, ok := out["error_detail"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "aggregate", detail["stage"])
	assert.NotEmpty(t, out[StacktraceAttrKey])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", "console")
	require.Nil(t, err)

	logger.Info("hidden")
	assert.Equal(t, 0, buf.Len())

	logger.Error("boom", "stage", "date_parse")
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "stage=date_parse")
}

func TestNewErrors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "info", "xml")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = New(&bytes.Buffer{}, "chatty", "json")
	assert.ErrorIs(t, err, ErrInvalidLevel)

	assert.NotNil(t, Setup(&bytes.Buffer{}, "chatty", "json"))
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	require.Nil(t, Setup(&buf, "debug", "json"))
	slog.Debug("installed", "component", "logging")
	out := decodeLine(t, &buf)
	assert.Equal(t, "debug", out["level"])
	assert.Equal(t, "logging", out["component"])
}
