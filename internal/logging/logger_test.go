package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, FormatJSON)
	logger.SetOutput(&buf)

	logger.WithFields(map[string]interface{}{"tagId": "owner_project"}).Info("search executed")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry.Level)
	assert.Equal(t, "search executed", entry.Message)
	assert.Equal(t, "owner_project", entry.Fields["tagId"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelWarn, FormatText)
	logger.SetOutput(&buf)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, " WARN shown")
}

func TestLogger_ChildSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(LevelDebug, FormatText)
	child := parent.WithField("component", "oli")
	parent.SetOutput(&buf)

	child.WithError(assert.AnError).Error("upstream failed")

	out := buf.String()
	assert.Contains(t, out, "component=oli")
	assert.Contains(t, out, "error="+strconv.Quote(assert.AnError.Error()))
	assert.Contains(t, out, "caller=logging/logger_test.go:")
	assert.Empty(t, parent.fields, "parent fields must not be mutated by children")
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(LevelInfo, FormatJSON)
	base.SetOutput(&buf)

	ctx := WithLogger(context.Background(), base)
	ctx = WithRequestID(ctx, "req-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	FromContext(ctx).Info("hello")
	assert.True(t, strings.Contains(buf.String(), `"requestId":"req-1"`))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestParseLogLevelAndFormat(t *testing.T) {
	assert.Equal(t, LevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, LevelDebug, ParseLogLevel(" debug "))
	assert.Equal(t, LevelFatal, ParseLogLevel("fatal"))
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, LevelInfo, ParseLogLevel("nonsense"))
	assert.Equal(t, FormatText, ParseLogFormat("text"))
	assert.Equal(t, FormatJSON, ParseLogFormat("xml"))
}

func TestRenderText(t *testing.T) {
	line := renderText(LogEntry{
		Timestamp: "2026-01-02T03:04:05.006Z",
		Level:     "info",
		Message:   "search executed",
		Fields:    Fields{"tagValue": "uniswap v3", "limit": 5, "chain": ""},
	})
	assert.Equal(t, `2026-01-02T03:04:05.006Z INFO search executed chain="" limit=5 tagValue="uniswap v3"`, line)
}

func TestLogger_TimestampHasMilliseconds(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, FormatJSON)
	logger.SetOutput(&buf)
	logger.Info("tick")

	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	_, err := time.Parse(timestampLayout, entry.Timestamp)
	require.NoError(t, err)
	assert.Len(t, entry.Timestamp, len("2006-01-02T15:04:05.000Z"))
}
