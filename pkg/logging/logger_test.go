package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	logger.SetLevel(DebugLevel)

	logger.Debug("Debug message", String("key", "value"))
	logger.Info("Info message", Int("count", 42))
	logger.Warn("Warning message", Bool("flag", true))
	logger.Error("Error message", ErrorField(errors.New("test error")))

	output := buf.String()
	for _, want := range []string{
		"[DEBUG] Debug message | key=value",
		"[INFO] Info message | count=42",
		"[WARN] Warning message | flag=true",
		"[ERROR] Error message | error=test error",
	} {
		assert.Contains(t, output, want)
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	logger.SetLevel(WarnLevel)

	logger.Debug("Debug message")
	logger.Info("Info message")
	logger.Warn("Warning message")
	logger.Error("Error message")

	output := buf.String()
	assert.NotContains(t, output, "Debug message")
	assert.NotContains(t, output, "Info message")
	assert.Contains(t, output, "Warning message")
	assert.Contains(t, output, "Error message")
	assert.Equal(t, WarnLevel, logger.GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestWithFieldsSharesLevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())
	child := logger.WithFields(String("component", "dispatcher"), String("tool", "echo"))

	child.Info("tool call completed")
	assert.Contains(t, buf.String(), "dispatcher: tool call completed | tool=echo")

	logger.SetLevel(ErrorLevel)
	buf.Reset()
	child.Info("suppressed")
	assert.Empty(t, buf.String())
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewTextFormatter())

	ctx := ContextWithRequestID(context.Background(), "req-123")
	logger.WithContext(ctx).Info("handled")
	assert.Contains(t, buf.String(), "[req-123] handled")

	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	err := mcperrors.WithRequestContext(mcperrors.UnknownTool("nope"), "tools/call", "req-9")
	logger.WithError(err).Warn("call failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "call failed", entry["message"])
	assert.Equal(t, "Unknown tool: nope", entry["error"])
	assert.Equal(t, float64(mcperrors.CodeMethodNotFound), entry["error_code"])
	assert.Equal(t, "MethodNotFound", entry["error_name"])
	assert.Equal(t, "req-9", entry["request_id"])

	assert.Same(t, logger, logger.WithError(nil))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	logger.Info("request completed", Duration("duration", 1500*time.Millisecond), Any("tools", 4))

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "1.5s", entry["duration"])
	assert.Equal(t, float64(4), entry["tools"])
	assert.NotEmpty(t, entry["timestamp"])
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	f, err = NewFormatter("")
	require.NoError(t, err)
	assert.IsType(t, &TextFormatter{}, f)

	_, err = NewFormatter("xml")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	logger := Nop()
	assert.NotPanics(t, func() {
		logger.Error("nothing to see")
	})
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, &TextFormatter{DisableTimestamp: true})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.WithFields(Int("n", n)).Info("line")
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "[INFO] line | n="), line)
	}
}
