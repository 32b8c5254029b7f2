package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// NewFormatter returns the formatter named by a configuration string: "text" or "json"
func NewFormatter(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return NewTextFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", name)
	}
}

// TextFormatter formats log entries as human-readable lines:
//
//	2006-01-02 15:04:05.000 [INFO] [req-1] dispatcher: tool call completed | duration=1ms tool=echo
type TextFormatter struct {
	TimestampFormat  string
	DisableTimestamp bool
	// EnableColors wraps the level in ANSI colors
	EnableColors bool
}

// NewTextFormatter creates a text formatter without colors; server logs
// usually land in files or a parent process's stderr.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{TimestampFormat: "2006-01-02 15:04:05.000"}
}

// Format formats a log entry as text
func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer

	if !f.DisableTimestamp {
		buf.WriteString(entry.Timestamp.Format(f.TimestampFormat))
		buf.WriteByte(' ')
	}

	level := "[" + entry.Level.String() + "]"
	if f.EnableColors {
		level = colorize(entry.Level, level)
	}
	buf.WriteString(level)
	buf.WriteByte(' ')

	if entry.RequestID != "" {
		fmt.Fprintf(&buf, "[%s] ", entry.RequestID)
	}
	if entry.Component != "" {
		buf.WriteString(entry.Component)
		buf.WriteString(": ")
	}
	buf.WriteString(entry.Message)

	if pairs := textPairs(entry.Fields); len(pairs) > 0 {
		buf.WriteString(" | ")
		buf.WriteString(strings.Join(pairs, " "))
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// textPairs renders fields as sorted key=value pairs, skipping the ones
// already printed in the line header.
func textPairs(fields map[string]interface{}) []string {
	pairs := make([]string, 0, len(fields))
	for k, v := range fields {
		if k == "request_id" || k == "component" {
			continue
		}

		var value string
		switch val := v.(type) {
		case error:
			value = val.Error()
		case string:
			value = val
			if strings.ContainsAny(val, " \t\n\"") {
				value = fmt.Sprintf("%q", val)
			}
		default:
			value = fmt.Sprintf("%v", v)
		}
		pairs = append(pairs, k+"="+value)
	}
	sort.Strings(pairs)
	return pairs
}

func colorize(level Level, text string) string {
	const reset = "\033[0m"
	switch level {
	case DebugLevel:
		return "\033[90m" + text + reset
	case InfoLevel:
		return "\033[34m" + text + reset
	case WarnLevel:
		return "\033[33m" + text + reset
	case ErrorLevel, FatalLevel:
		return "\033[31m" + text + reset
	default:
		return text
	}
}

// JSONFormatter formats log entries as one JSON object per line
type JSONFormatter struct {
	TimestampFormat  string
	DisableTimestamp bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
}

// Format formats a log entry as JSON
func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Fields)+3)
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			data[k] = err.Error()
			continue
		}
		if d, ok := v.(fmt.Stringer); ok {
			data[k] = d.String()
			continue
		}
		data[k] = v
	}

	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	if !f.DisableTimestamp {
		data["timestamp"] = entry.Timestamp.Format(f.TimestampFormat)
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log entry: %w", err)
	}
	return append(out, '\n'), nil
}
