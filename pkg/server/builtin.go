package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
	"github.com/ajitpratap0/mcp-memory-go/pkg/schema"
	"github.com/ajitpratap0/mcp-memory-go/pkg/store"
)

// Arithmetic operations accepted by the calculate tool
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
)

// BuiltinTools returns the calculator, echo and memory tools bound to st,
// in the order they are advertised.
func BuiltinTools(st *store.Store) []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        "calculate",
			Description: "Perform basic arithmetic operations",
			Input: schema.Object(
				schema.EnumField("operation", "The arithmetic operation to perform", OpAdd, OpSubtract, OpMultiply, OpDivide),
				schema.NumberField("a", "First number"),
				schema.NumberField("b", "Second number"),
			),
			Handler: calculate,
		},
		{
			Name:        "echo",
			Description: "Echo back the provided text",
			Input:       schema.Object(schema.StringField("text", "Text to echo back")),
			Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
				return protocol.TextResult("Echo: " + args.String("text")), nil
			},
		},
		{
			Name:        "get_memory",
			Description: "Get value from memory store",
			Input:       schema.Object(schema.StringField("key", "Key to retrieve from memory")),
			Handler:     getMemory(st),
		},
		{
			Name:        "set_memory",
			Description: "Set value in memory store",
			Input: schema.Object(
				schema.StringField("key", "Key to store in memory"),
				schema.StringField("value", "Value to store (JSON string)"),
			),
			Handler: setMemory(st),
		},
	}
}

// BuiltinResources returns the descriptors of the seeded store entries
func BuiltinResources() []ResourceDescriptor {
	return []ResourceDescriptor{
		{
			URI:         MemoryScheme + "config",
			Name:        "Configuration Settings",
			Description: "Application configuration data",
			MimeType:    protocol.MimeTypeJSON,
		},
		{
			URI:         MemoryScheme + "data",
			Name:        "Application Data",
			Description: "Sample application data including users and tasks",
			MimeType:    protocol.MimeTypeJSON,
		},
	}
}

// ExampleTools returns the single echo tool of the example profile. It
// checks its own input and rejects it with InvalidRequest, which reaches
// the client unchanged.
func ExampleTools() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        "echo",
			Description: "Echo back the provided text",
			Input:       schema.Object(schema.StringField("text", "Text to echo back")),
			RawArgs:     true,
			Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
				text, ok := args["text"].(string)
				if !ok {
					return nil, mcperrors.InvalidRequest("Text argument is required")
				}
				return protocol.TextResult("Echo: " + text), nil
			},
		},
	}
}

// ExampleResources returns the single resource of the example profile
func ExampleResources() []ResourceDescriptor {
	return []ResourceDescriptor{
		{
			URI:         MemoryScheme + "example",
			Name:        "Example Data",
			Description: "Example data stored in memory",
			MimeType:    protocol.MimeTypeJSON,
		},
	}
}

func calculate(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
	operation := args.String("operation")
	a, b := args.Number("a"), args.Number("b")

	var result float64
	switch operation {
	case OpAdd:
		result = a + b
	case OpSubtract:
		result = a - b
	case OpMultiply:
		result = a * b
	case OpDivide:
		if b == 0 {
			return nil, mcperrors.DomainError("Division by zero is not allowed")
		}
		result = a / b
	default:
		return nil, mcperrors.DomainErrorf("Unsupported operation: %s", operation)
	}

	return protocol.TextResult(fmt.Sprintf("Result: %s %s %s = %s",
		formatNumber(a), operation, formatNumber(b), formatNumber(result))), nil
}

func getMemory(st *store.Store) ToolHandler {
	return func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
		value, ok := st.Get(args.String("key"))
		if !ok {
			return protocol.TextResult("Key not found"), nil
		}
		text, err := prettyJSON(value)
		if err != nil {
			return nil, err
		}
		return protocol.TextResult(text), nil
	}
}

func setMemory(st *store.Store) ToolHandler {
	return func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
		key, raw := args.String("key"), args.String("value")

		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, mcperrors.DomainError("Value must be valid JSON")
		}
		st.Set(key, value)

		return protocol.TextResult(fmt.Sprintf("Successfully set %s = %s", key, raw)), nil
	}
}

// formatNumber renders v the way JavaScript's Number#toString does for
// the values arithmetic produces: shortest round-trip digits, exponent
// form only for very large or very small magnitudes.
func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'g', -1, 64)
		// Go writes e+21 and e-07; JavaScript writes e+21 and e-7.
		if mant, exp, ok := cutExponent(s); ok {
			return mant + exp
		}
		return s
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cutExponent(s string) (string, string, bool) {
	i := strings.IndexByte(s, 'e')
	if i < 0 {
		return s, "", false
	}
	mant, exp := s[:i], s[i+1:]
	sign := exp[:1]
	digits := exp[1:]
	for len(digits) > 1 && digits[0] == '0' {
		digits = digits[1:]
	}
	return mant, "e" + sign + digits, true
}

// prettyJSON renders v with two-space indentation and without HTML escaping
func prettyJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", mcperrors.InternalError("failed to encode value", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
