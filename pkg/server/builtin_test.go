package server

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/ajitpratap0/mcp-memory-go/pkg/errors"
	"github.com/ajitpratap0/mcp-memory-go/pkg/schema"
	"github.com/ajitpratap0/mcp-memory-go/pkg/store"
)

func TestFormatNumber(t *testing.T) {
	// Computed at run time so the sum is rounded like a float64, not folded as a constant.
	tenth, fifth := 0.1, 0.2

	tests := []struct {
		in   float64
		want string
	}{
		{10, "10"},
		{-4, "-4"},
		{2.5, "2.5"},
		{10.0 / 3.0, "3.3333333333333335"},
		{tenth + fifth, "0.30000000000000004"},
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{123456789012, "123456789012"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.in), "formatNumber(%v)", tt.in)
	}
}

func callBuiltin(t *testing.T, st *store.Store, name string, args map[string]interface{}) (string, error) {
	t.Helper()
	for _, desc := range BuiltinTools(st) {
		if desc.Name != name {
			continue
		}
		validated, err := desc.Input.Validate(args)
		require.NoError(t, err)
		result, err := desc.Handler(context.Background(), validated)
		if err != nil {
			return "", err
		}
		require.Len(t, result.Content, 1)
		assert.Equal(t, "text", result.Content[0].Type)
		return result.Content[0].Text, nil
	}
	t.Fatalf("no builtin tool %q", name)
	return "", nil
}

func TestBuiltinToolOrder(t *testing.T) {
	var names []string
	for _, desc := range BuiltinTools(store.New()) {
		names = append(names, desc.Name)
	}
	assert.Equal(t, []string{"calculate", "echo", "get_memory", "set_memory"}, names)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		op   string
		a, b float64
		want string
	}{
		{OpAdd, 10, 5, "Result: 10 add 5 = 15"},
		{OpSubtract, 10, 5, "Result: 10 subtract 5 = 5"},
		{OpMultiply, 2.5, 4, "Result: 2.5 multiply 4 = 10"},
		{OpDivide, 10, 3, "Result: 10 divide 3 = 3.3333333333333335"},
		{OpDivide, 0, 4, "Result: 0 divide 4 = 0"},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			text, err := callBuiltin(t, store.New(), "calculate",
				map[string]interface{}{"operation": tt.op, "a": tt.a, "b": tt.b})
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestCalculateDivisionByZero(t *testing.T) {
	for _, a := range []float64{0, 7} {
		_, err := callBuiltin(t, store.New(), "calculate",
			map[string]interface{}{"operation": OpDivide, "a": a, "b": float64(0)})
		require.Error(t, err)
		assert.Equal(t, "Division by zero is not allowed", err.Error())
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeOperationFailed))
	}
}

func TestEcho(t *testing.T) {
	text, err := callBuiltin(t, store.New(), "echo", map[string]interface{}{"text": "hi there"})
	require.NoError(t, err)
	assert.Equal(t, "Echo: hi there", text)
}

func TestMemoryTools(t *testing.T) {
	st := store.New()

	text, err := callBuiltin(t, st, "get_memory", map[string]interface{}{"key": "greeting"})
	require.NoError(t, err)
	assert.Equal(t, "Key not found", text)

	text, err = callBuiltin(t, st, "set_memory",
		map[string]interface{}{"key": "greeting", "value": `{"msg":"hello","n":1}`})
	require.NoError(t, err)
	assert.Equal(t, `Successfully set greeting = {"msg":"hello","n":1}`, text)

	text, err = callBuiltin(t, st, "get_memory", map[string]interface{}{"key": "greeting"})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"msg\": \"hello\",\n  \"n\": 1\n}", text)
}

func TestSetMemoryRejectsInvalidJSON(t *testing.T) {
	st := store.Seeded(map[string]interface{}{"k": "before"})

	_, err := callBuiltin(t, st, "set_memory", map[string]interface{}{"key": "k", "value": "{not json"})
	require.Error(t, err)
	assert.Equal(t, "Value must be valid JSON", err.Error())

	v, ok := st.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "before", v)
}

func TestExampleEcho(t *testing.T) {
	tools := ExampleTools()
	require.Len(t, tools, 1)
	echo := tools[0]
	assert.True(t, echo.RawArgs)

	result, err := echo.Handler(context.Background(), schema.Args{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Echo: hello", result.Content[0].Text)

	for _, args := range []schema.Args{{}, {"text": 42.0}} {
		_, err := echo.Handler(context.Background(), args)
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest))
		assert.Equal(t, "Text argument is required", err.Error())
	}
}
