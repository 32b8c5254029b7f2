package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
)

func TestMCPErrorInterface(t *testing.T) {
	tests := []struct {
		name     string
		err      MCPError
		wantCode int
		wantCat  Category
		wantMsg  string
	}{
		{
			name:     "missing field",
			err:      MissingField("text"),
			wantCode: CodeValidationError,
			wantCat:  CategoryValidation,
			wantMsg:  "Missing required field: text",
		},
		{
			name:     "domain error",
			err:      DomainError("Division by zero is not allowed"),
			wantCode: CodeOperationFailed,
			wantCat:  CategoryDomain,
			wantMsg:  "Division by zero is not allowed",
		},
		{
			name:     "unknown tool",
			err:      UnknownTool("nope"),
			wantCode: CodeMethodNotFound,
			wantCat:  CategoryNotFound,
			wantMsg:  "Unknown tool: nope",
		},
		{
			name:     "invalid request",
			err:      InvalidRequest("Unsupported URI scheme: %s", "http://x"),
			wantCode: CodeInvalidRequest,
			wantCat:  CategoryProtocol,
			wantMsg:  "Unsupported URI scheme: http://x",
		},
		{
			name:     "duplicate uri",
			err:      DuplicateURI("memory://config"),
			wantCode: CodeResourceConflict,
			wantCat:  CategoryConflict,
			wantMsg:  "Resource 'memory://config' is already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code())
			assert.Equal(t, tt.wantCat, tt.err.Category())
			assert.Equal(t, tt.wantMsg, tt.err.Message())
			assert.Equal(t, SeverityError, tt.err.Severity())
			require.NotNil(t, tt.err.Context())
			assert.False(t, tt.err.Context().Timestamp.IsZero())
		})
	}
}

func TestWithDetailDoesNotMutate(t *testing.T) {
	base := DomainError("Value must be valid JSON")
	detailed := base.WithDetail("unexpected end of JSON input")

	assert.Equal(t, "Value must be valid JSON", base.Error())
	assert.Equal(t, "Value must be valid JSON: unexpected end of JSON input", detailed.Error())
	assert.Equal(t, "Value must be valid JSON", detailed.Message())
}

func TestValidationKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ValidationKind
	}{
		{"missing", MissingField("a"), KindMissing},
		{"type mismatch", TypeMismatch("a", "number", "ten"), KindTypeMismatch},
		{"not in enum", NotInEnum("operation", "modulo", []string{"add", "subtract"}), KindNotInEnum},
		{"wrapped", fmt.Errorf("calculate: %w", MissingField("b")), KindMissing},
		{"inside internal error", InternalError("x", TypeMismatch("a", "string", 1.0)), KindTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := ValidationKindOf(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.want, kind)
		})
	}

	_, ok := ValidationKindOf(DomainError("nope"))
	assert.False(t, ok)
	_, ok = ValidationKindOf(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestTypeMismatchMessage(t *testing.T) {
	err := TypeMismatch("a", "number", "ten")
	assert.Equal(t, "Invalid type for field 'a': expected number, got string", err.Message())

	data, ok := err.Data().(*ValidationErrorData)
	require.True(t, ok)
	assert.Equal(t, "a", data.Field)
	assert.Equal(t, "number", data.Expected)
	assert.Equal(t, "string", data.Got)
}

func TestNormalizeToolError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"domain error is wrapped", DomainError("Division by zero is not allowed"), CodeInternalError, "Division by zero is not allowed"},
		{"validation error is wrapped", MissingField("text"), CodeInternalError, "Missing required field: text"},
		{"plain error is wrapped", stderrors.New("boom"), CodeInternalError, "boom"},
		{"method not found passes through", UnknownTool("x"), CodeMethodNotFound, "Unknown tool: x"},
		{"invalid request passes through", InvalidRequest("Text argument is required"), CodeInvalidRequest, "Text argument is required"},
		{"wrapped invalid request passes through", fmt.Errorf("echo: %w", InvalidRequest("bad")), CodeInvalidRequest, "bad"},
		{"details are not leaked", DomainError("Value must be valid JSON").WithDetail("eof"), CodeInternalError, "Value must be valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeToolError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code())
			assert.Equal(t, tt.wantMsg, got.Message())
		})
	}

	assert.Nil(t, NormalizeToolError(nil))
}

func TestNormalizedErrorKeepsCause(t *testing.T) {
	domain := DomainError("Division by zero is not allowed")
	normalized := NormalizeToolError(domain)

	assert.True(t, IsCode(normalized, CodeInternalError))
	assert.True(t, HasCode(normalized, CodeOperationFailed))
	assert.True(t, stderrors.Is(normalized, domain))
	assert.False(t, HasCode(normalized, CodeValidationError))
}

func TestNormalizeResourceError(t *testing.T) {
	notFound := InvalidRequest("Resource not found: memory://missing")
	assert.Equal(t, notFound, NormalizeResourceError(notFound))

	wrapped := NormalizeResourceError(stderrors.New("producer failed"))
	assert.Equal(t, CodeInternalError, wrapped.Code())
	assert.Equal(t, "producer failed", wrapped.Message())

	domain := NormalizeResourceError(UnknownTool("x"))
	assert.Equal(t, CodeInternalError, domain.Code())
}

func TestJSONRPCConversion(t *testing.T) {
	rpcErr := ToJSONRPCError(UnknownTool("calc"))
	require.NotNil(t, rpcErr)
	assert.Equal(t, protocol.MethodNotFound, rpcErr.Code)
	assert.Equal(t, "Unknown tool: calc", rpcErr.Message)

	plain := ToJSONRPCError(stderrors.New("kaboom"))
	assert.Equal(t, protocol.InternalError, plain.Code)
	assert.Equal(t, "kaboom", plain.Message)

	assert.Nil(t, ToJSONRPCError(nil))

	back := FromJSONRPCError(&protocol.Error{Code: protocol.InvalidRequest, Message: "Resource not found: memory://x"})
	assert.True(t, IsCode(back, CodeInvalidRequest))
	assert.Equal(t, CategoryProtocol, back.Category())

	resp, err := ToJSONRPCResponse(InvalidRequest("nope"), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.ID)
	assert.Equal(t, protocol.InvalidRequest, resp.Error.Code)

	_, err = ToJSONRPCResponse(nil, 3)
	assert.Error(t, err)
}

func TestToJSON(t *testing.T) {
	err := WithRequestContext(DomainError("Division by zero is not allowed"), "tools/call", "req-1")

	data, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "DomainError", decoded["name"])
	assert.Equal(t, "domain", decoded["category"])

	ctx, ok := decoded["context"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "tools/call", ctx["method"])
	assert.Equal(t, "req-1", ctx["request_id"])
}

func TestWithRequestContextWrapsPlainErrors(t *testing.T) {
	err := WithRequestContext(stderrors.New("disk on fire"), "resources/read", nil)
	assert.Equal(t, CodeInternalError, err.Code())
	assert.Equal(t, "resources/read", err.Context().Method)
	assert.Empty(t, err.Context().RequestID)
	assert.Nil(t, WithRequestContext(nil, "x", 1))
}

func TestJSONTypeName(t *testing.T) {
	assert.Equal(t, "null", JSONTypeName(nil))
	assert.Equal(t, "number", JSONTypeName(1.5))
	assert.Equal(t, "boolean", JSONTypeName(true))
	assert.Equal(t, "object", JSONTypeName(map[string]interface{}{}))
	assert.Equal(t, "array", JSONTypeName([]interface{}{}))
}

func TestInvalidParamsUsesInvalidRequestCode(t *testing.T) {
	cause := stderrors.New("json: cannot unmarshal array")
	err := InvalidParams("tools/call", cause)

	assert.Equal(t, CodeInvalidRequest, err.Code())
	assert.Equal(t, "Invalid params for tools/call: json: cannot unmarshal array", err.Message())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, protocol.InvalidRequest, ToJSONRPCError(err).Code)
}
