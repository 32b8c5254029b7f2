package errors

import (
	"fmt"
	"time"

	"github.com/ajitpratap0/mcp-memory-go/pkg/protocol"
)

// NormalizeToolError folds a tool failure into the error a peer receives.
// MethodNotFound and InvalidRequest returned by a handler keep their code.
// Everything else, validation and domain failures included, becomes an
// InternalError carrying the original message and wrapping the original error.
func NormalizeToolError(err error) MCPError {
	if err == nil {
		return nil
	}

	if mcpErr, ok := AsMCPError(err); ok {
		switch mcpErr.Code() {
		case CodeMethodNotFound, CodeInvalidRequest:
			return mcpErr
		}
	}

	return InternalError(messageOf(err), err)
}

// NormalizeResourceError folds a resource read failure. InvalidRequest
// passes through; any other failure becomes InternalError.
func NormalizeResourceError(err error) MCPError {
	if err == nil {
		return nil
	}

	if mcpErr, ok := AsMCPError(err); ok && mcpErr.Code() == CodeInvalidRequest {
		return mcpErr
	}

	return InternalError(messageOf(err), err)
}

// messageOf prefers the peer-facing message of a direct MCPError over
// Error(), which also carries details.
func messageOf(err error) string {
	if mcpErr, ok := err.(MCPError); ok {
		return mcpErr.Message()
	}
	return err.Error()
}

// ToJSONRPCError converts any error to a JSON-RPC error object
func ToJSONRPCError(err error) *protocol.Error {
	if err == nil {
		return nil
	}

	if mcpErr, ok := AsMCPError(err); ok {
		return &protocol.Error{
			Code:    protocol.ErrorCode(mcpErr.Code()),
			Message: mcpErr.Message(),
			Data:    mcpErr.Data(),
		}
	}

	return &protocol.Error{
		Code:    protocol.InternalError,
		Message: err.Error(),
	}
}

// ToJSONRPCResponse converts any error to a JSON-RPC error response
func ToJSONRPCResponse(err error, requestID interface{}) (*protocol.Response, error) {
	if err == nil {
		return nil, fmt.Errorf("cannot create error response from nil error")
	}

	rpcErr := ToJSONRPCError(err)
	return protocol.NewErrorResponse(requestID, rpcErr.Code, rpcErr.Message, rpcErr.Data), nil
}

// FromJSONRPCError converts a JSON-RPC error received from a peer to an MCPError
func FromJSONRPCError(rpcErr *protocol.Error) MCPError {
	if rpcErr == nil {
		return nil
	}

	code := int(rpcErr.Code)
	err := NewError(code, rpcErr.Message, GetErrorCodeCategory(code), GetErrorCodeSeverity(code))
	if rpcErr.Data != nil {
		err = err.WithData(rpcErr.Data)
	}
	return err
}

// WithRequestContext attaches request metadata to err, converting it to an MCPError if needed
func WithRequestContext(err error, method string, requestID interface{}) MCPError {
	if err == nil {
		return nil
	}

	mcpErr, ok := err.(MCPError)
	if !ok {
		mcpErr = InternalError(err.Error(), err)
	}

	ctx := &Context{Method: method, Timestamp: time.Now()}
	if requestID != nil {
		ctx.RequestID = fmt.Sprintf("%v", requestID)
	}
	if prev := mcpErr.Context(); prev != nil {
		ctx.Timestamp = prev.Timestamp
		ctx.Component = prev.Component
		ctx.Operation = prev.Operation
	}
	return mcpErr.WithContext(ctx)
}
