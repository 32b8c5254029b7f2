package errors

import (
	"fmt"
)

// InvalidRequest creates an error for requests the server cannot act on.
// A tool handler may return it to reject its input without it being
// folded into InternalError.
func InvalidRequest(format string, args ...interface{}) MCPError {
	return NewErrorf(CodeInvalidRequest, CategoryProtocol, SeverityError, format, args...)
}

// MethodNotFound creates an error for unknown methods and tools
func MethodNotFound(format string, args ...interface{}) MCPError {
	return NewErrorf(CodeMethodNotFound, CategoryNotFound, SeverityError, format, args...)
}

// UnknownTool is the error call-tool returns for an unregistered name
func UnknownTool(name string) MCPError {
	return MethodNotFound("Unknown tool: %s", name)
}

// UnknownMethod is the error returned for a JSON-RPC method with no handler
func UnknownMethod(method string) MCPError {
	return MethodNotFound("Method not found: %s", method)
}

// InternalError wraps a failure raised while executing a request.
// message is what the peer sees; cause stays reachable through Unwrap.
func InternalError(message string, cause error) MCPError {
	return WrapError(cause, CodeInternalError, message, CategoryInternal, SeverityError)
}

// ParseError reports a message that could not be decoded
func ParseError(cause error) MCPError {
	err := WrapError(cause, CodeParseError, "Parse error", CategoryProtocol, SeverityError)
	if cause != nil {
		err = err.WithDetail(cause.Error())
	}
	return err
}

// InvalidParams reports params that could not be decoded into the method's shape.
// It carries CodeInvalidRequest: peers only distinguish InvalidRequest,
// MethodNotFound and InternalError.
func InvalidParams(method string, cause error) MCPError {
	msg := fmt.Sprintf("Invalid params for %s", method)
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, cause.Error())
	}
	return WrapError(cause, CodeInvalidRequest, msg, CategoryProtocol, SeverityError)
}
