package errors

// JSON-RPC 2.0 standard error codes
const (
	// CodeParseError indicates invalid JSON was received
	CodeParseError int = -32700

	// CodeInvalidRequest indicates a malformed request or an unusable argument such as an
	// unsupported URI
	CodeInvalidRequest int = -32600

	// CodeMethodNotFound indicates the method or tool does not exist
	CodeMethodNotFound int = -32601

	// CodeInvalidParams indicates invalid method parameter(s)
	CodeInvalidParams int = -32602

	// CodeInternalError indicates a failure while executing a request
	CodeInternalError int = -32603
)

// Server-local error codes. These classify failures inside the process; the
// dispatcher folds them into one of the standard codes before they reach a peer.
const (
	// Registration errors
	CodeResourceConflict int = -32202 // Name or URI already registered

	// Operation errors
	CodeOperationFailed int = -32302 // Business rule violated by a tool

	// Transport errors
	CodeTransportError    int = -32500
	CodeConnectionLost    int = -32502
	CodeConnectionTimeout int = -32503

	// Validation errors
	CodeValidationError int = -32750
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received", CategoryProtocol, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid request", CategoryProtocol, SeverityError},
	CodeMethodNotFound: {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryNotFound, SeverityError},
	CodeInvalidParams:  {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryValidation, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal error", CategoryInternal, SeverityError},

	CodeResourceConflict: {CodeResourceConflict, "ResourceConflict", "Already registered", CategoryConflict, SeverityError},
	CodeOperationFailed:  {CodeOperationFailed, "DomainError", "Operation failed", CategoryDomain, SeverityError},

	CodeTransportError:    {CodeTransportError, "TransportError", "Transport error", CategoryTransport, SeverityError},
	CodeConnectionLost:    {CodeConnectionLost, "ConnectionLost", "Connection lost", CategoryTransport, SeverityError},
	CodeConnectionTimeout: {CodeConnectionTimeout, "ConnectionTimeout", "Connection timed out", CategoryTransport, SeverityError},

	CodeValidationError: {CodeValidationError, "ValidationError", "Validation error", CategoryValidation, SeverityError},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// GetErrorCodeCategory returns the category of an error code
func GetErrorCodeCategory(code int) Category {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Category
	}
	return CategoryInternal
}

// GetErrorCodeSeverity returns the severity of an error code
func GetErrorCodeSeverity(code int) Severity {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Severity
	}
	return SeverityError
}
