package errors

import (
	"fmt"
	"time"
)

// TransportErrorData contains structured data for transport-related errors
type TransportErrorData struct {
	Transport string        `json:"transport"`
	Operation string        `json:"operation,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// TransportError creates a generic transport error
func TransportError(transport, operation string, cause error) MCPError {
	message := fmt.Sprintf("%s transport error", transport)
	if operation != "" {
		message = fmt.Sprintf("%s transport error during %s", transport, operation)
	}
	data := &TransportErrorData{Transport: transport, Operation: operation}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
		data.Reason = cause.Error()
	}

	return WrapError(cause, CodeTransportError, message, CategoryTransport, SeverityError).WithData(data)
}

// ConnectionLost reports that the peer went away while a request was pending
func ConnectionLost(transport string, cause error) MCPError {
	message := fmt.Sprintf("%s connection lost", transport)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}
	return WrapError(cause, CodeConnectionLost, message, CategoryTransport, SeverityError).
		WithData(&TransportErrorData{Transport: transport})
}

// ResponseTimeout reports a request whose response did not arrive in time
func ResponseTimeout(transport, requestID string, timeout time.Duration) MCPError {
	return NewError(
		CodeConnectionTimeout,
		fmt.Sprintf("Timed out after %s waiting for response to %s", timeout, requestID),
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{Transport: transport, Operation: "wait", Timeout: timeout})
}
