package errors

import (
	"fmt"
)

// RegistrationErrorData describes a rejected registration
type RegistrationErrorData struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// DomainError reports a business rule violated by a tool, such as a
// division by zero or an unparsable payload.
func DomainError(message string) MCPError {
	return NewError(CodeOperationFailed, message, CategoryDomain, SeverityError)
}

// DomainErrorf creates a domain error with a formatted message
func DomainErrorf(format string, args ...interface{}) MCPError {
	return NewErrorf(CodeOperationFailed, CategoryDomain, SeverityError, format, args...)
}

// DuplicateName reports a tool registered twice
func DuplicateName(name string) MCPError {
	return NewError(
		CodeResourceConflict,
		fmt.Sprintf("Tool '%s' is already registered", name),
		CategoryConflict,
		SeverityError,
	).WithData(&RegistrationErrorData{Kind: "tool", ID: name})
}

// DuplicateURI reports a resource registered twice
func DuplicateURI(uri string) MCPError {
	return NewError(
		CodeResourceConflict,
		fmt.Sprintf("Resource '%s' is already registered", uri),
		CategoryConflict,
		SeverityError,
	).WithData(&RegistrationErrorData{Kind: "resource", ID: uri})
}
