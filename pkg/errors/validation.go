package errors

import (
	"fmt"
)

// ValidationKind classifies why an argument was rejected
type ValidationKind string

const (
	KindMissing      ValidationKind = "missing"
	KindTypeMismatch ValidationKind = "type_mismatch"
	KindNotInEnum    ValidationKind = "not_in_enum"
)

// ValidationErrorData contains structured data for validation errors
type ValidationErrorData struct {
	Field    string         `json:"field"`
	Kind     ValidationKind `json:"kind"`
	Expected string         `json:"expected,omitempty"`
	Got      string         `json:"got,omitempty"`
	Allowed  []string       `json:"allowed,omitempty"`
}

// ValidationError creates a validation error of the given kind
func ValidationError(kind ValidationKind, field, message string) MCPError {
	return NewError(CodeValidationError, message, CategoryValidation, SeverityError).
		WithData(&ValidationErrorData{Field: field, Kind: kind})
}

// MissingField reports a required field that was not supplied
func MissingField(field string) MCPError {
	return NewError(
		CodeValidationError,
		fmt.Sprintf("Missing required field: %s", field),
		CategoryValidation,
		SeverityError,
	).WithData(&ValidationErrorData{
		Field:    field,
		Kind:     KindMissing,
		Expected: "required value",
		Got:      "missing",
	})
}

// TypeMismatch reports a field whose value has the wrong JSON type
func TypeMismatch(field, expected string, value interface{}) MCPError {
	got := JSONTypeName(value)
	return NewError(
		CodeValidationError,
		fmt.Sprintf("Invalid type for field '%s': expected %s, got %s", field, expected, got),
		CategoryValidation,
		SeverityError,
	).WithData(&ValidationErrorData{
		Field:    field,
		Kind:     KindTypeMismatch,
		Expected: expected,
		Got:      got,
	})
}

// NotInEnum reports a value outside a field's allowed literals
func NotInEnum(field string, value interface{}, allowed []string) MCPError {
	return NewError(
		CodeValidationError,
		fmt.Sprintf("Invalid value for field '%s': must be one of %v", field, allowed),
		CategoryValidation,
		SeverityError,
	).WithData(&ValidationErrorData{
		Field:    field,
		Kind:     KindNotInEnum,
		Expected: fmt.Sprintf("one of %v", allowed),
		Got:      fmt.Sprintf("%v", value),
		Allowed:  allowed,
	})
}

// ValidationKindOf returns the kind of the first validation error in err's chain
func ValidationKindOf(err error) (ValidationKind, bool) {
	for e := err; e != nil; {
		if mcpErr, ok := e.(MCPError); ok {
			if data, ok := mcpErr.Data().(*ValidationErrorData); ok {
				return data.Kind, true
			}
			e = mcpErr.Unwrap()
			continue
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return "", false
}

// JSONTypeName names the JSON type of a decoded value
func JSONTypeName(value interface{}) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, int32:
		return "number"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	default:
		return fmt.Sprintf("%T", value)
	}
}
