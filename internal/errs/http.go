package errs

import (
	"net/http"
	"strings"
)

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "id", "error": "is required" }
type FieldError struct {
	// Field is the field name/key the error relates to (e.g. "id").
	Field string `json:"field"`

	// Error is the human-readable error message.
	Error string `json:"error"`
}

// HTTPError is the main custom error type for API responses.
//
// It is designed to be serialized directly to JSON.
// Fields:
//   - Code: machine-friendly error code (e.g. "NOT_FOUND").
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - Override: lets the error handler know the message is safe to show as-is.
//   - Errors: list of per-field errors (request validation).
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	// Errors holds field-level validation errors.
	Errors []FieldError `json:"errors,omitempty"`
}

// Error returns the Message, so printing/logging the error shows the message.
func (e *HTTPError) Error() string {
	return e.Message
}

// StatusCode converts an HTTP status into its UPPER_CASE code,
// e.g. 404 -> "NOT_FOUND".
func StatusCode(status int) string {
	return MakeUpperCaseWithUnderscores(http.StatusText(status))
}

// MakeUpperCaseWithUnderscores converts a string into an UPPER_CASE_WITH_UNDERSCORES format.
//
// Example:
//
//	"Bad Request" -> "BAD_REQUEST"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
