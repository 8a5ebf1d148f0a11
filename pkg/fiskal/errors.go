// Package fiskal implements the domain model for Croatian fiscalization
// (Fiskalizacija): checksum-protected identifiers, invoice documents, the
// ZKI protection code and the CIS response-code catalog.
package fiskal

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed OIB, invoice number or tax item.
// Always a local error; never worth retrying.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: "fiskal: " + fmt.Sprintf(format, args...)}
}

// ConfigurationError reports missing or unparsable key/certificate material.
// Fatal at startup.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string { return e.msg }

// NewConfigurationError builds a ConfigurationError with the given message.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{msg: "fiskal: " + fmt.Sprintf(format, args...)}
}

// StructuralError reports a missing required document field or a violated
// variant invariant. Raised at serialization time, before any network call.
type StructuralError struct {
	msg string
}

func (e *StructuralError) Error() string { return e.msg }

func structuralErrorf(format string, args ...any) *StructuralError {
	return &StructuralError{msg: "fiskal: " + fmt.Sprintf(format, args...)}
}

// SignatureError reports a failed envelope signature verification. A trust
// failure: it must never be downgraded to a warning.
type SignatureError struct {
	// Element is the tag of the signed element that failed verification.
	Element string
	Cause   error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("fiskal: signature verification of %s failed: %v", e.Element, e.Cause)
}

func (e *SignatureError) Unwrap() error { return e.Cause }

// ResponseErrorDetail is a single decoded CIS error: a catalog code plus the
// human-readable message carried in the response.
type ResponseErrorDetail struct {
	Code    ResponseCode
	Message string
}

func (d ResponseErrorDetail) String() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// ResponseError aggregates the decoded error list of a CIS fault response.
// The caller inspects individual codes to decide remediation.
type ResponseError struct {
	Message string
	Details []ResponseErrorDetail
}

// NewResponseError wraps decoded details with the generic service message.
func NewResponseError(details []ResponseErrorDetail) *ResponseError {
	return &ResponseError{Message: "Service error", Details: details}
}

func (e *ResponseError) Error() string {
	codes := make([]string, len(e.Details))
	for i, d := range e.Details {
		codes[i] = string(d.Code)
	}
	return e.Message + ": " + strings.Join(codes, ",")
}
