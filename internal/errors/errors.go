// Package errors provides the error taxonomy for candle retrieval.
// Every failure is classified into one of a small set of kinds and is fatal to the
// call that produced it: nothing in this module retries automatically.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the classification of an error
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"     // Malformed ticker, date, granularity or range
	ErrorTypeUnknownTicker ErrorType = "unknown_ticker" // Ticker absent from the product catalog
	ErrorTypeRequest       ErrorType = "request"        // Remote rejected the request as malformed
	ErrorTypeConnection    ErrorType = "connection"     // Remote unreachable or refusing service
	ErrorTypeUnknown       ErrorType = "unknown"        // Any unclassified non-success response
)

// Severity represents the severity level of an error
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is against any ClassifiedError of the same type.
var (
	ErrRequest    = &ClassifiedError{Type: ErrorTypeRequest}
	ErrConnection = &ClassifiedError{Type: ErrorTypeConnection}
	ErrUnknown    = &ClassifiedError{Type: ErrorTypeUnknown}
)

// ClassifiedError is a remote failure annotated with the request that caused it.
type ClassifiedError struct {
	Err        error     `json:"error"`
	Type       ErrorType `json:"type"`
	Severity   Severity  `json:"severity"`
	Component  string    `json:"component"`
	Operation  string    `json:"operation"`
	StatusCode int       `json:"status_code,omitempty"`
	Request    string    `json:"request,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	msg := fmt.Sprintf("[%s/%s] %s", ce.Component, ce.Type, ce.Operation)
	if ce.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", ce.StatusCode)
	}
	if ce.Request != "" {
		msg += fmt.Sprintf(", request: %s", ce.Request)
	}
	if ce.Err != nil {
		msg += fmt.Sprintf(": %v", ce.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Is reports whether target is a ClassifiedError of the same type
func (ce *ClassifiedError) Is(target error) bool {
	if t, ok := target.(*ClassifiedError); ok {
		return ce.Type == t.Type
	}
	return false
}

// StatusClass maps an HTTP status code onto the error taxonomy.
// The boolean is true for success codes, in which case the type is empty.
func StatusClass(code int) (ErrorType, bool) {
	switch {
	case code >= 200 && code <= 204:
		return "", true
	case code == http.StatusBadRequest, code == http.StatusUnauthorized, code == http.StatusNotFound:
		return ErrorTypeRequest, false
	case code == http.StatusForbidden, code == http.StatusInternalServerError, code == http.StatusNotImplemented:
		return ErrorTypeConnection, false
	default:
		return ErrorTypeUnknown, false
	}
}

// ClassifyStatus builds the error for a non-success HTTP response. It returns nil for
// success codes. body is kept as the wrapped cause so the remote message is surfaced.
func ClassifyStatus(code int, component, operation, request, body string) error {
	errorType, ok := StatusClass(code)
	if ok {
		return nil
	}

	var cause error
	switch errorType {
	case ErrorTypeRequest:
		cause = fmt.Errorf("malformed request to the Coinbase API")
	case ErrorTypeConnection:
		cause = fmt.Errorf("could not connect to the Coinbase API")
	default:
		cause = fmt.Errorf("error connecting to the Coinbase API")
	}
	if body != "" {
		cause = fmt.Errorf("%w: %s", cause, body)
	}

	return &ClassifiedError{
		Err:        cause,
		Type:       errorType,
		Severity:   severityFor(errorType),
		Component:  component,
		Operation:  operation,
		StatusCode: code,
		Request:    request,
		Timestamp:  time.Now(),
	}
}

// NewConnectionError classifies a transport failure where no response was received.
func NewConnectionError(err error, component, operation, request string) error {
	return &ClassifiedError{
		Err:       err,
		Type:      ErrorTypeConnection,
		Severity:  severityFor(ErrorTypeConnection),
		Component: component,
		Operation: operation,
		Request:   request,
		Timestamp: time.Now(),
	}
}

// NewUnknownError classifies a success response that could not be understood.
func NewUnknownError(err error, component, operation, request string) error {
	return &ClassifiedError{
		Err:       err,
		Type:      ErrorTypeUnknown,
		Severity:  severityFor(ErrorTypeUnknown),
		Component: component,
		Operation: operation,
		Request:   request,
		Timestamp: time.Now(),
	}
}

func severityFor(errorType ErrorType) Severity {
	switch errorType {
	case ErrorTypeConnection:
		return SeverityHigh
	case ErrorTypeRequest, ErrorTypeValidation, ErrorTypeUnknownTicker:
		return SeverityMedium
	default:
		return SeverityMedium
	}
}

// ValidationReason narrows a ValidationError.
type ValidationReason string

const (
	ReasonFormat      ValidationReason = "format"      // unparseable input
	ReasonRange       ValidationReason = "range"       // start not strictly before end
	ReasonGranularity ValidationReason = "granularity" // unsupported candle size
	ReasonTicker      ValidationReason = "ticker"      // empty or malformed ticker
)

// ValidationError reports bad caller input detected before any network call.
type ValidationError struct {
	Field   string           `json:"field"`
	Reason  ValidationReason `json:"reason"`
	Message string           `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// NewFormatError reports a value that does not match its expected format.
func NewFormatError(field, message string) error {
	return &ValidationError{Field: field, Reason: ReasonFormat, Message: message}
}

// NewInvalidRangeError reports a time range whose start is not before its end.
func NewInvalidRangeError(message string) error {
	return &ValidationError{Field: "end", Reason: ReasonRange, Message: message}
}

// NewGranularityError reports an unsupported granularity.
func NewGranularityError(message string) error {
	return &ValidationError{Field: "granularity", Reason: ReasonGranularity, Message: message}
}

// UnknownTickerError reports a ticker that is not listed in the product catalog.
type UnknownTickerError struct {
	Ticker string `json:"ticker"`
}

// Error implements the error interface.
func (e *UnknownTickerError) Error() string {
	return fmt.Sprintf("ticker %q not available through the Coinbase API", e.Ticker)
}

// IsValidationError reports whether err contains a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvalidRange reports whether err is a ValidationError about the time range.
func IsInvalidRange(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Reason == ReasonRange
}

// IsUnknownTicker reports whether err contains an UnknownTickerError.
func IsUnknownTicker(err error) bool {
	var ute *UnknownTickerError
	return errors.As(err, &ute)
}

// IsRequestError reports whether err is a classified request error.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrRequest)
}

// IsConnectionError reports whether err is a classified connection error.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsUnknownError reports whether err is a classified unknown error.
func IsUnknownError(err error) bool {
	return errors.Is(err, ErrUnknown)
}

// GetErrorType extracts the error type from anywhere in err's chain.
func GetErrorType(err error) ErrorType {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Type
	}
	if IsValidationError(err) {
		return ErrorTypeValidation
	}
	if IsUnknownTicker(err) {
		return ErrorTypeUnknownTicker
	}
	return ErrorTypeUnknown
}

// GetSeverity extracts the severity from a classified error
func GetSeverity(err error) Severity {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Severity
	}
	return SeverityMedium
}
