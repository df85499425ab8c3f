package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents network failures, timeouts and non-success HTTP statuses
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeParse represents page or JSON structure that prevents any extraction
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeRateLimit represents a site that asked us to back off
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeStoreRead represents a failed read of a sent record
	ErrorTypeStoreRead ErrorType = "store_read"
	// ErrorTypeStoreWrite represents a failed write of a sent record
	ErrorTypeStoreWrite ErrorType = "store_write"
	// ErrorTypeDelivery represents a messaging API failure
	ErrorTypeDelivery ErrorType = "delivery"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// EventError represents an error raised while collecting or notifying events
type EventError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *EventError) Error() string {
	if e.Source == "" {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s - %v", e.Type, e.Message, e.Err)
		}
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *EventError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the next scheduled run is likely to succeed
// without operator action.
func (e *EventError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch, ErrorTypeStoreRead, ErrorTypeStoreWrite, ErrorTypeDelivery:
		return true
	case ErrorTypeRateLimit:
		return false
	case ErrorTypeParse:
		return false
	default:
		return false
	}
}

// IsType reports whether any error in err's chain is an EventError of type t.
func IsType(err error, t ErrorType) bool {
	var ee *EventError
	if stderrors.As(err, &ee) {
		return ee.Type == t
	}
	return false
}

// New creates a new EventError
func New(errType ErrorType, source, message string, err error) *EventError {
	return &EventError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a new fetch error
func NewFetch(source, message string, err error) *EventError {
	return New(ErrorTypeFetch, source, message, err)
}

// NewParse creates a new parse error
func NewParse(source, message string, err error) *EventError {
	return New(ErrorTypeParse, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *EventError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewStoreRead creates a new store read error
func NewStoreRead(key string, err error) *EventError {
	return New(ErrorTypeStoreRead, key, "failed to read sent record", err)
}

// NewStoreWrite creates a new store write error
func NewStoreWrite(key string, err error) *EventError {
	return New(ErrorTypeStoreWrite, key, "failed to write sent record", err)
}

// NewDelivery creates a new delivery error
func NewDelivery(message string, err error) *EventError {
	return New(ErrorTypeDelivery, "telegram", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *EventError {
	return New(ErrorTypeConfiguration, "", message, err)
}
