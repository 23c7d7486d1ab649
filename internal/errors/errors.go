// Package errors provides centralized error definitions and error handling utilities
// for polycephaly. It defines messenger and thread-registry sentinel errors, domain
// error types with context builders, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures of a specific subsystem:
//   - DeliveryError: an envelope could not be put onto a destination queue
//   - RoutingError: no destination queue could be resolved for an envelope
//   - CallbackError: a filter callback failed during dispatch
//   - ThreadError: a child thread operation failed
//
// # Usage
//
//	err := errors.NewDeliveryError("put timed out", errors.ErrQueueFull).
//	    WithSender("worker-a").
//	    WithRecipient("worker-b")
//
//	if errors.Is(err, errors.ErrQueueFull) { ... }
//
//	var delivery *errors.DeliveryError
//	if errors.As(err, &delivery) { ... }
//
// None of these errors ever escape as panics. Public messenger and registry
// operations return them, log them, or fold them into typed outcomes.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Queue-related sentinel errors
var (
	// ErrQueueFull indicates that a bounded put timed out on a full queue.
	ErrQueueFull = New("queue full")
	// ErrQueueClosed indicates that the queue no longer accepts or yields envelopes.
	ErrQueueClosed = New("queue closed")
	// ErrQueueNotFound indicates that no queue is registered under a name.
	ErrQueueNotFound = New("queue not found")
)

// Routing-related sentinel errors
var (
	// ErrUnroutable indicates that no destination could be resolved for a sender/recipient pair.
	ErrUnroutable = New("unroutable envelope")
	// ErrCallbackFailed indicates that a filter callback returned an error or panicked.
	ErrCallbackFailed = New("callback failed")
)

// Thread-related sentinel errors
var (
	// ErrThreadNotFound indicates that no thread is registered under a name.
	ErrThreadNotFound = New("thread not found")
	// ErrThreadActive indicates that a thread is still alive.
	ErrThreadActive = New("thread still active")
	// ErrThreadStarted indicates that a thread was already started once.
	ErrThreadStarted = New("thread already started")
	// ErrThreadPanicked indicates that a worker panicked and was recovered.
	ErrThreadPanicked = New("thread panicked")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PolycephalyError is the base interface for all domain errors in this module.
type PolycephalyError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed when attempted again.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// format renders "prefix [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// DeliveryError reports an envelope that could not be put onto its destination
// queue. Delivery is never retried internally, but the caller may retry.
//
// Example:
//
//	err := errors.NewDeliveryError("put timed out", errors.ErrQueueFull).
//	    WithSender("worker-a").WithRecipient("main").WithQueue("main")
//	fmt.Println(err) // "delivery error [sender=worker-a, recipient=main, queue=main]: put timed out: queue full"
type DeliveryError struct {
	baseError
	Sender    string
	Recipient string
	Queue     string
}

// NewDeliveryError creates a new DeliveryError.
func NewDeliveryError(message string, cause error) *DeliveryError {
	return &DeliveryError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: true,
		},
	}
}

// WithSender adds the sending process name to the error context.
func (e *DeliveryError) WithSender(name string) *DeliveryError {
	e.Sender = name
	return e
}

// WithRecipient adds the recipient process name to the error context.
func (e *DeliveryError) WithRecipient(name string) *DeliveryError {
	e.Recipient = name
	return e
}

// WithQueue adds the destination queue name to the error context.
func (e *DeliveryError) WithQueue(name string) *DeliveryError {
	e.Queue = name
	return e
}

// Error returns the formatted error message.
func (e *DeliveryError) Error() string {
	var parts []string
	if e.Sender != "" {
		parts = append(parts, fmt.Sprintf("sender=%s", e.Sender))
	}
	if e.Recipient != "" {
		parts = append(parts, fmt.Sprintf("recipient=%s", e.Recipient))
	}
	if e.Queue != "" {
		parts = append(parts, fmt.Sprintf("queue=%s", e.Queue))
	}
	return e.format("delivery error", parts)
}

// Is checks if this error matches the target.
func (e *DeliveryError) Is(target error) bool {
	if _, ok := target.(*DeliveryError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RoutingError reports a sender/recipient pair for which no destination queue
// could be resolved.
type RoutingError struct {
	baseError
	Sender    string
	Recipient string
}

// NewRoutingError creates a new RoutingError.
func NewRoutingError(message string, cause error) *RoutingError {
	return &RoutingError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithSender adds the sending process name to the error context.
func (e *RoutingError) WithSender(name string) *RoutingError {
	e.Sender = name
	return e
}

// WithRecipient adds the recipient process name to the error context.
func (e *RoutingError) WithRecipient(name string) *RoutingError {
	e.Recipient = name
	return e
}

// Error returns the formatted error message.
func (e *RoutingError) Error() string {
	var parts []string
	if e.Sender != "" {
		parts = append(parts, fmt.Sprintf("sender=%s", e.Sender))
	}
	if e.Recipient != "" {
		parts = append(parts, fmt.Sprintf("recipient=%s", e.Recipient))
	}
	return e.format("routing error", parts)
}

// Is checks if this error matches the target.
func (e *RoutingError) Is(target error) bool {
	if _, ok := target.(*RoutingError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CallbackError reports a failed filter callback. It is logged by the router and
// never returned from Mailman, so sibling callbacks keep running.
type CallbackError struct {
	baseError
	Process     string
	Route       string
	Filter      string
	FilterIndex int
}

// NewCallbackError creates a new CallbackError.
func NewCallbackError(message string, cause error) *CallbackError {
	return &CallbackError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
		FilterIndex: -1,
	}
}

// WithRoute adds the process and route whose filters were being dispatched.
func (e *CallbackError) WithRoute(process, route string) *CallbackError {
	e.Process = process
	e.Route = route
	return e
}

// WithFilter adds the filter index and name to the error context.
func (e *CallbackError) WithFilter(index int, name string) *CallbackError {
	e.FilterIndex = index
	e.Filter = name
	return e
}

// Error returns the formatted error message.
func (e *CallbackError) Error() string {
	var parts []string
	if e.Process != "" {
		parts = append(parts, fmt.Sprintf("process=%s", e.Process))
	}
	if e.Route != "" {
		parts = append(parts, fmt.Sprintf("route=%s", e.Route))
	}
	if e.FilterIndex >= 0 {
		parts = append(parts, fmt.Sprintf("filter=%d", e.FilterIndex))
	}
	if e.Filter != "" {
		parts = append(parts, fmt.Sprintf("callback=%s", e.Filter))
	}
	return e.format("callback error", parts)
}

// Is checks if this error matches the target.
func (e *CallbackError) Is(target error) bool {
	if _, ok := target.(*CallbackError); ok {
		return true
	}
	if target == ErrCallbackFailed {
		return true
	}
	return e.baseError.Is(target)
}

// ThreadError reports a failed child thread operation.
type ThreadError struct {
	baseError
	Owner  string
	Thread string
}

// NewThreadError creates a new ThreadError.
func NewThreadError(message string, cause error) *ThreadError {
	return &ThreadError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithOwner adds the owning process name to the error context.
func (e *ThreadError) WithOwner(name string) *ThreadError {
	e.Owner = name
	return e
}

// WithThread adds the thread name to the error context.
func (e *ThreadError) WithThread(name string) *ThreadError {
	e.Thread = name
	return e
}

// WithSeverity sets the error severity.
func (e *ThreadError) WithSeverity(s Severity) *ThreadError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ThreadError) Error() string {
	var parts []string
	if e.Owner != "" {
		parts = append(parts, fmt.Sprintf("owner=%s", e.Owner))
	}
	if e.Thread != "" {
		parts = append(parts, fmt.Sprintf("thread=%s", e.Thread))
	}
	return e.format("thread error", parts)
}

// Is checks if this error matches the target.
func (e *ThreadError) Is(target error) bool {
	if _, ok := target.(*ThreadError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient and the operation may
// succeed on retry. A full queue is the only retryable sentinel.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pErr PolycephalyError
	if As(err, &pErr) {
		return pErr.IsRetryable()
	}

	return Is(err, ErrQueueFull)
}

// GetSeverity returns the severity of an error.
// Unknown errors default to SeverityError; nil is SeverityDebug.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var pErr PolycephalyError
	if As(err, &pErr) {
		return pErr.Severity()
	}

	return SeverityError
}

// Wrap annotates err with a message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf annotates err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
