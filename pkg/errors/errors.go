package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so that clones still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrConfigRequired     = New("CONFIG_REQUIRED", http.StatusPreconditionFailed, "API configuration required")
	ErrNoCoursesReachable = New("NO_COURSES_REACHABLE", http.StatusBadGateway, "no course assignments could be fetched")
	ErrRefreshInProgress  = New("REFRESH_IN_PROGRESS", http.StatusConflict, "a refresh is already running")
)

// Codes reported for upstream and transport failures.
const (
	CodeUpstream  = "UPSTREAM_ERROR"
	CodeTransport = "TRANSPORT_ERROR"
)

// UpstreamError reports a non-success status returned by the Canvas API.
type UpstreamError struct {
	Status     int
	StatusText string
	Body       string
}

// NewUpstreamError builds an UpstreamError, deriving the status text when absent.
func NewUpstreamError(status int, statusText, body string) *UpstreamError {
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	return &UpstreamError{Status: status, StatusText: statusText, Body: body}
}

// Message is the short form without the response body.
func (e *UpstreamError) Message() string {
	return fmt.Sprintf("Canvas API Error: %d %s", e.Status, e.StatusText)
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return e.Message()
	}
	return fmt.Sprintf("%s - %s", e.Message(), e.Body)
}

// TransportError reports a network-level failure (DNS, TLS, reset, timeout).
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

var blockedMarkers = []string{"CORS", "NetworkError", "Failed to fetch", "blocked"}

// LooksBlocked reports whether the failure reads like a browser or proxy restriction rather than a
// genuine connectivity failure. The transport layer does not expose a structured cause for these.
func (e *TransportError) LooksBlocked() bool {
	msg := e.Error()
	for _, marker := range blockedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// PartialFetchError records a single course whose assignments could not be fetched.
type PartialFetchError struct {
	CourseID   int64
	CourseName string
	Err        error
}

func (e *PartialFetchError) Error() string {
	return fmt.Sprintf("fetch assignments for course %d (%s): %v", e.CourseID, e.CourseName, e.Err)
}

func (e *PartialFetchError) Unwrap() error {
	return e.Err
}

// PageLimitError reports a listing that still had a next page when the page cap was reached.
// The items read so far are returned alongside it.
type PageLimitError struct {
	Resource string
	Pages    int
}

func (e *PageLimitError) Error() string {
	return fmt.Sprintf("%s listing truncated after %d pages", e.Resource, e.Pages)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		status := upstream.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return Wrap(err, CodeUpstream, status, upstream.Message())
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return Wrap(err, CodeTransport, http.StatusBadGateway, "failed to reach Canvas API")
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
