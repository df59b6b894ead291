package errors

import (
	"errors"
	"fmt"
	"time"
)

// RemoteApiError is returned when the platform answers with a non-2xx status
// or a body that cannot be decoded.
type RemoteApiError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	err        error
}

func NewRemoteApiError(method, url string, statusCode int, body string) *RemoteApiError {
	return &RemoteApiError{Method: method, URL: url, StatusCode: statusCode, Body: body}
}

func NewMalformedResponseError(method, url string, statusCode int, err error) *RemoteApiError {
	return &RemoteApiError{Method: method, URL: url, StatusCode: statusCode, err: err}
}

func NewRemoteApiErrorWithCause(method, url string, err error) *RemoteApiError {
	return &RemoteApiError{Method: method, URL: url, err: err}
}

func (e *RemoteApiError) Error() string {
	switch {
	case e.err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s %s: malformed response (status %d): %v", e.Method, e.URL, e.StatusCode, e.err)
	case e.err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.err)
	case e.Body != "":
		return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
}

func (e *RemoteApiError) Unwrap() error {
	return e.err
}

func IsRemoteApiError(err error) bool {
	var e *RemoteApiError
	return errors.As(err, &e)
}

// ResourceNotFoundError is returned when a lookup finds nothing. It is kept
// distinct from RemoteApiError so callers can tell "absent" from "broken".
type ResourceNotFoundError struct {
	Kind string
	ID   string
}

func NewResourceNotFoundError(kind, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Kind: kind, ID: id}
}

func NewWorkspaceNotFoundError(name, owner string) *ResourceNotFoundError {
	return NewResourceNotFoundError("workspace", fmt.Sprintf("%s/%s", owner, name))
}

func NewUserNotFoundError(id string) *ResourceNotFoundError {
	return NewResourceNotFoundError("user", id)
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

// TimeoutError is returned when a readiness poll or a bounded operation
// exceeds its deadline.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
	err       error
}

func NewTimeoutError(operation string, timeout time.Duration, last error) *TimeoutError {
	return &TimeoutError{Operation: operation, Timeout: timeout, err: last}
}

func (e *TimeoutError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s did not complete within %s: %v", e.Operation, e.Timeout, e.err)
	}
	return fmt.Sprintf("%s did not complete within %s", e.Operation, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.err
}

func IsTimeoutError(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}

// ProcessExecutionError is returned when a shell command exits non-zero or is
// killed by its timeout.
type ProcessExecutionError struct {
	Command  string
	ExitCode int
	Stderr   string
	err      error
}

func NewProcessExecutionError(command string, exitCode int, stderr string, err error) *ProcessExecutionError {
	return &ProcessExecutionError{Command: command, ExitCode: exitCode, Stderr: stderr, err: err}
}

func (e *ProcessExecutionError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.err != nil {
		msg += fmt.Sprintf(" (%v)", e.err)
	}
	return msg
}

func (e *ProcessExecutionError) Unwrap() error {
	return e.err
}

func IsProcessExecutionError(err error) bool {
	var e *ProcessExecutionError
	return errors.As(err, &e)
}

// ConfigurationError is returned when required settings are missing or
// invalid. Providers raise it at construction time.
type ConfigurationError struct {
	Field  string
	Reason string
}

func NewConfigurationError(field, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: reason}
}

func NewMissingCredentialsError(field string) *ConfigurationError {
	return NewConfigurationError(field, "admin test user credentials are unknown")
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %q: %s", e.Field, e.Reason)
}

func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// DuplicateResourceError is returned when a resource with the same identity
// already exists.
type DuplicateResourceError struct {
	Kind string
	ID   string
}

func NewDuplicateResourceError(kind, id string) *DuplicateResourceError {
	return &DuplicateResourceError{Kind: kind, ID: id}
}

func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.ID)
}

func IsDuplicateResourceError(err error) bool {
	var e *DuplicateResourceError
	return errors.As(err, &e)
}
