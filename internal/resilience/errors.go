// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/sony/gobreaker/v2"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Busy resources, interrupted calls
	ErrorTypePermanent                    // Permissions, cancelled work
	ErrorTypeTimeout                      // Deadlines
	ErrorTypeServiceUnavailable           // Collaborator circuit open
	ErrorTypeInvalidInput                 // Collaborator rejected its input
	ErrorTypeResourceNotFound             // Missing binaries or files
)

func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnknown:
		return "Unknown"
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeTimeout:
		return "Timeout"
	case ErrorTypeServiceUnavailable:
		return "ServiceUnavailable"
	case ErrorTypeInvalidInput:
		return "InvalidInput"
	case ErrorTypeResourceNotFound:
		return "ResourceNotFound"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(et))
	}
}

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

func classified(err error, t ErrorType, label string, retryable bool) *ClassifiedError {
	return &ClassifiedError{
		Original:  err,
		Type:      t,
		Message:   fmt.Sprintf("%s: %v", label, err),
		Retryable: retryable,
	}
}

// ClassifyError categorizes an error from a collaborator or the filesystem
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var already *ClassifiedError
	if errors.As(err, &already) {
		return already
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return classified(err, ErrorTypeTimeout, "Timeout error", true)

	case errors.Is(err, context.Canceled):
		return classified(err, ErrorTypePermanent, "Cancelled", false)

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return classified(err, ErrorTypeServiceUnavailable, "Service unavailable", false)

	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return classified(err, ErrorTypeResourceNotFound, "Resource not found", false)

	case errors.Is(err, fs.ErrPermission):
		return classified(err, ErrorTypePermanent, "Permission denied", false)

	case isTransientSyscall(err):
		return classified(err, ErrorTypeTransient, "Temporary failure", true)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return classified(err, ErrorTypeInvalidInput, "Collaborator rejected input", false)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return classified(err, ErrorTypeTimeout, "Timeout error", true)
	case strings.Contains(errStr, "temporarily unavailable") || strings.Contains(errStr, "too many open files"):
		return classified(err, ErrorTypeTransient, "Temporary failure", true)
	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "does not exist"):
		return classified(err, ErrorTypeResourceNotFound, "Resource not found", false)
	case strings.Contains(errStr, "invalid") || strings.Contains(errStr, "malformed") ||
		strings.Contains(errStr, "unsupported"):
		return classified(err, ErrorTypeInvalidInput, "Invalid input", false)
	}

	return classified(err, ErrorTypeUnknown, "Unknown error", false)
}

func isTransientSyscall(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EINTR) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.EBUSY)
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// IsTimeout reports whether err is classified as a timeout
func IsTimeout(err error) bool {
	return err != nil && ClassifyError(err).Type == ErrorTypeTimeout
}
