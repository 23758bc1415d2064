// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RedactionErrorType defines the type of redaction error
type RedactionErrorType int

const (
	// ErrorDocumentProcessing indicates a document processing failure
	ErrorDocumentProcessing RedactionErrorType = iota

	// ErrorFileValidation indicates a missing, unreadable or unsupported input file
	ErrorFileValidation

	// ErrorMethodNotSupported indicates a strategy the file type does not offer
	ErrorMethodNotSupported

	// ErrorEncryptionKey indicates an absent or malformed encryption key
	ErrorEncryptionKey

	// ErrorOCRNotAvailable indicates the OCR engine cannot be used
	ErrorOCRNotAvailable

	// ErrorFormatPreservation indicates styled text could not be rewritten
	ErrorFormatPreservation

	// ErrorResourceNotFound indicates a missing task or output
	ErrorResourceNotFound

	// ErrorConfiguration indicates a configuration error
	ErrorConfiguration

	// ErrorProcessingTimeout indicates a file exceeded its processing deadline
	ErrorProcessingTimeout

	// ErrorBatchProcessing indicates that some files of a batch failed
	ErrorBatchProcessing

	// ErrorInvalidOption indicates a malformed strategy parameter
	ErrorInvalidOption
)

// String returns the string representation of the error type
func (ret RedactionErrorType) String() string {
	switch ret {
	case ErrorDocumentProcessing:
		return "document_processing"
	case ErrorFileValidation:
		return "file_validation"
	case ErrorMethodNotSupported:
		return "method_not_supported"
	case ErrorEncryptionKey:
		return "encryption_key"
	case ErrorOCRNotAvailable:
		return "ocr_not_available"
	case ErrorFormatPreservation:
		return "format_preservation"
	case ErrorResourceNotFound:
		return "resource_not_found"
	case ErrorConfiguration:
		return "configuration"
	case ErrorProcessingTimeout:
		return "processing_timeout"
	case ErrorBatchProcessing:
		return "batch_processing"
	case ErrorInvalidOption:
		return "invalid_option"
	default:
		return "unknown"
	}
}

// RedactionError represents an error that occurred during anonymization
type RedactionError struct {
	// Type is the type of error
	Type RedactionErrorType

	// Message is the error message
	Message string

	// FilePath is the path to the file being processed when the error occurred
	FilePath string

	// Component is the component that generated the error
	Component string

	// Recoverable indicates whether a batch can continue past the error
	Recoverable bool

	// Timestamp is when the error occurred
	Timestamp time.Time

	// Cause is the underlying error that caused this error
	Cause error
}

// Error implements the error interface
func (re *RedactionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", re.Type.String(), re.Message)
	if re.FilePath != "" {
		fmt.Fprintf(&b, " (file: %s)", re.FilePath)
	}
	if re.Cause != nil {
		fmt.Fprintf(&b, ": %s", re.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error unwrapping
func (re *RedactionError) Unwrap() error {
	return re.Cause
}

// NewRedactionError creates a new RedactionError
func NewRedactionError(errorType RedactionErrorType, message, filePath, component string, cause error) *RedactionError {
	return &RedactionError{
		Type:        errorType,
		Message:     message,
		FilePath:    filePath,
		Component:   component,
		Recoverable: isRecoverable(errorType),
		Timestamp:   time.Now(),
		Cause:       cause,
	}
}

func isRecoverable(errorType RedactionErrorType) bool {
	switch errorType {
	case ErrorConfiguration, ErrorOCRNotAvailable:
		return false
	default:
		return true
	}
}

// NewFileValidationError reports an unusable input file
func NewFileValidationError(filePath, format string, args ...interface{}) *RedactionError {
	return NewRedactionError(ErrorFileValidation, fmt.Sprintf(format, args...), filePath, "validation", nil)
}

// NewMethodNotSupportedError reports a strategy the file type does not offer
func NewMethodNotSupportedError(ft FileType, strategy Strategy) *RedactionError {
	return NewRedactionError(ErrorMethodNotSupported,
		fmt.Sprintf("unsupported method %q for %s, supported methods: %s",
			strategy, ft, strings.Join(ft.MethodNames(), ", ")),
		"", "validation", nil)
}

// NewEncryptionKeyError reports an absent or malformed key
func NewEncryptionKeyError(message string) *RedactionError {
	return NewRedactionError(ErrorEncryptionKey, message, "", "validation", nil)
}

// TypeOf returns the taxonomy type of err and whether err carries one
func TypeOf(err error) (RedactionErrorType, bool) {
	var re *RedactionError
	if errors.As(err, &re) {
		return re.Type, true
	}
	var be *BatchError
	if errors.As(err, &be) {
		return ErrorBatchProcessing, true
	}
	return 0, false
}

// IsType reports whether err, or an error it wraps, has the given type
func IsType(err error, errorType RedactionErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errorType
}

// IsValidation reports whether err was raised before any processing started
func IsValidation(err error) bool {
	t, ok := TypeOf(err)
	if !ok {
		return false
	}
	switch t {
	case ErrorFileValidation, ErrorMethodNotSupported, ErrorEncryptionKey, ErrorInvalidOption:
		return true
	default:
		return false
	}
}

// BatchError reports the inputs that failed in a batch
type BatchError struct {
	Message     string
	FailedFiles []string
}

// Error implements the error interface
func (be *BatchError) Error() string {
	return fmt.Sprintf("[%s] %s (%d failed)", ErrorBatchProcessing.String(), be.Message, len(be.FailedFiles))
}
