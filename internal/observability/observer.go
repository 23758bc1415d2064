// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Observable is implemented by components that report through an observer
type Observable interface {
	// GetComponentName returns the component identifier
	GetComponentName() string
}

// StandardObserver implements observability for all components
type StandardObserver struct {
	level  ObservabilityLevel
	writer io.Writer
	mu     sync.Mutex
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityInfo    ObservabilityLevel = 2
	ObservabilityDebug   ObservabilityLevel = 3
)

// Severity of a single event
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
	SeverityInfo  Severity = "info"
	SeverityDebug Severity = "debug"
)

// ParseLevel maps a level name to an ObservabilityLevel. Unknown names give info.
func ParseLevel(name string) ObservabilityLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "off", "none", "quiet":
		return ObservabilityOff
	case "metrics", "warn", "error":
		return ObservabilityMetrics
	case "debug", "verbose":
		return ObservabilityDebug
	default:
		return ObservabilityInfo
	}
}

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	if writer == nil {
		writer = io.Discard
	}
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// Nop returns an observer that drops everything
func Nop() *StandardObserver {
	return NewStandardObserver(ObservabilityOff, io.Discard)
}

// Level returns the configured level
func (o *StandardObserver) Level() ObservabilityLevel {
	if o == nil {
		return ObservabilityOff
	}
	return o.level
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, filePath string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			FilePath:   filePath,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}
		if !success {
			data.Severity = SeverityWarn
			if msg, ok := metadata["error"].(string); ok {
				data.Error = msg
			}
		}

		o.LogOperation(data)
	}
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}
	if data.Severity == "" {
		data.Severity = SeverityInfo
	}
	if !o.enabled(data.Severity) {
		return
	}

	data.RequestID = "req-" + ulid.Make().String()
	data.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	o.mu.Lock()
	defer o.mu.Unlock()
	_ = json.NewEncoder(o.writer).Encode(data)
}

// Log records a single event for a component
func (o *StandardObserver) Log(severity Severity, component, event string, fields map[string]interface{}) {
	data := StandardObservabilityData{
		Component: component,
		Operation: event,
		Severity:  severity,
		Success:   severity != SeverityError,
		Metadata:  fields,
	}
	if msg, ok := fields["error"].(string); ok {
		data.Error = msg
	}
	if path, ok := fields["file_path"].(string); ok {
		data.FilePath = path
	}
	o.LogOperation(data)
}

func (o *StandardObserver) Info(component, event string, fields map[string]interface{}) {
	o.Log(SeverityInfo, component, event, fields)
}

func (o *StandardObserver) Warn(component, event string, fields map[string]interface{}) {
	o.Log(SeverityWarn, component, event, fields)
}

func (o *StandardObserver) Error(component, event string, fields map[string]interface{}) {
	o.Log(SeverityError, component, event, fields)
}

func (o *StandardObserver) Debug(component, event string, fields map[string]interface{}) {
	o.Log(SeverityDebug, component, event, fields)
}

func (o *StandardObserver) enabled(severity Severity) bool {
	switch severity {
	case SeverityError, SeverityWarn:
		return o.level >= ObservabilityMetrics
	case SeverityInfo:
		return o.level >= ObservabilityInfo
	default:
		return o.level >= ObservabilityDebug
	}
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Timestamp  string                 `json:"ts"`
	Severity   Severity               `json:"level"`
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	RequestID  string                 `json:"request_id"`
	FilePath   string                 `json:"file_path,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	MatchCount int                    `json:"match_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
