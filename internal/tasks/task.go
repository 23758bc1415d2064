// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package tasks tracks asynchronous anonymization requests from creation to
// completion.
package tasks

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"
)

// Status is the lifecycle state of a task
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskNotCompleted  = errors.New("task is not completed")
	ErrInvalidIndex      = errors.New("invalid file index")
	ErrOutputMissing     = errors.New("output file no longer exists")
	ErrInvalidTransition = errors.New("invalid task state transition")
)

// Request describes the work a task was created for
type Request struct {
	// ID, when set, is used as the task id instead of a generated one
	ID string

	Inputs            []string
	OriginalFilenames []string
	FileType          string
	Method            string

	// Batch selects the multi-file runner even for a single input
	Batch bool
}

// Task is one tracked request. Fields are only changed through the
// transition methods, under the task's own lock.
type Task struct {
	mu sync.RWMutex

	id                string
	status            Status
	progress          int
	message           string
	inputs            []string
	originalFilenames []string
	outputs           []string
	fileType          string
	method            string
	batch             bool
	scheduled         bool
	startTime         time.Time
	endTime           time.Time
	lastError         string
}

func newTask(id string, req Request, now time.Time) *Task {
	return &Task{
		id:                id,
		status:            StatusPending,
		inputs:            append([]string(nil), req.Inputs...),
		originalFilenames: append([]string(nil), req.OriginalFilenames...),
		fileType:          req.FileType,
		method:            req.Method,
		batch:             req.Batch,
		startTime:         now,
	}
}

// ID returns the task identifier
func (t *Task) ID() string {
	return t.id
}

func (t *Task) start(progress int, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.status, StatusProcessing)
	}
	t.status = StatusProcessing
	t.progress = progress
	t.message = message
	return nil
}

// advance raises progress; it never lowers it
func (t *Task) advance(progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusProcessing {
		return
	}
	if progress > t.progress {
		t.progress = min(progress, 99)
	}
	if message != "" {
		t.message = message
	}
}

func (t *Task) addOutput(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outputs = append(t.outputs, path)
}

func (t *Task) complete(message string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.status, StatusCompleted)
	}
	t.status = StatusCompleted
	t.progress = 100
	t.message = message
	t.endTime = now
	return nil
}

func (t *Task) fail(message, lastError string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.status, StatusFailed)
	}
	t.status = StatusFailed
	t.message = message
	t.lastError = lastError
	t.endTime = now
	return nil
}

// Snapshot is a consistent copy of a task's state
type Snapshot struct {
	TaskID            string   `json:"task_id"`
	Status            Status   `json:"status"`
	Progress          int      `json:"progress"`
	Message           string   `json:"message"`
	InputFiles        []string `json:"input_files"`
	OriginalFilenames []string `json:"original_filenames"`
	TotalFiles        int      `json:"total_files"`
	OutputFilesCount  int      `json:"output_files_count"`
	Method            string   `json:"method"`
	FileType          string   `json:"file_type"`
	StartTime         float64  `json:"start_time"`
	EndTime           *float64 `json:"end_time,omitempty"`
	Duration          *float64 `json:"duration,omitempty"`
	Error             string   `json:"error,omitempty"`
	DownloadURLs      []string `json:"download_urls,omitempty"`
	OutputFilenames   []string `json:"output_filenames,omitempty"`
}

// Snapshot copies the task's current state
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		TaskID:            t.id,
		Status:            t.status,
		Progress:          t.progress,
		Message:           t.message,
		InputFiles:        append([]string{}, t.inputs...),
		OriginalFilenames: append([]string{}, t.originalFilenames...),
		TotalFiles:        len(t.inputs),
		OutputFilesCount:  len(t.outputs),
		Method:            t.method,
		FileType:          t.fileType,
		StartTime:         unixSeconds(t.startTime),
		Error:             t.lastError,
	}

	if !t.endTime.IsZero() {
		end := unixSeconds(t.endTime)
		duration := math.Round(t.endTime.Sub(t.startTime).Seconds()*100) / 100
		s.EndTime = &end
		s.Duration = &duration
	}

	if t.status == StatusCompleted && len(t.outputs) > 0 {
		for i, out := range t.outputs {
			s.DownloadURLs = append(s.DownloadURLs, fmt.Sprintf("/api/download/%s/%d", t.id, i))
			s.OutputFilenames = append(s.OutputFilenames, filepath.Base(out))
		}
	}
	return s
}

func (t *Task) output(index int) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.status != StatusCompleted {
		return "", ErrTaskNotCompleted
	}
	if index < 0 || index >= len(t.outputs) {
		return "", ErrInvalidIndex
	}
	return t.outputs[index], nil
}

// expired reports whether the task finished before cutoff
func (t *Task) expired(cutoff time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.IsTerminal() && !t.endTime.IsZero() && t.endTime.Before(cutoff)
}

func (t *Task) inputFiles() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.inputs...)
}

func unixSeconds(ts time.Time) float64 {
	return float64(ts.UnixNano()) / float64(time.Second)
}
