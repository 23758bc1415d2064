// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package anonymizer

import (
	"context"
	"sync"
	"time"

	"prikit/internal/parallel"
	"prikit/internal/redactors"
)

// FileResult is the outcome for one input of a batch
type FileResult struct {
	Input      string
	Output     string
	Redactions int
	Error      error
	Duration   time.Duration
}

// Succeeded reports whether the file produced an output
func (r FileResult) Succeeded() bool {
	return r.Error == nil && r.Output != ""
}

// BatchResult holds one FileResult per input, in input order
type BatchResult struct {
	Results  []FileResult
	Duration time.Duration
}

// Outputs maps each successful input to its output path
func (b *BatchResult) Outputs() map[string]string {
	out := make(map[string]string)
	for _, r := range b.Results {
		if r.Succeeded() {
			out[r.Input] = r.Output
		}
	}
	return out
}

// OutputList returns the successful output paths in input order
func (b *BatchResult) OutputList() []string {
	var out []string
	for _, r := range b.Results {
		if r.Succeeded() {
			out = append(out, r.Output)
		}
	}
	return out
}

// Failed lists the inputs that produced no output
func (b *BatchResult) Failed() []string {
	var failed []string
	for _, r := range b.Results {
		if !r.Succeeded() {
			failed = append(failed, r.Input)
		}
	}
	return failed
}

// SuccessCount returns the number of successful inputs
func (b *BatchResult) SuccessCount() int {
	return len(b.Results) - len(b.Failed())
}

// Err returns a BatchError when any input failed, nil otherwise
func (b *BatchResult) Err() error {
	failed := b.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &redactors.BatchError{Message: "some files failed", FailedFiles: failed}
}

func emptyBatchError() error {
	return redactors.NewRedactionError(redactors.ErrorBatchProcessing, "input file list is empty", "", "batch", nil)
}

// ProcessMany anonymizes inputs one after another in input order. A failing
// input is recorded in its FileResult; the returned error is non-nil only
// for an empty input list.
func (a *Anonymizer) ProcessMany(ctx context.Context, inputs []string, opts Options) (*BatchResult, error) {
	if len(inputs) == 0 {
		return nil, emptyBatchError()
	}

	start := time.Now()
	finishTiming := a.observer.StartTiming(a.GetComponentName(), "process_many", "batch")

	result := &BatchResult{Results: make([]FileResult, len(inputs))}
	for i, input := range inputs {
		fileStart := time.Now()
		output, count, err := a.process(ctx, input, opts)
		result.Results[i] = FileResult{
			Input:      input,
			Output:     output,
			Redactions: count,
			Error:      err,
			Duration:   time.Since(fileStart),
		}
		if err != nil {
			a.observer.Warn(a.GetComponentName(), "batch_file_failed", map[string]interface{}{
				"file_path": input,
				"error":     err.Error(),
			})
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(inputs), input)
		}
	}
	result.Duration = time.Since(start)

	finishTiming(true, map[string]interface{}{
		"total_files":      len(inputs),
		"successful_files": result.SuccessCount(),
	})
	return result, nil
}

// ProcessManyParallel anonymizes inputs on a fixed pool of workers. Each file
// gets fileTimeout; a file that exceeds it is recorded as failed with a
// timeout error and is not retried. Results keep input order.
func (a *Anonymizer) ProcessManyParallel(ctx context.Context, inputs []string, opts Options, workers int, fileTimeout time.Duration) (*BatchResult, error) {
	if len(inputs) == 0 {
		return nil, emptyBatchError()
	}

	var mu sync.Mutex
	counts := make(map[string]int)
	process := func(ctx context.Context, input string) (string, error) {
		output, count, err := a.process(ctx, input, opts)
		if err == nil {
			mu.Lock()
			counts[output] = count
			mu.Unlock()
		}
		return output, err
	}

	start := time.Now()
	processor := parallel.NewParallelProcessor(workers, fileTimeout, a.observer)
	results, stats := processor.ProcessFiles(ctx, inputs, process, opts.Progress)

	batch := &BatchResult{Results: make([]FileResult, len(results)), Duration: time.Since(start)}
	mu.Lock()
	for i, r := range results {
		batch.Results[i] = FileResult{
			Input:      r.FilePath,
			Output:     r.OutputPath,
			Redactions: counts[r.OutputPath],
			Error:      r.Error,
			Duration:   r.Duration,
		}
	}
	mu.Unlock()

	a.logEvent("process_many_parallel", stats.FailedFiles == 0, map[string]interface{}{
		"total_files":     stats.TotalFiles,
		"processed_files": stats.ProcessedFiles,
		"failed_files":    stats.FailedFiles,
		"timed_out_files": stats.TimedOutFiles,
		"worker_count":    stats.WorkerCount,
	})
	return batch, nil
}

// logEvent logs an event if observer is available
func (a *Anonymizer) logEvent(operation string, success bool, metadata map[string]interface{}) {
	if a.observer != nil {
		a.observer.StartTiming(a.GetComponentName(), operation, "")(success, metadata)
	}
}
