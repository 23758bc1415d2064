// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"prikit/internal/observability"
	"prikit/internal/redactors"
	"prikit/internal/resilience"
)

// DefaultFileTimeout bounds a single file when the caller gives no timeout
const DefaultFileTimeout = 5 * time.Minute

// ProcessFunc anonymizes one file and returns the output path
type ProcessFunc func(ctx context.Context, filePath string) (string, error)

// WorkerPool runs a ProcessFunc over files on a fixed number of goroutines
type WorkerPool struct {
	workers     int
	fileTimeout time.Duration
	process     ProcessFunc
	jobs        chan *Job
	results     chan *Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	observer    *observability.StandardObserver
}

// Job represents a file processing task
type Job struct {
	JobID    string
	Index    int
	FilePath string
}

// Result represents processing results
type Result struct {
	JobID      string
	Index      int
	FilePath   string
	OutputPath string
	Error      error
	Duration   time.Duration
	TimedOut   bool
}

// NewWorkerPool creates a worker pool bound to ctx. A file that runs longer
// than fileTimeout is abandoned and reported as a timeout.
func NewWorkerPool(ctx context.Context, workers int, fileTimeout time.Duration, process ProcessFunc, observer *observability.StandardObserver) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if fileTimeout <= 0 {
		fileTimeout = DefaultFileTimeout
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workers:     workers,
		fileTimeout: fileTimeout,
		process:     process,
		jobs:        make(chan *Job, workers*2),
		results:     make(chan *Result, workers*2),
		ctx:         poolCtx,
		cancel:      cancel,
		observer:    observer,
	}
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for the workers and closes the results channel. Workers exit
// once Close has been called and the queue drained, or the pool's context ends.
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Close signals that no more jobs will be submitted
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job *Job) {
	select {
	case wp.jobs <- job:
	case <-wp.ctx.Done():
	}
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob runs a single file under its own deadline. Timed out files are
// not retried.
func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()
	finishTiming := wp.observer.StartTiming("worker_pool", "process_job", job.FilePath)

	result := &Result{JobID: job.JobID, Index: job.Index, FilePath: job.FilePath}

	jobCtx, cancel := context.WithTimeout(wp.ctx, wp.fileTimeout)
	defer cancel()

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic while processing %s: %v", job.FilePath, r)}
			}
		}()
		output, err := wp.process(jobCtx, job.FilePath)
		done <- outcome{output: output, err: err}
	}()

	select {
	case o := <-done:
		result.OutputPath, result.Error = o.output, o.err
	case <-jobCtx.Done():
		result.Error = jobCtx.Err()
	}

	if result.Error != nil && errors.Is(result.Error, context.DeadlineExceeded) && wp.ctx.Err() == nil {
		result.TimedOut = true
		result.OutputPath = ""
		result.Error = redactors.NewRedactionError(redactors.ErrorProcessingTimeout,
			fmt.Sprintf("processing timed out after %s", wp.fileTimeout), job.FilePath, "worker_pool", result.Error)
	}

	result.Duration = time.Since(start)

	metadata := map[string]interface{}{
		"worker_id":   workerID,
		"duration_ms": result.Duration.Milliseconds(),
		"timed_out":   result.TimedOut,
	}
	if result.Error != nil {
		classified := resilience.ClassifyError(result.Error)
		metadata["error"] = result.Error.Error()
		metadata["error_type"] = classified.Type.String()
	}
	finishTiming(result.Error == nil, metadata)

	return result
}
