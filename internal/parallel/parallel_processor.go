// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"prikit/internal/observability"
)

// MaxWorkers caps the pool size regardless of the request
const MaxWorkers = 8

// ParallelProcessor fans a file list out across a WorkerPool
type ParallelProcessor struct {
	workers     int
	fileTimeout time.Duration
	observer    *observability.StandardObserver
}

// ProcessingStats tracks parallel processing statistics
type ProcessingStats struct {
	TotalFiles     int           `json:"total_files"`
	ProcessedFiles int           `json:"processed_files"`
	FailedFiles    int           `json:"failed_files"`
	TimedOutFiles  int           `json:"timed_out_files"`
	TotalDuration  time.Duration `json:"total_duration_ms"`
	WorkerCount    int           `json:"worker_count"`
	AvgFileTime    time.Duration `json:"avg_file_time_ms"`
}

// DefaultWorkers returns the CPU count capped at MaxWorkers
func DefaultWorkers() int {
	return min(runtime.NumCPU(), MaxWorkers)
}

// NewParallelProcessor creates a new parallel processor. workers <= 0
// selects DefaultWorkers.
func NewParallelProcessor(workers int, fileTimeout time.Duration, observer *observability.StandardObserver) *ParallelProcessor {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	workers = min(workers, MaxWorkers)

	return &ParallelProcessor{
		workers:     workers,
		fileTimeout: fileTimeout,
		observer:    observer,
	}
}

// ProgressCallback is called when a file is completed
type ProgressCallback func(completed, total int, currentFile string)

// ProcessFiles runs process over filePaths and returns one result per input,
// in input order.
func (pp *ParallelProcessor) ProcessFiles(ctx context.Context, filePaths []string, process ProcessFunc, progressCallback ProgressCallback) ([]*Result, *ProcessingStats) {
	start := time.Now()
	finishTiming := pp.observer.StartTiming("parallel_processor", "process_files", "batch")

	jobCount := len(filePaths)
	workers := min(pp.workers, max(jobCount, 1))
	pool := NewWorkerPool(ctx, workers, pp.fileTimeout, process, pp.observer)
	pool.Start()
	go pool.Stop()

	// Submit jobs in a separate goroutine to prevent deadlock
	go func() {
		defer pool.Close()
		for i, filePath := range filePaths {
			pool.Submit(&Job{
				JobID:    fmt.Sprintf("job_%d", i),
				Index:    i,
				FilePath: filePath,
			})
		}
	}()

	results := make([]*Result, jobCount)
	stats := &ProcessingStats{TotalFiles: jobCount, WorkerCount: workers}
	totalDuration := time.Duration(0)

	completed := 0
	for result := range pool.Results() {
		results[result.Index] = result
		completed++

		if result.Error != nil {
			stats.FailedFiles++
			if result.TimedOut {
				stats.TimedOutFiles++
			}
			pp.observer.Warn("parallel_processor", "file_processing", map[string]interface{}{
				"file_path": result.FilePath,
				"error":     result.Error.Error(),
			})
		} else {
			stats.ProcessedFiles++
		}
		totalDuration += result.Duration

		if progressCallback != nil {
			progressCallback(completed, jobCount, result.FilePath)
		}
	}

	// Jobs never picked up because ctx ended
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("file was not processed")
			}
			results[i] = &Result{JobID: fmt.Sprintf("job_%d", i), Index: i, FilePath: filePaths[i], Error: err}
			stats.FailedFiles++
		}
	}

	stats.TotalDuration = time.Since(start)
	stats.AvgFileTime = totalDuration / time.Duration(max(completed, 1))

	finishTiming(true, map[string]interface{}{
		"total_files":     jobCount,
		"processed_files": stats.ProcessedFiles,
		"failed_files":    stats.FailedFiles,
		"worker_count":    workers,
		"duration_ms":     stats.TotalDuration.Milliseconds(),
	})

	return results, stats
}
