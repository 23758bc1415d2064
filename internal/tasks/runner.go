// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ProgressFunc reports that completed of total inputs are done
type ProgressFunc func(completed, total int, input string)

// Job is the work bound to a task. Parameters such as encryption keys live
// only in these closures, never in the task record.
type Job struct {
	// ProcessOne anonymizes a single input and returns its output path
	ProcessOne func(ctx context.Context, input string) (string, error)

	// ProcessAll, when set, runs a whole batch at once and returns one
	// output per input ("" for a failed input), in input order
	ProcessAll func(ctx context.Context, inputs []string, progress ProgressFunc) ([]string, error)

	// Release runs once the task has finished, whatever its outcome
	Release func()
}

func (r *Registry) run(task *Task, job Job) {
	finishTiming := r.observer.StartTiming(r.GetComponentName(), "run_task", "")

	if job.Release != nil {
		defer job.Release()
	}
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprintf("%v", p)
			_ = task.fail("Processing failed: "+msg, msg, r.now())
			finishTiming(false, map[string]interface{}{"task_id": task.ID(), "error": msg})
		}
	}()

	inputs := task.inputFiles()
	if task.batch || len(inputs) != 1 {
		r.runBatch(task, job, inputs)
	} else {
		r.runSingle(task, job, inputs[0])
	}

	snap := task.Snapshot()
	metadata := map[string]interface{}{
		"task_id":            snap.TaskID,
		"status":             string(snap.Status),
		"output_files_count": snap.OutputFilesCount,
	}
	if snap.Error != "" {
		metadata["error"] = snap.Error
	}
	finishTiming(snap.Status == StatusCompleted, metadata)
}

func (r *Registry) runSingle(task *Task, job Job, input string) {
	if err := task.start(20, "Processing file: "+filepath.Base(input)); err != nil {
		return
	}

	output, err := job.ProcessOne(r.ctx, input)
	if err != nil {
		_ = task.fail("Processing failed: "+err.Error(), err.Error(), r.now())
		return
	}
	if !fileExists(output) {
		_ = task.fail("Output file was not produced", "", r.now())
		return
	}

	task.addOutput(output)
	_ = task.complete("Anonymization completed", r.now())
}

func (r *Registry) runBatch(task *Task, job Job, inputs []string) {
	total := len(inputs)
	if err := task.start(0, fmt.Sprintf("Processing %d files", total)); err != nil {
		return
	}
	if total == 0 {
		_ = task.fail("All files failed", "no input files", r.now())
		return
	}

	progress := func(completed, total int, input string) {
		task.advance(completed*80/total, fmt.Sprintf("Processed %d/%d files: %s", completed, total, filepath.Base(input)))
	}

	var outputs []string
	if job.ProcessAll != nil {
		results, err := job.ProcessAll(r.ctx, inputs, progress)
		if err != nil {
			_ = task.fail("Processing failed: "+err.Error(), err.Error(), r.now())
			return
		}
		outputs = results
	} else {
		outputs = make([]string, total)
		for i, input := range inputs {
			output, err := job.ProcessOne(r.ctx, input)
			if err != nil {
				r.observer.Warn(r.GetComponentName(), "batch_file_failed", map[string]interface{}{
					"task_id":   task.ID(),
					"file_path": input,
					"error":     err.Error(),
				})
			} else {
				outputs[i] = output
			}
			progress(i+1, total, input)
		}
	}

	succeeded := 0
	for _, output := range outputs {
		if output != "" && fileExists(output) {
			task.addOutput(output)
			succeeded++
		}
	}

	if succeeded == 0 {
		_ = task.fail("All files failed", "all files failed", r.now())
		return
	}
	_ = task.complete(fmt.Sprintf("Batch completed: %d/%d files processed successfully", succeeded, total), r.now())
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
