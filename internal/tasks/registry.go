// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"prikit/internal/observability"
	"prikit/internal/paths"
)

// DefaultRetention is how long finished tasks are kept
const DefaultRetention = 24 * time.Hour

// Registry owns every task. The map is guarded by mu; each task guards its
// own fields, so the goroutine running a task and pollers never contend on
// the registry lock.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task

	// uploadDir is the managed area whose inputs the reaper may delete
	uploadDir string

	ctx      context.Context
	running  sync.WaitGroup
	observer *observability.StandardObserver
	now      func() time.Time
}

// NewRegistry creates an empty registry. Inputs under uploadDir belong to
// their task and are removed when it is reaped.
func NewRegistry(uploadDir string, observer *observability.StandardObserver) *Registry {
	return &Registry{
		tasks:     make(map[string]*Task),
		uploadDir: uploadDir,
		ctx:       context.Background(),
		observer:  observer,
		now:       time.Now,
	}
}

// GetComponentName returns the component name for observability
func (r *Registry) GetComponentName() string {
	return "task_registry"
}

// Create stores a pending task for req and returns its id
func (r *Registry) Create(req Request) string {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	task := newTask(id, req, r.now())

	r.mu.Lock()
	r.tasks[id] = task
	r.mu.Unlock()

	r.observer.Info(r.GetComponentName(), "task_created", map[string]interface{}{
		"task_id":     id,
		"file_type":   req.FileType,
		"method":      req.Method,
		"total_files": len(req.Inputs),
	})
	return id
}

func (r *Registry) lookup(id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Get returns a snapshot of the task. It never waits for the task to run.
func (r *Registry) Get(id string) (Snapshot, error) {
	task, err := r.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return task.Snapshot(), nil
}

// List returns snapshots of all tasks, oldest first
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	tasks := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.RUnlock()

	snapshots := make([]Snapshot, len(tasks))
	for i, t := range tasks {
		snapshots[i] = t.Snapshot()
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].StartTime < snapshots[j].StartTime
	})
	return snapshots
}

// Output returns the path of a completed task's output. The file may have
// been removed since completion, which is reported as ErrOutputMissing.
func (r *Registry) Output(id string, index int) (string, error) {
	task, err := r.lookup(id)
	if err != nil {
		return "", err
	}

	path, err := task.output(index)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrOutputMissing, path)
	}
	return path, nil
}

// Schedule starts job for the task on its own goroutine and returns at once
func (r *Registry) Schedule(id string, job Job) error {
	task, err := r.lookup(id)
	if err != nil {
		return err
	}

	task.mu.Lock()
	claimable := task.status == StatusPending && !task.scheduled
	task.scheduled = true
	task.mu.Unlock()
	if !claimable {
		return fmt.Errorf("%w: task %s already scheduled", ErrInvalidTransition, id)
	}

	r.running.Add(1)
	go func() {
		defer r.running.Done()
		r.run(task, job)
	}()
	return nil
}

// Wait blocks until every scheduled task has finished
func (r *Registry) Wait() {
	r.running.Wait()
}

// Reap removes finished tasks that ended more than maxAge ago, along with
// their inputs inside the upload area. It returns the number of tasks removed.
func (r *Registry) Reap(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	var expired []*Task
	for id, task := range r.tasks {
		if task.expired(cutoff) {
			expired = append(expired, task)
			delete(r.tasks, id)
		}
	}
	r.mu.Unlock()

	for _, task := range expired {
		for _, input := range task.inputFiles() {
			if r.uploadDir == "" || !paths.IsWithin(r.uploadDir, input) {
				continue
			}
			if err := os.Remove(input); err != nil && !errors.Is(err, fs.ErrNotExist) {
				r.observer.Warn(r.GetComponentName(), "remove_input", map[string]interface{}{
					"task_id":   task.ID(),
					"file_path": input,
					"error":     err.Error(),
				})
			}
		}
	}

	if len(expired) > 0 {
		r.observer.Info(r.GetComponentName(), "tasks_reaped", map[string]interface{}{
			"count": len(expired),
		})
	}
	return len(expired)
}
