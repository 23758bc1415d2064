// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"testing"
	"time"
)

func TestTaskTransitions(t *testing.T) {
	now := time.Now()
	task := newTask("t1", Request{Inputs: []string{"a"}}, now)

	if err := task.complete("done", now); err == nil {
		t.Fatal("pending task must not complete directly")
	}
	if err := task.start(20, "working"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := task.start(20, "again"); err == nil {
		t.Fatal("start twice must fail")
	}

	task.advance(10, "")
	if got := task.Snapshot().Progress; got != 20 {
		t.Errorf("progress went backwards to %d", got)
	}
	task.advance(60, "more")
	if got := task.Snapshot(); got.Progress != 60 || got.Message != "more" {
		t.Errorf("advance = %d %q", got.Progress, got.Message)
	}

	if err := task.complete("done", now.Add(1500*time.Millisecond)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := task.fail("late", "x", now); err == nil {
		t.Fatal("terminal task must not fail afterwards")
	}
	task.advance(99, "ignored")

	snap := task.Snapshot()
	if snap.Status != StatusCompleted || snap.Progress != 100 || snap.Message != "done" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Duration == nil || *snap.Duration != 1.5 {
		t.Errorf("duration = %v", snap.Duration)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	} {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v", status, got)
		}
	}
}
