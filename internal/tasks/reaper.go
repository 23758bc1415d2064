// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package tasks

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultReapSchedule runs the reaper hourly
const DefaultReapSchedule = "@every 1h"

// StartReaper reaps tasks older than maxAge on schedule, a cron expression
// or descriptor such as "@every 1h". The returned function stops the
// reaper and waits for a running pass to finish.
func (r *Registry) StartReaper(schedule string, maxAge time.Duration) (func(), error) {
	if schedule == "" {
		schedule = DefaultReapSchedule
	}
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		r.Reap(maxAge)
	}); err != nil {
		return nil, fmt.Errorf("invalid reap schedule %q: %w", schedule, err)
	}
	c.Start()

	r.observer.Info(r.GetComponentName(), "reaper_started", map[string]interface{}{
		"schedule":      schedule,
		"max_age_hours": maxAge.Hours(),
	})

	return func() {
		<-c.Stop().Done()
	}, nil
}
