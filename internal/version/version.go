// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Overridden through -ldflags "-X prikit/internal/version.Version=..."
var (
	Version   = "1.0.0"
	GitCommit = ""
	BuildDate = ""
)

// ServiceName is reported by the health endpoint
const ServiceName = "File Anonymization API"

// Build describes the running binary
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Details returns the build information reported by the health endpoint
func Details() Build {
	commit, built := buildStamp()
	return Build{
		Version:   Version,
		Commit:    commit,
		BuildDate: built,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Info returns the one-line version banner printed by `prikit version`
func Info() string {
	b := Details()
	return fmt.Sprintf("prikit %s (commit: %s, built: %s, go: %s, platform: %s)",
		b.Version, b.Commit, b.BuildDate, b.GoVersion, b.Platform)
}

// Short returns just the version number
func Short() string {
	return Version
}

// buildStamp prefers linker-injected values and falls back to the VCS
// settings recorded by `go build`.
func buildStamp() (commit, built string) {
	commit, built = GitCommit, BuildDate
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			case s.Key == "vcs.time" && built == "":
				built = s.Value
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if built == "" {
		built = "unknown"
	}
	return commit, built
}
