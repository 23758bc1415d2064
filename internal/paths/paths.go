// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultOutputDir is where anonymized files are written when no directory is given
	DefaultOutputDir = "./anonymized-datas"

	// DefaultUploadDir is where the HTTP surface stores uploads
	DefaultUploadDir = "./uploads"
)

// GetConfigDir returns the prikit configuration directory
func GetConfigDir() string {
	if dir := os.Getenv("PRIKIT_CONFIG_DIR"); dir != "" {
		return dir
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "prikit")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".prikit"
	}
	return filepath.Join(home, ".prikit")
}

// GetConfigFile returns the path to the main config file
func GetConfigFile() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// IsWithin reports whether path resolves to a location inside base.
// base itself is not considered inside.
func IsWithin(base, path string) bool {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SafeFilename reduces a client supplied file name to its final element,
// rejecting names that would escape the destination directory.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}
