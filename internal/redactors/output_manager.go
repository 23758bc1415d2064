// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"prikit/internal/observability"
	"prikit/internal/paths"
)

// maxCollisionSuffix bounds the " (n)" search for a free output name
const maxCollisionSuffix = 100000

// PathParams carries the strategy parameters that appear in output names
type PathParams struct {
	Color string
	Char  string
}

// OutputResolver chooses fresh output paths inside a single output directory
type OutputResolver struct {
	// baseOutputDir is the directory where anonymized files are stored
	baseOutputDir string

	// observer handles observability and metrics
	observer *observability.StandardObserver
}

// NewOutputResolver creates the output directory if needed and returns a resolver for it
func NewOutputResolver(baseOutputDir string, observer *observability.StandardObserver) (*OutputResolver, error) {
	if strings.TrimSpace(baseOutputDir) == "" {
		return nil, fmt.Errorf("base output directory cannot be empty")
	}

	cleanPath := filepath.Clean(baseOutputDir)
	if err := os.MkdirAll(cleanPath, 0700); err != nil {
		return nil, NewRedactionError(ErrorConfiguration, "failed to create output directory", cleanPath, "output_manager", err)
	}

	return &OutputResolver{
		baseOutputDir: cleanPath,
		observer:      observer,
	}, nil
}

// GetBaseOutputDir returns the output directory
func (r *OutputResolver) GetBaseOutputDir() string {
	return r.baseOutputDir
}

// GetComponentName returns the component name for observability
func (r *OutputResolver) GetComponentName() string {
	return "output_manager"
}

// Resolve picks an output path for inputPath and reserves it by creating an
// empty file, so the returned path never names a pre-existing file and two
// calls never return the same path.
func (r *OutputResolver) Resolve(inputPath string, strategy Strategy, params PathParams) (string, error) {
	finishTiming := r.observer.StartTiming(r.GetComponentName(), "resolve", inputPath)

	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := OriginalStem(strings.TrimSuffix(base, ext))
	name := stem + outputSuffix(strategy, PathParams{
		Color: NormalizeColor(params.Color),
		Char:  params.Char,
	})

	for n := 0; n <= maxCollisionSuffix; n++ {
		candidate := name + ext
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", name, n, ext)
		}
		path := filepath.Join(r.baseOutputDir, candidate)
		if filepath.Base(candidate) != candidate || !paths.IsWithin(r.baseOutputDir, path) {
			finishTiming(false, map[string]interface{}{"error": "output name escapes output directory"})
			return "", NewRedactionError(ErrorInvalidOption, "output name escapes output directory", candidate, r.GetComponentName(), nil)
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			finishTiming(false, map[string]interface{}{"error": err.Error()})
			return "", NewRedactionError(ErrorDocumentProcessing, "failed to reserve output path", path, r.GetComponentName(), err)
		}
		f.Close()

		finishTiming(true, map[string]interface{}{"output_path": path})
		return path, nil
	}

	finishTiming(false, nil)
	return "", NewRedactionError(ErrorDocumentProcessing, "no free output name", name+ext, r.GetComponentName(), nil)
}

// Release removes a reserved path that was never written
func (r *OutputResolver) Release(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > 0 {
		return
	}
	os.Remove(path)
}

// Discard removes a reserved path after a failed run, whatever it holds
func (r *OutputResolver) Discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.observer.Warn(r.GetComponentName(), "discard_output", map[string]interface{}{
			"file_path": path,
			"error":     err.Error(),
		})
	}
}

func outputSuffix(strategy Strategy, params PathParams) string {
	switch strategy {
	case StrategyColor:
		if params.Color != "" {
			return "_anonymous_color_" + params.Color
		}
		return "_anonymous_color"
	case StrategyChar:
		if params.Char != "" && params.Char != "*" {
			return "_anonymous_char_" + params.Char
		}
		return "_anonymous_char"
	case StrategyEncrypt:
		return "_anonymous_encrypted"
	default:
		return "_anonymous_" + string(strategy)
	}
}

// OriginalStem strips a "<uuid>_" prefix added to uploaded files
func OriginalStem(stem string) string {
	prefix, rest, found := strings.Cut(stem, "_")
	if !found || len(prefix) != 36 {
		return stem
	}
	if _, err := uuid.Parse(prefix); err != nil {
		return stem
	}
	return rest
}
