// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package anonymizer validates requests and drives a per-format redactor
// over single files and batches.
package anonymizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prikit/internal/observability"
	"prikit/internal/redactors"
)

// DefaultLanguage is used when a request names no language
const DefaultLanguage = "zh"

// Options carries the parameters of one anonymization request
type Options struct {
	Strategy redactors.Strategy

	// Key is the 6-digit passphrase for the encrypt strategy
	Key string

	Color    string
	Char     string
	Language string

	// OutputPath overrides the resolved output path for ProcessOne
	OutputPath string

	// Progress is called after each file of a batch completes
	Progress func(completed, total int, input string)
}

// Normalized returns o with the color mapped onto the fill palette
func (o Options) Normalized() Options {
	o.Color = redactors.NormalizeColor(o.Color)
	return o
}

func (o Options) language() string {
	if strings.TrimSpace(o.Language) == "" {
		return DefaultLanguage
	}
	return o.Language
}

// Anonymizer runs one per-format redactor for a single file type
type Anonymizer struct {
	fileType redactors.FileType
	redactor redactors.Redactor
	resolver *redactors.OutputResolver
	observer *observability.StandardObserver
}

// New creates an Anonymizer for fileType
func New(fileType redactors.FileType, redactor redactors.Redactor, resolver *redactors.OutputResolver, observer *observability.StandardObserver) *Anonymizer {
	return &Anonymizer{
		fileType: fileType,
		redactor: redactor,
		resolver: resolver,
		observer: observer,
	}
}

// FileType returns the document family handled by the anonymizer
func (a *Anonymizer) FileType() redactors.FileType {
	return a.fileType
}

// GetComponentName returns the component name for observability
func (a *Anonymizer) GetComponentName() string {
	return string(a.fileType) + "_anonymizer"
}

// ValidateOptions checks the strategy, the replacement character and, for
// encrypt, the key. It never touches the filesystem.
func (a *Anonymizer) ValidateOptions(opts Options) error {
	if !a.fileType.SupportsMethod(opts.Strategy) {
		return redactors.NewMethodNotSupportedError(a.fileType, opts.Strategy)
	}
	if err := redactors.ValidateChar(opts.Char); err != nil {
		return err
	}
	if opts.Strategy == redactors.StrategyEncrypt {
		return redactors.ValidateEncryptionKey(opts.Key)
	}
	return nil
}

// ValidateFile checks that path is an existing, readable, non-empty file
// with an extension of the anonymizer's type.
func (a *Anonymizer) ValidateFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return redactors.NewFileValidationError(path, "file path cannot be empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return redactors.NewFileValidationError(path, "file does not exist: %s", path)
		}
		return redactors.NewFileValidationError(path, "cannot access file: %v", err)
	}
	if !info.Mode().IsRegular() {
		return redactors.NewFileValidationError(path, "not a regular file: %s", path)
	}
	if !a.fileType.SupportsFile(path) {
		return redactors.NewFileValidationError(path, "unsupported file extension %q for %s, supported: %s",
			filepath.Ext(path), a.fileType, strings.Join(a.fileType.Extensions(), ", "))
	}
	if info.Size() == 0 {
		return redactors.NewFileValidationError(path, "file is empty: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return redactors.NewFileValidationError(path, "file is not readable: %v", err)
	}
	f.Close()
	return nil
}

// ProcessOne anonymizes input and returns the output path. Validation runs
// in order: strategy, key, then the file itself.
func (a *Anonymizer) ProcessOne(ctx context.Context, input string, opts Options) (string, error) {
	output, _, err := a.process(ctx, input, opts)
	return output, err
}

func (a *Anonymizer) process(ctx context.Context, input string, opts Options) (string, int, error) {
	finishTiming := a.observer.StartTiming(a.GetComponentName(), "process_one", input)

	output, count, err := a.run(ctx, input, opts)
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return "", 0, err
	}

	finishTiming(true, map[string]interface{}{
		"output_path": output,
		"redactions":  count,
		"strategy":    opts.Strategy.String(),
	})
	return output, count, nil
}

func (a *Anonymizer) run(ctx context.Context, input string, opts Options) (string, int, error) {
	if err := a.ValidateOptions(opts); err != nil {
		return "", 0, err
	}
	if err := a.ValidateFile(input); err != nil {
		return "", 0, err
	}
	opts = opts.Normalized()

	redactOpts := redactors.Options{
		Strategy: opts.Strategy,
		Color:    opts.Color,
		Char:     opts.Char,
		Language: opts.language(),
	}
	if !a.fileType.IsVisual() {
		operators, err := redactors.GetOperators(a.fileType, opts.Strategy, opts.Key, redactors.NewFaker(redactOpts.Language), a.observer)
		if err != nil {
			return "", 0, err
		}
		redactOpts.Operators = operators
	}

	output := opts.OutputPath
	reserved := false
	if output == "" {
		if a.resolver == nil {
			return "", 0, redactors.NewRedactionError(redactors.ErrorConfiguration, "no output directory configured", input, a.GetComponentName(), nil)
		}
		resolved, err := a.resolver.Resolve(input, opts.Strategy, redactors.PathParams{Color: opts.Color, Char: opts.Char})
		if err != nil {
			return "", 0, err
		}
		output, reserved = resolved, true
	} else if err := os.MkdirAll(filepath.Dir(output), 0700); err != nil {
		return "", 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to create output directory", output, a.GetComponentName(), err)
	}

	count, err := a.redactor.Redact(ctx, input, output, redactOpts)
	if err == nil {
		// an abandoned run must not leave an output behind
		err = ctx.Err()
	}
	if err != nil {
		if reserved {
			a.resolver.Discard(output)
		}
		return "", 0, err
	}
	return output, count, nil
}

// ExtractText returns the text of input as the redactor sees it
func (a *Anonymizer) ExtractText(input string) (string, error) {
	if err := a.ValidateFile(input); err != nil {
		return "", err
	}
	extractor, ok := a.redactor.(redactors.TextExtractor)
	if !ok {
		return "", redactors.NewRedactionError(redactors.ErrorDocumentProcessing,
			fmt.Sprintf("text extraction is not available for %s", a.fileType), input, a.GetComponentName(), nil)
	}
	return extractor.ExtractText(input)
}
