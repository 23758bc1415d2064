// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"prikit/internal/observability"
	"prikit/internal/redactors"
	"prikit/internal/resilience"
)

// DefaultBinary is the tesseract executable looked up on PATH
const DefaultBinary = "tesseract"

// Tesseract runs the tesseract command line tool. Calls share a circuit
// breaker so a broken installation fails fast after repeated errors.
type Tesseract struct {
	binary  string
	timeout time.Duration
	retry   resilience.Backoff
	breaker *resilience.CircuitBreaker[[]byte]

	// observer handles observability and metrics
	observer *observability.StandardObserver
}

// NewTesseract creates an engine for binary; timeout bounds each invocation, 0 means none
func NewTesseract(binary string, timeout time.Duration, observer *observability.StandardObserver) *Tesseract {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Tesseract{
		binary:   binary,
		timeout:  timeout,
		retry:    resilience.DefaultBackoff(),
		breaker:  resilience.NewCircuitBreaker[[]byte](resilience.DefaultCircuitBreakerConfig("tesseract"), observer),
		observer: observer,
	}
}

// GetComponentName returns the component name for observability
func (t *Tesseract) GetComponentName() string {
	return "ocr_tesseract"
}

// Available reports whether the binary can be found
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

func (t *Tesseract) RecognizeText(ctx context.Context, imagePath, lang string) (string, error) {
	out, err := t.run(ctx, imagePath, lang)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (t *Tesseract) RecognizeWords(ctx context.Context, imagePath, lang string) ([]Word, error) {
	out, err := t.run(ctx, imagePath, lang, "tsv")
	if err != nil {
		return nil, err
	}
	words, err := parseTSV(out)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "unreadable OCR output", imagePath, t.GetComponentName(), err)
	}
	return words, nil
}

// run executes "tesseract <image> stdout -l <lang> [configs...]"
func (t *Tesseract) run(ctx context.Context, imagePath, lang string, configs ...string) ([]byte, error) {
	finishTiming := t.observer.StartTiming(t.GetComponentName(), "recognize", imagePath)

	args := append([]string{imagePath, "stdout", "-l", lang}, configs...)
	out, err := resilience.Do(ctx, t.retry, func(ctx context.Context) ([]byte, error) {
		return t.breaker.Execute(ctx, func(ctx context.Context) ([]byte, error) {
			return t.exec(ctx, args)
		})
	}, func(attempt int, wait time.Duration, err error) {
		t.observer.Debug(t.GetComponentName(), "recognize_retry", map[string]interface{}{
			"file_path": imagePath,
			"attempt":   attempt,
			"wait_ms":   wait.Milliseconds(),
			"error":     err.Error(),
		})
	})
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error(), "lang": lang})
		return nil, t.wrap(imagePath, err)
	}

	finishTiming(true, map[string]interface{}{"lang": lang, "bytes": len(out)})
	return out, nil
}

func (t *Tesseract) exec(ctx context.Context, args []string) ([]byte, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (t *Tesseract) wrap(imagePath string, err error) error {
	classified := resilience.ClassifyError(err)
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return redactors.NewRedactionError(redactors.ErrorOCRNotAvailable,
			fmt.Sprintf("OCR engine %q is not installed", t.binary), imagePath, t.GetComponentName(), err)
	case classified.Type == resilience.ErrorTypeServiceUnavailable:
		return redactors.NewRedactionError(redactors.ErrorOCRNotAvailable,
			"OCR engine is failing repeatedly", imagePath, t.GetComponentName(), err)
	case classified.Type == resilience.ErrorTypeTimeout:
		return redactors.NewRedactionError(redactors.ErrorProcessingTimeout,
			"OCR timed out", imagePath, t.GetComponentName(), err)
	default:
		return redactors.NewRedactionError(redactors.ErrorDocumentProcessing,
			"OCR failed", imagePath, t.GetComponentName(), err)
	}
}
