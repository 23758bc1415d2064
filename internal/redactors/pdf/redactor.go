// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"prikit/internal/detector"
	"prikit/internal/observability"
	"prikit/internal/redactors"
)

const (
	maxOverlayChars = 20
	maxOverlayFont  = 20.0
)

// PDFRedactor covers located PII on each page with filled rectangles or
// replacement characters.
type PDFRedactor struct {
	codec Codec

	// analyzer finds sensitive spans in page text
	analyzer detector.Analyzer

	// observer handles observability and metrics
	observer *observability.StandardObserver
}

// NewPDFRedactor creates a PDFRedactor using the default codec
func NewPDFRedactor(analyzer detector.Analyzer, observer *observability.StandardObserver) *PDFRedactor {
	return NewPDFRedactorWithCodec(NewCodec(), analyzer, observer)
}

// NewPDFRedactorWithCodec creates a PDFRedactor over a specific codec
func NewPDFRedactorWithCodec(codec Codec, analyzer detector.Analyzer, observer *observability.StandardObserver) *PDFRedactor {
	return &PDFRedactor{codec: codec, analyzer: analyzer, observer: observer}
}

// GetName returns the name of the redactor
func (pr *PDFRedactor) GetName() string {
	return "pdf_redactor"
}

// GetComponentName returns the component name for observability
func (pr *PDFRedactor) GetComponentName() string {
	return pr.GetName()
}

// GetSupportedTypes returns the file extensions this redactor can handle
func (pr *PDFRedactor) GetSupportedTypes() []string {
	return redactors.FileTypePDF.Extensions()
}

// Redact writes a redacted copy of inputPath to outputPath and returns the
// number of sensitive spans found across all pages.
func (pr *PDFRedactor) Redact(ctx context.Context, inputPath, outputPath string, opts redactors.Options) (int, error) {
	finishTiming := pr.observer.StartTiming(pr.GetComponentName(), "redact_document", inputPath)

	count, err := pr.redact(ctx, inputPath, outputPath, opts)
	if err != nil {
		finishTiming(false, map[string]interface{}{"error": err.Error()})
		return 0, err
	}

	finishTiming(true, map[string]interface{}{
		"output_path": outputPath,
		"redactions":  count,
		"strategy":    opts.Strategy.String(),
	})
	return count, nil
}

func (pr *PDFRedactor) redact(ctx context.Context, inputPath, outputPath string, opts redactors.Options) (int, error) {
	switch opts.Strategy {
	case redactors.StrategyMask, redactors.StrategyColor, redactors.StrategyChar:
	default:
		return 0, redactors.NewMethodNotSupportedError(redactors.FileTypePDF, opts.Strategy)
	}

	doc, err := pr.codec.Open(inputPath)
	if err != nil {
		return 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to open PDF", inputPath, pr.GetComponentName(), err)
	}
	defer doc.Close()

	total := 0
	for page := 1; page <= doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		total += pr.redactPage(doc, page, inputPath, opts)
	}

	if err := doc.Save(outputPath); err != nil {
		return 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to save PDF", outputPath, pr.GetComponentName(), err)
	}
	return total, nil
}

// redactPage returns the number of spans handled on page. Collaborator
// failures are logged and cost only the page or span they happened on.
func (pr *PDFRedactor) redactPage(doc Document, page int, inputPath string, opts redactors.Options) int {
	text, err := doc.PageText(page)
	if err != nil {
		pr.warnPage("read_page_text", inputPath, page, err)
		return 0
	}
	if strings.TrimSpace(text) == "" {
		return 0
	}

	spans, err := pr.analyzer.Analyze(text, opts.Language)
	if err != nil {
		pr.warnPage("analyze_page", inputPath, page, err)
		return 0
	}
	if len(spans) == 0 {
		return 0
	}

	pr.logEvent("page_spans_found", true, map[string]interface{}{
		"page":       page,
		"span_count": len(spans),
	})

	count := len(spans)
	for _, span := range spans {
		sensitive := span.Text(text)
		rects, err := doc.Search(page, sensitive)
		if err != nil {
			pr.warnPage("search_page", inputPath, page, err)
			count--
			continue
		}
		if len(rects) == 0 {
			pr.observer.Warn(pr.GetComponentName(), "span_not_located", map[string]interface{}{
				"file_path": inputPath,
				"page":      page,
				"category":  string(span.Category),
			})
			continue
		}

		for _, r := range rects {
			if err := pr.cover(doc, page, r, sensitive, opts); err != nil {
				pr.warnPage("draw_page", inputPath, page, err)
				count--
				break
			}
		}
	}
	return count
}

func (pr *PDFRedactor) warnPage(operation, inputPath string, page int, err error) {
	pr.observer.Warn(pr.GetComponentName(), operation, map[string]interface{}{
		"file_path": inputPath,
		"page":      page,
		"error":     err.Error(),
	})
}

func (pr *PDFRedactor) cover(doc Document, page int, r Rect, sensitive string, opts redactors.Options) error {
	if opts.Strategy != redactors.StrategyChar {
		return doc.DrawRect(page, r, ParseColor(opts.Color))
	}

	if err := doc.DrawRect(page, r, White); err != nil {
		return err
	}

	char := opts.Char
	if char == "" {
		char = "*"
	}
	count := min(max(utf8.RuneCountInString(sensitive), 1), maxOverlayChars)
	size := min(r.Width()/(float64(count)*0.6), maxOverlayFont)
	baseline := (r.Y0+r.Y1)/2 - size*0.35

	err := doc.DrawText(page, r.X0, baseline, strings.Repeat(char, count), size, Black)
	if errors.Is(err, ErrUnencodable) {
		pr.logEvent("char_overlay_fallback", false, map[string]interface{}{
			"page": page,
			"char": char,
		})
		return doc.DrawRect(page, r, Black)
	}
	return err
}

// ExtractText returns the text of every non-blank page under a page header
func (pr *PDFRedactor) ExtractText(inputPath string) (string, error) {
	doc, err := pr.codec.Open(inputPath)
	if err != nil {
		return "", redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to open PDF", inputPath, pr.GetComponentName(), err)
	}
	defer doc.Close()

	var b strings.Builder
	for page := 1; page <= doc.PageCount(); page++ {
		text, err := doc.PageText(page)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", page, text)
	}
	return b.String(), nil
}

// PageCount returns the number of pages in the document
func (pr *PDFRedactor) PageCount(inputPath string) (int, error) {
	doc, err := pr.codec.Open(inputPath)
	if err != nil {
		return 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to open PDF", inputPath, pr.GetComponentName(), err)
	}
	defer doc.Close()
	return doc.PageCount(), nil
}

// logEvent logs an event if observer is available
func (pr *PDFRedactor) logEvent(operation string, success bool, metadata map[string]interface{}) {
	if pr.observer != nil {
		pr.observer.StartTiming(pr.GetComponentName(), operation, "")(success, metadata)
	}
}
