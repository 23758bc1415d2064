// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package image

import (
	"context"
	"image"
	"image/color"
	"os"
	"strings"

	"prikit/internal/detector"
	"prikit/internal/observability"
	"prikit/internal/ocr"
	"prikit/internal/redactors"
)

const (
	// minWordConfidence is the OCR confidence a word must exceed to be covered
	minWordConfidence = 25.0

	charWidthPx     = 15
	maxOverlayChars = 20
	minOverlaySize  = 8
	maxOverlaySize  = 24
)

// ImageRedactor locates PII in raster images through OCR and paints over
// the matching word boxes.
type ImageRedactor struct {
	ocr ocr.Engine

	// analyzer finds sensitive spans in recognized text
	analyzer detector.Analyzer

	// loadFace supplies the font for the char strategy
	loadFace FaceLoader

	// observer handles observability and metrics
	observer *observability.StandardObserver
}

// NewImageRedactor creates a new ImageRedactor
func NewImageRedactor(engine ocr.Engine, analyzer detector.Analyzer, observer *observability.StandardObserver) *ImageRedactor {
	return &ImageRedactor{
		ocr:      engine,
		analyzer: analyzer,
		loadFace: goRegularFace,
		observer: observer,
	}
}

// SetFaceLoader replaces the font used for character overlays
func (ir *ImageRedactor) SetFaceLoader(loader FaceLoader) {
	ir.loadFace = loader
}

// GetName returns the name of the redactor
func (ir *ImageRedactor) GetName() string {
	return "image_redactor"
}

// GetComponentName returns the component name for observability
func (ir *ImageRedactor) GetComponentName() string {
	return ir.GetName()
}

// GetSupportedTypes returns the file extensions this redactor can handle
func (ir *ImageRedactor) GetSupportedTypes() []string {
	return redactors.FileTypeImage.Extensions()
}

// Redact writes a redacted copy of inputPath to outputPath and returns the
// number of word boxes covered.
func (ir *ImageRedactor) Redact(ctx context.Context, inputPath, outputPath string, opts redactors.Options) (int, error) {
	finishTiming := ir.observer.StartTiming(ir.GetComponentName(), "redact_document", inputPath)

	count, err := ir.redact(ctx, inputPath, outputPath, opts)
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

func (ir *ImageRedactor) redact(ctx context.Context, inputPath, outputPath string, opts redactors.Options) (int, error) {
	switch opts.Strategy {
	case redactors.StrategyMask, redactors.StrategyColor, redactors.StrategyChar:
	default:
		return 0, redactors.NewMethodNotSupportedError(redactors.FileTypeImage, opts.Strategy)
	}
	if ir.ocr == nil {
		return 0, redactors.NewRedactionError(redactors.ErrorOCRNotAvailable, "no OCR engine configured", inputPath, ir.GetComponentName(), nil)
	}

	canvas, format, err := decodeFile(inputPath)
	if err != nil {
		return 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to load image", inputPath, ir.GetComponentName(), err)
	}

	if fields := readEXIF(inputPath, format); len(fields) > 0 {
		ir.logEvent("metadata_stripped", true, map[string]interface{}{
			"file_path":   inputPath,
			"field_count": len(fields),
			"fields":      fieldNames(fields),
		})
	}

	lang := ocr.LanguageFor(opts.Language)
	text, err := ir.ocr.RecognizeText(ctx, inputPath, lang)
	if err != nil {
		return 0, err
	}

	sensitive := ir.sensitiveTexts(text, inputPath, opts.Language)
	if len(sensitive) == 0 {
		return 0, ir.save(outputPath, canvas, format)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	words, err := ir.ocr.RecognizeWords(ctx, inputPath, lang)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, word := range words {
		if !isSensitiveWord(word, sensitive) {
			continue
		}
		box := image.Rect(word.X, word.Y, word.X+word.Width, word.Y+word.Height).Intersect(canvas.Bounds())
		if box.Empty() {
			continue
		}
		ir.cover(canvas, box, opts)
		count++
	}

	if count == 0 {
		ir.observer.Warn(ir.GetComponentName(), "spans_not_located", map[string]interface{}{
			"file_path":  inputPath,
			"span_count": len(sensitive),
		})
	}

	if err := ir.save(outputPath, canvas, format); err != nil {
		return 0, err
	}
	return count, nil
}

// sensitiveTexts returns the detected sensitive substrings of text
func (ir *ImageRedactor) sensitiveTexts(text, inputPath, language string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	spans, err := ir.analyzer.Analyze(text, language)
	if err != nil {
		ir.observer.Warn(ir.GetComponentName(), "analyze_text", map[string]interface{}{
			"file_path": inputPath,
			"error":     err.Error(),
		})
		return nil
	}

	var out []string
	for _, span := range spans {
		if s := strings.TrimSpace(span.Text(text)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// isSensitiveWord reports whether an OCR word belongs to a detected span.
// Tokenization differs between full-text and word-level OCR, so a word
// matches when either string contains the other.
func isSensitiveWord(word ocr.Word, sensitive []string) bool {
	if word.Confidence <= minWordConfidence {
		return false
	}
	w := strings.TrimSpace(word.Text)
	if w == "" {
		return false
	}
	for _, s := range sensitive {
		if strings.Contains(s, w) || strings.Contains(w, s) {
			return true
		}
	}
	return false
}

func (ir *ImageRedactor) cover(canvas *image.RGBA, box image.Rectangle, opts redactors.Options) {
	if opts.Strategy != redactors.StrategyChar {
		fillRect(canvas, box, ParseColor(opts.Color))
		return
	}

	fillRect(canvas, box, fillColors["white"])

	char := opts.Char
	if char == "" {
		char = "*"
	}
	count := min(max(box.Dx()/charWidthPx, 1), maxOverlayChars)
	size := max(minOverlaySize, min(box.Dy()-4, maxOverlaySize))

	face, err := ir.loadFace(float64(size))
	if err != nil {
		ir.logEvent("char_overlay_fallback", false, map[string]interface{}{"error": err.Error()})
		fillRect(canvas, box, color.Black)
		return
	}
	defer face.Close()

	drawText(canvas, box, face, strings.Repeat(char, count), color.Black)
}

func (ir *ImageRedactor) save(outputPath string, canvas image.Image, format ImageFormat) error {
	if err := encodeFile(outputPath, canvas, format); err != nil {
		return redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to save image", outputPath, ir.GetComponentName(), err)
	}
	return nil
}

// ExtractText returns the OCR text of the image using the Chinese and
// English language packs.
func (ir *ImageRedactor) ExtractText(inputPath string) (string, error) {
	return ir.ExtractTextContext(context.Background(), inputPath, "zh")
}

// ExtractTextContext returns the OCR text of the image for language
func (ir *ImageRedactor) ExtractTextContext(ctx context.Context, inputPath, language string) (string, error) {
	if ir.ocr == nil {
		return "", redactors.NewRedactionError(redactors.ErrorOCRNotAvailable, "no OCR engine configured", inputPath, ir.GetComponentName(), nil)
	}
	if _, err := detectFormat(inputPath); err != nil {
		return "", redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to load image", inputPath, ir.GetComponentName(), err)
	}
	return ir.ocr.RecognizeText(ctx, inputPath, ocr.LanguageFor(language))
}

// Info reports the format, dimensions and EXIF fields of an image
func (ir *ImageRedactor) Info(inputPath string) (*ImageInfo, error) {
	stat, err := os.Stat(inputPath)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorFileValidation, "cannot stat image", inputPath, ir.GetComponentName(), err)
	}

	format, err := detectFormat(inputPath)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to load image", inputPath, ir.GetComponentName(), err)
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to load image", inputPath, ir.GetComponentName(), err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to read image header", inputPath, ir.GetComponentName(), err)
	}

	return &ImageInfo{
		Format:   format.String(),
		Width:    cfg.Width,
		Height:   cfg.Height,
		FileSize: stat.Size(),
		EXIF:     readEXIF(inputPath, format),
	}, nil
}

// logEvent logs an event if observer is available
func (ir *ImageRedactor) logEvent(operation string, success bool, metadata map[string]interface{}) {
	if ir.observer != nil {
		ir.observer.StartTiming(ir.GetComponentName(), operation, "")(success, metadata)
	}
}
