// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"prikit/internal/detector"
	"prikit/internal/observability"
	"prikit/internal/redactors"
)

// DocumentKind selects the OOXML family handled by an OfficeRedactor
type DocumentKind int

const (
	DocumentTypeWord DocumentKind = iota
	DocumentTypeExcel
	DocumentTypePPT
)

// String returns the string representation of the document kind
func (dk DocumentKind) String() string {
	switch dk {
	case DocumentTypeWord:
		return "word"
	case DocumentTypeExcel:
		return "excel"
	case DocumentTypePPT:
		return "ppt"
	default:
		return "unknown"
	}
}

var legacyExtensions = map[string]bool{".doc": true, ".xls": true, ".ppt": true}

// OfficeRedactor rewrites text regions of Word, Excel and PowerPoint documents
type OfficeRedactor struct {
	kind DocumentKind

	// analyzer finds sensitive spans in region text
	analyzer detector.Analyzer

	// observer handles observability and metrics
	observer *observability.StandardObserver
}

// NewWordRedactor creates a redactor for .docx paragraphs
func NewWordRedactor(analyzer detector.Analyzer, observer *observability.StandardObserver) *OfficeRedactor {
	return &OfficeRedactor{kind: DocumentTypeWord, analyzer: analyzer, observer: observer}
}

// NewExcelRedactor creates a redactor for .xlsx cells
func NewExcelRedactor(analyzer detector.Analyzer, observer *observability.StandardObserver) *OfficeRedactor {
	return &OfficeRedactor{kind: DocumentTypeExcel, analyzer: analyzer, observer: observer}
}

// NewPPTRedactor creates a redactor for .pptx text frames
func NewPPTRedactor(analyzer detector.Analyzer, observer *observability.StandardObserver) *OfficeRedactor {
	return &OfficeRedactor{kind: DocumentTypePPT, analyzer: analyzer, observer: observer}
}

// GetName returns the name of the redactor
func (or *OfficeRedactor) GetName() string {
	return or.kind.String() + "_redactor"
}

// GetComponentName returns the component name for observability
func (or *OfficeRedactor) GetComponentName() string {
	return or.GetName()
}

// GetSupportedTypes returns the file extensions this redactor can handle
func (or *OfficeRedactor) GetSupportedTypes() []string {
	return or.fileType().Extensions()
}

func (or *OfficeRedactor) fileType() redactors.FileType {
	switch or.kind {
	case DocumentTypeExcel:
		return redactors.FileTypeExcel
	case DocumentTypePPT:
		return redactors.FileTypePPT
	default:
		return redactors.FileTypeWord
	}
}

// Redact writes an anonymized copy of inputPath to outputPath. Word counts one
// redaction per rewritten paragraph, PowerPoint one per rewritten text frame
// and Excel the number of spans found in each rewritten cell.
func (or *OfficeRedactor) Redact(ctx context.Context, inputPath, outputPath string, opts redactors.Options) (int, error) {
	finishTiming := or.observer.StartTiming(or.GetComponentName(), "redact_document", inputPath)

	count, err := or.redact(ctx, inputPath, outputPath, opts)
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

func (or *OfficeRedactor) redact(ctx context.Context, inputPath, outputPath string, opts redactors.Options) (int, error) {
	if opts.Operators == nil {
		return 0, redactors.NewRedactionError(redactors.ErrorConfiguration, "operator set is required", inputPath, or.GetComponentName(), nil)
	}

	pkg, err := or.open(inputPath)
	if err != nil {
		return 0, err
	}
	defer pkg.Close()

	var count int
	switch or.kind {
	case DocumentTypeExcel:
		count, err = or.redactWorkbook(ctx, pkg, inputPath, opts)
	case DocumentTypePPT:
		count, err = or.redactParts(ctx, pkg, pptSlidePart, pptDialect, inputPath, opts)
	default:
		count, err = or.redactParts(ctx, pkg, wordDocumentPart, wordDialect, inputPath, opts)
	}
	if err != nil {
		return 0, err
	}

	if err := pkg.Save(outputPath); err != nil {
		return 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to repackage office document", outputPath, or.GetComponentName(), err)
	}

	or.logEvent("office_document_repackaged", true, map[string]interface{}{
		"output_path": outputPath,
		"redactions":  count,
	})
	return count, nil
}

func (or *OfficeRedactor) open(inputPath string) (*Package, error) {
	ext := strings.ToLower(filepath.Ext(inputPath))
	if legacyExtensions[ext] {
		return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing,
			fmt.Sprintf("legacy binary %s format is not supported, save the file as %sx", ext, ext),
			inputPath, or.GetComponentName(), nil)
	}

	pkg, err := OpenPackage(inputPath)
	if err != nil {
		return nil, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to open office document", inputPath, or.GetComponentName(), err)
	}
	return pkg, nil
}

// redactParts rewrites every region of the matching parts, one count per changed region
func (or *OfficeRedactor) redactParts(ctx context.Context, pkg *Package, pattern *regexp.Regexp, d *dialect, inputPath string, opts redactors.Options) (int, error) {
	total := 0
	for _, name := range pkg.PartNames(pattern) {
		data, err := pkg.Read(name)
		if err != nil {
			return 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to read document part", inputPath, or.GetComponentName(), err)
		}

		edits, changes, err := or.rewriteRegions(ctx, data, d, inputPath, opts)
		if err != nil {
			return 0, err
		}
		if len(edits) > 0 {
			pkg.Write(name, applyEdits(data, edits))
		}
		total += len(changes)
	}
	return total, nil
}

type regionChange struct {
	index int
	spans int
}

// rewriteRegions analyzes every non-blank region of data and returns the edits
// for the regions whose text changed.
func (or *OfficeRedactor) rewriteRegions(ctx context.Context, data []byte, d *dialect, inputPath string, opts redactors.Options) ([]edit, []regionChange, error) {
	var (
		edits   []edit
		changes []regionChange
	)

	for i, r := range scanRegions(data, d) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		text := r.text(data, d)
		newText, spans, ok := or.transform(text, inputPath, opts)
		if !ok {
			continue
		}

		regionEdits, styled := r.styledEdits(data, d, newText)
		if !styled {
			or.observer.Warn(or.GetComponentName(), "format_preservation_fallback", map[string]interface{}{
				"file_path": inputPath,
				"error": redactors.NewRedactionError(redactors.ErrorFormatPreservation,
					"region has no styled run to reuse", inputPath, or.GetComponentName(), nil).Error(),
			})
			regionEdits = []edit{r.plainEdit(d, newText)}
		}

		edits = append(edits, regionEdits...)
		changes = append(changes, regionChange{index: i, spans: spans})
	}
	return edits, changes, nil
}

// transform runs the analyzer and operators over one region's text. It
// reports false when the region is blank, has no spans, cannot be analyzed or
// comes out unchanged.
func (or *OfficeRedactor) transform(text, inputPath string, opts redactors.Options) (string, int, bool) {
	if strings.TrimSpace(text) == "" {
		return "", 0, false
	}

	spans, err := or.analyzer.Analyze(text, opts.Language)
	if err != nil {
		or.observer.Warn(or.GetComponentName(), "analyze_region", map[string]interface{}{
			"file_path": inputPath,
			"error":     err.Error(),
		})
		return "", 0, false
	}
	if len(spans) == 0 {
		return "", 0, false
	}

	newText, _ := redactors.ApplySpans(text, spans, opts.Operators)
	if newText == text {
		return "", 0, false
	}
	return newText, len(spans), true
}

// ExtractText returns the document's text, one region per line
func (or *OfficeRedactor) ExtractText(inputPath string) (string, error) {
	pkg, err := or.open(inputPath)
	if err != nil {
		return "", err
	}
	defer pkg.Close()

	var lines []string
	collect := func(name string, d *dialect) error {
		data, err := pkg.Read(name)
		if err != nil {
			return err
		}
		for _, r := range scanRegions(data, d) {
			if text := r.text(data, d); strings.TrimSpace(text) != "" {
				lines = append(lines, text)
			}
		}
		return nil
	}

	switch or.kind {
	case DocumentTypeWord:
		for _, name := range pkg.PartNames(wordDocumentPart) {
			if err := collect(name, wordDialect); err != nil {
				return "", err
			}
		}
	case DocumentTypePPT:
		for _, name := range pkg.PartNames(pptSlidePart) {
			if err := collect(name, pptDialect); err != nil {
				return "", err
			}
		}
	case DocumentTypeExcel:
		text, err := extractWorkbookText(pkg)
		if err != nil {
			return "", err
		}
		return text, nil
	}

	return strings.Join(lines, "\n"), nil
}

// logEvent logs an event if observer is available
func (or *OfficeRedactor) logEvent(operation string, success bool, metadata map[string]interface{}) {
	if or.observer != nil {
		or.observer.StartTiming(or.GetComponentName(), operation, "")(success, metadata)
	}
}
