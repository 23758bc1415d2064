// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// FileType is the closed set of document families the redactors handle
type FileType string

const (
	FileTypePDF   FileType = "pdf"
	FileTypeWord  FileType = "word"
	FileTypeExcel FileType = "excel"
	FileTypeImage FileType = "image"
	FileTypePPT   FileType = "ppt"
)

// Strategy is an anonymization method requested by the caller
type Strategy string

const (
	// StrategyMask hides characters (text formats) or covers regions (visual formats)
	StrategyMask Strategy = "mask"
	// StrategyColor covers regions with a solid color
	StrategyColor Strategy = "color"
	// StrategyChar covers regions and overprints a replacement character
	StrategyChar Strategy = "char"
	// StrategyFake substitutes locale-appropriate synthetic values
	StrategyFake Strategy = "fake"
	// StrategyEncrypt substitutes deterministic ciphertext tokens
	StrategyEncrypt Strategy = "encrypt"
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	return string(s)
}

// ParseStrategy normalizes a method name. Unknown names are returned as-is
// so that support checks can report them.
func ParseStrategy(s string) Strategy {
	return Strategy(strings.ToLower(strings.TrimSpace(s)))
}

var fileTypeExtensions = map[FileType][]string{
	FileTypePDF:   {".pdf"},
	FileTypeWord:  {".docx", ".doc"},
	FileTypeExcel: {".xlsx", ".xls"},
	FileTypeImage: {".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif"},
	FileTypePPT:   {".pptx", ".ppt"},
}

var fileTypeMethods = map[FileType][]Strategy{
	FileTypePDF:   {StrategyMask, StrategyColor, StrategyChar},
	FileTypeWord:  {StrategyFake, StrategyMask, StrategyEncrypt},
	FileTypeExcel: {StrategyFake, StrategyMask, StrategyEncrypt},
	FileTypeImage: {StrategyMask, StrategyColor, StrategyChar},
	FileTypePPT:   {StrategyMask},
}

// FileTypes returns every supported file type in a stable order
func FileTypes() []FileType {
	return []FileType{FileTypePDF, FileTypeWord, FileTypeExcel, FileTypeImage, FileTypePPT}
}

// ParseFileType converts a name to a FileType
func ParseFileType(s string) (FileType, error) {
	ft := FileType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := fileTypeExtensions[ft]; !ok {
		return "", fmt.Errorf("unsupported file type: %s", s)
	}
	return ft, nil
}

// Extensions returns the accepted file extensions, lowercase with the dot
func (ft FileType) Extensions() []string {
	return append([]string(nil), fileTypeExtensions[ft]...)
}

// Methods returns the strategies the file type supports
func (ft FileType) Methods() []Strategy {
	return append([]Strategy(nil), fileTypeMethods[ft]...)
}

// MethodNames returns Methods as strings
func (ft FileType) MethodNames() []string {
	methods := fileTypeMethods[ft]
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return names
}

// SupportsMethod reports whether strategy is valid for the file type
func (ft FileType) SupportsMethod(strategy Strategy) bool {
	for _, m := range fileTypeMethods[ft] {
		if m == strategy {
			return true
		}
	}
	return false
}

// SupportsFile reports whether the path carries one of the type's extensions
func (ft FileType) SupportsFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range fileTypeExtensions[ft] {
		if e == ext {
			return true
		}
	}
	return false
}

// IsVisual reports whether the file type is redacted geometrically
func (ft FileType) IsVisual() bool {
	return ft == FileTypePDF || ft == FileTypeImage
}

// EncryptionSalt returns the fixed key-derivation salt for the file type
func (ft FileType) EncryptionSalt() string {
	switch ft {
	case FileTypeExcel:
		return "excel_anonymizer_salt"
	default:
		return "word_anonymizer_salt"
	}
}

// Options carries the per-call parameters for a redactor
type Options struct {
	// Strategy is the anonymization method
	Strategy Strategy

	// Operators transforms sensitive text; required by text formats
	Operators *OperatorSet

	// Color names the fill color for visual formats
	Color string

	// Char is the overprint character for the char strategy
	Char string

	// Language is passed to the analyzer and to OCR
	Language string
}

// Redactor interface defines the contract for all per-format redactors
type Redactor interface {
	// GetName returns the name of the redactor
	GetName() string

	// GetSupportedTypes returns the file extensions this redactor can handle
	GetSupportedTypes() []string

	// Redact writes an anonymized copy of inputPath to outputPath and returns
	// the number of redactions applied
	Redact(ctx context.Context, inputPath, outputPath string, opts Options) (int, error)

	// GetComponentName returns the component name for observability
	GetComponentName() string
}

// TextExtractor is implemented by redactors that can report a document's text
type TextExtractor interface {
	ExtractText(inputPath string) (string, error)
}
