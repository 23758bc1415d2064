// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFileTypeTables(t *testing.T) {
	tests := []struct {
		ft      FileType
		file    string
		methods []Strategy
	}{
		{FileTypePDF, "a.PDF", []Strategy{StrategyMask, StrategyColor, StrategyChar}},
		{FileTypeWord, "a.doc", []Strategy{StrategyFake, StrategyMask, StrategyEncrypt}},
		{FileTypeExcel, "a.xlsx", []Strategy{StrategyFake, StrategyMask, StrategyEncrypt}},
		{FileTypeImage, "a.tif", []Strategy{StrategyMask, StrategyColor, StrategyChar}},
		{FileTypePPT, "a.pptx", []Strategy{StrategyMask}},
	}
	for _, tt := range tests {
		if !tt.ft.SupportsFile(tt.file) {
			t.Errorf("%s should support %s", tt.ft, tt.file)
		}
		for _, m := range tt.methods {
			if !tt.ft.SupportsMethod(m) {
				t.Errorf("%s should support %s", tt.ft, m)
			}
		}
		if len(tt.ft.Methods()) != len(tt.methods) {
			t.Errorf("%s methods = %v", tt.ft, tt.ft.Methods())
		}
	}

	if FileTypePDF.SupportsFile("a.docx") {
		t.Error("pdf must not accept .docx")
	}
	if FileTypePPT.SupportsMethod(StrategyFake) {
		t.Error("ppt must not support fake")
	}
}

func TestParseFileType(t *testing.T) {
	ft, err := ParseFileType(" Excel ")
	if err != nil || ft != FileTypeExcel {
		t.Fatalf("ParseFileType = %v, %v", ft, err)
	}
	if _, err := ParseFileType("video"); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestErrorClassification(t *testing.T) {
	base := NewFileValidationError("/tmp/x.pdf", "file does not exist")
	wrapped := fmt.Errorf("process: %w", base)

	if !IsType(wrapped, ErrorFileValidation) {
		t.Error("wrapped error should keep its type")
	}
	if !IsValidation(wrapped) {
		t.Error("file validation is a validation error")
	}
	if IsValidation(NewRedactionError(ErrorOCRNotAvailable, "missing", "", "ocr", nil)) {
		t.Error("ocr errors are not validation errors")
	}
	if !IsType(&BatchError{FailedFiles: []string{"a"}}, ErrorBatchProcessing) {
		t.Error("batch error type")
	}

	cause := errors.New("disk full")
	re := NewRedactionError(ErrorDocumentProcessing, "save failed", "out.docx", "word", cause)
	if !errors.Is(re, cause) {
		t.Error("cause should unwrap")
	}
}
