// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ocr wraps the optical character recognition collaborator used by
// the image redactor.
package ocr

import "context"

// Word is one recognized token with its pixel box (origin top-left)
type Word struct {
	Text       string
	Confidence float64
	X          int
	Y          int
	Width      int
	Height     int
}

// Engine recognizes text in image files
type Engine interface {
	// RecognizeText returns the full text of the image
	RecognizeText(ctx context.Context, imagePath, lang string) (string, error)

	// RecognizeWords returns word-level tokens with boxes and confidences
	RecognizeWords(ctx context.Context, imagePath, lang string) ([]Word, error)
}

// LanguageFor maps an analysis language to the OCR language pack
func LanguageFor(language string) string {
	if language == "zh" {
		return "chi_sim+eng"
	}
	return "eng"
}
