// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultFillColor is used for unknown color names
const DefaultFillColor = "white"

// fillColorNames is the union of the colors the PDF and image redactors draw
var fillColorNames = map[string]bool{
	"white":   true,
	"black":   true,
	"red":     true,
	"blue":    true,
	"green":   true,
	"gray":    true,
	"yellow":  true,
	"cyan":    true,
	"magenta": true,
}

// NormalizeColor lowercases and trims name. Empty stays empty; a name
// outside the fill palette becomes DefaultFillColor.
func NormalizeColor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if !fillColorNames[name] {
		return DefaultFillColor
	}
	return name
}

// ValidateChar checks a replacement character. Empty means the default.
// Anything else must be a single printable rune that is not a path separator.
func ValidateChar(char string) error {
	if char == "" {
		return nil
	}
	r, size := utf8.DecodeRuneInString(char)
	if r == utf8.RuneError || size != len(char) {
		return NewRedactionError(ErrorInvalidOption, fmt.Sprintf("replacement character must be a single character, got %q", char), "", "params", nil)
	}
	if r == '/' || r == '\\' || !unicode.IsPrint(r) {
		return NewRedactionError(ErrorInvalidOption, fmt.Sprintf("replacement character %q is not allowed", char), "", "params", nil)
	}
	return nil
}
