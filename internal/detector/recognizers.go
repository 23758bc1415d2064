// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"regexp"
	"strings"
)

// Recognizer is a single regex based entity pattern
type Recognizer struct {
	Name     string
	Category Category
	Pattern  *regexp.Regexp
	Score    float64

	// Language restricts the recognizer to one analysis language; "" applies to all
	Language string

	// Validate optionally rejects a regex match
	Validate func(match string) bool
}

func (r Recognizer) appliesTo(language string) bool {
	return r.Language == "" || strings.EqualFold(r.Language, language)
}

// DefaultRecognizers returns the built-in recognizer set
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		{
			Name:     "Chinese Phone",
			Category: CategoryPhone,
			Pattern:  regexp.MustCompile(`\b1[3-9]\d{9}\b`),
			Score:    0.8,
		},
		{
			Name:     "Chinese ID",
			Category: CategoryCreditCard,
			Pattern:  regexp.MustCompile(`\b[1-9]\d{5}(18|19|20)\d{2}(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])\d{3}[\dXx]\b`),
			Score:    0.9,
		},
		{
			Name:     "Email",
			Category: CategoryEmail,
			Pattern:  regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
			Score:    1.0,
		},
		{
			Name:     "Credit Card",
			Category: CategoryCreditCard,
			Pattern:  regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
			Score:    1.0,
			Validate: validCardNumber,
		},
		{
			Name:     "ISO Date",
			Category: CategoryDateTime,
			Pattern:  regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`),
			Score:    0.6,
		},
		{
			Name:     "Chinese Date",
			Category: CategoryDateTime,
			Pattern:  regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`),
			Score:    0.6,
		},
		{
			Name:     "US Phone",
			Category: CategoryPhone,
			Pattern:  regexp.MustCompile(`(?:\+1[-.\s]?)?\(?\b\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`),
			Score:    0.5,
			Language: "en",
		},
	}
}

func validCardNumber(match string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, match)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return LuhnValid(digits)
}

// LuhnValid reports whether a digit string passes the Luhn checksum
func LuhnValid(number string) bool {
	sum := 0
	isDouble := false

	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
		digit := int(number[i] - '0')

		if isDouble {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		isDouble = !isDouble
	}

	return sum%10 == 0
}
