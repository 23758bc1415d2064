// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

// Category is the entity type assigned to a detected span
type Category string

const (
	CategoryPerson     Category = "PERSON"
	CategoryPhone      Category = "PHONE_NUMBER"
	CategoryLocation   Category = "LOCATION"
	CategoryEmail      Category = "EMAIL_ADDRESS"
	CategoryDateTime   Category = "DATE_TIME"
	CategoryCreditCard Category = "CREDIT_CARD"
	CategoryBankNumber Category = "US_BANK_NUMBER"
	CategoryDefault    Category = "DEFAULT"
)

// Categories lists every category operators are configured for, DEFAULT last
func Categories() []Category {
	return []Category{
		CategoryPerson,
		CategoryPhone,
		CategoryLocation,
		CategoryEmail,
		CategoryDateTime,
		CategoryCreditCard,
		CategoryBankNumber,
		CategoryDefault,
	}
}

// Span is a detected sensitive range. Start and End are byte offsets into
// the analyzed string, End exclusive.
type Span struct {
	Category Category
	Start    int
	End      int
	Score    float64
}

// Len returns the span length in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Text returns the substring of text covered by the span, or "" when the
// offsets do not address text.
func (s Span) Text(text string) string {
	if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
		return ""
	}
	return text[s.Start:s.End]
}

// Analyzer finds sensitive spans in text. Implementations must be pure:
// the same text and language always give the same spans.
type Analyzer interface {
	Analyze(text, language string) ([]Span, error)
}
