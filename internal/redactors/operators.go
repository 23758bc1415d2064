// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"sort"
	"strings"

	"prikit/internal/detector"
	"prikit/internal/observability"
)

// Operator is a text transformation bound to an entity category.
// The variants are Mask, Fake, Encrypt and Replace.
type Operator interface {
	operator()
}

// Mask keeps the first Keep characters and replaces the rest with '*'.
// With LocalPartOnly only the part before the first '@' is masked.
type Mask struct {
	Keep          int
	LocalPartOnly bool
}

// Fake substitutes a synthetic value for the category
type Fake struct {
	Category detector.Category
}

// Encrypt substitutes a deterministic ciphertext token
type Encrypt struct {
	key []byte
}

// Replace substitutes a fixed literal
type Replace struct {
	Literal string
}

func (Mask) operator()    {}
func (Fake) operator()    {}
func (Encrypt) operator() {}
func (Replace) operator() {}

var maskKeep = map[detector.Category]int{
	detector.CategoryPerson:     1,
	detector.CategoryPhone:      3,
	detector.CategoryLocation:   2,
	detector.CategoryDateTime:   4,
	detector.CategoryCreditCard: 4,
	detector.CategoryBankNumber: 4,
	detector.CategoryDefault:    2,
}

// OperatorSet maps categories to operators for one anonymization call
type OperatorSet struct {
	operators map[detector.Category]Operator
	faker     *Faker
	observer  *observability.StandardObserver
}

// GetOperators builds the operator set for a text-bearing file type.
// faker is required for the fake strategy.
func GetOperators(ft FileType, strategy Strategy, key string, faker *Faker, observer *observability.StandardObserver) (*OperatorSet, error) {
	if ft.IsVisual() || !ft.SupportsMethod(strategy) {
		return nil, NewMethodNotSupportedError(ft, strategy)
	}

	set := &OperatorSet{
		operators: make(map[detector.Category]Operator),
		faker:     faker,
		observer:  observer,
	}

	switch strategy {
	case StrategyMask:
		for category, keep := range maskKeep {
			set.operators[category] = Mask{Keep: keep}
		}
		set.operators[detector.CategoryEmail] = Mask{Keep: 2, LocalPartOnly: true}

	case StrategyFake:
		if faker == nil {
			faker = NewFaker("zh")
			set.faker = faker
		}
		for _, category := range detector.Categories() {
			set.operators[category] = Fake{Category: category}
		}
		set.operators[detector.CategoryDefault] = Replace{Literal: "***"}

	case StrategyEncrypt:
		if err := ValidateEncryptionKey(key); err != nil {
			return nil, err
		}
		op := Encrypt{key: DeriveKey(key, ft.EncryptionSalt())}
		for _, category := range detector.Categories() {
			set.operators[category] = op
		}
	}

	return set, nil
}

// Operator returns the operator for category, falling back to DEFAULT
func (s *OperatorSet) Operator(category detector.Category) Operator {
	if op, ok := s.operators[category]; ok {
		return op
	}
	return s.operators[detector.CategoryDefault]
}

// Transform applies the category's operator to text
func (s *OperatorSet) Transform(category detector.Category, text string) string {
	op := s.Operator(category)
	if op == nil {
		return text
	}
	return s.Apply(op, text)
}

// Apply evaluates a single operator against text
func (s *OperatorSet) Apply(op Operator, text string) string {
	switch o := op.(type) {
	case Mask:
		if o.LocalPartOnly {
			return maskEmail(text, o.Keep)
		}
		return maskText(text, o.Keep)

	case Fake:
		if s.faker == nil {
			return "***"
		}
		return s.faker.Value(o.Category)

	case Encrypt:
		if text == "" {
			return text
		}
		token, err := EncryptDeterministic(o.key, text)
		if err != nil {
			s.observer.Error("operators", "encrypt", map[string]interface{}{"error": err.Error()})
			return text
		}
		return token

	case Replace:
		return o.Literal

	default:
		return text
	}
}

func maskText(text string, keep int) string {
	runes := []rune(text)
	if len(runes) == 0 || len(runes) <= keep {
		return text
	}
	return string(runes[:keep]) + strings.Repeat("*", len(runes)-keep)
}

func maskEmail(text string, keep int) string {
	local, domain, found := strings.Cut(text, "@")
	if !found {
		return maskText(text, keep)
	}
	return maskText(local, keep) + "@" + domain
}

// ApplySpans rewrites every span of text with the set's operators and returns
// the new text with the number of spans applied. Spans are taken in the order
// given; a span that overlaps one already taken, or that does not address
// text, is skipped.
func ApplySpans(text string, spans []detector.Span, set *OperatorSet) (string, int) {
	type replacement struct {
		span detector.Span
		text string
	}

	var taken []replacement
	for _, span := range spans {
		if span.Start < 0 || span.End > len(text) || span.Start >= span.End {
			continue
		}
		overlaps := false
		for _, r := range taken {
			if span.Overlaps(r.span) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		taken = append(taken, replacement{
			span: span,
			text: set.Transform(span.Category, text[span.Start:span.End]),
		})
	}

	if len(taken) == 0 {
		return text, 0
	}

	sort.Slice(taken, func(i, j int) bool {
		return taken[i].span.Start < taken[j].span.Start
	})

	var b strings.Builder
	prev := 0
	for _, r := range taken {
		b.WriteString(text[prev:r.span.Start])
		b.WriteString(r.text)
		prev = r.span.End
	}
	b.WriteString(text[prev:])

	return b.String(), len(taken)
}
