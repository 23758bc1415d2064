// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"prikit/internal/detector"
)

func TestResolveLocale(t *testing.T) {
	tests := map[string]Locale{
		"zh":      LocaleZhCN,
		"zh_CN":   LocaleZhCN,
		"zh-CN":   LocaleZhCN,
		"en":      LocaleEnUS,
		"en_US":   LocaleEnUS,
		"fr":      LocaleEnUS,
		"garbage": LocaleEnUS,
	}
	for lang, want := range tests {
		assert.Equal(t, want, ResolveLocale(lang), lang)
	}
}

func TestFaker_ZhCN(t *testing.T) {
	f := NewSeededFaker("zh", 42)

	assert.Regexp(t, regexp.MustCompile(`^1[3-9]\d{9}$`), f.PhoneNumber())
	assert.True(t, strings.HasSuffix(f.Location(), "市"))
	assert.NotEmpty(t, f.Name())
	assert.Regexp(t, regexp.MustCompile(`@example\.(com|net|org)$`), f.SafeEmail())
}

func TestFaker_EnUS(t *testing.T) {
	f := NewSeededFaker("en", 7)
	assert.Equal(t, LocaleEnUS, f.Locale())
	assert.Contains(t, f.Name(), " ")
	assert.Contains(t, f.Location(), ", ")
	assert.Regexp(t, regexp.MustCompile(`\d{3}.*\d{4}$`), f.PhoneNumber())
}

func TestFaker_PastDate(t *testing.T) {
	f := NewSeededFaker("zh", 3)
	fixed := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	for i := 0; i < 20; i++ {
		d, err := time.Parse("2006-01-02", f.PastDate())
		assert.NoError(t, err)
		assert.True(t, d.Before(fixed))
		assert.True(t, d.After(fixed.AddDate(0, 0, -31)))
	}
}

func TestFaker_CreditCardIsLuhnValid(t *testing.T) {
	f := NewSeededFaker("en", 99)
	for i := 0; i < 50; i++ {
		number := f.CreditCardNumber()
		assert.Len(t, number, 16)
		assert.True(t, detector.LuhnValid(number), number)
	}
}

func TestFaker_SeedIsDeterministic(t *testing.T) {
	a := NewSeededFaker("zh", 5)
	b := NewSeededFaker("zh", 5)
	for _, c := range detector.Categories() {
		assert.Equal(t, a.Value(c), b.Value(c))
	}
	assert.Equal(t, "***", a.Value(detector.CategoryDefault))
}
