// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prikit/internal/observability"
)

func TestAnalyze_BuiltInRecognizers(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())

	tests := []struct {
		name     string
		text     string
		language string
		want     Category
		match    string
	}{
		{"chinese mobile", "电话：13912345678，请联系", "zh", CategoryPhone, "13912345678"},
		{"chinese id", "身份证 11010519491231002X 已登记", "zh", CategoryCreditCard, "11010519491231002X"},
		{"email", "mail zhang.san@example.com now", "zh", CategoryEmail, "zhang.san@example.com"},
		{"card with separators", "card 4111 1111 1111 1111 ok", "en", CategoryCreditCard, "4111 1111 1111 1111"},
		{"iso date", "born 1990-05-17 in", "en", CategoryDateTime, "1990-05-17"},
		{"chinese date", "生于2001年3月4日", "zh", CategoryDateTime, "2001年3月4日"},
		{"us phone", "call (555) 123-4567 today", "en", CategoryPhone, "(555) 123-4567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, err := analyzer.Analyze(tt.text, tt.language)
			require.NoError(t, err)
			require.Len(t, spans, 1)
			assert.Equal(t, tt.want, spans[0].Category)
			assert.Equal(t, tt.match, spans[0].Text(tt.text))
		})
	}
}

func TestAnalyze_EmptyText(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())
	for _, text := range []string{"", "   ", "\n\t"} {
		spans, err := analyzer.Analyze(text, "zh")
		require.NoError(t, err)
		assert.Empty(t, spans)
	}
}

func TestAnalyze_RejectsLuhnFailure(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())
	spans, err := analyzer.Analyze("number 4111 1111 1111 1112", "en")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestAnalyze_LanguageScopedRecognizer(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())
	spans, err := analyzer.Analyze("call (555) 123-4567 today", "zh")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestAnalyze_SpansAreOrderedAndDisjoint(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())
	text := "张三 13912345678 lisi@example.org 2023-01-02 13800001111"
	spans, err := analyzer.Analyze(text, "zh")
	require.NoError(t, err)
	require.Len(t, spans, 4)

	for i := 1; i < len(spans); i++ {
		assert.Less(t, spans[i-1].Start, spans[i].Start)
		assert.False(t, spans[i-1].Overlaps(spans[i]))
	}
	assert.Equal(t, "13800001111", spans[3].Text(text))
}

func TestAnalyze_Deterministic(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())
	text := "13912345678 and a@b.cn"
	first, err := analyzer.Analyze(text, "zh")
	require.NoError(t, err)
	second, err := analyzer.Analyze(text, "zh")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCustomRecognizers(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())

	require.NoError(t, analyzer.AddRecognizer("EMPLOYEE_ID", `EMP-\d{5}`, 0.85, "zh"))
	assert.Contains(t, analyzer.SupportedEntities("zh"), "EMPLOYEE_ID")
	assert.NotContains(t, analyzer.SupportedEntities("en"), "EMPLOYEE_ID")

	spans, err := analyzer.Analyze("工号 EMP-12345", "zh")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, Category("EMPLOYEE_ID"), spans[0].Category)

	assert.Equal(t, 1, analyzer.RemoveRecognizer("EMPLOYEE_ID", "zh"))
	spans, err = analyzer.Analyze("工号 EMP-12345", "zh")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestAddRecognizer_Invalid(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())
	assert.Error(t, analyzer.AddRecognizer("", `\d+`, 0.5, ""))
	assert.Error(t, analyzer.AddRecognizer("X", `(`, 0.5, ""))
	assert.Error(t, analyzer.AddRecognizer("X", `\d+`, 1.5, ""))
}

func TestThresholdFiltersLowScores(t *testing.T) {
	analyzer := NewPatternAnalyzer(observability.Nop())
	require.NoError(t, analyzer.AddRecognizer("WEAK", `weak\d`, 0.3, ""))
	spans, err := analyzer.Analyze("weak1", "en")
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func TestResolveOverlaps_PrefersHigherScoreThenLonger(t *testing.T) {
	spans := resolveOverlaps([]Span{
		{Category: CategoryPhone, Start: 0, End: 11, Score: 0.8},
		{Category: CategoryCreditCard, Start: 0, End: 18, Score: 0.9},
		{Category: CategoryDateTime, Start: 20, End: 25, Score: 0.6},
		{Category: CategoryDateTime, Start: 20, End: 30, Score: 0.6},
	})
	require.Len(t, spans, 2)
	assert.Equal(t, CategoryCreditCard, spans[0].Category)
	assert.Equal(t, 30, spans[1].End)
}

func TestLuhnValid(t *testing.T) {
	assert.True(t, LuhnValid("4111111111111111"))
	assert.True(t, LuhnValid("79927398713"))
	assert.False(t, LuhnValid("4111111111111112"))
	assert.False(t, LuhnValid("41111a1111111111"))
}
