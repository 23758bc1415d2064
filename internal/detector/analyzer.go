// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"prikit/internal/observability"
)

// DefaultScoreThreshold is the minimum score a span needs to be reported
const DefaultScoreThreshold = 0.4

// PatternAnalyzer runs a registry of regex recognizers over text
type PatternAnalyzer struct {
	mu          sync.RWMutex
	recognizers []Recognizer
	threshold   float64
	observer    *observability.StandardObserver
}

// NewPatternAnalyzer creates an analyzer loaded with the built-in recognizers
func NewPatternAnalyzer(observer *observability.StandardObserver) *PatternAnalyzer {
	return &PatternAnalyzer{
		recognizers: DefaultRecognizers(),
		threshold:   DefaultScoreThreshold,
		observer:    observer,
	}
}

// GetComponentName returns the component name for observability
func (a *PatternAnalyzer) GetComponentName() string {
	return "detector"
}

// SetThreshold changes the minimum reported score
func (a *PatternAnalyzer) SetThreshold(threshold float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.threshold = threshold
}

// AddRecognizer registers a custom pattern for an entity type.
// An empty language applies the pattern to every language.
func (a *PatternAnalyzer) AddRecognizer(entity, pattern string, score float64, language string) error {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return fmt.Errorf("entity type cannot be empty")
	}
	if score < 0 || score > 1 {
		return fmt.Errorf("score %.2f for %s must be between 0 and 1", score, entity)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern for %s: %w", entity, err)
	}

	a.mu.Lock()
	a.recognizers = append(a.recognizers, Recognizer{
		Name:     "Custom " + entity,
		Category: Category(entity),
		Pattern:  re,
		Score:    score,
		Language: language,
	})
	a.mu.Unlock()

	a.observer.Debug(a.GetComponentName(), "add_recognizer", map[string]interface{}{
		"entity":   entity,
		"language": language,
	})
	return nil
}

// RemoveRecognizer drops every recognizer for the entity and language.
// It returns the number removed.
func (a *PatternAnalyzer) RemoveRecognizer(entity, language string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	kept := make([]Recognizer, 0, len(a.recognizers))
	removed := 0
	for _, r := range a.recognizers {
		if string(r.Category) == entity && strings.EqualFold(r.Language, language) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	a.recognizers = kept
	return removed
}

// SupportedEntities lists the entity types that can be reported for language
func (a *PatternAnalyzer) SupportedEntities(language string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	seen := make(map[string]bool)
	var entities []string
	for _, r := range a.recognizers {
		if !r.appliesTo(language) || seen[string(r.Category)] {
			continue
		}
		seen[string(r.Category)] = true
		entities = append(entities, string(r.Category))
	}
	sort.Strings(entities)
	return entities
}

// Analyze returns the non-overlapping spans found in text, ordered by start
// offset. Overlapping candidates are resolved in favour of the higher score,
// then the longer span.
func (a *PatternAnalyzer) Analyze(text, language string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	a.mu.RLock()
	recognizers := a.recognizers
	threshold := a.threshold
	a.mu.RUnlock()

	var candidates []Span
	for _, r := range recognizers {
		if !r.appliesTo(language) || r.Score < threshold {
			continue
		}
		for _, loc := range r.Pattern.FindAllStringIndex(text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			if r.Validate != nil && !r.Validate(text[loc[0]:loc[1]]) {
				continue
			}
			candidates = append(candidates, Span{
				Category: r.Category,
				Start:    loc[0],
				End:      loc[1],
				Score:    r.Score,
			})
		}
	}

	spans := resolveOverlaps(candidates)

	if len(spans) > 0 {
		a.observer.Debug(a.GetComponentName(), "analyze", map[string]interface{}{
			"language":   language,
			"span_count": len(spans),
		})
	}
	return spans, nil
}

func resolveOverlaps(candidates []Span) []Span {
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Len() != candidates[j].Len() {
			return candidates[i].Len() > candidates[j].Len()
		}
		return candidates[i].Start < candidates[j].Start
	})

	var accepted []Span
	for _, c := range candidates {
		overlaps := false
		for _, a := range accepted {
			if c.Overlaps(a) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, c)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}
