// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package anonymizer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"prikit/internal/detector"
	"prikit/internal/observability"
	"prikit/internal/ocr"
	"prikit/internal/redactors"
	"prikit/internal/redactors/image"
	"prikit/internal/redactors/office"
	"prikit/internal/redactors/pdf"
)

// Manager maps file types to their anonymizers
type Manager struct {
	// anonymizers maps each registered file type to its anonymizer
	anonymizers map[redactors.FileType]*Anonymizer

	resolver *redactors.OutputResolver

	// observer handles observability and metrics
	observer *observability.StandardObserver

	// mutex protects concurrent access to anonymizers map
	mu sync.RWMutex

	// stats tracks processing statistics
	stats *Stats
}

// Stats tracks statistics for anonymization runs
type Stats struct {
	TotalFiles      int64                                 `json:"total_files"`
	SuccessfulFiles int64                                 `json:"successful_files"`
	FailedFiles     int64                                 `json:"failed_files"`
	TotalRedactions int64                                 `json:"total_redactions"`
	ProcessingTime  time.Duration                         `json:"processing_time_ns"`
	PerType         map[redactors.FileType]*FileTypeStats `json:"per_type"`
	StartTime       time.Time                             `json:"start_time"`
}

// FileTypeStats tracks statistics for one file type
type FileTypeStats struct {
	FilesProcessed  int64     `json:"files_processed"`
	SuccessfulCount int64     `json:"successful_count"`
	FailedCount     int64     `json:"failed_count"`
	TotalRedactions int64     `json:"total_redactions"`
	LastProcessedAt time.Time `json:"last_processed_at"`
}

// TypeInfo describes a supported file type for listings
type TypeInfo struct {
	Type       redactors.FileType `json:"type"`
	Extensions []string           `json:"extensions"`
	Methods    []string           `json:"methods"`
}

// NewManager creates an empty Manager writing into resolver's directory
func NewManager(resolver *redactors.OutputResolver, observer *observability.StandardObserver) *Manager {
	return &Manager{
		anonymizers: make(map[redactors.FileType]*Anonymizer),
		resolver:    resolver,
		observer:    observer,
		stats: &Stats{
			PerType:   make(map[redactors.FileType]*FileTypeStats),
			StartTime: time.Now(),
		},
	}
}

// NewDefaultManager registers the redactors for every supported file type
func NewDefaultManager(analyzer detector.Analyzer, engine ocr.Engine, resolver *redactors.OutputResolver, observer *observability.StandardObserver) *Manager {
	m := NewManager(resolver, observer)
	m.mustRegister(redactors.FileTypePDF, pdf.NewPDFRedactor(analyzer, observer))
	m.mustRegister(redactors.FileTypeWord, office.NewWordRedactor(analyzer, observer))
	m.mustRegister(redactors.FileTypeExcel, office.NewExcelRedactor(analyzer, observer))
	m.mustRegister(redactors.FileTypePPT, office.NewPPTRedactor(analyzer, observer))
	m.mustRegister(redactors.FileTypeImage, image.NewImageRedactor(engine, analyzer, observer))
	return m
}

func (m *Manager) mustRegister(ft redactors.FileType, redactor redactors.Redactor) {
	if err := m.Register(ft, redactor); err != nil {
		panic(err)
	}
}

// Register installs redactor as the implementation for ft
func (m *Manager) Register(ft redactors.FileType, redactor redactors.Redactor) error {
	if redactor == nil {
		return fmt.Errorf("redactor cannot be nil")
	}
	if _, err := redactors.ParseFileType(string(ft)); err != nil {
		return err
	}

	m.mu.Lock()
	m.anonymizers[ft] = New(ft, redactor, m.resolver, m.observer)
	total := len(m.anonymizers)
	m.mu.Unlock()

	m.updateStats(func(stats *Stats) {
		if _, ok := stats.PerType[ft]; !ok {
			stats.PerType[ft] = &FileTypeStats{}
		}
	})

	m.logEvent("redactor_registered", true, map[string]interface{}{
		"file_type":       string(ft),
		"redactor_name":   redactor.GetName(),
		"supported_types": redactor.GetSupportedTypes(),
		"total_redactors": total,
	})
	return nil
}

// Get returns the anonymizer for ft
func (m *Manager) Get(ft redactors.FileType) (*Anonymizer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.anonymizers[ft]
	if !ok {
		return nil, redactors.NewRedactionError(redactors.ErrorConfiguration,
			fmt.Sprintf("no anonymizer registered for file type: %s", ft), "", m.GetComponentName(), nil)
	}
	return a, nil
}

// SupportedTypes lists the registered file types in a stable order
func (m *Manager) SupportedTypes() []TypeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var types []TypeInfo
	for _, ft := range redactors.FileTypes() {
		if _, ok := m.anonymizers[ft]; !ok {
			continue
		}
		types = append(types, TypeInfo{Type: ft, Extensions: ft.Extensions(), Methods: ft.MethodNames()})
	}
	return types
}

// ProcessFile anonymizes one file of type ft
func (m *Manager) ProcessFile(ctx context.Context, ft redactors.FileType, input string, opts Options) (string, error) {
	a, err := m.Get(ft)
	if err != nil {
		return "", err
	}

	start := time.Now()
	output, count, err := a.process(ctx, input, opts)
	m.record(ft, []FileResult{{Input: input, Output: output, Redactions: count, Error: err}}, time.Since(start))
	return output, err
}

// ProcessFiles anonymizes a batch of files of type ft. workers > 1 selects
// the parallel path with fileTimeout per file.
func (m *Manager) ProcessFiles(ctx context.Context, ft redactors.FileType, inputs []string, opts Options, workers int, fileTimeout time.Duration) (*BatchResult, error) {
	a, err := m.Get(ft)
	if err != nil {
		return nil, err
	}

	var result *BatchResult
	if workers > 1 {
		result, err = a.ProcessManyParallel(ctx, inputs, opts, workers, fileTimeout)
	} else {
		result, err = a.ProcessMany(ctx, inputs, opts)
	}
	if err != nil {
		return nil, err
	}

	m.record(ft, result.Results, result.Duration)
	return result, nil
}

// ExtractText returns the text of a file of type ft
func (m *Manager) ExtractText(ft redactors.FileType, input string) (string, error) {
	a, err := m.Get(ft)
	if err != nil {
		return "", err
	}
	return a.ExtractText(input)
}

// GetStats returns a copy of the processing statistics
func (m *Manager) GetStats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		TotalFiles:      m.stats.TotalFiles,
		SuccessfulFiles: m.stats.SuccessfulFiles,
		FailedFiles:     m.stats.FailedFiles,
		TotalRedactions: m.stats.TotalRedactions,
		ProcessingTime:  m.stats.ProcessingTime,
		StartTime:       m.stats.StartTime,
		PerType:         make(map[redactors.FileType]*FileTypeStats),
	}
	for ft, s := range m.stats.PerType {
		copied := *s
		stats.PerType[ft] = &copied
	}
	return stats
}

func (m *Manager) record(ft redactors.FileType, results []FileResult, elapsed time.Duration) {
	m.updateStats(func(stats *Stats) {
		typeStats, ok := stats.PerType[ft]
		if !ok {
			typeStats = &FileTypeStats{}
			stats.PerType[ft] = typeStats
		}
		stats.ProcessingTime += elapsed
		typeStats.LastProcessedAt = time.Now()

		for _, r := range results {
			stats.TotalFiles++
			typeStats.FilesProcessed++
			if r.Succeeded() {
				stats.SuccessfulFiles++
				stats.TotalRedactions += int64(r.Redactions)
				typeStats.SuccessfulCount++
				typeStats.TotalRedactions += int64(r.Redactions)
			} else {
				stats.FailedFiles++
				typeStats.FailedCount++
			}
		}
	})
}

func (m *Manager) updateStats(updateFunc func(*Stats)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updateFunc(m.stats)
}

// logEvent logs an event if observer is available
func (m *Manager) logEvent(operation string, success bool, metadata map[string]interface{}) {
	if m.observer != nil {
		m.observer.StartTiming(m.GetComponentName(), operation, "")(success, metadata)
	}
}

// GetComponentName returns the component name for observability
func (m *Manager) GetComponentName() string {
	return "anonymization_manager"
}
