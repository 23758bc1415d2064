// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package anonymizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"prikit/internal/observability"
	"prikit/internal/redactors"
)

// stubRedactor copies the input with a marker and records the options it saw
type stubRedactor struct {
	mu    sync.Mutex
	seen  []redactors.Options
	fail  map[string]error
	block map[string]bool
	count int
}

func (s *stubRedactor) GetName() string             { return "stub_redactor" }
func (s *stubRedactor) GetComponentName() string    { return "stub_redactor" }
func (s *stubRedactor) GetSupportedTypes() []string { return []string{".docx"} }

func (s *stubRedactor) Redact(ctx context.Context, inputPath, outputPath string, opts redactors.Options) (int, error) {
	s.mu.Lock()
	s.seen = append(s.seen, opts)
	failErr := s.fail[filepath.Base(inputPath)]
	blocked := s.block[filepath.Base(inputPath)]
	s.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if failErr != nil {
		// leave a partial output behind, as a crashed codec would
		_ = os.WriteFile(outputPath, []byte("partial"), 0600)
		return 0, failErr
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(outputPath, append([]byte("redacted:"), data...), 0600); err != nil {
		return 0, err
	}
	return s.count, nil
}

func (s *stubRedactor) ExtractText(inputPath string) (string, error) {
	data, err := os.ReadFile(inputPath)
	return strings.ToUpper(string(data)), err
}

func (s *stubRedactor) options() []redactors.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]redactors.Options(nil), s.seen...)
}

var errCodec = errors.New("codec exploded")

func newStubAnonymizer(t *testing.T, ft redactors.FileType) (*Anonymizer, *stubRedactor, string) {
	t.Helper()
	outDir := filepath.Join(t.TempDir(), "out")
	resolver, err := redactors.NewOutputResolver(outDir, observability.Nop())
	require.NoError(t, err)
	stub := &stubRedactor{fail: map[string]error{}, block: map[string]bool{}, count: 2}
	return New(ft, stub, resolver, observability.Nop()), stub, outDir
}

func writeInput(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
