// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prikit/internal/detector"
	"prikit/internal/observability"
	"prikit/internal/redactors"
)

// writeTestPDF writes a one-page PDF showing each line in Helvetica 12pt
func writeTestPDF(t *testing.T, path string, lines ...string) {
	t.Helper()

	var stream strings.Builder
	stream.WriteString("BT /F1 12 Tf 72 720 Td")
	for i, l := range lines {
		if i > 0 {
			stream.WriteString(" 0 -20 Td")
		}
		fmt.Fprintf(&stream, " (%s) Tj", l)
	}
	stream.WriteString(" ET")

	widths := strings.TrimSpace(strings.Repeat("556 ", 126-32+1))
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", stream.Len(), stream.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestCodec_PageText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.pdf")
	writeTestPDF(t, path, "Name: Zhang San", "Tel: 13912345678")

	doc, err := NewCodec().Open(path)
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 1, doc.PageCount())
	text, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Contains(t, text, "Name: Zhang San")
	assert.Contains(t, text, "Tel: 13912345678")

	rects, err := doc.Search(1, "13912345678")
	require.NoError(t, err)
	require.Len(t, rects, 1)
	assert.Greater(t, rects[0].Width(), 0.0)
	assert.InDelta(t, 700, rects[0].Y0, 5)

	_, err = doc.PageText(2)
	assert.Error(t, err)
}

func TestCodec_MaskRemovesText(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	output := filepath.Join(dir, "out.pdf")
	writeTestPDF(t, input, "Name: Zhang San", "Tel: 13912345678")

	redactor := NewPDFRedactor(detector.NewPatternAnalyzer(observability.Nop()), observability.Nop())
	count, err := redactor.Redact(context.Background(), input, output, redactors.Options{Strategy: redactors.StrategyMask})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	text, err := redactor.ExtractText(output)
	require.NoError(t, err)
	assert.NotContains(t, text, "13912345678")
	assert.Contains(t, text, "Name: Zhang San")
}

func TestCodec_CharOverlay(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.pdf")
	output := filepath.Join(dir, "out.pdf")
	writeTestPDF(t, input, "Tel: 13912345678")

	redactor := NewPDFRedactor(detector.NewPatternAnalyzer(observability.Nop()), observability.Nop())
	_, err := redactor.Redact(context.Background(), input, output, redactors.Options{Strategy: redactors.StrategyChar, Char: "*"})
	require.NoError(t, err)

	text, err := redactor.ExtractText(output)
	require.NoError(t, err)
	assert.NotContains(t, text, "13912345678")
	assert.Contains(t, text, strings.Repeat("*", 11))
}

func TestCodec_RejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))

	_, err := NewCodec().Open(path)
	assert.Error(t, err)
}
