// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"context"
	"errors"
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

type drawCall struct {
	kind string
	page int
	rect Rect
	fill RGB
	text string
	size float64
	x, y float64
}

type fakeDocument struct {
	pages      []string
	rects      map[string][]Rect
	noFont     bool
	calls      []drawCall
	searches   []string
	savedTo    string
	closed     bool
	saveFailed bool

	// per-page collaborator failures
	textFails   map[int]bool
	searchFails map[int]bool
	drawFails   map[int]bool
}

var errPageCodec = errors.New("codec failure")

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) PageText(page int) (string, error) {
	if d.textFails[page] {
		return "", errPageCodec
	}
	return d.pages[page-1], nil
}

func (d *fakeDocument) Search(page int, needle string) ([]Rect, error) {
	d.searches = append(d.searches, needle)
	if d.searchFails[page] {
		return nil, errPageCodec
	}
	return d.rects[needle], nil
}

func (d *fakeDocument) DrawRect(page int, r Rect, fill RGB) error {
	if d.drawFails[page] {
		return errPageCodec
	}
	d.calls = append(d.calls, drawCall{kind: "rect", page: page, rect: r, fill: fill})
	return nil
}

func (d *fakeDocument) DrawText(page int, x, y float64, text string, size float64, c RGB) error {
	if d.noFont {
		return ErrUnencodable
	}
	d.calls = append(d.calls, drawCall{kind: "text", page: page, text: text, size: size, x: x, y: y, fill: c})
	return nil
}

func (d *fakeDocument) Save(outputPath string) error {
	if d.saveFailed {
		return errors.New("disk full")
	}
	d.savedTo = outputPath
	return os.WriteFile(outputPath, []byte("%PDF-1.4\n"), 0o600)
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

type fakeCodec struct {
	doc *fakeDocument
	err error
}

func (c *fakeCodec) Open(string) (Document, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.doc, nil
}

func newRedactor(doc *fakeDocument) *PDFRedactor {
	return NewPDFRedactorWithCodec(&fakeCodec{doc: doc}, detector.NewPatternAnalyzer(observability.Nop()), observability.Nop())
}

func phoneDoc() *fakeDocument {
	return &fakeDocument{
		pages: []string{
			"Tel: 13912345678 / 13912345678",
			"   ",
			"mail zhang@example.com and 13800001111",
		},
		rects: map[string][]Rect{
			"13912345678":       {{100, 700, 166, 712}, {200, 700, 266, 712}},
			"zhang@example.com": {{72, 650, 174, 662}},
		},
	}
}

func TestPDFRedactor_ColorFillsEveryOccurrence(t *testing.T) {
	doc := phoneDoc()
	out := filepath.Join(t.TempDir(), "out.pdf")

	count, err := newRedactor(doc).Redact(context.Background(), "in.pdf", out, redactors.Options{
		Strategy: redactors.StrategyColor, Color: "red", Language: "zh",
	})
	require.NoError(t, err)

	// page 1 has two identical spans, page 3 an email and an unlocatable phone
	assert.Equal(t, 4, count)
	assert.Equal(t, out, doc.savedTo)
	assert.True(t, doc.closed)

	var fills []drawCall
	for _, c := range doc.calls {
		require.Equal(t, "rect", c.kind)
		fills = append(fills, c)
	}
	// each located occurrence is drawn once per span that names it
	assert.Len(t, fills, 5)
	for _, c := range fills {
		assert.Equal(t, RGB{1, 0, 0}, c.fill)
	}
	assert.Contains(t, doc.searches, "13800001111")
}

func TestPDFRedactor_MaskDefaultsToWhite(t *testing.T) {
	doc := phoneDoc()
	_, err := newRedactor(doc).Redact(context.Background(), "in.pdf", filepath.Join(t.TempDir(), "o.pdf"),
		redactors.Options{Strategy: redactors.StrategyMask})
	require.NoError(t, err)
	require.NotEmpty(t, doc.calls)
	for _, c := range doc.calls {
		assert.Equal(t, White, c.fill)
	}
}

func TestPDFRedactor_CharOverlay(t *testing.T) {
	doc := &fakeDocument{
		pages: []string{"Tel: 13912345678"},
		rects: map[string][]Rect{"13912345678": {{100, 700, 166, 712}}},
	}

	_, err := newRedactor(doc).Redact(context.Background(), "in.pdf", filepath.Join(t.TempDir(), "o.pdf"),
		redactors.Options{Strategy: redactors.StrategyChar, Char: "#"})
	require.NoError(t, err)

	require.Len(t, doc.calls, 2)
	assert.Equal(t, "rect", doc.calls[0].kind)
	assert.Equal(t, White, doc.calls[0].fill)

	text := doc.calls[1]
	assert.Equal(t, "text", text.kind)
	assert.Equal(t, strings.Repeat("#", 11), text.text)
	assert.InDelta(t, 66/(11*0.6), text.size, 1e-9)
	assert.InDelta(t, 706-text.size*0.35, text.y, 1e-9)
	assert.Equal(t, 100.0, text.x)
	assert.Equal(t, Black, text.fill)
}

func TestPDFRedactor_CharCapsCountAndSize(t *testing.T) {
	email := "averyveryverylongname@example.com"
	doc := &fakeDocument{
		pages: []string{"mail " + email},
		rects: map[string][]Rect{email: {{0, 0, 1000, 40}}},
	}

	_, err := newRedactor(doc).Redact(context.Background(), "in.pdf", filepath.Join(t.TempDir(), "o.pdf"),
		redactors.Options{Strategy: redactors.StrategyChar})
	require.NoError(t, err)
	require.Len(t, doc.calls, 2)
	assert.Equal(t, strings.Repeat("*", 20), doc.calls[1].text)
	assert.Equal(t, 20.0, doc.calls[1].size)
}

func TestPDFRedactor_CharFallsBackToBlock(t *testing.T) {
	doc := &fakeDocument{
		pages:  []string{"Tel: 13912345678"},
		rects:  map[string][]Rect{"13912345678": {{100, 700, 166, 712}}},
		noFont: true,
	}

	_, err := newRedactor(doc).Redact(context.Background(), "in.pdf", filepath.Join(t.TempDir(), "o.pdf"),
		redactors.Options{Strategy: redactors.StrategyChar, Char: "█"})
	require.NoError(t, err)
	require.Len(t, doc.calls, 2)
	assert.Equal(t, White, doc.calls[0].fill)
	assert.Equal(t, Black, doc.calls[1].fill)
	assert.Equal(t, Rect{100, 700, 166, 712}, doc.calls[1].rect)
}

func TestPDFRedactor_Errors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "o.pdf")

	_, err := newRedactor(phoneDoc()).Redact(context.Background(), "in.pdf", out, redactors.Options{Strategy: redactors.StrategyFake})
	assert.True(t, redactors.IsType(err, redactors.ErrorMethodNotSupported))

	r := NewPDFRedactorWithCodec(&fakeCodec{err: errors.New("not a pdf")}, detector.NewPatternAnalyzer(observability.Nop()), observability.Nop())
	_, err = r.Redact(context.Background(), "in.pdf", out, redactors.Options{Strategy: redactors.StrategyMask})
	assert.True(t, redactors.IsType(err, redactors.ErrorDocumentProcessing))

	doc := phoneDoc()
	doc.saveFailed = true
	_, err = newRedactor(doc).Redact(context.Background(), "in.pdf", out, redactors.Options{Strategy: redactors.StrategyMask})
	assert.True(t, redactors.IsType(err, redactors.ErrorDocumentProcessing))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newRedactor(phoneDoc()).Redact(ctx, "in.pdf", out, redactors.Options{Strategy: redactors.StrategyMask})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPDFRedactor_PageFailuresDoNotAbortDocument(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeDocument)
	}{
		{"page text", func(d *fakeDocument) { d.textFails = map[int]bool{1: true} }},
		{"search", func(d *fakeDocument) { d.searchFails = map[int]bool{1: true} }},
		{"draw", func(d *fakeDocument) { d.drawFails = map[int]bool{1: true} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := phoneDoc()
			tt.mutate(doc)
			out := filepath.Join(t.TempDir(), "out.pdf")

			count, err := newRedactor(doc).Redact(context.Background(), "in.pdf", out,
				redactors.Options{Strategy: redactors.StrategyColor, Color: "black"})
			require.NoError(t, err)

			// page 1 contributes nothing, page 3 keeps its two spans
			assert.Equal(t, 2, count)
			assert.Equal(t, out, doc.savedTo)
			require.Len(t, doc.calls, 1)
			assert.Equal(t, 3, doc.calls[0].page)
			assert.Equal(t, Rect{72, 650, 174, 662}, doc.calls[0].rect)
		})
	}
}

func TestPDFRedactor_ExtractText(t *testing.T) {
	text, err := newRedactor(phoneDoc()).ExtractText("in.pdf")
	require.NoError(t, err)
	assert.Equal(t, "\n--- Page 1 ---\nTel: 13912345678 / 13912345678\n"+
		"\n--- Page 3 ---\nmail zhang@example.com and 13800001111\n", text)

	n, err := newRedactor(phoneDoc()).PageCount("in.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
