// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prikit/internal/observability"
	"prikit/internal/redactors"
)

const shapeXML = `<p:sp><p:txBody><a:bodyPr/><a:lstStyle/>` +
	`<a:p><a:r><a:rPr lang="zh-CN" sz="1800"/><a:t>联系人电话</a:t></a:r></a:p>` +
	`<a:p><a:r><a:rPr b="1"/><a:t>139</a:t></a:r><a:r><a:t>12345678</a:t></a:r></a:p>` +
	`</p:txBody></p:sp>`

const tableXML = `<p:graphicFrame><a:graphic><a:graphicData><a:tbl><a:tr h="370840"><a:tc>` +
	`<a:txBody><a:bodyPr/><a:p><a:r><a:t>wang@example.com</a:t></a:r></a:p></a:txBody>` +
	`</a:tc></a:tr></a:tbl></a:graphicData></a:graphic></p:graphicFrame>`

func TestPPTRedactor_MaskKeepsParagraphs(t *testing.T) {
	dir := t.TempDir()
	input := pptxFile(t, dir, "deck.pptx", shapeXML, tableXML)
	output := filepath.Join(dir, "out.pptx")

	redactor := NewPPTRedactor(newAnalyzer(), observability.Nop())
	count, err := redactor.Redact(context.Background(), input, output, maskOptions(t, redactors.FileTypePPT))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	slide1 := readZipEntry(t, output, "ppt/slides/slide1.xml")
	assert.Contains(t, slide1, `<a:rPr lang="zh-CN" sz="1800"/><a:t>联系人电话</a:t>`)
	assert.Contains(t, slide1, `<a:rPr b="1"/><a:t>139********</a:t></a:r><a:r><a:t></a:t></a:r>`)

	slide2 := readZipEntry(t, output, "ppt/slides/slide2.xml")
	assert.Contains(t, slide2, `<a:t>wa**@example.com</a:t>`)

	text, err := redactor.ExtractText(output)
	require.NoError(t, err)
	assert.Equal(t, "联系人电话\n139********\nwa**@example.com", text)
}

func TestPPTRedactor_PlainRewriteWithoutRuns(t *testing.T) {
	dir := t.TempDir()
	shape := `<p:sp><p:txBody><a:bodyPr/><a:p><a:fld id="1"><a:t>13912345678</a:t></a:fld></a:p></p:txBody></p:sp>`
	input := pptxFile(t, dir, "fld.pptx", shape)
	output := filepath.Join(dir, "out.pptx")

	redactor := NewPPTRedactor(newAnalyzer(), observability.Nop())
	count, err := redactor.Redact(context.Background(), input, output, maskOptions(t, redactors.FileTypePPT))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	slide := readZipEntry(t, output, "ppt/slides/slide1.xml")
	assert.Contains(t, slide, `<p:txBody><a:bodyPr/><a:p><a:r><a:t>139********</a:t></a:r></a:p></p:txBody>`)
}

func TestPPTRedactor_SupportedTypes(t *testing.T) {
	redactor := NewPPTRedactor(newAnalyzer(), observability.Nop())
	assert.Equal(t, "ppt_redactor", redactor.GetName())
	assert.ElementsMatch(t, []string{".ppt", ".pptx"}, redactor.GetSupportedTypes())
}
