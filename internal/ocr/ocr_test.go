// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prikit/internal/observability"
	"prikit/internal/redactors"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t300\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t12\t60\t18\t96.5\tTel:\n" +
	"5\t1\t1\t1\t1\t2\t80\t12\t140\t18\t91\t13912345678\n" +
	"5\t1\t1\t1\t1\t3\t230\t12\t20\t18\t95\t \n"

func TestParseTSV(t *testing.T) {
	words, err := parseTSV([]byte(sampleTSV))
	require.NoError(t, err)
	require.Len(t, words, 2)

	assert.Equal(t, Word{Text: "Tel:", Confidence: 96.5, X: 10, Y: 12, Width: 60, Height: 18}, words[0])
	assert.Equal(t, "13912345678", words[1].Text)
	assert.Equal(t, 91.0, words[1].Confidence)
}

func TestParseTSV_Malformed(t *testing.T) {
	_, err := parseTSV([]byte("5\t1\t1\n"))
	assert.Error(t, err)

	_, err = parseTSV([]byte("5\t1\t1\t1\t1\t1\tx\t12\t60\t18\t96\tword\n"))
	assert.Error(t, err)

	words, err := parseTSV(nil)
	require.NoError(t, err)
	assert.Empty(t, words)
}

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "chi_sim+eng", LanguageFor("zh"))
	assert.Equal(t, "eng", LanguageFor("en"))
	assert.Equal(t, "eng", LanguageFor(""))
}

// fakeBinary writes a shell script standing in for tesseract
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700))
	return path
}

func TestTesseract_RecognizeWords(t *testing.T) {
	tsv := filepath.Join(t.TempDir(), "out.tsv")
	require.NoError(t, os.WriteFile(tsv, []byte(sampleTSV), 0o600))

	bin := fakeBinary(t, `if [ "$5" = "tsv" ]; then cat "`+tsv+`"; else echo "Tel: 13912345678"; fi`+"\n")
	engine := NewTesseract(bin, 5*time.Second, observability.Nop())
	assert.True(t, engine.Available())

	words, err := engine.RecognizeWords(context.Background(), "img.png", "eng")
	require.NoError(t, err)
	assert.Len(t, words, 2)

	text, err := engine.RecognizeText(context.Background(), "img.png", "eng")
	require.NoError(t, err)
	assert.Equal(t, "Tel: 13912345678", text)
}

func TestTesseract_FailureIsDocumentProcessing(t *testing.T) {
	bin := fakeBinary(t, "echo 'Error in pixReadStream' >&2\nexit 1\n")
	engine := NewTesseract(bin, 5*time.Second, observability.Nop())

	_, err := engine.RecognizeText(context.Background(), "broken.png", "eng")
	require.Error(t, err)
	assert.True(t, redactors.IsType(err, redactors.ErrorDocumentProcessing))
	assert.Contains(t, err.Error(), "OCR failed")
}

func TestTesseract_MissingBinary(t *testing.T) {
	engine := NewTesseract("prikit-no-such-tesseract", time.Second, observability.Nop())
	assert.False(t, engine.Available())

	_, err := engine.RecognizeWords(context.Background(), "img.png", "eng")
	require.Error(t, err)
	assert.True(t, redactors.IsType(err, redactors.ErrorOCRNotAvailable))
}
