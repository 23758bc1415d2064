// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"prikit/internal/detector"
	"prikit/internal/observability"
	"prikit/internal/redactors"
)

type zipEntry struct {
	name string
	body string
}

func writeZip(t *testing.T, path string, entries ...zipEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func readZipEntry(t *testing.T, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("entry %s not found in %s", name, path)
	return ""
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`

func docxFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeZip(t, path,
		zipEntry{"[Content_Types].xml", contentTypes},
		zipEntry{"_rels/.rels", `<Relationships/>`},
		zipEntry{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`},
	)
	return path
}

func pptxFile(t *testing.T, dir, name string, slides ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	entries := []zipEntry{{"[Content_Types].xml", contentTypes}}
	for i, body := range slides {
		entries = append(entries, zipEntry{
			name: "ppt/slides/slide" + string(rune('1'+i)) + ".xml",
			body: `<?xml version="1.0" encoding="UTF-8"?>` +
				`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
				`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>` +
				body + `</p:spTree></p:cSld></p:sld>`,
		})
	}
	writeZip(t, path, entries...)
	return path
}

func maskOptions(t *testing.T, ft redactors.FileType) redactors.Options {
	t.Helper()
	set, err := redactors.GetOperators(ft, redactors.StrategyMask, "", nil, observability.Nop())
	require.NoError(t, err)
	return redactors.Options{Strategy: redactors.StrategyMask, Operators: set, Language: "zh"}
}

func newAnalyzer() detector.Analyzer {
	return detector.NewPatternAnalyzer(observability.Nop())
}
