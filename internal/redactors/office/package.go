// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// maxPartSize bounds a single decompressed XML part
const maxPartSize = 256 << 20

// Package is an opened OOXML container. Parts are loaded on demand and
// written back in their original order.
type Package struct {
	reader   *zip.ReadCloser
	parts    map[string][]byte
	modified map[string]bool
}

// OpenPackage opens an OOXML zip container
func OpenPackage(path string) (*Package, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP file: %w", err)
	}
	return &Package{
		reader:   reader,
		parts:    make(map[string][]byte),
		modified: make(map[string]bool),
	}, nil
}

// Close releases the underlying reader
func (p *Package) Close() error {
	return p.reader.Close()
}

// PartNames returns the names of parts matching pattern, in natural order
// so that slide10 sorts after slide2.
func (p *Package) PartNames(pattern *regexp.Regexp) []string {
	var names []string
	for _, f := range p.reader.File {
		if pattern.MatchString(f.Name) {
			names = append(names, f.Name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})
	return names
}

// HasPart reports whether the package contains name
func (p *Package) HasPart(name string) bool {
	for _, f := range p.reader.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Read returns the decompressed bytes of a part
func (p *Package) Read(name string) ([]byte, error) {
	if data, ok := p.parts[name]; ok {
		return data, nil
	}
	for _, f := range p.reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open part %s: %w", name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", name, err)
		}
		if len(data) > maxPartSize {
			return nil, fmt.Errorf("part %s exceeds %d bytes", name, maxPartSize)
		}
		p.parts[name] = data
		return data, nil
	}
	return nil, fmt.Errorf("part %s not found", name)
}

// Write replaces the content of a part
func (p *Package) Write(name string, data []byte) {
	p.parts[name] = data
	p.modified[name] = true
}

// Save writes the package to outputPath. Unmodified parts are copied
// without recompression.
func (p *Package) Save(outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0700); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outFile, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	zipWriter := zip.NewWriter(outFile)
	for _, f := range p.reader.File {
		if !p.modified[f.Name] {
			if err := zipWriter.Copy(f); err != nil {
				return fmt.Errorf("failed to copy ZIP entry %s: %w", f.Name, err)
			}
			continue
		}

		header := &zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		}
		fileWriter, err := zipWriter.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create ZIP entry for %s: %w", f.Name, err)
		}
		if _, err := fileWriter.Write(p.parts[f.Name]); err != nil {
			return fmt.Errorf("failed to write content for %s: %w", f.Name, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize ZIP: %w", err)
	}
	return outFile.Close()
}

var digitRun = regexp.MustCompile(`\d+`)

// naturalLess orders names by their first embedded number, then lexically
func naturalLess(a, b string) bool {
	la, lb := digitRun.FindStringIndex(a), digitRun.FindStringIndex(b)
	if la != nil && lb != nil && a[:la[0]] == b[:lb[0]] {
		na, nb := a[la[0]:la[1]], b[lb[0]:lb[1]]
		if len(na) != len(nb) {
			return len(na) < len(nb)
		}
	}
	return a < b
}
