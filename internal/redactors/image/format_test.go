// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package image

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFormatMagicBytes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		header []byte
		want   ImageFormat
	}{
		{"a.bin", []byte{0xFF, 0xD8, 0xFF, 0xE0}, FormatJPEG},
		{"b.bin", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, FormatPNG},
		{"c.bin", []byte{'I', 'I', 0x2A, 0x00}, FormatTIFF},
		{"d.bin", []byte{'M', 'M', 0x00, 0x2A}, FormatTIFF},
		{"e.bin", []byte{'B', 'M', 0, 0}, FormatBMP},
		{"f.jpeg", []byte("nothing"), FormatJPEG},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		if err := os.WriteFile(path, tt.header, 0o600); err != nil {
			t.Fatal(err)
		}
		got, err := detectFormat(path)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}

	path := filepath.Join(dir, "g.bin")
	if err := os.WriteFile(path, []byte("plain"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := detectFormat(path); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestEncodeDecodeKeepsFormat(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 12, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			src.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}

	for _, format := range []ImageFormat{FormatPNG, FormatBMP, FormatTIFF, FormatJPEG} {
		path := filepath.Join(dir, "img."+format.String())
		if err := encodeFile(path, src, format); err != nil {
			t.Fatalf("%s: encode: %v", format, err)
		}
		got, gotFormat, err := decodeFile(path)
		if err != nil {
			t.Fatalf("%s: decode: %v", format, err)
		}
		if gotFormat != format {
			t.Errorf("format = %s, want %s", gotFormat, format)
		}
		if got.Bounds().Dx() != 12 || got.Bounds().Dy() != 9 {
			t.Errorf("%s: bounds = %v", format, got.Bounds())
		}
	}
}

func TestParseColor(t *testing.T) {
	if got := ParseColor(" Magenta "); got != (color.RGBA{255, 0, 255, 255}) {
		t.Errorf("magenta = %v", got)
	}
	if got := ParseColor("nope"); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("default = %v", got)
	}
}
