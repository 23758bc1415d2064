// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package image

import (
	"fmt"
	"os"
	"sort"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ImageInfo describes an image file
type ImageInfo struct {
	Format   string            `json:"format"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	FileSize int64             `json:"file_size"`
	EXIF     map[string]string `json:"exif,omitempty"`
}

// readEXIF returns the EXIF fields of a JPEG or TIFF file, or nil when it has none
func readEXIF(filePath string, format ImageFormat) map[string]string {
	if format != FormatJPEG && format != FormatTIFF {
		return nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return nil
	}

	fields := make(map[string]string)
	collect := walkFunc(func(name exif.FieldName, tag *tiff.Tag) error {
		if tag == nil {
			return nil
		}
		if v, err := tag.StringVal(); err == nil {
			fields[string(name)] = v
		} else {
			fields[string(name)] = fmt.Sprint(tag.Val)
		}
		return nil
	})
	if err := x.Walk(collect); err != nil {
		return nil
	}
	return fields
}

// walkFunc adapts a function to exif.Walker
type walkFunc func(exif.FieldName, *tiff.Tag) error

func (f walkFunc) Walk(name exif.FieldName, tag *tiff.Tag) error { return f(name, tag) }

func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
