// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"errors"
	"strings"
)

// Rect is an axis-aligned box in PDF user space (origin bottom-left)
type Rect struct {
	X0, Y0, X1, Y1 float64
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union returns the smallest rect containing r and o
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// RGB is a device RGB color with components in [0,1]
type RGB struct {
	R, G, B float64
}

var (
	White = RGB{1, 1, 1}
	Black = RGB{0, 0, 0}
)

var fillColors = map[string]RGB{
	"white": White,
	"black": Black,
	"red":   {1, 0, 0},
	"blue":  {0, 0, 1},
	"green": {0, 1, 0},
	"gray":  {0.5, 0.5, 0.5},
}

// ParseColor maps a color name to its fill, ignoring case and surrounding
// space; unknown names give white
func ParseColor(name string) RGB {
	if c, ok := fillColors[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return White
}

// ErrUnencodable is returned by DrawText when the text cannot be shown with the overlay font
var ErrUnencodable = errors.New("text cannot be encoded in the overlay font")

// Document is an open PDF. Pages are numbered from 1. Drawing calls are
// buffered and written by Save.
type Document interface {
	PageCount() int
	PageText(page int) (string, error)

	// Search returns one rect per line of every occurrence of needle on the page
	Search(page int, needle string) ([]Rect, error)

	DrawRect(page int, r Rect, fill RGB) error
	DrawText(page int, x, y float64, text string, size float64, c RGB) error
	Save(outputPath string) error
	Close() error
}

// Codec opens PDF documents
type Codec interface {
	Open(path string) (Document, error)
}
