// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"math"
	"strings"
)

// glyph is one shown character run with its baseline origin
type glyph struct {
	s        string
	x, y     float64
	w        float64
	fontSize float64
}

func (g glyph) box() Rect {
	size := g.fontSize
	if size <= 0 {
		size = 10
	}
	return Rect{X0: g.x, Y0: g.y - 0.2*size, X1: g.x + g.w, Y1: g.y + 0.8*size}
}

// pageLayout is the reconstructed text of a page. owner maps every byte of
// text to the glyph that produced it, or -1 for inserted separators.
type pageLayout struct {
	text   string
	glyphs []glyph
	owner  []int
}

// buildLayout joins glyphs in content order, starting a new line when the
// baseline moves and inserting a space across horizontal gaps.
func buildLayout(glyphs []glyph) *pageLayout {
	var (
		b     strings.Builder
		owner []int
	)
	emit := func(s string, idx int) {
		b.WriteString(s)
		for range len(s) {
			owner = append(owner, idx)
		}
	}

	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			tol := math.Max(prev.fontSize, 1) * 0.5
			switch {
			case math.Abs(g.y-prev.y) > tol:
				emit("\n", -1)
			case g.x-(prev.x+prev.w) > math.Max(prev.fontSize, 1)*0.25 && prev.s != " " && g.s != " ":
				emit(" ", -1)
			}
		}
		emit(g.s, i)
	}

	return &pageLayout{text: b.String(), glyphs: glyphs, owner: owner}
}

// search returns the boxes of every occurrence of needle, one per line
func (l *pageLayout) search(needle string) []Rect {
	if needle == "" {
		return nil
	}

	var rects []Rect
	from := 0
	for {
		idx := strings.Index(l.text[from:], needle)
		if idx < 0 {
			return rects
		}
		start := from + idx
		rects = append(rects, l.boxes(start, start+len(needle))...)
		from = start + len(needle)
	}
}

func (l *pageLayout) boxes(start, end int) []Rect {
	var (
		rects   []Rect
		current Rect
		open    bool
		lastY   float64
		seen    = -1
	)
	for i := start; i < end; i++ {
		gi := l.owner[i]
		if gi < 0 || gi == seen {
			continue
		}
		seen = gi
		g := l.glyphs[gi]
		box := g.box()
		switch {
		case !open:
			current, open, lastY = box, true, g.y
		case math.Abs(g.y-lastY) > math.Max(g.fontSize, 1)*0.5:
			rects = append(rects, current)
			current, lastY = box, g.y
		default:
			current = current.Union(box)
		}
	}
	if open {
		rects = append(rects, current)
	}
	return rects
}
