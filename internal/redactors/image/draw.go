// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package image

import (
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var fillColors = map[string]color.RGBA{
	"white":   {255, 255, 255, 255},
	"black":   {0, 0, 0, 255},
	"red":     {255, 0, 0, 255},
	"blue":    {0, 0, 255, 255},
	"green":   {0, 255, 0, 255},
	"gray":    {128, 128, 128, 255},
	"yellow":  {255, 255, 0, 255},
	"cyan":    {0, 255, 255, 255},
	"magenta": {255, 0, 255, 255},
}

// ParseColor maps a color name to RGBA. Unknown names give white.
func ParseColor(name string) color.RGBA {
	if c, ok := fillColors[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return fillColors["white"]
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// FaceLoader returns a font face of the given pixel size
type FaceLoader func(size float64) (font.Face, error)

var (
	goRegularOnce sync.Once
	goRegular     *opentype.Font
	goRegularErr  error
)

// goRegularFace loads the bundled Go Regular font
func goRegularFace(size float64) (font.Face, error) {
	goRegularOnce.Do(func() {
		goRegular, goRegularErr = opentype.Parse(goregular.TTF)
	})
	if goRegularErr != nil {
		return nil, goRegularErr
	}
	return opentype.NewFace(goRegular, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// drawText renders s with its top-left corner at r.Min, clipped to r
func drawText(dst *image.RGBA, r image.Rectangle, face font.Face, s string, c color.Color) {
	clip, ok := dst.SubImage(r).(*image.RGBA)
	if !ok {
		return
	}
	d := &font.Drawer{
		Dst:  clip,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(r.Min.X, r.Min.Y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}
