// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"bytes"
	"fmt"
	"sort"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// overlayFont is the resource name of the Helvetica font added for char overlays
const overlayFont = "PrikitHelv"

// pdfCodec reads glyph geometry with ledongthuc/pdf and rewrites page
// content with pdfcpu.
type pdfCodec struct {
	conf *model.Configuration
}

// NewCodec returns the default PDF codec
func NewCodec() Codec {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &pdfCodec{conf: conf}
}

func (c *pdfCodec) Open(path string) (Document, error) {
	if err := api.ValidateFile(path, c.conf); err != nil {
		return nil, fmt.Errorf("invalid PDF file: %w", err)
	}

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	layouts, err := readLayouts(path)
	if err != nil {
		return nil, err
	}

	return &document{ctx: ctx, layouts: layouts, pages: make(map[int]*pageEdits)}, nil
}

// readLayouts extracts per-page glyphs. The text reader panics on some
// malformed streams, so panics are turned into errors.
func readLayouts(path string) (layouts []*pageLayout, err error) {
	defer func() {
		if r := recover(); r != nil {
			layouts, err = nil, fmt.Errorf("failed to read PDF text: %v", r)
		}
	}()

	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	layouts = make([]*pageLayout, r.NumPage())
	for i := range layouts {
		p := r.Page(i + 1)
		if p.V.IsNull() {
			layouts[i] = buildLayout(nil)
			continue
		}
		content := p.Content()
		glyphs := make([]glyph, 0, len(content.Text))
		for _, t := range content.Text {
			glyphs = append(glyphs, glyph{s: t.S, x: t.X, y: t.Y, w: t.W, fontSize: t.FontSize})
		}
		layouts[i] = buildLayout(glyphs)
	}
	return layouts, nil
}

type pageEdits struct {
	needles  []string
	overlay  bytes.Buffer
	needFont bool
}

type document struct {
	ctx     *model.Context
	layouts []*pageLayout
	pages   map[int]*pageEdits
	fontRef *types.IndirectRef
}

func (d *document) PageCount() int {
	return len(d.layouts)
}

func (d *document) layout(page int) (*pageLayout, error) {
	if page < 1 || page > len(d.layouts) {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, len(d.layouts))
	}
	return d.layouts[page-1], nil
}

func (d *document) edits(page int) *pageEdits {
	pe, ok := d.pages[page]
	if !ok {
		pe = &pageEdits{}
		d.pages[page] = pe
	}
	return pe
}

func (d *document) PageText(page int) (string, error) {
	l, err := d.layout(page)
	if err != nil {
		return "", err
	}
	return l.text, nil
}

// Search also marks every located needle for removal from the page's
// content stream when the document is saved.
func (d *document) Search(page int, needle string) ([]Rect, error) {
	l, err := d.layout(page)
	if err != nil {
		return nil, err
	}
	rects := l.search(needle)
	if len(rects) > 0 {
		pe := d.edits(page)
		pe.needles = append(pe.needles, needle)
	}
	return rects, nil
}

func (d *document) DrawRect(page int, r Rect, fill RGB) error {
	if _, err := d.layout(page); err != nil {
		return err
	}
	d.edits(page).overlay.WriteString(rectOps(r, fill))
	return nil
}

func (d *document) DrawText(page int, x, y float64, text string, size float64, c RGB) error {
	if _, err := d.layout(page); err != nil {
		return err
	}
	encoded, ok := encodeWinAnsi(text)
	if !ok {
		return ErrUnencodable
	}
	pe := d.edits(page)
	pe.needFont = true
	pe.overlay.WriteString(textOps(overlayFont, x, y, encoded, size, c))
	return nil
}

func (d *document) Save(outputPath string) error {
	pages := make([]int, 0, len(d.pages))
	for n := range d.pages {
		pages = append(pages, n)
	}
	sort.Ints(pages)

	for _, n := range pages {
		if err := d.flushPage(n, d.pages[n]); err != nil {
			return fmt.Errorf("failed to rewrite page %d: %w", n, err)
		}
	}

	if err := api.WriteContextFile(d.ctx, outputPath); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func (d *document) Close() error {
	d.pages = nil
	return nil
}

// flushPage scrubs the located needles from the page content, wraps the
// original content in q/Q and appends the overlay operators.
func (d *document) flushPage(n int, pe *pageEdits) error {
	pageDict, _, inherited, err := d.ctx.PageDict(n, true)
	if err != nil {
		return err
	}
	if pageDict == nil {
		return fmt.Errorf("missing page dictionary")
	}

	refs, err := d.contentRefs(pageDict)
	if err != nil {
		return err
	}

	var original []byte
	for _, ref := range refs {
		sd, err := d.streamDict(ref)
		if err != nil {
			return err
		}
		original = append(original, sd.Content...)
		original = append(original, '\n')
	}

	needles := make([][]byte, 0, len(pe.needles))
	for _, s := range pe.needles {
		if b, ok := encodeWinAnsi(s); ok {
			needles = append(needles, b)
		}
	}
	scrubbed, _ := scrubStrings(original, needles)

	var buf bytes.Buffer
	buf.WriteString("q\n")
	buf.Write(scrubbed)
	buf.WriteString("\nQ\n")
	buf.Write(pe.overlay.Bytes())

	if pe.needFont {
		if err := d.addFont(pageDict, inherited); err != nil {
			return err
		}
	}

	sd, err := d.newStream(buf.Bytes())
	if err != nil {
		return err
	}

	if len(refs) == 0 {
		ir, err := d.ctx.IndRefForNewObject(*sd)
		if err != nil {
			return err
		}
		pageDict["Contents"] = *ir
		return nil
	}

	for i, ref := range refs {
		entry, found := d.ctx.FindTableEntryForIndRef(&ref)
		if !found {
			return fmt.Errorf("content stream %s not found", ref)
		}
		if i == 0 {
			entry.Object = *sd
			continue
		}
		empty, err := d.newStream(nil)
		if err != nil {
			return err
		}
		entry.Object = *empty
	}
	return nil
}

func (d *document) newStream(content []byte) (*types.StreamDict, error) {
	sd, err := d.ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return sd, nil
}

// contentRefs returns the indirect references of the page's content streams
func (d *document) contentRefs(pageDict types.Dict) ([]types.IndirectRef, error) {
	obj, ok := pageDict.Find("Contents")
	if !ok || obj == nil {
		return nil, nil
	}

	switch v := obj.(type) {
	case types.IndirectRef:
		target, err := d.ctx.Dereference(v)
		if err != nil {
			return nil, err
		}
		if arr, ok := target.(types.Array); ok {
			return indirectRefs(arr), nil
		}
		return []types.IndirectRef{v}, nil
	case types.Array:
		return indirectRefs(v), nil
	default:
		return nil, fmt.Errorf("unexpected page contents %T", obj)
	}
}

func indirectRefs(arr types.Array) []types.IndirectRef {
	refs := make([]types.IndirectRef, 0, len(arr))
	for _, o := range arr {
		if ir, ok := o.(types.IndirectRef); ok {
			refs = append(refs, ir)
		}
	}
	return refs
}

func (d *document) streamDict(ref types.IndirectRef) (*types.StreamDict, error) {
	obj, err := d.ctx.Dereference(ref)
	if err != nil {
		return nil, err
	}
	sd, ok := obj.(types.StreamDict)
	if !ok {
		return nil, fmt.Errorf("content object %s is not a stream", ref)
	}
	if sd.Content == nil {
		if err := sd.Decode(); err != nil {
			return nil, err
		}
	}
	return &sd, nil
}

// addFont registers Helvetica under overlayFont in the page resources
func (d *document) addFont(pageDict types.Dict, inherited *model.InheritedPageAttrs) error {
	if d.fontRef == nil {
		ir, err := d.ctx.IndRefForNewObject(types.Dict{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name("Helvetica"),
			"Encoding": types.Name("WinAnsiEncoding"),
		})
		if err != nil {
			return err
		}
		d.fontRef = ir
	}

	resources, err := d.ctx.DereferenceDict(pageDict["Resources"])
	if err != nil {
		return err
	}
	if resources == nil {
		resources = types.Dict{}
		if inherited != nil {
			for k, v := range inherited.Resources {
				resources[k] = v
			}
		}
		pageDict["Resources"] = resources
	}

	fonts, err := d.ctx.DereferenceDict(resources["Font"])
	if err != nil {
		return err
	}
	if fonts == nil {
		fonts = types.Dict{}
		resources["Font"] = fonts
	}
	fonts[overlayFont] = *d.fontRef
	return nil
}
