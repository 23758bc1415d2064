// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"context"
	"strconv"
	"strings"

	"prikit/internal/redactors"
)

// cell is a worksheet <c> element with its <v> payload
type cell struct {
	name       string
	start      int
	openEnd    int
	closeStart int
	end        int
	valueStart int
	valueEnd   int
	kind       string
	formula    bool
	hasValue   bool
}

func (c cell) value(data []byte) string {
	if !c.hasValue {
		return ""
	}
	return unescapeXML(data[c.valueStart:c.valueEnd])
}

// numeric reports whether the cell stores a literal number
func (c cell) numeric() bool {
	return c.hasValue && !c.formula && (c.kind == "" || c.kind == "n")
}

func scanCells(data []byte) []cell {
	var (
		cells   []cell
		current *cell
	)

	scanTags(data, func(t tag) {
		name := localName(t.name)
		switch t.kind {
		case tagStart:
			switch {
			case name == "c":
				kind, _ := attrValue(data[t.start:t.end], "t")
				current = &cell{name: t.name, start: t.start, openEnd: t.end, kind: kind}
			case current != nil && name == "f":
				current.formula = true
			case current != nil && name == "v":
				current.valueStart = t.end
			}
		case tagSelfClosing:
			if current != nil && name == "f" {
				current.formula = true
			}
		case tagEnd:
			switch {
			case current != nil && name == "v":
				current.valueEnd = t.start
				current.hasValue = true
			case current != nil && name == "c":
				current.closeStart = t.start
				current.end = t.end
				cells = append(cells, *current)
				current = nil
			}
		}
	})
	return cells
}

func prefixOf(qname string) string {
	if idx := strings.IndexByte(qname, ':'); idx >= 0 {
		return qname[:idx+1]
	}
	return ""
}

// inlineCell rewrites a cell as an inline string cell holding text
func (c cell) inlineCell(data []byte, text string) string {
	p := prefixOf(c.name)
	return withAttr(data[c.start:c.openEnd], "t", "inlineStr") +
		"<" + p + "is><" + p + `t xml:space="preserve">` + escapeXML(text) + "</" + p + "t></" + p + "is>" +
		string(data[c.closeStart:c.end])
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// redactWorkbook rewrites shared strings, inline strings and literal numeric
// cells. Each rewritten cell contributes its span count; a shared string
// contributes once per cell referencing it.
func (or *OfficeRedactor) redactWorkbook(ctx context.Context, pkg *Package, inputPath string, opts redactors.Options) (int, error) {
	sheets := pkg.PartNames(excelSheetPart)
	sheetData := make(map[string][]byte, len(sheets))
	sharedRefs := make(map[int]int)

	for _, name := range sheets {
		data, err := pkg.Read(name)
		if err != nil {
			return 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to read worksheet", inputPath, or.GetComponentName(), err)
		}
		sheetData[name] = data
		for _, c := range scanCells(data) {
			if c.kind != "s" || !c.hasValue {
				continue
			}
			if idx, err := strconv.Atoi(strings.TrimSpace(c.value(data))); err == nil {
				sharedRefs[idx]++
			}
		}
	}

	total := 0

	if pkg.HasPart(sharedStringsPart) {
		data, err := pkg.Read(sharedStringsPart)
		if err != nil {
			return 0, redactors.NewRedactionError(redactors.ErrorDocumentProcessing, "failed to read shared strings", inputPath, or.GetComponentName(), err)
		}
		edits, changes, err := or.rewriteRegions(ctx, data, sharedStringDialect, inputPath, opts)
		if err != nil {
			return 0, err
		}
		if len(edits) > 0 {
			pkg.Write(sharedStringsPart, applyEdits(data, edits))
		}
		for _, ch := range changes {
			total += ch.spans * sharedRefs[ch.index]
		}
	}

	for _, name := range sheets {
		data := sheetData[name]

		edits, changes, err := or.rewriteRegions(ctx, data, inlineStringDialect, inputPath, opts)
		if err != nil {
			return 0, err
		}
		for _, ch := range changes {
			total += ch.spans
		}

		for _, c := range scanCells(data) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			if !c.numeric() {
				continue
			}
			newText, spans, ok := or.transform(c.value(data), inputPath, opts)
			if !ok {
				continue
			}
			if isNumber(newText) {
				edits = append(edits, edit{c.valueStart, c.valueEnd, escapeXML(newText)})
			} else {
				edits = append(edits, edit{c.start, c.end, c.inlineCell(data, newText)})
			}
			total += spans
		}

		if len(edits) > 0 {
			pkg.Write(name, applyEdits(data, edits))
		}
	}

	return total, nil
}

// extractWorkbookText lists shared strings followed by each sheet's inline
// strings and numeric values.
func extractWorkbookText(pkg *Package) (string, error) {
	var lines []string
	add := func(data []byte, d *dialect) {
		for _, r := range scanRegions(data, d) {
			if text := r.text(data, d); strings.TrimSpace(text) != "" {
				lines = append(lines, text)
			}
		}
	}

	if pkg.HasPart(sharedStringsPart) {
		data, err := pkg.Read(sharedStringsPart)
		if err != nil {
			return "", err
		}
		add(data, sharedStringDialect)
	}

	for _, name := range pkg.PartNames(excelSheetPart) {
		data, err := pkg.Read(name)
		if err != nil {
			return "", err
		}
		add(data, inlineStringDialect)
		for _, c := range scanCells(data) {
			if c.numeric() {
				lines = append(lines, c.value(data))
			}
		}
	}

	return strings.Join(lines, "\n"), nil
}
