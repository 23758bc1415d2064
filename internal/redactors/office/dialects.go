// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"regexp"
	"strings"
)

var (
	wordDocumentPart  = regexp.MustCompile(`^word/document\.xml$`)
	pptSlidePart      = regexp.MustCompile(`^ppt/slides/slide\d+\.xml$`)
	excelSheetPart    = regexp.MustCompile(`^xl/worksheets/[^/]+\.xml$`)
	sharedStringsPart = "xl/sharedStrings.xml"
)

var wordDialect = &dialect{
	regions:   map[string]bool{"w:p": true},
	text:      "w:t",
	run:       "w:r",
	props:     map[string]bool{"w:pPr": true},
	textOpen:  `<w:t xml:space="preserve">`,
	textClose: `</w:t>`,
	plainBody: func(text string) string {
		return `<w:r><w:t xml:space="preserve">` + escapeXML(text) + `</w:t></w:r>`
	},
}

var pptDialect = &dialect{
	regions:   map[string]bool{"p:txBody": true, "a:txBody": true},
	text:      "a:t",
	run:       "a:r",
	paragraph: "a:p",
	props:     map[string]bool{"a:bodyPr": true, "a:lstStyle": true},
	textOpen:  `<a:t>`,
	textClose: `</a:t>`,
	plainBody: func(text string) string {
		var b strings.Builder
		for _, line := range strings.Split(text, "\n") {
			if line == "" {
				b.WriteString(`<a:p/>`)
				continue
			}
			b.WriteString(`<a:p><a:r><a:t>` + escapeXML(line) + `</a:t></a:r></a:p>`)
		}
		return b.String()
	},
}

func spreadsheetStringDialect(region string) *dialect {
	return &dialect{
		regions:   map[string]bool{region: true},
		text:      "t",
		ignore:    map[string]bool{"rPh": true},
		local:     true,
		textOpen:  `<t xml:space="preserve">`,
		textClose: `</t>`,
		plainBody: func(text string) string {
			return `<t xml:space="preserve">` + escapeXML(text) + `</t>`
		},
	}
}

var (
	sharedStringDialect = spreadsheetStringDialect("si")
	inlineStringDialect = spreadsheetStringDialect("is")
)
