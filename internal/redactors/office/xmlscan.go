// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"bytes"
	"html"
	"regexp"
	"sort"
	"strings"
)

// The scanner works on raw part bytes instead of encoding/xml so that
// namespace prefixes, attribute order and untouched markup are written back
// byte for byte.

type tagKind int

const (
	tagStart tagKind = iota
	tagEnd
	tagSelfClosing
)

type tag struct {
	name  string
	kind  tagKind
	start int
	end   int
}

// scanTags calls fn for every element tag in data, skipping comments,
// processing instructions, declarations and CDATA sections.
func scanTags(data []byte, fn func(t tag)) {
	i := 0
	for i < len(data) {
		lt := bytes.IndexByte(data[i:], '<')
		if lt < 0 {
			return
		}
		i += lt

		switch {
		case bytes.HasPrefix(data[i:], []byte("<!--")):
			i = skipPast(data, i+4, "-->")
			continue
		case bytes.HasPrefix(data[i:], []byte("<![CDATA[")):
			i = skipPast(data, i+9, "]]>")
			continue
		case bytes.HasPrefix(data[i:], []byte("<?")):
			i = skipPast(data, i+2, "?>")
			continue
		case bytes.HasPrefix(data[i:], []byte("<!")):
			i = skipPast(data, i+2, ">")
			continue
		}

		end := findTagEnd(data, i+1)
		if end < 0 {
			return
		}

		t := tag{start: i, end: end}
		body := data[i+1 : end-1]
		switch {
		case len(body) > 0 && body[0] == '/':
			t.kind = tagEnd
			t.name = string(bytes.TrimSpace(body[1:]))
		case len(body) > 0 && body[len(body)-1] == '/':
			t.kind = tagSelfClosing
			t.name = tagName(body[:len(body)-1])
		default:
			t.kind = tagStart
			t.name = tagName(body)
		}
		fn(t)
		i = end
	}
}

func skipPast(data []byte, from int, marker string) int {
	idx := bytes.Index(data[from:], []byte(marker))
	if idx < 0 {
		return len(data)
	}
	return from + idx + len(marker)
}

// findTagEnd returns the offset just past the '>' closing the tag, honouring quoted attribute values
func findTagEnd(data []byte, from int) int {
	var quote byte
	for i := from; i < len(data); i++ {
		c := data[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i + 1
		}
	}
	return -1
}

func tagName(body []byte) string {
	end := bytes.IndexAny(body, " \t\r\n")
	if end < 0 {
		return string(body)
	}
	return string(body[:end])
}

func localName(qname string) string {
	if idx := strings.IndexByte(qname, ':'); idx >= 0 {
		return qname[idx+1:]
	}
	return qname
}

var attrPatterns = map[string]*regexp.Regexp{
	"t": regexp.MustCompile(`\st\s*=\s*("[^"]*"|'[^']*')`),
}

// attrValue returns the value of a known attribute in a start tag
func attrValue(startTag []byte, name string) (string, bool) {
	re, ok := attrPatterns[name]
	if !ok {
		return "", false
	}
	m := re.FindSubmatch(startTag)
	if m == nil {
		return "", false
	}
	return html.UnescapeString(string(m[1][1 : len(m[1])-1])), true
}

// withAttr rewrites a start tag so that attribute name has value
func withAttr(startTag []byte, name, value string) string {
	s := string(startTag)
	if re, ok := attrPatterns[name]; ok {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.TrimSuffix(s, ">")
	return s + " " + name + `="` + escapeXML(value) + `">`
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

func unescapeXML(b []byte) string {
	return html.UnescapeString(string(b))
}

// dialect describes where text lives in one family of OOXML parts
type dialect struct {
	// regions are the elements rewritten as a unit
	regions map[string]bool

	// text is the element holding literal text
	text string

	// run wraps styled text; "" when text may sit directly inside a region
	run string

	// paragraph splits a region into lines; "" when the region is a single paragraph
	paragraph string

	// props are region children kept by a plain rewrite
	props map[string]bool

	// ignore hides text nested inside these elements
	ignore map[string]bool

	// local matches element names without their namespace prefix
	local bool

	textOpen  string
	textClose string

	// plainBody builds unstyled markup for a plain rewrite
	plainBody func(text string) string
}

func (d *dialect) name(qname string) string {
	if d.local {
		return localName(qname)
	}
	return qname
}

type textElem struct {
	start        int
	end          int
	contentStart int
	contentEnd   int
	selfClosing  bool
	inRun        bool
	para         int
}

type region struct {
	start      int
	openEnd    int
	closeStart int
	end        int
	propsEnd   int
	paras      int
	texts      []textElem
	closed     bool
}

type openElem struct {
	name   string
	region int
	parent int
}

// scanRegions returns the closed regions of data in document order. Text
// elements belong to the innermost open region.
func scanRegions(data []byte, d *dialect) []*region {
	var (
		regions     []*region
		stack       []openElem
		regionStack []int
		runDepth    int
		ignoreDepth int
		pending     *textElem
		pendingReg  = -1
	)

	innermost := func() int {
		if len(regionStack) == 0 {
			return -1
		}
		return regionStack[len(regionStack)-1]
	}
	parentRegion := func() int {
		if len(stack) == 0 {
			return -1
		}
		return stack[len(stack)-1].region
	}

	scanTags(data, func(t tag) {
		name := d.name(t.name)

		switch t.kind {
		case tagStart, tagSelfClosing:
			parent := parentRegion()

			if t.kind == tagSelfClosing {
				if d.regions[name] {
					regions = append(regions, &region{
						start: t.start, openEnd: t.end, closeStart: t.end, end: t.end,
						propsEnd: t.end, closed: true,
					})
					return
				}
				if parent >= 0 && d.props[name] {
					regions[parent].propsEnd = t.end
				}
				if name == d.paragraph && parent >= 0 {
					regions[parent].paras++
				}
				if name == d.text && ignoreDepth == 0 {
					if r := innermost(); r >= 0 {
						regions[r].texts = append(regions[r].texts, textElem{
							start:       t.start,
							end:         t.end,
							selfClosing: true,
							inRun:       runDepth > 0,
							para:        regions[r].paras - 1,
						})
					}
				}
				return
			}

			elem := openElem{name: name, region: -1, parent: parent}
			switch {
			case d.regions[name]:
				regions = append(regions, &region{start: t.start, openEnd: t.end, propsEnd: t.end})
				elem.region = len(regions) - 1
				regionStack = append(regionStack, elem.region)
			case name == d.paragraph && parent >= 0:
				regions[parent].paras++
			case name == d.run:
				runDepth++
			case d.ignore[name]:
				ignoreDepth++
			case name == d.text && ignoreDepth == 0:
				if r := innermost(); r >= 0 {
					pending = &textElem{
						start:        t.start,
						contentStart: t.end,
						inRun:        runDepth > 0,
						para:         regions[r].paras - 1,
					}
					pendingReg = r
				}
			}
			stack = append(stack, elem)

		case tagEnd:
			idx := len(stack) - 1
			for idx >= 0 && stack[idx].name != name {
				idx--
			}
			if idx < 0 {
				return
			}
			for len(stack) > idx {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				switch {
				case top.region >= 0:
					r := regions[top.region]
					r.closeStart = t.start
					r.end = t.end
					r.closed = true
					regionStack = regionStack[:len(regionStack)-1]
				case top.name == d.run:
					runDepth--
				case d.ignore[top.name]:
					ignoreDepth--
				case top.name == d.text && pending != nil:
					pending.contentEnd = t.start
					pending.end = t.end
					regions[pendingReg].texts = append(regions[pendingReg].texts, *pending)
					pending = nil
				}
				if top.parent >= 0 && d.props[top.name] {
					regions[top.parent].propsEnd = t.end
				}
			}
		}
	})

	closed := regions[:0]
	for _, r := range regions {
		if r.closed {
			closed = append(closed, r)
		}
	}
	return closed
}

func (te textElem) value(data []byte) string {
	if te.selfClosing {
		return ""
	}
	return unescapeXML(data[te.contentStart:te.contentEnd])
}

// text returns the region's text, paragraphs joined by "\n"
func (r *region) text(data []byte, d *dialect) string {
	if d.paragraph == "" {
		var b strings.Builder
		for _, te := range r.texts {
			b.WriteString(te.value(data))
		}
		return b.String()
	}

	lines := make([]string, max(r.paras, 1))
	for _, te := range r.texts {
		p := min(max(te.para, 0), len(lines)-1)
		lines[p] += te.value(data)
	}
	return strings.Join(lines, "\n")
}

type edit struct {
	start int
	end   int
	repl  string
}

func (d *dialect) eligible(te textElem) bool {
	return d.run == "" || te.inRun
}

// styledEdits writes newText into the first styled text element and empties
// the others. When the region's paragraph count matches the line count each
// paragraph keeps its own first run.
func (r *region) styledEdits(data []byte, d *dialect, newText string) ([]edit, bool) {
	if d.paragraph != "" {
		lines := strings.Split(newText, "\n")
		if len(lines) == r.paras {
			if edits, ok := r.perParagraphEdits(d, lines); ok {
				return edits, true
			}
		}
	}

	first := -1
	for i, te := range r.texts {
		if d.eligible(te) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, false
	}

	edits := make([]edit, 0, len(r.texts))
	for i, te := range r.texts {
		if i == first {
			edits = append(edits, edit{te.start, te.end, d.textOpen + escapeXML(newText) + d.textClose})
			continue
		}
		if !te.selfClosing && te.contentEnd > te.contentStart {
			edits = append(edits, edit{te.contentStart, te.contentEnd, ""})
		}
	}
	return edits, true
}

func (r *region) perParagraphEdits(d *dialect, lines []string) ([]edit, bool) {
	firstOf := make(map[int]int)
	for i, te := range r.texts {
		if _, seen := firstOf[te.para]; !seen && d.eligible(te) {
			firstOf[te.para] = i
		}
	}
	for p, line := range lines {
		if _, ok := firstOf[p]; !ok && line != "" {
			return nil, false
		}
	}

	var edits []edit
	for i, te := range r.texts {
		if idx, ok := firstOf[te.para]; ok && idx == i && te.para >= 0 && te.para < len(lines) {
			edits = append(edits, edit{te.start, te.end, d.textOpen + escapeXML(lines[te.para]) + d.textClose})
			continue
		}
		if !te.selfClosing && te.contentEnd > te.contentStart {
			edits = append(edits, edit{te.contentStart, te.contentEnd, ""})
		}
	}
	return edits, true
}

// plainEdit replaces everything after the region's properties with unstyled text
func (r *region) plainEdit(d *dialect, newText string) edit {
	return edit{r.propsEnd, r.closeStart, d.plainBody(newText)}
}

// applyEdits applies non-overlapping edits in one pass. An edit starting
// inside an earlier applied edit is dropped.
func applyEdits(data []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return data
	}
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].start < edits[j].start
	})

	var out bytes.Buffer
	out.Grow(len(data))
	prev := 0
	for _, e := range edits {
		if e.start < prev {
			continue
		}
		out.Write(data[prev:e.start])
		out.WriteString(e.repl)
		prev = e.end
	}
	out.Write(data[prev:])
	return out.Bytes()
}
