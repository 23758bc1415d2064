// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pdf

import (
	"bytes"
	"encoding/hex"
	"strconv"
	"strings"
)

// stringOperand is a literal or hex string in a content stream
type stringOperand struct {
	start int
	end   int
	data  []byte
}

func isWhite(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

// scanStrings returns the string operands of a content stream in order.
// Inline image data between ID and EI is skipped.
func scanStrings(content []byte) []stringOperand {
	var out []stringOperand
	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case c == '%':
			for i < len(content) && content[i] != '\n' && content[i] != '\r' {
				i++
			}
		case c == '(':
			end, data := readLiteral(content, i)
			out = append(out, stringOperand{start: i, end: end, data: data})
			i = end
		case c == '<' && i+1 < len(content) && content[i+1] == '<':
			i += 2
		case c == '<':
			end := bytes.IndexByte(content[i:], '>')
			if end < 0 {
				return out
			}
			end += i + 1
			out = append(out, stringOperand{start: i, end: end, data: decodeHex(content[i+1 : end-1])})
			i = end
		case isWhite(c) || isDelim(c):
			i++
		default:
			start := i
			for i < len(content) && !isWhite(content[i]) && !isDelim(content[i]) {
				i++
			}
			if string(content[start:i]) == "ID" {
				i = skipInlineImage(content, i)
			}
		}
	}
	return out
}

func readLiteral(content []byte, start int) (int, []byte) {
	var data []byte
	depth := 0
	i := start
	for i < len(content) {
		c := content[i]
		switch c {
		case '\\':
			i++
			if i >= len(content) {
				return i, data
			}
			e := content[i]
			switch e {
			case 'n':
				data = append(data, '\n')
			case 'r':
				data = append(data, '\r')
			case 't':
				data = append(data, '\t')
			case 'b':
				data = append(data, '\b')
			case 'f':
				data = append(data, '\f')
			case '\r':
				if i+1 < len(content) && content[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := 0
					j := 0
					for ; j < 3 && i+j < len(content) && content[i+j] >= '0' && content[i+j] <= '7'; j++ {
						v = v*8 + int(content[i+j]-'0')
					}
					data = append(data, byte(v))
					i += j - 1
				} else {
					data = append(data, e)
				}
			}
		case '(':
			if depth > 0 {
				data = append(data, c)
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1, data
			}
			data = append(data, c)
		default:
			data = append(data, c)
		}
		i++
	}
	return i, data
}

func decodeHex(body []byte) []byte {
	digits := make([]byte, 0, len(body)+1)
	for _, c := range body {
		if !isWhite(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	if _, err := hex.Decode(out, digits); err != nil {
		return nil
	}
	return out
}

func skipInlineImage(content []byte, from int) int {
	for i := from; i+1 < len(content); i++ {
		if content[i] == 'E' && content[i+1] == 'I' && isWhite(content[i-1]) &&
			(i+2 == len(content) || isWhite(content[i+2])) {
			return i + 2
		}
	}
	return len(content)
}

// scrubStrings blanks every occurrence of the needles across the stream's
// string operands, including occurrences split over several operands of a TJ
// array. Rewritten operands are emitted as hex strings. It returns the new
// stream and the number of occurrences removed.
func scrubStrings(content []byte, needles [][]byte) ([]byte, int) {
	operands := scanStrings(content)
	if len(operands) == 0 {
		return content, 0
	}

	type ref struct{ op, pos int }
	var (
		joined []byte
		refs   []ref
	)
	for oi, op := range operands {
		for pi := range op.data {
			refs = append(refs, ref{oi, pi})
		}
		joined = append(joined, op.data...)
	}

	hit := make([]bool, len(joined))
	found := 0
	for _, needle := range needles {
		if len(needle) == 0 {
			continue
		}
		from := 0
		for {
			idx := bytes.Index(joined[from:], needle)
			if idx < 0 {
				break
			}
			start := from + idx
			for k := start; k < start+len(needle); k++ {
				hit[k] = true
			}
			found++
			from = start + len(needle)
		}
	}
	if found == 0 {
		return content, 0
	}

	touched := make(map[int]bool)
	for k, h := range hit {
		if h {
			r := refs[k]
			operands[r.op].data[r.pos] = ' '
			touched[r.op] = true
		}
	}

	var out bytes.Buffer
	out.Grow(len(content))
	prev := 0
	for oi, op := range operands {
		if !touched[oi] {
			continue
		}
		out.Write(content[prev:op.start])
		out.WriteByte('<')
		out.WriteString(strings.ToUpper(hex.EncodeToString(op.data)))
		out.WriteByte('>')
		prev = op.end
	}
	out.Write(content[prev:])
	return out.Bytes(), found
}

// encodeWinAnsi maps text to single-byte codes shared by WinAnsiEncoding and
// Latin-1. It reports false for characters outside that range.
func encodeWinAnsi(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 0x20 && r < 0x7f, r >= 0xa0 && r <= 0xff:
			out = append(out, byte(r))
		default:
			return nil, false
		}
	}
	return out, true
}

func escapeLiteral(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch c {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round3(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func colorOp(c RGB) string {
	return num(round3(c.R)) + " " + num(round3(c.G)) + " " + num(round3(c.B)) + " rg"
}

// rectOps fills r with c
func rectOps(r Rect, c RGB) string {
	return "q " + colorOp(c) + " " +
		num(round3(r.X0)) + " " + num(round3(r.Y0)) + " " +
		num(round3(r.Width())) + " " + num(round3(r.Height())) + " re f Q\n"
}

// textOps shows encoded text at baseline origin (x, y) with the overlay font
func textOps(font string, x, y float64, encoded []byte, size float64, c RGB) string {
	return "q " + colorOp(c) + " BT /" + font + " " + num(round3(size)) + " Tf " +
		num(round3(x)) + " " + num(round3(y)) + " Td (" + escapeLiteral(encoded) + ") Tj ET Q\n"
}
