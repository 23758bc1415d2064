// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ocr

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// tsv columns: level page_num block_num par_num line_num word_num left top width height conf text
const (
	colLevel  = 0
	colLeft   = 6
	colTop    = 7
	colWidth  = 8
	colHeight = 9
	colConf   = 10
	colText   = 11
	numCols   = 12

	wordLevel = 5
)

// parseTSV reads word rows from tesseract's tsv output, skipping the header,
// non-word rows and rows with blank text.
func parseTSV(data []byte) ([]Word, error) {
	var words []Word
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		row := strings.TrimRight(scanner.Text(), "\r")
		if line == 1 && strings.HasPrefix(row, "level") {
			continue
		}
		if row == "" {
			continue
		}

		cols := strings.Split(row, "\t")
		if len(cols) < numCols-1 {
			return nil, fmt.Errorf("malformed tsv row %d: %d columns", line, len(cols))
		}
		if level, err := strconv.Atoi(cols[colLevel]); err != nil || level != wordLevel {
			continue
		}

		text := ""
		if len(cols) > colText {
			text = strings.TrimSpace(strings.Join(cols[colText:], "\t"))
		}
		if text == "" {
			continue
		}

		ints := make([]int, 4)
		for i, col := range []int{colLeft, colTop, colWidth, colHeight} {
			v, err := strconv.Atoi(cols[col])
			if err != nil {
				return nil, fmt.Errorf("malformed tsv row %d: %w", line, err)
			}
			ints[i] = v
		}
		conf, err := strconv.ParseFloat(cols[colConf], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed tsv row %d: %w", line, err)
		}

		words = append(words, Word{
			Text:       text,
			Confidence: conf,
			X:          ints[0],
			Y:          ints[1],
			Width:      ints[2],
			Height:     ints[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tsv: %w", err)
	}
	return words, nil
}
