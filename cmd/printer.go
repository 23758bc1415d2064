// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// printer writes user-facing status lines
type printer struct {
	out io.Writer
	err io.Writer

	ok   *color.Color
	fail *color.Color
	note *color.Color
	warn *color.Color
}

func newPrinter(out, err io.Writer) *printer {
	return &printer{
		out:  out,
		err:  err,
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		note: color.New(color.FgCyan),
		warn: color.New(color.FgYellow),
	}
}

func (p *printer) success(format string, args ...interface{}) {
	p.ok.Fprint(p.out, "✓ ")
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) failure(format string, args ...interface{}) {
	p.fail.Fprint(p.err, "✗ ")
	fmt.Fprintf(p.err, format+"\n", args...)
}

func (p *printer) info(format string, args ...interface{}) {
	p.note.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) warning(format string, args ...interface{}) {
	p.warn.Fprintf(p.err, "Warning: "+format+"\n", args...)
}
