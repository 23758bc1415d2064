// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"prikit/internal/redactors"
)

// Flag describes one command line option
type Flag struct {
	Name        string // e.g. "--method"
	Arg         string // value placeholder, empty for switches
	Description string
}

// Command contains the help content for one CLI command
type Command struct {
	Name     string
	Usage    string
	Summary  string
	Flags    []Flag
	Examples []string
}

var (
	outputFlags = []Flag{
		{"--language", "<zh|en>", "Detection language (default: zh)"},
		{"--output, -o", "<path>", "Output file path (default: generated in --output-dir)"},
		{"--output-dir", "<dir>", "Output directory (default: ./anonymized-datas)"},
		{"--verbose, -v", "", "Log every processing step"},
	}

	visualFlags = append([]Flag{
		{"--method", "<mask|color|char>", "Anonymization method (default: mask)"},
		{"--color", "<name>", "Fill color: white, black, red, blue, green, gray, yellow, cyan, magenta (default: white)"},
		{"--char", "<c>", "Replacement character for the char method (default: *)"},
	}, outputFlags...)

	textFlags = append([]Flag{
		{"--method", "<fake|mask|encrypt>", "Anonymization method (required)"},
		{"--key", "<6 digits>", "Encryption key, required for the encrypt method"},
	}, outputFlags...)
)

var commands = []Command{
	{
		Name:     "pdf",
		Usage:    "prikit pdf <input.pdf> [options]",
		Summary:  "Cover sensitive text in a PDF",
		Flags:    visualFlags,
		Examples: []string{"prikit pdf contract.pdf --method color --color black"},
	},
	{
		Name:     "image",
		Usage:    "prikit image <input> [options]",
		Summary:  "Cover sensitive text found by OCR in an image",
		Flags:    visualFlags,
		Examples: []string{"prikit image scan.png --method char --char X"},
	},
	{
		Name:     "word",
		Usage:    "prikit word <input.docx> [options]",
		Summary:  "Anonymize a Word document",
		Flags:    textFlags,
		Examples: []string{"prikit word staff.docx --method encrypt --key 123456"},
	},
	{
		Name:     "excel",
		Usage:    "prikit excel <input.xlsx> [options]",
		Summary:  "Anonymize an Excel workbook",
		Flags:    textFlags,
		Examples: []string{"prikit excel salaries.xlsx --method fake --language en"},
	},
	{
		Name:     "ppt",
		Usage:    "prikit ppt <input.pptx> [options]",
		Summary:  "Mask sensitive text in a PowerPoint deck",
		Flags:    outputFlags,
		Examples: []string{"prikit ppt review.pptx -o review_public.pptx"},
	},
	{
		Name:    "batch",
		Usage:   "prikit batch <input_dir> --file-type <type> [options]",
		Summary: "Anonymize every matching file in a directory",
		Flags: []Flag{
			{"--file-type", "<type>", "pdf, word, excel, image or ppt (required)"},
			{"--method", "<method>", "Anonymization method (required)"},
			{"--key", "<6 digits>", "Encryption key for the encrypt method"},
			{"--color", "<name>", "Fill color for pdf and image"},
			{"--char", "<c>", "Replacement character for pdf and image"},
			{"--language", "<zh|en>", "Detection language (default: zh)"},
			{"--output-dir", "<dir>", "Output directory"},
			{"--recursive, -r", "", "Include subdirectories"},
			{"--workers", "<n>", "Parallel workers, 1 processes files in order (default: from config)"},
			{"--timeout", "<duration>", "Per-file timeout for parallel runs, e.g. 2m"},
			{"--verbose, -v", "", "Log every processing step"},
		},
		Examples: []string{
			"prikit batch ./contracts --file-type pdf --method color --color black",
			"prikit batch ./hr --file-type excel --method encrypt --key 123456 -r --workers 4",
		},
	},
	{
		Name:    "api",
		Usage:   "prikit api [options]",
		Summary: "Start the asynchronous REST API",
		Flags: []Flag{
			{"--host", "<addr>", "Listen address (default: 0.0.0.0)"},
			{"--port", "<port>", "Listen port (default: 5000)"},
			{"--upload-folder", "<dir>", "Where uploads are stored (default: ./uploads)"},
			{"--output-folder", "<dir>", "Where outputs are written (default: ./anonymized-datas)"},
			{"--debug", "", "Debug logging"},
		},
		Examples: []string{"prikit api --port 8080"},
	},
	{
		Name:     "help",
		Usage:    "prikit help [command|methods|entities]",
		Summary:  "Show help for a command, the method table or the detected entities",
		Examples: []string{"prikit help batch", "prikit help methods"},
	},
	{
		Name:    "version",
		Usage:   "prikit version",
		Summary: "Show version information",
	},
}

// Commands returns the help entries of every CLI command
func Commands() []Command {
	return append([]Command(nil), commands...)
}

// System manages help content for the application
type System struct {
	out    io.Writer
	colors map[string]*color.Color
}

// NewSystem creates a new help system writing to out
func NewSystem(noColor bool, out io.Writer) *System {
	// Disable colors if requested
	if noColor {
		color.NoColor = true
	}

	return &System{
		out: out,
		colors: map[string]*color.Color{
			"title":    color.New(color.FgWhite, color.Bold),
			"header":   color.New(color.FgBlue, color.Bold),
			"item":     color.New(color.FgCyan),
			"emphasis": color.New(color.FgWhite, color.Bold),
			"example":  color.New(color.FgMagenta),
		},
	}
}

// ShowGeneralHelp displays general help information
func (h *System) ShowGeneralHelp() {
	h.colors["title"].Fprintln(h.out, "prikit - Document PII Anonymization Tool")
	fmt.Fprintln(h.out, "========================================")
	fmt.Fprintln(h.out)
	h.colors["header"].Fprintln(h.out, "USAGE:")
	fmt.Fprintln(h.out, "  prikit <command> [input] [options]")
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "COMMANDS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\t%s\n", c.Name, c.Summary)
	}
	w.Flush()
	fmt.Fprintln(h.out)

	h.colors["header"].Fprintln(h.out, "GLOBAL OPTIONS:")
	fmt.Fprintln(h.out, "  --config <path>  Path to configuration file (YAML)")
	fmt.Fprintln(h.out)
	fmt.Fprintln(h.out, "Run 'prikit help <command>' for the options of a command.")
}

// ShowCommandHelp displays help for one command. It reports false for an
// unknown command.
func (h *System) ShowCommandHelp(name string) bool {
	var cmd *Command
	for i := range commands {
		if commands[i].Name == strings.ToLower(name) {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		return false
	}

	h.colors["title"].Fprintf(h.out, "prikit %s", cmd.Name)
	fmt.Fprintf(h.out, " - %s\n\n", cmd.Summary)
	h.colors["header"].Fprintln(h.out, "USAGE:")
	fmt.Fprintf(h.out, "  %s\n\n", cmd.Usage)

	if len(cmd.Flags) > 0 {
		h.colors["header"].Fprintln(h.out, "OPTIONS:")
		w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
		for _, f := range cmd.Flags {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", f.Name, f.Arg, f.Description)
		}
		w.Flush()
		fmt.Fprintln(h.out)
	}

	if len(cmd.Examples) > 0 {
		h.colors["header"].Fprintln(h.out, "EXAMPLES:")
		for _, example := range cmd.Examples {
			fmt.Fprint(h.out, "  ")
			h.colors["example"].Fprintln(h.out, example)
		}
	}
	return true
}

// ShowMethodsHelp displays the extensions and methods of every file type
func (h *System) ShowMethodsHelp() {
	h.colors["header"].Fprintln(h.out, "SUPPORTED FILE TYPES AND METHODS:")
	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TYPE\tEXTENSIONS\tMETHODS")
	for _, ft := range redactors.FileTypes() {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", ft, strings.Join(ft.Extensions(), " "), strings.Join(ft.MethodNames(), ", "))
	}
	w.Flush()
}

// ShowEntitiesHelp lists the entity types detected for language
func (h *System) ShowEntitiesHelp(language string, entities []string) {
	h.colors["header"].Fprintf(h.out, "DETECTED ENTITIES (%s):\n", language)
	for _, e := range entities {
		fmt.Fprint(h.out, "  - ")
		h.colors["item"].Fprintln(h.out, e)
	}
}
