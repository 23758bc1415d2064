// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"prikit/internal/anonymizer"
	"prikit/internal/config"
	"prikit/internal/detector"
	"prikit/internal/help"
	"prikit/internal/observability"
	"prikit/internal/ocr"
	"prikit/internal/redactors"
	"prikit/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries what every command needs
type app struct {
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	ui     *printer
}

// run executes one command and returns the process exit code: 0 on full
// success, 1 on any failure.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	configFile, args := extractConfigFlag(args)

	if !isTerminal(stdout) {
		color.NoColor = true
	}

	a := &app{
		stdout: stdout,
		stderr: stderr,
		ui:     newPrinter(stdout, stderr),
	}

	if len(args) == 0 {
		help.NewSystem(color.NoColor, stdout).ShowGeneralHelp()
		return 0
	}

	command, rest := strings.ToLower(args[0]), args[1:]
	switch command {
	case "help", "-h", "--help":
		return a.runHelp(rest)
	case "version", "--version":
		fmt.Fprintln(stdout, version.Info())
		return 0
	}

	if configFile != "" {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			a.ui.failure("Error loading config file %s: %v", configFile, err)
			return 1
		}
		a.cfg = cfg
	} else {
		a.cfg = config.LoadConfigOrDefault("")
	}

	switch command {
	case "pdf", "word", "excel", "image", "ppt":
		return a.runFileCommand(ctx, redactors.FileType(command), rest)
	case "batch":
		return a.runBatch(ctx, rest)
	case "api":
		return a.runAPI(ctx, rest)
	default:
		a.ui.failure("Unknown command: %s", args[0])
		help.NewSystem(color.NoColor, stderr).ShowGeneralHelp()
		return 1
	}
}

func (a *app) runHelp(args []string) int {
	h := help.NewSystem(color.NoColor, a.stdout)
	if len(args) == 0 {
		h.ShowGeneralHelp()
		return 0
	}

	switch strings.ToLower(args[0]) {
	case "methods":
		h.ShowMethodsHelp()
		return 0
	case "entities":
		language := anonymizer.DefaultLanguage
		if len(args) > 1 {
			language = args[1]
		}
		analyzer := detector.NewPatternAnalyzer(nil)
		h.ShowEntitiesHelp(language, analyzer.SupportedEntities(language))
		return 0
	}

	if !h.ShowCommandHelp(args[0]) {
		a.ui.failure("No help available for %q", args[0])
		return 1
	}
	return 0
}

// newObserver builds the process-wide observer; verbose forces debug
func (a *app) newObserver(verbose bool) *observability.StandardObserver {
	level := observability.ParseLevel(a.cfg.Defaults.LogLevel)
	if verbose || a.cfg.Defaults.Verbose {
		level = observability.ObservabilityDebug
	}
	return observability.NewStandardObserver(level, a.stderr)
}

// newManager wires the analyzer, OCR engine and output directory into a
// manager for every file type.
func (a *app) newManager(outputDir string, observer *observability.StandardObserver) (*anonymizer.Manager, error) {
	analyzer := detector.NewPatternAnalyzer(observer)
	if err := a.cfg.ConfigureAnalyzer(analyzer); err != nil {
		return nil, err
	}

	resolver, err := redactors.NewOutputResolver(outputDir, observer)
	if err != nil {
		return nil, err
	}

	// A missing tesseract leaves images unsupported; other types still work
	var engine ocr.Engine
	if tesseract := ocr.NewTesseract(a.cfg.OCR.TesseractPath, a.cfg.OCR.Timeout, observer); tesseract.Available() {
		engine = tesseract
	} else {
		observer.Warn("cli", "ocr_unavailable", map[string]interface{}{"binary": a.cfg.OCR.TesseractPath})
	}

	return anonymizer.NewDefaultManager(analyzer, engine, resolver, observer), nil
}

// extractConfigFlag removes the global --config option wherever it appears
func extractConfigFlag(args []string) (string, []string) {
	var configFile string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || arg == "-config":
			if i+1 < len(args) {
				configFile = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "--config="):
			configFile = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-config="):
			configFile = strings.TrimPrefix(arg, "-config=")
		default:
			rest = append(rest, arg)
		}
	}
	return configFile, rest
}

// isTerminal checks if the writer is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
