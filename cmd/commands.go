// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"prikit/internal/anonymizer"
	"prikit/internal/help"
	"prikit/internal/redactors"
	"prikit/internal/tasks"
	"prikit/internal/web"
)

// maxListedFiles bounds the file preview printed before a batch
const maxListedFiles = 5

// commonFlags are shared by the single-file commands
type commonFlags struct {
	language  string
	output    string
	outputDir string
	verbose   bool
}

func (a *app) bindCommon(set *flag.FlagSet, c *commonFlags) {
	set.StringVar(&c.language, "language", a.cfg.Defaults.Language, "detection language")
	set.StringVar(&c.output, "output", "", "output file path")
	set.StringVar(&c.output, "o", "", "output file path (shorthand)")
	set.StringVar(&c.outputDir, "output-dir", a.cfg.Defaults.OutputDir, "output directory")
	set.BoolVar(&c.verbose, "verbose", false, "verbose logging")
	set.BoolVar(&c.verbose, "v", false, "verbose logging (shorthand)")
}

// parseCommand parses args for name and reports an exit code when the
// command should stop: 0 after --help, 1 on a bad flag.
func (a *app) parseCommand(name string, set *flag.FlagSet, args []string) ([]string, int, bool) {
	positionals, err := parseInterspersed(set, args)
	if errors.Is(err, flag.ErrHelp) {
		help.NewSystem(color.NoColor, a.stdout).ShowCommandHelp(name)
		return nil, 0, true
	}
	if err != nil {
		a.ui.failure("%s: %v", name, err)
		fmt.Fprintf(a.stderr, "Run 'prikit help %s' for usage.\n", name)
		return nil, 1, true
	}
	return positionals, 0, false
}

// runFileCommand handles pdf, image, word, excel and ppt
func (a *app) runFileCommand(ctx context.Context, ft redactors.FileType, args []string) int {
	name := string(ft)
	set := newFlagSet(name)

	var common commonFlags
	a.bindCommon(set, &common)

	var method, key, fillColor, char string
	switch {
	case ft.IsVisual():
		set.StringVar(&method, "method", string(redactors.StrategyMask), "anonymization method")
		set.StringVar(&fillColor, "color", "white", "fill color")
		set.StringVar(&char, "char", "*", "replacement character")
	case ft == redactors.FileTypePPT:
		method = string(redactors.StrategyMask)
	default:
		set.StringVar(&method, "method", "", "anonymization method")
		set.StringVar(&key, "key", "", "encryption key")
	}

	positionals, code, stop := a.parseCommand(name, set, args)
	if stop {
		return code
	}
	if len(positionals) != 1 {
		a.ui.failure("%s requires exactly one input file", name)
		fmt.Fprintf(a.stderr, "Usage: prikit %s <input> [options]\n", name)
		return 1
	}
	if strings.TrimSpace(method) == "" {
		a.ui.failure("%s requires --method (%s)", name, strings.Join(ft.MethodNames(), ", "))
		return 1
	}
	input := positionals[0]

	observer := a.newObserver(common.verbose)
	manager, err := a.newManager(common.outputDir, observer)
	if err != nil {
		a.ui.failure("%v", err)
		return 1
	}

	opts := anonymizer.Options{
		Strategy:   redactors.ParseStrategy(method),
		Key:        key,
		Color:      fillColor,
		Char:       char,
		Language:   common.language,
		OutputPath: common.output,
	}

	a.ui.info("Processing %s file: %s", name, input)
	output, err := manager.ProcessFile(ctx, ft, input, opts)
	if err != nil {
		a.ui.failure("Processing failed: %v", err)
		return 1
	}

	a.ui.success("%s anonymized: %s", strings.ToUpper(name[:1])+name[1:], output)
	return 0
}

// runBatch anonymizes every matching file of a directory
func (a *app) runBatch(ctx context.Context, args []string) int {
	set := newFlagSet("batch")

	var (
		fileType, method, key, fillColor, char string
		language, outputDir                    string
		recursive, verbose                     bool
		workers                                int
		timeout                                time.Duration
	)
	set.StringVar(&fileType, "file-type", "", "file type")
	set.StringVar(&method, "method", "", "anonymization method")
	set.StringVar(&key, "key", "", "encryption key")
	set.StringVar(&fillColor, "color", "white", "fill color")
	set.StringVar(&char, "char", "*", "replacement character")
	set.StringVar(&language, "language", a.cfg.Defaults.Language, "detection language")
	set.StringVar(&outputDir, "output-dir", a.cfg.Defaults.OutputDir, "output directory")
	set.BoolVar(&recursive, "recursive", false, "include subdirectories")
	set.BoolVar(&recursive, "r", false, "include subdirectories (shorthand)")
	set.IntVar(&workers, "workers", a.cfg.Batch.Workers, "parallel workers")
	set.DurationVar(&timeout, "timeout", a.cfg.Batch.FileTimeout, "per-file timeout")
	set.BoolVar(&verbose, "verbose", false, "verbose logging")
	set.BoolVar(&verbose, "v", false, "verbose logging (shorthand)")

	positionals, code, stop := a.parseCommand("batch", set, args)
	if stop {
		return code
	}
	if len(positionals) != 1 {
		a.ui.failure("batch requires exactly one input directory")
		fmt.Fprintln(a.stderr, "Usage: prikit batch <input_dir> --file-type <type> --method <method> [options]")
		return 1
	}
	dir := positionals[0]

	if fileType == "" {
		a.ui.failure("batch requires --file-type (pdf, word, excel, image, ppt)")
		return 1
	}
	ft, err := redactors.ParseFileType(fileType)
	if err != nil {
		a.ui.failure("%v", err)
		return 1
	}
	if method == "" {
		a.ui.failure("batch requires --method (%s)", strings.Join(ft.MethodNames(), ", "))
		return 1
	}
	if workers < 1 {
		a.ui.failure("--workers must be at least 1, got %d", workers)
		return 1
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		a.ui.failure("Input directory does not exist: %s", dir)
		return 1
	}

	observer := a.newObserver(verbose)
	manager, err := a.newManager(outputDir, observer)
	if err != nil {
		a.ui.failure("%v", err)
		return 1
	}

	opts := anonymizer.Options{
		Strategy: redactors.ParseStrategy(method),
		Key:      key,
		Color:    fillColor,
		Char:     char,
		Language: language,
	}

	// Reject bad options before touching any file
	anon, err := manager.Get(ft)
	if err != nil {
		a.ui.failure("%v", err)
		return 1
	}
	if err := anon.ValidateOptions(opts); err != nil {
		a.ui.failure("%v", err)
		return 1
	}

	inputs, err := collectInputs(dir, ft, recursive)
	if err != nil {
		a.ui.failure("Failed to read %s: %v", dir, err)
		return 1
	}
	if len(inputs) == 0 {
		a.ui.warning("no %s files found in %s (extensions: %s)", ft, dir, strings.Join(ft.Extensions(), " "))
		return 0
	}

	a.ui.info("Found %d %s file(s) in %s", len(inputs), ft, dir)
	for i, input := range inputs {
		if i == maxListedFiles {
			fmt.Fprintf(a.stdout, "  ... and %d more\n", len(inputs)-maxListedFiles)
			break
		}
		fmt.Fprintf(a.stdout, "  - %s\n", input)
	}

	opts.Progress = func(completed, total int, input string) {
		fmt.Fprintf(a.stdout, "[%d/%d] %s\n", completed, total, filepath.Base(input))
	}

	result, err := manager.ProcessFiles(ctx, ft, inputs, opts, workers, timeout)
	if err != nil {
		a.ui.failure("Batch failed: %v", err)
		return 1
	}

	failed := result.Failed()
	fmt.Fprintln(a.stdout)
	a.ui.success("Batch finished in %s: %d succeeded, %d failed",
		result.Duration.Round(time.Millisecond), result.SuccessCount(), len(failed))
	for _, r := range result.Results {
		if !r.Succeeded() {
			a.ui.failure("%s: %v", filepath.Base(r.Input), r.Error)
		}
	}

	if len(failed) > 0 {
		return 1
	}
	return 0
}

// collectInputs returns the files of dir matching ft, sorted by path
func collectInputs(dir string, ft redactors.FileType, recursive bool) ([]string, error) {
	var inputs []string

	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() && ft.SupportsFile(path) {
				inputs = append(inputs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && ft.SupportsFile(e.Name()) {
				inputs = append(inputs, filepath.Join(dir, e.Name()))
			}
		}
	}

	sort.Strings(inputs)
	return inputs, nil
}

// runAPI starts the REST API and blocks until ctx is cancelled
func (a *app) runAPI(ctx context.Context, args []string) int {
	set := newFlagSet("api")

	s := a.cfg.Server
	var debug bool
	set.StringVar(&s.Host, "host", s.Host, "listen address")
	set.IntVar(&s.Port, "port", s.Port, "listen port")
	set.StringVar(&s.UploadFolder, "upload-folder", s.UploadFolder, "upload directory")
	set.StringVar(&s.OutputFolder, "output-folder", s.OutputFolder, "output directory")
	set.BoolVar(&debug, "debug", false, "debug logging")

	positionals, code, stop := a.parseCommand("api", set, args)
	if stop {
		return code
	}
	if len(positionals) > 0 {
		a.ui.failure("api takes no positional arguments, got %q", positionals)
		return 1
	}
	if s.Port < 1 || s.Port > 65535 {
		a.ui.failure("--port must be between 1 and 65535, got %d", s.Port)
		return 1
	}

	observer := a.newObserver(debug)
	manager, err := a.newManager(s.OutputFolder, observer)
	if err != nil {
		a.ui.failure("%v", err)
		return 1
	}

	registry := tasks.NewRegistry(s.UploadFolder, observer)
	server, err := web.NewServer(web.Config{
		Host:           s.Host,
		Port:           s.Port,
		UploadDir:      s.UploadFolder,
		MaxUploadBytes: int64(s.MaxUploadMB) << 20,
		RateLimit:      s.RateLimit,
		RateBurst:      s.RateBurst,
		Workers:        s.WorkersPerTask,
		FileTimeout:    a.cfg.Batch.FileTimeout,
		Retention:      s.TaskRetention,
		ReapSchedule:   s.ReapSchedule,
	}, manager, registry, observer)
	if err != nil {
		a.ui.failure("Failed to start API: %v", err)
		return 1
	}

	a.ui.info("%s listening on http://%s", "prikit API", server.Addr())
	fmt.Fprintf(a.stdout, "Uploads: %s  Outputs: %s\n", s.UploadFolder, s.OutputFolder)
	fmt.Fprintln(a.stdout, "Press Ctrl+C to stop")

	if err := server.ListenAndServe(ctx); err != nil {
		a.ui.failure("%v", err)
		return 1
	}

	// Let running tasks finish before exiting
	registry.Wait()
	return 0
}
