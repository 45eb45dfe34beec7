// Command oslc compiles OSL shader sources into .oso object files.
//
// Usage:
//
//	oslc [options] file.osl ...
//
// -v (verbose) and -d (debug) are handled by the compiler. Every other
// argument that starts with '-' is passed unchanged to the preprocessor,
// so values must be joined to their flag: -Iinclude, -DQUALITY=2.
//
// Several files are compiled concurrently; each compilation is
// independent and a failure in one does not stop the others.
//
// Environment:
//
//	OSLC_CPP       preprocessor program (default "cpp"; "none" reads sources as is)
//	OSLC_CPPFLAGS  flags passed before the options (default "-xc -nostdinc")
//	OSLC_GLOBALS   "referenced" (default) or "all" globals in object files
//	OSLC_OUTDIR    output directory (default ".")
//	OSLC_JOBS      number of files compiled at once (default: number of CPUs)
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/xyproto/env/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hassan/oslc/internal/compiler"
	"github.com/hassan/oslc/internal/oso"
	"github.com/hassan/oslc/internal/preprocess"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "oslc: %v\n", err)
		os.Exit(2)
	}
	os.Exit(run(context.Background(), os.Args[1:], cfg, os.Stdout, os.Stderr))
}

// config is the environment configuration.
type config struct {
	cpp      string
	cppFlags []string
	globals  oso.GlobalsPolicy
	outDir   string
	jobs     int
}

func loadConfig() (config, error) {
	cfg := config{
		cpp:     env.Str("OSLC_CPP", preprocess.DefaultPath),
		outDir:  env.Str("OSLC_OUTDIR", "."),
		jobs:    env.Int("OSLC_JOBS", runtime.NumCPU()),
		globals: oso.ReferencedGlobals,
	}
	if cfg.jobs < 1 {
		cfg.jobs = 1
	}

	cfg.cppFlags = append([]string(nil), preprocess.DefaultFlags...)
	if flags := env.Str("OSLC_CPPFLAGS"); flags != "" {
		cfg.cppFlags = strings.Fields(flags)
	}

	policy, err := oso.ParseGlobalsPolicy(env.Str("OSLC_GLOBALS"))
	if err != nil {
		return cfg, fmt.Errorf("OSLC_GLOBALS: %w", err)
	}
	cfg.globals = policy
	return cfg, nil
}

// preprocessor returns the configured preprocessor.
func (cfg config) preprocessor() (preprocess.Preprocessor, error) {
	if cfg.cpp == "none" {
		return preprocess.Passthrough{}, nil
	}
	cmd := &preprocess.Command{Path: cfg.cpp, Flags: cfg.cppFlags}
	if err := cmd.Lookup(); err != nil {
		return nil, fmt.Errorf("%w (set OSLC_CPP=none to compile without preprocessing)", err)
	}
	return cmd, nil
}

// splitArgs separates options from input files.
func splitArgs(args []string) (options, files []string) {
	for _, a := range args {
		if strings.HasPrefix(a, "-") && a != "-" {
			options = append(options, a)
		} else {
			files = append(files, a)
		}
	}
	return options, files
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: oslc [options] file.osl ...")
	fmt.Fprintln(w, "  -v        verbose")
	fmt.Fprintln(w, "  -d        debug: annotate object files with source lines and dump the compiler state")
	fmt.Fprintln(w, "  -D, -U, -I and any other option are passed to the preprocessor")
}

// run compiles every file named in args and returns the exit status.
func run(ctx context.Context, args []string, cfg config, stdout, stderr io.Writer) int {
	options, files := splitArgs(args)
	for _, o := range options {
		if o == "-h" || o == "-help" || o == "--help" {
			usage(stdout)
			return 0
		}
	}
	if len(files) == 0 {
		usage(stderr)
		return 2
	}

	pre, err := cfg.preprocessor()
	if err != nil {
		fmt.Fprintf(stderr, "oslc: %v\n", err)
		return 1
	}

	out := &lockedWriter{w: stdout}
	diagnostics := &lockedWriter{w: stderr}
	c := compiler.New(
		compiler.WithPreprocessor(pre),
		compiler.WithOutputDir(cfg.outDir),
		compiler.WithGlobals(cfg.globals),
		compiler.WithStdout(out),
		compiler.WithDiagnostics(diagnostics),
	)

	var g errgroup.Group
	g.SetLimit(cfg.jobs)
	var mu sync.Mutex
	failed := 0
	for _, file := range files {
		g.Go(func() error {
			err := c.Compile(ctx, file, options)
			if err == nil {
				return nil
			}
			if !errors.Is(err, compiler.ErrCompilationFailed) {
				fmt.Fprintf(diagnostics, "oslc: %s: %v\n", file, err)
			}
			mu.Lock()
			failed++
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		if len(files) > 1 {
			fmt.Fprintf(diagnostics, "oslc: %d of %d files failed to compile\n", failed, len(files))
		}
		return 1
	}
	return 0
}

// lockedWriter serializes writes from concurrent compilations so that
// lines do not interleave.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
