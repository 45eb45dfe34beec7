// Package compiler drives one shader compilation from source file to
// object file.
//
// PIPELINE:
//
//	preprocess -> parse -> typecheck -> (debug dump) -> codegen -> write
//
// Every stage records its problems in a diag.Sink. Parsing runs to the end
// of the file to report as many syntax errors as it can, but once any
// error has been recorded no later stage runs. The debug dump is the
// exception: it follows typecheck whether or not that reported errors.
//
// A Compiler is configuration only. All state of a compilation lives in a
// Context created by Compile and dropped when it returns, so one Compiler
// may run several compilations concurrently.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hassan/oslc/internal/diag"
	"github.com/hassan/oslc/internal/ir"
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/oso"
	"github.com/hassan/oslc/internal/parser"
	"github.com/hassan/oslc/internal/parser/ast"
	"github.com/hassan/oslc/internal/preprocess"
	"github.com/hassan/oslc/internal/semantic"
	"github.com/hassan/oslc/internal/source"
	"github.com/hassan/oslc/internal/symtab"
)

// Version is written into object files unless WithVersion overrides it.
const Version = "0.1.0"

// ErrCompilationFailed is returned when a compilation recorded an error.
var ErrCompilationFailed = errors.New("compilation failed")

// Compiler compiles shader source files into .oso object files.
type Compiler struct {
	outputDir    string
	preprocessor preprocess.Preprocessor
	diagnostics  io.Writer
	stdout       io.Writer
	globals      oso.GlobalsPolicy
	lines        source.LineSource
	version      string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithOutputDir sets the directory object files are written to. The
// default is the working directory.
func WithOutputDir(dir string) Option {
	return func(c *Compiler) { c.outputDir = dir }
}

// WithPreprocessor replaces the default "cpp" preprocessor.
func WithPreprocessor(p preprocess.Preprocessor) Option {
	return func(c *Compiler) { c.preprocessor = p }
}

// WithDiagnostics sets where errors and warnings are printed.
func WithDiagnostics(w io.Writer) Option {
	return func(c *Compiler) { c.diagnostics = w }
}

// WithStdout sets where verbose progress and debug dumps are printed.
func WithStdout(w io.Writer) Option {
	return func(c *Compiler) { c.stdout = w }
}

// WithGlobals selects which globals are written to the object file.
func WithGlobals(p oso.GlobalsPolicy) Option {
	return func(c *Compiler) { c.globals = p }
}

// WithLineSource sets where debug mode reads source lines from.
func WithLineSource(src source.LineSource) Option {
	return func(c *Compiler) { c.lines = src }
}

// WithVersion sets the version recorded in object files.
func WithVersion(v string) Option {
	return func(c *Compiler) { c.version = v }
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		outputDir:    ".",
		preprocessor: preprocess.NewCommand(),
		diagnostics:  os.Stderr,
		stdout:       os.Stdout,
		globals:      oso.ReferencedGlobals,
		lines:        source.FileSource{},
		version:      Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Context is the state of one compilation. It is created by Compile and
// handed to each stage in turn.
type Context struct {
	Filename string

	Verbose bool
	Debug   bool

	// Args are the options forwarded to the preprocessor.
	Args []string

	Sink  *diag.Sink
	Table *symtab.Table

	File   *ast.File
	Shader *ast.ShaderDecl
	Unit   *ir.Unit

	// Output is the path of the object file, once written.
	Output string

	cursor *source.Cursor
}

// newContext splits options into driver flags and forwarded arguments.
func (c *Compiler) newContext(filename string, options []string) *Context {
	cc := &Context{
		Filename: filename,
		Sink:     diag.NewSink(c.diagnostics),
		Table:    symtab.New(),
	}
	for _, opt := range options {
		switch opt {
		case "-v":
			cc.Verbose = true
		case "-d":
			cc.Debug = true
		default:
			cc.Args = append(cc.Args, opt)
		}
	}
	if cc.Debug {
		cc.cursor = source.NewCursor(c.lines)
	}
	return cc
}

func (cc *Context) close() {
	if cc.cursor != nil {
		cc.cursor.Close()
	}
}

// Compile compiles filename. options holds "-v" (verbose) and "-d"
// (debug); every other option is passed to the preprocessor.
//
// It returns nil on success and an error wrapping ErrCompilationFailed if
// any error was recorded. A broken compiler invariant, including a file
// that declares no shader, is returned as a *diag.InternalError and no
// object file is written.
func (c *Compiler) Compile(ctx context.Context, filename string, options []string) (err error) {
	cc := c.newContext(filename, options)
	defer cc.close()
	defer diag.Recover(&err)

	return c.run(ctx, cc)
}

// run executes the pipeline on cc.
func (c *Compiler) run(ctx context.Context, cc *Context) error {
	c.parse(ctx, cc)
	if cc.Sink.HasErrors() {
		return c.failed(cc)
	}
	c.progress(cc, "✓ Parsing successful")

	c.typecheck(cc)
	if cc.Debug {
		if err := c.dumpTree(cc); err != nil {
			return err
		}
	}
	if cc.Sink.HasErrors() {
		return c.failed(cc)
	}
	if cc.Shader == nil {
		diag.Internalf(cc.Filename, 0, "no shader declared, nothing to generate")
	}
	c.progress(cc, "✓ Type checking successful")

	c.generate(cc)
	c.progress(cc, "✓ Code generation successful (%d instructions)", len(cc.Unit.Code))

	if cc.Debug {
		if err := cc.Unit.Print(c.stdout); err != nil {
			return err
		}
	}

	if err := c.write(cc); err != nil {
		return err
	}
	if cc.Sink.HasErrors() {
		return c.failed(cc)
	}
	c.progress(cc, "✓ Wrote %s", cc.Output)
	return nil
}

func (c *Compiler) failed(cc *Context) error {
	return fmt.Errorf("%s: %w (%d errors)", cc.Filename, ErrCompilationFailed, cc.Sink.Count(diag.Error))
}

func (c *Compiler) progress(cc *Context, format string, args ...interface{}) {
	if cc.Verbose {
		fmt.Fprintf(c.stdout, format+"\n", args...)
	}
}

// parse runs the preprocessor and parses its output. The preprocessor is
// released before parse returns.
func (c *Compiler) parse(ctx context.Context, cc *Context) {
	rc, err := c.preprocessor.Run(ctx, cc.Filename, cc.Args)
	if err != nil {
		cc.Sink.Errorf("", 0, "%v", err)
		return
	}
	text, readErr := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		cc.Sink.Errorf("", 0, "%v", err)
		return
	}
	if readErr != nil {
		cc.Sink.Errorf("", 0, "reading preprocessed %s: %v", cc.Filename, readErr)
		return
	}

	file, errs := parser.New(lexer.New(string(text), cc.Filename)).ParseFile(cc.Filename)
	for _, e := range errs {
		cc.syntaxError(e)
	}
	cc.File = file
}

// syntaxError records a parse or scan error at its position.
func (cc *Context) syntaxError(err error) {
	var pe *parser.Error
	var le *lexer.Error
	switch {
	case errors.As(err, &pe):
		cc.Sink.Errorf(pe.Pos.Filename, pe.Pos.Line, "%s", pe.Message)
	case errors.As(err, &le):
		cc.Sink.Errorf(le.Pos.Filename, le.Pos.Line, "%s", le.Message)
	default:
		cc.Sink.Errorf(cc.Filename, 0, "%v", err)
	}
}

func (c *Compiler) typecheck(cc *Context) {
	cc.Shader = semantic.New(cc.Table, cc.Sink).Analyze(cc.File)
}

// dumpTree prints the symbol table and the syntax tree.
func (c *Compiler) dumpTree(cc *Context) error {
	fmt.Fprintln(c.stdout, "Symbol table:")
	if err := cc.Table.Print(c.stdout); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "\nSyntax tree:")
	return ast.Fprint(c.stdout, cc.File)
}

func (c *Compiler) generate(cc *Context) {
	cc.Unit = ir.Generate(cc.Shader, cc.Table)
}

// write serializes the unit to <shader>.oso in the output directory. The
// file is only created once the whole object has been rendered.
func (c *Compiler) write(cc *Context) error {
	var buf bytes.Buffer
	err := oso.Write(&buf, cc.Unit, oso.Options{
		Version: c.version,
		Globals: c.globals,
		Debug:   cc.Debug,
		Lines:   cc.cursor,
	})
	if err != nil {
		return err
	}

	path := filepath.Join(c.outputDir, cc.Unit.Name+".oso")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		cc.Sink.Errorf("", 0, "could not open %q: %v", path, err)
		return nil
	}
	cc.Output = path
	return nil
}
