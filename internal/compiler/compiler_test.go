package compiler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"

	"github.com/hassan/oslc/internal/diag"
	"github.com/hassan/oslc/internal/preprocess"
	"github.com/hassan/oslc/internal/symtab"
)

// newTestCompiler returns a compiler that reads sources directly and writes
// into dir.
func newTestCompiler(dir string, stderr, stdout io.Writer, opts ...Option) *Compiler {
	base := []Option{
		WithPreprocessor(preprocess.Passthrough{}),
		WithOutputDir(dir),
		WithDiagnostics(stderr),
		WithStdout(stdout),
		WithVersion("test"),
	}
	return New(append(base, opts...)...)
}

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestCompile_Testdata runs every testdata/*.txtar archive. An archive
// holds input.osl, the expected object files by name and, optionally, the
// expected diagnostics as "stderr" and the expected internal error text as
// "internal". Absent object files must not be produced.
func TestCompile_Testdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) == 0 {
		t.Fatal("no testdata archives")
	}

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".txtar"), func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			if err != nil {
				t.Fatal(err)
			}

			dir := t.TempDir()
			var input, wantStderr, wantInternal string
			wantOut := make(map[string]string)
			for _, f := range ar.Files {
				switch {
				case f.Name == "input.osl":
					input = writeSource(t, dir, f.Name, string(f.Data))
				case f.Name == "stderr":
					wantStderr = string(f.Data)
				case f.Name == "internal":
					wantInternal = strings.TrimSpace(string(f.Data))
				case strings.HasSuffix(f.Name, ".oso"):
					wantOut[f.Name] = string(f.Data)
				}
			}
			if input == "" {
				t.Fatal("archive has no input.osl")
			}

			clean := func(s string) string {
				return strings.ReplaceAll(s, dir+string(filepath.Separator), "")
			}

			var stderr bytes.Buffer
			c := newTestCompiler(dir, &stderr, io.Discard)
			err = c.Compile(context.Background(), input, nil)

			if got := clean(stderr.String()); got != wantStderr {
				t.Errorf("diagnostics:\n%s\nwant:\n%s", got, wantStderr)
			}
			wantFail := strings.Contains(wantStderr, ": error: ")
			var ie *diag.InternalError
			switch {
			case wantInternal != "":
				if !errors.As(err, &ie) || !strings.Contains(ie.Message, wantInternal) {
					t.Errorf("Compile() error = %v, want internal error %q", err, wantInternal)
				}
			case wantFail:
				if !errors.Is(err, ErrCompilationFailed) {
					t.Errorf("Compile() error = %v, want ErrCompilationFailed", err)
				}
			case err != nil:
				t.Fatalf("Compile() error = %v", err)
			}

			produced, err := filepath.Glob(filepath.Join(dir, "*.oso"))
			if err != nil {
				t.Fatal(err)
			}
			if len(produced) != len(wantOut) {
				t.Errorf("produced %v, want %d object files", produced, len(wantOut))
			}
			for name, want := range wantOut {
				data, err := os.ReadFile(filepath.Join(dir, name))
				if err != nil {
					t.Errorf("%s: %v", name, err)
					continue
				}
				got := clean(string(data))
				if got == want {
					continue
				}
				gl, wl := strings.SplitAfter(got, "\n"), strings.SplitAfter(want, "\n")
				for i := 0; i < len(gl) || i < len(wl); i++ {
					var g, w string
					if i < len(gl) {
						g = gl[i]
					}
					if i < len(wl) {
						w = wl[i]
					}
					if g != w {
						t.Errorf("%s line %d = %q, want %q", name, i+1, g, w)
					}
				}
			}
		})
	}
}

func TestNewContext_Options(t *testing.T) {
	tests := []struct {
		name     string
		options  []string
		verbose  bool
		debug    bool
		wantArgs []string
	}{
		{"none", nil, false, false, nil},
		{"flags", []string{"-v", "-d"}, true, true, nil},
		{"forwarded", []string{"-DFOO=1", "-v", "-I", "include dir"}, true, false, []string{"-DFOO=1", "-I", "include dir"}},
	}

	c := New(WithDiagnostics(io.Discard))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cc := c.newContext("a.osl", tt.options)
			defer cc.close()
			if cc.Verbose != tt.verbose || cc.Debug != tt.debug {
				t.Errorf("verbose, debug = %v, %v, want %v, %v", cc.Verbose, cc.Debug, tt.verbose, tt.debug)
			}
			if strings.Join(cc.Args, "|") != strings.Join(tt.wantArgs, "|") {
				t.Errorf("Args = %q, want %q", cc.Args, tt.wantArgs)
			}
		})
	}
}

// recorder is a preprocessor that serves fixed text and remembers how it
// was called.
type recorder struct {
	text     string
	err      error
	closeErr error

	filename string
	args     []string
	closed   int
}

func (r *recorder) Run(ctx context.Context, filename string, args []string) (io.ReadCloser, error) {
	r.filename = filename
	r.args = args
	if r.err != nil {
		return nil, r.err
	}
	return &recordedReader{Reader: strings.NewReader(r.text), r: r}, nil
}

type recordedReader struct {
	io.Reader
	r *recorder
}

func (rr *recordedReader) Close() error {
	rr.r.closed++
	return rr.r.closeErr
}

func TestCompile_Preprocessor(t *testing.T) {
	t.Run("forwards options and releases the reader", func(t *testing.T) {
		rec := &recorder{text: "surface s() { }"}
		c := newTestCompiler(t.TempDir(), io.Discard, io.Discard, WithPreprocessor(rec))
		if err := c.Compile(context.Background(), "s.osl", []string{"-DX=1", "-v", "-Iinc"}); err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if rec.filename != "s.osl" || strings.Join(rec.args, " ") != "-DX=1 -Iinc" {
			t.Errorf("preprocessor ran with %q %q", rec.filename, rec.args)
		}
		if rec.closed != 1 {
			t.Errorf("reader closed %d times, want 1", rec.closed)
		}
	})

	t.Run("released on syntax errors", func(t *testing.T) {
		rec := &recorder{text: "surface s() { float x = ; }"}
		c := newTestCompiler(t.TempDir(), io.Discard, io.Discard, WithPreprocessor(rec))
		err := c.Compile(context.Background(), "s.osl", nil)
		if !errors.Is(err, ErrCompilationFailed) {
			t.Errorf("Compile() error = %v, want ErrCompilationFailed", err)
		}
		if rec.closed != 1 {
			t.Errorf("reader closed %d times, want 1", rec.closed)
		}
	})

	t.Run("start failure", func(t *testing.T) {
		var stderr bytes.Buffer
		rec := &recorder{err: errors.New("cpp: not found")}
		c := newTestCompiler(t.TempDir(), &stderr, io.Discard, WithPreprocessor(rec))
		err := c.Compile(context.Background(), "s.osl", nil)
		if !errors.Is(err, ErrCompilationFailed) {
			t.Errorf("Compile() error = %v, want ErrCompilationFailed", err)
		}
		if got := stderr.String(); got != "error: cpp: not found\n" {
			t.Errorf("diagnostics = %q", got)
		}
	})

	t.Run("exit failure", func(t *testing.T) {
		rec := &recorder{text: "surface s() { }", closeErr: errors.New("preprocess s.osl: exit status 1")}
		dir := t.TempDir()
		c := newTestCompiler(dir, io.Discard, io.Discard, WithPreprocessor(rec))
		if err := c.Compile(context.Background(), "s.osl", nil); !errors.Is(err, ErrCompilationFailed) {
			t.Errorf("Compile() error = %v, want ErrCompilationFailed", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "s.oso")); !os.IsNotExist(err) {
			t.Errorf("object file written after a failed preprocessor run")
		}
	})
}

func TestCompile_SyntaxErrorsBatched(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "input.osl", "surface s()\n{\n    float x = ;\n    x = 1;\n    float y = * 2;\n}\n")

	var stderr bytes.Buffer
	err := newTestCompiler(dir, &stderr, io.Discard).Compile(context.Background(), path, nil)
	if !errors.Is(err, ErrCompilationFailed) {
		t.Fatalf("Compile() error = %v, want ErrCompilationFailed", err)
	}
	for _, want := range []string{path + ":3: error: ", path + ":5: error: "} {
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("diagnostics lack %q:\n%s", want, stderr.String())
		}
	}
}

func TestCompile_VerboseAndDebug(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "dbg.osl", "surface dbg()\n{\n    float x = 1;\n    x = x + 1;\n}\n")

	var stdout bytes.Buffer
	c := newTestCompiler(dir, io.Discard, &stdout)
	if err := c.Compile(context.Background(), path, []string{"-v", "-d"}); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	for _, want := range []string{
		"✓ Parsing successful\n",
		"✓ Type checking successful\n",
		"Symbol table:\n",
		"Syntax tree:\n",
		"method ___main___\n",
		"✓ Code generation successful (3 instructions)\n",
		"✓ Wrote " + filepath.Join(dir, "dbg.oso") + "\n",
	} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout lacks %q:\n%s", want, stdout.String())
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "dbg.oso"))
	if err != nil {
		t.Fatal(err)
	}
	want := "code ___main___\n# " + path + ":3\n#     float x = 1;\n\tassign\t\t___1_x $const1 "
	if !strings.Contains(string(data), want) {
		t.Errorf("object file lacks the source annotation:\n%s", data)
	}
}

func TestCompile_QuietByDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "q.osl", "surface q() { }")

	var stdout bytes.Buffer
	if err := newTestCompiler(dir, io.Discard, &stdout).Compile(context.Background(), path, nil); err != nil {
		t.Fatal(err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want nothing", stdout.String())
	}
}

func TestCompile_OutputDirMissing(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "s.osl", "surface s() { }")

	var stderr bytes.Buffer
	c := newTestCompiler(filepath.Join(dir, "missing"), &stderr, io.Discard)
	err := c.Compile(context.Background(), path, nil)
	if !errors.Is(err, ErrCompilationFailed) {
		t.Errorf("Compile() error = %v, want ErrCompilationFailed", err)
	}
	if !strings.HasPrefix(stderr.String(), "error: could not open ") {
		t.Errorf("diagnostics = %q", stderr.String())
	}
}

func TestCompile_InternalError(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "meta.osl", "surface meta(float Kd = 1 [[ float m = 1 + 1 ]]) { }")

	err := newTestCompiler(dir, io.Discard, io.Discard).Compile(context.Background(), path, nil)
	var ie *diag.InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("Compile() error = %v, want *diag.InternalError", err)
	}
	if errors.Is(err, ErrCompilationFailed) {
		t.Error("an internal error is not a user error")
	}
	if _, err := os.Stat(filepath.Join(dir, "meta.oso")); !os.IsNotExist(err) {
		t.Error("object file written despite the internal error")
	}
}

func TestCompile_NoShader(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "ray.osl", "struct Ray { point o; vector d; };\n")

	var stdout bytes.Buffer
	err := newTestCompiler(dir, io.Discard, &stdout).Compile(context.Background(), path, []string{"-v"})
	var ie *diag.InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("Compile() error = %v, want *diag.InternalError", err)
	}
	if ie.File != path {
		t.Errorf("error file = %q, want %q", ie.File, path)
	}
	if strings.Contains(stdout.String(), "Type checking successful") {
		t.Errorf("stdout reports success:\n%s", stdout.String())
	}
	produced, _ := filepath.Glob(filepath.Join(dir, "*.oso"))
	if len(produced) != 0 {
		t.Errorf("produced %v, want no object file", produced)
	}
}

func TestCompile_DebugDumpOnTypeErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "bad.osl", "surface bad()\n{\n    float x = \"s\";\n}\n")

	var stdout bytes.Buffer
	err := newTestCompiler(dir, io.Discard, &stdout).Compile(context.Background(), path, []string{"-d"})
	if !errors.Is(err, ErrCompilationFailed) {
		t.Fatalf("Compile() error = %v, want ErrCompilationFailed", err)
	}
	for _, want := range []string{"Symbol table:\n", "Syntax tree:\n", "shader surface bad\n"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout lacks %q:\n%s", want, stdout.String())
		}
	}
	if strings.Contains(stdout.String(), "method ___main___") {
		t.Error("code was generated despite the type error")
	}
}

func TestCompile_MangledNamesDistinct(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "m.osl", `
surface m(float x = 1)
{
    float y = x;
    {
        float x = y;
        float y = x * 2;
        y = 1.0;
    }
    for (int x = 0; x < 2; x++) {
        float y = 1.0;
        y += x;
    }
}`)

	c := newTestCompiler(dir, io.Discard, io.Discard)
	cc := c.newContext(path, nil)
	defer cc.close()
	if err := c.run(context.Background(), cc); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	seen := make(map[string]bool)
	for _, s := range cc.Table.Symbols() {
		if seen[s.Mangled] {
			t.Errorf("mangled name %s used twice", s.Mangled)
		}
		seen[s.Mangled] = true
	}

	floats := 0
	for _, s := range cc.Table.Symbols() {
		if s.SymType == symtab.SymConst && s.Value == float64(1) {
			floats++
		}
	}
	if floats != 1 {
		t.Errorf("%d constants hold 1.0, want 1", floats)
	}
}

// Compilations sharing one Compiler must not share state.
func TestCompile_Concurrent(t *testing.T) {
	dir := t.TempDir()
	names := []string{"shaderA", "shaderB", "shaderC", "shaderD", "shaderE", "shaderF"}
	for _, n := range names {
		writeSource(t, dir, n+".osl", "surface "+n+"(float Kd = 0.5)\n{\n    float x = Kd * 2;\n    Ci = x * diffuse(N);\n}\n")
	}
	c := newTestCompiler(dir, io.Discard, io.Discard)

	var g errgroup.Group
	for _, n := range names {
		g.Go(func() error {
			return c.Compile(context.Background(), filepath.Join(dir, n+".osl"), nil)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	var first string
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n+".oso"))
		if err != nil {
			t.Fatal(err)
		}
		// Differ only in the shader name and the file name hint.
		text := strings.ReplaceAll(string(data), n, "NAME")
		if first == "" {
			first = text
		} else if text != first {
			t.Errorf("%s.oso differs:\n%s\nwant:\n%s", n, text, first)
		}
	}
}
