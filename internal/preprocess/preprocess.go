// Package preprocess runs the C preprocessor over shader source.
//
// The preprocessor is an external program started with an argument
// vector: every forwarded option and the input file name are separate argv
// entries, so nothing is ever re-parsed by a shell.
package preprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Preprocessor produces the preprocessed text of a shader source file.
type Preprocessor interface {
	// Run starts preprocessing filename with the forwarded options args.
	// The caller must Close the returned reader on every path; Close
	// releases the process and reports a failed preprocessor run.
	Run(ctx context.Context, filename string, args []string) (io.ReadCloser, error)
}

// DefaultPath is the preprocessor used when none is configured.
const DefaultPath = "cpp"

// DefaultFlags are passed before the forwarded options.
var DefaultFlags = []string{"-xc", "-nostdinc"}

// Command runs an external preprocessor. The argument vector is
// Flags, then the forwarded options, then the file name.
type Command struct {
	Path  string
	Flags []string
}

// NewCommand returns the default "cpp -xc -nostdinc" preprocessor.
func NewCommand() *Command {
	return &Command{Path: DefaultPath, Flags: append([]string(nil), DefaultFlags...)}
}

// Argv returns the full argument vector for filename, without the
// program name.
func (c *Command) Argv(filename string, args []string) []string {
	argv := make([]string, 0, len(c.Flags)+len(args)+1)
	argv = append(argv, c.Flags...)
	argv = append(argv, args...)
	return append(argv, filename)
}

// Run starts the preprocessor. Its standard output is the returned reader.
func (c *Command) Run(ctx context.Context, filename string, args []string) (io.ReadCloser, error) {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	cmd := exec.CommandContext(ctx, path, c.Argv(filename, args)...)

	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", filename, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", filename, err)
	}
	return &process{cmd: cmd, stdout: stdout, stderr: stderr, filename: filename}, nil
}

// process is the reader handed out by Command.Run.
type process struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	stderr   *bytes.Buffer
	filename string

	once sync.Once
	err  error
}

func (p *process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close drains the pipe, waits for the process and reports its failure.
// It is safe to call more than once.
func (p *process) Close() error {
	p.once.Do(func() {
		// Unread output would block the child on a full pipe.
		_, _ = io.Copy(io.Discard, p.stdout)
		if err := p.cmd.Wait(); err != nil {
			msg := strings.TrimSpace(p.stderr.String())
			if msg != "" {
				p.err = fmt.Errorf("preprocess %s: %w: %s", p.filename, err, msg)
			} else {
				p.err = fmt.Errorf("preprocess %s: %w", p.filename, err)
			}
		}
	})
	return p.err
}

// Passthrough reads the file as is. It is used when no preprocessor is
// wanted; forwarded options are ignored.
type Passthrough struct{}

// Run opens filename.
func (Passthrough) Run(ctx context.Context, filename string, args []string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	return f, nil
}

// ErrNotFound reports that the configured preprocessor is not installed.
var ErrNotFound = errors.New("preprocessor not found")

// Lookup checks that the command's program can be found on PATH.
func (c *Command) Lookup() error {
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return nil
}
