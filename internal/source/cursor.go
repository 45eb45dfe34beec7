// Package source retrieves source lines for debug annotations in the
// object file.
//
// Lines are requested in roughly increasing order (instructions follow the
// source), so Cursor keeps one file open and scans forward. Going backwards
// rewinds to the start of the file; switching files reopens.
package source

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// NotFound is returned for lines that cannot be read.
const NotFound = "<not found>"

// LineSource opens source files by path.
type LineSource interface {
	Open(path string) (io.ReadCloser, error)
}

// FileSource reads from the file system.
type FileSource struct{}

// Open opens path with os.Open.
func (FileSource) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// MapSource serves files from memory, keyed by path.
type MapSource map[string]string

// Open returns the contents stored under path.
func (m MapSource) Open(path string) (io.ReadCloser, error) {
	text, ok := m[path]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

// Cursor is a forward-biased reader over one source file at a time.
//
// State:
//
//	path  the file currently open ("" if none)
//	last  the number of the last line read, 0 before the first
//	text  the text of line last
type Cursor struct {
	src LineSource

	path string
	last int
	text string

	rc      io.ReadCloser
	scanner *bufio.Scanner

	// broken is set when path could not be opened.
	broken bool
}

// NewCursor returns a Cursor reading through src.
func NewCursor(src LineSource) *Cursor {
	return &Cursor{src: src}
}

// Line returns the text of line n (1-based) of path, without the line
// terminator, or NotFound if the file cannot be opened or is shorter.
func (c *Cursor) Line(path string, n int) string {
	if path != c.path {
		c.open(path)
	}
	if c.broken || n < 1 {
		return NotFound
	}
	if n == c.last {
		return c.text
	}
	if n < c.last {
		c.open(path)
		if c.broken {
			return NotFound
		}
	}
	for c.last < n {
		if !c.scanner.Scan() {
			return NotFound
		}
		c.last++
		c.text = c.scanner.Text()
	}
	return c.text
}

// open closes the current file and opens path from its first line.
func (c *Cursor) open(path string) {
	c.Close()
	c.path = path
	rc, err := c.src.Open(path)
	if err != nil {
		c.broken = true
		return
	}
	c.rc = rc
	c.scanner = bufio.NewScanner(rc)
	c.scanner.Buffer(make([]byte, 0, 4096), 1<<20)
}

// Close releases the open file, if any. The cursor stays usable.
func (c *Cursor) Close() error {
	var err error
	if c.rc != nil {
		err = c.rc.Close()
	}
	c.rc = nil
	c.scanner = nil
	c.path = ""
	c.last = 0
	c.text = ""
	c.broken = false
	return err
}
