package source

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = "line one\nline two\nline three\nline four\nline five\nline six\n"

// countingSource records how often each file was opened and closed.
type countingSource struct {
	files  MapSource
	opens  map[string]int
	closes int
}

func (s *countingSource) Open(path string) (io.ReadCloser, error) {
	s.opens[path]++
	rc, err := s.files.Open(path)
	if err != nil {
		return nil, err
	}
	return &countingCloser{ReadCloser: rc, s: s}, nil
}

type countingCloser struct {
	io.ReadCloser
	s *countingSource
}

func (c *countingCloser) Close() error {
	c.s.closes++
	return c.ReadCloser.Close()
}

func newCounting() *countingSource {
	return &countingSource{
		files: MapSource{"a.osl": sample, "b.osl": "first\nsecond\n"},
		opens: make(map[string]int),
	}
}

func TestCursor_ForwardAndRewind(t *testing.T) {
	src := newCounting()
	c := NewCursor(src)
	defer c.Close()

	if got := c.Line("a.osl", 5); got != "line five" {
		t.Errorf("Line(5) = %q, want %q", got, "line five")
	}
	if got := c.Line("a.osl", 3); got != "line three" {
		t.Errorf("Line(3) after Line(5) = %q, want %q", got, "line three")
	}
	if src.opens["a.osl"] != 2 {
		t.Errorf("a.osl opened %d times, want 2 (rewind)", src.opens["a.osl"])
	}
	if got := c.Line("a.osl", 6); got != "line six" {
		t.Errorf("Line(6) = %q", got)
	}
	if src.opens["a.osl"] != 2 {
		t.Error("forward reads must not reopen the file")
	}
}

func TestCursor_SameLineTwice(t *testing.T) {
	c := NewCursor(newCounting())
	defer c.Close()

	first := c.Line("a.osl", 2)
	second := c.Line("a.osl", 2)
	if first != "line two" || first != second {
		t.Errorf("Line(2) twice = %q, %q", first, second)
	}
}

func TestCursor_SwitchFiles(t *testing.T) {
	src := newCounting()
	c := NewCursor(src)

	if got := c.Line("a.osl", 4); got != "line four" {
		t.Errorf("a.osl:4 = %q", got)
	}
	if got := c.Line("b.osl", 2); got != "second" {
		t.Errorf("b.osl:2 = %q", got)
	}
	if src.closes != 1 {
		t.Errorf("switching files closed %d handles, want 1", src.closes)
	}
	if got := c.Line("a.osl", 1); got != "line one" {
		t.Errorf("a.osl:1 = %q", got)
	}
	c.Close()
	if src.closes != 3 {
		t.Errorf("closes = %d, want 3", src.closes)
	}
}

func TestCursor_NotFound(t *testing.T) {
	c := NewCursor(newCounting())
	defer c.Close()

	tests := []struct {
		name string
		path string
		line int
	}{
		{"missing file", "missing.osl", 1},
		{"past end", "b.osl", 10},
		{"line zero", "b.osl", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Line(tt.path, tt.line); got != NotFound {
				t.Errorf("Line(%s, %d) = %q, want %q", tt.path, tt.line, got, NotFound)
			}
		})
	}
	// The cursor recovers after a miss.
	if got := c.Line("b.osl", 1); got != "first" {
		t.Errorf("b.osl:1 = %q, want first", got)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.osl")
	if err := os.WriteFile(path, []byte(strings.ReplaceAll(sample, "\n", "\r\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewCursor(FileSource{})
	defer c.Close()

	if got := c.Line(path, 2); strings.TrimSuffix(got, "\r") != "line two" {
		t.Errorf("Line(2) = %q", got)
	}
}
