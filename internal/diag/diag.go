// Package diag collects compiler diagnostics.
//
// A Sink records warnings and errors with their file and line, prints each
// one as it is recorded, and keeps a sticky failure flag: once an error has
// been recorded the compilation has failed, whatever happens afterwards.
//
// Internal-consistency violations are not diagnostics. They are reported
// with Internalf, which panics with an *InternalError; the driver turns it
// back into an error with Recover.
package diag

import (
	"fmt"
	"io"
	"strconv"
)

// Severity classifies a diagnostic.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// Diagnostic is one recorded message.
type Diagnostic struct {
	File     string
	Line     int
	Severity Severity
	Message  string
}

// String renders "file:line: error: message", or "error: message" when the
// diagnostic has no file.
func (d Diagnostic) String() string {
	if d.File == "" {
		return d.Severity.String() + ": " + d.Message
	}
	return d.File + ":" + strconv.Itoa(d.Line) + ": " + d.Severity.String() + ": " + d.Message
}

// Sink accumulates diagnostics for one compilation. It is not safe for
// concurrent use; every compilation owns its own Sink.
type Sink struct {
	out         io.Writer
	diagnostics []Diagnostic
	failed      bool
}

// NewSink returns a Sink that prints every diagnostic to out. A nil out
// discards the printed form; diagnostics are still recorded.
func NewSink(out io.Writer) *Sink {
	if out == nil {
		out = io.Discard
	}
	return &Sink{out: out}
}

// Warningf records a warning. Warnings never fail a compilation.
func (s *Sink) Warningf(file string, line int, format string, args ...interface{}) {
	s.record(Diagnostic{File: file, Line: line, Severity: Warning, Message: fmt.Sprintf(format, args...)})
}

// Errorf records an error and sets the failure flag.
func (s *Sink) Errorf(file string, line int, format string, args ...interface{}) {
	s.failed = true
	s.record(Diagnostic{File: file, Line: line, Severity: Error, Message: fmt.Sprintf(format, args...)})
}

func (s *Sink) record(d Diagnostic) {
	s.diagnostics = append(s.diagnostics, d)
	fmt.Fprintln(s.out, d.String())
}

// HasErrors reports whether any error has been recorded. The flag is never
// cleared.
func (s *Sink) HasErrors() bool { return s.failed }

// Diagnostics returns the recorded diagnostics in order.
func (s *Sink) Diagnostics() []Diagnostic { return s.diagnostics }

// Count returns the number of recorded diagnostics of the given severity.
func (s *Sink) Count(sev Severity) int {
	n := 0
	for _, d := range s.diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// InternalError reports a broken invariant inside the compiler, as opposed
// to a problem with the user's source.
type InternalError struct {
	File    string
	Line    int
	Message string
}

func (e *InternalError) Error() string {
	if e.File == "" {
		return "internal compiler error: " + e.Message
	}
	return fmt.Sprintf("%s:%d: internal compiler error: %s", e.File, e.Line, e.Message)
}

// Internalf panics with an *InternalError.
func Internalf(file string, line int, format string, args ...interface{}) {
	panic(&InternalError{File: file, Line: line, Message: fmt.Sprintf(format, args...)})
}

// Recover converts a panic carrying an *InternalError into *errp. Any
// other panic is re-raised. It must be called directly by a deferred
// function:
//
//	defer diag.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	ie, ok := r.(*InternalError)
	if !ok {
		panic(r)
	}
	*errp = ie
}
