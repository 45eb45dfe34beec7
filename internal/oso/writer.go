// Package oso writes compiled units in the OpenShadingLanguage object
// format.
//
// The format is line oriented text. Tabs and trailing spaces are part of
// the format; readers split on them, so the writer reproduces them
// exactly:
//
//	OpenShadingLanguage 0.0
//	# Compiled by oslc 0.1
//	surface plastic
//	param	float	Kd	0.5 		%meta{string,help,"diffuse"} 
//	global	closure color	Ci
//	const	int	$const1	2	
//	code ___main___
//		mul		$tmp1 Kd $const1 	%filename{"plastic.osl"} %line{4}
//		end
package oso

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hassan/oslc/internal/diag"
	"github.com/hassan/oslc/internal/ir"
	"github.com/hassan/oslc/internal/parser/ast"
	"github.com/hassan/oslc/internal/source"
	"github.com/hassan/oslc/internal/symtab"
)

// Magic is the first line of every object file.
const Magic = "OpenShadingLanguage 0.0"

// GlobalsPolicy selects which global symbols are written.
type GlobalsPolicy int

const (
	// ReferencedGlobals writes a global only if an instruction names it.
	ReferencedGlobals GlobalsPolicy = iota

	// AllGlobals writes every global in the table.
	AllGlobals
)

func (p GlobalsPolicy) String() string {
	if p == AllGlobals {
		return "all"
	}
	return "referenced"
}

// ParseGlobalsPolicy maps "all" and "referenced" to a policy. The empty
// string selects ReferencedGlobals.
func ParseGlobalsPolicy(s string) (GlobalsPolicy, error) {
	switch s {
	case "", "referenced":
		return ReferencedGlobals, nil
	case "all":
		return AllGlobals, nil
	}
	return ReferencedGlobals, fmt.Errorf("oso: unknown globals policy %q (want all or referenced)", s)
}

// Options control the writer.
type Options struct {
	// Version goes into the "# Compiled by oslc" line.
	Version string

	Globals GlobalsPolicy

	// Debug precedes each instruction that starts a new source line with
	// the file, line and source text. Lines is required in debug mode.
	Debug bool
	Lines *source.Cursor
}

// writer holds the state of one Write call.
type writer struct {
	unit    *ir.Unit
	options Options

	out strings.Builder

	// referenced is the set of symbols named by an instruction, after
	// dealias.
	referenced map[*symtab.Symbol]bool
}

// Write serializes u to w. A unit that cannot be represented in the
// format yields a *diag.InternalError.
func Write(w io.Writer, u *ir.Unit, options Options) (err error) {
	defer diag.Recover(&err)

	if options.Debug && options.Lines == nil {
		return fmt.Errorf("oso: debug output needs a source cursor")
	}

	wr := &writer{unit: u, options: options}
	wr.writeHeader()
	wr.writeSymbols()
	wr.writeCode()

	_, err = io.WriteString(w, wr.out.String())
	return err
}

func (w *writer) writeHeader() {
	w.out.WriteString(Magic + "\n")
	w.out.WriteString("# Compiled by oslc " + w.options.Version + "\n")
	w.out.WriteString(w.unit.Kind.String() + " " + w.unit.Name + "\n")
}

// writeSymbols writes the parameters first, then locals, temporaries,
// globals and constants in table order.
func (w *writer) writeSymbols() {
	if w.options.Globals == ReferencedGlobals {
		w.referenced = make(map[*symtab.Symbol]bool)
		for i := range w.unit.Code {
			for _, a := range w.unit.Code[i].Args {
				w.referenced[w.unit.Symtab.Dealias(a)] = true
			}
		}
	}

	syms := w.unit.Symtab.Symbols()
	for _, s := range syms {
		if s.SymType.IsParam() {
			w.writeSymbol(s)
		}
	}
	for _, s := range syms {
		switch s.SymType {
		case symtab.SymGlobal:
			if w.referenced == nil || w.referenced[s] {
				w.writeSymbol(s)
			}
		case symtab.SymLocal, symtab.SymTemp, symtab.SymConst:
			w.writeSymbol(s)
		}
	}
}

// writeSymbol writes one record:
//
//	<kind>\t<type>\t<mangled>[\t<value>\t][\t%meta{...} ...]
func (w *writer) writeSymbol(s *symtab.Symbol) {
	w.out.WriteString(s.SymType.ShortName() + "\t" + s.Type.String() + "\t" + s.Mangled)

	decl, _ := s.Node.(*ast.VarDecl)

	switch {
	case s.SymType == symtab.SymConst:
		w.out.WriteString("\t")
		w.writeConst(s)
		w.out.WriteString("\t")
	case decl != nil && s.SymType.IsParam():
		w.out.WriteString("\t")
		w.writeDefaults(s, decl)
		w.out.WriteString("\t")
	}

	if decl != nil {
		for i, m := range decl.Meta {
			if i == 0 {
				w.out.WriteString("\t")
			}
			w.writeMeta(m)
		}
	}
	w.out.WriteString("\n")
}

func (w *writer) writeConst(s *symtab.Symbol) {
	switch v := s.Value.(type) {
	case string:
		if s.Type.IsString() {
			w.out.WriteString(quote(v))
			return
		}
	case int64:
		if s.Type.IsInt() {
			w.out.WriteString(strconv.FormatInt(v, 10))
			return
		}
	case float64:
		if s.Type.IsFloat() {
			w.out.WriteString(formatFloat(v))
			return
		}
	}
	internal(s.Node, "constant %s of type %s has value %#v; only a single int, float or string can be written", s.Mangled, s.Type, s.Value)
}

// writeDefaults writes one encoded value per initializer element, each
// followed by a space. Initializers that are not literals are written as
// zero of the element type.
func (w *writer) writeDefaults(s *symtab.Symbol, decl *ast.VarDecl) {
	elem := s.Type.Elem()
	for _, init := range decl.Init {
		lit, _ := ast.AsLiteral(init)
		switch {
		case elem.IsClosure():
			// A closure starts out empty; there is nothing to write.

		case elem.IsInt():
			if lit != nil && lit.Kind == ast.IntLiteral {
				w.out.WriteString(strconv.FormatInt(lit.IntVal(), 10) + " ")
			} else {
				w.out.WriteString("0 ")
			}

		case elem.IsFloat():
			switch {
			case lit != nil && lit.Kind == ast.IntLiteral:
				w.out.WriteString(strconv.FormatInt(lit.IntVal(), 10) + " ")
			case lit != nil && lit.Kind == ast.FloatLiteral:
				w.out.WriteString(formatFloat(lit.FloatVal()) + " ")
			default:
				w.out.WriteString("0 ")
			}

		case elem.IsTriple():
			w.out.WriteString(strings.Repeat(scalarFill(lit)+" ", 3))

		case elem.IsMatrix():
			// A scalar fills all sixteen entries, not just the diagonal.
			w.out.WriteString(strings.Repeat(scalarFill(lit)+" ", 16))

		case elem.IsString():
			if lit != nil && lit.Kind == ast.StringLiteral {
				w.out.WriteString(quote(lit.StrVal()) + " ")
			} else {
				w.out.WriteString(`"" `)
			}

		default:
			internal(decl, "cannot write the default value of %s %q", s.Type, decl.Name.Name)
		}
	}
}

// scalarFill is the value a numeric literal spreads over a triple or a
// matrix, "0" when the initializer is not a numeric literal.
func scalarFill(lit *ast.LiteralExpr) string {
	if lit == nil || lit.Kind == ast.StringLiteral {
		return "0"
	}
	return formatFloat(lit.FloatVal())
}

// writeMeta writes "%meta{<type>,<name>,<value>} ".
func (w *writer) writeMeta(m *ast.VarDecl) {
	if !m.HasInit() {
		internal(m, "metadata %q has no value", m.Name.Name)
	}
	lit, ok := ast.AsLiteral(m.Init[0])
	if !ok {
		internal(m, "metadata %q must be a literal", m.Name.Name)
	}

	var value string
	t := m.DeclType
	switch {
	case t.IsString() && lit.Kind == ast.StringLiteral:
		value = quote(lit.StrVal())
	case t.IsInt() && lit.Kind == ast.IntLiteral:
		value = strconv.FormatInt(lit.IntVal(), 10)
	case t.IsFloat() && lit.Kind != ast.StringLiteral:
		value = formatFloat(lit.FloatVal())
	default:
		internal(m, "cannot write metadata %q of type %s", m.Name.Name, t)
	}
	fmt.Fprintf(&w.out, "%%meta{%s,%s,%s} ", t, m.Name.Name, value)
}

// writeCode writes the instructions grouped by method, then "\tend".
func (w *writer) writeCode() {
	code := w.unit.Code
	if len(code) == 0 {
		w.out.WriteString("code " + ir.MainMethod + "\n")
	}

	method := ""
	lastFile, lastLine := "", -1
	for i := range code {
		op := &code[i]
		if i == 0 || op.Method != method {
			method = op.Method
			w.out.WriteString("code " + method + "\n")
			lastFile, lastLine = "", -1
		}

		file, line := op.Source()
		hasSource := op.Node != nil

		if w.options.Debug && hasSource && (file != lastFile || line != lastLine) {
			fmt.Fprintf(&w.out, "# %s:%d\n# %s\n", file, line, w.options.Lines.Line(file, line))
		}

		w.out.WriteString("\t" + op.Op)
		if len(op.Args) > 0 {
			if len(op.Op) < 8 {
				w.out.WriteString("\t\t")
			} else {
				w.out.WriteString("\t")
			}
		}
		for _, a := range op.Args {
			w.out.WriteString(w.unit.Symtab.Dealias(a).Mangled + " ")
		}
		for _, j := range op.Jump {
			if j >= 0 {
				w.out.WriteString(strconv.Itoa(j) + " ")
			}
		}

		if hasSource {
			sep := "\t"
			if file != lastFile {
				lastFile = file
				w.out.WriteString(sep + `%filename{"` + file + `"}`)
				sep = " "
			}
			if line != lastLine {
				lastLine = line
				fmt.Fprintf(&w.out, "%s%%line{%d}", sep, line)
			}
		}
		w.out.WriteString("\n")
	}
	w.out.WriteString("\tend\n")
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

// quote renders a string value in double quotes with the characters that
// would break a record escaped again.
func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}

// formatFloat renders v as the shortest decimal that reads back as the
// same float32.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 32)
}

func internal(node symtab.Node, format string, args ...interface{}) {
	var file string
	var line int
	if node != nil {
		pos := node.Pos()
		file, line = pos.Filename, pos.Line
	}
	diag.Internalf(file, line, format, args...)
}
