package symtab

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hassan/oslc/internal/semantic/types"
)

// ErrAliasCycle is returned by SetAlias when the alias would make a
// symbol resolve to itself.
var ErrAliasCycle = errors.New("symbol alias would form a cycle")

// Global describes one built-in shader global.
type Global struct {
	Name string
	Type types.TypeSpec
}

// Globals lists the built-in shader globals in the order they are
// created. Every table starts with exactly these symbols.
var Globals = []Global{
	{"P", types.TypePoint},
	{"I", types.TypeVector},
	{"N", types.TypeNormal},
	{"Ng", types.TypeNormal},
	{"u", types.TypeFloat},
	{"v", types.TypeFloat},
	{"dPdu", types.TypeVector},
	{"dPdv", types.TypeVector},
	{"L", types.TypeVector},
	{"Cl", types.TypeColor},
	{"Ps", types.TypePoint},
	{"Ns", types.TypeNormal},
	{"Pl", types.TypePoint},
	{"Nl", types.TypeNormal},
	{"Ci", types.TypeClosureColor},
	{"Oi", types.TypeColor},
	{"time", types.TypeFloat},
	{"dtime", types.TypeFloat},
	{"dPdtime", types.TypeVector},
}

// Table is the symbol table of one compilation.
//
// USAGE:
//
//	t := symtab.New()           // globals already present
//	t.Insert(param)             // shader parameters go in the global scope
//	t.Push(symtab.ScopeShader)  // shader body
//	t.Insert(local)             // mangled as ___1_<name>
//	t.Pop()
type Table struct {
	global  *Scope
	current *Scope
	nextID  int

	// symbols is every inserted symbol in insertion order.
	symbols []*Symbol

	// taken records every mangled name handed out.
	taken map[string]bool

	// collisions counts disambiguated names; it only grows.
	collisions int
}

// New creates a table whose global scope holds the built-in globals.
func New() *Table {
	global := NewScope(ScopeGlobal, 0, nil)
	t := &Table{
		global:  global,
		current: global,
		nextID:  1,
		taken:   make(map[string]bool),
	}
	for _, g := range Globals {
		sym := &Symbol{Name: g.Name, Type: g.Type, SymType: SymGlobal}
		if err := t.Insert(sym); err != nil {
			panic("symtab: duplicate built-in global " + g.Name)
		}
	}
	return t
}

// Global returns the outermost scope.
func (t *Table) Global() *Scope { return t.global }

// Current returns the innermost open scope.
func (t *Table) Current() *Scope { return t.current }

// Push opens a nested scope with a fresh id.
func (t *Table) Push(kind ScopeKind) *Scope {
	t.current = NewScope(kind, t.nextID, t.current)
	t.nextID++
	return t.current
}

// Pop closes the innermost scope. Popping the global scope is a
// programming error and panics.
func (t *Table) Pop() *Scope {
	if t.current == t.global {
		panic("symtab: Pop of the global scope")
	}
	closed := t.current
	t.current = t.current.Parent
	return closed
}

// Insert declares sym in the current scope, assigns its mangled name and
// appends it to the ordered sequence. It returns a *RedeclarationError if
// the name is already declared in the current scope.
func (t *Table) Insert(sym *Symbol) error {
	if err := t.current.Define(sym); err != nil {
		return err
	}
	sym.Mangled = t.Mangle(t.current.ID, sym.Name)
	t.symbols = append(t.symbols, sym)
	return nil
}

// InsertAnonymous appends a symbol that is not bound by name, such as a
// temporary or a constant. Its mangled name is its name.
func (t *Table) InsertAnonymous(sym *Symbol) {
	sym.Scope = t.current
	sym.Mangled = t.claim(sym.Name)
	t.symbols = append(t.symbols, sym)
}

// Lookup resolves name from the innermost scope outwards.
func (t *Table) Lookup(name string) *Symbol {
	return t.current.Lookup(name)
}

// LookupLocal resolves name in the current scope only.
func (t *Table) LookupLocal(name string) *Symbol {
	return t.current.LookupLocal(name)
}

// Mangle returns a unique mangled name for name declared in scope. Scope 0
// names are unmangled; other scopes produce ___<scope>_<name>. A clash
// with an earlier mangled name gets a _<n> suffix.
func (t *Table) Mangle(scope int, name string) string {
	base := name
	if scope != 0 {
		base = "___" + strconv.Itoa(scope) + "_" + name
	}
	return t.claim(base)
}

func (t *Table) claim(base string) string {
	name := base
	for t.taken[name] {
		t.collisions++
		name = base + "_" + strconv.Itoa(t.collisions)
	}
	t.taken[name] = true
	return name
}

// Dealias follows alias links to the canonical symbol.
func (t *Table) Dealias(sym *Symbol) *Symbol {
	for sym != nil && sym.Alias != nil {
		sym = sym.Alias
	}
	return sym
}

// SetAlias makes a stand in for b. It refuses links that would make a
// resolve to itself.
func (t *Table) SetAlias(a, b *Symbol) error {
	for s := b; s != nil; s = s.Alias {
		if s == a {
			return fmt.Errorf("%s -> %s: %w", a.Name, b.Name, ErrAliasCycle)
		}
	}
	a.Alias = b
	return nil
}

// Symbols returns every symbol in insertion order. The slice is shared;
// callers must not modify it.
func (t *Table) Symbols() []*Symbol {
	return t.symbols
}

// Print writes a one-line-per-symbol dump of the table.
func (t *Table) Print(w io.Writer) error {
	for _, s := range t.symbols {
		line := fmt.Sprintf("%-8s %-16s %-16s scope %d", s.SymType.ShortName(), s.Type, s.Mangled, s.ScopeID())
		if s.Alias != nil {
			line += " -> " + t.Dealias(s).Mangled
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
