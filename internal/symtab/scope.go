package symtab

import "fmt"

// ScopeKind represents the kind of scope.
type ScopeKind int

const (
	// ScopeGlobal holds the built-in globals and the shader parameters.
	ScopeGlobal ScopeKind = iota

	// ScopeShader is the outermost block of a shader body.
	ScopeShader

	// ScopeBlock is a nested { ... } block.
	ScopeBlock

	// ScopeLoop is the scope of a loop (allows break/continue).
	ScopeLoop
)

// String returns a human-readable representation of the scope kind.
func (sk ScopeKind) String() string {
	switch sk {
	case ScopeGlobal:
		return "global"
	case ScopeShader:
		return "shader"
	case ScopeBlock:
		return "block"
	case ScopeLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Scope is one lexical scope.
//
// EXAMPLE:
//
//	surface s(float Kd = 1) {   // Kd in the global scope (id 0)
//	    float x = Kd;           // x in the shader scope (id 1)
//	    if (x > 0) {
//	        float y = x;        // y in a block scope (id 2)
//	    }
//	}
type Scope struct {
	Kind ScopeKind

	// ID is unique within the table and monotonically assigned. It is
	// part of every mangled name declared in the scope.
	ID int

	// Parent is the enclosing scope (nil for global scope).
	Parent *Scope

	// Symbols maps names to their symbols in this scope.
	Symbols map[string]*Symbol

	// order keeps Symbols in declaration order.
	order []*Symbol

	// Depth is the nesting depth (0 for global).
	Depth int
}

// NewScope creates a new scope with the given kind, id and parent.
func NewScope(kind ScopeKind, id int, parent *Scope) *Scope {
	depth := 0
	if parent != nil {
		depth = parent.Depth + 1
	}
	return &Scope{
		Kind:    kind,
		ID:      id,
		Parent:  parent,
		Symbols: make(map[string]*Symbol),
		Depth:   depth,
	}
}

// Define binds symbol in this scope. It fails with a *RedeclarationError
// if the name is already bound here; shadowing an outer scope is fine.
func (s *Scope) Define(symbol *Symbol) error {
	if existing, ok := s.Symbols[symbol.Name]; ok {
		return &RedeclarationError{Name: symbol.Name, Previous: existing}
	}
	s.Symbols[symbol.Name] = symbol
	s.order = append(s.order, symbol)
	symbol.Scope = s
	return nil
}

// Lookup finds a symbol by name in this scope or any parent scope and
// marks it used.
func (s *Scope) Lookup(name string) *Symbol {
	if symbol, ok := s.Symbols[name]; ok {
		symbol.MarkUsed()
		return symbol
	}
	if s.Parent != nil {
		return s.Parent.Lookup(name)
	}
	return nil
}

// LookupLocal finds a symbol by name only in this scope.
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.Symbols[name]
}

// IsLoop returns true if this is a loop scope.
func (s *Scope) IsLoop() bool {
	return s.Kind == ScopeLoop
}

// FindEnclosingLoop finds the nearest enclosing loop scope, or nil.
func (s *Scope) FindEnclosingLoop() *Scope {
	if s.IsLoop() {
		return s
	}
	if s.Parent != nil {
		return s.Parent.FindEnclosingLoop()
	}
	return nil
}

// UnusedSymbols returns the symbols of this scope that were never looked
// up, in declaration order.
func (s *Scope) UnusedSymbols() []*Symbol {
	var unused []*Symbol
	for _, symbol := range s.order {
		if !symbol.Used {
			unused = append(unused, symbol)
		}
	}
	return unused
}

// RedeclarationError is returned when a name is declared twice in the
// same scope.
type RedeclarationError struct {
	Name     string
	Previous *Symbol
}

func (e *RedeclarationError) Error() string {
	if e.Previous != nil && e.Previous.Pos.IsValid() {
		return fmt.Sprintf("%q already declared in this scope at %s", e.Name, e.Previous.Pos)
	}
	return fmt.Sprintf("%q already declared in this scope", e.Name)
}
