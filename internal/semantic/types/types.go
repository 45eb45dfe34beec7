// Package types implements TypeSpec, the value-type model shared by the
// type checker, the code generator and the object-file writer.
//
// A TypeSpec is a small comparable value:
//
//	base tag      int float string point vector normal color matrix struct
//	closure flag  "closure color" is a closure-qualified color
//	array length  0 for scalars, N > 0 for fixed-size arrays
//
// point, vector, normal and color share a 3-float layout but are distinct
// tags; nothing in this package unifies them.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Tag is the base kind of a type.
type Tag int

const (
	Unknown Tag = iota
	Int
	Float
	String
	Point
	Vector
	Normal
	Color
	Matrix
	Struct
	Void
)

var tagNames = [...]string{
	Unknown: "unknown",
	Int:     "int",
	Float:   "float",
	String:  "string",
	Point:   "point",
	Vector:  "vector",
	Normal:  "normal",
	Color:   "color",
	Matrix:  "matrix",
	Struct:  "struct",
	Void:    "void",
}

// String returns the source keyword of the tag.
func (t Tag) String() string {
	if t >= 0 && int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// TypeSpec describes the type of a symbol or an expression.
type TypeSpec struct {
	Tag Tag

	// Closure marks a closure of the base type. Only color closures are
	// produced by the language, but the flag composes with any base.
	Closure bool

	// ArrayLen is 0 for a scalar and N > 0 for an N-element array.
	ArrayLen int

	// StructName names the struct when Tag is Struct.
	StructName string
}

// Predefined scalar types.
var (
	TypeUnknown = TypeSpec{Tag: Unknown}
	TypeVoid    = TypeSpec{Tag: Void}
	TypeInt     = TypeSpec{Tag: Int}
	TypeFloat   = TypeSpec{Tag: Float}
	TypeString  = TypeSpec{Tag: String}
	TypePoint   = TypeSpec{Tag: Point}
	TypeVector  = TypeSpec{Tag: Vector}
	TypeNormal  = TypeSpec{Tag: Normal}
	TypeColor   = TypeSpec{Tag: Color}
	TypeMatrix  = TypeSpec{Tag: Matrix}

	// TypeClosureColor is the type of light-like output channels such as Ci.
	TypeClosureColor = TypeSpec{Tag: Color, Closure: true}
)

// Errors returned by the constructors.
var (
	ErrArrayOfArray     = errors.New("arrays of arrays are not allowed")
	ErrClosureOfClosure = errors.New("closures wrap exactly one non-closure type")
	ErrBadArrayLength   = errors.New("array length must be positive")
)

// NewStruct returns the TypeSpec of the named struct.
func NewStruct(name string) TypeSpec {
	return TypeSpec{Tag: Struct, StructName: name}
}

// Array returns an n-element array of t.
func (t TypeSpec) Array(n int) (TypeSpec, error) {
	if t.IsArray() {
		return TypeUnknown, ErrArrayOfArray
	}
	if n <= 0 {
		return TypeUnknown, ErrBadArrayLength
	}
	t.ArrayLen = n
	return t, nil
}

// AsClosure returns the closure of t.
func (t TypeSpec) AsClosure() (TypeSpec, error) {
	if t.Closure {
		return TypeUnknown, ErrClosureOfClosure
	}
	t.Closure = true
	return t, nil
}

// Elem returns the element type of an array, or t itself for scalars.
func (t TypeSpec) Elem() TypeSpec {
	t.ArrayLen = 0
	return t
}

// Parse maps a type keyword to its TypeSpec.
func Parse(keyword string) (TypeSpec, bool) {
	switch keyword {
	case "int":
		return TypeInt, true
	case "float":
		return TypeFloat, true
	case "string":
		return TypeString, true
	case "point":
		return TypePoint, true
	case "vector":
		return TypeVector, true
	case "normal":
		return TypeNormal, true
	case "color":
		return TypeColor, true
	case "matrix":
		return TypeMatrix, true
	case "void":
		return TypeVoid, true
	}
	return TypeUnknown, false
}

func (t TypeSpec) plain() bool { return !t.Closure && t.ArrayLen == 0 }

// IsInt reports whether t is a plain int.
func (t TypeSpec) IsInt() bool { return t.Tag == Int && t.plain() }

// IsFloat reports whether t is a plain float.
func (t TypeSpec) IsFloat() bool { return t.Tag == Float && t.plain() }

// IsString reports whether t is a plain string.
func (t TypeSpec) IsString() bool { return t.Tag == String && t.plain() }

// IsTriple reports whether t is a plain point, vector, normal or color.
func (t TypeSpec) IsTriple() bool {
	return t.plain() && (t.Tag == Point || t.Tag == Vector || t.Tag == Normal || t.Tag == Color)
}

// IsMatrix reports whether t is a plain matrix.
func (t TypeSpec) IsMatrix() bool { return t.Tag == Matrix && t.plain() }

// IsClosure reports whether t is a closure (scalar or array).
func (t TypeSpec) IsClosure() bool { return t.Closure }

// IsArray reports whether t is an array.
func (t TypeSpec) IsArray() bool { return t.ArrayLen > 0 }

// IsStruct reports whether t is a plain struct.
func (t TypeSpec) IsStruct() bool { return t.Tag == Struct && t.plain() }

// IsVoid reports whether t is void.
func (t TypeSpec) IsVoid() bool { return t.Tag == Void }

// IsUnknown reports whether t carries no type, usually after an error.
func (t TypeSpec) IsUnknown() bool { return t.Tag == Unknown }

// IsScalarNumeric reports whether t is a plain int or float.
func (t TypeSpec) IsScalarNumeric() bool { return t.IsInt() || t.IsFloat() }

// IsNumeric reports whether arithmetic is defined on t.
func (t TypeSpec) IsNumeric() bool {
	return t.IsScalarNumeric() || t.IsTriple() || t.IsMatrix()
}

// String renders the canonical type string written to object files:
// "float", "closure color", "struct S", "color[3]".
func (t TypeSpec) String() string {
	s := t.Tag.String()
	if t.Tag == Struct {
		s = "struct " + t.StructName
	}
	if t.Closure {
		s = "closure " + s
	}
	if t.ArrayLen > 0 {
		s += "[" + strconv.Itoa(t.ArrayLen) + "]"
	}
	return s
}

// Equal reports whether t and other are the same type.
func (t TypeSpec) Equal(other TypeSpec) bool {
	return t == other
}

// AssignableTo reports whether a value of type t may be stored in a
// location of type dst without an explicit conversion.
//
// RULES:
//   - identical types
//   - int -> float
//   - int or float -> point/vector/normal/color (the scalar fills all three channels)
//   - int or float -> matrix (the scalar fills the matrix)
//
// Narrowing (float -> int, triple -> float) and conversion between two
// different triple tags are never implicit.
func (t TypeSpec) AssignableTo(dst TypeSpec) bool {
	if t.IsUnknown() || dst.IsUnknown() {
		// An error was already reported for the operand.
		return true
	}
	if t == dst {
		return true
	}
	if !t.plain() || !dst.plain() {
		return false
	}
	switch {
	case dst.IsFloat():
		return t.IsInt()
	case dst.IsTriple(), dst.IsMatrix():
		return t.IsScalarNumeric()
	}
	return false
}

// Promote returns the result type of arithmetic between a and b, or
// TypeUnknown if the operation is not defined.
func Promote(a, b TypeSpec) TypeSpec {
	switch {
	case a.IsUnknown() || b.IsUnknown():
		return TypeUnknown
	case a.IsInt() && b.IsInt():
		return TypeInt
	case a.IsScalarNumeric() && b.IsScalarNumeric():
		return TypeFloat
	case a.IsTriple() && b.IsScalarNumeric():
		return a
	case a.IsScalarNumeric() && b.IsTriple():
		return b
	case a.IsTriple() && a == b:
		return a
	case a.IsMatrix() && (b.IsMatrix() || b.IsScalarNumeric()):
		return TypeMatrix
	case b.IsMatrix() && a.IsScalarNumeric():
		return TypeMatrix
	case a.IsClosure() && !a.IsArray() && (b.IsColor() || b.IsScalarNumeric()):
		return a
	case b.IsClosure() && !b.IsArray() && (a.IsColor() || a.IsScalarNumeric()):
		return b
	}
	return TypeUnknown
}

// IsColor reports whether t is a plain color.
func (t TypeSpec) IsColor() bool { return t.Tag == Color && t.plain() }

// GoString helps test failure messages.
func (t TypeSpec) GoString() string {
	return fmt.Sprintf("types.TypeSpec(%s)", t)
}
