// Package ir implements the instruction stream of a compiled shader.
//
// WHAT IS THE IR?
// A compiled shader is a flat list of opcodes. Each opcode names an
// operation ("add", "assign", "if", ...) and the symbols it operates on,
// destination first:
//
//	add	$tmp1 ___1_x $const1
//
// Control flow is structured rather than branch based. A conditional or a
// loop is one opcode whose jump slots hold the indices of the instructions
// where its parts start:
//
//	0: lt    $tmp1 ___1_i $const1
//	1: if    $tmp1        3 4      jump[0] = else, jump[1] = end
//	2: assign ...                  then
//	3: assign ...                  else
//	4: ...                         end
//
// Opcodes are grouped into methods (named code blocks). The shader body is
// the method "___main___". A jump slot may only reference an instruction
// of the same method.
package ir

import (
	"errors"
	"fmt"

	"github.com/hassan/oslc/internal/symtab"
)

// MaxJumps is the number of jump slots per opcode.
const MaxJumps = 4

// MainMethod is the method holding the shader body.
const MainMethod = "___main___"

// ShaderKind is the kind of shader a unit declares.
type ShaderKind int

const (
	Surface ShaderKind = iota
	Displacement
	Light
	Volume
	Generic
)

var shaderKindNames = [...]string{
	Surface:      "surface",
	Displacement: "displacement",
	Light:        "light",
	Volume:       "volume",
	Generic:      "shader",
}

// String returns the keyword that declares the kind.
func (k ShaderKind) String() string {
	if k >= 0 && int(k) < len(shaderKindNames) {
		return shaderKindNames[k]
	}
	return "unknown"
}

// ParseShaderKind maps a shader keyword to its kind.
func ParseShaderKind(keyword string) (ShaderKind, bool) {
	for k, name := range shaderKindNames {
		if name == keyword {
			return ShaderKind(k), true
		}
	}
	return Generic, false
}

// Node is the syntax node an opcode was generated from.
type Node = symtab.Node

// Opcode is one instruction.
type Opcode struct {
	Op   string
	Args []*symtab.Symbol

	// Jump holds instruction indices; NoJump means the slot is unused and
	// Pending that it awaits backpatching.
	Jump [MaxJumps]int

	Method string

	// Node is the originating syntax node, used for %filename/%line hints.
	Node Node
}

const (
	NoJump  = -1
	Pending = -2
)

// NewOpcode returns an opcode with every jump slot unset.
func NewOpcode(op, method string, node Node, args ...*symtab.Symbol) Opcode {
	o := Opcode{Op: op, Args: args, Method: method, Node: node}
	for i := range o.Jump {
		o.Jump[i] = NoJump
	}
	return o
}

// Jumps returns the set jump slots in slot order.
func (o *Opcode) Jumps() []int {
	var js []int
	for _, j := range o.Jump {
		if j >= 0 {
			js = append(js, j)
		}
	}
	return js
}

// Source returns the file and line the opcode came from, or "" and 0.
func (o *Opcode) Source() (string, int) {
	if o.Node == nil {
		return "", 0
	}
	pos := o.Node.Pos()
	return pos.Filename, pos.Line
}

// String renders the opcode for dumps: "add $tmp1 a b".
func (o *Opcode) String() string {
	s := o.Op
	for _, a := range o.Args {
		s += " " + a.Mangled
	}
	for _, j := range o.Jumps() {
		s += fmt.Sprintf(" %d", j)
	}
	return s
}

// Unit is everything compiled from one shader.
type Unit struct {
	Kind   ShaderKind
	Name   string
	Symtab *symtab.Table
	Code   []Opcode
}

// Methods returns the method names in order of first appearance.
func (u *Unit) Methods() []string {
	var methods []string
	seen := make(map[string]bool)
	for i := range u.Code {
		if m := u.Code[i].Method; !seen[m] {
			seen[m] = true
			methods = append(methods, m)
		}
	}
	return methods
}

// ErrBadJump is returned by Verify for a jump slot that does not
// reference an instruction of its own method.
var ErrBadJump = errors.New("invalid jump target")

// JumpError describes one invalid jump slot.
type JumpError struct {
	Index  int // instruction index
	Slot   int
	Target int
	Op     *Opcode
}

func (e *JumpError) Error() string {
	if e.Target == Pending {
		return fmt.Sprintf("%s at %d: jump slot %d was never resolved", e.Op.Op, e.Index, e.Slot)
	}
	return fmt.Sprintf("%s at %d: jump slot %d targets %d", e.Op.Op, e.Index, e.Slot, e.Target)
}

func (e *JumpError) Unwrap() error { return ErrBadJump }

// Verify checks that every set jump slot references an instruction of the
// same method.
func (u *Unit) Verify() error {
	for i := range u.Code {
		op := &u.Code[i]
		for slot, target := range op.Jump {
			if target == NoJump {
				continue
			}
			if target < 0 || target >= len(u.Code) || u.Code[target].Method != op.Method {
				return &JumpError{Index: i, Slot: slot, Target: target, Op: op}
			}
		}
	}
	return nil
}
