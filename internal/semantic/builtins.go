package semantic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hassan/oslc/internal/semantic/types"
)

// argKind is the class of values a built-in function parameter accepts.
type argKind int

const (
	argAny    argKind = iota
	argScalar         // int or float
	argMath           // int, float or a triple
	argTriple         // point, vector, normal or color
	argString
)

func (k argKind) accepts(t types.TypeSpec) bool {
	switch k {
	case argScalar:
		return t.IsScalarNumeric()
	case argMath:
		return t.IsScalarNumeric() || t.IsTriple()
	case argTriple:
		return t.IsTriple()
	case argString:
		return t.IsString()
	default:
		return !t.IsVoid()
	}
}

func (k argKind) String() string {
	switch k {
	case argScalar:
		return "int or float"
	case argMath:
		return "int, float or triple"
	case argTriple:
		return "point, vector, normal or color"
	case argString:
		return "string"
	default:
		return "any value"
	}
}

// builtin is the signature of a built-in function.
type builtin struct {
	args []argKind

	// optional is the number of trailing args that may be left out.
	optional int

	// variadic allows any number of further arguments of any type.
	variadic bool

	result func(args []types.TypeSpec) (types.TypeSpec, error)
}

var errArgMismatch = errors.New("arguments have incompatible types")

// check validates a call and returns its result type.
func (b builtin) check(args []types.TypeSpec) (types.TypeSpec, error) {
	required := len(b.args) - b.optional
	switch {
	case len(args) < required:
		return types.TypeUnknown, fmt.Errorf("too few arguments (%d, want %s)", len(args), b.arity())
	case !b.variadic && len(args) > len(b.args):
		return types.TypeUnknown, fmt.Errorf("too many arguments (%d, want %s)", len(args), b.arity())
	}
	for i, t := range args {
		if i < len(b.args) && !b.args[i].accepts(t) {
			return types.TypeUnknown, fmt.Errorf("argument %d is %s, want %s", i+1, t, b.args[i])
		}
	}
	return b.result(args)
}

func (b builtin) arity() string {
	required := len(b.args) - b.optional
	switch {
	case b.variadic:
		return fmt.Sprintf("at least %d", required)
	case b.optional > 0:
		return fmt.Sprintf("%d to %d", required, len(b.args))
	}
	return fmt.Sprint(len(b.args))
}

// returns gives a fixed result type.
func returns(t types.TypeSpec) func([]types.TypeSpec) (types.TypeSpec, error) {
	return func([]types.TypeSpec) (types.TypeSpec, error) { return t, nil }
}

// generic returns the promoted type of the first n arguments, with int
// widened to float.
func generic(n int) func([]types.TypeSpec) (types.TypeSpec, error) {
	return func(args []types.TypeSpec) (types.TypeSpec, error) {
		m := n
		if m > len(args) {
			m = len(args)
		}
		t := args[0]
		for _, a := range args[1:m] {
			if t = types.Promote(t, a); t.IsUnknown() {
				return t, errArgMismatch
			}
		}
		if t.IsInt() {
			t = types.TypeFloat
		}
		return t, nil
	}
}

// last returns the type of the final argument: transform("world", P).
func last(args []types.TypeSpec) (types.TypeSpec, error) {
	return args[len(args)-1], nil
}

// typeList renders argument types for messages: "float, color".
func typeList(args []types.TypeSpec) string {
	names := make([]string, len(args))
	for i, t := range args {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

func kinds(k argKind, n int) []argKind {
	ks := make([]argKind, n)
	for i := range ks {
		ks[i] = k
	}
	return ks
}

// builtins is the standard library visible to shaders.
var builtins = map[string]builtin{}

func init() {
	for _, name := range strings.Fields(`sin cos tan asin acos atan sinh cosh tanh
		exp exp2 log log2 log10 sqrt inversesqrt abs fabs floor ceil round trunc
		sign radians degrees Dx Dy`) {
		builtins[name] = builtin{args: []argKind{argMath}, result: generic(1)}
	}
	for _, name := range strings.Fields("pow atan2 fmod min max step") {
		builtins[name] = builtin{args: kinds(argMath, 2), result: generic(2)}
	}
	for _, name := range strings.Fields("clamp mix smoothstep") {
		builtins[name] = builtin{args: kinds(argMath, 3), result: generic(2)}
	}

	builtins["dot"] = builtin{args: kinds(argTriple, 2), result: returns(types.TypeFloat)}
	builtins["cross"] = builtin{args: kinds(argTriple, 2), result: returns(types.TypeVector)}
	builtins["length"] = builtin{args: []argKind{argTriple}, result: returns(types.TypeFloat)}
	builtins["distance"] = builtin{args: kinds(argTriple, 2), result: returns(types.TypeFloat)}
	builtins["normalize"] = builtin{args: []argKind{argTriple}, result: generic(1)}
	builtins["faceforward"] = builtin{args: kinds(argTriple, 3), optional: 1, result: generic(1)}
	builtins["reflect"] = builtin{args: kinds(argTriple, 2), result: returns(types.TypeVector)}
	builtins["refract"] = builtin{args: []argKind{argTriple, argTriple, argScalar}, result: returns(types.TypeVector)}
	builtins["area"] = builtin{args: []argKind{argTriple}, result: returns(types.TypeFloat)}
	builtins["calculatenormal"] = builtin{args: []argKind{argTriple}, result: returns(types.TypeNormal)}
	builtins["luminance"] = builtin{args: []argKind{argTriple}, result: returns(types.TypeFloat)}

	builtins["transform"] = builtin{args: []argKind{argAny, argAny, argTriple}, optional: 1, result: last}
	builtins["transformu"] = builtin{args: []argKind{argString, argString, argScalar}, optional: 1, result: returns(types.TypeFloat)}

	for _, name := range strings.Fields("noise snoise cellnoise") {
		builtins[name] = builtin{args: kinds(argMath, 2), optional: 1, result: returns(types.TypeFloat)}
	}

	builtins["raytype"] = builtin{args: []argKind{argString}, result: returns(types.TypeInt)}
	builtins["strlen"] = builtin{args: []argKind{argString}, result: returns(types.TypeInt)}
	builtins["concat"] = builtin{args: []argKind{argString}, variadic: true, result: returns(types.TypeString)}
	builtins["format"] = builtin{args: []argKind{argString}, variadic: true, result: returns(types.TypeString)}
	builtins["printf"] = builtin{args: []argKind{argString}, variadic: true, result: returns(types.TypeVoid)}
	builtins["error"] = builtin{args: []argKind{argString}, variadic: true, result: returns(types.TypeVoid)}
	builtins["warning"] = builtin{args: []argKind{argString}, variadic: true, result: returns(types.TypeVoid)}

	builtins["diffuse"] = builtin{args: []argKind{argTriple}, result: returns(types.TypeClosureColor)}
	builtins["phong"] = builtin{args: []argKind{argTriple, argScalar}, result: returns(types.TypeClosureColor)}
	builtins["reflection"] = builtin{args: []argKind{argTriple, argScalar}, optional: 1, result: returns(types.TypeClosureColor)}
	builtins["refraction"] = builtin{args: []argKind{argTriple, argScalar}, result: returns(types.TypeClosureColor)}
	builtins["emission"] = builtin{result: returns(types.TypeClosureColor)}
	builtins["transparent"] = builtin{result: returns(types.TypeClosureColor)}
}
