package parser

import (
	"errors"
	"testing"

	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/parser/ast"
)

func parse(t *testing.T, src string) (*ast.File, []error) {
	t.Helper()
	return New(lexer.New(src, "test.osl")).ParseFile("test.osl")
}

func mustParse(t *testing.T, src string) *ast.File {
	t.Helper()
	file, errs := parse(t, src)
	if len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	return file
}

func TestParseFile_MinimalShader(t *testing.T) {
	file := mustParse(t, `surface plastic(float Kd = 0.5) { }`)

	sh := file.Shader()
	if sh == nil {
		t.Fatal("expected a shader declaration")
	}
	if sh.Kind.Lexeme != "surface" || sh.Name.Name != "plastic" {
		t.Errorf("shader = %s %s, want surface plastic", sh.Kind.Lexeme, sh.Name.Name)
	}
	if len(sh.Params) != 1 {
		t.Fatalf("len(Params) = %d, want 1", len(sh.Params))
	}
	kd := sh.Params[0]
	if kd.Name.Name != "Kd" || kd.DeclType.String() != "float" || kd.Output {
		t.Errorf("param = %s %s output=%v", kd.DeclType, kd.Name.Name, kd.Output)
	}
	lit, ok := ast.AsLiteral(kd.Init[0])
	if !ok || lit.Kind != ast.FloatLiteral || lit.FloatVal() != 0.5 {
		t.Errorf("default = %v, want float literal 0.5", kd.Init[0])
	}
	if len(sh.Body.Statements) != 0 {
		t.Errorf("body has %d statements, want 0", len(sh.Body.Statements))
	}
}

func TestParseFile_Params(t *testing.T) {
	src := `
shader test(
    output closure color Cout = 0,
    matrix M = 1,
    float weights[3] = {0.25, 0.5, -1},
    string name = "rgb" [[ string help = "the name", int lockgeom = 0 ]],
    color tint[] = {1, 2})
{
}`
	sh := mustParse(t, src).Shader()

	tests := []struct {
		name     string
		typ      string
		output   bool
		inits    int
		metadata int
	}{
		{"Cout", "closure color", true, 1, 0},
		{"M", "matrix", false, 1, 0},
		{"weights", "float[3]", false, 3, 0},
		{"name", "string", false, 1, 2},
		{"tint", "color[2]", false, 2, 0},
	}
	if len(sh.Params) != len(tests) {
		t.Fatalf("len(Params) = %d, want %d", len(sh.Params), len(tests))
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sh.Params[i]
			if p.Name.Name != tt.name {
				t.Errorf("name = %s, want %s", p.Name.Name, tt.name)
			}
			if p.DeclType.String() != tt.typ {
				t.Errorf("type = %s, want %s", p.DeclType, tt.typ)
			}
			if p.Output != tt.output {
				t.Errorf("output = %v, want %v", p.Output, tt.output)
			}
			if len(p.Init) != tt.inits {
				t.Errorf("len(Init) = %d, want %d", len(p.Init), tt.inits)
			}
			if len(p.Meta) != tt.metadata {
				t.Errorf("len(Meta) = %d, want %d", len(p.Meta), tt.metadata)
			}
		})
	}

	last, ok := ast.AsLiteral(sh.Params[2].Init[2])
	if !ok || last.Kind != ast.IntLiteral || last.IntVal() != -1 {
		t.Errorf("negative literal was not folded: %#v", sh.Params[2].Init[2])
	}
	help := sh.Params[3].Meta[0]
	if help.Name.Name != "help" || help.DeclType.String() != "string" {
		t.Errorf("metadata = %s %s", help.DeclType, help.Name.Name)
	}
}

func TestParseFile_Statements(t *testing.T) {
	src := `
surface s() {
    float x = 1, y;
    color c = color(1, 0, 0);
    if (x > 0) y = 2; else { y = 3; }
    while (x < 10) x += 1;
    do { x--; } while (x > 0);
    for (int i = 0; i < 3; ++i) { if (i == 1) continue; break; }
    c = c * noise(P);
    c[0] = 1;
    return;
}`
	body := mustParse(t, src).Shader().Body.Statements

	want := []string{"*ast.DeclStmt", "*ast.DeclStmt", "*ast.IfStmt", "*ast.WhileStmt",
		"*ast.DoWhileStmt", "*ast.ForStmt", "*ast.ExprStmt", "*ast.ExprStmt", "*ast.ReturnStmt"}
	if len(body) != len(want) {
		t.Fatalf("len(body) = %d, want %d", len(body), len(want))
	}
	for i, stmt := range body {
		if got := typeName(stmt); got != want[i] {
			t.Errorf("statement %d = %s, want %s", i, got, want[i])
		}
	}

	decl := body[0].(*ast.DeclStmt)
	if len(decl.Decls) != 2 || decl.Decls[1].HasInit() {
		t.Errorf("float x = 1, y: got %d decls", len(decl.Decls))
	}
	ctor := body[1].(*ast.DeclStmt).Decls[0].Init[0]
	if _, ok := ctor.(*ast.ConstructorExpr); !ok {
		t.Errorf("color(1, 0, 0) = %T, want *ast.ConstructorExpr", ctor)
	}
	forStmt := body[5].(*ast.ForStmt)
	if _, ok := forStmt.Init.(*ast.DeclStmt); !ok {
		t.Errorf("for init = %T, want *ast.DeclStmt", forStmt.Init)
	}
	assign := body[6].(*ast.ExprStmt).Expression.(*ast.AssignmentExpr)
	mul := assign.Value.(*ast.BinaryExpr)
	if call, ok := mul.Right.(*ast.CallExpr); !ok || call.Callee.Name != "noise" {
		t.Errorf("c * noise(P): right = %T", mul.Right)
	}
	elem := body[7].(*ast.ExprStmt).Expression.(*ast.AssignmentExpr)
	if _, ok := elem.Target.(*ast.IndexExpr); !ok {
		t.Errorf("c[0] = 1 target = %T, want *ast.IndexExpr", elem.Target)
	}
}

func TestParseExpression_Precedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a * b + c", "((a * b) + c)"},
		{"a - b - c", "((a - b) - c)"},
		{"a = b = c", "(a = (b = c))"},
		{"a < b && c > d || e", "(((a < b) && (c > d)) || e)"},
		{"-a * b", "((-a) * b)"},
		{"!a == b", "((!a) == b)"},
		{"(a + b) * c", "((a + b) * c)"},
		{"a[i] + s.f", "(a[i] + s.f)"},
		{"x += y * 2", "(x += (y * 2))"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			file := mustParse(t, "surface s() { "+tt.src+"; }")
			expr := file.Shader().Body.Statements[0].(*ast.ExprStmt).Expression
			if got := render(expr); got != tt.want {
				t.Errorf("parse(%q) = %s, want %s", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseFile_Struct(t *testing.T) {
	src := `
struct Ray { point origin; vector dir; };
surface s() {
    Ray r;
    r.origin = P;
}`
	file := mustParse(t, src)
	if len(file.Structs) != 1 || len(file.Structs[0].Fields) != 2 {
		t.Fatalf("structs = %v", file.Structs)
	}
	decl := file.Shader().Body.Statements[0].(*ast.DeclStmt).Decls[0]
	if decl.DeclType.String() != "struct Ray" {
		t.Errorf("r type = %s, want struct Ray", decl.DeclType)
	}
}

func TestParseFile_Positions(t *testing.T) {
	src := "# 1 \"shaders/s.osl\"\nsurface s()\n{\n    float x = 1;\n}\n"
	file := mustParse(t, src)

	decl := file.Shader().Body.Statements[0].(*ast.DeclStmt).Decls[0]
	pos := decl.Pos()
	if pos.Filename != "shaders/s.osl" || pos.Line != 3 {
		t.Errorf("x declared at %s, want shaders/s.osl:3", pos)
	}
}

func TestParseFile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		errors int
	}{
		{"missing semicolon", "surface s() { float x = 1 }", 1},
		{"two bad statements", "surface s() { x = ; y = 1; z = * 2; }", 2},
		{"param without default", "surface s(float Kd) { }", 1},
		{"junk at top level", "int x; surface s() { }", 1},
		{"lexical error", "surface s() { x = 1 @ 2; }", 1},
		{"unknown type", "surface s(foo Kd = 1) { }", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := parse(t, tt.src)
			if len(errs) != tt.errors {
				t.Fatalf("got %d errors %v, want %d", len(errs), errs, tt.errors)
			}
			var perr *Error
			if !errors.As(errs[0], &perr) {
				t.Errorf("error %T is not *Error", errs[0])
			}
		})
	}
}

func TestParseFile_RecoversShader(t *testing.T) {
	file, errs := parse(t, "surface s() { x = ; float y = 2; }")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	sh := file.Shader()
	if sh == nil || len(sh.Body.Statements) != 1 {
		t.Fatalf("expected the shader with one surviving statement")
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		lexeme string
		want   string
	}{
		{`"abc"`, "abc"},
		{`""`, ""},
		{`"a\"b"`, `a"b`},
		{`"tab\there"`, "tab\there"},
	}
	for _, tt := range tests {
		if got := unquote(tt.lexeme); got != tt.want {
			t.Errorf("unquote(%s) = %q, want %q", tt.lexeme, got, tt.want)
		}
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *ast.DeclStmt:
		return "*ast.DeclStmt"
	case *ast.IfStmt:
		return "*ast.IfStmt"
	case *ast.WhileStmt:
		return "*ast.WhileStmt"
	case *ast.DoWhileStmt:
		return "*ast.DoWhileStmt"
	case *ast.ForStmt:
		return "*ast.ForStmt"
	case *ast.ExprStmt:
		return "*ast.ExprStmt"
	case *ast.ReturnStmt:
		return "*ast.ReturnStmt"
	case *ast.BlockStmt:
		return "*ast.BlockStmt"
	}
	return "?"
}

// render prints an expression fully parenthesized.
func render(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.IdentifierExpr:
		return n.Name
	case *ast.LiteralExpr:
		return n.Token.Lexeme
	case *ast.BinaryExpr:
		return "(" + render(n.Left) + " " + n.Operator.Lexeme + " " + render(n.Right) + ")"
	case *ast.LogicalExpr:
		return "(" + render(n.Left) + " " + n.Operator.Lexeme + " " + render(n.Right) + ")"
	case *ast.AssignmentExpr:
		return "(" + render(n.Target) + " " + n.Operator.Lexeme + " " + render(n.Value) + ")"
	case *ast.UnaryExpr:
		return "(" + n.Operator.Lexeme + render(n.Operand) + ")"
	case *ast.GroupingExpr:
		return render(n.Expression)
	case *ast.IndexExpr:
		return render(n.Object) + "[" + render(n.Index) + "]"
	case *ast.MemberExpr:
		return render(n.Object) + "." + n.Member.Name
	}
	return "?"
}
