package ir

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/hassan/oslc/internal/diag"
	"github.com/hassan/oslc/internal/lexer"
	"github.com/hassan/oslc/internal/parser"
	"github.com/hassan/oslc/internal/parser/ast"
	"github.com/hassan/oslc/internal/semantic"
	"github.com/hassan/oslc/internal/semantic/types"
	"github.com/hassan/oslc/internal/symtab"
)

func generate(t *testing.T, src string) *Unit {
	t.Helper()
	file, errs := parser.New(lexer.New(src, "test.osl")).ParseFile("test.osl")
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	table := symtab.New()
	sink := diag.NewSink(nil)
	shader := semantic.New(table, sink).Analyze(file)
	if sink.HasErrors() {
		t.Fatalf("type errors: %v", sink.Diagnostics())
	}
	return Generate(shader, table)
}

func listing(u *Unit) []string {
	lines := make([]string, len(u.Code))
	for i := range u.Code {
		lines[i] = u.Code[i].String()
	}
	return lines
}

func symbolsOf(u *Unit, st symtab.SymType) []*symtab.Symbol {
	var syms []*symtab.Symbol
	for _, s := range u.Symtab.Symbols() {
		if s.SymType == st {
			syms = append(syms, s)
		}
	}
	return syms
}

func TestGenerate_Listings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "declarations",
			src:  `surface s() { float a = 1.0; float b = 1.0; a = b; }`,
			want: []string{
				"assign ___1_a $const1",
				"assign ___1_b $const1",
				"assign ___1_a ___1_b",
			},
		},
		{
			name: "if without else",
			src:  `surface s(float Kd = 1) { float x = 0; if (Kd > 0.5) x = 1; }`,
			want: []string{
				"assign ___1_x $const1",
				"gt $tmp1 Kd $const2",
				"if $tmp1 4 4",
				"assign ___1_x $const3",
				"nop",
			},
		},
		{
			name: "if with else",
			src:  `surface s(float Kd = 1) { float x = 0; if (Kd > 0.5) x = 1; else x = 2; x = 3; }`,
			want: []string{
				"assign ___1_x $const1",
				"gt $tmp1 Kd $const2",
				"if $tmp1 4 5",
				"assign ___1_x $const3",
				"assign ___1_x $const4",
				"assign ___1_x $const5",
			},
		},
		{
			name: "for loop",
			src:  `surface s() { float x = 0; for (int i = 0; i < 3; i++) x = x + 1; }`,
			want: []string{
				"assign ___1_x $const1",
				"for $tmp1 3 4 6 9",
				"assign ___2_i $const1",
				"lt $tmp1 ___2_i $const2",
				"add $tmp2 ___1_x $const3",
				"assign ___1_x $tmp2",
				"assign $tmp3 ___2_i",
				"add $tmp4 ___2_i $const3",
				"assign ___2_i $tmp4",
				"nop",
			},
		},
		{
			name: "while with break",
			src:  `surface s() { while (1) { break; } }`,
			want: []string{
				"while $const1 1 1 2 2",
				"break",
				"nop",
			},
		},
		{
			name: "array initializer",
			src:  `surface s() { float a[2] = {1, 2}; a[1] = a[0]; }`,
			want: []string{
				"aassign ___1_a $const2 $const1",
				"aassign ___1_a $const1 $const3",
				"aref $tmp1 ___1_a $const2",
				"aassign ___1_a $const1 $tmp1",
			},
		},
		{
			name: "compound assignment",
			src:  `surface s() { color c = 0; c *= 2; c[1] = 0.5; }`,
			want: []string{
				"assign ___1_c $const1",
				"mul $tmp1 ___1_c $const2",
				"assign ___1_c $tmp1",
				"compassign ___1_c $const4 $const3",
			},
		},
		{
			name: "constructor and calls",
			src:  `surface s() { color c = color(1, 0, 0); Ci = diffuse(N) * c; }`,
			want: []string{
				"color $tmp1 $const1 $const2 $const2",
				"assign ___1_c $tmp1",
				"diffuse $tmp2 N",
				"mul $tmp3 $tmp2 ___1_c",
				"assign Ci $tmp3",
			},
		},
		{
			name: "empty body",
			src:  `surface s() { }`,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := generate(t, tt.src)
			got := listing(u)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("listing:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(tt.want, "\n"))
			}
			if err := u.Verify(); err != nil {
				t.Errorf("Verify() = %v", err)
			}
			for i := range u.Code {
				if u.Code[i].Method != MainMethod {
					t.Errorf("instruction %d in method %q", i, u.Code[i].Method)
				}
			}
		})
	}
}

func TestGenerate_ConstDedup(t *testing.T) {
	u := generate(t, `surface s() { float a = 1.0; float b = 1.0; int i = 1; a = b + i; }`)

	consts := symbolsOf(u, symtab.SymConst)
	if len(consts) != 2 {
		t.Fatalf("consts = %v, want float 1 and int 1", consts)
	}
	if consts[0].Type != types.TypeFloat || consts[0].Value != float64(1) {
		t.Errorf("first const = %v (%v)", consts[0], consts[0].Value)
	}
	if consts[1].Type != types.TypeInt || consts[1].Value != int64(1) {
		t.Errorf("second const = %v (%v)", consts[1], consts[1].Value)
	}
	for _, c := range consts {
		if c.Mangled != c.Name {
			t.Errorf("const %s mangled as %s", c.Name, c.Mangled)
		}
	}
}

func TestGenerate_ConstDedupFloat32(t *testing.T) {
	u := generate(t, `surface s() { float a = 0.1; float b = 0.100000001; float c = 0.2; a = b + c; }`)

	consts := symbolsOf(u, symtab.SymConst)
	if len(consts) != 2 {
		t.Fatalf("consts = %v, want 0.1 and 0.2", consts)
	}
	if consts[0].Value != float64(0.1) {
		t.Errorf("first const value = %v, want the first literal", consts[0].Value)
	}
	code := strings.Join(listing(u), "\n")
	if !strings.Contains(code, "assign ___1_b $const1\n") {
		t.Errorf("0.100000001 does not reuse $const1:\n%s", code)
	}
}

func TestGenerate_TempsNeverReused(t *testing.T) {
	u := generate(t, `surface s() { float x = u + v; x = x * u + x * v; }`)

	seen := make(map[string]bool)
	for i, tmp := range symbolsOf(u, symtab.SymTemp) {
		want := "$tmp" + string(rune('1'+i))
		if tmp.Name != want {
			t.Errorf("temp %d = %s, want %s", i, tmp.Name, want)
		}
		if seen[tmp.Mangled] {
			t.Errorf("temp %s reused", tmp.Mangled)
		}
		seen[tmp.Mangled] = true
	}
	if len(seen) != 4 {
		t.Errorf("%d temps, want 4", len(seen))
	}
}

func TestGenerate_NestedControlResolves(t *testing.T) {
	u := generate(t, `
surface s(float Kd = 1)
{
    float x = 0;
    for (int i = 0; i < 4; i += 1) {
        if (i == 2)
            continue;
        do {
            x += Kd;
        } while (x < 10);
        if (x > 100) {
            break;
        } else {
            x = 0;
        }
    }
}`)
	if err := u.Verify(); err != nil {
		t.Fatalf("Verify() = %v", err)
	}
	for i := range u.Code {
		for slot, j := range u.Code[i].Jump {
			if j == Pending {
				t.Errorf("instruction %d (%s) slot %d still pending", i, u.Code[i].Op, slot)
			}
		}
	}
}

func TestGenerate_SourceLines(t *testing.T) {
	u := generate(t, "surface s()\n{\n    float x = 1;\n\n    x = 2;\n}")
	if len(u.Code) != 2 {
		t.Fatalf("listing = %v", listing(u))
	}
	for i, wantLine := range []int{3, 5} {
		file, line := u.Code[i].Source()
		if file != "test.osl" || line != wantLine {
			t.Errorf("instruction %d at %s:%d, want test.osl:%d", i, file, line, wantLine)
		}
	}
}

func TestGenerate_ShaderKind(t *testing.T) {
	tests := []struct {
		src  string
		want ShaderKind
	}{
		{"surface a() {}", Surface},
		{"displacement a() {}", Displacement},
		{"light a() {}", Light},
		{"volume a() {}", Volume},
		{"shader a() {}", Generic},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			u := generate(t, tt.src)
			if u.Kind != tt.want || u.Name != "a" {
				t.Errorf("unit = %s %s, want %s a", u.Kind, u.Name, tt.want)
			}
		})
	}
}

func TestFinish_UnresolvedJump(t *testing.T) {
	node := &ast.BreakStmt{BreakPos: lexer.Position{Filename: "x.osl", Line: 7}}

	run := func() (err error) {
		defer diag.Recover(&err)
		b := NewBuilder(symtab.New(), Surface, "s")
		op := b.emit("if", node, b.Const(types.TypeInt, int64(1)))
		b.jumpTo(op, 0, b.newLabel(node))
		b.Finish()
		return nil
	}

	err := run()
	var ie *diag.InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("Finish() error = %v, want *diag.InternalError", err)
	}
	if ie.File != "x.osl" || ie.Line != 7 {
		t.Errorf("internal error at %s:%d, want x.osl:7", ie.File, ie.Line)
	}
}

func TestUnit_Verify(t *testing.T) {
	one := &symtab.Symbol{Name: "$const1", Mangled: "$const1", SymType: symtab.SymConst}

	tests := []struct {
		name   string
		method string
		target int
		ok     bool
	}{
		{"same method", MainMethod, 1, true},
		{"other method", "___init___", 1, false},
		{"out of range", MainMethod, 5, false},
		{"pending", MainMethod, Pending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &Unit{Code: []Opcode{
				NewOpcode("if", MainMethod, nil, one),
				NewOpcode("nop", tt.method, nil),
			}}
			u.Code[0].Jump[0] = tt.target
			err := u.Verify()
			if tt.ok && err != nil {
				t.Errorf("Verify() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrBadJump) {
				t.Errorf("Verify() = %v, want ErrBadJump", err)
			}
		})
	}
}

func TestUnit_Blocks(t *testing.T) {
	u := generate(t, `surface s(float Kd = 1) { float x = 0; if (Kd > 0.5) x = 1; else x = 2; x = 3; }`)

	blocks := u.Blocks(MainMethod)
	var spans []string
	for _, bb := range blocks {
		spans = append(spans, bb.Label+"="+string(rune('0'+bb.Start))+".."+string(rune('0'+bb.End)))
	}
	want := []string{"B0=0..3", "B1=3..4", "B2=4..5", "B3=5..6"}
	if !reflect.DeepEqual(spans, want) {
		t.Errorf("blocks = %v, want %v", spans, want)
	}
	if got := blocks[3].String(); !strings.HasPrefix(got, "B3: ; predecessors: ") {
		t.Errorf("B3 = %q", got)
	}

	var sb strings.Builder
	if err := u.Print(&sb); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "method ___main___") || !strings.Contains(sb.String(), "if $tmp1 4 5") {
		t.Errorf("Print() =\n%s", sb.String())
	}
}

func TestShaderKind_Parse(t *testing.T) {
	for _, name := range []string{"surface", "displacement", "light", "volume", "shader"} {
		k, ok := ParseShaderKind(name)
		if !ok || k.String() != name {
			t.Errorf("ParseShaderKind(%q) = %v, %v", name, k, ok)
		}
	}
	if _, ok := ParseShaderKind("fragment"); ok {
		t.Error("ParseShaderKind(fragment) should fail")
	}
}
