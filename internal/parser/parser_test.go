package parser

import (
	"fmt"
	"strings"
	"testing"

	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/source"
	"rectify/internal/testkit"
	"rectify/internal/token"
)

func newTestFile(src string) *source.File {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.rs", []byte(src))
	return fs.Get(id)
}

func parseSource(t *testing.T, src string) (*ast.File, *source.File, *diag.Bag) {
	t.Helper()
	file := newTestFile(src)
	bag := diag.NewBag(100)
	f := ParseFile(file, Options{Reporter: bag})
	return f, file, bag
}

func diagnosticsSummary(bag *diag.Bag) string {
	if bag == nil {
		return "<nil bag>"
	}
	items := bag.Items()
	if len(items) == 0 {
		return "<none>"
	}
	lines := make([]string, len(items))
	for i, d := range items {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}

func mustParse(t *testing.T, src string) (*ast.File, *source.File) {
	t.Helper()
	f, file, bag := parseSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics for %q: %s", src, diagnosticsSummary(bag))
	}
	return f, file
}

// find returns the first node of type T in source order.
func find[T ast.Node](root ast.Node) (T, bool) {
	var out T
	found := false
	ast.Inspect(root, func(n ast.Node) bool {
		if found {
			return false
		}
		if x, ok := n.(T); ok {
			out, found = x, true
			return false
		}
		return true
	})
	return out, found
}

func findAll[T ast.Node](root ast.Node) []T {
	var out []T
	ast.Inspect(root, func(n ast.Node) bool {
		if x, ok := n.(T); ok {
			out = append(out, x)
		}
		return true
	})
	return out
}

func TestParseFile_Items(t *testing.T) {
	src := `
use std::collections::HashMap;

/// A point.
#[derive(Debug, Clone)]
pub struct Point { pub x: i32, y: i32 }

struct Wrapper(Vec<u8>);
struct Unit;

enum Shape { Circle(f64), Rect { w: f64, h: f64 }, Empty = 3 }

trait Area: Clone + 'static {
    const SIDES: u32;
    type Output;
    fn area(&self) -> f64;
    fn name(&self) -> String { String::from("shape") }
}

impl<T: Clone> Area for Vec<T> where T: Send {
    const SIDES: u32 = 0;
    type Output = T;
    fn area(&self) -> f64 { 0.0 }
}

impl Point {
    pub(crate) fn new(x: i32, y: i32) -> Self { Point { x, y } }
}

mod inner { pub fn f() {} }
mod outer;
const LIMIT: usize = 10;
static mut COUNTER: u64 = 0;
type Map<K> = HashMap<K, Vec<K>>;
extern crate alloc;
macro_rules! square { ($x:expr) => { $x * $x }; }
`
	f, file := mustParse(t, src)
	if err := testkit.CheckSpanInvariants(f, file); err != nil {
		t.Fatal(err)
	}

	wantKinds := []string{
		"*ast.UseItem", "*ast.StructItem", "*ast.StructItem", "*ast.StructItem", "*ast.EnumItem",
		"*ast.TraitItem", "*ast.ImplItem", "*ast.ImplItem", "*ast.ModItem", "*ast.ModItem",
		"*ast.ConstItem", "*ast.ConstItem", "*ast.TypeAliasItem", "*ast.ExternCrateItem", "*ast.MacroItem",
	}
	if len(f.Items) != len(wantKinds) {
		t.Fatalf("got %d items, want %d", len(f.Items), len(wantKinds))
	}
	for i, it := range f.Items {
		if got := fmt.Sprintf("%T", it); got != wantKinds[i] {
			t.Errorf("item %d: got %s, want %s", i, got, wantKinds[i])
		}
	}

	point := f.Items[1].(*ast.StructItem)
	if point.Name.Name != "Point" || point.Kind != ast.StructNamed || len(point.Fields) != 2 {
		t.Errorf("unexpected Point: %+v", point)
	}
	if point.Doc != "A point." {
		t.Errorf("Point doc = %q", point.Doc)
	}
	if len(point.Attrs) != 1 || point.Attrs[0].Path != "derive" || point.Attrs[0].Args != "Debug, Clone" {
		t.Errorf("unexpected attrs: %+v", point.Attrs)
	}

	shape := f.Items[4].(*ast.EnumItem)
	if len(shape.Variants) != 3 || shape.Variants[1].Kind != ast.StructNamed || shape.Variants[2].Discriminant == nil {
		t.Errorf("unexpected enum: %+v", shape.Variants)
	}

	trait := f.Items[5].(*ast.TraitItem)
	if len(trait.Supertraits) != 2 || len(trait.Items) != 4 {
		t.Errorf("trait: %d supertraits, %d items", len(trait.Supertraits), len(trait.Items))
	}
	if fn := trait.Items[2].(*ast.FnItem); fn.Body != nil || fn.Self == nil || !fn.Self.Ref {
		t.Errorf("trait method area: %+v", fn)
	}

	impl := f.Items[6].(*ast.ImplItem)
	if impl.Trait == nil || impl.Trait.String() != "Area" {
		t.Errorf("impl trait = %v", impl.Trait)
	}
	if pt, ok := impl.SelfType.(*ast.PathType); !ok || pt.Path.Last() != "Vec" {
		t.Errorf("impl self type = %#v", impl.SelfType)
	}

	inherent := f.Items[7].(*ast.ImplItem)
	newFn := inherent.Items[0].(*ast.FnItem)
	if newFn.Vis != "pub(crate)" || len(newFn.Params) != 2 {
		t.Errorf("new: vis %q, %d params", newFn.Vis, len(newFn.Params))
	}

	mac := f.Items[14].(*ast.MacroItem)
	if mac.Name != "square" {
		t.Errorf("macro name = %q", mac.Name)
	}
}

func TestParseMethodCallSpans(t *testing.T) {
	src := "fn main() {\n    let s = String::new();\n    let n = s.lenght();\n}\n"
	f, file := mustParse(t, src)

	mc, ok := find[*ast.MethodCallExpr](f)
	if !ok {
		t.Fatal("no method call found")
	}
	if mc.Method.Name != "lenght" {
		t.Fatalf("method = %q", mc.Method.Name)
	}
	if got := file.Text(mc.Method.Sp); got != "lenght" {
		t.Errorf("method span text = %q", got)
	}
	if got := file.Text(mc.Sp); got != "s.lenght()" {
		t.Errorf("call span text = %q", got)
	}
	if got := file.Text(mc.ArgsSp); got != "()" {
		t.Errorf("args span text = %q", got)
	}
	pos := file.LineCol(mc.Method.Sp.Start)
	if pos.Line != 3 || pos.Col != 15 {
		t.Errorf("method position = %d:%d, want 3:15", pos.Line, pos.Col)
	}
}

func TestParseExprPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a + b * c", "(a + (b * c))"},
		{"a * b + c", "((a * b) + c)"},
		{"a || b && c", "(a || (b && c))"},
		{"a == b && c < d", "((a == b) && (c < d))"},
		{"x as u8 + 1", "((x as u8) + 1)"},
		{"-a * b", "((-a) * b)"},
		{"a = b = c", "(a = (b = c))"},
		{"a += 1", "(a += 1)"},
		{"0..n", "(0..n)"},
		{"..=n", "(..=n)"},
		{"a.b().c?", "a.b().c?"},
		{"&mut v[0]", "(&mut v[0])"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"1 << 2 + 3", "(1 << (2 + 3))"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			file := newTestFile(tt.src)
			bag := diag.NewBag(10)
			e := ParseExpr(file, Options{Reporter: bag})
			if bag.HasErrors() {
				t.Fatalf("diagnostics: %s", diagnosticsSummary(bag))
			}
			if got := render(e); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// render prints an expression with explicit grouping.
func render(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.BinaryExpr:
		return "(" + render(x.X) + " " + opText(x.Op) + " " + render(x.Y) + ")"
	case *ast.AssignExpr:
		return "(" + render(x.X) + " " + opText(x.Op) + " " + render(x.Y) + ")"
	case *ast.UnaryExpr:
		return "(" + opText(x.Op) + render(x.X) + ")"
	case *ast.RefExpr:
		if x.Mut {
			return "(&mut " + render(x.X) + ")"
		}
		return "(&" + render(x.X) + ")"
	case *ast.CastExpr:
		pt := x.Type.(*ast.PathType)
		return "(" + render(x.X) + " as " + pt.Path.String() + ")"
	case *ast.RangeExpr:
		op := ".."
		if x.Inclusive {
			op = "..="
		}
		lo, hi := "", ""
		if x.Lo != nil {
			lo = render(x.Lo)
		}
		if x.Hi != nil {
			hi = render(x.Hi)
		}
		return "(" + lo + op + hi + ")"
	case *ast.PathExpr:
		return x.Path.String()
	case *ast.LitExpr:
		return x.Text
	case *ast.MethodCallExpr:
		return render(x.Receiver) + "." + x.Method.Name + "()"
	case *ast.FieldExpr:
		return render(x.X) + "." + x.Field.Name
	case *ast.TryExpr:
		return render(x.X) + "?"
	case *ast.IndexExpr:
		return render(x.X) + "[" + render(x.Index) + "]"
	}
	return fmt.Sprintf("<%T>", e)
}

func opText(k token.Kind) string {
	switch k {
	case token.Plus:
		return "+"
	case token.Minus:
		return "-"
	case token.Star:
		return "*"
	case token.OrOr:
		return "||"
	case token.AndAnd:
		return "&&"
	case token.EqEq:
		return "=="
	case token.Lt:
		return "<"
	case token.Assign:
		return "="
	case token.PlusAssign:
		return "+="
	case token.Pipe:
		return "|"
	case token.Caret:
		return "^"
	case token.Amp:
		return "&"
	case token.Shl:
		return "<<"
	}
	return k.String()
}

func TestParseSplitsCompoundGreaterThan(t *testing.T) {
	tests := []string{
		"fn f() { let v: Vec<Vec<u8>> = Vec::new(); }",
		"fn f() { let v: Option<Vec<u8>>= None; }",
		"fn f() -> HashMap<String, Vec<Option<u8>>> { todo!() }",
		"fn f() { let x = iter.collect::<Vec<Vec<_>>>(); }",
		"fn f() { if a >> 2 >= 1 { } }",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			mustParse(t, src)
		})
	}
}

func TestParseStructLiterals(t *testing.T) {
	f, _ := mustParse(t, "fn f() { let p = Point { x: 1, y }; if p == Origin { return; } }")
	se, ok := find[*ast.StructExpr](f)
	if !ok {
		t.Fatal("no struct literal")
	}
	if se.Path.String() != "Point" || len(se.Fields) != 2 {
		t.Fatalf("unexpected struct literal: %+v", se)
	}
	if se.Fields[0].Shorthand || !se.Fields[1].Shorthand {
		t.Errorf("shorthand flags: %v %v", se.Fields[0].Shorthand, se.Fields[1].Shorthand)
	}
	// `Origin {` в условии if это блок, не литерал
	if n := len(findAll[*ast.StructExpr](f)); n != 1 {
		t.Errorf("got %d struct literals, want 1", n)
	}
}

func TestParseControlFlow(t *testing.T) {
	src := `
fn f(v: Option<i32>) -> i32 {
    let Some(x) = v else { return 0; };
    'outer: for (i, item) in items.iter().enumerate() {
        while let Some(top) = stack.pop() {
            if top > 3 && i % 2 == 0 { break 'outer; } else if top < 0 { continue; }
        }
    }
    let total = match x {
        0 => 1,
        n if n < 0 => { -n }
        1..=9 | 11 => 2,
        Point { x, .. } => x,
        _ => loop { break 5; },
    };
    let add = |a: i32, b| a + b;
    let boxed = move || total;
    unsafe { ptr.read() };
    match x { _ => {} }
    x.max(total)
}
`
	f, file := mustParse(t, src)
	if err := testkit.CheckSpanInvariants(f, file); err != nil {
		t.Fatal(err)
	}
	fn := f.Items[0].(*ast.FnItem)
	if tail := fn.Body.Tail(); tail == nil {
		t.Fatal("expected tail expression")
	}
	let := fn.Body.Stmts[0].(*ast.LetStmt)
	if let.Else == nil {
		t.Error("let-else lost its else block")
	}
	forExpr, ok := find[*ast.ForExpr](f)
	if !ok || forExpr.Label != "'outer" {
		t.Errorf("labelled for: %+v", forExpr)
	}
	me, ok := find[*ast.MatchExpr](f)
	if !ok || len(me.Arms) != 5 {
		t.Fatalf("match arms: %+v", me)
	}
	if me.Arms[1].Guard == nil {
		t.Error("guard lost")
	}
	if _, ok := me.Arms[2].Pat.(*ast.OrPat); !ok {
		t.Errorf("arm 2 pattern = %T", me.Arms[2].Pat)
	}
	closures := findAll[*ast.ClosureExpr](f)
	if len(closures) != 2 || len(closures[0].Params) != 2 || !closures[1].Move {
		t.Errorf("closures: %+v", closures)
	}
}

func TestParseMacroArgs(t *testing.T) {
	tests := []struct {
		src      string
		wantArgs int // -1: тело не разбирается как список выражений
	}{
		{`println!("{} {}", a, b.len())`, 3},
		{`vec![0; n]`, 2},
		{`vec![]`, 0},
		{`format!("{x}")`, 1},
		{`assert_eq!(a, b, "msg")`, 3},
		{`m!(=> x)`, -1},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			file := newTestFile(tt.src)
			bag := diag.NewBag(10)
			e := ParseExpr(file, Options{Reporter: bag})
			if bag.HasErrors() {
				t.Fatalf("diagnostics: %s", diagnosticsSummary(bag))
			}
			m, ok := e.(*ast.MacroCallExpr)
			if !ok {
				t.Fatalf("got %T", e)
			}
			if tt.wantArgs < 0 {
				if m.Args != nil {
					t.Errorf("expected nil args, got %d", len(m.Args))
				}
				return
			}
			if m.Args == nil || len(m.Args) != tt.wantArgs {
				t.Errorf("got args %v, want %d", m.Args, tt.wantArgs)
			}
		})
	}
}

func TestParseUseTrees(t *testing.T) {
	f, _ := mustParse(t, "use std::{io::{self, Write}, collections::HashMap as Map, fmt::*};\nuse ::core::mem;\n")
	imports := ast.Imports(f.Items)
	want := []ast.ImportPath{
		{Path: "std::io", Name: "io"},
		{Path: "std::io::Write", Name: "Write"},
		{Path: "std::collections::HashMap", Name: "Map", Alias: "Map"},
		{Path: "std::fmt::*", Name: "*"},
		{Path: "::core::mem", Name: "mem"},
	}
	if len(imports) != len(want) {
		t.Fatalf("got %+v", imports)
	}
	for i := range want {
		if imports[i] != want[i] {
			t.Errorf("import %d: got %+v, want %+v", i, imports[i], want[i])
		}
	}
}

func TestParseEntryPoints(t *testing.T) {
	tests := []struct {
		name    string
		parse   func(*source.File, Options)
		src     string
		wantErr bool
	}{
		{"expr ok", func(f *source.File, o Options) { ParseExpr(f, o) }, "s.len()", false},
		{"expr rejects statement", func(f *source.File, o Options) { ParseExpr(f, o) }, "let x = 1;", true},
		{"expr rejects trailing", func(f *source.File, o Options) { ParseExpr(f, o) }, "a b", true},
		{"stmts ok", func(f *source.File, o Options) { ParseStmts(f, o) }, "let x = 1; x + 1", false},
		{"stmts with item", func(f *source.File, o Options) { ParseStmts(f, o) }, "fn g() {} let y = g();", false},
		{"stmts missing semicolon", func(f *source.File, o Options) { ParseStmts(f, o) }, "let x = 1 let y = 2;", true},
		{"items ok", func(f *source.File, o Options) { ParseItems(f, o) }, "use a::b; fn f() {}", false},
		{"items reject expression", func(f *source.File, o Options) { ParseItems(f, o) }, "1 + 2", true},
		{"unclosed block", func(f *source.File, o Options) { ParseStmts(f, o) }, "if x { y();", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bag := diag.NewBag(10)
			tt.parse(newTestFile(tt.src), Options{Reporter: bag})
			if got := bag.HasErrors(); got != tt.wantErr {
				t.Errorf("HasErrors = %v, want %v (%s)", got, tt.wantErr, diagnosticsSummary(bag))
			}
		})
	}
}

func TestParseRecoversAfterErrors(t *testing.T) {
	src := "fn a() { let x = ; }\nstruct S { x: }\nfn b() -> u8 { 1 }\n"
	f, _, bag := parseSource(t, src)
	if !bag.HasErrors() {
		t.Fatal("expected diagnostics")
	}
	var names []string
	for _, it := range f.Items {
		switch x := it.(type) {
		case *ast.FnItem:
			names = append(names, x.Name.Name)
		case *ast.StructItem:
			names = append(names, x.Name.Name)
		}
	}
	if strings.Join(names, ",") != "a,S,b" {
		t.Errorf("items after recovery: %v", names)
	}
}

func TestParseMaxErrors(t *testing.T) {
	file := newTestFile("fn a() { ) ) ) ) ) ) ) ) }")
	bag := diag.NewBag(100)
	ParseFile(file, Options{Reporter: bag, MaxErrors: 3})
	if bag.Len() > 4 {
		t.Errorf("got %d diagnostics with MaxErrors=3: %s", bag.Len(), diagnosticsSummary(bag))
	}
}

// Любой мусор должен разбираться за конечное время.
func TestParseAlwaysTerminates(t *testing.T) {
	inputs := []string{
		"", "}", ")))", "fn", "fn (", "impl", "let", "match {", "if", "a.", "x::", "<", "<<>>",
		"fn f() { match x { 1 => } }", "struct S(", "enum E { A(, }", "use a::{b", "#[", "#![x",
		"fn f() { |x| }", "fn f() { 'a: }", "trait T { fn f(&self) -> ; }", "fn f() { x as }",
		"fn f() { S { a: 1, ..  }", "mod m { fn", "fn f() { let (a, = b; }", "'\\n",
	}
	for _, src := range inputs {
		t.Run(src, func(t *testing.T) {
			file := newTestFile(src)
			bag := diag.NewBag(100)
			ParseFile(file, Options{Reporter: bag})
			ParseStmts(newTestFile(src), Options{Reporter: diag.NewBag(100)})
			ParseExpr(newTestFile(src), Options{Reporter: diag.NewBag(100)})
		})
	}
}
