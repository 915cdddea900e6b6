package astctx

import (
	"testing"

	"rectify/internal/diag"
)

func TestTypeHelpers(t *testing.T) {
	if got := CompactType("Vec< Option <&'a  mut str> >"); got != "Vec<Option<&'a mut str>>" {
		t.Errorf("CompactType = %q", got)
	}
	tests := []struct {
		in, head, unwrap, deref string
	}{
		{"Option<String>", "Option", "String", "Option<String>"},
		{"Result<Vec<u8>, io::Error>", "Result", "Vec<u8>", "Result<Vec<u8>, io::Error>"},
		{"&mut std::string::String", "String", "", "std::string::String"},
		{"Option<_>", "Option", "", "Option<_>"},
		{"&str", "str", "", "str"},
	}
	for _, tt := range tests {
		if got := Head(tt.in); got != tt.head {
			t.Errorf("Head(%q) = %q", tt.in, got)
		}
		if got := Unwrap(tt.in); got != tt.unwrap {
			t.Errorf("Unwrap(%q) = %q", tt.in, got)
		}
		if got := Deref(tt.in); got != tt.deref {
			t.Errorf("Deref(%q) = %q", tt.in, got)
		}
	}
}

func TestInferLetTypes(t *testing.T) {
	src := `struct P { x: f32 }
fn mk() -> Option<P> { None }
fn main() {
    let a = 5u8;
    let b = 2.5;
    let c = 'c';
    let d = String::from("d");
    let e = vec![1, 2];
    let f = Some(a);
    let g = &d;
    let h = a as u64;
    let i = P { x: 1.0 };
    let j = i.x;
    let k = mk();
    let l = format!("{}", a);
    let m = d.len() > 2;
    let n = (a, c);
    let o = 0xf32;
    use_all();
}
`
	c := build(t, src, "E0425", "cannot find function `use_all`", span(19, 5, 19, 12))
	want := map[string]string{
		"a": "u8", "b": "f64", "c": "char", "d": "String", "e": "Vec<i32>", "f": "Option<u8>",
		"g": "&String", "h": "u64", "i": "P", "j": "f32", "k": "Option<P>", "l": "String",
		"m": "bool", "n": "(u8, char)", "o": "i32",
	}
	for name, typ := range want {
		v, ok := c.Scope.Lookup(name)
		if !ok {
			t.Errorf("%s not visible", name)
			continue
		}
		if v.Type != typ {
			t.Errorf("type of %s = %q, want %q", name, v.Type, typ)
		}
	}
}

func TestResolvePointWidensToIdentifier(t *testing.T) {
	src := "fn main() { foo_bar(1); }\n"
	c := build(t, src, "E0425", "cannot find function", diag.Location{Line: 1, Column: 16})
	if c.Content.Text != "foo_bar" {
		t.Errorf("content = %q", c.Content.Text)
	}
	if c.Target.Len() != uint32(len("foo_bar")) {
		t.Errorf("target = %v", c.Target)
	}
}
