package typepat

// Bindings maps type variables to the types they matched.
type Bindings map[string]*Type

// Matches reports whether the type string typ matches pattern. Malformed
// input never matches.
func Matches(typ, pattern string) bool {
	t, err := Parse(typ)
	if err != nil {
		return false
	}
	p, err := Parse(pattern)
	if err != nil {
		return false
	}
	_, ok := Match(t, p, nil)
	return ok
}

// Match matches t against pattern p. Heads must be equal (comparing the last
// path segment when either side is qualified) or the pattern must be a type
// variable; generic arguments match pairwise. A variable bound earlier, in b
// or within this match, must bind to the same type again. The returned
// bindings include b.
func Match(t, p *Type, b Bindings) (Bindings, bool) {
	out := make(Bindings, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	if !match(t, p, out) {
		return nil, false
	}
	return out, true
}

func match(t, p *Type, b Bindings) bool {
	if t == nil || p == nil {
		return t == p
	}
	if p.IsVar() {
		if prev, ok := b[p.Head]; ok {
			return equal(prev, t)
		}
		b[p.Head] = t
		return true
	}
	if !sameHead(t, p) || t.Lifetime != p.Lifetime || t.Len != p.Len {
		return false
	}
	if len(t.Args) != len(p.Args) {
		return false
	}
	for i := range p.Args {
		if !match(t.Args[i], p.Args[i], b) {
			return false
		}
	}
	if (t.Ret == nil) != (p.Ret == nil) {
		return false
	}
	return t.Ret == nil || match(t.Ret, p.Ret, b)
}

func sameHead(t, p *Type) bool {
	if t.Head == p.Head {
		return true
	}
	return t.Base() == p.Base() && t.Base() != "" && isPath(t.Head) && isPath(p.Head)
}

func isPath(head string) bool {
	switch head {
	case HeadRef, HeadRefMut, HeadSlice, HeadArray, HeadTuple, HeadNever, HeadFn, HeadPtr, HeadPtrMut, HeadDyn, HeadImpl:
		return false
	}
	return true
}

func equal(a, b *Type) bool {
	return a.String() == b.String()
}

// Subst replaces type variables in p with their bindings. Unbound variables
// are left as they are.
func (b Bindings) Subst(p *Type) *Type {
	if p == nil {
		return nil
	}
	if p.IsVar() {
		if t, ok := b[p.Head]; ok {
			return t
		}
		return p
	}
	out := *p
	out.Args = make([]*Type, len(p.Args))
	for i, a := range p.Args {
		out.Args[i] = b.Subst(a)
	}
	out.Ret = b.Subst(p.Ret)
	return &out
}
