package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/source"
	"rectify/internal/token"
)

// parseItemList parses items until the stop token (EOF or `}`), which is
// not consumed.
func (p *Parser) parseItemList(stop token.Kind) []ast.Item {
	var items []ast.Item
	for !p.at(stop) && !p.at(token.EOF) {
		if p.eat(token.Semicolon) {
			continue
		}
		before := p.pos
		item := p.parseItem(true)
		if item != nil {
			items = append(items, item)
			continue
		}
		if p.pos == before || !p.atItemStart() {
			p.resyncItems(stop)
		}
	}
	return items
}

// atItemStart reports whether the upcoming tokens begin an item. Macro
// invocations are not considered: in a block they are expressions.
func (p *Parser) atItemStart() bool {
	switch p.peek().Kind {
	case token.Pound:
		return p.peekN(1).Kind == token.LBracket || p.peekN(1).Kind == token.Bang
	case token.KwPub:
		return true
	case token.KwUse, token.KwFn, token.KwStruct, token.KwEnum, token.KwTrait,
		token.KwImpl, token.KwMod, token.KwType, token.KwStatic, token.KwExtern:
		return true
	case token.KwConst:
		next := p.peekN(1).Kind
		return next == token.Ident || next == token.Underscore || next == token.KwFn ||
			next == token.KwUnsafe || next == token.KwAsync || next == token.KwExtern
	case token.KwUnsafe:
		next := p.peekN(1).Kind
		return next == token.KwFn || next == token.KwImpl || next == token.KwTrait || next == token.KwExtern
	case token.KwAsync:
		next := p.peekN(1).Kind
		return next == token.KwFn || next == token.KwUnsafe
	case token.Ident:
		tok := p.peek()
		next := p.peekN(1)
		switch tok.Text {
		case "union":
			return next.Kind == token.Ident
		case "macro_rules":
			return next.Kind == token.Bang && p.peekN(2).Kind == token.Ident
		case "default", "auto":
			return next.Kind == token.KwFn || next.Kind == token.KwImpl || next.Kind == token.KwTrait ||
				next.Kind == token.KwUnsafe || next.Kind == token.KwType || next.Kind == token.KwConst
		}
	}
	return false
}

// parseItem parses one item. topLevel allows bare macro invocations
// (foo! { .. }) as items. Returns nil after reporting an error.
func (p *Parser) parseItem(topLevel bool) ast.Item {
	doc := p.peek().DocComment()
	start := p.peek().Span
	attrs := p.parseOuterAttrs()
	return p.parseItemAfterAttrs(topLevel, start, doc, attrs)
}

func (p *Parser) parseItemAfterAttrs(topLevel bool, start source.Span, doc string, attrs []*ast.Attr) ast.Item {
	errsBefore := p.opts.CurrentErrors
	vis := p.parseVis()
	for p.atIdent("default") || p.atIdent("auto") {
		if next := p.peekN(1).Kind; next == token.Ident || next == token.LParen || next == token.Bang {
			break
		}
		p.advance()
	}

	var item ast.Item
	switch tok := p.peek(); tok.Kind {
	case token.KwUse:
		item = p.parseUse(start, attrs, vis)
	case token.KwFn:
		item = p.fnItem(start, attrs, vis, doc)
	case token.KwConst:
		switch p.peekN(1).Kind {
		case token.KwFn, token.KwUnsafe, token.KwAsync, token.KwExtern:
			item = p.fnItem(start, attrs, vis, doc)
		default:
			item = p.parseConst(start, attrs, vis)
		}
	case token.KwStatic:
		item = p.parseConst(start, attrs, vis)
	case token.KwAsync:
		item = p.fnItem(start, attrs, vis, doc)
	case token.KwUnsafe:
		switch p.peekN(1).Kind {
		case token.KwImpl:
			item = p.parseImpl(start, attrs)
		case token.KwTrait:
			item = p.parseTrait(start, attrs, vis, doc)
		case token.KwExtern:
			if p.peekN(2).Kind == token.LBrace || (p.peekN(2).Kind == token.StringLit && p.peekN(3).Kind == token.LBrace) {
				p.advance()
				item = p.parseExternBlock(start)
			} else {
				item = p.fnItem(start, attrs, vis, doc)
			}
		default:
			item = p.fnItem(start, attrs, vis, doc)
		}
	case token.KwExtern:
		switch {
		case p.peekN(1).Kind == token.KwCrate:
			item = p.parseExternCrate(start)
		case p.peekN(1).Kind == token.LBrace,
			p.peekN(1).Kind == token.StringLit && p.peekN(2).Kind == token.LBrace:
			item = p.parseExternBlock(start)
		default:
			item = p.fnItem(start, attrs, vis, doc)
		}
	case token.KwStruct:
		item = p.parseStruct(start, attrs, vis, doc, false)
	case token.KwEnum:
		item = p.parseEnum(start, attrs, vis, doc)
	case token.KwTrait:
		item = p.parseTrait(start, attrs, vis, doc)
	case token.KwImpl:
		item = p.parseImpl(start, attrs)
	case token.KwMod:
		item = p.parseMod(start, attrs, vis)
	case token.KwType:
		item = p.parseTypeAlias(start, attrs, vis)
	case token.Ident:
		switch {
		case tok.Text == "union" && p.peekN(1).Kind == token.Ident:
			item = p.parseStruct(start, attrs, vis, doc, true)
		case tok.Text == "macro_rules" && p.peekN(1).Kind == token.Bang:
			item = p.parseMacroRules(start)
		case topLevel:
			item = p.parseItemMacro(start)
		}
	case token.ColonColon, token.KwCrate, token.KwSelfValue, token.KwSuper:
		if topLevel {
			item = p.parseItemMacro(start)
		}
	}
	if item == nil && p.opts.CurrentErrors == errsBefore {
		p.err(diag.SynExpectItem, p.diagSpan(), "expected item, found "+describe(p.peek()))
	}
	return item
}

// parseVis parses pub, pub(crate), pub(super), pub(self) and pub(in path).
func (p *Parser) parseVis() string {
	if p.at(token.KwCrate) && p.peekN(1).Kind != token.ColonColon && p.peekN(1).Kind != token.Bang {
		p.advance()
		return "crate"
	}
	if !p.at(token.KwPub) {
		return ""
	}
	p.advance()
	if !p.at(token.LParen) {
		return "pub"
	}
	switch next := p.peekN(1).Kind; {
	case (next == token.KwCrate || next == token.KwSuper || next == token.KwSelfValue) && p.peekN(2).Kind == token.RParen:
		p.advance()
		scope := p.advance().Text
		p.advance()
		return "pub(" + scope + ")"
	case next == token.KwIn:
		o, c := p.skipTokenTree()
		return "pub(" + p.textBetween(o, c) + ")"
	}
	return "pub"
}

// fnItem keeps a failed parseFn from leaking a typed nil into ast.Item.
func (p *Parser) fnItem(start source.Span, attrs []*ast.Attr, vis, doc string) ast.Item {
	if fn := p.parseFn(start, attrs, vis, doc); fn != nil {
		return fn
	}
	return nil
}

func (p *Parser) parseFn(start source.Span, attrs []*ast.Attr, vis, doc string) *ast.FnItem {
	fn := &ast.FnItem{Attrs: attrs, Vis: vis, Doc: doc}
	for qualifiers := true; qualifiers; {
		switch p.peek().Kind {
		case token.KwConst:
			fn.Const = true
		case token.KwAsync:
			fn.Async = true
		case token.KwUnsafe:
			fn.Unsafe = true
		case token.KwExtern:
			p.advance()
			p.eat(token.StringLit) // ABI
			continue
		default:
			qualifiers = false
			continue
		}
		p.advance()
	}
	if _, ok := p.expect(token.KwFn, diag.SynExpectItem, ""); !ok {
		return nil
	}
	name, _ := p.expectIdent()
	fn.Name = ast.Ident{Name: name.Text, Sp: name.Span}
	fn.Generics = p.parseGenerics()
	fn.Self, fn.Params = p.parseFnParams()
	if p.eat(token.Arrow) {
		fn.Ret = p.parseType()
	}
	p.parseWhereClause()
	switch {
	case p.at(token.LBrace):
		fn.Body = p.parseBlock()
	case p.eat(token.Semicolon):
	default:
		p.err(diag.SynExpectBlock, p.diagSpan(), "expected `{` or `;` after function signature, found "+describe(p.peek()))
	}
	fn.Sp = p.spanFrom(start)
	return fn
}

// parseFnParams parses (self, a: T, ...). The receiver, if present, is returned separately.
func (p *Parser) parseFnParams() (*ast.SelfParam, []*ast.Param) {
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected `(` to start parameter list, found "+describe(p.peek())); !ok {
		return nil, nil
	}
	var self *ast.SelfParam
	var params []*ast.Param
	first := true
	for !p.atAny(token.RParen, token.EOF) {
		p.parseOuterAttrs()
		if first {
			if sp := p.parseSelfParam(); sp != nil {
				self = sp
				first = false
				if !p.eat(token.Comma) {
					break
				}
				continue
			}
		}
		first = false
		before := p.pos
		if p.eat(token.DotDotDot) {
			if !p.eat(token.Comma) {
				break
			}
			continue
		}
		pstart := p.peek().Span
		param := &ast.Param{Pat: p.parsePatternNoTopAlt()}
		if _, ok := p.expect(token.Colon, diag.SynExpectType, "expected `:` and a parameter type, found "+describe(p.peek())); ok {
			param.Type = p.parseType()
		}
		param.Sp = p.spanFrom(pstart)
		params = append(params, param)
		if !p.eat(token.Comma) {
			break
		}
		if p.pos == before {
			p.advance()
		}
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected `)` to close parameter list, found "+describe(p.peek())); !ok {
		p.resyncUntil(token.RParen)
	}
	return self, params
}

// resyncUntil skips to the given closing token at depth zero and consumes it.
func (p *Parser) resyncUntil(k token.Kind) {
	depth := 0
	for !p.at(token.EOF) {
		tok := p.peek()
		switch {
		case tok.Kind == k && depth == 0:
			p.advance()
			return
		case tok.IsOpenDelim():
			depth++
		case tok.IsCloseDelim():
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}

func (p *Parser) parseSelfParam() *ast.SelfParam {
	start := p.peek().Span
	sp := &ast.SelfParam{}
	switch {
	case p.at(token.KwSelfValue):
		p.advance()
	case p.at(token.KwMut) && p.peekN(1).Kind == token.KwSelfValue:
		p.advance()
		p.advance()
		sp.Mut = true
	case p.at(token.Amp) && p.peekN(1).Kind == token.KwSelfValue:
		p.advance()
		p.advance()
		sp.Ref = true
	case p.at(token.Amp) && p.peekN(1).Kind == token.KwMut && p.peekN(2).Kind == token.KwSelfValue:
		p.advance()
		p.advance()
		p.advance()
		sp.Ref, sp.Mut = true, true
	case p.at(token.Amp) && p.peekN(1).Kind == token.Lifetime && p.peekN(2).Kind == token.KwSelfValue:
		p.advance()
		p.advance()
		p.advance()
		sp.Ref = true
	case p.at(token.Amp) && p.peekN(1).Kind == token.Lifetime && p.peekN(2).Kind == token.KwMut && p.peekN(3).Kind == token.KwSelfValue:
		for range 4 {
			p.advance()
		}
		sp.Ref, sp.Mut = true, true
	default:
		return nil
	}
	if p.eat(token.Colon) {
		sp.Type = p.parseType()
	}
	sp.Sp = p.spanFrom(start)
	return sp
}

func (p *Parser) parseStruct(start source.Span, attrs []*ast.Attr, vis, doc string, union bool) *ast.StructItem {
	p.advance() // struct | union
	st := &ast.StructItem{Attrs: attrs, Vis: vis, Doc: doc, Union: union}
	name, _ := p.expectIdent()
	st.Name = ast.Ident{Name: name.Text, Sp: name.Span}
	st.Generics = p.parseGenerics()
	p.parseWhereClause()
	switch {
	case p.at(token.LBrace):
		st.Kind = ast.StructNamed
		st.Fields = p.parseNamedFields()
	case p.at(token.LParen):
		st.Kind = ast.StructTuple
		st.Fields = p.parseTupleFields()
		p.parseWhereClause()
		p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;` after tuple struct, found "+describe(p.peek()))
	default:
		st.Kind = ast.StructUnit
		p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;`, `{` or `(` after struct name, found "+describe(p.peek()))
	}
	st.Sp = p.spanFrom(start)
	return st
}

func (p *Parser) parseNamedFields() []*ast.FieldDef {
	p.advance() // {
	var fields []*ast.FieldDef
	for !p.atAny(token.RBrace, token.EOF) {
		before := p.pos
		fstart := p.peek().Span
		fattrs := p.parseOuterAttrs()
		fvis := p.parseVis()
		name, ok := p.expectIdent()
		if !ok {
			p.resyncField()
			if p.pos == before {
				p.advance()
			}
			continue
		}
		f := &ast.FieldDef{Attrs: fattrs, Vis: fvis, Name: ast.Ident{Name: name.Text, Sp: name.Span}}
		if _, ok := p.expect(token.Colon, diag.SynExpectType, "expected `:` after field name, found "+describe(p.peek())); ok {
			f.Type = p.parseType()
		}
		f.Sp = p.spanFrom(fstart)
		fields = append(fields, f)
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected `,` or `}` in field list, found "+describe(p.peek()))
	return fields
}

func (p *Parser) resyncField() {
	for !p.atAny(token.Comma, token.RBrace, token.RParen, token.EOF) {
		if p.peek().IsOpenDelim() {
			p.skipTokenTree()
			continue
		}
		p.advance()
	}
	p.eat(token.Comma)
}

func (p *Parser) parseTupleFields() []*ast.FieldDef {
	p.advance() // (
	var fields []*ast.FieldDef
	for !p.atAny(token.RParen, token.EOF) {
		fstart := p.peek().Span
		fattrs := p.parseOuterAttrs()
		fvis := p.parseVis()
		f := &ast.FieldDef{Attrs: fattrs, Vis: fvis, Type: p.parseType()}
		f.Sp = p.spanFrom(fstart)
		fields = append(fields, f)
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected `,` or `)` in tuple fields, found "+describe(p.peek()))
	return fields
}

func (p *Parser) parseEnum(start source.Span, attrs []*ast.Attr, vis, doc string) *ast.EnumItem {
	p.advance() // enum
	en := &ast.EnumItem{Attrs: attrs, Vis: vis, Doc: doc}
	name, _ := p.expectIdent()
	en.Name = ast.Ident{Name: name.Text, Sp: name.Span}
	en.Generics = p.parseGenerics()
	p.parseWhereClause()
	if _, ok := p.expect(token.LBrace, diag.SynExpectBlock, "expected `{` after enum name, found "+describe(p.peek())); !ok {
		en.Sp = p.spanFrom(start)
		return en
	}
	for !p.atAny(token.RBrace, token.EOF) {
		vstart := p.peek().Span
		p.parseOuterAttrs()
		p.parseVis()
		vname, ok := p.expectIdent()
		if !ok {
			before := p.pos
			p.resyncField()
			if p.pos == before {
				p.advance()
			}
			continue
		}
		v := &ast.Variant{Name: ast.Ident{Name: vname.Text, Sp: vname.Span}, Kind: ast.StructUnit}
		switch {
		case p.at(token.LBrace):
			v.Kind = ast.StructNamed
			v.Fields = p.parseNamedFields()
		case p.at(token.LParen):
			v.Kind = ast.StructTuple
			v.Fields = p.parseTupleFields()
		}
		if p.eat(token.Assign) {
			v.Discriminant = p.parseExpr()
		}
		v.Sp = p.spanFrom(vstart)
		en.Variants = append(en.Variants, v)
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected `,` or `}` in enum body, found "+describe(p.peek()))
	en.Sp = p.spanFrom(start)
	return en
}

func (p *Parser) parseImpl(start source.Span, attrs []*ast.Attr) *ast.ImplItem {
	im := &ast.ImplItem{Attrs: attrs}
	if p.eat(token.KwUnsafe) {
		im.Unsafe = true
	}
	p.advance() // impl
	if p.at(token.Lt) {
		im.Generics = p.parseGenerics()
	}
	p.eat(token.KwConst)
	if p.at(token.Bang) {
		p.advance()
		im.Negative = true
	}
	first := p.parseType()
	if p.eat(token.KwFor) {
		if pt, ok := first.(*ast.PathType); ok {
			im.Trait = pt.Path
		} else {
			p.err(diag.SynExpectType, first.Span(), "expected a trait path before `for`")
		}
		im.SelfType = p.parseType()
	} else {
		im.SelfType = first
	}
	p.parseWhereClause()
	im.Items = p.parseAssocItems()
	im.Sp = p.spanFrom(start)
	return im
}

func (p *Parser) parseTrait(start source.Span, attrs []*ast.Attr, vis, doc string) *ast.TraitItem {
	tr := &ast.TraitItem{Attrs: attrs, Vis: vis, Doc: doc}
	if p.eat(token.KwUnsafe) {
		tr.Unsafe = true
	}
	p.advance() // trait
	name, _ := p.expectIdent()
	tr.Name = ast.Ident{Name: name.Text, Sp: name.Span}
	tr.Generics = p.parseGenerics()
	if p.eat(token.Colon) {
		tr.Supertraits = p.parseBounds()
	}
	p.parseWhereClause()
	tr.Items = p.parseAssocItems()
	tr.Sp = p.spanFrom(start)
	return tr
}

// parseAssocItems parses the { ... } body of an impl or trait.
func (p *Parser) parseAssocItems() []ast.Item {
	if _, ok := p.expect(token.LBrace, diag.SynExpectBlock, "expected `{`, found "+describe(p.peek())); !ok {
		return nil
	}
	p.parseInnerAttrs()
	items := p.parseItemList(token.RBrace)
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected `}`, found "+describe(p.peek()))
	return items
}

func (p *Parser) parseMod(start source.Span, attrs []*ast.Attr, vis string) *ast.ModItem {
	p.advance() // mod
	m := &ast.ModItem{Attrs: attrs, Vis: vis}
	name, _ := p.expectIdent()
	m.Name = ast.Ident{Name: name.Text, Sp: name.Span}
	if p.eat(token.Semicolon) {
		m.Sp = p.spanFrom(start)
		return m
	}
	m.Inline = true
	m.Items = p.parseAssocItems()
	m.Sp = p.spanFrom(start)
	return m
}

func (p *Parser) parseConst(start source.Span, attrs []*ast.Attr, vis string) *ast.ConstItem {
	c := &ast.ConstItem{Attrs: attrs, Vis: vis}
	if p.advance().Kind == token.KwStatic {
		c.Static = true
		c.Mut = p.eat(token.KwMut)
	}
	if p.at(token.Underscore) {
		tok := p.advance()
		c.Name = ast.Ident{Name: "_", Sp: tok.Span}
	} else {
		name, _ := p.expectIdent()
		c.Name = ast.Ident{Name: name.Text, Sp: name.Span}
	}
	if p.eat(token.Colon) {
		c.Type = p.parseType()
	}
	if p.eat(token.Assign) {
		c.Value = p.parseExpr()
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;` after constant, found "+describe(p.peek()))
	c.Sp = p.spanFrom(start)
	return c
}

func (p *Parser) parseTypeAlias(start source.Span, attrs []*ast.Attr, vis string) *ast.TypeAliasItem {
	p.advance() // type
	ta := &ast.TypeAliasItem{Attrs: attrs, Vis: vis}
	name, _ := p.expectIdent()
	ta.Name = ast.Ident{Name: name.Text, Sp: name.Span}
	ta.Generics = p.parseGenerics()
	if p.eat(token.Colon) {
		ta.Bounds = p.parseBounds()
	}
	p.parseWhereClause()
	if p.eat(token.Assign) {
		ta.Type = p.parseType()
	}
	p.parseWhereClause()
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;` after type alias, found "+describe(p.peek()))
	ta.Sp = p.spanFrom(start)
	return ta
}

func (p *Parser) parseExternCrate(start source.Span) *ast.ExternCrateItem {
	p.advance() // extern
	p.advance() // crate
	ec := &ast.ExternCrateItem{}
	if p.at(token.KwSelfValue) {
		tok := p.advance()
		ec.Name = ast.Ident{Name: "self", Sp: tok.Span}
	} else {
		name, _ := p.expectIdent()
		ec.Name = ast.Ident{Name: name.Text, Sp: name.Span}
	}
	if p.eat(token.KwAs) {
		if p.at(token.Underscore) {
			p.advance()
			ec.Alias = "_"
		} else {
			alias, _ := p.expectIdent()
			ec.Alias = alias.Text
		}
	}
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;` after extern crate, found "+describe(p.peek()))
	ec.Sp = p.spanFrom(start)
	return ec
}

func (p *Parser) parseExternBlock(start source.Span) *ast.ExternBlockItem {
	p.advance() // extern
	eb := &ast.ExternBlockItem{}
	if p.at(token.StringLit) {
		eb.ABI = p.advance().Text
	}
	eb.Items = p.parseAssocItems()
	eb.Sp = p.spanFrom(start)
	return eb
}

func (p *Parser) parseMacroRules(start source.Span) *ast.MacroItem {
	pathTok := p.advance() // macro_rules
	p.advance()            // !
	m := &ast.MacroItem{Path: singlePath(pathTok)}
	name, _ := p.expectIdent()
	m.Name = name.Text
	if !p.peek().IsOpenDelim() {
		p.err(diag.SynUnexpectedToken, p.diagSpan(), "expected macro body, found "+describe(p.peek()))
		m.Sp = p.spanFrom(start)
		return m
	}
	delim := p.peek().Kind
	o, c := p.skipTokenTree()
	m.Body = p.textBetween(o, c)
	if delim != token.LBrace {
		p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;` after macro_rules!, found "+describe(p.peek()))
	}
	m.Sp = p.spanFrom(start)
	return m
}

// parseItemMacro parses foo! { .. } or foo!(..); at item level.
func (p *Parser) parseItemMacro(start source.Span) ast.Item {
	mark := p.pos
	path := p.parsePathExpr()
	if !p.at(token.Bang) || !p.peekN(1).IsOpenDelim() {
		p.pos = mark
		return nil
	}
	p.advance() // !
	delim := p.peek().Kind
	o, c := p.skipTokenTree()
	m := &ast.MacroItem{Path: path, Body: p.textBetween(o, c)}
	if delim != token.LBrace {
		p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;` after macro invocation, found "+describe(p.peek()))
	}
	m.Sp = p.spanFrom(start)
	return m
}

func singlePath(tok token.Token) *ast.Path {
	seg := &ast.PathSegment{Sp: tok.Span, Name: ast.Ident{Name: tok.Text, Sp: tok.Span}}
	return &ast.Path{Sp: tok.Span, Segments: []*ast.PathSegment{seg}}
}
