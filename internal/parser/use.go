package parser

import (
	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/source"
	"rectify/internal/token"
)

func (p *Parser) parseUse(start source.Span, attrs []*ast.Attr, vis string) *ast.UseItem {
	p.advance() // use
	u := &ast.UseItem{Attrs: attrs, Vis: vis}
	u.Tree = p.parseUseTree()
	if _, ok := p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected `;` after use declaration, found "+describe(p.peek())); !ok {
		p.resyncStmt(token.RBrace)
	}
	u.Sp = p.spanFrom(start)
	return u
}

// parseUseTree parses a::b, a::b as c, a::*, a::{b, c::d}.
func (p *Parser) parseUseTree() *ast.UseTree {
	start := p.peek().Span
	tree := &ast.UseTree{Kind: ast.UseSimple}
	if p.eat(token.ColonColon) {
		tree.Prefix = append(tree.Prefix, "")
	}
	for {
		switch tok := p.peek(); tok.Kind {
		case token.Star:
			p.advance()
			tree.Kind = ast.UseGlob
			tree.Sp = p.spanFrom(start)
			return tree
		case token.LBrace:
			tree.Kind = ast.UseGroup
			tree.Children = p.parseUseGroup()
			tree.Sp = p.spanFrom(start)
			return tree
		case token.Ident, token.KwSelfValue, token.KwSuper, token.KwCrate, token.KwSelfType:
			p.advance()
			tree.Prefix = append(tree.Prefix, tok.Text)
		default:
			p.err(diag.SynExpectIdentifier, p.diagSpan(), "expected identifier, `*` or `{` in use path, found "+describe(tok))
			tree.Sp = p.spanFrom(start)
			return tree
		}
		if !p.eat(token.ColonColon) {
			break
		}
	}
	if p.eat(token.KwAs) {
		if p.at(token.Underscore) {
			p.advance()
			tree.Alias = "_"
		} else {
			alias, _ := p.expectIdent()
			tree.Alias = alias.Text
		}
	}
	tree.Sp = p.spanFrom(start)
	return tree
}

func (p *Parser) parseUseGroup() []*ast.UseTree {
	p.advance() // {
	var children []*ast.UseTree
	for !p.atAny(token.RBrace, token.EOF) {
		before := p.pos
		children = append(children, p.parseUseTree())
		if !p.eat(token.Comma) {
			break
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected `,` or `}` in use group, found "+describe(p.peek()))
	return children
}
