package parser

import (
	"strings"

	"rectify/internal/ast"
	"rectify/internal/diag"
	"rectify/internal/token"
)

// parseOuterAttrs parses #[...] attributes preceding an item, field or statement.
func (p *Parser) parseOuterAttrs() []*ast.Attr {
	var attrs []*ast.Attr
	for p.at(token.Pound) && p.peekN(1).Kind == token.LBracket {
		attrs = append(attrs, p.parseAttr(false))
	}
	return attrs
}

// parseInnerAttrs parses #![...] attributes at the top of a file, module or block.
func (p *Parser) parseInnerAttrs() []*ast.Attr {
	var attrs []*ast.Attr
	for p.at(token.Pound) && p.peekN(1).Kind == token.Bang && p.peekN(2).Kind == token.LBracket {
		attrs = append(attrs, p.parseAttr(true))
	}
	return attrs
}

func (p *Parser) parseAttr(inner bool) *ast.Attr {
	start := p.advance().Span // #
	if inner {
		p.advance() // !
	}
	attr := &ast.Attr{Inner: inner}
	openIdx := p.pos
	p.advance() // [
	var path strings.Builder
	for p.atAny(token.Ident, token.ColonColon, token.KwCrate, token.KwSelfValue, token.KwSuper, token.KwUnsafe) {
		path.WriteString(p.advance().Text)
	}
	attr.Path = path.String()
	if attr.Path == "" {
		p.err(diag.SynExpectIdentifier, p.diagSpan(), "expected attribute path")
	}
	switch {
	case p.at(token.LParen):
		o, c := p.skipTokenTree()
		attr.Args = p.textBetween(o, c)
	case p.at(token.Assign):
		argStart := p.pos
		for !p.atAny(token.RBracket, token.EOF) {
			if p.peek().IsOpenDelim() {
				p.skipTokenTree()
				continue
			}
			p.advance()
		}
		attr.Args = strings.TrimSpace(p.textBetween(argStart, p.pos))
	}
	if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected `]` to close attribute"); !ok {
		p.pos = openIdx
		p.skipTokenTree()
	}
	attr.Sp = p.spanFrom(start)
	return attr
}
