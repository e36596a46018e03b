package parser

import (
	"strings"

	"github.com/simal-lang/simal/ast"
)

var visibilityMarkers = map[string]ast.Visibility{
	"+": ast.VisibilityPublic,
	"-": ast.VisibilityPrivate,
	"#": ast.VisibilityProtected,
}

// parseList parses `[ ... ]`. The item grammar depends on the key of
// the surrounding attribute: components, fields, methods, and endpoints
// lists use specialized item parsers; everything else falls through to
// the generic map/scalar item rules.
func (p *parser) parseList(contextKey string) (*ast.List, error) {
	lbrack, err := p.eat(tokenLBracket)
	if err != nil {
		return nil, err
	}

	list := &ast.List{}
	for {
		p.skipNewlines()
		if p.cur().typ == tokenRBracket {
			break
		}
		if p.cur().typ == tokenEOF {
			return nil, p.errf(lbrack, "unexpected EOF inside list: missing ']'")
		}

		anns, err := p.parseAnnotations()
		if err != nil {
			return nil, err
		}
		if p.cur().typ == tokenRBracket {
			if len(anns) > 0 {
				return nil, p.errf(p.cur(), "annotations are not attached to any node")
			}
			break
		}

		switch {
		case contextKey == "methods":
			m, err := p.parseMethodItem(anns)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, m)

		case contextKey == "fields":
			f, err := p.parseFieldItem(anns)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, f)

		case contextKey == "endpoints":
			tokens := p.collectEndpointTokens()
			if len(tokens) > 0 {
				ep, err := p.parseEndpointTokens(tokens, anns)
				if err != nil {
					return nil, err
				}
				list.Items = append(list.Items, ep)
			}

		case contextKey == "components" && p.cur().typ == tokenIdent &&
			p.peek(1).typ == tokenIdent && p.peek(2).typ == tokenLBrace:
			kindTok := p.advance()
			blk, err := p.parseComponentBlock(kindTok.value, kindTok, anns)
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, blk)

		case p.cur().typ == tokenLBrace:
			m, err := p.parseMap()
			if err != nil {
				return nil, err
			}
			if len(anns) > 0 {
				// wrap the element so its annotations survive
				list.Items = append(list.Items, &ast.Attribute{Value: m, Annotations: anns})
			} else {
				list.Items = append(list.Items, m)
			}

		default:
			if s := p.collectListScalar(); s != "" {
				list.Items = append(list.Items, ast.Scalar(s))
			}
		}

		if p.cur().typ == tokenComma {
			p.advance()
		}
		p.skipNewlines()
	}
	if _, err := p.eat(tokenRBracket); err != nil {
		return nil, err
	}
	p.skipNewlines()
	return list, nil
}

// parseComponentBlock parses `kind Name { ... }`; the kind identifier
// has already been consumed by the caller.
func (p *parser) parseComponentBlock(kind string, kindTok token, anns []*ast.Annotation) (*ast.Block, error) {
	if kind == "service" {
		return nil, p.errf(kindTok, `"service" cannot be used as a component kind`)
	}
	nameTok, err := p.eat(tokenIdent)
	if err != nil {
		return nil, err
	}
	attrs, err := p.parseMapBody()
	if err != nil {
		return nil, err
	}
	return &ast.Block{
		Kind:        kind,
		Name:        nameTok.value,
		Attributes:  attrs,
		Annotations: anns,
	}, nil
}

// parseFieldItem parses one item of a `fields` list:
// [+|-|#] Name : Type
func (p *parser) parseFieldItem(anns []*ast.Annotation) (*ast.Field, error) {
	p.skipNewlines()

	vis := ast.VisibilityNone
	if t := p.cur(); t.typ == tokenIdent {
		if v, ok := visibilityMarkers[t.value]; ok {
			vis = v
			p.advance()
		}
	}

	nameTok, err := p.eat(tokenIdent)
	if err != nil {
		return nil, err
	}
	if t := p.cur(); t.typ != tokenColon {
		return nil, p.errf(t, "expected ':' after field %q, got %s", nameTok.value, t.describe())
	}
	p.advance()

	typ := strings.TrimSpace(strings.Join(p.collectFieldType(), " "))
	p.skipNewlines()

	return &ast.Field{
		Visibility:  vis,
		Name:        nameTok.value,
		Type:        typ,
		Annotations: anns,
	}, nil
}

// collectFieldType gathers the type tokens of a field. Besides the
// usual item terminators it stops where the next field visibly begins
// (a visibility marker or an identifier directly followed by a colon),
// so fields may be separated by whitespace alone.
func (p *parser) collectFieldType() []string {
	var parts []string
	var brackets, parens, braces, angles int
	for {
		tok := p.cur()
		if tok.typ == tokenEOF {
			return parts
		}
		if brackets == 0 && parens == 0 && braces == 0 && angles == 0 {
			switch tok.typ {
			case tokenComma, tokenNewline, tokenRBracket:
				return parts
			}
			if tok.typ == tokenIdent && len(parts) > 0 {
				if _, marker := visibilityMarkers[tok.value]; marker &&
					p.peek(1).typ == tokenIdent && p.peek(2).typ == tokenColon {
					return parts
				}
				if !startsWithMarker(tok.value) && p.peek(1).typ == tokenColon {
					return parts
				}
			}
		}
		parts = append(parts, tok.value)
		p.advance()

		switch tok.typ {
		case tokenLBracket:
			brackets++
		case tokenRBracket:
			if brackets > 0 {
				brackets--
			}
		case tokenLParen:
			parens++
		case tokenRParen:
			if parens > 0 {
				parens--
			}
		case tokenLBrace:
			braces++
		case tokenRBrace:
			if braces > 0 {
				braces--
			}
		case tokenIdent:
			if tok.value == "<" {
				angles++
			} else if tok.value == ">" && angles > 0 {
				angles--
			}
		}
	}
}

func startsWithMarker(s string) bool {
	_, ok := visibilityMarkers[s]
	return ok
}

// parseMethodItem parses one item of a `methods` list:
// [+|-|#] Name ( params ) -> returns [ { attributes } ]
func (p *parser) parseMethodItem(anns []*ast.Annotation) (*ast.Method, error) {
	p.skipNewlines()

	vis := ast.VisibilityNone
	if t := p.cur(); t.typ == tokenIdent {
		if v, ok := visibilityMarkers[t.value]; ok {
			vis = v
			p.advance()
		}
	}

	nameTok, err := p.eat(tokenIdent)
	if err != nil {
		return nil, err
	}
	name := nameTok.value

	if t := p.cur(); t.typ != tokenLParen {
		return nil, p.errf(t, "method %q missing parameter list, got %s", name, t.describe())
	}
	p.advance()

	var paramParts []string
	depth := 1
	for depth > 0 {
		t := p.cur()
		switch t.typ {
		case tokenEOF:
			return nil, p.errf(t, "unclosed parameter list in method %q", name)
		case tokenLParen:
			depth++
			paramParts = append(paramParts, t.value)
		case tokenRParen:
			depth--
			if depth == 0 {
				p.advance()
				continue
			}
			paramParts = append(paramParts, t.value)
		default:
			paramParts = append(paramParts, t.value)
		}
		if depth > 0 {
			p.advance()
		}
	}
	params := strings.TrimSpace(strings.Join(paramParts, " "))

	p.skipNewlines()
	if t := p.cur(); t.typ != tokenArrow {
		return nil, p.errf(t, `method %q missing "->" before return type, got %s`, name, t.describe())
	}
	p.advance()
	p.skipNewlines()

	retParts := p.collectUntil(tokenLBrace, tokenComma, tokenRBracket, tokenNewline)
	returns := strings.TrimSpace(strings.Join(retParts, " "))

	p.skipNewlines()
	attrs := ast.NewMap()
	if p.cur().typ == tokenLBrace {
		attrs, err = p.parseMapBody()
		if err != nil {
			return nil, err
		}
	}

	return &ast.Method{
		Visibility:  vis,
		Name:        name,
		Params:      params,
		Returns:     returns,
		Attributes:  attrs,
		Annotations: anns,
	}, nil
}

// collectListScalar gathers a generic list item: token texts up to the
// next top-level comma, newline, or the list's closing bracket, joined
// by single spaces.
func (p *parser) collectListScalar() string {
	var parts []string
	var brackets, parens, braces int
	for {
		tok := p.cur()
		if tok.typ == tokenEOF {
			break
		}

		switch tok.typ {
		case tokenLBracket:
			brackets++
		case tokenRBracket:
			if brackets > 0 {
				brackets--
			} else if parens == 0 && braces == 0 {
				// end of the surrounding list
				return strings.TrimSpace(strings.Join(parts, " "))
			}
		case tokenLParen:
			parens++
		case tokenRParen:
			if parens > 0 {
				parens--
			}
		case tokenLBrace:
			braces++
		case tokenRBrace:
			if braces > 0 {
				braces--
			}
		}

		if brackets == 0 && parens == 0 && braces == 0 &&
			(tok.typ == tokenComma || tok.typ == tokenNewline) {
			break
		}

		parts = append(parts, tok.value)
		p.advance()
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
