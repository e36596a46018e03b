// Package signature parses endpoint request/response signatures into
// typed shapes and derives the flattened input/output parameter lists
// used by the simple JSON form.
package signature

import (
	"fmt"
	"strings"

	"github.com/simal-lang/simal/ast"
)

// ParseSignature parses a signature string into its shape: a tuple for
// `( name: T, ... )`, otherwise a single type expression such as
// `User{name: str}?` or `JSON{uuid: str?, error: str?}`. An empty
// string yields a nil shape and no error. Unbalanced or trailing input
// is an error; callers keep the raw string in that case.
func ParseSignature(s string) (ast.Shape, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	p := &sigParser{text: s}
	return p.parseSignature()
}

type sigParser struct {
	text string
	i    int
}

func (p *sigParser) peek() byte {
	if p.i < len(p.text) {
		return p.text[p.i]
	}
	return 0
}

func (p *sigParser) advance() byte {
	ch := p.peek()
	if ch != 0 {
		p.i++
	}
	return ch
}

func (p *sigParser) skipWS() {
	for {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.i++
		default:
			return
		}
	}
}

func (p *sigParser) errf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func (p *sigParser) parseIdent() (string, error) {
	p.skipWS()
	start := p.i
	for p.i < len(p.text) && isWordByte(p.text[p.i]) {
		p.i++
	}
	if p.i == start {
		return "", p.errf("expected identifier at pos %d in %q", p.i, p.text)
	}
	return p.text[start:p.i], nil
}

func (p *sigParser) parseSignature() (ast.Shape, error) {
	p.skipWS()
	if p.peek() == '(' {
		return p.parseTuple()
	}
	t, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	if p.i != len(p.text) {
		return nil, p.errf("unexpected trailing content at pos %d: %s", p.i, p.text[p.i:])
	}
	return t, nil
}

func (p *sigParser) parseTuple() (*ast.TupleSig, error) {
	p.skipWS()
	if p.advance() != '(' {
		return nil, p.errf("expected '('")
	}
	var params []ast.ShapeField
	for {
		p.skipWS()
		if p.peek() == ')' || p.peek() == 0 {
			break
		}
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		p.skipWS()
		if p.peek() == ',' {
			p.advance()
		}
	}
	if p.advance() != ')' {
		return nil, p.errf("expected ')' at end of tuple")
	}
	p.skipWS()
	if p.i != len(p.text) {
		return nil, p.errf("trailing content after tuple")
	}
	return &ast.TupleSig{Params: params}, nil
}

// parseParam parses `name: TypeExpr` or the bare `name Type` form.
func (p *sigParser) parseParam() (ast.ShapeField, error) {
	p.skipWS()
	name, err := p.parseIdent()
	if err != nil {
		return ast.ShapeField{}, err
	}
	p.skipWS()
	if p.peek() == ':' {
		p.advance()
		t, err := p.parseTypeExpr()
		if err != nil {
			return ast.ShapeField{}, err
		}
		return ast.ShapeField{Name: name, Type: t}, nil
	}
	typeName, err := p.parseIdent()
	if err != nil {
		return ast.ShapeField{}, err
	}
	return ast.ShapeField{Name: name, Type: &ast.TypeExpr{Base: typeName}}, nil
}

// parseTypeExpr parses `Base`, `Base<...>`, `Base[...]`, an optional
// `{...}` object shape, and an optional trailing '?'. An anonymous
// object `{...}` has an empty base.
func (p *sigParser) parseTypeExpr() (*ast.TypeExpr, error) {
	p.skipWS()
	var base string
	if p.peek() != '{' {
		var err error
		base, err = p.parseIdent()
		if err != nil {
			return nil, err
		}
		for {
			p.skipWS()
			switch p.peek() {
			case '<':
				suffix, err := p.parseBalanced('<', '>')
				if err != nil {
					return nil, err
				}
				base += suffix
				continue
			case '[':
				suffix, err := p.parseBalanced('[', ']')
				if err != nil {
					return nil, err
				}
				base += suffix
				continue
			}
			break
		}
	}

	var fields []ast.ShapeField
	p.skipWS()
	if p.peek() == '{' {
		fs, err := p.parseObjectFields()
		if err != nil {
			return nil, err
		}
		fields = fs
		p.skipWS()
	}
	optional := false
	if p.peek() == '?' {
		p.advance()
		optional = true
	}
	return &ast.TypeExpr{Base: base, Fields: fields, Optional: optional}, nil
}

// parseBalanced consumes a balanced bracket group and returns its text
// with the whitespace the tokenizer inserted after openers and before
// closers squeezed out ("map < int, Todo >" becomes "map<int, Todo>").
func (p *sigParser) parseBalanced(open, close byte) (string, error) {
	p.skipWS()
	if p.peek() != open {
		return "", nil
	}
	start := p.i
	depth := 0
	for p.peek() != 0 {
		ch := p.advance()
		if ch == open {
			depth++
		} else if ch == close {
			depth--
			if depth == 0 {
				return compactBracketWS(p.text[start:p.i]), nil
			}
		}
	}
	return "", p.errf("unclosed %c%c in %q", open, close, p.text)
}

func compactBracketWS(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '<' || ch == '[' {
			b.WriteByte(ch)
			for i+1 < len(s) && (s[i+1] == ' ' || s[i+1] == '\t') {
				i++
			}
			continue
		}
		if ch == ' ' || ch == '\t' {
			j := i
			for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
				j++
			}
			if j < len(s) && (s[j] == '>' || s[j] == ']') {
				i = j - 1
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// parseObjectFields parses `{ name: TypeExpr, ... }`, also accepting
// the `name Type` and `name Type?` forms. Commas and whitespace both
// separate fields.
func (p *sigParser) parseObjectFields() ([]ast.ShapeField, error) {
	if p.advance() != '{' {
		return nil, p.errf("expected '{'")
	}
	var fields []ast.ShapeField
	for {
		p.skipWS()
		if p.peek() == '}' {
			p.advance()
			return fields, nil
		}
		if p.peek() == 0 {
			return nil, p.errf("unclosed '{'")
		}
		name, err := p.parseIdent()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		var t *ast.TypeExpr
		if p.peek() == ':' {
			p.advance()
			t, err = p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
		} else {
			typeName, err := p.parseIdent()
			if err != nil {
				return nil, err
			}
			optional := false
			p.skipWS()
			if p.peek() == '?' {
				p.advance()
				optional = true
			}
			t = &ast.TypeExpr{Base: typeName, Optional: optional}
		}
		fields = append(fields, ast.ShapeField{Name: name, Type: t})
		p.skipWS()
		if p.peek() == ',' {
			p.advance()
		}
	}
}

// Params flattens a parsed shape into named parameters. A tuple or an
// object shape contributes one parameter per field; a bare type
// contributes a single unnamed parameter.
func Params(shape ast.Shape) []ast.Param {
	switch shape := shape.(type) {
	case *ast.TupleSig:
		return fieldsToParams(shape.Params)
	case *ast.TypeExpr:
		if len(shape.Fields) > 0 {
			return fieldsToParams(shape.Fields)
		}
		return []ast.Param{{Type: shape.Base, Optional: shape.Optional}}
	}
	return nil
}

func fieldsToParams(fields []ast.ShapeField) []ast.Param {
	if len(fields) == 0 {
		return nil
	}
	params := make([]ast.Param, 0, len(fields))
	for _, f := range fields {
		params = append(params, ast.Param{
			Name:     f.Name,
			Type:     f.Type.Base,
			Optional: f.Type.Optional,
			Fields:   fieldsToParams(f.Type.Fields),
		})
	}
	return params
}
