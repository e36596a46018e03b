package signature

import (
	"strings"

	"github.com/simal-lang/simal/ast"
	"github.com/simal-lang/simal/reporter"
	"github.com/simal-lang/simal/walk"
)

// Enrich runs the structural signature parse over every endpoint in the
// system, filling shapes, inputs, and outputs. Failures are non-fatal:
// the affected side keeps only its raw string, and a warning is sent to
// the handler when one is supplied.
func Enrich(filename string, sys *ast.System, h *reporter.Handler) {
	warn := func(ep *ast.Endpoint, err error) {
		if h != nil {
			h.HandleWarningf(ast.UnknownPos(filename),
				"endpoint %q: signature not enriched: %v", ep.Method, err)
		}
	}

	_ = walk.Endpoints(sys, func(ep *ast.Endpoint) error {
		reqShape, err := ParseSignature(ep.Request)
		if err != nil {
			warn(ep, err)
		} else {
			ep.RequestShape = reqShape
		}
		respShape, err := ParseSignature(ep.Response)
		if err != nil {
			warn(ep, err)
		} else {
			ep.ResponseShape = respShape
		}

		switch ep.Style {
		case ast.EndpointHTTP:
			ep.Inputs = mergeInputs(pathInputs(ep.Path), Params(ep.RequestShape))
		case ast.EndpointGRPC:
			ep.Inputs = objectParams(ep.RequestShape)
		}
		ep.Outputs = Params(ep.ResponseShape)
		return nil
	})
}

// objectParams is Params restricted to object and tuple shapes: a bare
// type carries no named request fields and yields no inputs.
func objectParams(shape ast.Shape) []ast.Param {
	if t, ok := shape.(*ast.TypeExpr); ok && len(t.Fields) == 0 {
		return nil
	}
	return Params(shape)
}

// pathInputs extracts every {placeholder} in an HTTP path as a
// string-typed parameter.
func pathInputs(path string) []ast.Param {
	var params []ast.Param
	for i := 0; i < len(path); i++ {
		if path[i] != '{' {
			continue
		}
		end := strings.IndexByte(path[i:], '}')
		if end < 0 {
			break
		}
		if name := path[i+1 : i+end]; name != "" {
			params = append(params, ast.Param{Name: name, Type: "str"})
		}
		i += end
	}
	return params
}

// mergeInputs puts path placeholders first, then body fields. A
// placeholder whose name also appears in the body is dropped in favor
// of the body field.
func mergeInputs(pathParams, bodyParams []ast.Param) []ast.Param {
	if len(bodyParams) == 0 {
		return pathParams
	}
	byName := make(map[string]bool, len(bodyParams))
	for _, p := range bodyParams {
		byName[p.Name] = true
	}
	var merged []ast.Param
	for _, p := range pathParams {
		if !byName[p.Name] {
			merged = append(merged, p)
		}
	}
	return append(merged, bodyParams...)
}

// EnrichMethods derives Inputs and Outputs for every method from its
// raw Go-style params and returns strings.
func EnrichMethods(sys *ast.System) {
	_ = walk.Methods(sys, func(m *ast.Method) error {
		m.Inputs = parseParamList(m.Params)
		m.Outputs = parseReturns(m.Returns)
		return nil
	})
}

// splitTopLevelCommas splits on commas that are not nested inside
// (), [], {}, or <>.
func splitTopLevelCommas(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var parts []string
	var buf strings.Builder
	var parens, bracks, braces, angles int
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '(':
			parens++
		case ')':
			if parens > 0 {
				parens--
			}
		case '[':
			bracks++
		case ']':
			if bracks > 0 {
				bracks--
			}
		case '{':
			braces++
		case '}':
			if braces > 0 {
				braces--
			}
		case '<':
			angles++
		case '>':
			if angles > 0 {
				angles--
			}
		}
		if ch == ',' && parens == 0 && bracks == 0 && braces == 0 && angles == 0 {
			if part := strings.TrimSpace(buf.String()); part != "" {
				parts = append(parts, part)
			}
			buf.Reset()
			continue
		}
		buf.WriteByte(ch)
	}
	if tail := strings.TrimSpace(buf.String()); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

// splitTopLevelColon splits `name: type` at the first colon that is not
// nested inside (), [], {}, or <>. The second result reports whether a
// colon was found.
func splitTopLevelColon(s string) (string, string, bool) {
	var parens, bracks, braces, angles int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			parens++
		case ')':
			if parens > 0 {
				parens--
			}
		case '[':
			bracks++
		case ']':
			if bracks > 0 {
				bracks--
			}
		case '{':
			braces++
		case '}':
			if braces > 0 {
				braces--
			}
		case '<':
			angles++
		case '>':
			if angles > 0 {
				angles--
			}
		case ':':
			if parens == 0 && bracks == 0 && braces == 0 && angles == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return "", "", false
}

var typePrefixes = []string{"[]", "*", "&", "..."}

// normalizeNameType repairs Go-style splits where a prefix like `[]`,
// `*`, `&`, or `...` got attached to the name instead of the type.
func normalizeNameType(name, typ string) (string, string) {
	name = strings.TrimSpace(name)
	typ = strings.TrimSpace(typ)
	for _, tok := range typePrefixes {
		if name == tok && typ != "" {
			name = ""
			typ = tok + typ
			break
		}
	}
	for _, tok := range typePrefixes {
		if strings.HasSuffix(name, tok) && name != tok {
			name = strings.TrimSpace(strings.TrimSuffix(name, tok))
			if typ != "" {
				typ = tok + typ
			} else {
				typ = tok
			}
		}
	}
	for _, tok := range typePrefixes {
		if strings.HasPrefix(typ, tok+" ") {
			typ = tok + typ[len(tok)+1:]
		}
	}
	return name, typ
}

// parseParamList parses a Go-style parameter list such as
// `uuid string, opts ...Option` or `a, b int`, including the
// colon-separated `name: type` form.
func parseParamList(params string) []ast.Param {
	segments := splitTopLevelCommas(params)
	var pending []string
	var out []ast.Param

	emit := func(names []string, typ string) {
		for _, name := range names {
			out = append(out, ast.Param{Name: name, Type: typ})
		}
	}

	for _, seg := range segments {
		if name, typ, ok := splitTopLevelColon(seg); ok {
			if len(pending) > 0 {
				emit(pending, typ)
				pending = nil
			}
			emit([]string{name}, typ)
			continue
		}

		if strings.ContainsAny(seg, " \t") {
			lastSpace := strings.LastIndexByte(strings.TrimRight(seg, " \t"), ' ')
			var name, typ string
			if lastSpace >= 0 {
				name = strings.TrimSpace(seg[:lastSpace])
				typ = strings.TrimSpace(seg[lastSpace+1:])
			} else {
				typ = strings.TrimSpace(seg)
			}
			name, typ = normalizeNameType(name, typ)

			names := pending
			pending = nil
			if name != "" {
				names = append(names, name)
			}
			if len(names) == 0 {
				names = []string{""}
			}
			emit(names, typ)
		} else {
			// a bare name grouped with a later type, as in `a, b int`
			pending = append(pending, seg)
		}
	}
	for _, name := range pending {
		out = append(out, ast.Param{Name: name})
	}
	return out
}

// parseReturns parses a Go-style return signature: a single type, a
// parenthesized tuple, or `name: type` pairs.
func parseReturns(returns string) []ast.Param {
	s := strings.TrimSpace(returns)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	segments := splitTopLevelCommas(s)
	if len(segments) == 0 {
		segments = []string{s}
	}

	var out []ast.Param
	for _, seg := range segments {
		if name, typ, ok := splitTopLevelColon(seg); ok {
			out = append(out, ast.Param{Name: name, Type: typ})
			continue
		}
		if strings.ContainsAny(seg, " \t") {
			lastSpace := strings.LastIndexByte(strings.TrimRight(seg, " \t"), ' ')
			var name, typ string
			if lastSpace >= 0 {
				name = strings.TrimSpace(seg[:lastSpace])
				typ = strings.TrimSpace(seg[lastSpace+1:])
			} else {
				typ = seg
			}
			name, typ = normalizeNameType(name, typ)
			out = append(out, ast.Param{Name: name, Type: typ})
		} else {
			out = append(out, ast.Param{Type: seg})
		}
	}
	return out
}
