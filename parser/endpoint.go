package parser

import (
	"strings"

	"github.com/simal-lang/simal/ast"
)

// httpVerbs are the upper-case verbs that select the HTTP endpoint
// grammar; anything else routes through the RPC grammar (including
// lowercase verbs, deliberately).
var httpVerbs = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// collectEndpointTokens gathers the tokens of one endpoint logical
// line: everything up to a top-level comma or newline, or the closing
// bracket of the endpoints list. Separators inside (), {}, or [] do not
// end the line.
func (p *parser) collectEndpointTokens() []token {
	var tokens []token
	depth := 0
	for {
		tok := p.cur()
		if tok.typ == tokenEOF {
			break
		}
		switch tok.typ {
		case tokenLBracket, tokenLParen, tokenLBrace:
			depth++
			tokens = append(tokens, tok)
			p.advance()
			continue
		case tokenRBracket, tokenRParen, tokenRBrace:
			if depth > 0 {
				depth--
				tokens = append(tokens, tok)
				p.advance()
				continue
			}
			if tok.typ == tokenRBracket {
				// the endpoints list is closing
				return tokens
			}
			// a stray closer is kept as data
			tokens = append(tokens, tok)
			p.advance()
			continue
		}
		if depth == 0 && (tok.typ == tokenComma || tok.typ == tokenNewline) {
			return tokens
		}
		tokens = append(tokens, tok)
		p.advance()
	}
	return tokens
}

// parseEndpointTokens interprets one collected line as an HTTP or RPC
// endpoint.
func (p *parser) parseEndpointTokens(tokens []token, anns []*ast.Annotation) (*ast.Endpoint, error) {
	raw := compactTokens(tokens)

	s := &tokenScanner{tokens: tokens}
	s.skipNewlines()
	first := s.cur()

	if first.typ == tokenIdent && httpVerbs[first.value] {
		return p.parseHTTPEndpoint(s, raw, anns)
	}
	return p.parseRPCEndpoint(s, raw, anns)
}

func (p *parser) parseHTTPEndpoint(s *tokenScanner, raw string, anns []*ast.Annotation) (*ast.Endpoint, error) {
	verb := s.advance()
	s.skipNewlines()

	// up to the arrow, split the path from the optional request
	// signature: the request begins at a JSON tag or at a '{' that is
	// not a path placeholder (placeholder braces directly follow a
	// path segment ending in '/')
	var pathTokens, bodyTokens []token
	seenBody := false
	for s.cur().typ != tokenArrow && s.cur().typ != tokenEOF {
		t := s.cur()
		if !seenBody {
			if t.typ == tokenIdent && t.value == "JSON" {
				seenBody = true
			} else if t.typ == tokenLBrace && !strings.HasSuffix(s.prevValue(), "/") {
				seenBody = true
			}
		}
		if seenBody {
			bodyTokens = append(bodyTokens, t)
		} else {
			pathTokens = append(pathTokens, t)
		}
		s.advance()
	}
	if s.cur().typ != tokenArrow {
		return nil, p.errf(verb, "endpoint %s %s missing \"->\"", verb.value, compactTokens(pathTokens))
	}
	s.advance()
	s.skipNewlines()

	respTokens, attrTokens := splitTrailingAttrs(s.rest())

	attrs, err := p.parseEndpointAttrs(attrTokens)
	if err != nil {
		return nil, err
	}
	return &ast.Endpoint{
		Style:       ast.EndpointHTTP,
		Method:      verb.value,
		Path:        compactTokens(pathTokens),
		Request:     compactTokens(bodyTokens),
		Response:    compactTokens(respTokens),
		Raw:         raw,
		Attributes:  attrs,
		Annotations: anns,
	}, nil
}

func (p *parser) parseRPCEndpoint(s *tokenScanner, raw string, anns []*ast.Annotation) (*ast.Endpoint, error) {
	first := s.cur()
	if first.typ != tokenIdent {
		return nil, p.errf(first, "invalid endpoint line: expected rpc name or HTTP verb, got %s", first.describe())
	}
	name := s.advance()
	s.skipNewlines()

	var requestTokens []token
	if s.cur().typ == tokenLParen {
		s.advance()
		depth := 1
		for depth > 0 && s.cur().typ != tokenEOF {
			t := s.advance()
			switch t.typ {
			case tokenLParen:
				depth++
			case tokenRParen:
				depth--
				if depth == 0 {
					continue
				}
			}
			if depth > 0 {
				requestTokens = append(requestTokens, t)
			}
		}
	}
	s.skipNewlines()

	// a lowercase verb line like `get /x -> y` routes through here; its
	// arrow sits later in the line and the whole remainder becomes the
	// response. Only a line with no arrow at all is an error.
	sawArrow := s.cur().typ == tokenArrow
	if sawArrow {
		s.advance()
		s.skipNewlines()
	} else if !containsArrow(s.tokens[s.pos:]) {
		return nil, p.errf(first, "endpoint %q missing \"->\"", name.value)
	}

	var response string
	var attrTokens []token
	if sawArrow && s.cur().typ == tokenLParen {
		s.advance()
		var respTokens []token
		depth := 1
		for depth > 0 && s.cur().typ != tokenEOF {
			t := s.advance()
			switch t.typ {
			case tokenLParen:
				depth++
			case tokenRParen:
				depth--
				if depth == 0 {
					continue
				}
			}
			if depth > 0 {
				respTokens = append(respTokens, t)
			}
		}
		response = "(" + compactTokens(respTokens) + ")"
		s.skipNewlines()
		_, attrTokens = splitTrailingAttrs(s.rest())
	} else {
		var respTokens []token
		respTokens, attrTokens = splitTrailingAttrs(s.rest())
		response = compactTokens(respTokens)
	}

	attrs, err := p.parseEndpointAttrs(attrTokens)
	if err != nil {
		return nil, err
	}
	return &ast.Endpoint{
		Style:       ast.EndpointGRPC,
		Method:      name.value,
		Request:     compactTokens(requestTokens),
		Response:    response,
		Raw:         raw,
		Attributes:  attrs,
		Annotations: anns,
	}, nil
}

func containsArrow(tokens []token) bool {
	for _, t := range tokens {
		if t.typ == tokenArrow {
			return true
		}
	}
	return false
}

// splitTrailingAttrs splits a trailing top-level `[ ... ]` attribute
// block off the end of the token run. If the run does not end with such
// a block, everything belongs to the first half.
func splitTrailingAttrs(tokens []token) (rest, attrs []token) {
	end := len(tokens)
	for end > 0 && tokens[end-1].typ == tokenNewline {
		end--
	}
	if end == 0 || tokens[end-1].typ != tokenRBracket {
		return tokens, nil
	}
	depth := 0
	for i := end - 1; i >= 0; i-- {
		switch tokens[i].typ {
		case tokenRBracket:
			depth++
		case tokenLBracket:
			depth--
			if depth == 0 {
				return tokens[:i], tokens[i:end]
			}
		}
	}
	return tokens, nil
}

// parseEndpointAttrs parses a `[k: v, ...]` block into an ordered map
// of string attributes. The tokens include the surrounding brackets;
// nil means no block was present.
func (p *parser) parseEndpointAttrs(tokens []token) (*ast.Map, error) {
	m := ast.NewMap()
	if len(tokens) == 0 {
		return m, nil
	}
	inner := tokens[1:]
	if last := len(inner) - 1; last >= 0 && inner[last].typ == tokenRBracket {
		inner = inner[:last]
	}

	var keyParts, valParts []string
	var keyTok token
	readingKey := true
	flush := func() error {
		key := strings.TrimSpace(strings.Join(keyParts, " "))
		val := strings.TrimSpace(strings.Join(valParts, " "))
		keyParts, valParts = keyParts[:0], valParts[:0]
		readingKey = true
		if key == "" {
			return nil
		}
		return p.addAttr(m, &ast.Attribute{Key: key, Value: ast.Scalar(val)}, keyTok)
	}
	for _, t := range inner {
		switch {
		case t.typ == tokenColon && readingKey:
			readingKey = false
		case t.typ == tokenComma:
			if err := flush(); err != nil {
				return nil, err
			}
		case t.typ == tokenNewline:
			// newlines inside the block are soft separators
			continue
		default:
			if readingKey {
				if len(keyParts) == 0 {
					keyTok = t
				}
				keyParts = append(keyParts, t.value)
			} else {
				valParts = append(valParts, t.value)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return m, nil
}

// tokenScanner is a cursor over an already-collected token slice.
type tokenScanner struct {
	tokens []token
	pos    int
	prev   string
}

func (s *tokenScanner) cur() token {
	if s.pos < len(s.tokens) {
		return s.tokens[s.pos]
	}
	return token{typ: tokenEOF}
}

func (s *tokenScanner) advance() token {
	t := s.cur()
	if s.pos < len(s.tokens) {
		s.pos++
		s.prev = t.value
	}
	return t
}

// prevValue is the text of the most recently consumed token.
func (s *tokenScanner) prevValue() string { return s.prev }

func (s *tokenScanner) skipNewlines() {
	for s.cur().typ == tokenNewline {
		s.advance()
	}
}

func (s *tokenScanner) rest() []token {
	r := s.tokens[s.pos:]
	s.pos = len(s.tokens)
	return r
}

// compactTokens joins token texts without extra spaces around
// punctuation, reconstructing strings like
// "GET /users/{id} -> JSON{user: User}" from their tokens.
func compactTokens(tokens []token) string {
	var parts []string
	for _, t := range tokens {
		v := t.value
		if len(parts) == 0 {
			if v != "" {
				parts = append(parts, v)
			}
			continue
		}
		prev := parts[len(parts)-1]
		switch {
		case stickLeft(v):
			parts[len(parts)-1] = strings.TrimRight(prev, " ") + v
		case v == "/" && strings.HasSuffix(prev, "}"):
			// path segment continuing after a {placeholder}
			parts[len(parts)-1] = prev + v
		case isOpener(v) && endsAlnum(prev):
			parts[len(parts)-1] = prev + v
		case endsSticky(prev):
			parts[len(parts)-1] = prev + v
		default:
			parts = append(parts, " "+v)
		}
	}
	return strings.Join(parts, "")
}

func stickLeft(v string) bool {
	switch v {
	case ")", "]", "}", ",", ":", ";", "?":
		return true
	}
	return false
}

func isOpener(v string) bool {
	switch v {
	case "(", "[", "{":
		return true
	}
	return false
}

func endsAlnum(s string) bool {
	if s == "" {
		return false
	}
	b := s[len(s)-1]
	return b == '_' || (b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func endsSticky(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '(', '[', '{', '/', '.':
		return true
	}
	return false
}
