package parser

import (
	"strings"

	"github.com/simal-lang/simal/ast"
	"github.com/simal-lang/simal/reporter"
	"github.com/simal-lang/simal/signature"
)

// Option adjusts parser behavior.
type Option func(*parseOptions)

type parseOptions struct {
	mergeDuplicates bool
	skipEnrichment  bool
	rep             reporter.Reporter
}

// MergeDuplicateKeys makes repeated attribute keys merge instead of
// failing: list values concatenate, map values shallow-merge (the later
// occurrence wins on conflicts), anything else is replaced by the later
// occurrence. Annotations of merged attributes are concatenated.
func MergeDuplicateKeys() Option {
	return func(o *parseOptions) { o.mergeDuplicates = true }
}

// WithoutEnrichment skips the signature enrichment pass, leaving
// endpoints and methods with only their raw signature strings.
func WithoutEnrichment() Option {
	return func(o *parseOptions) { o.skipEnrichment = true }
}

// WithReporter routes errors and warnings through rep. The parse still
// stops at the first error; rep decides which error Parse returns.
func WithReporter(rep reporter.Reporter) Option {
	return func(o *parseOptions) { o.rep = rep }
}

// Parse tokenizes and parses a SiMAL source buffer and returns the
// resulting system. All parse errors are fatal and carry positions; on
// error no AST is returned. Unless disabled, the signature enrichment
// pass runs over the parsed endpoints and methods before returning.
func Parse(filename string, data []byte, opts ...Option) (*ast.System, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}
	handler := reporter.NewHandler(o.rep)

	lex := newLexer(filename, data)
	tokens, err := lex.run()
	if err != nil {
		_ = handler.HandleError(err)
		return nil, handler.Err()
	}

	p := &parser{tokens: tokens, info: lex.info, opts: o}
	sys, err := p.parseSystem()
	if err != nil {
		_ = handler.HandleError(err)
		return nil, handler.Err()
	}

	if !o.skipEnrichment {
		signature.Enrich(filename, sys, handler)
		signature.EnrichMethods(sys)
	}
	return sys, nil
}

type parser struct {
	tokens []token
	pos    int
	info   *ast.FileInfo
	opts   parseOptions
}

func (p *parser) cur() token { return p.peek(0) }

func (p *parser) peek(offset int) token {
	if idx := p.pos + offset; idx < len(p.tokens) {
		return p.tokens[idx]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) advance() token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) errf(tok token, format string, args ...any) error {
	return reporter.Errorf(p.info.SourcePos(tok.offset), format, args...)
}

func (p *parser) eat(typ tokenType) (token, error) {
	tok := p.cur()
	if tok.typ != typ {
		return tok, p.errf(tok, "expected %s, got %s", typ, tok.describe())
	}
	return p.advance(), nil
}

func (p *parser) skipNewlines() {
	for p.cur().typ == tokenNewline {
		p.advance()
	}
}

// parseSystem parses the mandatory top-level `system { ... }` block.
func (p *parser) parseSystem() (*ast.System, error) {
	p.skipNewlines()
	tok := p.cur()
	if tok.typ != tokenIdent || tok.value != "system" {
		return nil, p.errf(tok, "expected 'system' at start of file, got %s", tok.describe())
	}
	p.advance()
	if _, err := p.eat(tokenLBrace); err != nil {
		return nil, err
	}

	sys := &ast.System{Attributes: ast.NewMap()}
	for {
		p.skipNewlines()
		if p.cur().typ == tokenRBrace {
			break
		}
		if p.cur().typ == tokenEOF {
			return nil, p.errf(p.cur(), "unexpected EOF inside system body")
		}

		anns, err := p.parseAnnotations()
		if err != nil {
			return nil, err
		}
		if t := p.cur().typ; t == tokenRBrace || t == tokenEOF {
			if len(anns) > 0 {
				return nil, p.errf(p.cur(), "annotations are not attached to any node")
			}
			continue
		}

		if t := p.cur(); t.typ == tokenIdent && t.value == "service" {
			svc, err := p.parseService(anns)
			if err != nil {
				return nil, err
			}
			sys.Services = append(sys.Services, svc)
			continue
		}

		attr, keyTok, err := p.parseAttribute(anns)
		if err != nil {
			return nil, err
		}
		if err := p.addAttr(sys.Attributes, attr, keyTok); err != nil {
			return nil, err
		}
	}
	if _, err := p.eat(tokenRBrace); err != nil {
		return nil, err
	}
	p.skipNewlines()
	if t := p.cur(); t.typ != tokenEOF {
		return nil, p.errf(t, "unexpected content after system block: %s", t.describe())
	}
	return sys, nil
}

// parseService parses `service Name { ... }`. The leading annotations
// were collected by the caller before the keyword was seen.
func (p *parser) parseService(leading []*ast.Annotation) (*ast.Service, error) {
	p.advance() // 'service'
	nameTok, err := p.eat(tokenIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.eat(tokenLBrace); err != nil {
		return nil, err
	}

	attrs := ast.NewMap()
	for {
		p.skipNewlines()
		if p.cur().typ == tokenRBrace {
			break
		}
		if p.cur().typ == tokenEOF {
			return nil, p.errf(p.cur(), "unexpected EOF inside service %q", nameTok.value)
		}
		attr, keyTok, err := p.parseAttribute(nil)
		if err != nil {
			return nil, err
		}
		if err := p.addAttr(attrs, attr, keyTok); err != nil {
			return nil, err
		}
	}
	if _, err := p.eat(tokenRBrace); err != nil {
		return nil, err
	}
	p.skipNewlines()

	return &ast.Service{
		Name:        nameTok.value,
		Attributes:  attrs,
		Annotations: leading,
	}, nil
}

// parseAnnotations collects zero or more @Name(args) markers. A '@' not
// followed by an identifier is left for the caller to handle as data.
func (p *parser) parseAnnotations() ([]*ast.Annotation, error) {
	var anns []*ast.Annotation
	p.skipNewlines()

	for p.cur().typ == tokenAt {
		if p.peek(1).typ != tokenIdent {
			break
		}
		p.advance() // '@'
		nameTok := p.advance()

		var args []string
		if p.cur().typ == tokenLParen {
			p.advance()
			var err error
			args, err = p.parseAnnotationArgs(nameTok.value)
			if err != nil {
				return nil, err
			}
		}
		p.skipNewlines()
		anns = append(anns, &ast.Annotation{Name: nameTok.value, Args: args})
	}
	return anns, nil
}

// parseAnnotationArgs reads the argument tokens of an annotation,
// splitting on top-level commas. Nesting respects parentheses, braces,
// and brackets. An argument that is a single quoted string keeps
// quotes as part of the argument text; they are always double quotes,
// whichever quote character the source used.
func (p *parser) parseAnnotationArgs(name string) ([]string, error) {
	var args []string
	var cur []token
	parens, braces, brackets := 1, 0, 0
	flush := func() {
		parts := make([]string, 0, len(cur))
		for _, t := range cur {
			parts = append(parts, t.value)
		}
		arg := strings.TrimSpace(strings.Join(parts, " "))
		if len(cur) == 1 && cur[0].typ == tokenString {
			arg = `"` + cur[0].value + `"`
		}
		if arg != "" {
			args = append(args, arg)
		}
		cur = cur[:0]
	}
	for {
		t := p.cur()
		switch t.typ {
		case tokenEOF, tokenNewline:
			return nil, p.errf(t, "unclosed annotation @%s", name)
		case tokenLParen:
			parens++
		case tokenRParen:
			parens--
			if parens == 0 {
				p.advance()
				flush()
				return args, nil
			}
		case tokenLBrace:
			braces++
		case tokenRBrace:
			if braces > 0 {
				braces--
			}
		case tokenLBracket:
			brackets++
		case tokenRBracket:
			if brackets > 0 {
				brackets--
			}
		case tokenComma:
			if parens == 1 && braces == 0 && brackets == 0 {
				p.advance()
				flush()
				continue
			}
		}
		cur = append(cur, t)
		p.advance()
	}
}

// parseAttribute parses one `key: value` attribute (or the tolerated
// colon-less forms) inside a system, service, or component body.
func (p *parser) parseAttribute(leading []*ast.Annotation) (*ast.Attribute, token, error) {
	p.skipNewlines()
	anns, err := p.parseAnnotations()
	if err != nil {
		return nil, token{}, err
	}
	anns = append(leading, anns...)
	if t := p.cur().typ; len(anns) > 0 && (t == tokenRBrace || t == tokenRBracket || t == tokenEOF) {
		return nil, p.cur(), p.errf(p.cur(), "annotations are not attached to any node")
	}

	keyTok, err := p.eat(tokenIdent)
	if err != nil {
		return nil, keyTok, err
	}
	key := keyTok.value

	sawColon := false
	if p.cur().typ == tokenColon {
		p.advance()
		sawColon = true
	} else if p.cur().typ == tokenNewline {
		p.skipNewlines()
		if p.cur().typ == tokenColon {
			p.advance()
			sawColon = true
		}
	}

	if sawColon {
		p.skipNewlines()
	} else {
		t := p.cur()
		// tolerate component-shaped entries without a colon:
		// `kind Name { ... }`
		if t.typ == tokenIdent && p.peek(1).typ == tokenLBrace {
			blk, err := p.parseComponentBlock(key, keyTok, anns)
			if err != nil {
				return nil, keyTok, err
			}
			p.skipNewlines()
			return &ast.Attribute{Key: key, Value: blk}, keyTok, nil
		}
		if t.typ != tokenLBrace && t.typ != tokenLBracket {
			return nil, keyTok, p.errf(t, "expected ':' after attribute %q, got %s", key, t.describe())
		}
	}

	val, err := p.parseValue(key, tokenNewline, tokenRBrace, tokenRBracket)
	if err != nil {
		return nil, keyTok, err
	}
	p.skipNewlines()
	return &ast.Attribute{Key: key, Value: val, Annotations: anns}, keyTok, nil
}

// parseValue dispatches on the token that begins an attribute or map
// entry value. scalarStops are the terminators used if the value turns
// out to be a bare scalar.
func (p *parser) parseValue(contextKey string, scalarStops ...tokenType) (ast.Value, error) {
	t := p.cur()
	switch {
	case t.typ == tokenLBrace:
		return p.parseMap()
	case t.typ == tokenLBracket && !p.bracketValueIsLiteral():
		return p.parseList(contextKey)
	case t.typ == tokenString:
		p.advance()
		return ast.Scalar(t.value), nil
	default:
		parts := p.collectUntil(scalarStops...)
		return ast.Scalar(strings.TrimSpace(strings.Join(parts, " "))), nil
	}
}

// parseMap parses `{ ... }` into an ordered map. A map whose only
// entries are raw lines collapses to a single string joining those
// lines.
func (p *parser) parseMap() (ast.Value, error) {
	m, rawEntry, rawLines, err := p.parseMapEntries()
	if err != nil {
		return nil, err
	}
	if m.Len() == 1 && rawEntry != nil {
		return ast.Scalar(strings.Join(rawLines, "\n")), nil
	}
	return m, nil
}

// parseMapBody is parseMap without the raw-only collapse, for bodies
// (method attributes, component blocks) that must stay maps.
func (p *parser) parseMapBody() (*ast.Map, error) {
	m, _, _, err := p.parseMapEntries()
	return m, err
}

func (p *parser) parseMapEntries() (*ast.Map, *ast.Attribute, []string, error) {
	lbrace, err := p.eat(tokenLBrace)
	if err != nil {
		return nil, nil, nil, err
	}

	m := ast.NewMap()
	var rawEntry *ast.Attribute
	var rawLines []string
	consumeRaw := func() {
		parts := p.collectUntil(tokenNewline, tokenRBrace)
		line := strings.TrimSpace(strings.Join(parts, " "))
		if line == "" {
			return
		}
		if rawEntry == nil {
			rawEntry = &ast.Attribute{Key: "__raw__", Value: &ast.List{}}
			m.Append(rawEntry)
		}
		list := rawEntry.Value.(*ast.List)
		list.Items = append(list.Items, ast.Scalar(line))
		rawLines = append(rawLines, line)
	}

	for {
		p.skipNewlines()
		if p.cur().typ == tokenRBrace {
			break
		}
		if p.cur().typ == tokenEOF {
			return nil, nil, nil, p.errf(lbrace, "unexpected EOF inside map: missing '}'")
		}

		// a stray '@' that does not begin an annotation is data
		if p.cur().typ == tokenAt && p.peek(1).typ != tokenIdent {
			consumeRaw()
			continue
		}

		entryAnns, err := p.parseAnnotations()
		if err != nil {
			return nil, nil, nil, err
		}
		if p.cur().typ == tokenRBrace {
			if len(entryAnns) > 0 {
				return nil, nil, nil, p.errf(p.cur(), "annotations are not attached to any node")
			}
			break
		}
		if t := p.cur().typ; t != tokenIdent && t != tokenString {
			consumeRaw()
			continue
		}

		keyTok := p.advance()
		key := keyTok.value

		var val ast.Value
		if p.cur().typ == tokenColon {
			p.advance()
			p.skipNewlines()
			val, err = p.parseValue(key, tokenNewline, tokenRBrace, tokenRBracket, tokenComma)
			if err != nil {
				return nil, nil, nil, err
			}
		} else if p.cur().typ == tokenLBrace {
			// no colon before a brace: keep the balanced braces as text
			parts := p.collectBalancedBraces()
			val = ast.Scalar(strings.TrimSpace(strings.Join(parts, " ")))
		} else {
			parts := p.collectUntil(tokenNewline, tokenRBrace, tokenRBracket)
			val = ast.Scalar(strings.TrimSpace(strings.Join(parts, " ")))
		}

		p.skipNewlines()
		if p.cur().typ == tokenComma {
			p.advance()
			p.skipNewlines()
		}

		attr := &ast.Attribute{Key: key, Value: val, Annotations: entryAnns}
		if err := p.addAttr(m, attr, keyTok); err != nil {
			return nil, nil, nil, err
		}
	}
	if _, err := p.eat(tokenRBrace); err != nil {
		return nil, nil, nil, err
	}
	p.skipNewlines()
	return m, rawEntry, rawLines, nil
}

// collectBalancedBraces consumes a `{ ... }` group, returning the token
// texts including the braces themselves.
func (p *parser) collectBalancedBraces() []string {
	var parts []string
	depth := 0
	for {
		tok := p.cur()
		if tok.typ == tokenEOF {
			return parts
		}
		switch tok.typ {
		case tokenLBrace:
			depth++
		case tokenRBrace:
			depth--
		}
		parts = append(parts, tok.value)
		p.advance()
		if depth == 0 && tok.typ == tokenRBrace {
			return parts
		}
	}
}

// collectUntil gathers token texts until one of the stop types appears
// at top-level nesting. Nesting tracks brackets, parens, braces, and
// single-character '<'/'>' identifiers (for generic types).
func (p *parser) collectUntil(stops ...tokenType) []string {
	var parts []string
	var brackets, parens, braces, angles int
	for {
		tok := p.cur()
		if tok.typ == tokenEOF {
			return parts
		}
		if brackets == 0 && parens == 0 && braces == 0 && angles == 0 {
			for _, s := range stops {
				if tok.typ == s {
					return parts
				}
			}
			// a service declaration ends any bare scalar, so one-line
			// systems like `system { type: x service s { ... } }` parse
			if tok.typ == tokenIdent && tok.value == "service" &&
				p.peek(1).typ == tokenIdent && p.peek(2).typ == tokenLBrace {
				return parts
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

// bracketValueIsLiteral peeks ahead to decide whether a leading '['
// denotes literal text rather than a list: if more value tokens follow
// the matching ']' on the same line, the whole run is a scalar.
func (p *parser) bracketValueIsLiteral() bool {
	idx := p.pos
	depth := 0
	for idx < len(p.tokens) {
		tok := p.tokens[idx]
		switch tok.typ {
		case tokenLBracket:
			depth++
		case tokenRBracket:
			depth--
			if depth == 0 {
				idx++
				sawNewline := false
				for idx < len(p.tokens) && p.tokens[idx].typ == tokenNewline {
					sawNewline = true
					idx++
				}
				if idx >= len(p.tokens) || sawNewline {
					return false
				}
				switch p.tokens[idx].typ {
				case tokenComma, tokenRBrace, tokenRBracket, tokenEOF:
					return false
				}
				return true
			}
		case tokenEOF:
			return false
		}
		idx++
	}
	return false
}

// addAttr inserts attr into container m, enforcing key uniqueness or
// applying the configured merge rules.
func (p *parser) addAttr(m *ast.Map, attr *ast.Attribute, keyTok token) error {
	existing := m.Get(attr.Key)
	if existing == nil {
		m.Append(attr)
		return nil
	}
	if !p.opts.mergeDuplicates {
		return p.errf(keyTok, "duplicate attribute key %q", attr.Key)
	}
	mergeAttr(existing, attr)
	return nil
}

// mergeAttr folds a duplicate attribute into the existing one: lists
// concatenate, maps shallow-merge with the newer entry winning, and any
// other combination is replaced by the newer value. Annotations
// concatenate except on replacement, where the newer set wins.
func mergeAttr(existing, update *ast.Attribute) {
	switch oldVal := existing.Value.(type) {
	case *ast.List:
		if newVal, ok := update.Value.(*ast.List); ok {
			oldVal.Items = append(oldVal.Items, newVal.Items...)
			existing.Annotations = append(existing.Annotations, update.Annotations...)
			return
		}
	case *ast.Map:
		if newVal, ok := update.Value.(*ast.Map); ok {
			for _, e := range newVal.Entries {
				if prev := oldVal.Get(e.Key); prev != nil {
					prev.Value = e.Value
					prev.Annotations = e.Annotations
				} else {
					oldVal.Append(e)
				}
			}
			existing.Annotations = append(existing.Annotations, update.Annotations...)
			return
		}
	}
	existing.Value = update.Value
	existing.Annotations = update.Annotations
}
