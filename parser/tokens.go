package parser

import "fmt"

// tokenType enumerates the token kinds produced by the tokenizer.
type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenString
	tokenLBrace   // {
	tokenRBrace   // }
	tokenLBracket // [
	tokenRBracket // ]
	tokenLParen   // (
	tokenRParen   // )
	tokenColon    // :
	tokenComma    // ,
	tokenArrow    // ->
	tokenAt       // @
	tokenNewline
)

var tokenNames = map[tokenType]string{
	tokenEOF:      "end of file",
	tokenIdent:    "identifier",
	tokenString:   "string literal",
	tokenLBrace:   `"{"`,
	tokenRBrace:   `"}"`,
	tokenLBracket: `"["`,
	tokenRBracket: `"]"`,
	tokenLParen:   `"("`,
	tokenRParen:   `")"`,
	tokenColon:    `":"`,
	tokenComma:    `","`,
	tokenArrow:    `"->"`,
	tokenAt:       `"@"`,
	tokenNewline:  "newline",
}

func (t tokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// token is a single lexeme. For tokenString the value is the string
// body with delimiters removed (and, for heredocs, dedent applied); for
// every other kind the value is the literal source text.
type token struct {
	typ    tokenType
	value  string
	offset int
}

func (t token) describe() string {
	switch t.typ {
	case tokenEOF, tokenNewline:
		return t.typ.String()
	case tokenString:
		return fmt.Sprintf("string %q", t.value)
	default:
		return fmt.Sprintf("%s (%q)", t.typ, t.value)
	}
}
