package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/simal-lang/simal/ast"
	"github.com/simal-lang/simal/reporter"
)

// lexer converts a UTF-8 source buffer into a flat token stream. It
// records line-break offsets into its FileInfo as it goes, so token
// offsets can be resolved to line/column positions later.
type lexer struct {
	data   []byte
	pos    int
	info   *ast.FileInfo
	tokens []token
}

func newLexer(filename string, data []byte) *lexer {
	return &lexer{
		data: data,
		info: ast.NewFileInfo(filename, data),
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9') ||
		b == '.' || b == '/' || b == '-' || b == '\''
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

var singleTokens = map[byte]tokenType{
	'{': tokenLBrace,
	'}': tokenRBrace,
	'[': tokenLBracket,
	']': tokenRBracket,
	'(': tokenLParen,
	')': tokenRParen,
	':': tokenColon,
	',': tokenComma,
	'@': tokenAt,
}

func (l *lexer) emit(typ tokenType, value string, offset int) {
	l.tokens = append(l.tokens, token{typ: typ, value: value, offset: offset})
}

// emitNewline collapses runs of blank lines into a single NEWLINE
// token.
func (l *lexer) emitNewline(offset int) {
	if n := len(l.tokens); n > 0 && l.tokens[n-1].typ == tokenNewline {
		return
	}
	l.emit(tokenNewline, "\n", offset)
}

func (l *lexer) errorf(offset int, format string, args ...any) error {
	return reporter.Errorf(l.info.SourcePos(offset), format, args...)
}

// run tokenizes the whole buffer. On error no tokens are returned; all
// tokenizer errors are fatal.
func (l *lexer) run() ([]token, error) {
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		start := l.pos

		switch {
		case ch == '\n':
			l.info.AddLine(l.pos)
			l.pos++
			l.emitNewline(start)

		case ch == ' ' || ch == '\t' || ch == '\r':
			l.pos++

		case ch == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' &&
			l.pos+2 < len(l.data) && isIdentStart(l.data[l.pos+2]):
			if err := l.readHeredoc(); err != nil {
				return nil, err
			}

		case singleTokens[ch] != 0:
			l.pos++
			l.emit(singleTokens[ch], string(ch), start)

		case ch == '-' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '>':
			l.pos += 2
			l.emit(tokenArrow, "->", start)

		case ch == '"' || ch == '\'':
			if err := l.readQuoted(ch); err != nil {
				return nil, err
			}

		case isIdentStart(ch):
			for l.pos < len(l.data) && isIdentPart(l.data[l.pos]) {
				l.pos++
			}
			l.emit(tokenIdent, string(l.data[start:l.pos]), start)

		case isDigit(ch):
			// digit-led bare words run to the next whitespace or
			// delimiter so values like 587 or 8.5 stay one token
			for l.pos < len(l.data) {
				b := l.data[l.pos]
				if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
					break
				}
				if _, ok := singleTokens[b]; ok {
					break
				}
				l.pos++
			}
			l.emit(tokenIdent, string(l.data[start:l.pos]), start)

		default:
			// anything else is a single-character identifier
			_, size := utf8.DecodeRune(l.data[l.pos:])
			l.pos += size
			l.emit(tokenIdent, string(l.data[start:l.pos]), start)
		}
	}
	l.emit(tokenEOF, "", len(l.data))
	return l.tokens, nil
}

// readQuoted consumes a quoted string. The body between the delimiters
// is taken verbatim; escapes are not interpreted.
func (l *lexer) readQuoted(quote byte) error {
	start := l.pos
	l.pos++
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if b == quote {
			body := string(l.data[start+1 : l.pos])
			l.pos++
			l.emit(tokenString, body, start)
			return nil
		}
		if b == '\n' {
			l.info.AddLine(l.pos)
		}
		l.pos++
	}
	return l.errorf(start, "unterminated string literal")
}

// readHeredoc consumes a <<LABEL heredoc: the rest of the intro line is
// skipped, then lines are collected until one whose stripped content
// equals the label. The collected lines are dedented by their common
// leading whitespace and emitted as one STRING token.
func (l *lexer) readHeredoc() error {
	start := l.pos
	l.pos += 2
	labelStart := l.pos
	for l.pos < len(l.data) && isIdentPart(l.data[l.pos]) {
		l.pos++
	}
	label := string(l.data[labelStart:l.pos])

	// skip the remainder of the intro line
	for l.pos < len(l.data) && l.data[l.pos] != '\n' {
		l.pos++
	}
	if l.pos < len(l.data) {
		l.info.AddLine(l.pos)
		l.pos++
	}

	var lines []string
	closed := false
	for l.pos <= len(l.data) {
		if l.pos == len(l.data) {
			break
		}
		lineStart := l.pos
		for l.pos < len(l.data) && l.data[l.pos] != '\n' {
			l.pos++
		}
		line := string(l.data[lineStart:l.pos])
		if l.pos < len(l.data) {
			l.info.AddLine(l.pos)
			l.pos++
		}
		if strings.TrimSpace(line) == label {
			closed = true
			break
		}
		lines = append(lines, line)
	}
	if !closed {
		return l.errorf(start, "unterminated heredoc: missing closing label %q", label)
	}

	l.emit(tokenString, dedent(lines), start)
	return nil
}

// dedent drops blank edge lines and removes the minimum leading
// whitespace shared by the non-empty lines.
func dedent(lines []string) string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, line := range lines {
			if len(line) >= indent {
				lines[i] = line[indent:]
			} else {
				lines[i] = ""
			}
		}
	}
	return strings.Join(lines, "\n")
}
