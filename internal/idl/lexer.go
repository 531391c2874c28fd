package idl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokSemi
	tokComma
	tokEquals
	tokColon
	tokDot
	tokArrow
	tokNumber // integer literal, optionally signed
	tokFloat  // decimal literal with a fraction or exponent
	tokText   // quoted literal; Lit holds the unescaped bytes
	tokIdent
)

var tokenNames = map[tokenType]string{
	tokEOF:    "end of input",
	tokLParen: "'('",
	tokRParen: "')'",
	tokLBrace: "'{'",
	tokRBrace: "'}'",
	tokSemi:   "';'",
	tokComma:  "','",
	tokEquals: "'='",
	tokColon:  "':'",
	tokDot:    "'.'",
	tokArrow:  "'->'",
	tokNumber: "number",
	tokFloat:  "float",
	tokText:   "text",
	tokIdent:  "identifier",
}

func (t tokenType) String() string { return tokenNames[t] }

type token struct {
	Type tokenType
	Lit  string
	Line int
	Col  int
}

var keywords = map[string]bool{
	"true": true, "false": true, "null": true, "opt": true, "vec": true,
	"record": true, "variant": true, "blob": true, "principal": true,
	"service": true, "func": true,
}

func isKeyword(s string) bool { return keywords[s] }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }
func isDigit(c byte) bool     { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// SyntaxError reports a malformed literal with its 1-based position.
type SyntaxError struct {
	Line, Col int
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

type lexer struct {
	src       string
	pos       int
	line, col int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance()
		case c == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

// tokens scans the whole input.
func (l *lexer) tokens() ([]token, error) {
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Type == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	line, col := l.line, l.col
	mk := func(tt tokenType, lit string) token { return token{Type: tt, Lit: lit, Line: line, Col: col} }
	if l.pos >= len(l.src) {
		return mk(tokEOF, ""), nil
	}

	c := l.src[l.pos]
	switch c {
	case '(':
		l.advance()
		return mk(tokLParen, "("), nil
	case ')':
		l.advance()
		return mk(tokRParen, ")"), nil
	case '{':
		l.advance()
		return mk(tokLBrace, "{"), nil
	case '}':
		l.advance()
		return mk(tokRBrace, "}"), nil
	case ';':
		l.advance()
		return mk(tokSemi, ";"), nil
	case ',':
		l.advance()
		return mk(tokComma, ","), nil
	case '=':
		l.advance()
		return mk(tokEquals, "="), nil
	case ':':
		l.advance()
		return mk(tokColon, ":"), nil
	case '.':
		l.advance()
		return mk(tokDot, "."), nil
	case '"':
		s, err := l.scanText()
		if err != nil {
			return token{}, err
		}
		return mk(tokText, s), nil
	}

	if c == '-' && l.peekByte(1) == '>' {
		l.advance()
		l.advance()
		return mk(tokArrow, "->"), nil
	}
	if c == '+' || c == '-' || isDigit(c) {
		tt, lit, err := l.scanNumber()
		if err != nil {
			return token{}, err
		}
		return mk(tt, lit), nil
	}
	if isIdentStart(c) {
		start := l.pos
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.advance()
		}
		return mk(tokIdent, l.src[start:l.pos]), nil
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return token{}, l.errorf(line, col, "unexpected character %q", r)
}

// scanNumber reads a signed decimal or hex integer, or a decimal float.
// Underscores separate digit groups and are dropped from the literal.
func (l *lexer) scanNumber() (tokenType, string, error) {
	line, col := l.line, l.col
	var sb strings.Builder
	if c := l.src[l.pos]; c == '+' || c == '-' {
		if c == '-' {
			sb.WriteByte('-')
		}
		l.advance()
		if !isDigit(l.peekByte(0)) {
			return 0, "", l.errorf(line, col, "sign must be followed by digits")
		}
	}

	if l.peekByte(0) == '0' && (l.peekByte(1) == 'x' || l.peekByte(1) == 'X') {
		l.advance()
		l.advance()
		start := sb.Len()
		for l.pos < len(l.src) && (isHexDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			if c := l.advance(); c != '_' {
				sb.WriteByte(c)
			}
		}
		if sb.Len() == start {
			return 0, "", l.errorf(line, col, "hex literal has no digits")
		}
		if l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			return 0, "", l.errorf(line, col, "invalid hex literal")
		}
		digits := sb.String()
		neg := strings.HasPrefix(digits, "-")
		n, err := strconv.ParseUint(strings.TrimPrefix(digits, "-"), 16, 64)
		if err != nil {
			return 0, "", l.errorf(line, col, "hex literal out of range")
		}
		dec := strconv.FormatUint(n, 10)
		if neg {
			dec = "-" + dec
		}
		return tokNumber, dec, nil
	}

	isFloat := false
	digits := func() {
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			if c := l.advance(); c != '_' {
				sb.WriteByte(c)
			}
		}
	}
	digits()
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		isFloat = true
		sb.WriteByte(l.advance())
		digits()
	}
	if c := l.peekByte(0); c == 'e' || c == 'E' {
		next := l.peekByte(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekByte(2))) {
			isFloat = true
			sb.WriteByte(l.advance())
			if next == '+' || next == '-' {
				sb.WriteByte(l.advance())
			}
			digits()
		}
	}
	if l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		return 0, "", l.errorf(line, col, "invalid number literal")
	}
	if isFloat {
		return tokFloat, sb.String(), nil
	}
	return tokNumber, sb.String(), nil
}

// scanText reads a quoted literal. Escapes: \n \r \t \\ \" \' \XX (two hex
// digits, one raw byte) and \u{X...}. The result may be invalid UTF-8 when
// byte escapes are used; callers that need text check validity.
func (l *lexer) scanText() (string, error) {
	line, col := l.line, l.col
	l.advance()
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(line, col, "unterminated text literal")
		}
		c := l.advance()
		switch c {
		case '"':
			return sb.String(), nil
		case '\\':
			if l.pos >= len(l.src) {
				return "", l.errorf(line, col, "unterminated escape")
			}
			e := l.advance()
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"', '\'':
				sb.WriteByte(e)
			case 'u':
				if l.peekByte(0) != '{' {
					return "", l.errorf(l.line, l.col, "expected '{' after \\u")
				}
				l.advance()
				start := l.pos
				for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
					l.advance()
				}
				hex := l.src[start:l.pos]
				if l.peekByte(0) != '}' || hex == "" {
					return "", l.errorf(l.line, l.col, "malformed unicode escape")
				}
				l.advance()
				cp, err := strconv.ParseUint(hex, 16, 32)
				if err != nil || !utf8.ValidRune(rune(cp)) {
					return "", l.errorf(l.line, l.col, "invalid code point \\u{%s}", hex)
				}
				sb.WriteRune(rune(cp))
			default:
				if !isHexDigit(e) || !isHexDigit(l.peekByte(0)) {
					return "", l.errorf(l.line, l.col, "unknown escape \\%c", e)
				}
				b, _ := strconv.ParseUint(string([]byte{e, l.advance()}), 16, 8)
				sb.WriteByte(byte(b))
			}
		default:
			sb.WriteByte(c)
		}
	}
}
