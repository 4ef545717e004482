// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// tokenKind classifies a significant token.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString   // '...' or "..."
	tokTemplate // `...`
	tokRegexp
	tokPunct
	tokBadString // unterminated quoted string
)

// token is a significant lexeme. For tokString, value holds the resolved
// contents; for every other kind it holds the raw source text.
type token struct {
	kind  tokenKind
	value string
	pos   position
	end   int // byte offset just past the token
}

type position struct {
	Offset int
	Line   int
	Column int
}

// lexer produces significant tokens, skipping whitespace and comments
// before each one. It never fails: malformed input degrades to tokBadString
// or single-byte punctuation.
type lexer struct {
	src  string
	off  int
	line int
	col  int

	// prev is the last significant token, used to tell a regular
	// expression literal from a division operator.
	prev token
	// parens records, per open parenthesis, whether it starts the head of
	// an if, while, for or with statement.
	parens []bool
	// afterHead is set when prev is the ')' ending such a head.
	afterHead bool
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) pos() position {
	return position{Offset: l.off, Line: l.line, Column: l.col}
}

// advance moves the cursor n bytes forward keeping line and column in step.
func (l *lexer) advance(n int) {
	for i := 0; i < n && l.off < len(l.src); i++ {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}

		l.off++
	}
}

func (l *lexer) peekByte(ahead int) byte {
	if l.off+ahead >= len(l.src) {
		return 0
	}

	return l.src[l.off+ahead]
}

// skipInsignificant consumes whitespace, line terminators and comments.
// An unterminated block comment runs to the end of input.
func (l *lexer) skipInsignificant() {
	for l.off < len(l.src) {
		c := l.src[l.off]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f':
			l.advance(1)
		case c == '/' && l.peekByte(1) == '/':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(1)
			}
		case c == '/' && l.peekByte(1) == '*':
			end := strings.Index(l.src[l.off+2:], "*/")
			if end < 0 {
				l.advance(len(l.src) - l.off)

				return
			}

			l.advance(end + 4)
		case c >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(l.src[l.off:])
			if r != '\uFEFF' && !unicode.IsSpace(r) {
				return
			}

			l.advance(size)
		default:
			return
		}
	}
}

// next returns the next significant token.
func (l *lexer) next() token {
	l.skipInsignificant()

	tok := l.lex()
	if tok.kind == tokEOF {
		return tok
	}

	l.afterHead = false

	switch {
	case tok.kind != tokPunct:
	case tok.value == "(":
		l.parens = append(l.parens, l.prev.kind == tokIdent && headKeywords[l.prev.value])
	case tok.value == ")":
		if n := len(l.parens); n > 0 {
			l.afterHead = l.parens[n-1]
			l.parens = l.parens[:n-1]
		}
	}

	l.prev = tok

	return tok
}

func (l *lexer) lex() token {
	start := l.pos()
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: start, end: l.off}
	}

	c := l.src[l.off]

	switch {
	case c == '\'' || c == '"':
		return l.lexString(c)
	case c == '`':
		return l.lexTemplate()
	case isDigit(c) || (c == '.' && isDigit(l.peekByte(1))):
		return l.lexNumber()
	case isIdentStart(c) || c >= utf8.RuneSelf:
		return l.lexIdent()
	case c == '/' && l.regexpAllowed():
		return l.lexRegexp()
	}

	l.advance(1)

	return token{kind: tokPunct, value: l.src[start.Offset:l.off], pos: start, end: l.off}
}

func (l *lexer) lexIdent() token {
	start := l.pos()

	for l.off < len(l.src) {
		c := l.src[l.off]
		if c < utf8.RuneSelf {
			if !isIdentStart(c) && !isDigit(c) {
				break
			}

			l.advance(1)

			continue
		}

		r, size := utf8.DecodeRuneInString(l.src[l.off:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) {
			break
		}

		l.advance(size)
	}

	if l.off == start.Offset {
		// A non-letter rune; consume it as punctuation.
		_, size := utf8.DecodeRuneInString(l.src[l.off:])
		l.advance(size)

		return token{kind: tokPunct, value: l.src[start.Offset:l.off], pos: start, end: l.off}
	}

	return token{kind: tokIdent, value: l.src[start.Offset:l.off], pos: start, end: l.off}
}

func (l *lexer) lexNumber() token {
	start := l.pos()

	for l.off < len(l.src) {
		c := l.src[l.off]

		// Exponent signs belong to the literal: 1e+3.
		if (c == '+' || c == '-') && l.off > start.Offset {
			p := l.src[l.off-1]
			if (p == 'e' || p == 'E') && !strings.HasPrefix(strings.ToLower(l.src[start.Offset:l.off]), "0x") {
				l.advance(1)

				continue
			}
		}

		if !isDigit(c) && !isIdentStart(c) && c != '.' {
			break
		}

		l.advance(1)
	}

	return token{kind: tokNumber, value: l.src[start.Offset:l.off], pos: start, end: l.off}
}

// lexString lexes a quoted literal and resolves its escapes.
func (l *lexer) lexString(quote byte) token {
	start := l.pos()
	l.advance(1)

	var b strings.Builder

	for {
		if l.off >= len(l.src) {
			return token{kind: tokBadString, value: b.String(), pos: start, end: l.off}
		}

		c := l.src[l.off]

		switch {
		case c == quote:
			l.advance(1)

			return token{kind: tokString, value: b.String(), pos: start, end: l.off}
		case c == '\n' || c == '\r':
			return token{kind: tokBadString, value: b.String(), pos: start, end: l.off}
		case c == '\\':
			if l.off+1 >= len(l.src) {
				l.advance(1)

				return token{kind: tokBadString, value: b.String(), pos: start, end: l.off}
			}

			l.lexEscape(&b)
		default:
			b.WriteByte(c)
			l.advance(1)
		}
	}
}

// lexEscape resolves the escape sequence at the cursor (which sits on the
// backslash) and writes the result to b.
func (l *lexer) lexEscape(b *strings.Builder) {
	c := l.src[l.off+1]

	switch c {
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		if !isDigit(l.peekByte(2)) {
			b.WriteByte(0)
		} else {
			b.WriteByte('0')
		}
	case '\r':
		// Line continuation, optionally CRLF.
		if l.peekByte(2) == '\n' {
			l.advance(3)

			return
		}
	case '\n':
		// Line continuation.
	case 'x':
		if r, ok := parseHex(l.src, l.off+2, 2); ok {
			b.WriteRune(r)
			l.advance(4)

			return
		}

		b.WriteByte('x')
	case 'u':
		if l.peekByte(2) == '{' {
			if end := strings.IndexByte(l.src[l.off+3:], '}'); end > 0 {
				if r, ok := parseHex(l.src, l.off+3, end); ok {
					b.WriteRune(r)
					l.advance(end + 4)

					return
				}
			}
		} else if r, ok := parseHex(l.src, l.off+2, 4); ok {
			// A UTF-16 surrogate pair spelled as two escapes is one code point.
			if utf16.IsSurrogate(r) && l.peekByte(6) == '\\' && l.peekByte(7) == 'u' {
				if low, ok := parseHex(l.src, l.off+8, 4); ok {
					if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
						b.WriteRune(pair)
						l.advance(12)

						return
					}
				}
			}

			b.WriteRune(r)
			l.advance(6)

			return
		}

		b.WriteByte('u')
	default:
		// Escaped delimiters, backslashes and anything else resolve to themselves.
		_, size := utf8.DecodeRuneInString(l.src[l.off+1:])
		b.WriteString(l.src[l.off+1 : l.off+1+size])
		l.advance(1 + size)

		return
	}

	l.advance(2)
}

// lexTemplate consumes a template literal including any ${...} substitutions.
func (l *lexer) lexTemplate() token {
	start := l.pos()
	l.advance(1)

	depth := 0

	for l.off < len(l.src) {
		c := l.src[l.off]

		switch {
		case c == '\\':
			l.advance(2)

			continue
		case depth == 0 && c == '`':
			l.advance(1)

			return token{kind: tokTemplate, value: l.src[start.Offset:l.off], pos: start, end: l.off}
		case c == '$' && l.peekByte(1) == '{':
			depth++

			l.advance(2)

			continue
		case depth > 0 && c == '{':
			depth++
		case depth > 0 && c == '}':
			depth--
		case depth > 0 && (c == '\'' || c == '"'):
			l.lexString(c)

			continue
		}

		l.advance(1)
	}

	return token{kind: tokBadString, value: l.src[start.Offset:l.off], pos: start, end: l.off}
}

// regexpAllowed reports whether a slash at the cursor starts a regular
// expression literal rather than a division operator.
func (l *lexer) regexpAllowed() bool {
	switch l.prev.kind {
	case tokNumber, tokString, tokTemplate, tokRegexp:
		return false
	case tokIdent:
		return regexpKeywords[l.prev.value]
	case tokPunct:
		switch l.prev.value {
		case ")":
			return l.afterHead
		case "]", "}":
			return false
		}
	}

	return true
}

// headKeywords start statements whose parenthesized head is followed by a
// statement, where a slash begins a regular expression.
var headKeywords = map[string]bool{"if": true, "while": true, "for": true, "with": true}

var regexpKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

func (l *lexer) lexRegexp() token {
	start := l.pos()
	l.advance(1)

	inClass := false

	for l.off < len(l.src) {
		c := l.src[l.off]

		switch {
		case c == '\n':
			// Not a regexp after all; fall back to a lone slash.
			l.off, l.line, l.col = start.Offset, start.Line, start.Column
			l.advance(1)

			return token{kind: tokPunct, value: "/", pos: start, end: l.off}
		case c == '\\':
			l.advance(2)

			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			l.advance(1)

			for l.off < len(l.src) && isIdentStart(l.src[l.off]) {
				l.advance(1)
			}

			return token{kind: tokRegexp, value: l.src[start.Offset:l.off], pos: start, end: l.off}
		}

		l.advance(1)
	}

	l.off, l.line, l.col = start.Offset, start.Line, start.Column
	l.advance(1)

	return token{kind: tokPunct, value: "/", pos: start, end: l.off}
}

func parseHex(src string, from, n int) (rune, bool) {
	if n <= 0 || from+n > len(src) {
		return 0, false
	}

	v, err := strconv.ParseUint(src[from:from+n], 16, 32)
	if err != nil || v > unicode.MaxRune {
		return 0, false
	}

	return rune(v), true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
