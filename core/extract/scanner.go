// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package extract

import (
	"fmt"
	"iter"
	"strings"
)

// Scanner finds marker calls in one source text. It makes a single forward
// pass and yields records lazily, in source order. A Scanner cannot be
// restarted; create a new one to scan again.
//
// Scanning never fails. Anomalies are reported as diagnostics: malformed
// calls are skipped, and an unterminated literal or call at end of input
// ends the scan after everything found so far has been yielded.
type Scanner struct {
	lx      *lexer
	markers *MarkerSet

	// buf holds pushed-back tokens, last element first.
	buf []token
	// last is the previous top-level token.
	last token

	diags  []Diagnostic
	onDiag func(Diagnostic)
	done   bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDiagnosticFunc registers fn to be called for every diagnostic as it is
// found, in addition to collecting it for [Scanner.Diagnostics].
func WithDiagnosticFunc(fn func(Diagnostic)) Option {
	return func(s *Scanner) {
		s.onDiag = fn
	}
}

// NewScanner returns a scanner over src. A nil markers uses [DefaultMarkers].
func NewScanner(src string, markers *MarkerSet, opts ...Option) *Scanner {
	if markers == nil {
		markers = DefaultMarkers()
	}

	s := &Scanner{
		lx:      newLexer(src),
		markers: markers,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scan returns the records of src as a lazy sequence.
func Scan(src string, markers *MarkerSet) iter.Seq[Record] {
	return NewScanner(src, markers).Records()
}

// ScanAll scans src to the end and returns all records and diagnostics.
func ScanAll(src string, markers *MarkerSet) ([]Record, []Diagnostic) {
	s := NewScanner(src, markers)

	var records []Record
	for r := range s.Records() {
		records = append(records, r)
	}

	return records, s.Diagnostics()
}

// Records returns the remaining records as a sequence. Stopping the
// iteration early leaves the scanner positioned after the last yielded call.
func (s *Scanner) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for {
			r, ok := s.Next()
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// Diagnostics returns the diagnostics collected so far.
func (s *Scanner) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)

	return out
}

// Next returns the next record. The second result is false once the input
// is exhausted or the scan has ended early.
func (s *Scanner) Next() (Record, bool) {
	for !s.done {
		t := s.next()

		switch t.kind {
		case tokEOF:
			s.done = true
		case tokBadString:
			if s.atEOF(t) {
				s.report(UnterminatedLiteral, "", t.pos, "input ends inside a string literal")
				s.done = true
			}
		case tokIdent:
			// Declarations and member accesses are not calls to a marker.
			if (s.last.kind == tokIdent && s.last.value == "function") || isPunct(s.last, ".") {
				break
			}

			if m := s.matchMarker(t); m != nil {
				if rec, ok := s.parseCall(m, t); ok {
					s.last = token{kind: tokPunct, value: ")"}

					return rec, true
				}
			}
		}

		s.last = t
	}

	return Record{}, false
}

// matchMarker checks whether head starts a call to a known marker. Tokens
// between the name parts and the opening parenthesis are significant tokens
// only, so whitespace, line breaks and comments are all allowed there. On a
// match the opening parenthesis has been consumed; otherwise nothing is.
func (s *Scanner) matchMarker(head token) *Marker {
	for _, idx := range s.markers.candidates(head.value) {
		m := &s.markers.markers[idx]

		consumed := make([]token, 0, 2*len(m.path))
		matched := true

		for _, part := range m.path[1:] {
			dot := s.next()
			consumed = append(consumed, dot)

			if !isPunct(dot, ".") {
				matched = false

				break
			}

			name := s.next()
			consumed = append(consumed, name)

			if name.kind != tokIdent || name.value != part {
				matched = false

				break
			}
		}

		if matched {
			open := s.next()
			if isPunct(open, "(") {
				return m
			}

			consumed = append(consumed, open)
		}

		s.unread(consumed...)
	}

	return nil
}

// parseCall parses the argument list of m, whose opening parenthesis has
// been consumed. It reports false when the call is skipped.
func (s *Scanner) parseCall(m *Marker, head token) (Record, bool) {
	rec := Record{
		Kind:    m.Kind,
		Marker:  m.Name,
		Strings: make([]string, 0, m.Kind.strings()),
		Offset:  head.pos.Offset,
		Line:    head.pos.Line,
		Column:  head.pos.Column,
	}

	required := m.required()

	for i := 0; ; {
		t := s.next()

		switch {
		case isPunct(t, ")"):
			if i < required {
				s.report(MalformedCall, m.Name, head.pos, fmt.Sprintf("missing %s argument", m.Args[i]))

				return Record{}, false
			}

			return rec, true
		case s.atEOF(t):
			return Record{}, s.endInsideCall(m, head, t)
		case isPunct(t, ","):
			s.report(MalformedCall, m.Name, head.pos, "empty argument")

			return Record{}, s.skipCall(t)
		case i >= len(m.Args):
			s.report(MalformedCall, m.Name, head.pos, fmt.Sprintf("too many arguments, want at most %d", len(m.Args)))

			return Record{}, s.skipCall(t)
		}

		var (
			term token
			ok   bool
		)

		switch role := m.Args[i]; role {
		case RoleCount:
			if m.LooseCount {
				if term, ok = s.skipExpr(t); !ok {
					return s.mismatched(m, head, term)
				}

				break
			}

			if t.kind != tokNumber {
				s.report(MalformedCall, m.Name, head.pos, fmt.Sprintf("count must be a numeric literal, found %s", describe(t)))

				return Record{}, s.skipCall(t)
			}

			term = s.next()
		case RoleString:
			if t.kind == tokBadString && !s.atEOF(t) {
				s.report(MalformedCall, m.Name, head.pos, "string literal broken by a line break")

				return Record{}, s.skipCall(t)
			}

			if t.kind != tokString {
				s.report(MalformedCall, m.Name, head.pos, fmt.Sprintf("expected a string literal, found %s", describe(t)))

				return Record{}, s.skipCall(t)
			}

			value, after, folded := s.foldString(t)
			if !folded {
				if s.atEOF(after) {
					return Record{}, s.endInsideCall(m, head, after)
				}

				s.report(MalformedCall, m.Name, head.pos, fmt.Sprintf("non-literal operand %s in string concatenation", describe(after)))

				return Record{}, s.skipCall(after)
			}

			rec.Strings = append(rec.Strings, value)
			term = after
		case RoleMapping:
			rec.HasArgs = true

			if term, ok = s.skipExpr(t); !ok {
				return s.mismatched(m, head, term)
			}
		case RoleOptions:
			if isPunct(t, "{") {
				var ctx string
				if ctx, t, ok = s.parseOptions(); !ok {
					return s.mismatched(m, head, t)
				}

				rec.Context = ctx
			}

			if term, ok = s.skipExpr(t); !ok {
				return s.mismatched(m, head, term)
			}
		}

		i++

		switch {
		case isPunct(term, ","):
			continue
		case isPunct(term, ")"):
			if i < required {
				s.report(MalformedCall, m.Name, head.pos, fmt.Sprintf("missing %s argument", m.Args[i]))

				return Record{}, false
			}

			return rec, true
		case s.atEOF(term):
			return Record{}, s.endInsideCall(m, head, term)
		default:
			s.report(MalformedCall, m.Name, head.pos, fmt.Sprintf("unexpected %s after argument %d", describe(term), i))

			return Record{}, s.skipCall(term)
		}
	}
}

// foldString joins a chain of string literals separated by '+'. first must
// be a tokString. It returns the folded value and the token following the
// chain; ok is false when an operand is not a string literal, in which case
// the returned token is the offending operand.
func (s *Scanner) foldString(first token) (string, token, bool) {
	var b strings.Builder
	b.WriteString(first.value)

	for {
		t := s.next()
		if !isPunct(t, "+") {
			return b.String(), t, true
		}

		operand := s.next()
		if operand.kind != tokString {
			return "", operand, false
		}

		b.WriteString(operand.value)
	}
}

// parseOptions reads an object literal whose '{' has been consumed and
// returns the value of its "context" key when that is a string literal.
// The returned token is the one following the closing brace. ok is false
// when a closer that does not match its opener is found; the token is then
// that closer.
func (s *Scanner) parseOptions() (ctx string, t token, ok bool) {
	open := brackets{"}"}

	for {
		t = s.next()

		switch {
		case s.atEOF(t):
			return ctx, t, true
		case len(open) == 1 && (t.kind == tokIdent || t.kind == tokString):
			colon := s.next()
			if !isPunct(colon, ":") || t.value != "context" {
				s.unread(colon)

				continue
			}

			v := s.next()
			if v.kind != tokString {
				s.unread(v)

				continue
			}

			value, after, folded := s.foldString(v)
			if folded {
				ctx = value
			}

			s.unread(after)
		case !open.step(t):
			return ctx, t, false
		case len(open) == 0:
			return ctx, s.next(), true
		}
	}
}

// skipExpr consumes an argument expression starting at t, balancing
// brackets, and returns the ',' or ')' that ends it, or the end of input.
// ok is false when a closer does not match its opener; the closer is
// returned instead.
func (s *Scanner) skipExpr(t token) (token, bool) {
	var open brackets

	for {
		switch {
		case s.atEOF(t):
			return t, true
		case len(open) == 0 && (isPunct(t, ",") || isPunct(t, ")")):
			return t, true
		case !open.step(t):
			return t, false
		}

		t = s.next()
	}
}

// mismatched reports m as malformed because of the closer t. A ')' is taken
// as the end of the call, so scanning resumes right after it.
func (s *Scanner) mismatched(m *Marker, head, t token) (Record, bool) {
	s.report(MalformedCall, m.Name, head.pos, fmt.Sprintf("mismatched closing %q", t.value))

	if isPunct(t, ")") {
		return Record{}, false
	}

	return Record{}, s.skipCall(t)
}

// skipCall resumes after the closing parenthesis of a malformed call. t is
// the last token read, still at argument-list depth. A ')' ends the call
// unless it closes a parenthesis opened inside it; stray closers of other
// kinds are ignored. It always reports false, and ends the scan when the
// call never closes.
func (s *Scanner) skipCall(t token) bool {
	var open brackets

	for {
		switch {
		case s.atEOF(t):
			s.endAt(t)

			return false
		case isPunct(t, ")") && !open.expects(")"):
			return false
		default:
			open.step(t)
		}

		t = s.next()
	}
}

// brackets holds the closers still expected, innermost last.
type brackets []string

var closers = map[string]string{"(": ")", "[": "]", "{": "}"}

// step tracks t. It reports false when t is a closer that does not match
// the innermost open bracket; the stack is then left unchanged.
func (b *brackets) step(t token) bool {
	if t.kind != tokPunct {
		return true
	}

	if c, ok := closers[t.value]; ok {
		*b = append(*b, c)

		return true
	}

	if !isClose(t) {
		return true
	}

	if !b.expects(t.value) {
		return false
	}

	*b = (*b)[:len(*b)-1]

	return true
}

// expects reports whether closer matches the innermost open bracket.
func (b brackets) expects(closer string) bool {
	return len(b) > 0 && b[len(b)-1] == closer
}

// endInsideCall reports the end of input inside m's argument list and ends
// the scan. It always reports false.
func (s *Scanner) endInsideCall(m *Marker, head token, t token) bool {
	if t.kind == tokBadString {
		s.report(UnterminatedLiteral, m.Name, t.pos, "input ends inside a string literal")
	} else {
		s.report(UnterminatedCall, m.Name, head.pos, "input ends inside the argument list")
	}

	s.done = true

	return false
}

// endAt ends the scan at an end-of-input token reached while skipping.
func (s *Scanner) endAt(t token) {
	code, msg := UnterminatedCall, "input ends inside a skipped call"
	if t.kind == tokBadString {
		code, msg = UnterminatedLiteral, "input ends inside a string literal"
	}

	s.report(code, "", t.pos, msg)
	s.done = true
}

func (s *Scanner) report(code Code, marker string, pos position, msg string) {
	d := Diagnostic{
		Code:    code,
		Marker:  marker,
		Message: msg,
		Offset:  pos.Offset,
		Line:    pos.Line,
		Column:  pos.Column,
	}

	s.diags = append(s.diags, d)

	if s.onDiag != nil {
		s.onDiag(d)
	}
}

func (s *Scanner) next() token {
	if n := len(s.buf); n > 0 {
		t := s.buf[n-1]
		s.buf = s.buf[:n-1]

		return t
	}

	return s.lx.next()
}

// unread pushes tokens back so that the next call to next returns ts[0].
func (s *Scanner) unread(ts ...token) {
	for i := len(ts) - 1; i >= 0; i-- {
		s.buf = append(s.buf, ts[i])
	}
}

// atEOF reports whether t marks the end of input, including a string
// literal cut off by it.
func (s *Scanner) atEOF(t token) bool {
	return t.kind == tokEOF || (t.kind == tokBadString && t.end >= len(s.lx.src))
}

func isPunct(t token, p string) bool {
	return t.kind == tokPunct && t.value == p
}

func isClose(t token) bool {
	return isPunct(t, ")") || isPunct(t, "]") || isPunct(t, "}")
}

func describe(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokIdent:
		return fmt.Sprintf("identifier %q", t.value)
	case tokNumber:
		return fmt.Sprintf("number %s", t.value)
	case tokString:
		return "string literal"
	case tokTemplate:
		return "template literal"
	case tokRegexp:
		return "regular expression"
	case tokBadString:
		return "unterminated string literal"
	default:
		return fmt.Sprintf("%q", t.value)
	}
}
