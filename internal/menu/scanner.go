package menu

import (
	"strings"
)

const (
	keywordPersons  = "Personen:"
	keywordStarttag = "Starttag:"
	keywordRestDay  = "Reste"

	dishOpen    = "[["
	dishClose   = "]]"
	markerOpen  = "⟨"
	markerClose = "⟩"
)

// scanner matches tokens at the current position of src. Every scan either
// consumes its match and reports success or leaves pos untouched.
type scanner struct {
	src string
	pos int
}

func (s *scanner) rest() string {
	return s.src[s.pos:]
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) peekByte() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

// skipSpace skips spaces and tabs. Newlines are tokens and are never skipped.
func (s *scanner) skipSpace() {
	for !s.eof() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func (s *scanner) hasPrefix(lit string) bool {
	return strings.HasPrefix(s.rest(), lit)
}

func (s *scanner) literal(lit string) bool {
	if !s.hasPrefix(lit) {
		return false
	}
	s.pos += len(lit)
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// digits matches exactly n ASCII digits, or one or more when n is 0.
func (s *scanner) digits(n int) (string, bool) {
	end := s.pos
	for end < len(s.src) && isDigit(s.src[end]) && (n == 0 || end-s.pos < n) {
		end++
	}
	if end == s.pos || (n > 0 && end-s.pos != n) {
		return "", false
	}
	tok := s.src[s.pos:end]
	s.pos = end
	return tok, true
}

func (s *scanner) integer() (string, bool) {
	return s.digits(0)
}

// date matches the shape dddd-dd-dd and returns its three digit groups.
func (s *scanner) date() (year, month, day string, ok bool) {
	start := s.pos
	year, ok = s.digits(4)
	if ok && s.literal("-") {
		month, ok = s.digits(2)
		if ok && s.literal("-") {
			day, ok = s.digits(2)
			if ok {
				return year, month, day, true
			}
		}
	}
	s.pos = start
	return "", "", "", false
}

// count matches "(" digits ")" and returns the digits.
func (s *scanner) count() (string, bool) {
	start := s.pos
	if !s.literal("(") {
		return "", false
	}
	n, ok := s.digits(0)
	if !ok || !s.literal(")") {
		s.pos = start
		return "", false
	}
	return n, true
}

// dayName matches one or more characters up to ':', '(' or a newline.
// The returned name has its surrounding spaces and tabs trimmed.
func (s *scanner) dayName() (string, bool) {
	end := s.pos
	for end < len(s.src) {
		c := s.src[end]
		if c == ':' || c == '(' || c == '\n' {
			break
		}
		end++
	}
	if end == s.pos {
		return "", false
	}
	name := strings.Trim(s.src[s.pos:end], " \t")
	s.pos = end
	return name, true
}

// delimited scans the body after an already consumed opening delimiter up to
// the first occurrence of stop, bounded by the end of the line. The body must
// not contain stop, and on success both the body and the closing delimiter are
// consumed. found reports whether close was seen before the line ended.
func (s *scanner) delimited(stop, close string) (body string, found bool) {
	rest := s.rest()
	lineEnd := strings.IndexByte(rest, '\n')
	if lineEnd < 0 {
		lineEnd = len(rest)
	}
	i := strings.Index(rest[:lineEnd], stop)
	if i <= 0 || !strings.HasPrefix(rest[i:], close) {
		return "", false
	}
	s.pos += i + len(close)
	return rest[:i], true
}
