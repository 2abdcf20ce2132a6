package menu

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorKind classifies a syntax error by the production that rejected the input.
type ErrorKind int

const (
	UnexpectedToken ErrorKind = iota
	ExpectedIntegerAfterPersonsKeyword
	ExpectedDateAfterStarttagKeyword
	ExpectedColonAfterDayName
	InvalidMenuContent
	UnrecognizedMenuItem
	UnterminatedShoppingMarker
	UnterminatedDishName
)

var errorKindNames = [...]string{
	UnexpectedToken:                    "UnexpectedToken",
	ExpectedIntegerAfterPersonsKeyword: "ExpectedIntegerAfterPersonsKeyword",
	ExpectedDateAfterStarttagKeyword:   "ExpectedDateAfterStarttagKeyword",
	ExpectedColonAfterDayName:          "ExpectedColonAfterDayName",
	InvalidMenuContent:                 "InvalidMenuContent",
	UnrecognizedMenuItem:               "UnrecognizedMenuItem",
	UnterminatedShoppingMarker:         "UnterminatedShoppingMarker",
	UnterminatedDishName:               "UnterminatedDishName",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(errorKindNames) {
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
	return errorKindNames[k]
}

// SyntaxError reports the first point at which the input stopped matching the grammar.
// Offset is a byte offset into the input; Line and Column are 1-based, Column counts runes.
type SyntaxError struct {
	Kind     ErrorKind
	Offset   int
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d: expected %s, found %s",
		e.Kind, e.Line, e.Column, e.Expected, e.Found)
}

func newSyntaxError(src string, offset int, kind ErrorKind, expected string) *SyntaxError {
	line, col := position(src, offset)
	return &SyntaxError{
		Kind:     kind,
		Offset:   offset,
		Line:     line,
		Column:   col,
		Expected: expected,
		Found:    describe(src[offset:]),
	}
}

func position(src string, offset int) (line, col int) {
	before := src[:offset]
	line = strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	col = utf8.RuneCountInString(before[lineStart:]) + 1
	return line, col
}

// describe renders what sits at the head of rest for an error message.
func describe(rest string) string {
	if rest == "" {
		return "end of input"
	}
	if rest[0] == '\n' {
		return "newline"
	}
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	const maxRunes = 12
	if utf8.RuneCountInString(rest) > maxRunes {
		runes := []rune(rest)
		rest = string(runes[:maxRunes]) + "…"
	}
	return fmt.Sprintf("%q", rest)
}

// Excerpt returns the offending source line followed by a caret under the error column.
func (e *SyntaxError) Excerpt(src string) string {
	lines := strings.Split(src, "\n")
	if e.Line < 1 || e.Line > len(lines) {
		return ""
	}
	return lines[e.Line-1] + "\n" + strings.Repeat(" ", e.Column-1) + "^"
}
