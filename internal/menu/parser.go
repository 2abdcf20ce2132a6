package menu

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// Parse parses a complete menu document:
//
//	Personen: <integer>
//	Starttag: <yyyy-mm-dd>
//	<day>[(<count>)]: [Reste | <item>{, <item>}]
//	...
//
// where an item is either [[dish]][(<count>)] or ⟨shopping note⟩. Spaces and
// tabs between tokens are ignored, newlines separate lines and a single
// trailing newline is allowed. On failure the returned error is a *SyntaxError
// describing the first point of failure and no document is returned.
func Parse(src string) (*Document, error) {
	p := &parser{scanner: scanner{src: src}}
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseBytes parses a menu document held in b.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(string(b))
}

// ParseReader reads r to the end and parses the result.
func ParseReader(r io.Reader) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu document: %w", err)
	}
	return ParseBytes(b)
}

// ParseFile reads and parses the menu document at path.
func ParseFile(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu document %s: %w", path, err)
	}
	doc, err := ParseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

type parser struct {
	scanner
}

func (p *parser) fail(kind ErrorKind, expected string) *SyntaxError {
	return newSyntaxError(p.src, p.pos, kind, expected)
}

// document drives Start -> AfterPersonsLine -> AfterStarttagLine -> day lines -> End.
func (p *parser) document() (*Document, error) {
	doc := &Document{}

	persons, err := p.personsLine()
	if err != nil {
		return nil, err
	}
	doc.PersonsCount = persons

	if err := p.newline(); err != nil {
		return nil, err
	}

	start, err := p.starttagLine()
	if err != nil {
		return nil, err
	}
	doc.StartDate = start

	for {
		p.skipSpace()
		if p.eof() {
			return doc, nil
		}
		if err := p.newline(); err != nil {
			return nil, err
		}
		if p.atTrailingEnd() {
			return doc, nil
		}
		day, err := p.dayLine()
		if err != nil {
			return nil, err
		}
		doc.Days = append(doc.Days, day)
	}
}

func (p *parser) newline() error {
	p.skipSpace()
	if !p.literal("\n") {
		return p.fail(UnexpectedToken, "newline")
	}
	return nil
}

// atTrailingEnd reports whether only spaces and tabs remain, which makes the
// newline just consumed the optional trailing one.
func (p *parser) atTrailingEnd() bool {
	for i := p.pos; i < len(p.src); i++ {
		if p.src[i] != ' ' && p.src[i] != '\t' {
			return false
		}
	}
	p.pos = len(p.src)
	return true
}

func (p *parser) personsLine() (int, error) {
	p.skipSpace()
	if !p.literal(keywordPersons) {
		return 0, p.fail(UnexpectedToken, strconv.Quote(keywordPersons))
	}
	p.skipSpace()
	start := p.pos
	digits, ok := p.integer()
	if !ok {
		return 0, p.fail(ExpectedIntegerAfterPersonsKeyword, "integer")
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		p.pos = start
		return 0, p.fail(ExpectedIntegerAfterPersonsKeyword, "integer in range")
	}
	return n, nil
}

func (p *parser) starttagLine() (Date, error) {
	p.skipSpace()
	if !p.literal(keywordStarttag) {
		return Date{}, p.fail(UnexpectedToken, strconv.Quote(keywordStarttag))
	}
	p.skipSpace()
	y, m, d, ok := p.date()
	if !ok {
		return Date{}, p.fail(ExpectedDateAfterStarttagKeyword, "date (YYYY-MM-DD)")
	}
	// Fixed-width digit groups always fit an int.
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	return Date{Year: year, Month: month, Day: day}, nil
}

func (p *parser) dayLine() (DayLine, error) {
	day, err := p.dayWithCount()
	if err != nil {
		return DayLine{}, err
	}
	p.skipSpace()
	if !p.literal(":") {
		return DayLine{}, p.fail(ExpectedColonAfterDayName, `":"`)
	}
	p.skipSpace()
	if p.eof() || p.peekByte() == '\n' {
		return DayLine{Day: day}, nil
	}
	m, err := p.menu()
	if err != nil {
		return DayLine{}, err
	}
	return DayLine{Day: day, Menu: m}, nil
}

func (p *parser) dayWithCount() (DayWithCount, error) {
	name, ok := p.dayName()
	if !ok {
		return DayWithCount{}, p.fail(UnexpectedToken, "day name")
	}
	day := DayWithCount{Name: name}
	if p.peekByte() == '(' {
		n, err := p.countValue()
		if err != nil {
			return DayWithCount{}, err
		}
		day.Count = n
	}
	return day, nil
}

// countValue parses a parenthesized count at the current position.
func (p *parser) countValue() (*int, error) {
	start := p.pos
	digits, ok := p.count()
	if !ok {
		return nil, p.fail(UnexpectedToken, "count such as (3)")
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		p.pos = start
		return nil, p.fail(UnexpectedToken, "count in range")
	}
	return &n, nil
}

// menu dispatches on the first token: the rest day keyword, else an item list.
func (p *parser) menu() (Menu, error) {
	if p.literal(keywordRestDay) {
		return RestDay{}, nil
	}
	if !p.atMenuItem() {
		return nil, p.fail(InvalidMenuContent, fmt.Sprintf("%q, %q or %q", keywordRestDay, dishOpen, markerOpen))
	}
	var items MenuItems
	for {
		item, err := p.menuItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		p.skipSpace()
		if !p.literal(",") {
			return items, nil
		}
		p.skipSpace()
	}
}

func (p *parser) atMenuItem() bool {
	return p.hasPrefix(markerOpen) || p.hasPrefix(dishOpen)
}

func (p *parser) menuItem() (MenuItem, error) {
	switch {
	case p.hasPrefix(markerOpen):
		return p.shoppingMarker()
	case p.hasPrefix(dishOpen):
		return p.dishWithCount()
	default:
		return nil, p.fail(UnrecognizedMenuItem, fmt.Sprintf("%q or %q", dishOpen, markerOpen))
	}
}

func (p *parser) shoppingMarker() (ShoppingMarker, error) {
	start := p.pos
	p.literal(markerOpen)
	text, ok := p.delimited(markerClose, markerClose)
	if !ok {
		p.pos = start
		return ShoppingMarker{}, p.fail(UnterminatedShoppingMarker, fmt.Sprintf("non-empty text closed by %q", markerClose))
	}
	return ShoppingMarker{Text: text}, nil
}

func (p *parser) dishWithCount() (DishWithCount, error) {
	dish, err := p.dish()
	if err != nil {
		return DishWithCount{}, err
	}
	item := DishWithCount{Dish: dish}
	p.skipSpace()
	if p.peekByte() == '(' {
		n, err := p.countValue()
		if err != nil {
			return DishWithCount{}, err
		}
		item.Count = n
	}
	return item, nil
}

func (p *parser) dish() (Dish, error) {
	start := p.pos
	p.literal(dishOpen)
	name, ok := p.delimited("]", dishClose)
	if !ok {
		p.pos = start
		return Dish{}, p.fail(UnterminatedDishName, fmt.Sprintf("non-empty dish name closed by %q", dishClose))
	}
	return Dish{Name: name}, nil
}
