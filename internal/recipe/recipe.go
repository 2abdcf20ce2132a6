package recipe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrNotFound is returned by a Source that does not know the requested dish.
var ErrNotFound = errors.New("recipe not found")

// Ingredient is a single line of a recipe's ingredient list.
type Ingredient struct {
	Amount  float64 `json:"amount"`
	Measure string  `json:"measure"`
	Name    string  `json:"name"`
}

// Recipe is the dish behind a [[Name]] reference in a menu document.
type Recipe struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Servings    int          `json:"servings"`
	Ingredients []Ingredient `json:"ingredients"`
	Source      string       `json:"source,omitempty"`
	UpdatedAt   string       `json:"updated_at,omitempty"`
}

// Scaled returns the ingredients scaled from the recipe's servings to persons.
// A recipe without servings is taken to serve one person.
func (r Recipe) Scaled(persons int) []Ingredient {
	servings := r.Servings
	if servings <= 0 {
		servings = 1
	}
	factor := float64(persons) / float64(servings)

	scaled := make([]Ingredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ing.Amount *= factor
		scaled[i] = ing
	}
	return scaled
}

// Source resolves dish names to recipes.
type Source interface {
	Lookup(ctx context.Context, name string) (*Recipe, error)
}

// Chain asks each source in turn and returns the first recipe found.
type Chain []Source

// Lookup implements Source.
func (c Chain) Lookup(ctx context.Context, name string) (*Recipe, error) {
	for _, src := range c {
		rec, err := src.Lookup(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// measures are the units recognised directly after an amount.
var measures = []string{
	"g", "mg", "kg", "el", "tl", "l", "ml", "liter", "scheiben", "scheibe",
	"prise", "prisen", "bund", "dose", "dosen", "becher", "pck", "stück", "stk",
	"cup", "cups", "tbsp", "tsp", "oz", "lb",
}

func isMeasure(s string) bool {
	s = strings.ToLower(strings.TrimSuffix(s, "."))
	for _, m := range measures {
		if s == m {
			return true
		}
	}
	return false
}

// ParseIngredient splits an ingredient line like "200 g Mehl", "1,5 l Milch"
// or "2 Eier" into amount, measure and name. A line without a leading amount
// counts as one unit of the whole line.
func ParseIngredient(line string) Ingredient {
	line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Ingredient{}
	}

	amountText, rest := fields[0], fields[1:]
	// "200g Mehl"
	if unit := strings.TrimLeftFunc(amountText, func(r rune) bool {
		return unicode.IsDigit(r) || r == ',' || r == '.' || r == '/'
	}); unit != "" && unit != amountText && isMeasure(unit) {
		amountText = strings.TrimSuffix(amountText, unit)
		rest = append([]string{unit}, rest...)
	}

	amount, ok := parseAmount(amountText)
	if !ok || len(rest) == 0 {
		return Ingredient{Amount: 1, Name: line}
	}

	ing := Ingredient{Amount: amount}
	if len(rest) > 1 && isMeasure(rest[0]) {
		ing.Measure = rest[0]
		rest = rest[1:]
	}
	ing.Name = strings.Join(rest, " ")
	return ing
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normalizeName is the lookup key for dish names: case and surrounding space are ignored.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
