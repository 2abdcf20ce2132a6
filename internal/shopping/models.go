package shopping

import (
	"fmt"
	"math"
	"strings"
	"time"

	"menuplan/internal/recipe"
)

// List is the shopping list of one menu plan, split into trips.
type List struct {
	ID        int64     `json:"id"`
	PlanID    string    `json:"plan_id"`
	Trips     []Trip    `json:"trips"`
	Missing   []string  `json:"missing,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Trip holds everything to buy on one shopping trip. The first trip of a
// plan starts on the start date without a marker; every shopping marker
// in the plan starts a new one.
type Trip struct {
	Marker string        `json:"marker,omitempty"`
	Date   time.Time     `json:"date"`
	Items  []Item        `json:"items"`
	Dishes []DishPortion `json:"dishes"`
}

// Item is an ingredient summed over all dishes of a trip.
type Item struct {
	Name    string   `json:"name"`
	Measure string   `json:"measure,omitempty"`
	Amount  float64  `json:"amount"`
	Dishes  []string `json:"dishes"`
}

// DishPortion is one dish of a trip with its ingredients scaled to Persons.
type DishPortion struct {
	Dish        string              `json:"dish"`
	Date        time.Time           `json:"date"`
	Persons     int                 `json:"persons"`
	Ingredients []recipe.Ingredient `json:"ingredients"`
}

// IsEmpty reports whether no trip has anything to buy.
func (l *List) IsEmpty() bool {
	for _, t := range l.Trips {
		if len(t.Items) > 0 {
			return false
		}
	}
	return true
}

func (t Trip) heading(n int) string {
	h := fmt.Sprintf("## Trip %d (%s)", n, t.Date.Format("Mon 2006-01-02"))
	if t.Marker != "" {
		h += ": " + t.Marker
	}
	return h
}

// Markdown renders the list with one bullet per aggregated item.
func (l *List) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Shopping list\n")
	for i, trip := range l.Trips {
		if len(trip.Items) == 0 && trip.Marker == "" {
			continue
		}
		sb.WriteString("\n" + trip.heading(i+1) + "\n\n")
		for _, item := range trip.Items {
			sb.WriteString("- [ ] " + formatAmount(item.Amount, item.Measure, item.Name) + "\n")
		}
	}
	l.writeMissing(&sb)
	return sb.String()
}

// ClusteredMarkdown renders the list grouped by dish instead of aggregated.
func (l *List) ClusteredMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Shopping list by dish\n")
	for i, trip := range l.Trips {
		if len(trip.Dishes) == 0 && trip.Marker == "" {
			continue
		}
		sb.WriteString("\n" + trip.heading(i+1) + "\n")
		for _, d := range trip.Dishes {
			fmt.Fprintf(&sb, "\n### %s (%s, %d persons)\n\n", d.Dish, d.Date.Format("Mon 2006-01-02"), d.Persons)
			for _, ing := range d.Ingredients {
				sb.WriteString("- [ ] " + formatAmount(ing.Amount, ing.Measure, ing.Name) + "\n")
			}
		}
	}
	l.writeMissing(&sb)
	return sb.String()
}

func (l *List) writeMissing(sb *strings.Builder) {
	if len(l.Missing) == 0 {
		return
	}
	sb.WriteString("\n## Dishes without recipe\n\n")
	for _, name := range l.Missing {
		sb.WriteString("- " + name + "\n")
	}
}

func formatAmount(amount float64, measure, name string) string {
	return recipe.FormatIngredient(recipe.Ingredient{
		Amount:  math.Round(amount*100) / 100,
		Measure: measure,
		Name:    name,
	})
}
