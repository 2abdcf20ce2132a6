package planner

import (
	"fmt"
	"strings"
	"time"

	"menuplan/internal/menu"
)

// MealPlan is a stored menu document. Source is the text as submitted;
// Document is parsed from it.
type MealPlan struct {
	ID        string
	UserID    string
	Source    string
	Document  *menu.Document
	CreatedAt time.Time
}

// Summary renders a short overview of the plan, one line per day.
func (p *MealPlan) Summary() string {
	doc := p.Document
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan for %d persons starting %s (%d days)\n", doc.PersonsCount, doc.StartDate, len(doc.Days))

	for i, day := range doc.Days {
		fmt.Fprintf(&sb, "%s %s", doc.DateOf(i).Format("Mon 02.01."), day.Day.Name)
		if day.Day.Count != nil {
			fmt.Fprintf(&sb, " (%d)", *day.Day.Count)
		}
		sb.WriteString(": ")

		switch {
		case day.IsRestDay():
			sb.WriteString("leftovers")
		case day.Menu == nil:
			sb.WriteString("-")
		default:
			var parts []string
			for _, item := range day.Items() {
				switch it := item.(type) {
				case menu.DishWithCount:
					s := it.Dish.Name
					if it.Count != nil {
						s += fmt.Sprintf(" (%d)", *it.Count)
					}
					parts = append(parts, s)
				case menu.ShoppingMarker:
					parts = append(parts, "🛒 "+it.Text)
				}
			}
			sb.WriteString(strings.Join(parts, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
