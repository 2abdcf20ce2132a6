package app

import (
	"fmt"
	"html"
	"math"
	"strings"

	"menuplan/internal/menu"
	"menuplan/internal/planner"
	"menuplan/internal/recipe"
	"menuplan/internal/shopping"
)

// RenderPlanHTML renders a plan and its shopping list as a Ghost post body.
func RenderPlanHTML(plan *planner.MealPlan, list *shopping.List) string {
	doc := plan.Document
	var sb strings.Builder

	fmt.Fprintf(&sb, "<p>For %d persons, starting %s.</p>", doc.PersonsCount, doc.StartDate)
	sb.WriteString("<table><thead><tr><th>Date</th><th>Day</th><th>Menu</th></tr></thead><tbody>")
	for i, day := range doc.Days {
		name := html.EscapeString(day.Day.Name)
		if day.Day.Count != nil {
			name += fmt.Sprintf(" (%d)", *day.Day.Count)
		}
		fmt.Fprintf(&sb, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
			doc.DateOf(i).Format("02.01.2006"), name, renderMenu(day))
	}
	sb.WriteString("</tbody></table>")

	if list == nil || list.IsEmpty() {
		return sb.String()
	}

	sb.WriteString("<h2>Shopping list</h2>")
	for _, trip := range list.Trips {
		if len(trip.Items) == 0 {
			continue
		}
		heading := trip.Date.Format("02.01.2006")
		if trip.Marker != "" {
			heading += ": " + trip.Marker
		}
		fmt.Fprintf(&sb, "<h3>%s</h3><ul>", html.EscapeString(heading))
		for _, item := range trip.Items {
			line := recipe.FormatIngredient(recipe.Ingredient{
				Amount:  math.Round(item.Amount*100) / 100,
				Measure: item.Measure,
				Name:    item.Name,
			})
			fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(line))
		}
		sb.WriteString("</ul>")
	}
	if len(list.Missing) > 0 {
		fmt.Fprintf(&sb, "<p><i>Without recipe: %s</i></p>", html.EscapeString(strings.Join(list.Missing, ", ")))
	}
	return sb.String()
}

func renderMenu(day menu.DayLine) string {
	if day.IsRestDay() {
		return "<i>Leftovers</i>"
	}
	var parts []string
	for _, item := range day.Items() {
		switch it := item.(type) {
		case menu.DishWithCount:
			s := html.EscapeString(it.Dish.Name)
			if it.Count != nil {
				s += fmt.Sprintf(" (%d)", *it.Count)
			}
			parts = append(parts, s)
		case menu.ShoppingMarker:
			parts = append(parts, "🛒 <i>"+html.EscapeString(it.Text)+"</i>")
		}
	}
	return strings.Join(parts, "<br>")
}
