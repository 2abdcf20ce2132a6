package menu

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is a parsed meal plan: a headcount, a start date and one entry per day.
type Document struct {
	PersonsCount int       `json:"persons_count"`
	StartDate    Date      `json:"start_date"`
	Days         []DayLine `json:"days"`
}

// Date is the shape-checked YYYY-MM-DD value of the Starttag line.
// It is never validated against a calendar.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String formats the date the way it appears in a menu document.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time converts the date to a UTC time. Out-of-range parts are normalized by time.Date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON encodes the date as its menu string form.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// DayLine is a single day of the plan. Menu is nil when nothing follows the colon.
type DayLine struct {
	Day  DayWithCount `json:"day"`
	Menu Menu         `json:"menu"`
}

// DayWithCount is a day name with an optional headcount override.
type DayWithCount struct {
	Name  string `json:"name"`
	Count *int   `json:"count,omitempty"`
}

// Menu is either RestDay or MenuItems.
type Menu interface {
	isMenu()
}

// RestDay marks a day without a cooked menu ("Reste").
type RestDay struct{}

// MenuItems is a non-empty, comma separated list of items.
type MenuItems []MenuItem

func (RestDay) isMenu()   {}
func (MenuItems) isMenu() {}

// MarshalJSON tags the rest day so it can be told apart from an item list.
func (RestDay) MarshalJSON() ([]byte, error) {
	return []byte(`{"kind":"rest_day"}`), nil
}

// MarshalJSON tags the item list.
func (m MenuItems) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  string     `json:"kind"`
		Items []MenuItem `json:"items"`
	}{Kind: "menu_items", Items: m})
}

// MenuItem is either DishWithCount or ShoppingMarker.
type MenuItem interface {
	isMenuItem()
}

// Dish is a dish reference written as [[Name]].
type Dish struct {
	Name string `json:"name"`
}

// DishWithCount is a dish with an optional serving count.
type DishWithCount struct {
	Dish  Dish `json:"dish"`
	Count *int `json:"count,omitempty"`
}

// ShoppingMarker is a shopping note written as ⟨Text⟩.
type ShoppingMarker struct {
	Text string `json:"text"`
}

func (DishWithCount) isMenuItem()  {}
func (ShoppingMarker) isMenuItem() {}

// MarshalJSON tags the dish item.
func (d DishWithCount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind  string `json:"kind"`
		Name  string `json:"name"`
		Count *int   `json:"count,omitempty"`
	}{Kind: "dish", Name: d.Dish.Name, Count: d.Count})
}

// MarshalJSON tags the shopping marker.
func (s ShoppingMarker) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
	}{Kind: "shopping_marker", Text: s.Text})
}

// DateOf returns the calendar day of the i-th day line, counting from StartDate.
func (d *Document) DateOf(i int) time.Time {
	return d.StartDate.Time().AddDate(0, 0, i)
}

// Persons returns the headcount in effect for the day: its own count if given,
// the document headcount otherwise.
func (l DayLine) Persons(doc *Document) int {
	if l.Day.Count != nil {
		return *l.Day.Count
	}
	return doc.PersonsCount
}

// IsRestDay reports whether the day is marked "Reste".
func (l DayLine) IsRestDay() bool {
	_, ok := l.Menu.(RestDay)
	return ok
}

// Items returns the day's menu items, or nil for rest days and empty days.
func (l DayLine) Items() []MenuItem {
	items, _ := l.Menu.(MenuItems)
	return items
}

// Dishes lists the distinct dish names of the document in order of first appearance.
func (d *Document) Dishes() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, day := range d.Days {
		for _, item := range day.Items() {
			dish, ok := item.(DishWithCount)
			if !ok {
				continue
			}
			if _, dup := seen[dish.Dish.Name]; dup {
				continue
			}
			seen[dish.Dish.Name] = struct{}{}
			names = append(names, dish.Dish.Name)
		}
	}
	return names
}
