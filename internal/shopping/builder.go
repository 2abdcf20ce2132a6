package shopping

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"menuplan/internal/menu"
	"menuplan/internal/recipe"
)

// Build resolves every dish of doc through src and sums the scaled
// ingredients per trip. Dishes src does not know are listed in Missing;
// any other lookup error aborts the build.
func Build(ctx context.Context, doc *menu.Document, src recipe.Source) (*List, error) {
	b := &builder{list: &List{}, seenMissing: make(map[string]bool)}
	b.startTrip("", doc.DateOf(0))

	for i, day := range doc.Days {
		date := doc.DateOf(i)
		for _, item := range day.Items() {
			switch it := item.(type) {
			case menu.ShoppingMarker:
				b.startTrip(it.Text, date)
			case menu.DishWithCount:
				persons := day.Persons(doc)
				if it.Count != nil {
					persons = *it.Count
				}
				if err := b.addDish(ctx, src, it.Dish.Name, persons, date); err != nil {
					return nil, err
				}
			}
		}
	}
	return b.list, nil
}

type builder struct {
	list        *List
	index       map[string]int
	seenMissing map[string]bool
}

func (b *builder) current() *Trip {
	return &b.list.Trips[len(b.list.Trips)-1]
}

// startTrip opens a new trip, reusing the current one while it is still
// unmarked and empty.
func (b *builder) startTrip(marker string, date time.Time) {
	if n := len(b.list.Trips); n > 0 {
		if cur := b.current(); cur.Marker == "" && len(cur.Dishes) == 0 {
			cur.Marker = marker
			cur.Date = date
			return
		}
	}
	b.list.Trips = append(b.list.Trips, Trip{Marker: marker, Date: date})
	b.index = make(map[string]int)
}

func (b *builder) addDish(ctx context.Context, src recipe.Source, name string, persons int, date time.Time) error {
	rec, err := src.Lookup(ctx, name)
	if errors.Is(err, recipe.ErrNotFound) {
		if !b.seenMissing[name] {
			b.seenMissing[name] = true
			b.list.Missing = append(b.list.Missing, name)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up dish %q: %w", name, err)
	}

	trip := b.current()
	scaled := rec.Scaled(persons)
	trip.Dishes = append(trip.Dishes, DishPortion{
		Dish:        name,
		Date:        date,
		Persons:     persons,
		Ingredients: scaled,
	})

	for _, ing := range scaled {
		key := strings.ToLower(ing.Name) + "\x00" + strings.ToLower(ing.Measure)
		if i, ok := b.index[key]; ok {
			item := &trip.Items[i]
			item.Amount += ing.Amount
			if !slices.Contains(item.Dishes, name) {
				item.Dishes = append(item.Dishes, name)
			}
			continue
		}
		b.index[key] = len(trip.Items)
		trip.Items = append(trip.Items, Item{
			Name:    ing.Name,
			Measure: ing.Measure,
			Amount:  ing.Amount,
			Dishes:  []string{name},
		})
	}
	return nil
}
