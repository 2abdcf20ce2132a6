package shopping

import (
	"context"
	"errors"
	"strings"
	"testing"

	"menuplan/internal/menu"
	"menuplan/internal/recipe"
)

type fakeSource map[string]*recipe.Recipe

func (f fakeSource) Lookup(_ context.Context, name string) (*recipe.Recipe, error) {
	if rec, ok := f[name]; ok {
		return rec, nil
	}
	return nil, recipe.ErrNotFound
}

var testRecipes = fakeSource{
	"Curry": {
		Title:    "Curry",
		Servings: 4,
		Ingredients: []recipe.Ingredient{
			{Amount: 400, Measure: "g", Name: "Reis"},
			{Amount: 2, Name: "Paprika"},
		},
	},
	"Salat": {
		Title:    "Salat",
		Servings: 2,
		Ingredients: []recipe.Ingredient{
			{Amount: 1, Name: "Gurke"},
			{Amount: 100, Measure: "G", Name: "reis"},
		},
	},
}

const weekPlan = `Personen: 2
Starttag: 2024-01-01
Montag: [[Curry]], [[Salat]](4)
Dienstag(3): ⟨Wochenmarkt⟩, [[Curry]]
Mittwoch: Reste
Donnerstag: [[Pizza]], [[Pizza]]
`

func mustParse(t *testing.T, src string) *menu.Document {
	t.Helper()
	doc, err := menu.Parse(src)
	if err != nil {
		t.Fatalf("Failed to parse plan: %v", err)
	}
	return doc
}

func TestBuild(t *testing.T) {
	list, err := Build(context.Background(), mustParse(t, weekPlan), testRecipes)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(list.Trips) != 2 {
		t.Fatalf("Expected 2 trips, got %d", len(list.Trips))
	}

	first := list.Trips[0]
	if first.Marker != "" || first.Date.Format("2006-01-02") != "2024-01-01" {
		t.Errorf("Unexpected first trip header: %q %v", first.Marker, first.Date)
	}
	if len(first.Items) != 3 {
		t.Fatalf("Expected 3 items on the first trip, got %+v", first.Items)
	}
	rice := first.Items[0]
	if rice.Amount != 400 || rice.Measure != "g" {
		t.Errorf("Expected 400 g rice summed over both dishes, got %+v", rice)
	}
	if len(rice.Dishes) != 2 || rice.Dishes[0] != "Curry" || rice.Dishes[1] != "Salat" {
		t.Errorf("Expected rice to list both dishes, got %v", rice.Dishes)
	}
	if first.Items[2].Name != "Gurke" || first.Items[2].Amount != 2 {
		t.Errorf("Expected dish count to scale the salad to 4 persons, got %+v", first.Items[2])
	}

	second := list.Trips[1]
	if second.Marker != "Wochenmarkt" || second.Date.Format("2006-01-02") != "2024-01-02" {
		t.Errorf("Unexpected second trip header: %q %v", second.Marker, second.Date)
	}
	if len(second.Dishes) != 1 || second.Dishes[0].Persons != 3 {
		t.Errorf("Expected the day count to apply, got %+v", second.Dishes)
	}
	if second.Items[1].Amount != 1.5 {
		t.Errorf("Expected 1.5 peppers, got %v", second.Items[1].Amount)
	}

	if len(list.Missing) != 1 || list.Missing[0] != "Pizza" {
		t.Errorf("Expected Pizza to be reported once as missing, got %v", list.Missing)
	}

	t.Run("LeadingMarkerNamesFirstTrip", func(t *testing.T) {
		doc := mustParse(t, "Personen: 4\nStarttag: 2024-03-04\nMontag: ⟨Aldi⟩, [[Curry]]")
		list, err := Build(context.Background(), doc, testRecipes)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(list.Trips) != 1 || list.Trips[0].Marker != "Aldi" {
			t.Errorf("Expected a single trip marked Aldi, got %+v", list.Trips)
		}
	})

	t.Run("EmptyPlan", func(t *testing.T) {
		list, err := Build(context.Background(), mustParse(t, "Personen: 1\nStarttag: 2024-01-01"), testRecipes)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !list.IsEmpty() {
			t.Error("Expected an empty list")
		}
	})

	t.Run("SourceError", func(t *testing.T) {
		failing := recipe.Chain{errorSource{}}
		_, err := Build(context.Background(), mustParse(t, weekPlan), failing)
		if err == nil || !strings.Contains(err.Error(), "Curry") {
			t.Errorf("Expected the lookup error for Curry, got %v", err)
		}
	})
}

type errorSource struct{}

func (errorSource) Lookup(context.Context, string) (*recipe.Recipe, error) {
	return nil, errors.New("permission denied")
}

func TestMarkdown(t *testing.T) {
	list, err := Build(context.Background(), mustParse(t, weekPlan), testRecipes)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	md := list.Markdown()
	for _, want := range []string{
		"# Shopping list\n",
		"## Trip 1 (Mon 2024-01-01)\n",
		"- [ ] 400 g Reis\n",
		"## Trip 2 (Tue 2024-01-02): Wochenmarkt\n",
		"- [ ] 1.5 Paprika\n",
		"## Dishes without recipe\n\n- Pizza\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected markdown to contain %q, got:\n%s", want, md)
		}
	}

	clustered := list.ClusteredMarkdown()
	for _, want := range []string{
		"### Salat (Mon 2024-01-01, 4 persons)\n",
		"- [ ] 200 G reis\n",
		"### Curry (Tue 2024-01-02, 3 persons)\n",
	} {
		if !strings.Contains(clustered, want) {
			t.Errorf("Expected clustered markdown to contain %q, got:\n%s", want, clustered)
		}
	}
}
