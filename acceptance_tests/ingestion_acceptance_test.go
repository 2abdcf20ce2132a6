package acceptance_tests

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"menuplan/internal/app"
	"menuplan/internal/config"
	"menuplan/internal/menu"
)

const ghostPosts = `{
	"posts": [
		{
			"id": "1",
			"title": "Linsensuppe",
			"url": "https://blog.test/linsensuppe/",
			"updated_at": "2023-10-27T10:00:00Z",
			"html": "<p>Für 4 Personen</p><h2>Zutaten</h2><ul><li>250 g Linsen</li><li>1 l Brühe</li></ul>"
		}
	],
	"meta": {"pagination": {"page": 1, "pages": 1, "next": null}}
}`

const weekPlan = `Personen: 2
Starttag: 2024-01-01
Montag: [[Linsensuppe]], [[Brot]](4)
Dienstag(4): ⟨Wochenmarkt⟩, [[Linsensuppe]]
Mittwoch: Reste
`

// TestIngestAndPlan runs the full flow against a fake Ghost server: ingest
// twice (the second run must not re-process anything), then import a plan
// that uses both an ingested recipe and a local dish file.
func TestIngestAndPlan(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ghost/api/content/posts/") {
			t.Errorf("Unexpected request path %s", r.URL.Path)
		}
		requests.Add(1)
		fmt.Fprint(w, ghostPosts)
	}))
	defer server.Close()

	dir := t.TempDir()
	dishRoot := filepath.Join(dir, "dishes")
	if err := os.MkdirAll(filepath.Join(dishRoot, "backen"), 0755); err != nil {
		t.Fatal(err)
	}
	bread := "---\nportionen: 2\n---\n# Brot\n\n## Zutaten\n\n- 250 g Mehl\n"
	if err := os.WriteFile(filepath.Join(dishRoot, "backen", "Brot.md"), []byte(bread), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DATABASE_PATH", filepath.Join(dir, "data", "menuplan.db"))
	t.Setenv("RECIPE_STORAGE_PATH", filepath.Join(dir, "data", "recipes"))
	t.Setenv("DISH_ROOT", dishRoot)
	t.Setenv("GHOST_API_URL", server.URL+"/")
	t.Setenv("GHOST_CONTENT_API_KEY", "content-key")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := config.Load(filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	application, cleanup, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to bootstrap: %v", err)
	}
	defer cleanup()

	first, err := application.IngestRecipes(ctx)
	if err != nil {
		t.Fatalf("First ingestion failed: %v", err)
	}
	if first.Saved != 1 {
		t.Errorf("Expected 1 saved recipe, got %+v", first)
	}

	second, err := application.IngestRecipes(ctx)
	if err != nil {
		t.Fatalf("Second ingestion failed: %v", err)
	}
	if second.Saved != 0 || second.Skipped != 1 {
		t.Errorf("Expected the second run to skip the recipe, got %+v", second)
	}
	if requests.Load() != 2 {
		t.Errorf("Expected 2 Ghost requests, got %d", requests.Load())
	}

	imported, err := application.ImportPlan(ctx, "user", weekPlan)
	if err != nil {
		t.Fatalf("Failed to import plan: %v", err)
	}
	list := imported.List
	if len(list.Missing) != 0 {
		t.Fatalf("Expected all dishes to resolve, missing %v", list.Missing)
	}
	if len(list.Trips) != 2 {
		t.Fatalf("Expected 2 trips, got %d", len(list.Trips))
	}

	// Monday: soup for 2 (125 g lentils), bread for 4 (500 g flour).
	// Tuesday after the market marker: soup for 4 (250 g lentils).
	md := list.Markdown()
	for _, want := range []string{"- [ ] 125 g Linsen", "- [ ] 500 g Mehl", "- [ ] 250 g Linsen", "Wochenmarkt"} {
		if !strings.Contains(md, want) {
			t.Errorf("Expected %q in shopping list:\n%s", want, md)
		}
	}

	plans, err := application.RecentPlans(ctx, "user", 1)
	if err != nil || len(plans) != 1 {
		t.Fatalf("Expected the stored plan, got %v (%v)", plans, err)
	}
	if _, ok := plans[0].Document.Days[2].Menu.(menu.RestDay); !ok {
		t.Errorf("Expected Wednesday to be a rest day, got %#v", plans[0].Document.Days[2].Menu)
	}
}
