package storage

import (
	"os"
	"path/filepath"
	"testing"
)

type testRecipe struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
}

func TestRecipeStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewRecipeStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create RecipeStore: %v", err)
	}

	recipeID := "test-recipe-123"
	version := "2024-01-02T10:00:00Z"
	rec := testRecipe{
		Title:       "Test Recipe",
		Ingredients: []string{"200 g Mehl"},
	}

	t.Run("CheckExists-False", func(t *testing.T) {
		if store.Exists(recipeID, version) {
			t.Errorf("Expected recipe '%s' to not exist, but it does", recipeID)
		}
	})

	t.Run("Save", func(t *testing.T) {
		if err := store.Save(recipeID, version, rec); err != nil {
			t.Fatalf("Failed to save recipe: %v", err)
		}

		filePath := filepath.Join(tempDir, "test-recipe-123_2024-01-02T10-00-00Z.json")
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			t.Errorf("Expected file '%s' to be created, but it wasn't", filePath)
		}
	})

	t.Run("CheckExists-True", func(t *testing.T) {
		if !store.Exists(recipeID, version) {
			t.Errorf("Expected recipe '%s' to exist, but it doesn't", recipeID)
		}
	})

	t.Run("Load", func(t *testing.T) {
		var loaded testRecipe
		if err := store.Load(recipeID, version, &loaded); err != nil {
			t.Fatalf("Failed to load recipe: %v", err)
		}
		if loaded.Title != rec.Title {
			t.Errorf("Expected title '%s', got '%s'", rec.Title, loaded.Title)
		}
		if len(loaded.Ingredients) != 1 || loaded.Ingredients[0] != "200 g Mehl" {
			t.Errorf("Expected ingredient '200 g Mehl', got %v", loaded.Ingredients)
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		if err := store.Save("other", version, testRecipe{Title: "Other"}); err != nil {
			t.Fatalf("Failed to save recipe: %v", err)
		}

		var titles []string
		err := store.ListAll(func(load func(v any) error) error {
			var r testRecipe
			if err := load(&r); err != nil {
				return err
			}
			titles = append(titles, r.Title)
			return nil
		})
		if err != nil {
			t.Fatalf("Failed to list recipes: %v", err)
		}
		if len(titles) != 2 || titles[0] != "Other" {
			t.Errorf("Expected [Other Test Recipe], got %v", titles)
		}
	})

	t.Run("RemoveStaleVersions", func(t *testing.T) {
		if err := store.RemoveStaleVersions(recipeID); err != nil {
			t.Fatalf("Failed to remove stale versions: %v", err)
		}
		if store.Exists(recipeID, version) {
			t.Error("Expected stale version to be removed")
		}
	})

	t.Run("Load-NotFound", func(t *testing.T) {
		var r testRecipe
		if err := store.Load("non-existent-recipe", version, &r); err == nil {
			t.Fatal("Expected an error for loading non-existent recipe, got nil")
		}
	})
}
