package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RecipeStore is a file-based, versioned store for ingested recipes. Each
// entry is a JSON file named <id>_<version>.json.
type RecipeStore struct {
	basePath string
}

// NewRecipeStore creates a new RecipeStore and ensures the base directory exists.
func NewRecipeStore(basePath string) (*RecipeStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &RecipeStore{basePath: basePath}, nil
}

// sanitizeTimestamp makes the timestamp safe for filenames.
func sanitizeTimestamp(ts string) string {
	return strings.ReplaceAll(ts, ":", "-")
}

// getVersionedPath returns the full path for a given recipe ID and version.
func (s *RecipeStore) getVersionedPath(recipeID, updatedAt string) string {
	filename := fmt.Sprintf("%s_%s.json", recipeID, sanitizeTimestamp(updatedAt))
	return filepath.Join(s.basePath, filename)
}

// Save stores v as the given version of a recipe.
func (s *RecipeStore) Save(recipeID, updatedAt string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	filePath := s.getVersionedPath(recipeID, updatedAt)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write recipe file: %w", err)
	}
	return nil
}

// Load decodes a specific version of a recipe into v.
func (s *RecipeStore) Load(recipeID, updatedAt string, v any) error {
	return loadFile(s.getVersionedPath(recipeID, updatedAt), v)
}

// Exists checks if a specific version of a recipe file exists.
func (s *RecipeStore) Exists(recipeID, updatedAt string) bool {
	_, err := os.Stat(s.getVersionedPath(recipeID, updatedAt))
	return err == nil
}

// RemoveStaleVersions removes all files associated with a recipeID.
// This should be called before saving a new version to ensure only the latest exists.
func (s *RecipeStore) RemoveStaleVersions(recipeID string) error {
	pattern := filepath.Join(s.basePath, fmt.Sprintf("%s_*.json", recipeID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to glob stale files: %w", err)
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("failed to remove stale file %s: %w", match, err)
		}
	}
	return nil
}

// ListAll calls decode for every stored file in name order. decode receives a
// function that unmarshals the file into its argument.
func (s *RecipeStore) ListAll(decode func(load func(v any) error) error) error {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to glob recipe files: %w", err)
	}
	sort.Strings(matches)

	for _, match := range matches {
		path := match
		if err := decode(func(v any) error { return loadFile(path, v) }); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read recipe file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal recipe %s: %w", filepath.Base(path), err)
	}
	return nil
}
