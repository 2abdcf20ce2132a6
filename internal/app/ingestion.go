package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"menuplan/internal/ghost"
	"menuplan/internal/recipe"
)

// IngestStats summarizes an ingestion run.
type IngestStats struct {
	Fetched int
	Skipped int
	Saved   int
	Failed  int
	Removed int
}

// IngestRecipes fetches recipe posts from Ghost, extracts their ingredient
// lists and stores them. Posts already stored in their current version are
// skipped and recipes whose post is gone are removed.
func (a *App) IngestRecipes(ctx context.Context) (IngestStats, error) {
	var stats IngestStats
	if a.ghostClient == nil {
		return stats, errors.New("ghost is not configured")
	}

	fmt.Println("Fetching and processing recipes...")
	posts, err := a.ghostClient.FetchRecipes(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}
	stats.Fetched = len(posts)
	fmt.Printf("Successfully fetched %d recipe posts from Ghost.\n", len(posts))

	live := make(map[string]bool, len(posts))
	for i, post := range posts {
		live[post.ID] = true

		if a.recipeStore.Exists(post.ID, post.UpdatedAt) {
			log.Printf("Recipe '%s' up-to-date. Skipping.", post.Title)
			stats.Skipped++
			continue
		}

		usedAI, err := a.processPost(ctx, post)
		if err != nil {
			log.Printf("Failed to process '%s': %v", post.Title, err)
			stats.Failed++
		} else {
			stats.Saved++
			log.Printf("Successfully processed '%s'.", post.Title)
		}

		// Pace LLM calls whether or not they succeeded.
		if usedAI && i < len(posts)-1 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(a.ingestDelay):
			}
		}
	}

	removed, err := a.removeOrphans(live)
	stats.Removed = removed
	if err != nil {
		return stats, err
	}

	if a.stored != nil {
		if err := a.stored.Reload(); err != nil {
			return stats, err
		}
	}
	fmt.Printf("Ingestion complete: %d saved, %d skipped, %d failed, %d removed.\n",
		stats.Saved, stats.Skipped, stats.Failed, stats.Removed)
	return stats, nil
}

// processPost extracts a single post and replaces any stored version of it.
func (a *App) processPost(ctx context.Context, post ghost.Post) (bool, error) {
	res, err := a.extractor.Extract(ctx, recipe.PostData{
		ID:        post.ID,
		Title:     post.Title,
		UpdatedAt: post.UpdatedAt,
		HTML:      post.HTML,
		SourceURL: post.URL,
	})
	if err != nil {
		if res.UsedAI {
			a.recordFailure(res.Meta)
		}
		return res.UsedAI, fmt.Errorf("failed to extract recipe: %w", err)
	}
	if res.UsedAI {
		a.recordMeta(res.Meta)
	}

	if err := a.recipeStore.RemoveStaleVersions(post.ID); err != nil {
		log.Printf("Warning: failed to clean up stale versions for '%s': %v", post.Title, err)
	}
	if err := a.recipeStore.Save(post.ID, post.UpdatedAt, res.Recipe); err != nil {
		return res.UsedAI, fmt.Errorf("failed to save recipe: %w", err)
	}
	return res.UsedAI, nil
}

// removeOrphans deletes stored recipes whose post no longer exists.
func (a *App) removeOrphans(live map[string]bool) (int, error) {
	var orphans []string
	err := a.recipeStore.ListAll(func(load func(v any) error) error {
		var rec recipe.Recipe
		if err := load(&rec); err != nil {
			return err
		}
		if !live[rec.ID] && !slices.Contains(orphans, rec.ID) {
			orphans = append(orphans, rec.ID)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list stored recipes: %w", err)
	}

	for _, id := range orphans {
		if err := a.recipeStore.RemoveStaleVersions(id); err != nil {
			return 0, err
		}
		log.Printf("Removed recipe %s, its post is gone.", id)
	}
	return len(orphans), nil
}
