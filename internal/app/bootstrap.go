package app

import (
	"context"
	"fmt"
	"log"

	"menuplan/internal/clipper"
	"menuplan/internal/config"
	"menuplan/internal/database"
	"menuplan/internal/ghost"
	"menuplan/internal/llm"
	"menuplan/internal/metrics"
	"menuplan/internal/planner"
	"menuplan/internal/recipe"
	"menuplan/internal/shopping"
	"menuplan/internal/storage"
)

// Bootstrap wires an App from cfg. Ghost and Gemini are optional: without
// them publishing and ingestion fail and extraction relies on HTML markup
// alone. The returned function releases the database and LLM client.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	closers := []func() error{db.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Printf("Warning: cleanup failed: %v", err)
			}
		}
	}

	recipeStore, err := storage.NewRecipeStore(cfg.RecipeStoragePath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize recipe store: %w", err)
	}

	dishes, err := recipe.NewDirSource(cfg.DishRoot)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	log.Printf("Indexed %d dish files below %s", dishes.Len(), cfg.DishRoot)

	var textGen llm.TextGenerator
	if err := cfg.RequireGemini(); err == nil {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		closers = append(closers, gemini.Close)
		textGen = gemini
	} else {
		log.Printf("LLM fallback disabled: %v", err)
	}

	var ghostClient ghost.Client
	if err := cfg.RequireGhost(); err == nil {
		ghostClient = ghost.NewClient(cfg)
	}

	extractor := recipe.NewExtractor(textGen)
	application := NewApp(cfg, Deps{
		DB:           db,
		Dishes:       dishes,
		Stored:       recipe.NewStoreSource(recipeStore),
		RecipeStore:  recipeStore,
		Extractor:    extractor,
		Ghost:        ghostClient,
		Clipper:      clipper.NewClipper(extractor, cfg.DishRoot, ghostClient),
		Metrics:      metrics.NewStore(db.SQL),
		Plans:        planner.NewPlanRepository(db.SQL),
		ShoppingRepo: shopping.NewRepository(db.SQL),
	})
	return application, cleanup, nil
}
