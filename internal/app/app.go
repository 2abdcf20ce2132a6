package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"menuplan/internal/clipper"
	"menuplan/internal/config"
	"menuplan/internal/database"
	"menuplan/internal/ghost"
	"menuplan/internal/llm"
	"menuplan/internal/menu"
	"menuplan/internal/metrics"
	"menuplan/internal/planner"
	"menuplan/internal/recipe"
	"menuplan/internal/shopping"
	"menuplan/internal/storage"
)

// Deps are the collaborators of an App. Ghost, Clipper and Metrics may be nil.
type Deps struct {
	DB           *database.DB
	Dishes       *recipe.DirSource
	Stored       *recipe.StoreSource
	RecipeStore  *storage.RecipeStore
	Extractor    *recipe.Extractor
	Ghost        ghost.Client
	Clipper      *clipper.Clipper
	Metrics      *metrics.Store
	Plans        *planner.PlanRepository
	ShoppingRepo *shopping.Repository
}

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	db           *database.DB
	dishes       *recipe.DirSource
	stored       *recipe.StoreSource
	recipes      recipe.Source
	recipeStore  *storage.RecipeStore
	extractor    *recipe.Extractor
	ghostClient  ghost.Client
	clipper      *clipper.Clipper
	metricsStore *metrics.Store
	planRepo     *planner.PlanRepository
	shoppingRepo *shopping.Repository

	// ingestDelay spaces out LLM calls during ingestion to stay under the
	// Gemini free tier rate limit (15 RPM).
	ingestDelay time.Duration
}

// NewApp creates and initializes a new App instance. Dish files take
// precedence over recipes ingested from Ghost.
func NewApp(cfg *config.Config, deps Deps) *App {
	var chain recipe.Chain
	if deps.Dishes != nil {
		chain = append(chain, deps.Dishes)
	}
	if deps.Stored != nil {
		chain = append(chain, deps.Stored)
	}
	return &App{
		cfg:          cfg,
		db:           deps.DB,
		dishes:       deps.Dishes,
		stored:       deps.Stored,
		recipes:      chain,
		recipeStore:  deps.RecipeStore,
		extractor:    deps.Extractor,
		ghostClient:  deps.Ghost,
		clipper:      deps.Clipper,
		metricsStore: deps.Metrics,
		planRepo:     deps.Plans,
		shoppingRepo: deps.ShoppingRepo,
		ingestDelay:  5 * time.Second,
	}
}

// Metrics returns the metrics store, or nil when metrics are disabled.
func (a *App) Metrics() *metrics.Store {
	return a.metricsStore
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// ParsePlan parses a menu document and records the outcome. Syntax errors
// are returned unwrapped as *menu.SyntaxError.
func (a *App) ParsePlan(source string) (*menu.Document, error) {
	start := time.Now()
	doc, err := menu.Parse(source)
	if a.metricsStore != nil {
		if recErr := a.metricsStore.RecordParse(err, time.Since(start)); recErr != nil {
			log.Printf("Warning: failed to record parse metric: %v", recErr)
		}
	}
	return doc, err
}

// ShoppingList builds the shopping list of doc from the known recipes.
func (a *App) ShoppingList(ctx context.Context, doc *menu.Document) (*shopping.List, error) {
	return shopping.Build(ctx, doc, a.recipes)
}

// WriteShoppingList writes list.md and list_clustered.md into dir.
func WriteShoppingList(list *shopping.List, dir string) error {
	files := map[string]string{
		"list.md":           list.Markdown(),
		"list_clustered.md": list.ClusteredMarkdown(),
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return nil
}

// Imported is the result of ImportPlan and ImportDocument.
type Imported struct {
	Plan *planner.MealPlan
	List *shopping.List
	// DuplicateStart reports that the user already had a plan with the same
	// start date. Both plans are kept.
	DuplicateStart bool
}

// ImportPlan parses source and stores it with its shopping list for userID.
func (a *App) ImportPlan(ctx context.Context, userID, source string) (*Imported, error) {
	doc, err := a.ParsePlan(source)
	if err != nil {
		return nil, err
	}
	return a.ImportDocument(ctx, userID, source, doc)
}

// ImportDocument stores an already parsed plan and its shopping list for
// userID. doc must be the result of parsing source. Plan and list are
// written in one transaction.
func (a *App) ImportDocument(ctx context.Context, userID, source string, doc *menu.Document) (*Imported, error) {
	exists, err := a.planRepo.ExistsForStart(ctx, userID, doc.StartDate)
	if err != nil {
		return nil, err
	}

	list, err := a.ShoppingList(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build shopping list: %w", err)
	}

	var plan *planner.MealPlan
	err = a.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		if plan, err = a.planRepo.WithTx(tx).Save(ctx, userID, source, doc); err != nil {
			return err
		}
		list.PlanID = plan.ID
		_, err = a.shoppingRepo.WithTx(tx).Save(ctx, list)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Imported plan %s for user %s (%d days, %d missing dishes)", plan.ID, userID, len(doc.Days), len(list.Missing))
	return &Imported{Plan: plan, List: list, DuplicateStart: exists}, nil
}

// ExistsForStart reports whether userID already stored a plan starting on start.
func (a *App) ExistsForStart(ctx context.Context, userID string, start menu.Date) (bool, error) {
	return a.planRepo.ExistsForStart(ctx, userID, start)
}

// RecentPlans lists the latest plans of userID, newest first.
func (a *App) RecentPlans(ctx context.Context, userID string, limit int) ([]*planner.MealPlan, error) {
	return a.planRepo.ListRecentByUserID(ctx, userID, limit)
}

// PublishPlan renders a stored plan with its shopping list and posts it to Ghost.
func (a *App) PublishPlan(ctx context.Context, planID string, publish bool) (*ghost.Post, error) {
	if a.ghostClient == nil {
		return nil, errors.New("ghost is not configured")
	}

	plan, err := a.planRepo.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	list, err := a.shoppingRepo.GetByPlanID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		if list, err = a.ShoppingList(ctx, plan.Document); err != nil {
			return nil, fmt.Errorf("failed to build shopping list: %w", err)
		}
	}

	title := fmt.Sprintf("Menu plan from %s", plan.Document.StartDate)
	post, err := a.ghostClient.CreatePost(ctx, title, RenderPlanHTML(plan, list), publish, ghost.PlanTag)
	if err != nil {
		return nil, fmt.Errorf("failed to publish plan: %w", err)
	}
	return post, nil
}

// ClipURL clips a recipe page into the dish root and makes it available
// to shopping lists right away.
func (a *App) ClipURL(ctx context.Context, url string) (*clipper.Result, error) {
	if a.clipper == nil {
		return nil, errors.New("clipper is not configured")
	}
	res, err := a.clipper.ClipURL(ctx, url)
	if res != nil {
		a.recordMeta(res.Meta)
	}
	if err != nil {
		return res, err
	}
	if a.dishes != nil {
		if err := a.dishes.Reload(); err != nil {
			log.Printf("Warning: failed to reload dishes: %v", err)
		}
	}
	return res, nil
}

func (a *App) recordMeta(meta llm.AgentMeta) {
	if a.metricsStore == nil {
		return
	}
	if err := a.metricsStore.RecordMeta(meta); err != nil {
		log.Printf("Warning: failed to record metrics for %s: %v", meta.AgentName, err)
	}
}

func (a *App) recordFailure(meta llm.AgentMeta) {
	if a.metricsStore == nil {
		return
	}
	if err := a.metricsStore.RecordFailure(meta); err != nil {
		log.Printf("Warning: failed to record failed call for %s: %v", meta.AgentName, err)
	}
}
