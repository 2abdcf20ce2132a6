package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"menuplan/internal/database"
	"menuplan/internal/menu"

	"github.com/google/uuid"
)

// ErrPlanNotFound is returned by Get for unknown plan IDs.
var ErrPlanNotFound = errors.New("meal plan not found")

// PlanRepository is a database-backed repository for meal plans. Only the
// source text is authoritative; the parsed document is rebuilt on read.
type PlanRepository struct {
	db database.DBTX
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db database.DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

// WithTx returns a repository that runs its queries in tx.
func (r *PlanRepository) WithTx(tx *sql.Tx) *PlanRepository {
	return &PlanRepository{db: tx}
}

// Save stores a parsed plan together with its source text and returns the new plan.
func (r *PlanRepository) Save(ctx context.Context, userID, source string, doc *menu.Document) (*MealPlan, error) {
	plan := &MealPlan{
		ID:        uuid.NewString(),
		UserID:    userID,
		Source:    source,
		Document:  doc,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO menu_plans (id, user_id, persons_count, start_date, day_count, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, userID, doc.PersonsCount, doc.StartDate.String(), len(doc.Days), source, plan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert meal plan: %w", err)
	}
	return plan, nil
}

// Get retrieves a plan by ID.
func (r *PlanRepository) Get(ctx context.Context, id string) (*MealPlan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, source, created_at FROM menu_plans WHERE id = ?`, id)

	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan %s: %w", id, err)
	}
	return plan, nil
}

// ListRecentByUserID retrieves the N most recent meal plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]*MealPlan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, source, created_at FROM menu_plans
		 WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []*MealPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read meal plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	return plans, nil
}

// ExistsForStart reports whether the user already stored a plan starting on start.
func (r *PlanRepository) ExistsForStart(ctx context.Context, userID string, start menu.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM menu_plans WHERE user_id = ? AND start_date = ?`,
		userID, start.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing plan: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*MealPlan, error) {
	var plan MealPlan
	if err := row.Scan(&plan.ID, &plan.UserID, &plan.Source, &plan.CreatedAt); err != nil {
		return nil, err
	}
	doc, err := menu.Parse(plan.Source)
	if err != nil {
		return nil, fmt.Errorf("stored plan %s no longer parses: %w", plan.ID, err)
	}
	plan.Document = doc
	return &plan, nil
}
