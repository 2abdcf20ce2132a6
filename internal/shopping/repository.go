package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"menuplan/internal/database"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a new shopping list repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository that runs its queries in tx.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

// storedTrips is the JSON payload of the trips column.
type storedTrips struct {
	Trips   []Trip   `json:"trips"`
	Missing []string `json:"missing,omitempty"`
}

// Save stores a new shopping list for list.PlanID and returns its ID.
func (r *Repository) Save(ctx context.Context, list *List) (int64, error) {
	payload, err := json.Marshal(storedTrips{Trips: list.Trips, Missing: list.Missing})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list trips: %w", err)
	}

	createdAt := list.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shopping_lists (plan_id, trips, created_at) VALUES (?, ?, ?)`,
		list.PlanID, string(payload), createdAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get shopping list id: %w", err)
	}
	list.ID = id
	list.CreatedAt = createdAt
	return id, nil
}

// GetByPlanID retrieves the newest shopping list of a plan, or nil if there is none.
func (r *Repository) GetByPlanID(ctx context.Context, planID string) (*List, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, plan_id, trips, created_at FROM shopping_lists
		 WHERE plan_id = ? ORDER BY id DESC LIMIT 1`, planID)

	var (
		list    List
		payload string
	)
	if err := row.Scan(&list.ID, &list.PlanID, &payload, &list.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No shopping list found
		}
		return nil, fmt.Errorf("failed to get shopping list by plan ID: %w", err)
	}

	var stored storedTrips
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list trips: %w", err)
	}
	list.Trips = stored.Trips
	list.Missing = stored.Missing
	return &list, nil
}

// DeleteByPlanID deletes all shopping lists of a plan.
func (r *Repository) DeleteByPlanID(ctx context.Context, planID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("failed to delete shopping lists: %w", err)
	}
	return nil
}
