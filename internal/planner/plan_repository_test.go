package planner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"menuplan/internal/database"
	"menuplan/internal/menu"
)

const testPlan = `Personen: 4
Starttag: 2024-05-06
Montag: [[Spaghetti]](2), ⟨Markt⟩
Dienstag(6): Reste
Mittwoch:
`

func newTestRepo(t *testing.T) *PlanRepository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "plans.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPlanRepository(db.SQL)
}

func TestPlanRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc, err := menu.Parse(testPlan)
	if err != nil {
		t.Fatalf("Failed to parse plan: %v", err)
	}

	saved, err := repo.Save(ctx, "user-1", testPlan, doc)
	if err != nil {
		t.Fatalf("Failed to save plan: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("Expected a generated plan ID")
	}

	t.Run("Get", func(t *testing.T) {
		got, err := repo.Get(ctx, saved.ID)
		if err != nil {
			t.Fatalf("Failed to get plan: %v", err)
		}
		if got.Source != testPlan || got.UserID != "user-1" {
			t.Errorf("Unexpected plan %+v", got)
		}
		if got.Document.PersonsCount != 4 || len(got.Document.Days) != 3 {
			t.Errorf("Expected the document to be re-parsed, got %+v", got.Document)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrPlanNotFound) {
			t.Errorf("Expected ErrPlanNotFound, got %v", err)
		}
	})

	t.Run("ListRecent", func(t *testing.T) {
		second := strings.Replace(testPlan, "2024-05-06", "2024-05-13", 1)
		doc2, _ := menu.Parse(second)
		if _, err := repo.Save(ctx, "user-1", second, doc2); err != nil {
			t.Fatalf("Failed to save second plan: %v", err)
		}
		if _, err := repo.Save(ctx, "user-2", testPlan, doc); err != nil {
			t.Fatalf("Failed to save other user's plan: %v", err)
		}

		plans, err := repo.ListRecentByUserID(ctx, "user-1", 5)
		if err != nil {
			t.Fatalf("Failed to list plans: %v", err)
		}
		if len(plans) != 2 {
			t.Fatalf("Expected 2 plans, got %d", len(plans))
		}
		if plans[0].Document.StartDate.String() != "2024-05-13" {
			t.Errorf("Expected newest plan first, got %s", plans[0].Document.StartDate)
		}

		limited, _ := repo.ListRecentByUserID(ctx, "user-1", 1)
		if len(limited) != 1 {
			t.Errorf("Expected limit to apply, got %d", len(limited))
		}
	})

	t.Run("ExistsForStart", func(t *testing.T) {
		ok, err := repo.ExistsForStart(ctx, "user-1", menu.Date{Year: 2024, Month: 5, Day: 6})
		if err != nil || !ok {
			t.Errorf("Expected plan to exist, got %v, %v", ok, err)
		}
		ok, _ = repo.ExistsForStart(ctx, "user-3", menu.Date{Year: 2024, Month: 5, Day: 6})
		if ok {
			t.Error("Expected no plan for another user")
		}
	})
}

func TestSummary(t *testing.T) {
	doc, err := menu.Parse(testPlan)
	if err != nil {
		t.Fatalf("Failed to parse plan: %v", err)
	}
	plan := &MealPlan{Document: doc}

	want := "Plan for 4 persons starting 2024-05-06 (3 days)\n" +
		"Mon 06.05. Montag: Spaghetti (2), 🛒 Markt\n" +
		"Tue 07.05. Dienstag (6): leftovers\n" +
		"Wed 08.05. Mittwoch: -\n"
	if got := plan.Summary(); got != want {
		t.Errorf("Expected summary:\n%s\ngot:\n%s", want, got)
	}
}
