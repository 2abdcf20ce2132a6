package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"menuplan/internal/database"
	"menuplan/internal/llm"
	"menuplan/internal/menu"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	store := NewStore(db.SQL)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore(t *testing.T) {
	store := newTestStore(t)

	if err := store.RecordMeta(llm.AgentMeta{
		AgentName: "Extractor",
		Usage:     llm.TokenUsage{PromptTokens: 100, CompletionTokens: 40, Model: "gemini"},
		Latency:   2 * time.Second,
	}); err != nil {
		t.Fatalf("Failed to record meta: %v", err)
	}
	if err := store.RecordMeta(llm.AgentMeta{AgentName: "Idle"}); err != nil {
		t.Fatalf("Failed to skip empty meta: %v", err)
	}

	_, parseErr := menu.Parse("Personen: 2\nStarttag: 2024-01-01\nMontag: Pizza")
	if err := store.RecordParse(parseErr, time.Millisecond); err != nil {
		t.Fatalf("Failed to record parse: %v", err)
	}
	if err := store.RecordParse(nil, time.Millisecond); err != nil {
		t.Fatalf("Failed to record parse: %v", err)
	}

	if err := store.RecordFailure(llm.AgentMeta{AgentName: "Extractor", Latency: time.Second}); err != nil {
		t.Fatalf("Failed to record failure: %v", err)
	}

	old := ExecutionMetric{AgentName: "Extractor", PromptTokens: 5, Timestamp: time.Now().AddDate(0, 0, -40)}
	if err := store.Record(old); err != nil {
		t.Fatalf("Failed to record old metric: %v", err)
	}

	t.Run("DailyUsage", func(t *testing.T) {
		usage, err := store.GetDailyUsage(7)
		if err != nil {
			t.Fatalf("Failed to get usage: %v", err)
		}
		if len(usage) != 1 {
			t.Fatalf("Expected 1 day of usage, got %d: %+v", len(usage), usage)
		}
		u := usage[0]
		if u.Date != time.Now().UTC().Format("2006-01-02") {
			t.Errorf("Expected today's date, got %s", u.Date)
		}
		if u.TotalExecution != 4 || u.TotalPrompt != 100 || u.TotalCompletion != 40 {
			t.Errorf("Unexpected totals %+v", u)
		}
		if u.Failures != 2 {
			t.Errorf("Expected a failed parse and a failed call, got %d", u.Failures)
		}
	})

	t.Run("Cleanup", func(t *testing.T) {
		n, err := store.Cleanup(30)
		if err != nil {
			t.Fatalf("Failed to clean up: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 removed record, got %d", n)
		}
	})
}

func TestParseOutcome(t *testing.T) {
	_, err := menu.Parse("Personen: zwei")
	if got := ParseOutcome(err); got != "ExpectedIntegerAfterPersonsKeyword" {
		t.Errorf("Expected the error kind, got '%s'", got)
	}
	if got := ParseOutcome(fmt.Errorf("plan.txt: %w", err)); got != "ExpectedIntegerAfterPersonsKeyword" {
		t.Errorf("Expected wrapped errors to be classified, got '%s'", got)
	}
	if got := ParseOutcome(nil); got != OutcomeOK {
		t.Errorf("Expected '%s', got '%s'", OutcomeOK, got)
	}
	if got := ParseOutcome(os.ErrNotExist); got != "error" {
		t.Errorf("Expected 'error', got '%s'", got)
	}
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 2048), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	health := GetSysHealth(dir)
	if health.DataDiskSize != "2.0 KB" {
		t.Errorf("Expected '2.0 KB', got '%s'", health.DataDiskSize)
	}
	if health.Goroutines < 1 {
		t.Errorf("Expected at least one goroutine, got %d", health.Goroutines)
	}
}
