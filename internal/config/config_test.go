package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_PATH", "DISH_ROOT", "RECIPE_STORAGE_PATH",
		"GHOST_API_URL", "GHOST_CONTENT_API_KEY", "GHOST_ADMIN_API_KEY", "GEMINI_API_KEY",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_URL", "TELEGRAM_ALLOWED_USER_IDS", "TELEGRAM_ADMIN_ID",
	} {
		// Register a restore with t.Setenv, then unset for the test.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "data/menuplan.db" {
			t.Errorf("Expected default DatabasePath, got '%s'", cfg.DatabasePath)
		}
		if cfg.DishRoot != "." {
			t.Errorf("Expected default DishRoot '.', got '%s'", cfg.DishRoot)
		}
		if err := cfg.RequireGhost(); err == nil {
			t.Error("Expected RequireGhost to fail without GHOST_API_URL")
		}
		if err := cfg.RequireTelegram(); err == nil {
			t.Error("Expected RequireTelegram to fail without a bot token")
		}
	})

	t.Run("Success", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GHOST_API_URL", "http://ghost.test/")
		t.Setenv("GHOST_CONTENT_API_KEY", "ghost_key")
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("DISH_ROOT", "/srv/gerichte")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12, 34")
		t.Setenv("TELEGRAM_ADMIN_ID", "12")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.GhostURL != "http://ghost.test" {
			t.Errorf("Expected GhostURL to be 'http://ghost.test', got '%s'", cfg.GhostURL)
		}
		if cfg.GhostAdminKey != "ghost_key" {
			t.Errorf("Expected GhostAdminKey to fall back to the content key, got '%s'", cfg.GhostAdminKey)
		}
		if cfg.DishRoot != "/srv/gerichte" {
			t.Errorf("Expected DishRoot '/srv/gerichte', got '%s'", cfg.DishRoot)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 34 {
			t.Errorf("Expected allowed ids [12 34], got %v", cfg.TelegramAllowedUserIDs)
		}
		if cfg.AdminTelegramID != 12 {
			t.Errorf("Expected admin id 12, got %d", cfg.AdminTelegramID)
		}
		if err := cfg.RequireGhost(); err != nil {
			t.Errorf("Expected RequireGhost to pass, got %v", err)
		}
		if err := cfg.RequireGemini(); err != nil {
			t.Errorf("Expected RequireGemini to pass, got %v", err)
		}
	})

	t.Run("MissingGhostContentKey", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GHOST_API_URL", "http://ghost.test")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		err = cfg.RequireGhost()
		if err == nil {
			t.Fatal("Expected an error for missing GHOST_CONTENT_API_KEY, got nil")
		}
		expectedError := "GHOST_CONTENT_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("InvalidAllowedUserIDs", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "12,abc")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for a non-numeric user id, got nil")
		}
	})
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "DISH_ROOT=/from/file\nGEMINI_API_KEY=file_key\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("GEMINI_API_KEY", "env_key")

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.DishRoot != "/from/file" {
		t.Errorf("Expected DishRoot from file, got '%s'", cfg.DishRoot)
	}
	if cfg.GeminiAPIKey != "env_key" {
		t.Errorf("Expected environment to win over the file, got '%s'", cfg.GeminiAPIKey)
	}

	t.Run("MissingFileIsIgnored", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
			t.Errorf("Expected missing env file to be ignored, got %v", err)
		}
	})
}
