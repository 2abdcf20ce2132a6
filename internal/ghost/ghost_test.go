package ghost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"menuplan/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

func TestFetchRecipes(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("key") != "test_key" {
				t.Errorf("Expected key 'test_key', got '%s'", r.URL.Query().Get("key"))
			}
			if got := r.URL.Query().Get("filter"); got != "tag:-hash-menu-plan" {
				t.Errorf("Expected plan posts to be filtered out, got filter '%s'", got)
			}

			w.WriteHeader(http.StatusOK)
			switch r.URL.Query().Get("page") {
			case "1":
				fmt.Fprintln(w, `{
					"posts": [
						{"id": "1", "title": "Recipe 1", "html": "<h1>Recipe 1</h1>", "url": "https://blog.test/r1/", "updated_at": "2023-10-27T10:00:00Z"}
					],
					"meta": {"pagination": {"page": 1, "pages": 2, "next": 2}}
				}`)
			case "2":
				fmt.Fprintln(w, `{
					"posts": [
						{"id": "2", "title": "Recipe 2", "html": "<h1>Recipe 2</h1>", "updated_at": "2023-10-28T10:00:00Z"}
					],
					"meta": {"pagination": {"page": 2, "pages": 2, "next": null}}
				}`)
			default:
				t.Errorf("Unexpected page %q", r.URL.Query().Get("page"))
			}
		}))
		defer server.Close()

		client := NewClient(&config.Config{GhostURL: server.URL, GhostContentKey: "test_key"})

		posts, err := client.FetchRecipes(context.Background())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(posts) != 2 {
			t.Fatalf("Expected 2 posts across both pages, got %d", len(posts))
		}
		if posts[0].URL != "https://blog.test/r1/" {
			t.Errorf("Expected post URL, got '%s'", posts[0].URL)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(&config.Config{GhostURL: server.URL, GhostContentKey: "test_key"})

		if _, err := client.FetchRecipes(context.Background()); err == nil {
			t.Fatal("Expected an error for non-200 status code, got nil")
		}
	})
}

func TestCreatePost(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	adminKey := "key-id:" + hex.EncodeToString(secret)

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Ghost ")
			token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
				if tok.Header["kid"] != "key-id" {
					t.Errorf("Expected kid 'key-id', got %v", tok.Header["kid"])
				}
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("/admin/"))
			if err != nil || !token.Valid {
				t.Errorf("Expected a valid admin token, got %v", err)
			}

			var body map[string][]Post
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			post := body["posts"][0]
			if post.Status != "draft" || post.Title != "Plan" {
				t.Errorf("Unexpected post %+v", post)
			}
			if len(post.Tags) != 1 || post.Tags[0].Name != PlanTag {
				t.Errorf("Expected the plan tag, got %+v", post.Tags)
			}

			w.WriteHeader(http.StatusCreated)
			fmt.Fprintln(w, `{"posts": [{"id": "99", "title": "Plan", "url": "https://blog.test/plan/", "status": "draft"}]}`)
		}))
		defer server.Close()

		client := NewClient(&config.Config{GhostURL: server.URL, GhostAdminKey: adminKey})
		post, err := client.CreatePost(context.Background(), "Plan", "<p>hi</p>", false, PlanTag)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if post.ID != "99" || post.URL != "https://blog.test/plan/" {
			t.Errorf("Unexpected post %+v", post)
		}
	})

	t.Run("InvalidKey", func(t *testing.T) {
		client := NewClient(&config.Config{GhostURL: "http://unused", GhostAdminKey: "no-secret"})
		if _, err := client.CreatePost(context.Background(), "Plan", "", true); err == nil {
			t.Fatal("Expected an error for an invalid admin key, got nil")
		}
	})

	t.Run("APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintln(w, `{"errors": [{"message": "nope"}]}`)
		}))
		defer server.Close()

		client := NewClient(&config.Config{GhostURL: server.URL, GhostAdminKey: adminKey})
		_, err := client.CreatePost(context.Background(), "Plan", "", true)
		if err == nil || !strings.Contains(err.Error(), "status 401") {
			t.Errorf("Expected a 401 error, got %v", err)
		}
	})
}
