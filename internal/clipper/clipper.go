package clipper

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"menuplan/internal/ghost"
	"menuplan/internal/llm"
	"menuplan/internal/recipe"
)

// maxPageSize bounds the fetched page.
const maxPageSize = 5 << 20

// Clipper turns recipe web pages into dish files below the dish root, so
// the page can be referenced as [[Title]] in a menu document.
type Clipper struct {
	httpClient  *http.Client
	extractor   *recipe.Extractor
	dishDir     string
	ghostClient ghost.Client
}

// Result describes a clipped recipe.
type Result struct {
	Recipe recipe.Recipe
	Path   string
	Post   *ghost.Post
	UsedAI bool
	Meta   llm.AgentMeta
}

// NewClipper creates a new Clipper writing into dishDir. ghostClient is
// optional; when set, clipped recipes are also published to the blog.
func NewClipper(extractor *recipe.Extractor, dishDir string, ghostClient ghost.Client) *Clipper {
	return &Clipper{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		extractor:   extractor,
		dishDir:     dishDir,
		ghostClient: ghostClient,
	}
}

// ClipURL fetches the URL, extracts the recipe and writes it as a dish file.
// Existing dish files are never overwritten.
func (c *Clipper) ClipURL(ctx context.Context, url string) (*Result, error) {
	page, err := c.fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	extracted, err := c.extractor.Extract(ctx, recipe.PostData{
		ID:        url,
		HTML:      page,
		SourceURL: url,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract recipe: %w", err)
	}
	rec := extracted.Recipe
	if rec.Title == "" {
		return nil, fmt.Errorf("no title found for %s", url)
	}

	path, err := c.writeDish(rec)
	if err != nil {
		return nil, err
	}
	res := &Result{Recipe: rec, Path: path, UsedAI: extracted.UsedAI, Meta: extracted.Meta}

	if c.ghostClient != nil {
		post, err := c.ghostClient.CreatePost(ctx, rec.Title, formatToHTML(rec), true)
		if err != nil {
			return res, fmt.Errorf("failed to save to ghost: %w", err)
		}
		res.Post = post
	}
	return res, nil
}

func (c *Clipper) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Clipper) writeDish(rec recipe.Recipe) (string, error) {
	data, err := recipe.FormatMarkdown(rec)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.dishDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dish directory: %w", err)
	}

	path := filepath.Join(c.dishDir, FileName(rec.Title))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create dish file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write dish file: %w", err)
	}
	return path, f.Close()
}

// FileName returns the dish file name for a title. Characters that cannot
// appear in a file name or in a [[dish]] reference are replaced.
func FileName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '[', ']', '\n', '\r', '\t':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	return name + ".md"
}

func formatToHTML(rec recipe.Recipe) string {
	var sb strings.Builder
	src := html.EscapeString(rec.Source)
	fmt.Fprintf(&sb, `<p><i>Imported from: <a href="%s">%s</a></i></p>`, src, src)

	if rec.Servings > 0 {
		fmt.Fprintf(&sb, "<p><strong>Servings:</strong> %d</p>", rec.Servings)
	}
	sb.WriteString("<h2>Ingredients</h2><ul>")
	for _, ing := range rec.Ingredients {
		fmt.Fprintf(&sb, "<li>%s</li>", html.EscapeString(recipe.FormatIngredient(ing)))
	}
	sb.WriteString("</ul>")
	return sb.String()
}
