package recipe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DirSource resolves dishes to markdown files below a root directory. The
// file stem is the dish name, so [[Curry]] is found in any "Curry.md".
type DirSource struct {
	root string

	mu     sync.Mutex
	paths  map[string]string
	loaded map[string]*Recipe
}

// NewDirSource indexes all markdown files below root.
func NewDirSource(root string) (*DirSource, error) {
	s := &DirSource{root: root}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-scans the root directory and drops cached recipes.
func (s *DirSource) Reload() error {
	paths := make(map[string]string)
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}
		stem := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		paths[normalizeName(stem)] = path
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan dish directory %s: %w", s.root, err)
	}

	s.mu.Lock()
	s.paths = paths
	s.loaded = make(map[string]*Recipe)
	s.mu.Unlock()
	return nil
}

// Len returns the number of indexed dish files.
func (s *DirSource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Lookup implements Source.
func (s *DirSource) Lookup(_ context.Context, name string) (*Recipe, error) {
	key := normalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.loaded[key]; ok {
		return rec, nil
	}
	path, ok := s.paths[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dish file %s: %w", path, err)
	}
	rec, err := ParseMarkdown(name, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dish file %s: %w", path, err)
	}
	rec.Source = path
	s.loaded[key] = rec
	return rec, nil
}

// frontMatter is the optional YAML header of a dish file.
type frontMatter struct {
	Title     string `yaml:"title,omitempty"`
	Portionen int    `yaml:"portionen,omitempty"`
	Servings  int    `yaml:"servings,omitempty"`
	Quelle    string `yaml:"quelle,omitempty"`
}

var (
	servingsPattern = regexp.MustCompile(`(?i)(\d+)\s*(Personen|Portionen|Persons|Servings)`)
	sectionPattern  = regexp.MustCompile(`(?i)zutaten|ingredients`)
)

// ParseMarkdown reads a dish file: an optional YAML front matter block, a
// servings hint like "für 4 Personen" and bullet points below a "Zutaten" or
// "Ingredients" heading.
func ParseMarkdown(name string, data []byte) (*Recipe, error) {
	rec := &Recipe{ID: name, Title: name}

	body := data
	if fm, rest, ok := splitFrontMatter(data); ok {
		var meta frontMatter
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			return nil, fmt.Errorf("invalid front matter: %w", err)
		}
		if meta.Title != "" {
			rec.Title = meta.Title
		}
		rec.Servings = meta.Portionen
		if rec.Servings == 0 {
			rec.Servings = meta.Servings
		}
		body = rest
	}

	if rec.Servings == 0 {
		if m := servingsPattern.FindSubmatch(body); m != nil {
			rec.Servings, _ = strconv.Atoi(string(m[1]))
		}
	}

	inSection := false
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			inSection = sectionPattern.MatchString(line)
			continue
		}
		if !inSection || !(strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")) {
			continue
		}
		if ing := ParseIngredient(line); ing.Name != "" {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

func splitFrontMatter(data []byte) (fm, rest []byte, ok bool) {
	const delim = "---"
	if !bytes.HasPrefix(data, []byte(delim+"\n")) {
		return nil, data, false
	}
	after := data[len(delim)+1:]
	end := bytes.Index(after, []byte("\n"+delim))
	if end < 0 {
		return nil, data, false
	}
	rest = after[end+len(delim)+1:]
	rest = bytes.TrimPrefix(rest, []byte("\n"))
	return after[:end], rest, true
}

// FormatMarkdown renders a recipe as a dish file that ParseMarkdown reads back.
func FormatMarkdown(rec Recipe) ([]byte, error) {
	fm, err := yaml.Marshal(frontMatter{
		Title:     rec.Title,
		Portionen: rec.Servings,
		Quelle:    rec.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	fmt.Fprintf(&buf, "# %s\n\n", rec.Title)
	buf.WriteString("## Zutaten\n\n")
	for _, ing := range rec.Ingredients {
		fmt.Fprintf(&buf, "- %s\n", FormatIngredient(ing))
	}
	return buf.Bytes(), nil
}

// FormatIngredient renders an ingredient as "<amount> <measure> <name>".
func FormatIngredient(ing Ingredient) string {
	parts := []string{strconv.FormatFloat(ing.Amount, 'f', -1, 64)}
	if ing.Measure != "" {
		parts = append(parts, ing.Measure)
	}
	parts = append(parts, ing.Name)
	return strings.Join(parts, " ")
}
