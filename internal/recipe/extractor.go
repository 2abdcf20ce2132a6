package recipe

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"menuplan/internal/llm"

	"github.com/PuerkitoBio/goquery"
)

//go:embed extractor_prompt.md
var extractorPrompt string

var extractorTemplate = template.Must(template.New("extractor").Parse(extractorPrompt))

// maxPromptText bounds the page text handed to the LLM.
const maxPromptText = 12000

// PostData is the raw input of an extraction.
type PostData struct {
	ID        string
	Title     string
	UpdatedAt string
	HTML      string
	SourceURL string
}

// ExtractorResult is an extracted recipe plus the LLM metadata, if one was used.
type ExtractorResult struct {
	Recipe Recipe
	Meta   llm.AgentMeta
	UsedAI bool
}

// Extractor turns recipe HTML into a Recipe. Structured markup is read with
// goquery first; the LLM is only asked when no ingredient list is found.
type Extractor struct {
	textGen llm.TextGenerator
}

// NewExtractor creates an Extractor. textGen may be nil to disable the LLM fallback.
func NewExtractor(textGen llm.TextGenerator) *Extractor {
	return &Extractor{textGen: textGen}
}

// Extract parses data.HTML into a recipe.
func (e *Extractor) Extract(ctx context.Context, data PostData) (ExtractorResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(data.HTML))
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	rec := Recipe{
		ID:        data.ID,
		Title:     data.Title,
		Source:    data.SourceURL,
		UpdatedAt: data.UpdatedAt,
	}
	if rec.Title == "" {
		rec.Title = pageTitle(doc)
	}
	rec.Servings = findServings(doc)
	for _, line := range findIngredientLines(doc) {
		if ing := ParseIngredient(line); ing.Name != "" {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}

	if len(rec.Ingredients) > 0 {
		return ExtractorResult{Recipe: rec}, nil
	}
	if e.textGen == nil {
		return ExtractorResult{}, fmt.Errorf("no ingredient list found in %q", rec.Title)
	}
	return e.extractWithAI(ctx, rec, CleanText(doc))
}

func (e *Extractor) extractWithAI(ctx context.Context, rec Recipe, text string) (ExtractorResult, error) {
	start := time.Now()

	text = truncateText(text, maxPromptText)
	var buf bytes.Buffer
	if err := extractorTemplate.Execute(&buf, struct{ Title, Text string }{rec.Title, text}); err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to build extractor prompt: %w", err)
	}

	// A failed call still counts as an AI call for metering and pacing.
	resp, err := e.textGen.GenerateContent(ctx, buf.String())
	meta := llm.AgentMeta{AgentName: "Extractor", Usage: resp.Usage, Latency: time.Since(start)}
	if err != nil {
		return ExtractorResult{Meta: meta, UsedAI: true}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	var out struct {
		Title       string   `json:"title"`
		Servings    int      `json:"servings"`
		Ingredients []string `json:"ingredients"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		return ExtractorResult{Meta: meta, UsedAI: true}, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}

	if rec.Title == "" {
		rec.Title = out.Title
	}
	if rec.Servings == 0 {
		rec.Servings = out.Servings
	}
	for _, line := range out.Ingredients {
		if ing := ParseIngredient(line); ing.Name != "" {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	if len(rec.Ingredients) == 0 {
		return ExtractorResult{Meta: meta, UsedAI: true}, fmt.Errorf("no ingredients extracted from %q", rec.Title)
	}
	return ExtractorResult{Recipe: rec, Meta: meta, UsedAI: true}, nil
}

// truncateText cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func pageTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func findServings(doc *goquery.Document) int {
	if y := doc.Find(`[itemprop="recipeYield"]`).First(); y.Length() > 0 {
		text := y.AttrOr("content", y.Text())
		if m := servingsPattern.FindStringSubmatch(text); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n
		}
		if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			return n
		}
	}
	if m := servingsPattern.FindStringSubmatch(doc.Find("body").Text()); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// findIngredientLines looks for schema.org markup and common recipe plugin
// classes, then for a list following a "Zutaten"/"Ingredients" heading.
func findIngredientLines(doc *goquery.Document) []string {
	for _, sel := range []string{`[itemprop="recipeIngredient"]`, ".wprm-recipe-ingredient", ".ingredients li"} {
		if lines := texts(doc.Find(sel)); len(lines) > 0 {
			return lines
		}
	}

	var lines []string
	doc.Find("h1, h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !sectionPattern.MatchString(h.Text()) {
			return true
		}
		lines = texts(h.NextAllFiltered("ul, ol").First().Find("li"))
		return len(lines) == 0
	})
	return lines
}

func texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// CleanText strips page chrome and returns the remaining body text.
func CleanText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}
