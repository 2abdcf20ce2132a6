package telegram

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"menuplan/internal/app"
	"menuplan/internal/menu"
	"menuplan/internal/metrics"
	"menuplan/internal/planner"
	"menuplan/internal/recipe"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxListItems keeps the shopping list reply below Telegram's message size limit.
const maxListItems = 120

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// codeBlock makes s safe for a Markdown pre block.
func codeBlock(s string) string {
	return "```\n" + strings.ReplaceAll(s, "`", "'") + "\n```"
}

func formatError(title string, err error) string {
	return fmt.Sprintf("❌ *%s:*\n%s", title, codeBlock(err.Error()))
}

// formatParseError points at the offending line of a rejected plan.
func formatParseError(src string, err error) string {
	var syntaxErr *menu.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return formatError("Could not read your plan", err)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "❌ *Could not read your plan* (line %d, column %d)\n", syntaxErr.Line, syntaxErr.Column)
	if excerpt := syntaxErr.Excerpt(src); excerpt != "" {
		sb.WriteString(codeBlock(excerpt) + "\n")
	}
	fmt.Fprintf(&sb, "Expected %s, found %s.", escape(syntaxErr.Expected), escape(syntaxErr.Found))
	return sb.String()
}

// formatImported returns the plan summary and the shopping list messages.
func formatImported(imported *app.Imported) (string, string) {
	var pb strings.Builder
	pb.WriteString("📅 *Menu plan saved*\n\n")
	pb.WriteString(escape(imported.Plan.Summary()))
	fmt.Fprintf(&pb, "\nID: `%s`", imported.Plan.ID)

	list := imported.List
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	if list.IsEmpty() {
		sb.WriteString("\n_Nothing to buy_\n")
	}
	n := 0
	for i, trip := range list.Trips {
		if len(trip.Items) == 0 {
			continue
		}
		heading := fmt.Sprintf("Trip %d, %s", i+1, trip.Date.Format("Mon 02.01."))
		if trip.Marker != "" {
			heading += ": " + trip.Marker
		}
		fmt.Fprintf(&sb, "\n*%s*\n", escape(heading))
		for _, item := range trip.Items {
			if n == maxListItems {
				sb.WriteString("…\n")
				break
			}
			n++
			line := recipe.FormatIngredient(recipe.Ingredient{
				Amount:  math.Round(item.Amount*100) / 100,
				Measure: item.Measure,
				Name:    item.Name,
			})
			fmt.Fprintf(&sb, "• %s\n", escape(line))
		}
	}
	if len(list.Missing) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ *No recipe for:* %s\n", escape(strings.Join(list.Missing, ", ")))
	}
	return pb.String(), sb.String()
}

func formatPlanList(plans []*planner.MealPlan) string {
	if len(plans) == 0 {
		return "You have no saved plans yet."
	}
	var sb strings.Builder
	sb.WriteString("🗂 *Your recent plans*\n\n")
	for _, p := range plans {
		doc := p.Document
		fmt.Fprintf(&sb, "• *%s*: %d days, %d persons, %d dishes\n  `%s`\n",
			doc.StartDate, len(doc.Days), doc.PersonsCount, len(doc.Dishes()), p.ID)
	}
	return sb.String()
}

func formatClipped(title string, ingredients int, usedAI bool) string {
	via := "from the page markup"
	if usedAI {
		via = "with AI help"
	}
	return fmt.Sprintf("✅ *Recipe Saved!*\n\n*Dish:* %s\n%d ingredients, extracted %s.",
		escape("[["+title+"]]"), ingredients, via)
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs, %d failed)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failures)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	return sb.String()
}
