package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"menuplan/internal/app"
	"menuplan/internal/config"
	"menuplan/internal/menu"
	"menuplan/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API around the menu planner app.
type Bot struct {
	api *tgbotapi.BotAPI
	app *app.App
	cfg *config.Config

	// pending holds plans waiting for a decision because a plan with the
	// same start date exists. Keyed by chat and prompt message. Entries
	// are dropped after pendingTTL when no button is pressed.
	pending    sync.Map
	pendingTTL time.Duration
}

type pendingPlan struct {
	userID string
	source string
	doc    *menu.Document
}

const defaultPendingTTL = 30 * time.Minute

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, application *app.App) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{api: bot, app: application, cfg: cfg, pendingTTL: defaultPendingTTL}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		if b.isAllowed(update.CallbackQuery.From.ID) {
			go b.handleCallbackQuery(update.CallbackQuery)
		}
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !b.isAllowed(update.Message.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if userID == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start" || text == "/help":
		b.sendMarkdown(msg.Chat.ID, helpText)
	case text == "/metrics":
		b.handleMetricsRequest(msg)
	case text == "/plans":
		b.handlePlansRequest(msg)
	case strings.HasPrefix(text, "/publish"):
		b.handlePublishRequest(msg, strings.TrimSpace(strings.TrimPrefix(text, "/publish")))
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleClipperRequest(msg, text)
	default:
		b.handlePlanMessage(msg)
	}
}

const helpText = "🍽 *Menu planner*\n\n" +
	"Send a menu plan like\n```\nPersonen: 4\nStarttag: 2024-01-01\nMontag: [[Curry]], ⟨Wochenmarkt⟩\nDienstag(2): Reste\n```\n" +
	"and get the shopping list back.\n\n" +
	"Send a recipe URL to add it as a dish.\n" +
	"/plans lists your recent plans, /publish <id> posts one to the blog."

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.sendMarkdown(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	store := b.app.Metrics()
	if store == nil {
		b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "Metrics are disabled."))
		return
	}
	usage, err := store.GetDailyUsage(7)
	if err != nil {
		log.Printf("Error fetching metrics: %v", err)
		b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "❌ Error fetching metrics."))
		return
	}
	health := metrics.GetSysHealth(b.cfg.RecipeStoragePath, b.cfg.DatabasePath)
	b.sendMarkdown(msg.Chat.ID, formatMetrics(usage, health))
}

func (b *Bot) handlePlansRequest(msg *tgbotapi.Message) {
	ctx := context.Background()
	plans, err := b.app.RecentPlans(ctx, userKey(msg.From.ID), 5)
	if err != nil {
		log.Printf("Error listing plans: %v", err)
		b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "❌ Error listing your plans."))
		return
	}
	b.sendMarkdown(msg.Chat.ID, formatPlanList(plans))
}

func (b *Bot) handlePublishRequest(msg *tgbotapi.Message, planID string) {
	if planID == "" {
		b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "Usage: /publish <plan id>"))
		return
	}
	post, err := b.app.PublishPlan(context.Background(), planID, true)
	if err != nil {
		log.Printf("Error publishing plan %s: %v", planID, err)
		b.sendMarkdown(msg.Chat.ID, formatError("Error publishing plan", err))
		return
	}
	b.sendMarkdown(msg.Chat.ID, fmt.Sprintf("✅ *Published!*\n%s", escape(post.URL)))
}

func (b *Bot) handleClipperRequest(msg *tgbotapi.Message, url string) {
	sentMsg, err := b.sendMarkdown(msg.Chat.ID, "✂️ *Clipping recipe...*")
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var finalText string
	res, err := b.app.ClipURL(ctx, url)
	if err != nil {
		log.Printf("Error clipping recipe: %v", err)
		finalText = formatError("Error clipping recipe", err)
	} else {
		finalText = formatClipped(res.Recipe.Title, len(res.Recipe.Ingredients), res.UsedAI)
	}
	b.editMarkdown(msg.Chat.ID, sentMsg.MessageID, finalText)
}

// handlePlanMessage treats any other text as a menu document.
func (b *Bot) handlePlanMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	userID := userKey(msg.From.ID)

	doc, err := b.app.ParsePlan(msg.Text)
	if err != nil {
		b.sendMarkdown(msg.Chat.ID, formatParseError(msg.Text, err))
		return
	}

	exists, err := b.app.ExistsForStart(ctx, userID, doc.StartDate)
	if err != nil {
		log.Printf("Warning: failed to check for existing plan: %v", err)
	}
	p := pendingPlan{userID: userID, source: msg.Text, doc: doc}
	if exists {
		b.askBeforeSaving(msg.Chat.ID, p)
		return
	}
	b.importAndReply(ctx, msg.Chat.ID, p)
}

func (b *Bot) askBeforeSaving(chatID int64, p pendingPlan) {
	prompt := tgbotapi.NewMessage(chatID, fmt.Sprintf("🗓️ You already have a plan starting *%s*.\nSave this one as well?", p.doc.StartDate))
	prompt.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(prompt)
	if err != nil {
		log.Printf("Failed to send prompt: %v", err)
		return
	}

	key := pendingKey(chatID, sent.MessageID)
	b.holdPending(key, p)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Save", "save|"+key),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Discard", "discard|"+key),
		),
	)
	b.api.Send(tgbotapi.NewEditMessageReplyMarkup(chatID, sent.MessageID, keyboard))
}

// holdPending stores p under key until a button is pressed or the TTL expires.
func (b *Bot) holdPending(key string, p pendingPlan) {
	b.pending.Store(key, p)
	time.AfterFunc(b.pendingTTL, func() {
		b.pending.CompareAndDelete(key, p)
	})
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	action, key, ok := strings.Cut(query.Data, "|")
	if !ok || query.Message == nil {
		return
	}
	value, found := b.pending.LoadAndDelete(key)
	chatID, messageID := query.Message.Chat.ID, query.Message.MessageID
	if !found {
		b.editMarkdown(chatID, messageID, "⌛ This plan is no longer pending. Please send it again.")
		return
	}

	if action != "save" {
		b.editMarkdown(chatID, messageID, "✖️ Plan discarded.")
		return
	}
	b.editMarkdown(chatID, messageID, "💾 Saving plan...")
	b.importAndReply(context.Background(), chatID, value.(pendingPlan))
}

func (b *Bot) importAndReply(ctx context.Context, chatID int64, p pendingPlan) {
	imported, err := b.app.ImportDocument(ctx, p.userID, p.source, p.doc)
	if err != nil {
		log.Printf("Error importing plan: %v", err)
		b.sendMarkdown(chatID, formatError("Error saving plan", err))
		return
	}

	planText, shoppingText := formatImported(imported)
	b.sendMarkdown(chatID, planText)
	b.sendMarkdown(chatID, shoppingText)
}

func (b *Bot) sendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("Failed to send message to %d: %v", chatID, err)
	}
	return sent, err
}

func (b *Bot) editMarkdown(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message %d: %v", messageID, err)
	}
}

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func pendingKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}
