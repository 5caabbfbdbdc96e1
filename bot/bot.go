package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf16"

	"restaurant-scraper/db"
	"restaurant-scraper/logger"
	"restaurant-scraper/scraper"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLength is the Telegram limit for a text message
const maxMessageLength = 4096

const (
	welcomeText      = "Welcome! Send me restaurant guide URLs, one per line, and I will extract every restaurant listed in them."
	helpText         = "Commands:\n/start - Start the bot\n/help - Show this help\n\nSend one or more article URLs, one per line. You'll get progress updates while they are processed, then restaurant_data.csv and restaurant_data.xlsx with the results."
	emptyInputText   = "Please enter at least one URL."
	unauthorizedText = "Sorry, you are not authorized to use this bot."
)

// API is the subset of *tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Queue stores incoming requests for the scheduler
type Queue interface {
	CreateRequest(ctx context.Context, chatID int64, messageID int, urls string, urlCount int) (*db.Request, error)
}

// Bot is the Telegram front-end. It queues URL lists and delivers results.
type Bot struct {
	api            API
	queue          Queue
	allowed        map[int64]bool
	spreadsheetURL string
	log            logger.Logger
}

// New creates a bot. An empty allowedUsers list lets everyone in.
func New(api API, queue Queue, allowedUsers []int64, spreadsheetURL string, log logger.Logger) *Bot {
	allowed := make(map[int64]bool, len(allowedUsers))
	for _, id := range allowedUsers {
		allowed[id] = true
	}
	return &Bot{
		api:            api,
		queue:          queue,
		allowed:        allowed,
		spreadsheetURL: spreadsheetURL,
		log:            log,
	}
}

// Run consumes updates until ctx is canceled
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updateConfig.Offset = -1 // skip updates sent while the bot was down

	updates := b.api.GetUpdatesChan(updateConfig)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes a single update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}
	if !b.authorized(userID) {
		b.log.Warn("Unauthorized user attempted to use bot", logger.Int64("user_id", userID))
		b.reply(chatID, unauthorizedText)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(chatID, msg.Command())
		return
	}

	b.handleURLs(ctx, chatID, msg.Text)
}

func (b *Bot) authorized(userID int64) bool {
	return len(b.allowed) == 0 || b.allowed[userID]
}

func (b *Bot) handleCommand(chatID int64, command string) {
	switch command {
	case "start":
		b.reply(chatID, welcomeText)
		if b.spreadsheetURL == "" {
			return
		}
		sent, err := b.api.Send(tgbotapi.NewMessage(chatID, "📊 Spreadsheet: "+b.spreadsheetURL))
		if err != nil {
			b.log.Warn("Failed to send spreadsheet link", logger.Error(err))
			return
		}
		pin := tgbotapi.PinChatMessageConfig{ChatID: chatID, MessageID: sent.MessageID}
		if _, err := b.api.Request(pin); err != nil {
			b.log.Debug("Failed to pin spreadsheet link", logger.Error(err))
		}
	case "help":
		b.reply(chatID, helpText)
	default:
		b.reply(chatID, "Unknown command. Use /help for available commands.")
	}
}

func (b *Bot) handleURLs(ctx context.Context, chatID int64, text string) {
	urls := scraper.ParseURLList(text)
	if len(urls) == 0 {
		b.reply(chatID, emptyInputText)
		return
	}

	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"📝 Request received! %d URL(s) queued. You'll receive status updates as they are processed.", len(urls))))
	if err != nil {
		b.log.Error("Error sending queued message", logger.Error(err))
		return
	}

	req, err := b.queue.CreateRequest(ctx, chatID, sent.MessageID, strings.Join(urls, "\n"), len(urls))
	if err != nil {
		b.log.Error("Error creating request", logger.Int64("chat_id", chatID), logger.Error(err))
		edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, fmt.Sprintf("❌ Error: Failed to create request: %v", err))
		if _, err := b.api.Send(edit); err != nil {
			b.log.Warn("Failed to report request error", logger.Error(err))
		}
		return
	}

	b.log.Info("Created request",
		logger.Int64("request_id", req.ID),
		logger.Int64("chat_id", chatID),
		logger.Int("urls", len(urls)))
}

// Notify sends a status message, threaded under replyTo when set
func (b *Bot) Notify(chatID int64, replyTo int, text string) error {
	msg := tgbotapi.NewMessage(chatID, truncate(text, maxMessageLength))
	if replyTo > 0 {
		msg.ReplyToMessageID = replyTo
	}
	_, err := b.api.Send(msg)
	return err
}

// SendFile sends data as a document attachment
func (b *Bot) SendFile(chatID int64, fileName string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: data})
	if _, err := b.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send %s: %w", fileName, err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("Failed to send message", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}

// truncate cuts s so it fits in max UTF-16 code units, the unit Telegram counts in
func truncate(s string, max int) string {
	if len(utf16.Encode([]rune(s))) <= max {
		return s
	}
	const ellipsis = '…'
	var b strings.Builder
	n := 0
	for _, r := range s {
		w := utf16.RuneLen(r)
		if n+w > max-utf16.RuneLen(ellipsis) {
			break
		}
		b.WriteRune(r)
		n += w
	}
	b.WriteRune(ellipsis)
	return b.String()
}
