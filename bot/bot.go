// Package bot is the thin Telegram transport around the search
// pipeline. It parses the command, runs one pipeline invocation and
// delivers the rendered file; all scraping decisions live elsewhere.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ricardo-scout/config"
	"ricardo-scout/models"
	"ricardo-scout/scraper/ricardo"
	"ricardo-scout/services"
)

// sender is the outbound half of the bot API. *tgbotapi.BotAPI
// implements it; tests substitute a recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type searchFunc func(ctx context.Context, q models.SearchQuery) (models.ResultSet, error)

type Bot struct {
	cfg *config.Config
	log *slog.Logger
	api *tgbotapi.BotAPI
	mgr *ricardo.Manager

	send   sender
	search searchFunc

	mu       sync.Mutex
	inflight map[int64]*searchSlot
}

// searchSlot identifies one in-flight search so a finished search only
// clears its own registration, never a successor's.
type searchSlot struct {
	cancel context.CancelFunc
}

func New(cfg *config.Config, log *slog.Logger, mgr *ricardo.Manager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("telegram api: %w", err)
	}
	b := &Bot{
		cfg:      cfg,
		log:      log,
		api:      api,
		mgr:      mgr,
		send:     api,
		inflight: make(map[int64]*searchSlot),
	}
	b.search = b.runSearch
	return b, nil
}

func (b *Bot) runSearch(ctx context.Context, q models.SearchQuery) (models.ResultSet, error) {
	return services.RunSearch(ctx, b.cfg, b.log, b.mgr, q)
}

// Run owns the single long-lived poll loop. Any webhook left over
// from a previous deployment conflicts with long polling, so it is
// cleared before the first GetUpdates call.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("clear webhook: %w", err)
	}

	b.log.Info("bot polling started", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	// Channel posts and other senderless messages carry no From; there
	// is nobody to key the in-flight bookkeeping on, so drop them.
	if msg.From == nil {
		return
	}

	if b.cfg.OwnerID != 0 && msg.From.ID != b.cfg.OwnerID {
		b.log.Warn("update from non-owner ignored", "from", msg.From.ID)
		return
	}

	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, "Ready. Use /find <name> [json|txt] to search.")
	case "find":
		name, format := ParseCommandArgs(msg.CommandArguments())
		if name == "" {
			b.reply(msg.Chat.ID, "Usage: /find <name> [json|txt]")
			return
		}
		b.startSearch(ctx, msg.Chat.ID, msg.From.ID, models.SearchQuery{RawName: name, Format: format})
	}
}

// startSearch runs the pipeline in the background. A new command from
// the same user supersedes the in-flight one: cancelling its context
// releases the browser session through the scoped-release guarantee,
// and the superseded invocation never delivers its file.
func (b *Bot) startSearch(ctx context.Context, chatID, userID int64, q models.SearchQuery) {
	searchCtx, cancel := context.WithCancel(ctx)
	slot := &searchSlot{cancel: cancel}

	b.mu.Lock()
	if prev, ok := b.inflight[userID]; ok {
		prev.cancel()
	}
	b.inflight[userID] = slot
	b.mu.Unlock()

	b.reply(chatID, fmt.Sprintf("Searching for %q…", q.Name()))

	go func() {
		defer func() {
			cancel()
			b.mu.Lock()
			if b.inflight[userID] == slot {
				delete(b.inflight, userID)
			}
			b.mu.Unlock()
		}()

		rs, err := b.search(searchCtx, q)
		// A cancelled invocation may still return partial results with a
		// nil error; a superseded or shut-down search delivers nothing.
		if searchCtx.Err() != nil {
			return
		}
		if err != nil {
			b.log.Error("search failed", "user", userID, "error", err)
			b.reply(chatID, "Search failed: "+err.Error())
			return
		}

		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  rs.Filename,
			Bytes: rs.Content,
		})
		doc.Caption = fmt.Sprintf("%d match(es)", len(rs.Listings))
		if _, err := b.send.Send(doc); err != nil {
			b.log.Error("could not deliver result file", "user", userID, "error", err)
		}
	}()
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.send.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("could not send message", "chat", chatID, "error", err)
	}
}

// ParseCommandArgs splits the free-text command argument into the
// query name and an optional trailing format token. The token is
// case-insensitive; anything unrecognized leaves the default TXT and
// stays part of the name only when it is the sole word.
func ParseCommandArgs(raw string) (string, models.OutputFormat) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", models.FormatTXT
	}

	last := strings.ToLower(fields[len(fields)-1])
	if len(fields) > 1 && (last == "json" || last == "txt") {
		return strings.Join(fields[:len(fields)-1], " "), models.ParseFormat(last)
	}
	return strings.Join(fields, " "), models.FormatTXT
}
