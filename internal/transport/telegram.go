// Package transport adapts the Telegram Bot API to the flow layer:
// long-polled updates become flow events, and flow replies become
// Telegram sends. Each update is handled on its own goroutine so one
// chat can never stall another.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/flow"
)

const pollTimeoutSeconds = 30

// Bot runs the Telegram long-polling loop and implements flow.Sender.
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewBot authorizes against the Bot API.
func NewBot(token string, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	logger.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Bot{api: api, logger: logger}, nil
}

// Run polls for updates until ctx is cancelled, dispatching each update
// to the machine on its own goroutine.
func (b *Bot) Run(ctx context.Context, machine *flow.Machine) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("telegram polling stopped", "reason", ctx.Err())
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("telegram update channel closed")
				return
			}
			ev, ok := toEvent(update)
			if !ok {
				continue
			}
			go b.handle(ctx, machine, ev)
		}
	}
}

func (b *Bot) handle(ctx context.Context, machine *flow.Machine, ev flow.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic handling update",
				"chat_id", ev.ChatID,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	machine.HandleEvent(ctx, ev)
}

// toEvent converts a Telegram update into a flow event. Updates without
// a message (edits, callback queries) are skipped.
func toEvent(update tgbotapi.Update) (flow.Event, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return flow.Event{}, false
	}

	ev := flow.Event{ChatID: msg.Chat.ID}
	if msg.From != nil {
		ev.FirstName = msg.From.FirstName
	}

	switch {
	case msg.IsCommand():
		ev.Kind = flow.KindCommand
		ev.Command = msg.Command()
	case msg.Location != nil:
		ev.Kind = flow.KindLocation
		ev.Location = &domain.Location{
			Latitude:  msg.Location.Latitude,
			Longitude: msg.Location.Longitude,
		}
	default:
		// Photos, stickers and other non-text payloads arrive with an
		// empty Text and are rejected by the collector's validation.
		ev.Kind = flow.KindText
		ev.Text = msg.Text
	}
	return ev, true
}

// SendMessage sends text to the chat with the requested keyboard.
func (b *Bot) SendMessage(_ context.Context, chatID int64, text string, kb flow.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	switch kb {
	case flow.KeyboardLocation:
		button := tgbotapi.NewKeyboardButtonLocation(flow.LocationButtonText)
		markup := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(button))
		markup.OneTimeKeyboard = true
		markup.ResizeKeyboard = true
		msg.ReplyMarkup = markup
	case flow.KeyboardRemove:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	case flow.KeyboardNone:
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendTyping shows the "typing" chat action as transient feedback.
func (b *Bot) SendTyping(_ context.Context, chatID int64) error {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		return fmt.Errorf("send chat action: %w", err)
	}
	return nil
}
