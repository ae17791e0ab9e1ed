package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/hablo/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reminder is a nudge to keep a streak alive
type Reminder struct {
	UserID   string
	ChatID   int64
	Streak   int
	DueCards int
}

// Notifier delivers reminders
type Notifier interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// Text renders the reminder message
func Text(r Reminder) string {
	var b strings.Builder
	switch {
	case r.Streak > 1:
		fmt.Fprintf(&b, "¡Tu racha es de %d días! No la pierdas: juega una lección hoy.", r.Streak)
	case r.Streak == 1:
		b.WriteString("¡Llevas 1 día seguido! Vuelve hoy para empezar una racha.")
	default:
		b.WriteString("¡Hola! Hoy es un buen día para practicar español.")
	}
	if r.DueCards > 0 {
		form := "tarjetas"
		if r.DueCards == 1 {
			form = "tarjeta"
		}
		fmt.Fprintf(&b, "\nTienes %d %s para repasar.", r.DueCards, form)
	}
	return b.String()
}

// Telegram sends reminders through a Telegram bot
type Telegram struct {
	api *tgbotapi.BotAPI
	log *logger.Logger
}

// NewTelegram authorizes the bot token
func NewTelegram(token string, log *logger.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	log = log.With("service", "telegram")
	log.Info("authorized telegram bot", "account", api.Self.UserName)
	return &Telegram{api: api, log: log}, nil
}

func (t *Telegram) SendReminder(ctx context.Context, r Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(r.ChatID, Text(r))); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	t.log.Info("reminder sent", "user_id", r.UserID, "streak", r.Streak, "due_cards", r.DueCards)
	return nil
}

// Listen answers /start with the chat id so users can link it in their
// notification settings. It returns when ctx is done.
func (t *Telegram) Listen(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := t.api.GetUpdatesChan(cfg)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.Command() != "start" {
				continue
			}
			chatID := update.Message.Chat.ID
			msg := tgbotapi.NewMessage(chatID, StartText(chatID))
			if _, err := t.api.Send(msg); err != nil {
				t.log.Warn("failed to answer /start", "chat_id", chatID, "error", err)
			}
		}
	}
}

// StartText is the reply to /start
func StartText(chatID int64) string {
	return fmt.Sprintf("¡Bienvenido! Tu chat id es %d. Añádelo en los ajustes de notificaciones para recibir recordatorios.", chatID)
}

// Log writes reminders to the log instead of sending them
type Log struct {
	log *logger.Logger
}

// NewLog creates a notifier for deployments without a bot token
func NewLog(log *logger.Logger) *Log {
	return &Log{log: log.With("service", "notify")}
}

func (l *Log) SendReminder(ctx context.Context, r Reminder) error {
	l.log.Info("reminder", "user_id", r.UserID, "text", Text(r))
	return nil
}
