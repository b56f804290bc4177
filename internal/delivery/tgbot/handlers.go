package tgbot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"
	"vadimgribanov.com/tg-remind/internal/command"
	"vadimgribanov.com/tg-remind/internal/repositories"
	"vadimgribanov.com/tg-remind/internal/services"
)

func RegisterHandlers(
	bot *tele.Bot,
	reminderService *services.ReminderService,
	prefs *repositories.PreferenceStore,
) {
	handler := NewBotHandler(reminderService, prefs)
	bot.Handle(tele.OnText, handler.HandleText)
}

type BotHandler struct {
	reminderService *services.ReminderService
	prefs           *repositories.PreferenceStore
}

func NewBotHandler(reminderService *services.ReminderService, prefs *repositories.PreferenceStore) *BotHandler {
	return &BotHandler{
		reminderService: reminderService,
		prefs:           prefs,
	}
}

// HandleText parses "$"-prefixed command text and replies in the originating
// chat. Everything else is ignored, as are other bots.
func (h *BotHandler) HandleText(c tele.Context) error {
	ctx := c.Get("requestContext").(context.Context)
	sender := c.Sender()
	if sender == nil || sender.IsBot {
		return nil
	}
	text := c.Text()
	if !strings.HasPrefix(text, "$") {
		return nil
	}

	loc := h.prefs.Get(sender.ID).Location()
	cmd, err := command.Parse(text, loc, time.Now())
	if err != nil {
		var parseErr *command.ParseError
		if errors.As(err, &parseErr) {
			return c.Send("Invalid command: " + parseErr.Error())
		}
		// Calendar errors from applying the time expression.
		slog.ErrorContext(ctx, "Time computation failed", "error", err, "user_id", sender.ID)
		return c.Send("Time computation error: " + err.Error())
	}

	response, err := h.reminderService.Handle(ctx, sender.ID, cmd)
	if err != nil {
		return c.Send(err.Error())
	}
	return c.Send(response)
}

// Notifier delivers fired reminders as Telegram direct messages.
type Notifier struct {
	bot *tele.Bot
}

func NewNotifier(bot *tele.Bot) *Notifier {
	return &Notifier{bot: bot}
}

func (n *Notifier) Notify(userID int64, message string) error {
	_, err := n.bot.Send(&tele.User{ID: userID}, message)
	return err
}
