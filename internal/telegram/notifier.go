// Package telegram announces menu changes in a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/erazemk/menza/internal/model"
)

// Notifier posts a short message for every menu change.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// RequestTimeout bounds every Bot API call.
const RequestTimeout = 10 * time.Second

// New connects to the Bot API with the given token.
func New(token string, chatID int64) (*Notifier, error) {
	client := &http.Client{Timeout: RequestTimeout}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return &Notifier{api: api, chatID: chatID}, nil
}

// NewWithAPI wraps an existing bot client.
func NewWithAPI(api *tgbotapi.BotAPI, chatID int64) *Notifier {
	return &Notifier{api: api, chatID: chatID}
}

// Notify implements menu.Notifier. It returns when ctx is done even if the
// Bot API has not answered yet.
func (n *Notifier) Notify(ctx context.Context, ev model.ChangeEvent) error {
	text := FormatEvent(ev)
	if text == "" {
		return nil
	}

	sent := make(chan error, 1)
	go func() {
		_, err := n.api.Send(tgbotapi.NewMessage(n.chatID, text))
		sent <- err
	}()

	select {
	case err := <-sent:
		if err != nil {
			return fmt.Errorf("sending telegram message: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending telegram message: %w", ctx.Err())
	}
}

// FormatEvent renders ev as a chat message. Unknown event types yield "".
func FormatEvent(ev model.ChangeEvent) string {
	switch ev.Type {
	case model.EventCreated:
		return fmt.Sprintf("%s was added to the menu by %s.", ev.ItemName, ev.UpdatedBy)
	case model.EventUpdated:
		return fmt.Sprintf("%s was updated by %s.", ev.ItemName, ev.UpdatedBy)
	case model.EventBulkUpdated:
		return fmt.Sprintf("The menu was updated by %s (%d items).", ev.UpdatedBy, ev.Count)
	case model.EventDeleted:
		return fmt.Sprintf("%s was removed from the menu by %s.", ev.ItemName, ev.UpdatedBy)
	case model.EventImage:
		return fmt.Sprintf("%s has a new photo.", ev.ItemName)
	case model.EventSeeded:
		return fmt.Sprintf("The default menu was loaded (%d items).", ev.Count)
	default:
		return ""
	}
}
