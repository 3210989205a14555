package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

// SecretHeader carries the webhook secret token.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxWebhookBody = 1 << 20

var (
	// ErrBadSecret means the webhook request did not carry the expected token.
	ErrBadSecret = errors.New("invalid webhook secret")
)

// ToUpdate converts a Telegram update. Only text messages from a user are
// accepted. The identity is the username, or the numeric user id when the
// user has none.
func ToUpdate(upd tgbotapi.Update) (model.Update, bool) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return model.Update{}, false
	}

	identity := msg.From.UserName
	if identity == "" {
		identity = strconv.FormatInt(msg.From.ID, 10)
	}

	return model.Update{
		UpdateID: upd.UpdateID,
		Identity: identity,
		ChatID:   msg.Chat.ID,
		Text:     msg.Text,
	}, true
}

// ParseWebhook decodes an update delivered to the webhook endpoint. When
// secret is set the request must carry it in SecretHeader.
func ParseWebhook(r *http.Request, secret string) (tgbotapi.Update, error) {
	var upd tgbotapi.Update

	if secret != "" {
		got := r.Header.Get(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return upd, ErrBadSecret
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return upd, fmt.Errorf("read webhook body: %w", err)
	}
	if err := json.Unmarshal(body, &upd); err != nil {
		return upd, fmt.Errorf("decode webhook update: %w", err)
	}
	return upd, nil
}
