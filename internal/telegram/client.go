// Package telegram adapts the Telegram Bot API to the assistant.
package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
)

const (
	// DefaultSendRate stays under Telegram's global limit of 30 messages per second.
	DefaultSendRate = 25.0

	// DefaultPollTimeout is the long-polling timeout.
	DefaultPollTimeout = 60 * time.Second
)

// API is the subset of the bot API used by the client.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Config holds client settings.
type Config struct {
	Token         string
	SendRate      float64
	PollTimeout   time.Duration
	WebhookSecret string
}

// Client sends messages and receives updates.
type Client struct {
	api         API
	limiter     *rate.Limiter
	pollTimeout time.Duration
	secret      string
	logger      *logger.Logger
}

// NewClient connects to the Bot API with cfg.Token.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	log.Info("connected to telegram", zap.String("bot", bot.Self.UserName))
	return NewClientWithAPI(bot, cfg, log), nil
}

// NewClientWithAPI wraps an existing API implementation.
func NewClientWithAPI(api API, cfg Config, log *logger.Logger) *Client {
	sendRate := cfg.SendRate
	if sendRate <= 0 {
		sendRate = DefaultSendRate
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}

	return &Client{
		api:         api,
		limiter:     rate.NewLimiter(rate.Limit(sendRate), 1),
		pollTimeout: pollTimeout,
		secret:      cfg.WebhookSecret,
		logger:      log,
	}
}

// SendText sends an HTML message. A nil keyboard leaves the client keyboard as is.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, keyboard model.Keyboard) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = replyKeyboard(keyboard)
	}

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendPhoto sends a photo by URL with an HTML caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, keyboard model.Keyboard) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		photo.ReplyMarkup = replyKeyboard(keyboard)
	}

	if _, err := c.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func replyKeyboard(kb model.Keyboard) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}

// Poll receives updates by long polling and passes text messages to fn until
// ctx is done.
func (c *Client) Poll(ctx context.Context, fn func(model.Update)) error {
	// getUpdates is refused while a webhook is registered.
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(c.pollTimeout.Seconds())
	updates := c.api.GetUpdatesChan(cfg)
	defer c.api.StopReceivingUpdates()

	c.logger.Info("polling for updates", zap.Duration("timeout", c.pollTimeout))

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if u, ok := ToUpdate(upd); ok {
				fn(u)
			}
		}
	}
}

// SetWebhook registers url as the update endpoint.
func (c *Client) SetWebhook(url string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", c.secret)

	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.logger.Info("webhook registered", zap.String("url", url))
	return nil
}

// Secret returns the token expected in webhook requests, if any.
func (c *Client) Secret() string {
	return c.secret
}
