// Package telegram adapts the go-telegram Bot API client to the lobby's
// notifier and update types.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lobby-roster/internal/notify"
)

// APIError is a Bot API rejection.
type APIError struct {
	Method      string
	Code        int
	Description string
	// RetryAfter is set on flood control replies.
	RetryAfter time.Duration

	err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

func (e *APIError) Unwrap() error { return e.err }

func (e *APIError) RetryDelay() time.Duration { return e.RetryAfter }

// Permanent is true for every 4xx except flood control.
func (e *APIError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests
}

// IsNotModified reports an edit that would not change the message.
func IsNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}

var statusOf = []struct {
	err  error
	code int
}{
	{tgbot.ErrorBadRequest, http.StatusBadRequest},
	{tgbot.ErrorUnauthorized, http.StatusUnauthorized},
	{tgbot.ErrorForbidden, http.StatusForbidden},
	{tgbot.ErrorNotFound, http.StatusNotFound},
	{tgbot.ErrorConflict, http.StatusConflict},
}

type Options struct {
	// BaseURL overrides the public Bot API endpoint.
	BaseURL     string
	PollTimeout time.Duration
	HTTPClient  *http.Client
	// SkipGetMe skips the token check New otherwise performs.
	SkipGetMe bool
	Logger    *zap.Logger
}

type Client struct {
	api   *tgbot.Bot
	token string
	log   *zap.Logger

	mu     sync.RWMutex
	handle func(Update)
}

var _ notify.Notifier = (*Client)(nil)

var allowedUpdates = tgbot.AllowedUpdates{"message", "callback_query", "my_chat_member"}

func New(token string, opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.PollTimeout + 10*time.Second}
	}
	c := &Client{token: token, log: log.Named("telegram")}

	bopts := []tgbot.Option{
		tgbot.WithHTTPClient(opts.PollTimeout, hc),
		tgbot.WithAllowedUpdates(allowedUpdates),
		tgbot.WithDefaultHandler(c.dispatch),
		tgbot.WithErrorsHandler(func(err error) {
			c.log.Warn("get updates", zap.Error(c.wrap("getUpdates", err)))
		}),
	}
	if opts.BaseURL != "" {
		bopts = append(bopts, tgbot.WithServerURL(strings.TrimRight(opts.BaseURL, "/")))
	}
	if opts.SkipGetMe {
		bopts = append(bopts, tgbot.WithSkipGetMe())
	}
	api, err := tgbot.New(token, bopts...)
	if err != nil {
		return nil, c.wrap("getMe", err)
	}
	c.api = api
	return c, nil
}

// wrap maps library errors onto APIError and keeps the token, which is part
// of every request URL, out of error text.
func (c *Client) wrap(method string, err error) error {
	if err == nil {
		return nil
	}
	var flood *tgbot.TooManyRequestsError
	if errors.As(err, &flood) {
		return &APIError{
			Method:      method,
			Code:        http.StatusTooManyRequests,
			Description: flood.Message,
			RetryAfter:  time.Duration(flood.RetryAfter) * time.Second,
			err:         err,
		}
	}
	for _, s := range statusOf {
		if errors.Is(err, s.err) {
			return &APIError{Method: method, Code: s.code, Description: err.Error(), err: err}
		}
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	if c.token != "" && strings.Contains(err.Error(), c.token) {
		return fmt.Errorf("telegram %s: %s", method, strings.ReplaceAll(err.Error(), c.token, "<token>"))
	}
	return fmt.Errorf("telegram %s: %w", method, err)
}

func keyboard(rows [][]notify.Button) models.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := &models.InlineKeyboardMarkup{InlineKeyboard: make([][]models.InlineKeyboardButton, len(rows))}
	for i, row := range rows {
		kb.InlineKeyboard[i] = make([]models.InlineKeyboardButton, len(row))
		for j, b := range row {
			kb.InlineKeyboard[i][j] = models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Data}
		}
	}
	return kb
}

func noPreview() *models.LinkPreviewOptions {
	return &models.LinkPreviewOptions{IsDisabled: tgbot.True()}
}

func (c *Client) Send(ctx context.Context, chatID int64, msg notify.Message) (int64, error) {
	sent, err := c.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:             chatID,
		Text:               msg.Text,
		ParseMode:          models.ParseMode(msg.ParseMode),
		LinkPreviewOptions: noPreview(),
		ReplyMarkup:        keyboard(msg.Buttons),
	})
	if err != nil {
		return 0, c.wrap("sendMessage", err)
	}
	return int64(sent.ID), nil
}

// Edit replaces text and keyboard. An edit that changes nothing succeeds.
func (c *Client) Edit(ctx context.Context, chatID, messageID int64, msg notify.Message) error {
	_, err := c.api.EditMessageText(ctx, &tgbot.EditMessageTextParams{
		ChatID:             chatID,
		MessageID:          int(messageID),
		Text:               msg.Text,
		ParseMode:          models.ParseMode(msg.ParseMode),
		LinkPreviewOptions: noPreview(),
		ReplyMarkup:        keyboard(msg.Buttons),
	})
	err = c.wrap("editMessageText", err)
	if IsNotModified(err) {
		return nil
	}
	return err
}

func (c *Client) Delete(ctx context.Context, chatID, messageID int64) error {
	_, err := c.api.DeleteMessage(ctx, &tgbot.DeleteMessageParams{ChatID: chatID, MessageID: int(messageID)})
	return c.wrap("deleteMessage", err)
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	_, err := c.api.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	return c.wrap("answerCallbackQuery", err)
}

// DeleteWebhook clears any webhook so long polling can be used.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := c.api.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{})
	return c.wrap("deleteWebhook", err)
}

// Run long-polls for updates until ctx is done, passing each to handle.
// handle may be called from several goroutines and must not block for long.
func (c *Client) Run(ctx context.Context, handle func(Update)) error {
	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()

	c.api.Start(ctx)
	return ctx.Err()
}

func (c *Client) dispatch(_ context.Context, _ *tgbot.Bot, u *models.Update) {
	c.mu.RLock()
	handle := c.handle
	c.mu.RUnlock()
	if handle == nil || u == nil {
		return
	}
	handle(FromModel(u))
}
