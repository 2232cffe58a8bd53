// Package telegram implements the notify Adapter for the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yonetim/opsdesk/internal/notify"
)

// botClient abstracts the Bot API methods we use, enabling test mocks.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Adapter implements notify.Adapter for Telegram.
type Adapter struct {
	client   botClient
	botToken string
	endpoint string

	mu        sync.Mutex
	connected bool
	closed    bool
}

// AdapterOpts holds parameters for creating a Telegram Adapter.
type AdapterOpts struct {
	BotToken string
	Endpoint string // defaults to the public Bot API endpoint
	// For testing: inject a mock client instead of the real Bot API.
	Client botClient
}

// New creates a Telegram Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return &Adapter{
		client:   opts.Client,
		botToken: opts.BotToken,
		endpoint: endpoint,
	}, nil
}

// Connect creates the Bot API client (which verifies the token via getMe).
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.client == nil {
		bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(a.botToken, a.endpoint)
		if err != nil {
			return fmt.Errorf("telegram: connect: %w", err)
		}
		a.client = bot
	}

	a.connected = true
	return nil
}

// SendText delivers an HTML message with optional inline buttons.
func (a *Adapter) SendText(ctx context.Context, chatID, text string, buttons []notify.Button) error {
	id, err := a.resolveChatID(chatID)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = buildKeyboard(buttons)
	}

	if _, err := a.client.Send(msg); err != nil {
		return fmt.Errorf("telegram: send to %s: %w", chatID, err)
	}
	return nil
}

// SendDocument delivers a file to one recipient.
func (a *Adapter) SendDocument(ctx context.Context, chatID, fileName string, data []byte, caption string) error {
	id, err := a.resolveChatID(chatID)
	if err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(id, tgbotapi.FileBytes{Name: fileName, Bytes: data})
	doc.Caption = caption

	if _, err := a.client.Send(doc); err != nil {
		return fmt.Errorf("telegram: send document to %s: %w", chatID, err)
	}
	return nil
}

// Close shuts down the adapter.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.connected = false
	return nil
}

// resolveChatID parses the recipient address and checks connection state.
func (a *Adapter) resolveChatID(chatID string) (int64, error) {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return 0, fmt.Errorf("telegram: not connected")
	}

	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	return id, nil
}

// buildKeyboard translates notify buttons into an inline keyboard, one
// button per row like the console's own alerts.
func buildKeyboard(buttons []notify.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		var btn tgbotapi.InlineKeyboardButton
		if b.URL != "" {
			btn = tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL)
		} else {
			btn = tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
