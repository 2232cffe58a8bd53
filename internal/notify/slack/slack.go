// Package slack implements the notify Adapter for Slack.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/yonetim/opsdesk/internal/notify"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	AuthTest() (*slackapi.AuthTestResponse, error)
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
	UploadFile(params slackapi.FileUploadParameters) (*slackapi.File, error)
}

// Adapter implements notify.Adapter for Slack. Send-only: recipient
// addresses are Slack channel or user IDs.
type Adapter struct {
	client   slackClient
	botToken string

	mu        sync.Mutex
	connected bool
	closed    bool
}

// AdapterOpts holds parameters for creating a Slack Adapter.
type AdapterOpts struct {
	BotToken string // xoxb-... Slack bot token
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// New creates a Slack Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	return &Adapter{client: opts.Client, botToken: opts.BotToken}, nil
}

// Connect verifies the token against the Slack API.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("slack: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.client == nil {
		a.client = slackapi.New(a.botToken)
	}
	if _, err := a.client.AuthTest(); err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}

	a.connected = true
	return nil
}

// SendText delivers a message. Inline buttons become link/action blocks;
// callback-only buttons are dropped (Slack actions need an interactivity
// endpoint this console does not expose).
func (a *Adapter) SendText(ctx context.Context, chatID, text string, buttons []notify.Button) error {
	if err := a.checkConnected(); err != nil {
		return err
	}

	options := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if att := buttonAttachment(buttons); att != nil {
		options = append(options, slackapi.MsgOptionAttachments(*att))
	}

	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := a.client.PostMessage(chatID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message to %s: %w", chatID, err)
	}
	return nil
}

// SendDocument uploads a file to one recipient channel.
func (a *Adapter) SendDocument(ctx context.Context, chatID, fileName string, data []byte, caption string) error {
	if err := a.checkConnected(); err != nil {
		return err
	}

	params := slackapi.FileUploadParameters{
		Channels:       []string{chatID},
		Filename:       fileName,
		Title:          fileName,
		InitialComment: caption,
		Content:        string(data),
	}
	err := retryOnRateLimit(ctx, func() error {
		_, upErr := a.client.UploadFile(params)
		return upErr
	})
	if err != nil {
		return fmt.Errorf("slack: upload %s to %s: %w", fileName, chatID, err)
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

func (a *Adapter) checkConnected() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return fmt.Errorf("slack: not connected")
	}
	return nil
}

// buttonAttachment renders URL buttons as an attachment with links.
func buttonAttachment(buttons []notify.Button) *slackapi.Attachment {
	var lines string
	for _, b := range buttons {
		if b.URL == "" {
			continue
		}
		lines += fmt.Sprintf("<%s|%s>\n", b.URL, b.Text)
	}
	if lines == "" {
		return nil
	}
	return &slackapi.Attachment{Text: lines}
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit
// errors. It respects context cancellation and Slack's RetryAfter.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
