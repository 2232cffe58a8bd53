// Package discord implements the notify Adapter for Discord.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/yonetim/opsdesk/internal/notify"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelFileSendWithMessage(channelID, content, name string, r *bytes.Reader) (*discordgo.Message, error)
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }

func (r *realSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSendComplex(channelID, data, options...)
}

func (r *realSession) ChannelFileSendWithMessage(channelID, content, name string, rd *bytes.Reader) (*discordgo.Message, error) {
	return r.s.ChannelFileSendWithMessage(channelID, content, name, rd)
}

// Adapter implements notify.Adapter for Discord. Send-only: recipient
// addresses are Discord channel IDs.
type Adapter struct {
	sess     session
	botToken string

	mu        sync.Mutex
	connected bool
	closed    bool
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken string
	// For testing: inject a mock session instead of a real discordgo session.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	return &Adapter{sess: opts.Session, botToken: opts.BotToken}, nil
}

// Connect opens the gateway session.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages
		a.sess = &realSession{s: dg}
	}
	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}

	a.connected = true
	return nil
}

// SendText delivers a message. URL buttons become link buttons in an
// action row; callback-only buttons are dropped (no interaction handler
// runs on this side).
func (a *Adapter) SendText(ctx context.Context, chatID, text string, buttons []notify.Button) error {
	if err := a.checkConnected(); err != nil {
		return err
	}

	data := &discordgo.MessageSend{Content: text}
	if row := buttonRow(buttons); row != nil {
		data.Components = []discordgo.MessageComponent{*row}
	}

	if _, err := a.sess.ChannelMessageSendComplex(chatID, data); err != nil {
		return fmt.Errorf("discord: send to %s: %w", chatID, err)
	}
	return nil
}

// SendDocument delivers a file to one recipient channel.
func (a *Adapter) SendDocument(ctx context.Context, chatID, fileName string, data []byte, caption string) error {
	if err := a.checkConnected(); err != nil {
		return err
	}

	if _, err := a.sess.ChannelFileSendWithMessage(chatID, caption, fileName, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("discord: send file %s to %s: %w", fileName, chatID, err)
	}
	return nil
}

// Close shuts down the gateway session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if !a.connected {
		return nil
	}
	a.connected = false
	if err := a.sess.Close(); err != nil {
		return fmt.Errorf("discord: close session: %w", err)
	}
	return nil
}

func (a *Adapter) checkConnected() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return fmt.Errorf("discord: not connected")
	}
	return nil
}

// buttonRow renders URL buttons as one action row of link buttons.
func buttonRow(buttons []notify.Button) *discordgo.ActionsRow {
	var links []discordgo.MessageComponent
	for _, b := range buttons {
		if b.URL == "" {
			continue
		}
		links = append(links, discordgo.Button{
			Label: b.Text,
			Style: discordgo.LinkButton,
			URL:   b.URL,
		})
	}
	if len(links) == 0 {
		return nil
	}
	return &discordgo.ActionsRow{Components: links}
}
