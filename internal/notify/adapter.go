// Package notify formats business events and fans them out to every
// configured recipient on an external messaging channel.
package notify

import "context"

// Button is an inline action attached to a text message.
type Button struct {
	Text         string
	CallbackData string // callback button when set
	URL          string // link button when set
}

// Adapter is the interface platform implementations must satisfy. Each
// adapter wraps a single messaging platform and its recipient addressing.
type Adapter interface {
	// Connect establishes the platform connection.
	Connect(ctx context.Context) error

	// SendText delivers a text message (platform markup allowed) with
	// optional inline buttons to one recipient.
	SendText(ctx context.Context, chatID, text string, buttons []Button) error

	// SendDocument delivers a file to one recipient.
	SendDocument(ctx context.Context, chatID, fileName string, data []byte, caption string) error

	// Close gracefully shuts down the adapter.
	Close() error
}
