package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"
	"github.com/yonetim/opsdesk/internal/models"
)

// subscribeRequest is the frame sent after connecting, keyed by table and
// event type like the upstream change-feed protocol.
type subscribeRequest struct {
	Table string `json:"table"`
	Event string `json:"event"`
}

// changeEvent is one frame from the remote feed: the full inserted row.
type changeEvent struct {
	Table string             `json:"table"`
	Event string             `json:"event"`
	Row   models.ChatMessage `json:"row"`
}

// WSFeed subscribes to a remote change feed over a websocket. Each
// Subscribe call is a single connection attempt; when the connection
// drops the channel closes and the caller resubscribes.
type WSFeed struct {
	url    string
	dialer *websocket.Dialer
}

// NewWSFeed creates a WSFeed for the given websocket URL.
func NewWSFeed(url string) (*WSFeed, error) {
	if url == "" {
		return nil, fmt.Errorf("feed: url is required")
	}
	return &WSFeed{url: url, dialer: websocket.DefaultDialer}, nil
}

// Subscribe dials the feed, requests INSERT events on chat_messages, and
// pumps rows until the connection drops or ctx is cancelled.
func (f *WSFeed) Subscribe(ctx context.Context) (<-chan models.ChatMessage, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", f.url, err)
	}

	req := subscribeRequest{Table: "chat_messages", Event: "INSERT"}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("feed: subscribe: %w", err)
	}

	ch := make(chan models.ChatMessage, 64)

	// Close the connection when ctx is cancelled so the read loop unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("feed: read: %v", err)
				}
				return
			}
			msg, ok := decodeEvent(data)
			if !ok {
				continue
			}
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// decodeEvent parses a feed frame, accepting only chat_messages INSERTs
// with a usable row. Malformed frames are dropped, not surfaced.
func decodeEvent(data []byte) (models.ChatMessage, bool) {
	var evt changeEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return models.ChatMessage{}, false
	}
	if evt.Table != "chat_messages" || evt.Event != "INSERT" {
		return models.ChatMessage{}, false
	}
	if evt.Row.ID == "" || evt.Row.SessionID == "" {
		return models.ChatMessage{}, false
	}
	return evt.Row, true
}
