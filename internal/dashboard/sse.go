package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// sessionsEvent is the periodic activity snapshot pushed to SSE clients.
type sessionsEvent struct {
	Sessions int    `json:"sessions"`
	Messages int    `json:"messages"`
	Unseen   int    `json:"unseen"`
	Feed     string `json:"feed"`
}

// handleSSE streams live chat activity: a snapshot event whenever the
// session map changes, banner events as they are raised, and heartbeats
// to keep proxies from closing the stream.
func handleSSE(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// No listener means no live data; tests exercise the handshake alone.
		if opts.Listener == nil {
			return
		}

		var lastSnapshot sessionsEvent
		var lastBannerExpiry time.Time

		ctx := c.Request.Context()
		ticker := time.NewTicker(time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				snap := snapshot(opts)
				if snap != lastSnapshot {
					lastSnapshot = snap
					writeSSE(c.Writer, "sessions", snap)
					c.Writer.Flush()
				}
				if b, ok := opts.Listener.CurrentBanner(); ok && !b.ExpiresAt.Equal(lastBannerExpiry) {
					lastBannerExpiry = b.ExpiresAt
					writeSSE(c.Writer, "banner", b)
					c.Writer.Flush()
				}
			}
		}
	}
}

// snapshot summarizes the aggregator for change detection.
func snapshot(opts StartOpts) sessionsEvent {
	snap := sessionsEvent{Feed: opts.Listener.State().String()}
	for _, s := range opts.Agg.Sessions() {
		snap.Sessions++
		snap.Messages += s.MessageCount
		if s.HasUnseen {
			snap.Unseen++
		}
	}
	return snap
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
