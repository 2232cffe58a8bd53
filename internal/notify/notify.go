package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/yonetim/opsdesk/internal/config"
	"github.com/yonetim/opsdesk/internal/models"
	"github.com/yonetim/opsdesk/internal/store"
)

// ConfigError reports a dispatch precondition failure (channel disabled,
// no recipients). Not retried; surfaced to the caller as-is.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "notify: " + e.Reason }

// ClientInfo is the customer block of a notification.
type ClientInfo struct {
	Name  string
	Email string
	Phone string
}

// Details carries the type-specific extra fields of an event. Only the
// group matching the event type is read.
type Details struct {
	// translation / insurance / service_request
	ServiceType string
	HasFile     bool
	FileName    string

	// health_insurance
	AgeGroup         string
	CalculatedAge    int
	BirthDate        string
	CompanyName      string
	DurationMonths   int
	CalculatedPrice  float64
	HasPassportImage bool

	// voluntary_return
	KimlikNo     string
	SinirKapisi  string
	RefakatCount int
	CustomDate   string

	// health_insurance_activation
	Address string

	// chat_support
	MessageCount int
	Language     string
	Urgent       bool
}

// Event is one business event to notify about. Transient; only the audit
// row survives the call.
type Event struct {
	Type       string // see format.go for the supported types
	SessionID  string
	RequestID  string
	Body       string
	Client     ClientInfo
	Attachment string // "base64://<id>" or an object-storage path
	Details    Details
}

// Failure names one recipient that did not receive the message and why.
type Failure struct {
	Recipient string
	Reason    string
}

// Result is the per-recipient accounting of a dispatch call. Partial
// success (0 < Succeeded < Attempted) is a successful call with warnings.
type Result struct {
	Attempted int
	Succeeded int
	Failures  []Failure
}

// Dispatcher resolves recipients, formats, fans out, and audits.
type Dispatcher struct {
	gateway *store.Gateway
	adapter Adapter
	objects store.ObjectStore // optional attachment fallback
	channel config.ChannelConfig
}

// DispatcherOpts holds parameters for creating a Dispatcher.
type DispatcherOpts struct {
	Gateway *store.Gateway
	Adapter Adapter
	Objects store.ObjectStore // optional
	Channel config.ChannelConfig
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOpts) (*Dispatcher, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("notify: gateway is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("notify: adapter is required")
	}
	return &Dispatcher{
		gateway: opts.Gateway,
		adapter: opts.Adapter,
		objects: opts.Objects,
		channel: opts.Channel,
	}, nil
}

// Dispatch sends one formatted alert to every resolved recipient. Each
// send is isolated; the call resolves only once every send (and any
// attachment follow-up) has settled. It returns an error only when the
// channel is misconfigured or no recipient received the text.
func (d *Dispatcher) Dispatch(ctx context.Context, evt Event) (Result, error) {
	if !d.channel.Enabled {
		return Result{}, &ConfigError{Reason: "channel is disabled"}
	}

	recipients, err := d.resolveRecipients(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(recipients) == 0 {
		return Result{}, &ConfigError{Reason: "no recipients configured"}
	}

	text := FormatMessage(evt, d.channel.Language)
	buttons := d.buttons(evt)

	result := Result{Attempted: len(recipients)}
	delivered := make([]string, 0, len(recipients))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, chatID := range recipients {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			err := d.adapter.SendText(ctx, chatID, text, buttons)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, Failure{Recipient: chatID, Reason: err.Error()})
				return
			}
			result.Succeeded++
			delivered = append(delivered, chatID)
		}(chatID)
	}
	wg.Wait()

	if evt.Attachment != "" && len(delivered) > 0 {
		d.sendAttachment(ctx, evt, delivered, &result)
	}

	d.audit(ctx, evt, text, result)

	if result.Succeeded == 0 {
		return result, fmt.Errorf("notify: all %d sends failed", result.Attempted)
	}
	return result, nil
}

// resolveRecipients returns the primary recipient plus every active
// registered recipient, deduplicated in order.
func (d *Dispatcher) resolveRecipients(ctx context.Context) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	add(d.channel.PrimaryChatID)

	recipients, err := d.gateway.ActiveRecipients(ctx)
	if err != nil {
		// The primary recipient still gets the alert on a store failure.
		log.Printf("notify: resolve recipients: %v", err)
		return out, nil
	}
	for _, r := range recipients {
		add(r.ChatID)
	}
	return out, nil
}

// buttons builds the inline actions for chat-related events.
func (d *Dispatcher) buttons(evt Event) []Button {
	if evt.SessionID == "" {
		return nil
	}
	lang := d.channel.Language
	reply := "💬 الرد على العميل"
	view := "🌐 عرض في لوحة التحكم"
	if lang == "en" {
		reply = "💬 Reply to Customer"
		view = "🌐 View in Dashboard"
	}
	buttons := []Button{{Text: reply, CallbackData: "start_chat:" + evt.SessionID}}
	if d.channel.DashboardURL != "" {
		buttons = append(buttons, Button{Text: view, URL: d.channel.DashboardURL})
	}
	return buttons
}

// sendAttachment resolves the referenced bytes and delivers them as a
// second message to every recipient that received the text. Failures are
// recorded but never invalidate the text delivery already counted.
func (d *Dispatcher) sendAttachment(ctx context.Context, evt Event, delivered []string, result *Result) {
	name, data, err := d.resolveAttachment(ctx, evt.Attachment)
	if err != nil {
		log.Printf("notify: resolve attachment %s: %v", evt.Attachment, err)
		return
	}

	caption := "📎 ملف مرفق مع الطلب"
	if d.channel.Language == "en" {
		caption = "📎 File attached with request"
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, chatID := range delivered {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			if err := d.adapter.SendDocument(ctx, chatID, name, data, caption); err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, Failure{
					Recipient: chatID,
					Reason:    "attachment: " + err.Error(),
				})
				mu.Unlock()
			}
		}(chatID)
	}
	wg.Wait()
}

// resolveAttachment tries inline storage first, then the object store.
func (d *Dispatcher) resolveAttachment(ctx context.Context, ref string) (string, []byte, error) {
	if strings.HasPrefix(ref, "base64://") {
		return d.gateway.AttachmentBytes(ctx, ref)
	}
	name, data, err := d.gateway.AttachmentBytes(ctx, ref)
	if err == nil {
		return name, data, nil
	}
	if d.objects == nil {
		return "", nil, err
	}
	data, objErr := d.objects.Download(ctx, ref)
	if objErr != nil {
		return "", nil, fmt.Errorf("notify: attachment not inline (%v) nor in object storage: %w", err, objErr)
	}
	name = ref
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		name = ref[i+1:]
	}
	return name, data, nil
}

// audit persists the dispatch record. Best-effort: delivery is never
// blocked by audit persistence.
func (d *Dispatcher) audit(ctx context.Context, evt Event, body string, result Result) {
	rec := models.NotificationRecord{
		RequestType: evt.Type,
		SessionID:   evt.SessionID,
		RequestID:   evt.RequestID,
		Body:        body,
		Priority:    PriorityFor(evt.Type),
		Attempted:   result.Attempted,
		Succeeded:   result.Succeeded,
	}
	if err := d.gateway.SaveNotification(ctx, rec); err != nil {
		log.Printf("notify: audit: %v", err)
	}
}
