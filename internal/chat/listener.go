package chat

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/yonetim/opsdesk/internal/feed"
	"github.com/yonetim/opsdesk/internal/models"
	"github.com/yonetim/opsdesk/internal/store"
)

// State is the push-subscription state of the listener.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// Default listener tuning.
const (
	DefaultPollInterval      = 5 * time.Second
	DefaultSessionRefresh    = 30 * time.Second
	DefaultReconcileInterval = time.Minute
	DefaultBannerTTL         = 5 * time.Second

	baseBackoff = 2 * time.Second
	maxBackoff  = 2 * time.Minute
)

// Banner is a transient new-message notice for the console. Advisory only;
// consumers drop it once ExpiresAt passes.
type Banner struct {
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Listener keeps the Aggregator converged with the store. Two independent
// producers feed it: the push change feed (incremental, via ApplyIncoming)
// and a poll ticker (full refresh, via RebuildFromSnapshot). Both read
// store-confirmed rows, so the paths converge through idempotent merges.
type Listener struct {
	gateway *store.Gateway
	agg     *Aggregator
	feed    feed.Feed
	claims  *ClaimTracker // optional

	pollInterval      time.Duration
	sessionRefresh    time.Duration
	reconcileInterval time.Duration
	bannerTTL         time.Duration
	baseBackoff       time.Duration
	maxBackoff        time.Duration

	mu      sync.Mutex
	state   State
	banner  *Banner
	banners chan Banner
}

// ListenerOpts holds parameters for creating a Listener.
type ListenerOpts struct {
	Gateway *store.Gateway
	Agg     *Aggregator
	Feed    feed.Feed
	Claims  *ClaimTracker // optional; enables periodic claim reconciliation

	PollInterval      time.Duration // defaults to DefaultPollInterval
	SessionRefresh    time.Duration // defaults to DefaultSessionRefresh
	ReconcileInterval time.Duration // defaults to DefaultReconcileInterval
	BannerTTL         time.Duration // defaults to DefaultBannerTTL
}

// NewListener creates a Listener.
func NewListener(opts ListenerOpts) (*Listener, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("chat: listener: gateway is required")
	}
	if opts.Agg == nil {
		return nil, fmt.Errorf("chat: listener: aggregator is required")
	}
	if opts.Feed == nil {
		return nil, fmt.Errorf("chat: listener: feed is required")
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	refresh := opts.SessionRefresh
	if refresh <= 0 {
		refresh = DefaultSessionRefresh
	}
	reconcile := opts.ReconcileInterval
	if reconcile <= 0 {
		reconcile = DefaultReconcileInterval
	}
	ttl := opts.BannerTTL
	if ttl <= 0 {
		ttl = DefaultBannerTTL
	}
	return &Listener{
		gateway:           opts.Gateway,
		agg:               opts.Agg,
		feed:              opts.Feed,
		claims:            opts.Claims,
		pollInterval:      poll,
		sessionRefresh:    refresh,
		reconcileInterval: reconcile,
		bannerTTL:         ttl,
		baseBackoff:       baseBackoff,
		maxBackoff:        maxBackoff,
		banners:           make(chan Banner, 16),
	}, nil
}

// State returns the current push-subscription state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Banners returns the banner stream for the console UI.
func (l *Listener) Banners() <-chan Banner { return l.banners }

// CurrentBanner returns the latest banner if it has not expired.
func (l *Listener) CurrentBanner() (Banner, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.banner == nil || time.Now().After(l.banner.ExpiresAt) {
		return Banner{}, false
	}
	return *l.banner, true
}

// Run drives the listener until ctx is cancelled: an initial full refresh,
// the push subscription loop, the poll fallback, and claim reconciliation.
// Subscription and timers are torn down together when ctx ends.
func (l *Listener) Run(ctx context.Context) {
	l.refresh(ctx)
	if l.claims != nil {
		if err := l.claims.Reconcile(ctx); err != nil {
			log.Printf("chat: listener: %v", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.runSubscription(ctx)
	}()
	go func() {
		defer wg.Done()
		l.runPoll(ctx)
	}()
	if l.claims != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.runReconcile(ctx)
		}()
	}
	wg.Wait()

	l.setState(StateDisconnected)
}

// runSubscription maintains the push subscription, retrying with capped
// exponential backoff for the lifetime of the listener.
func (l *Listener) runSubscription(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		l.setState(StateConnecting)

		ch, err := l.feed.Subscribe(ctx)
		if err != nil {
			wait := l.backoff(attempt)
			attempt++
			log.Printf("chat: listener: subscribe failed, retrying in %v: %v", wait, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}

		attempt = 0
		l.setState(StateSubscribed)
		l.pump(ctx, ch)
		// Channel closed: transport dropped or ctx ended.
	}
}

// pump applies push events until the channel closes.
func (l *Listener) pump(ctx context.Context, ch <-chan models.ChatMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			l.handlePush(msg)
		}
	}
}

// handlePush merges one push event and raises a banner for user messages
// on sessions other than the open one.
func (l *Listener) handlePush(msg models.ChatMessage) {
	l.agg.ApplyIncoming(msg)

	if msg.Sender != models.SenderUser || msg.SessionID == l.agg.Open() {
		return
	}
	short := msg.SessionID
	if len(short) > 8 {
		short = short[:8] + "..."
	}
	b := Banner{
		SessionID: msg.SessionID,
		Text:      "رسالة جديدة من العميل في الجلسة: " + short,
		ExpiresAt: time.Now().Add(l.bannerTTL),
	}
	l.mu.Lock()
	l.banner = &b
	l.mu.Unlock()
	select {
	case l.banners <- b:
	default:
	}
}

// runPoll drives the two refresh timers. The fast poll covers the window
// when the push subscription is down; the slower session-refresh ticker
// rebuilds unconditionally, so even a subscribed channel that silently
// stops delivering converges within one refresh interval.
func (l *Listener) runPoll(ctx context.Context) {
	poll := time.NewTicker(l.pollInterval)
	defer poll.Stop()
	refresh := time.NewTicker(l.sessionRefresh)
	defer refresh.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			if l.State() != StateSubscribed {
				l.refresh(ctx)
			}
		case <-refresh.C:
			l.refresh(ctx)
		}
	}
}

// refresh rebuilds the session map from the store. On failure the previous
// map is left intact: a timed-out read is "no new data", never "empty".
func (l *Listener) refresh(ctx context.Context) {
	msgs, err := l.gateway.AllMessages(ctx)
	if err != nil {
		if store.IsTimeout(err) {
			log.Printf("chat: listener: refresh timed out, keeping current sessions")
		} else {
			log.Printf("chat: listener: refresh: %v", err)
		}
		return
	}
	l.agg.RebuildFromSnapshot(msgs)
}

// runReconcile periodically unions durable claim markers into the tracker.
func (l *Listener) runReconcile(ctx context.Context) {
	ticker := time.NewTicker(l.reconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.claims.Reconcile(ctx); err != nil {
				log.Printf("chat: listener: %v", err)
			}
		}
	}
}

func (l *Listener) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// backoff returns the capped exponential wait for the given attempt.
func (l *Listener) backoff(attempt int) time.Duration {
	wait := time.Duration(math.Pow(2, float64(attempt))) * l.baseBackoff
	if wait > l.maxBackoff {
		wait = l.maxBackoff
	}
	return wait
}
