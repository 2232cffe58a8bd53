package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the
// duration until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// RunDigest sends a daily delivery summary to the primary recipient on the
// given cron schedule. It blocks until ctx is cancelled. An unparsable
// expression disables the digest.
func (d *Dispatcher) RunDigest(ctx context.Context, expr string) {
	wait := nextCronDuration(expr)
	if wait <= 0 {
		log.Printf("notify: digest disabled (bad cron %q)", expr)
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.fireDigest(ctx)
			if wait = nextCronDuration(expr); wait > 0 {
				timer.Reset(wait)
			} else {
				return
			}
		}
	}
}

// fireDigest builds and sends one digest (best-effort).
func (d *Dispatcher) fireDigest(ctx context.Context) {
	text, ok, err := d.BuildDigest(ctx)
	if err != nil {
		log.Printf("notify: digest: %v", err)
		return
	}
	if !ok {
		// Nothing happened in the window, skip the send.
		return
	}
	if d.channel.PrimaryChatID == "" {
		return
	}
	if err := d.adapter.SendText(ctx, d.channel.PrimaryChatID, text, nil); err != nil {
		log.Printf("notify: send digest: %v", err)
	}
}

// BuildDigest summarizes the last 24 hours of dispatch audit rows.
// Returns ok=false when there was no activity.
func (d *Dispatcher) BuildDigest(ctx context.Context) (string, bool, error) {
	cutoff := time.Now().Add(-24 * time.Hour)
	recs, err := d.gateway.NotificationsSince(ctx, cutoff)
	if err != nil {
		return "", false, fmt.Errorf("notify: digest query: %w", err)
	}
	if len(recs) == 0 {
		return "", false, nil
	}

	lang := d.channel.Language
	byType := make(map[string]int)
	sent, failed := 0, 0
	for _, r := range recs {
		byType[r.RequestType]++
		sent += r.Succeeded
		failed += r.Attempted - r.Succeeded
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📈 <b>%s</b>\n", label(lang, "ملخص إشعارات اليوم", "Daily notification summary"))
	fmt.Fprintf(&b, "• %s %d\n", label(lang, "إشعارات:", "Notifications:"), len(recs))
	fmt.Fprintf(&b, "• %s %d\n", label(lang, "رسائل ناجحة:", "Deliveries:"), sent)
	fmt.Fprintf(&b, "• %s %d\n", label(lang, "رسائل فاشلة:", "Failures:"), failed)
	for t, n := range byType {
		fmt.Fprintf(&b, "• %s: %d\n", typeText(t, lang), n)
	}
	return b.String(), true, nil
}
