package store

import (
	"context"
	"time"

	"github.com/yonetim/opsdesk/internal/models"
)

// ActiveRecipients returns recipients that are active and have a
// registered external chat address.
func (g *Gateway) ActiveRecipients(ctx context.Context) ([]models.Recipient, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var recipients []models.Recipient
	err := g.db.WithContext(ctx).
		Where("active = ? AND chat_id <> ''", true).
		Find(&recipients).Error
	if err != nil {
		return nil, wrap("active recipients", err)
	}
	return recipients, nil
}

// SaveNotification writes a dispatch audit row. Best-effort at the caller:
// an error here must never block notification delivery.
func (g *Gateway) SaveNotification(ctx context.Context, rec models.NotificationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	rec.CreatedAt = time.Now().UTC()
	if err := g.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return wrap("save notification", err)
	}
	return nil
}

// NotificationsSince returns audit rows created after the cutoff, oldest
// first. Used by the daily digest.
func (g *Gateway) NotificationsSince(ctx context.Context, cutoff time.Time) ([]models.NotificationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var recs []models.NotificationRecord
	err := g.db.WithContext(ctx).
		Where("created_at >= ?", cutoff).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, wrap("notifications since", err)
	}
	return recs, nil
}
