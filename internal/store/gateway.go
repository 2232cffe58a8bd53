package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yonetim/opsdesk/internal/models"
	"gorm.io/gorm"
)

// Query timeouts. A timed-out read is reported as KindTimeout so callers
// can keep their previous state instead of treating it as empty.
const (
	listTimeout    = 3 * time.Second
	sessionTimeout = 10 * time.Second
	writeTimeout   = 5 * time.Second
)

// Gateway wraps the relational store with bounded, classified operations.
type Gateway struct {
	db *gorm.DB
}

// NewGateway creates a Gateway.
func NewGateway(db *gorm.DB) (*Gateway, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &Gateway{db: db}, nil
}

// DB exposes the underlying connection for packages that run their own
// queries (dashboard, digest).
func (g *Gateway) DB() *gorm.DB { return g.db }

// AllMessages returns every chat message, newest first. Used to rebuild
// the session map on a full refresh.
func (g *Gateway) AllMessages(ctx context.Context) ([]models.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var msgs []models.ChatMessage
	err := g.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, wrap("all messages", err)
	}
	return msgs, nil
}

// MessagesBySession returns a session's messages ascending by time.
func (g *Gateway) MessagesBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()

	var msgs []models.ChatMessage
	err := g.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, wrap(fmt.Sprintf("messages for session %s", sessionID), err)
	}
	return msgs, nil
}

// InsertMessage creates a chat message and returns the stored row.
func (g *Gateway) InsertMessage(ctx context.Context, sessionID, sender, content string) (*models.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, wrap(fmt.Sprintf("insert message for session %s", sessionID), err)
	}
	return &msg, nil
}

// DeleteSession removes all messages for a session.
func (g *Gateway) DeleteSession(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	err := g.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.ChatMessage{}).Error
	if err != nil {
		return wrap(fmt.Sprintf("delete session %s", sessionID), err)
	}
	return nil
}

// SessionHasAdminMarker reports whether a session contains an admin
// message matching the marker substring.
func (g *Gateway) SessionHasAdminMarker(ctx context.Context, sessionID, marker string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("session_id = ? AND sender = ? AND content LIKE ?", sessionID, models.SenderAdmin, "%"+marker+"%").
		Count(&count).Error
	if err != nil {
		return false, wrap(fmt.Sprintf("claim marker for session %s", sessionID), err)
	}
	return count > 0, nil
}

// SessionsWithAdminMarker returns the distinct session IDs that contain an
// admin message matching the marker substring. Used by claim reconciliation.
func (g *Gateway) SessionsWithAdminMarker(ctx context.Context, marker string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var ids []string
	err := g.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Distinct("session_id").
		Where("sender = ? AND content LIKE ?", models.SenderAdmin, "%"+marker+"%").
		Pluck("session_id", &ids).Error
	if err != nil {
		return nil, wrap("sessions with admin marker", err)
	}
	return ids, nil
}
