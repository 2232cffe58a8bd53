// Package models defines the GORM models shared across opsdesk.
package models

import "time"

// Sender values for ChatMessage.
const (
	SenderUser  = "user"
	SenderBot   = "bot"
	SenderAdmin = "admin"
)

// ChatMessage is one message in a customer chat session. Messages are
// immutable once created; they are only ever deleted in bulk by session.
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	Sender    string    `gorm:"size:8;not null" json:"sender"`
	Content   string    `gorm:"type:text" json:"content"`
	UserID    string    `gorm:"size:36" json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
