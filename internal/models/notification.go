package models

import "time"

// Recipient is a registered notification recipient with an external chat
// address. Only active recipients with a non-empty chat ID receive alerts.
type Recipient struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	FullName  string    `gorm:"size:128"`
	ChatID    string    `gorm:"size:64;index"`
	Active    bool      `gorm:"index"`
	CreatedAt time.Time
}

// NotificationRecord is the audit row written after each dispatch attempt,
// regardless of delivery outcome.
type NotificationRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	RequestType string `gorm:"size:48;index"`
	SessionID   string `gorm:"size:64;index"`
	RequestID   string `gorm:"size:36"`
	Body        string `gorm:"type:text"`
	Priority    string `gorm:"size:8;default:normal"`
	Attempted   int
	Succeeded   int
	CreatedAt   time.Time
}
