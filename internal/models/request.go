package models

import "time"

// ServiceRequest is a customer service request. The console reads and
// updates these; attachment bytes may be stored inline on the row.
type ServiceRequest struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"size:36;index"`
	ServiceType string `gorm:"size:48;index"`
	Title       string `gorm:"size:256"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"size:16;default:pending;index"`
	Priority    string `gorm:"size:8;default:normal"`
	FileName    string `gorm:"size:256"`
	FileData    string `gorm:"type:text"` // base64-encoded inline attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FileAttachment holds an inline-encoded file referenced by id from a
// request or chat session.
type FileAttachment struct {
	ID        string `gorm:"primaryKey;size:36"`
	FileName  string `gorm:"size:256"`
	FileType  string `gorm:"size:64"`
	FileData  string `gorm:"type:text"` // base64-encoded bytes
	CreatedAt time.Time
}
