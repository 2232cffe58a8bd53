package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yonetim/opsdesk/internal/models"
	"gorm.io/gorm"
)

// InsertRequest creates a service request and returns the stored row.
func (g *Gateway) InsertRequest(ctx context.Context, req models.ServiceRequest) (*models.ServiceRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = "pending"
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	if err := g.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, wrap("insert request", err)
	}
	return &req, nil
}

// Requests returns service requests, newest first.
func (g *Gateway) Requests(ctx context.Context) ([]models.ServiceRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var reqs []models.ServiceRequest
	err := g.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, wrap("requests", err)
	}
	return reqs, nil
}

// UpdateRequestStatus sets the status of a service request.
func (g *Gateway) UpdateRequestStatus(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	result := g.db.WithContext(ctx).
		Model(&models.ServiceRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrap(fmt.Sprintf("update request %s", id), result.Error)
	}
	if result.RowsAffected == 0 {
		return wrap(fmt.Sprintf("update request %s", id), gorm.ErrRecordNotFound)
	}
	return nil
}

// AttachmentBytes resolves an inline attachment reference of the form
// "base64://<id>" to its decoded bytes and file name. The id is looked up
// in file_attachments first, then in service_requests.
func (g *Gateway) AttachmentBytes(ctx context.Context, ref string) (string, []byte, error) {
	id := strings.TrimPrefix(ref, "base64://")

	ctx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()

	var att models.FileAttachment
	err := g.db.WithContext(ctx).First(&att, "id = ?", id).Error
	if err == nil && att.FileData != "" {
		data, decErr := decodeInline(att.FileData)
		if decErr != nil {
			return "", nil, fmt.Errorf("store: attachment %s: %w", id, decErr)
		}
		return att.FileName, data, nil
	}

	var req models.ServiceRequest
	if err := g.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return "", nil, wrap(fmt.Sprintf("attachment %s", id), err)
	}
	if req.FileData == "" {
		return "", nil, wrap(fmt.Sprintf("attachment %s", id), gorm.ErrRecordNotFound)
	}
	data, err := decodeInline(req.FileData)
	if err != nil {
		return "", nil, fmt.Errorf("store: attachment %s: %w", id, err)
	}
	name := req.FileName
	if name == "" {
		name = "file"
	}
	return name, data, nil
}

// decodeInline strips an optional data-URL prefix and base64-decodes.
func decodeInline(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}
