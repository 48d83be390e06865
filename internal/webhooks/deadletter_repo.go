package webhooks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

const maxDeadLetterDetailLen = 1024

// DeadLetterRepository appends unprocessable deliveries for manual triage.
type DeadLetterRepository struct {
	db *gorm.DB
}

func NewDeadLetterRepository(db *gorm.DB) *DeadLetterRepository {
	return &DeadLetterRepository{db: db}
}

// Insert appends one dead letter row. Detail is truncated so oversized error
// chains cannot blow up the audit table.
func (r *DeadLetterRepository) Insert(ctx context.Context, entry models.WebhookDeadLetter) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Detail != nil {
		detail := truncateDetail(*entry.Detail)
		entry.Detail = &detail
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

// List returns the most recent dead letters for triage.
func (r *DeadLetterRepository) List(ctx context.Context, limit int) ([]models.WebhookDeadLetter, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.WebhookDeadLetter
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// FindByID returns one dead letter row.
func (r *DeadLetterRepository) FindByID(ctx context.Context, id string) (*models.WebhookDeadLetter, error) {
	var row models.WebhookDeadLetter
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// NewDeadLetter assembles a dead letter row from delivery context.
func NewDeadLetter(reason enums.DeadLetterReason, webhookID, shopDomain, topic string, payload []byte, detail string) models.WebhookDeadLetter {
	entry := models.WebhookDeadLetter{
		Reason:     reason,
		WebhookID:  webhookID,
		ShopDomain: shopDomain,
		Topic:      topic,
	}
	if len(payload) > 0 && json.Valid(payload) {
		entry.Payload = json.RawMessage(payload)
	}
	if detail != "" {
		d := detail
		entry.Detail = &d
	}
	return entry
}

func truncateDetail(message string) string {
	if len(message) <= maxDeadLetterDetailLen {
		return message
	}
	return message[:maxDeadLetterDetailLen]
}
