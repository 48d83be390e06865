package webhooks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/orderdeskhq/orderdesk-backend/pkg/db"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

const claimConstraint = "ux_webhook_events_webhook_shop"

// EventRepository persists webhook delivery claims.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository builds an event repository bound to the provided DB.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Claim inserts the pending row for one delivery. The insert races the
// unique index on (webhook_id, shop_domain): exactly one concurrent caller
// wins; every other caller observes the violation and reports not-claimed.
// This must stay a single insert, never a read-then-write pair.
func (r *EventRepository) Claim(ctx context.Context, webhookID, shopDomain, topic string) (bool, error) {
	row := models.WebhookEvent{
		ID:         uuid.New(),
		WebhookID:  webhookID,
		ShopDomain: shopDomain,
		Topic:      topic,
		Status:     enums.WebhookStatusPending,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if err != nil {
		if dbpkg.IsUniqueViolation(err, claimConstraint) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkOutcome moves the claimed row out of pending. The status filter makes
// the transition happen at most once; a row already in a terminal state is
// left untouched.
func (r *EventRepository) MarkOutcome(ctx context.Context, webhookID, shopDomain string, status enums.WebhookStatus, note string) error {
	updates := map[string]any{"status": status}
	if note != "" {
		updates["note"] = note
	}
	return r.db.WithContext(ctx).
		Model(&models.WebhookEvent{}).
		Where("webhook_id = ? AND shop_domain = ? AND status = ?", webhookID, shopDomain, enums.WebhookStatusPending).
		Updates(updates).Error
}

// FindByDelivery returns the claim row for one delivery, if any.
func (r *EventRepository) FindByDelivery(ctx context.Context, webhookID, shopDomain string) (*models.WebhookEvent, error) {
	var row models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("webhook_id = ? AND shop_domain = ?", webhookID, shopDomain).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByStatus returns recent claim rows, optionally filtered by status.
func (r *EventRepository) ListByStatus(ctx context.Context, status enums.WebhookStatus, limit int) ([]models.WebhookEvent, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []models.WebhookEvent
	err := query.Find(&rows).Error
	return rows, err
}
