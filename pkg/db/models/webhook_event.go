package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// WebhookEvent is the idempotency claim row for one webhook delivery.
// The unique index on (webhook_id, shop_domain) is what makes the claim
// atomic: the first insert wins, every duplicate delivery violates it.
type WebhookEvent struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WebhookID  string              `gorm:"column:webhook_id;not null;uniqueIndex:ux_webhook_events_webhook_shop"`
	ShopDomain string              `gorm:"column:shop_domain;not null;uniqueIndex:ux_webhook_events_webhook_shop"`
	Topic      string              `gorm:"column:topic;not null"`
	Status     enums.WebhookStatus `gorm:"column:status;not null;default:'pending'"`
	Note       *string             `gorm:"column:note"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
