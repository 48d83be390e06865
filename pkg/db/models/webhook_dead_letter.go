package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// WebhookDeadLetter captures deliveries the pipeline could not process, for
// manual triage. Rows are append-only and never mutated after creation.
type WebhookDeadLetter struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reason     enums.DeadLetterReason `gorm:"column:reason;not null"`
	WebhookID  string                 `gorm:"column:webhook_id"`
	ShopDomain string                 `gorm:"column:shop_domain"`
	Topic      string                 `gorm:"column:topic"`
	Payload    json.RawMessage        `gorm:"column:payload;type:jsonb"`
	Detail     *string                `gorm:"column:detail"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (WebhookDeadLetter) TableName() string {
	return "webhook_dead_letters"
}
