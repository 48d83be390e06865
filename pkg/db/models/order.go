package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// Order is the normalized bakery production order the dashboard consumes.
// The primary key is the human-readable composite id "<store>-<number>",
// which makes worker upserts idempotent across webhook redeliveries.
type Order struct {
	ID             string               `gorm:"column:id;primaryKey"`
	Store          enums.Store          `gorm:"column:store;not null"`
	ShopifyOrderID int64                `gorm:"column:shopify_order_id;not null"`
	GraphqlID      string               `gorm:"column:graphql_id;not null"`
	OrderNumber    int64                `gorm:"column:order_number;not null"`
	CustomerName   string               `gorm:"column:customer_name;not null"`
	ProductTitle   string               `gorm:"column:product_title"`
	Flavour        string               `gorm:"column:flavour"`
	Notes          string               `gorm:"column:notes"`
	Currency       string               `gorm:"column:currency"`
	TotalAmount    decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2)"`
	DueDate        string               `gorm:"column:due_date;not null"`
	DeliveryMethod enums.DeliveryMethod `gorm:"column:delivery_method;not null"`
	Priority       enums.Priority       `gorm:"column:priority;not null"`
	OrderJSON      json.RawMessage      `gorm:"column:order_json;type:jsonb"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}
