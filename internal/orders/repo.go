package orders

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/enums"
)

// Repository persists normalized orders for the dashboard.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes the order keyed by its composite human id. Redelivery of the
// same order overwrites the existing row rather than duplicating it.
func (r *Repository) Upsert(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_name", "product_title", "flavour", "notes",
				"currency", "total_amount", "due_date", "delivery_method",
				"priority", "order_json", "updated_at",
			}),
		}).
		Create(order).Error
}

// FindByID returns one order row.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByStore returns orders for one tenant ordered by due date.
func (r *Repository) ListByStore(ctx context.Context, store enums.Store, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("store = ?", store).
		Order("due_date ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
