package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine persists one locally-owned cart line. Identity is the server's
// product option id, not the row id: the server assigns its own line id when
// the line is created remotely during reconciliation.
type CartLine struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductOptionID    int64     `gorm:"column:product_option_id;not null;uniqueIndex"`
	Quantity           int       `gorm:"column:quantity;not null"`
	Note               *string   `gorm:"column:note"`
	UnitPriceCents     int64     `gorm:"column:unit_price_cents;not null"`
	BulkUnitPriceCents *int64    `gorm:"column:bulk_unit_price_cents"`
	BulkThreshold      *int      `gorm:"column:bulk_threshold"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table in line with the goose migrations.
func (CartLine) TableName() string {
	return "cart_lines"
}
