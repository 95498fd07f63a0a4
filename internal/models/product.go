// internal/models/product.go
package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DiscountTier prices every piece of an order whose total falls in
// [MinQuantity, MaxQuantity], both ends inclusive.
type DiscountTier struct {
	MinQuantity int             `json:"min_quantity"`
	MaxQuantity int             `json:"max_quantity"`
	Price       decimal.Decimal `json:"price"`
}

type DiscountTiers []DiscountTier

func (t DiscountTiers) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *DiscountTiers) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}
	return scanJSON(value, t)
}

type Product struct {
	BaseModel
	Name            string          `json:"name" gorm:"size:255;not null"`
	Category        ProductCategory `json:"category" gorm:"type:varchar(50);not null;index"`
	Code            string          `json:"code" gorm:"uniqueIndex;size:50;not null"`
	Description     string          `json:"description" gorm:"type:text"`
	Fabric          string          `json:"fabric" gorm:"size:255;index"`
	MinimumQuantity int             `json:"minimum_quantity" gorm:"not null;default:1"`
	PerPrice        decimal.Decimal `json:"per_price" gorm:"type:decimal(10,2);not null"`
	DiscountTiers   DiscountTiers   `json:"additional_discounts" gorm:"type:jsonb"`
	Images          pq.StringArray  `json:"images" gorm:"type:text[]"`
	IsActive        bool            `json:"is_active" gorm:"default:true;index"`
}
