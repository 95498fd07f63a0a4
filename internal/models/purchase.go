// internal/models/purchase.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type LineItem struct {
	Audience string `json:"audience" validate:"required,max=50"`
	Size     string `json:"size" validate:"required,max=20"`
	Pieces   int    `json:"pieces" validate:"min=1"`
	Color    string `json:"color,omitempty" validate:"max=50"`
}

type LineItems []LineItem

func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	return scanJSON(value, l)
}

// DeliveryInfo is embedded in Purchase; columns keep their plain names.
type DeliveryInfo struct {
	OrganizationName string `json:"organization_name" gorm:"size:255;not null" validate:"required,max=255"`
	Email            string `json:"email" gorm:"size:255;not null" validate:"required,email,max=255"`
	Phone            string `json:"phone" gorm:"size:20;not null" validate:"required,max=20"`
	Country          string `json:"country" gorm:"size:100;not null" validate:"required,max=100"`
	City             string `json:"city" gorm:"size:100;not null" validate:"required,max=100"`
	State            string `json:"state" gorm:"size:100;not null" validate:"required,max=100"`
	ZipCode          string `json:"zip_code" gorm:"size:20;not null" validate:"required,max=20"`
	Address          string `json:"address" gorm:"type:text;not null" validate:"required"`
	AdditionalNotes  string `json:"additional_notes,omitempty" gorm:"type:text"`
}

// Purchase is a priced order snapshot. Pricing fields are written once at
// creation and never recomputed from the product afterwards.
type Purchase struct {
	BaseModel
	UserID          uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	PaymentType     PaymentType     `json:"payment_type" gorm:"type:varchar(10);not null"`
	LineItems       LineItems       `json:"product_info" gorm:"type:jsonb;not null"`
	TotalPieces     int             `json:"total_pieces" gorm:"not null"`
	PricePerPiece   decimal.Decimal `json:"price_per_piece" gorm:"type:decimal(10,2);not null"`
	ProductTotal    decimal.Decimal `json:"product_total" gorm:"type:decimal(10,2);not null"`
	DeliveryCharge  decimal.Decimal `json:"delivery_charge" gorm:"type:decimal(10,2);not null"`
	GrandTotal      decimal.Decimal `json:"grand_total" gorm:"type:decimal(10,2);not null"`
	PaymentAmount   decimal.Decimal `json:"payment_amount" gorm:"type:decimal(10,2);not null"`
	DeliveryInfo    `gorm:"embedded"`
	LogoCatalogue   pq.StringArray  `json:"logo_catalogue" gorm:"type:text[]"`
	ProductDocument string          `json:"product_document,omitempty" gorm:"size:500"`
	OrderStatus     OrderStatus     `json:"order_status" gorm:"type:varchar(20);default:'pending';not null"`
	PaymentStatus   PaymentStatus   `json:"payment_status" gorm:"type:varchar(20);default:'pending';not null"`
	ChargeRef       *string         `json:"payment_id,omitempty" gorm:"column:payment_id;size:255;uniqueIndex"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`

	// Relationships
	User    *User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (p *Purchase) IsPaid() bool {
	return p.PaymentStatus == PaymentStatusPaid
}

// StoredFiles lists every file reference held by the purchase.
func (p *Purchase) StoredFiles() []string {
	files := make([]string, 0, len(p.LogoCatalogue)+1)
	files = append(files, p.LogoCatalogue...)
	if p.ProductDocument != "" {
		files = append(files, p.ProductDocument)
	}
	return files
}
