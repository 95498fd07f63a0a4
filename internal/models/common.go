// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSON(value, j)
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

// Enums
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type PaymentType string

const (
	PaymentTypeHalf PaymentType = "half"
	PaymentTypeFull PaymentType = "full"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in-progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type ProductCategory string

const (
	CategoryFootball      ProductCategory = "football"
	CategoryRugby         ProductCategory = "rugby"
	CategoryCricket       ProductCategory = "cricket"
	CategoryBaseball      ProductCategory = "baseball"
	CategoryAquatics      ProductCategory = "aquatics"
	CategoryMartialArts   ProductCategory = "martial_arts"
	CategoryFemaleFitness ProductCategory = "female_fitness"
	CategoryTeamApparel   ProductCategory = "team_apparel"
)

var ProductCategories = []ProductCategory{
	CategoryFootball,
	CategoryRugby,
	CategoryCricket,
	CategoryBaseball,
	CategoryAquatics,
	CategoryMartialArts,
	CategoryFemaleFitness,
	CategoryTeamApparel,
}
