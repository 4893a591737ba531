package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReceiptItem is one cart line frozen at the moment the order was placed.
type ReceiptItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// ReceiptItems is stored as JSONB.
type ReceiptItems []ReceiptItem

func (r ReceiptItems) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

func (r *ReceiptItems) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, r)
}

// OrderReceipt - PostgreSQL. The service's own record of an order it
// placed; the backend stays authoritative for everything but reporting.
type OrderReceipt struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderID        string          `gorm:"uniqueIndex;not null" json:"order_id"`
	UserID         string          `gorm:"index;not null" json:"user_id"`
	SessionID      string          `json:"session_id"`
	DeliveryType   string          `gorm:"index" json:"delivery_type"`
	BranchID       string          `gorm:"index" json:"branch_id"`
	BranchName     string          `json:"branch_name"`
	AddressID      string          `json:"address_id"`
	PaymentMethod  string          `json:"payment_method"`
	VoucherCode    string          `json:"voucher_code"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2)" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2)" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2)" json:"total_amount"`
	Items          ReceiptItems    `gorm:"type:jsonb" json:"items"`
	Notes          string          `json:"notes"`
	Status         string          `gorm:"index" json:"status"`
	PlacedAt       time.Time       `gorm:"index" json:"placed_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (r *OrderReceipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.PlacedAt.IsZero() {
		r.PlacedAt = time.Now()
	}
	return nil
}
