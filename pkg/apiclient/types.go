package apiclient

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart

type CartLine struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url,omitempty"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency,omitempty"`
}

type Cart struct {
	ID    string     `json:"id,omitempty"`
	Items []CartLine `json:"items"`
}

type cartItemRequest struct {
	MenuItemID string `json:"menu_item_id,omitempty"`
	Quantity   int    `json:"quantity"`
}

// Locations

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports unset coordinates. (0,0) is in the Gulf of Guinea, not a
// customer address.
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

type Address struct {
	ID          string      `json:"id"`
	Label       string      `json:"label,omitempty"`
	Line1       string      `json:"line1"`
	Line2       string      `json:"line2,omitempty"`
	City        string      `json:"city,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	IsDefault   bool        `json:"is_default,omitempty"`
}

type Branch struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Address     string      `json:"address,omitempty"`
	Coordinates Coordinates `json:"coordinates"`
	DistanceKm  float64     `json:"distance_km,omitempty"`
	IsOpen      bool        `json:"is_open"`
}

type DeliveryAvailability struct {
	IsDeliveryAvailable bool    `json:"is_delivery_available"`
	Branch              *Branch `json:"branch,omitempty"`
	Message             string  `json:"message,omitempty"`
}

// Drafts, vouchers, payments

type PrepareOrderRequest struct {
	BranchID  string `json:"branch_id,omitempty"`
	AddressID string `json:"address_id"`
}

type OrderDraft struct {
	ID           string          `json:"id"`
	DeliveryType string          `json:"delivery_type"`
	BranchID     string          `json:"branch_id,omitempty"`
	AddressID    string          `json:"address_id,omitempty"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

type ValidateVoucherRequest struct {
	Code        string          `json:"code"`
	DraftID     string          `json:"draft_id,omitempty"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

type VoucherValidation struct {
	Valid          bool            `json:"valid"`
	VoucherID      string          `json:"voucher_id"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Message        string          `json:"message,omitempty"`
}

type PaymentMethod struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"` // credit_card, wallet, cash
	DeliveryOnly bool   `json:"delivery_only"`
}

type ProcessPaymentRequest struct {
	PaymentMethodID string          `json:"payment_method_id"`
	VoucherID       string          `json:"voucher_id,omitempty"`
	DraftID         string          `json:"draft_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
}

// PaymentDetails is whatever the payment initiation returned; it is passed
// back verbatim on finalize.
type PaymentDetails map[string]interface{}

// Orders

type FinalizeOrderRequest struct {
	DeliveryType   string         `json:"delivery_type"`
	BranchID       string         `json:"branch_id"`
	AddressID      string         `json:"address_id"`
	PaymentMethod  string         `json:"payment_method"`
	VoucherID      string         `json:"voucher_id,omitempty"`
	PaymentDetails PaymentDetails `json:"payment_details,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
}

type FinalizeOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status,omitempty"`
}

type OrderLine struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type Order struct {
	ID               string               `json:"id"`
	Status           string               `json:"status"`
	DeliveryType     string               `json:"delivery_type"`
	BranchID         string               `json:"branch_id,omitempty"`
	AddressID        string               `json:"address_id,omitempty"`
	PaymentMethod    string               `json:"payment_method,omitempty"`
	Items            []OrderLine          `json:"items"`
	Subtotal         decimal.Decimal      `json:"subtotal"`
	DiscountAmount   decimal.Decimal      `json:"discount_amount"`
	TotalAmount      decimal.Decimal      `json:"total_amount"`
	Notes            string               `json:"notes,omitempty"`
	StatusTimestamps map[string]time.Time `json:"status_timestamps,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

type OrderStatus struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ActiveOrders struct {
	Count int `json:"count"`
}

// Auth

type SendOTPRequest struct {
	Phone string `json:"phone"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"otp_code"`
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone"`
	Role  string `json:"role,omitempty"`
}

type VerifyOTPResponse struct {
	Token    string   `json:"token"`
	Customer Customer `json:"user"`
}
