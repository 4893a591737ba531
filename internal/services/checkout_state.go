package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"golang-food-checkout/pkg/apiclient"
)

type DeliveryType string

const (
	DeliveryPickup   DeliveryType = "pickup"
	DeliveryDelivery DeliveryType = "delivery"
)

func ParseDeliveryType(value string) (DeliveryType, error) {
	switch DeliveryType(strings.ToLower(strings.TrimSpace(value))) {
	case DeliveryPickup:
		return DeliveryPickup, nil
	case DeliveryDelivery:
		return DeliveryDelivery, nil
	}
	return "", validationError("delivery type", ErrInvalidDeliveryType, "delivery type must be pickup or delivery")
}

// Stage is the checkout progression. Every OrderStore operation states the
// stage it needs; a voucher is an attribute of drafted and later stages.
type Stage string

const (
	StageIdle             Stage = "idle"
	StageDeliveryChosen   Stage = "delivery_chosen"
	StageLocationResolved Stage = "location_resolved"
	StageDrafted          Stage = "drafted"
	StagePaymentSelected  Stage = "payment_selected"
	StagePaymentProcessed Stage = "payment_processed"
	StageFinalized        Stage = "finalized"
)

var stageRank = map[Stage]int{
	StageIdle:             0,
	StageDeliveryChosen:   1,
	StageLocationResolved: 2,
	StageDrafted:          3,
	StagePaymentSelected:  4,
	StagePaymentProcessed: 5,
	StageFinalized:        6,
}

func (s Stage) AtLeast(other Stage) bool { return stageRank[s] >= stageRank[other] }

func (s Stage) Before(other Stage) bool { return stageRank[s] < stageRank[other] }

type AppliedVoucher struct {
	VoucherID      string          `json:"voucher_id"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// OrderSnapshot is the full checkout state as screens render it and as it
// is persisted between requests.
type OrderSnapshot struct {
	Stage        Stage        `json:"stage"`
	DeliveryType DeliveryType `json:"delivery_type,omitempty"`

	SelectedAddress   *apiclient.Address `json:"selected_address,omitempty"`
	SelectedBranch    *apiclient.Branch  `json:"selected_branch,omitempty"`
	NearbyBranches    []apiclient.Branch `json:"nearby_branches,omitempty"`
	DeliveryAvailable bool               `json:"delivery_available"`

	Draft          *apiclient.OrderDraft `json:"draft,omitempty"`
	CartTotal      decimal.Decimal       `json:"cart_total"`
	DiscountAmount decimal.Decimal       `json:"discount_amount"`
	FinalTotal     decimal.Decimal       `json:"final_total"`
	Voucher        *AppliedVoucher       `json:"voucher,omitempty"`
	VoucherError   string                `json:"voucher_error,omitempty"`

	PaymentMethods        []apiclient.PaymentMethod `json:"payment_methods,omitempty"`
	SelectedPaymentMethod *apiclient.PaymentMethod  `json:"selected_payment_method,omitempty"`
	PaymentDetails        apiclient.PaymentDetails  `json:"payment_details,omitempty"`

	IdempotencyKey string `json:"idempotency_key,omitempty"`
	OrderPlaced    bool   `json:"order_placed"`
	OrderID        string `json:"order_id,omitempty"`

	Error   string `json:"error,omitempty"`
	Loading bool   `json:"loading"`
}

func initialOrderState() OrderSnapshot {
	return OrderSnapshot{
		Stage:          StageIdle,
		CartTotal:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		FinalTotal:     decimal.Zero,
	}
}

func (o OrderSnapshot) clone() OrderSnapshot {
	cp := o
	if o.SelectedAddress != nil {
		addr := *o.SelectedAddress
		cp.SelectedAddress = &addr
	}
	if o.SelectedBranch != nil {
		branch := *o.SelectedBranch
		cp.SelectedBranch = &branch
	}
	if o.Draft != nil {
		draft := *o.Draft
		cp.Draft = &draft
	}
	if o.Voucher != nil {
		voucher := *o.Voucher
		cp.Voucher = &voucher
	}
	if o.SelectedPaymentMethod != nil {
		method := *o.SelectedPaymentMethod
		cp.SelectedPaymentMethod = &method
	}
	if o.NearbyBranches != nil {
		cp.NearbyBranches = append([]apiclient.Branch(nil), o.NearbyBranches...)
	}
	if o.PaymentMethods != nil {
		cp.PaymentMethods = append([]apiclient.PaymentMethod(nil), o.PaymentMethods...)
	}
	if o.PaymentDetails != nil {
		cp.PaymentDetails = make(apiclient.PaymentDetails, len(o.PaymentDetails))
		for k, v := range o.PaymentDetails {
			cp.PaymentDetails[k] = v
		}
	}
	return cp
}
