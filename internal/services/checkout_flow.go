package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"golang-food-checkout/internal/models"
	"golang-food-checkout/internal/repositories"
	"golang-food-checkout/pkg/apiclient"
	"golang-food-checkout/pkg/messaging"
)

// FlowDeps are the process-wide collaborators shared by every session's
// CheckoutFlow.
type FlowDeps struct {
	Receipts          repositories.ReceiptRepository
	Journal           repositories.JournalRepository
	Publisher         messaging.Publisher
	OrderTopic        string
	NotificationTopic string
	SubmitCooldown    time.Duration
	Logger            *zap.Logger
}

// DeliveryTypeOutcome tells the screen what to do after a delivery type
// was confirmed.
type DeliveryTypeOutcome struct {
	Proceed             bool               `json:"proceed"`
	OfferPickupFallback bool               `json:"offer_pickup_fallback"`
	Message             string             `json:"message,omitempty"`
	Branches            []apiclient.Branch `json:"branches,omitempty"`
}

type PlacedOrder struct {
	OrderID        string          `json:"order_id"`
	DeliveryType   DeliveryType    `json:"delivery_type"`
	BranchID       string          `json:"branch_id"`
	Items          []CartItem      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PlacedAt       time.Time       `json:"placed_at"`
}

// CheckoutFlow sequences the store operations behind each checkout screen
// and records every step in the journal.
type CheckoutFlow struct {
	userID    string
	sessionID string
	api       CheckoutAPI
	cart      *CartStore
	order     *OrderStore
	deps      FlowDeps
	logger    *zap.Logger
	now       func() time.Time

	submit     singleflight.Group
	mu         sync.Mutex
	lastPlaced time.Time
}

func NewCheckoutFlow(userID, sessionID string, api CheckoutAPI, cart *CartStore, order *OrderStore, deps FlowDeps) *CheckoutFlow {
	if deps.Journal == nil {
		deps.Journal = repositories.NewNoopJournalRepository()
	}
	return &CheckoutFlow{
		userID:    userID,
		sessionID: sessionID,
		api:       api,
		cart:      cart,
		order:     order,
		deps:      deps,
		logger:    deps.Logger.Named("checkout").With(zap.String("session_id", sessionID)),
		now:       time.Now,
	}
}

// ConfirmAddress selects one of the customer's saved addresses.
func (f *CheckoutFlow) ConfirmAddress(ctx context.Context, addressID string) error {
	const op = "confirm address"

	err := f.confirmAddress(ctx, op, addressID)
	f.record(ctx, op, err, map[string]interface{}{"address_id": addressID})
	return err
}

func (f *CheckoutFlow) confirmAddress(ctx context.Context, op, addressID string) error {
	if addressID == "" {
		return validationError(op, ErrMissingSelection, "address is required")
	}
	addresses, err := f.api.ListAddresses(ctx)
	if err != nil {
		return backendError(op, err, nil)
	}
	for _, address := range addresses {
		if address.ID == addressID {
			return f.order.SetSelectedAddress(address)
		}
	}
	return validationError(op, ErrUnknownOption, "address not found")
}

// ConfirmDeliveryType records the choice and resolves the location step:
// nearby branches for pickup, an availability check for delivery. An
// unavailable delivery is not an error; the outcome offers pickup instead.
func (f *CheckoutFlow) ConfirmDeliveryType(ctx context.Context, value string) (DeliveryTypeOutcome, error) {
	const op = "confirm delivery type"

	outcome, err := f.confirmDeliveryType(ctx, value)
	f.record(ctx, op, err, map[string]interface{}{
		"delivery_type":         value,
		"offer_pickup_fallback": outcome.OfferPickupFallback,
	})
	return outcome, err
}

func (f *CheckoutFlow) confirmDeliveryType(ctx context.Context, value string) (DeliveryTypeOutcome, error) {
	deliveryType, err := ParseDeliveryType(value)
	if err != nil {
		return DeliveryTypeOutcome{}, err
	}
	if err := f.order.SetDeliveryType(deliveryType); err != nil {
		return DeliveryTypeOutcome{}, err
	}

	if deliveryType == DeliveryPickup {
		branches, err := f.order.FetchNearbyBranches(ctx)
		if err != nil {
			return DeliveryTypeOutcome{}, err
		}
		return DeliveryTypeOutcome{Proceed: true, Branches: branches}, nil
	}

	if _, err := f.order.CheckDeliveryAvailability(ctx); err != nil {
		if errors.Is(err, ErrDeliveryUnavailable) {
			return DeliveryTypeOutcome{OfferPickupFallback: true, Message: MessageOf(err)}, nil
		}
		return DeliveryTypeOutcome{}, err
	}
	return DeliveryTypeOutcome{Proceed: true}, nil
}

// ConfirmBranch selects a branch from the fetched nearby list and prepares
// the pickup draft.
func (f *CheckoutFlow) ConfirmBranch(ctx context.Context, branchID string) error {
	const op = "confirm branch"

	err := f.confirmBranch(ctx, op, branchID)
	f.record(ctx, op, err, map[string]interface{}{"branch_id": branchID})
	return err
}

func (f *CheckoutFlow) confirmBranch(ctx context.Context, op, branchID string) error {
	if branchID == "" {
		return validationError(op, ErrMissingSelection, "branch is required")
	}
	var branch *apiclient.Branch
	for _, b := range f.order.Snapshot().NearbyBranches {
		if b.ID == branchID {
			b := b
			branch = &b
			break
		}
	}
	if branch == nil {
		return validationError(op, ErrUnknownOption, "branch is not among the nearby branches")
	}
	if err := f.order.SetSelectedBranch(*branch); err != nil {
		return err
	}
	return f.order.PreparePickupOrder(ctx)
}

func (f *CheckoutFlow) ConfirmDeliveryAddress(ctx context.Context) error {
	err := f.order.PrepareDeliveryOrder(ctx)
	f.record(ctx, "confirm delivery address", err, nil)
	return err
}

func (f *CheckoutFlow) ApplyVoucher(ctx context.Context, code string) error {
	err := f.order.ValidateVoucher(ctx, code)
	f.record(ctx, "apply voucher", err, map[string]interface{}{"code": code})
	return err
}

func (f *CheckoutFlow) RemoveVoucher(ctx context.Context) {
	f.order.ClearVoucher()
	f.record(ctx, "remove voucher", nil, nil)
}

func (f *CheckoutFlow) LoadPaymentMethods(ctx context.Context) ([]apiclient.PaymentMethod, error) {
	methods, err := f.order.FetchPaymentMethods(ctx)
	f.record(ctx, "load payment methods", err, map[string]interface{}{"count": len(methods)})
	return methods, err
}

func (f *CheckoutFlow) SelectPaymentMethod(ctx context.Context, methodID string) error {
	err := f.order.SelectPaymentMethod(methodID)
	f.record(ctx, "select payment method", err, map[string]interface{}{"payment_method": methodID})
	return err
}

// Cancel abandons the checkout in progress. The cart is left alone.
func (f *CheckoutFlow) Cancel(ctx context.Context) {
	f.order.ResetOrderState()
	f.record(ctx, "cancel checkout", nil, nil)
}

// PlaceOrder processes the payment and finalizes the order as two
// sequential calls. Concurrent calls share one submission; within
// SubmitCooldown of a placed order further calls get ErrDuplicateSubmission.
func (f *CheckoutFlow) PlaceOrder(ctx context.Context, notes string) (*PlacedOrder, error) {
	const op = "place order"

	if err := f.checkCooldown(op); err != nil {
		return nil, err
	}

	// the submission is shared by every caller that joins it, so it must
	// not end when the first caller goes away
	submitCtx := context.WithoutCancel(ctx)
	v, err, shared := f.submit.Do(op, func() (interface{}, error) {
		// a caller that missed the previous flight lands here after it
		// finished
		if err := f.checkCooldown(op); err != nil {
			return nil, err
		}
		placed, err := f.placeOrder(submitCtx, notes)
		f.record(submitCtx, op, err, placedDetails(placed))
		return placed, err
	})
	if shared {
		f.logger.Info("duplicate place-order joined the in-flight submission")
	}
	if err != nil {
		return nil, err
	}
	return v.(*PlacedOrder), nil
}

func (f *CheckoutFlow) checkCooldown(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lastPlaced.IsZero() && f.now().Sub(f.lastPlaced) < f.deps.SubmitCooldown {
		return newError(KindDuplicate, op, ErrDuplicateSubmission, "order was just placed")
	}
	return nil
}

func (f *CheckoutFlow) placeOrder(ctx context.Context, notes string) (*PlacedOrder, error) {
	before := f.order.Snapshot()
	if before.SelectedPaymentMethod != nil && before.Stage == StagePaymentSelected {
		if err := f.order.ProcessPayment(ctx); err != nil {
			return nil, err
		}
	}
	if err := f.order.FinalizeOrder(ctx, notes); err != nil {
		return nil, err
	}

	snap := f.order.Snapshot()
	cart := f.cart.Snapshot()
	placed := &PlacedOrder{
		OrderID:        snap.OrderID,
		DeliveryType:   snap.DeliveryType,
		Items:          cart.Items,
		Subtotal:       snap.CartTotal,
		DiscountAmount: snap.DiscountAmount,
		TotalAmount:    snap.FinalTotal,
		PlacedAt:       f.now(),
	}
	if snap.SelectedBranch != nil {
		placed.BranchID = snap.SelectedBranch.ID
	}

	f.mu.Lock()
	f.lastPlaced = placed.PlacedAt
	f.mu.Unlock()

	f.saveReceipt(ctx, snap, placed, notes)
	f.publishPlaced(ctx, placed)

	// the backend empties the cart on finalize
	if err := f.cart.FetchCart(ctx); err != nil {
		f.logger.Warn("cart refresh after order failed", zap.String("order_id", placed.OrderID), zap.Error(err))
	}
	f.order.ResetOrderState()
	return placed, nil
}

func (f *CheckoutFlow) saveReceipt(ctx context.Context, snap OrderSnapshot, placed *PlacedOrder, notes string) {
	if f.deps.Receipts == nil {
		return
	}

	items := make(models.ReceiptItems, 0, len(placed.Items))
	for _, item := range placed.Items {
		items = append(items, models.ReceiptItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}
	receipt := &models.OrderReceipt{
		OrderID:        placed.OrderID,
		UserID:         f.userID,
		SessionID:      f.sessionID,
		DeliveryType:   string(placed.DeliveryType),
		BranchID:       placed.BranchID,
		Subtotal:       placed.Subtotal,
		DiscountAmount: placed.DiscountAmount,
		TotalAmount:    placed.TotalAmount,
		Items:          items,
		Notes:          notes,
		Status:         string(StatusPending),
		PlacedAt:       placed.PlacedAt,
	}
	if snap.SelectedBranch != nil {
		receipt.BranchName = snap.SelectedBranch.Name
	}
	if snap.SelectedAddress != nil {
		receipt.AddressID = snap.SelectedAddress.ID
	}
	if snap.SelectedPaymentMethod != nil {
		receipt.PaymentMethod = snap.SelectedPaymentMethod.ID
	}
	if snap.Voucher != nil {
		receipt.VoucherCode = snap.Voucher.Code
	}

	if err := f.deps.Receipts.Create(ctx, receipt); err != nil {
		f.logger.Error("saving order receipt", zap.String("order_id", placed.OrderID), zap.Error(err))
	}
}

func (f *CheckoutFlow) publishPlaced(ctx context.Context, placed *PlacedOrder) {
	if f.deps.Publisher == nil {
		return
	}

	event := messaging.OrderEvent{
		Type:       messaging.EventOrderPlaced,
		OrderID:    placed.OrderID,
		UserID:     f.userID,
		OccurredAt: placed.PlacedAt,
		Data:       placed,
	}
	if err := f.deps.Publisher.SendMessage(ctx, f.deps.OrderTopic, placed.OrderID, event); err != nil {
		f.logger.Error("publishing order event", zap.String("order_id", placed.OrderID), zap.Error(err))
	}

	notification := messaging.NotificationEvent{
		Type:    messaging.EventOrderPlaced,
		UserID:  f.userID,
		Title:   "Order placed",
		Message: "Your order " + placed.OrderID + " was received",
		Metadata: map[string]interface{}{
			"order_id":      placed.OrderID,
			"delivery_type": string(placed.DeliveryType),
			"total_amount":  placed.TotalAmount.StringFixed(2),
		},
	}
	if err := f.deps.Publisher.SendMessage(ctx, f.deps.NotificationTopic, f.userID, notification); err != nil {
		f.logger.Error("publishing order notification", zap.String("order_id", placed.OrderID), zap.Error(err))
	}
}

// Journal returns this session's most recent checkout steps.
func (f *CheckoutFlow) Journal(ctx context.Context, limit int) ([]models.CheckoutJournalEntry, error) {
	return f.deps.Journal.ListBySession(ctx, f.sessionID, limit)
}

func (f *CheckoutFlow) record(ctx context.Context, action string, err error, details map[string]interface{}) {
	entry := &models.CheckoutJournalEntry{
		SessionID: f.sessionID,
		UserID:    f.userID,
		Action:    action,
		Stage:     string(f.order.Snapshot().Stage),
		Details:   details,
		CreatedAt: f.now(),
	}
	if orderID, ok := details["order_id"].(string); ok {
		entry.OrderID = orderID
	}
	if err != nil {
		entry.Error = MessageOf(err)
		entry.ErrorKind = string(KindOf(err))
	}

	if jerr := f.deps.Journal.Append(ctx, entry); jerr != nil {
		f.logger.Warn("journal append failed", zap.String("action", action), zap.Error(jerr))
	}
}

func placedDetails(placed *PlacedOrder) map[string]interface{} {
	if placed == nil {
		return nil
	}
	return map[string]interface{}{
		"order_id":     placed.OrderID,
		"total_amount": placed.TotalAmount.StringFixed(2),
	}
}
