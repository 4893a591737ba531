package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"golang-food-checkout/internal/repositories"
	"golang-food-checkout/pkg/apiclient"
	"golang-food-checkout/pkg/messaging"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusAccepted       OrderStatus = "accepted"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusCompleted      OrderStatus = "completed"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

var statusAliases = map[string]OrderStatus{
	"confirmed":  StatusAccepted,
	"dispatched": StatusOutForDelivery,
	"on_the_way": StatusOutForDelivery,
	"canceled":   StatusCancelled,
	"done":       StatusCompleted,
}

var statusLabels = map[OrderStatus]string{
	StatusPending:        "Waiting for the restaurant",
	StatusAccepted:       "Order accepted",
	StatusPreparing:      "Being prepared",
	StatusReady:          "Ready",
	StatusOutForDelivery: "On the way",
	StatusCompleted:      "Completed",
	StatusDelivered:      "Delivered",
	StatusCancelled:      "Cancelled",
}

// NormalizeStatus maps the backend's spellings onto the known vocabulary.
// Unknown values are returned lowercased with '-' and ' ' turned into '_'.
func NormalizeStatus(raw string) OrderStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if alias, ok := statusAliases[key]; ok {
		return alias
	}
	return OrderStatus(key)
}

func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	if s == "" {
		return "Unknown"
	}
	return strings.ReplaceAll(string(s), "_", " ")
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDelivered || s == StatusCancelled
}

// CanCancel is true while the kitchen has not started on the order.
func (s OrderStatus) CanCancel() bool {
	return s == StatusPending || s == StatusAccepted
}

// TrackedOrder is an order as the tracking screens show it.
type TrackedOrder struct {
	apiclient.Order
	Status      OrderStatus `json:"status"`
	StatusLabel string      `json:"status_label"`
	Terminal    bool        `json:"terminal"`
	Cancellable bool        `json:"cancellable"`
}

type StatusView struct {
	OrderID     string      `json:"order_id"`
	Status      OrderStatus `json:"status"`
	StatusLabel string      `json:"status_label"`
	Terminal    bool        `json:"terminal"`
	Cancellable bool        `json:"cancellable"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func track(order apiclient.Order) TrackedOrder {
	status := NormalizeStatus(order.Status)
	return TrackedOrder{
		Order:       order,
		Status:      status,
		StatusLabel: status.Label(),
		Terminal:    status.IsTerminal(),
		Cancellable: status.CanCancel(),
	}
}

func statusView(orderID string, st *apiclient.OrderStatus) StatusView {
	status := NormalizeStatus(st.Status)
	if st.OrderID != "" {
		orderID = st.OrderID
	}
	return StatusView{
		OrderID:     orderID,
		Status:      status,
		StatusLabel: status.Label(),
		Terminal:    status.IsTerminal(),
		Cancellable: status.CanCancel(),
		UpdatedAt:   st.UpdatedAt,
	}
}

// TrackingDeps are shared by every session's OrderTracker.
type TrackingDeps struct {
	Receipts   repositories.ReceiptRepository
	Publisher  messaging.Publisher
	OrderTopic string
	Logger     *zap.Logger
}

// OrderTracker reads and cancels one customer's placed orders.
type OrderTracker struct {
	userID string
	api    OrderAPI
	deps   TrackingDeps
	logger *zap.Logger
}

func NewOrderTracker(userID string, api OrderAPI, deps TrackingDeps) *OrderTracker {
	return &OrderTracker{
		userID: userID,
		api:    api,
		deps:   deps,
		logger: deps.Logger.Named("tracking"),
	}
}

func (t *OrderTracker) History(ctx context.Context, limit, offset int) ([]TrackedOrder, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	orders, err := t.api.OrderHistory(ctx, limit, offset)
	if err != nil {
		return nil, backendError("order history", err, nil)
	}
	tracked := make([]TrackedOrder, 0, len(orders))
	for _, order := range orders {
		tracked = append(tracked, track(order))
	}
	return tracked, nil
}

func (t *OrderTracker) Details(ctx context.Context, orderID string) (*TrackedOrder, error) {
	if orderID == "" {
		return nil, validationError("order details", ErrMissingSelection, "order id is required")
	}
	order, err := t.api.OrderDetails(ctx, orderID)
	if err != nil {
		if apiclient.IsNotFound(err) {
			if tracked, ok := t.fromReceipt(ctx, orderID); ok {
				return tracked, nil
			}
		}
		return nil, backendError("order details", err, nil)
	}
	tracked := track(*order)
	return &tracked, nil
}

// fromReceipt answers from the local receipt while the backend's order read
// side has not caught up with a just-placed order.
func (t *OrderTracker) fromReceipt(ctx context.Context, orderID string) (*TrackedOrder, bool) {
	if t.deps.Receipts == nil {
		return nil, false
	}
	receipt, err := t.deps.Receipts.GetByOrderID(ctx, orderID)
	if err != nil || receipt.UserID != t.userID {
		return nil, false
	}

	order := apiclient.Order{
		ID:             receipt.OrderID,
		Status:         receipt.Status,
		DeliveryType:   receipt.DeliveryType,
		BranchID:       receipt.BranchID,
		AddressID:      receipt.AddressID,
		PaymentMethod:  receipt.PaymentMethod,
		Subtotal:       receipt.Subtotal,
		DiscountAmount: receipt.DiscountAmount,
		TotalAmount:    receipt.TotalAmount,
		Notes:          receipt.Notes,
		CreatedAt:      receipt.PlacedAt,
	}
	for _, item := range receipt.Items {
		order.Items = append(order.Items, apiclient.OrderLine{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}
	t.logger.Debug("order details served from receipt", zap.String("order_id", orderID))
	tracked := track(order)
	return &tracked, true
}

func (t *OrderTracker) Status(ctx context.Context, orderID string) (*StatusView, error) {
	if orderID == "" {
		return nil, validationError("order status", ErrMissingSelection, "order id is required")
	}
	st, err := t.api.OrderStatus(ctx, orderID)
	if err != nil {
		return nil, backendError("order status", err, nil)
	}
	view := statusView(orderID, st)
	return &view, nil
}

// Cancel checks the current status first; only pending or accepted orders
// are sent to the backend.
func (t *OrderTracker) Cancel(ctx context.Context, orderID, reason string) (*StatusView, error) {
	const op = "cancel order"

	current, err := t.Status(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanCancel() {
		return nil, newError(KindBusiness, op, ErrOrderNotCancellable, "order is "+current.Status.Label()+" and can no longer be cancelled")
	}

	st, err := t.api.CancelOrder(ctx, orderID, strings.TrimSpace(reason))
	if err != nil {
		return nil, backendError(op, err, ErrOrderNotCancellable)
	}
	view := statusView(orderID, st)
	if view.Status == "" {
		view.Status = StatusCancelled
		view.StatusLabel = StatusCancelled.Label()
		view.Terminal = true
	}

	if t.deps.Receipts != nil {
		if err := t.deps.Receipts.UpdateStatus(ctx, orderID, string(view.Status)); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			t.logger.Warn("updating receipt status", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	if t.deps.Publisher != nil {
		event := messaging.OrderEvent{
			Type:       messaging.EventOrderCancelled,
			OrderID:    orderID,
			UserID:     t.userID,
			OccurredAt: time.Now(),
			Data:       map[string]interface{}{"reason": reason, "previous_status": string(current.Status)},
		}
		if err := t.deps.Publisher.SendMessage(ctx, t.deps.OrderTopic, orderID, event); err != nil {
			t.logger.Error("publishing cancel event", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return &view, nil
}

func (t *OrderTracker) ActiveCount(ctx context.Context) (int, error) {
	count, err := t.api.ActiveOrderCount(ctx)
	if err != nil {
		return 0, backendError("active order count", err, nil)
	}
	return count, nil
}

// ActiveOrderPoller refreshes the active order count on a ticker until its
// context is cancelled.
type ActiveOrderPoller struct {
	api      OrderAPI
	interval time.Duration
	logger   *zap.Logger

	count   atomic.Int64
	mu      sync.Mutex
	lastErr error
	polled  time.Time
}

func NewActiveOrderPoller(api OrderAPI, interval time.Duration, logger *zap.Logger) *ActiveOrderPoller {
	return &ActiveOrderPoller{
		api:      api,
		interval: interval,
		logger:   logger.Named("active_orders"),
	}
}

// Run polls once immediately, then every interval. It returns when ctx is
// done.
func (p *ActiveOrderPoller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *ActiveOrderPoller) poll(ctx context.Context) {
	count, err := p.api.ActiveOrderCount(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.polled = time.Now()
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug("active order poll failed", zap.Error(err))
		}
		p.lastErr = err
		return
	}
	p.lastErr = nil
	p.count.Store(int64(count))
}

// Count is the last successfully polled value.
func (p *ActiveOrderPoller) Count() int {
	return int(p.count.Load())
}

func (p *ActiveOrderPoller) LastPoll() (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polled, p.lastErr
}
