package services_test

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"golang-food-checkout/internal/models"
	"golang-food-checkout/internal/repositories"
	"golang-food-checkout/pkg/apiclient"
)

var errUnexpectedCall = errors.New("unexpected backend call")

// fakeBackend implements services.Backend. Unset funcs fail the call.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	getCart        func(ctx context.Context) (*apiclient.Cart, error)
	addCartItem    func(ctx context.Context, id string, qty int) (*apiclient.Cart, error)
	updateCartItem func(ctx context.Context, id string, qty int) (*apiclient.Cart, error)
	removeCartItem func(ctx context.Context, id string) (*apiclient.Cart, error)
	clearCart      func(ctx context.Context) (*apiclient.Cart, error)

	listAddresses  func(ctx context.Context) ([]apiclient.Address, error)
	nearbyBranches func(ctx context.Context, at apiclient.Coordinates) ([]apiclient.Branch, error)
	availability   func(ctx context.Context, at apiclient.Coordinates) (*apiclient.DeliveryAvailability, error)
	preparePickup  func(ctx context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error)
	prepareDeliv   func(ctx context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error)
	validate       func(ctx context.Context, req apiclient.ValidateVoucherRequest) (*apiclient.VoucherValidation, error)
	paymentMethods func(ctx context.Context) ([]apiclient.PaymentMethod, error)
	processPayment func(ctx context.Context, req apiclient.ProcessPaymentRequest) (apiclient.PaymentDetails, error)
	finalize       func(ctx context.Context, req apiclient.FinalizeOrderRequest) (*apiclient.FinalizeOrderResponse, error)

	history     func(ctx context.Context, limit, offset int) ([]apiclient.Order, error)
	details     func(ctx context.Context, id string) (*apiclient.Order, error)
	status      func(ctx context.Context, id string) (*apiclient.OrderStatus, error)
	cancel      func(ctx context.Context, id, reason string) (*apiclient.OrderStatus, error)
	activeCount func(ctx context.Context) (int, error)

	sendOTP   func(ctx context.Context, phone string) error
	verifyOTP func(ctx context.Context, phone, code string) (*apiclient.VerifyOTPResponse, error)
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) CallCount(name string) int {
	n := 0
	for _, call := range f.Calls() {
		if call == name {
			n++
		}
	}
	return n
}

func (f *fakeBackend) GetCart(ctx context.Context) (*apiclient.Cart, error) {
	f.record("GetCart")
	if f.getCart == nil {
		return nil, errUnexpectedCall
	}
	return f.getCart(ctx)
}

func (f *fakeBackend) AddCartItem(ctx context.Context, id string, qty int) (*apiclient.Cart, error) {
	f.record("AddCartItem")
	if f.addCartItem == nil {
		return nil, errUnexpectedCall
	}
	return f.addCartItem(ctx, id, qty)
}

func (f *fakeBackend) UpdateCartItem(ctx context.Context, id string, qty int) (*apiclient.Cart, error) {
	f.record("UpdateCartItem")
	if f.updateCartItem == nil {
		return nil, errUnexpectedCall
	}
	return f.updateCartItem(ctx, id, qty)
}

func (f *fakeBackend) RemoveCartItem(ctx context.Context, id string) (*apiclient.Cart, error) {
	f.record("RemoveCartItem")
	if f.removeCartItem == nil {
		return nil, errUnexpectedCall
	}
	return f.removeCartItem(ctx, id)
}

func (f *fakeBackend) ClearCart(ctx context.Context) (*apiclient.Cart, error) {
	f.record("ClearCart")
	if f.clearCart == nil {
		return nil, errUnexpectedCall
	}
	return f.clearCart(ctx)
}

func (f *fakeBackend) ListAddresses(ctx context.Context) ([]apiclient.Address, error) {
	f.record("ListAddresses")
	if f.listAddresses == nil {
		return nil, errUnexpectedCall
	}
	return f.listAddresses(ctx)
}

func (f *fakeBackend) NearbyBranches(ctx context.Context, at apiclient.Coordinates) ([]apiclient.Branch, error) {
	f.record("NearbyBranches")
	if f.nearbyBranches == nil {
		return nil, errUnexpectedCall
	}
	return f.nearbyBranches(ctx, at)
}

func (f *fakeBackend) CheckDeliveryAvailability(ctx context.Context, at apiclient.Coordinates) (*apiclient.DeliveryAvailability, error) {
	f.record("CheckDeliveryAvailability")
	if f.availability == nil {
		return nil, errUnexpectedCall
	}
	return f.availability(ctx, at)
}

func (f *fakeBackend) PreparePickupOrder(ctx context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error) {
	f.record("PreparePickupOrder")
	if f.preparePickup == nil {
		return nil, errUnexpectedCall
	}
	return f.preparePickup(ctx, req)
}

func (f *fakeBackend) PrepareDeliveryOrder(ctx context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error) {
	f.record("PrepareDeliveryOrder")
	if f.prepareDeliv == nil {
		return nil, errUnexpectedCall
	}
	return f.prepareDeliv(ctx, req)
}

func (f *fakeBackend) ValidateVoucher(ctx context.Context, req apiclient.ValidateVoucherRequest) (*apiclient.VoucherValidation, error) {
	f.record("ValidateVoucher")
	if f.validate == nil {
		return nil, errUnexpectedCall
	}
	return f.validate(ctx, req)
}

func (f *fakeBackend) PaymentMethods(ctx context.Context) ([]apiclient.PaymentMethod, error) {
	f.record("PaymentMethods")
	if f.paymentMethods == nil {
		return nil, errUnexpectedCall
	}
	return f.paymentMethods(ctx)
}

func (f *fakeBackend) ProcessPayment(ctx context.Context, req apiclient.ProcessPaymentRequest) (apiclient.PaymentDetails, error) {
	f.record("ProcessPayment")
	if f.processPayment == nil {
		return nil, errUnexpectedCall
	}
	return f.processPayment(ctx, req)
}

func (f *fakeBackend) FinalizeOrder(ctx context.Context, req apiclient.FinalizeOrderRequest) (*apiclient.FinalizeOrderResponse, error) {
	f.record("FinalizeOrder")
	if f.finalize == nil {
		return nil, errUnexpectedCall
	}
	return f.finalize(ctx, req)
}

func (f *fakeBackend) OrderHistory(ctx context.Context, limit, offset int) ([]apiclient.Order, error) {
	f.record("OrderHistory")
	if f.history == nil {
		return nil, errUnexpectedCall
	}
	return f.history(ctx, limit, offset)
}

func (f *fakeBackend) OrderDetails(ctx context.Context, id string) (*apiclient.Order, error) {
	f.record("OrderDetails")
	if f.details == nil {
		return nil, errUnexpectedCall
	}
	return f.details(ctx, id)
}

func (f *fakeBackend) OrderStatus(ctx context.Context, id string) (*apiclient.OrderStatus, error) {
	f.record("OrderStatus")
	if f.status == nil {
		return nil, errUnexpectedCall
	}
	return f.status(ctx, id)
}

func (f *fakeBackend) CancelOrder(ctx context.Context, id, reason string) (*apiclient.OrderStatus, error) {
	f.record("CancelOrder")
	if f.cancel == nil {
		return nil, errUnexpectedCall
	}
	return f.cancel(ctx, id, reason)
}

func (f *fakeBackend) ActiveOrderCount(ctx context.Context) (int, error) {
	f.record("ActiveOrderCount")
	if f.activeCount == nil {
		return 0, errUnexpectedCall
	}
	return f.activeCount(ctx)
}

func (f *fakeBackend) SendOTP(ctx context.Context, phone string) error {
	f.record("SendOTP")
	if f.sendOTP == nil {
		return errUnexpectedCall
	}
	return f.sendOTP(ctx, phone)
}

func (f *fakeBackend) VerifyOTP(ctx context.Context, phone, code string) (*apiclient.VerifyOTPResponse, error) {
	f.record("VerifyOTP")
	if f.verifyOTP == nil {
		return nil, errUnexpectedCall
	}
	return f.verifyOTP(ctx, phone, code)
}

type fakeReceipts struct {
	mu       sync.Mutex
	created  []models.OrderReceipt
	statuses map[string]string
	createFn func(receipt *models.OrderReceipt) error
	listFn   func(filter repositories.ReceiptFilter) ([]models.OrderReceipt, error)
}

func (r *fakeReceipts) Create(_ context.Context, receipt *models.OrderReceipt) error {
	if r.createFn != nil {
		if err := r.createFn(receipt); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *receipt)
	return nil
}

func (r *fakeReceipts) GetByOrderID(_ context.Context, orderID string) (*models.OrderReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.created {
		if r.created[i].OrderID == orderID {
			receipt := r.created[i]
			return &receipt, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeReceipts) UpdateStatus(_ context.Context, orderID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses == nil {
		r.statuses = map[string]string{}
	}
	r.statuses[orderID] = status
	return nil
}

func (r *fakeReceipts) List(_ context.Context, filter repositories.ReceiptFilter) ([]models.OrderReceipt, error) {
	if r.listFn != nil {
		return r.listFn(filter)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.OrderReceipt(nil), r.created...), nil
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []models.CheckoutJournalEntry
	err     error
}

func (j *fakeJournal) Append(_ context.Context, entry *models.CheckoutJournalEntry) error {
	if j.err != nil {
		return j.err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, *entry)
	return nil
}

func (j *fakeJournal) ListBySession(_ context.Context, sessionID string, _ int) ([]models.CheckoutJournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []models.CheckoutJournalEntry
	for _, entry := range j.entries {
		if entry.SessionID == sessionID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (j *fakeJournal) Actions() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	actions := make([]string, 0, len(j.entries))
	for _, entry := range j.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type sentMessage struct {
	topic string
	key   string
	value interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (p *fakePublisher) SendMessage(_ context.Context, topic, key string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentMessage{topic: topic, key: key, value: value})
	return p.err
}

func (p *fakePublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, 0, len(p.sent))
	for _, m := range p.sent {
		topics = append(topics, m.topic)
	}
	return topics
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(id string, qty int, price string) apiclient.CartLine {
	return apiclient.CartLine{MenuItemID: id, Name: "item " + id, Quantity: qty, Price: money(price)}
}

func cartOf(lines ...apiclient.CartLine) *apiclient.Cart {
	return &apiclient.Cart{ID: "cart-1", Items: lines}
}
