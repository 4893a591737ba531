package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"golang-food-checkout/pkg/apiclient"
)

// OrderStore drives one customer's checkout from delivery choice to a
// finalized order. Operations refuse to run outside their stage, and a
// response that lands after the selection it was computed for has changed
// is dropped with ErrStaleResponse.
type OrderStore struct {
	api    CheckoutAPI
	logger *zap.Logger

	mu         sync.Mutex
	state      OrderSnapshot
	generation uint64
	inFlight   int
}

func NewOrderStore(api CheckoutAPI, logger *zap.Logger) *OrderStore {
	return &OrderStore{
		api:    api,
		logger: logger.Named("order"),
		state:  initialOrderState(),
	}
}

func (s *OrderStore) Snapshot() OrderSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state.clone()
	snap.Loading = s.inFlight > 0
	return snap
}

func (s *OrderStore) Restore(snapshot OrderSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = snapshot.clone()
	s.state.Loading = false
	if s.state.Stage == "" {
		s.state.Stage = StageIdle
	}
	s.generation++
}

// ResetOrderState puts every field back to its initial value. Responses
// still in flight are discarded when they land.
func (s *OrderStore) ResetOrderState() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = initialOrderState()
	s.generation++
}

func (s *OrderStore) SetDeliveryType(deliveryType DeliveryType) error {
	const op = "set delivery type"

	s.mu.Lock()
	defer s.mu.Unlock()

	if deliveryType != DeliveryPickup && deliveryType != DeliveryDelivery {
		return s.failLocked(validationError(op, ErrInvalidDeliveryType, "delivery type must be pickup or delivery"))
	}
	if s.state.Stage == StageFinalized {
		return s.failLocked(sequenceError(op, "order already placed, start a new checkout"))
	}

	s.state.DeliveryType = deliveryType
	s.state.SelectedBranch = nil
	s.state.DeliveryAvailable = false
	// the offered methods were filtered for the previous type
	s.state.PaymentMethods = nil
	s.discardDraftLocked()
	s.state.Stage = StageDeliveryChosen
	s.state.Error = ""
	s.generation++
	return nil
}

func (s *OrderStore) SetSelectedAddress(address apiclient.Address) error {
	const op = "select address"

	s.mu.Lock()
	defer s.mu.Unlock()

	if address.ID == "" {
		return s.failLocked(validationError(op, ErrMissingSelection, "address is required"))
	}
	if s.state.Stage == StageFinalized {
		return s.failLocked(sequenceError(op, "order already placed, start a new checkout"))
	}

	s.state.SelectedAddress = &address
	s.state.NearbyBranches = nil
	s.state.DeliveryAvailable = false
	if s.state.DeliveryType == DeliveryDelivery {
		s.state.SelectedBranch = nil
	}
	s.discardDraftLocked()

	switch {
	case s.state.DeliveryType == "":
		s.state.Stage = StageIdle
	case s.state.DeliveryType == DeliveryPickup && s.state.SelectedBranch != nil:
		s.state.Stage = StageLocationResolved
	default:
		s.state.Stage = StageDeliveryChosen
	}
	s.state.Error = ""
	s.generation++
	return nil
}

// SetSelectedBranch is for pickup. Delivery orders get their branch from
// CheckDeliveryAvailability.
func (s *OrderStore) SetSelectedBranch(branch apiclient.Branch) error {
	const op = "select branch"

	s.mu.Lock()
	defer s.mu.Unlock()

	if branch.ID == "" {
		return s.failLocked(validationError(op, ErrMissingSelection, "branch is required"))
	}
	if s.state.Stage == StageFinalized {
		return s.failLocked(sequenceError(op, "order already placed, start a new checkout"))
	}
	if s.state.DeliveryType != DeliveryPickup {
		return s.failLocked(sequenceError(op, "branch selection applies to pickup orders"))
	}

	s.state.SelectedBranch = &branch
	s.discardDraftLocked()
	if s.state.SelectedAddress != nil {
		s.state.Stage = StageLocationResolved
	} else {
		s.state.Stage = StageDeliveryChosen
	}
	s.state.Error = ""
	s.generation++
	return nil
}

func (s *OrderStore) FetchNearbyBranches(ctx context.Context) ([]apiclient.Branch, error) {
	const op = "fetch nearby branches"

	s.mu.Lock()
	if s.state.Stage == StageFinalized {
		err := s.failLocked(sequenceError(op, "order already placed, start a new checkout"))
		s.mu.Unlock()
		return nil, err
	}
	if s.state.SelectedAddress == nil || s.state.SelectedAddress.Coordinates.IsZero() {
		err := s.failLocked(validationError(op, ErrMissingSelection, "select an address first"))
		s.mu.Unlock()
		return nil, err
	}
	at := s.state.SelectedAddress.Coordinates
	gen := s.startLocked()
	s.mu.Unlock()

	branches, err := s.api.NearbyBranches(ctx, at)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.settleLocked(op, gen); stale != nil {
		return nil, stale
	}
	if err != nil {
		return nil, s.failLocked(backendError(op, err, nil))
	}

	s.state.NearbyBranches = branches
	s.state.Error = ""
	return append([]apiclient.Branch(nil), branches...), nil
}

// CheckDeliveryAvailability asks the backend whether the selected address
// can be served. When it can, the assigned branch becomes SelectedBranch.
func (s *OrderStore) CheckDeliveryAvailability(ctx context.Context) (bool, error) {
	const op = "check delivery availability"

	s.mu.Lock()
	if s.state.DeliveryType != DeliveryDelivery || s.state.Stage == StageFinalized {
		err := s.failLocked(sequenceError(op, "choose delivery before checking availability"))
		s.mu.Unlock()
		return false, err
	}
	if s.state.SelectedAddress == nil || s.state.SelectedAddress.Coordinates.IsZero() {
		err := s.failLocked(validationError(op, ErrMissingSelection, "select a delivery address first"))
		s.mu.Unlock()
		return false, err
	}
	s.state.DeliveryAvailable = false
	at := s.state.SelectedAddress.Coordinates
	gen := s.startLocked()
	s.mu.Unlock()

	availability, err := s.api.CheckDeliveryAvailability(ctx, at)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.settleLocked(op, gen); stale != nil {
		return false, stale
	}
	if err != nil {
		return false, s.failLocked(backendError(op, err, nil))
	}
	if !availability.IsDeliveryAvailable {
		msg := availability.Message
		if msg == "" {
			msg = ErrDeliveryUnavailable.Error()
		}
		return false, s.failLocked(newError(KindBusiness, op, ErrDeliveryUnavailable, msg))
	}

	s.state.DeliveryAvailable = true
	if availability.Branch != nil {
		branch := *availability.Branch
		s.state.SelectedBranch = &branch
	}
	s.state.Stage = StageLocationResolved
	s.state.Error = ""
	return true, nil
}

func (s *OrderStore) PreparePickupOrder(ctx context.Context) error {
	const op = "prepare pickup order"

	s.mu.Lock()
	if s.state.SelectedBranch == nil || s.state.SelectedAddress == nil {
		err := s.failLocked(validationError(op, ErrMissingSelection, "select a branch and an address first"))
		s.mu.Unlock()
		return err
	}
	if s.state.DeliveryType != DeliveryPickup || s.state.Stage == StageFinalized {
		err := s.failLocked(sequenceError(op, "pickup was not chosen"))
		s.mu.Unlock()
		return err
	}
	req := apiclient.PrepareOrderRequest{
		BranchID:  s.state.SelectedBranch.ID,
		AddressID: s.state.SelectedAddress.ID,
	}
	gen := s.startLocked()
	s.mu.Unlock()

	draft, err := s.api.PreparePickupOrder(ctx, req)
	return s.applyDraft(op, gen, draft, err)
}

func (s *OrderStore) PrepareDeliveryOrder(ctx context.Context) error {
	const op = "prepare delivery order"

	s.mu.Lock()
	if s.state.SelectedAddress == nil {
		err := s.failLocked(validationError(op, ErrMissingSelection, "select a delivery address first"))
		s.mu.Unlock()
		return err
	}
	if s.state.DeliveryType != DeliveryDelivery || s.state.Stage == StageFinalized {
		err := s.failLocked(sequenceError(op, "delivery was not chosen"))
		s.mu.Unlock()
		return err
	}
	if !s.state.DeliveryAvailable {
		err := s.failLocked(sequenceError(op, "check delivery availability first"))
		s.mu.Unlock()
		return err
	}
	req := apiclient.PrepareOrderRequest{AddressID: s.state.SelectedAddress.ID}
	if s.state.SelectedBranch != nil {
		req.BranchID = s.state.SelectedBranch.ID
	}
	gen := s.startLocked()
	s.mu.Unlock()

	draft, err := s.api.PrepareDeliveryOrder(ctx, req)
	return s.applyDraft(op, gen, draft, err)
}

func (s *OrderStore) applyDraft(op string, gen uint64, draft *apiclient.OrderDraft, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stale := s.settleLocked(op, gen); stale != nil {
		return stale
	}
	if err != nil {
		return s.failLocked(backendError(op, err, nil))
	}

	s.discardDraftLocked()
	cp := *draft
	s.state.Draft = &cp
	s.state.CartTotal = draft.TotalAmount
	s.state.FinalTotal = draft.TotalAmount
	s.state.IdempotencyKey = uuid.NewString()
	s.state.Stage = StageDrafted
	s.state.Error = ""
	// anything computed against the previous draft is now stale
	s.generation++
	return nil
}

// ValidateVoucher applies a promo code to the current draft. On failure
// VoucherError is set and the totals are left alone.
func (s *OrderStore) ValidateVoucher(ctx context.Context, promoCode string) error {
	const op = "validate voucher"

	code := strings.TrimSpace(promoCode)

	s.mu.Lock()
	if code == "" {
		err := validationError(op, ErrInvalidVoucher, "enter a promo code")
		s.state.VoucherError = err.Message
		s.mu.Unlock()
		return err
	}
	if s.state.Stage.Before(StageDrafted) || s.state.Stage == StageFinalized || s.state.Draft == nil {
		err := sequenceError(op, "vouchers apply to a prepared order")
		s.state.VoucherError = err.Message
		s.mu.Unlock()
		return err
	}
	req := apiclient.ValidateVoucherRequest{
		Code:        code,
		DraftID:     s.state.Draft.ID,
		OrderAmount: s.state.CartTotal,
	}
	gen := s.startLocked()
	s.mu.Unlock()

	validation, err := s.api.ValidateVoucher(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.settleLocked(op, gen); stale != nil {
		return stale
	}
	if err != nil {
		checkoutErr := backendError(op, err, ErrInvalidVoucher)
		s.state.VoucherError = checkoutErr.Message
		return checkoutErr
	}

	discount := validation.DiscountAmount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	voucherCode := validation.Code
	if voucherCode == "" {
		voucherCode = code
	}
	s.state.Voucher = &AppliedVoucher{
		VoucherID:      validation.VoucherID,
		Code:           voucherCode,
		DiscountAmount: discount,
	}
	s.state.DiscountAmount = discount
	s.state.FinalTotal = decimal.Max(decimal.Zero, s.state.CartTotal.Sub(discount))
	s.state.VoucherError = ""
	s.rewindPaymentLocked()
	return nil
}

// ClearVoucher drops the applied voucher locally; FinalTotal goes back to
// CartTotal.
func (s *OrderStore) ClearVoucher() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Voucher = nil
	s.state.VoucherError = ""
	s.state.DiscountAmount = decimal.Zero
	s.state.FinalTotal = s.state.CartTotal
	s.rewindPaymentLocked()
}

// FetchPaymentMethods loads the offered methods. Delivery-only methods
// (cash on delivery) are dropped for pickup.
func (s *OrderStore) FetchPaymentMethods(ctx context.Context) ([]apiclient.PaymentMethod, error) {
	const op = "fetch payment methods"

	s.mu.Lock()
	gen := s.startLocked()
	s.mu.Unlock()

	methods, err := s.api.PaymentMethods(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.settleLocked(op, gen); stale != nil {
		return nil, stale
	}
	if err != nil {
		return nil, s.failLocked(backendError(op, err, nil))
	}

	offered := make([]apiclient.PaymentMethod, 0, len(methods))
	for _, method := range methods {
		if !s.offersLocked(method) {
			continue
		}
		offered = append(offered, method)
	}
	s.state.PaymentMethods = offered

	if selected := s.state.SelectedPaymentMethod; selected != nil && findMethod(offered, selected.ID) == nil {
		s.state.SelectedPaymentMethod = nil
		s.state.PaymentDetails = nil
		if s.state.Stage.AtLeast(StagePaymentSelected) && s.state.Stage != StageFinalized {
			s.state.Stage = StageDrafted
		}
	}
	s.state.Error = ""
	return append([]apiclient.PaymentMethod(nil), offered...), nil
}

func (s *OrderStore) SelectPaymentMethod(methodID string) error {
	const op = "select payment method"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Stage.Before(StageDrafted) || s.state.Stage == StageFinalized {
		return s.failLocked(sequenceError(op, "payment is chosen for a prepared order"))
	}
	method := findMethod(s.state.PaymentMethods, methodID)
	if method == nil || !s.offersLocked(*method) {
		return s.failLocked(validationError(op, ErrUnknownOption, "payment method is not available"))
	}

	cp := *method
	s.state.SelectedPaymentMethod = &cp
	s.state.PaymentDetails = nil
	s.state.Stage = StagePaymentSelected
	s.state.Error = ""
	return nil
}

// ProcessPayment initiates payment with the selected method. It does not
// place the order.
func (s *OrderStore) ProcessPayment(ctx context.Context) error {
	const op = "process payment"

	s.mu.Lock()
	if s.state.SelectedPaymentMethod == nil {
		err := s.failLocked(validationError(op, ErrMissingSelection, "select a payment method"))
		s.mu.Unlock()
		return err
	}
	if s.state.Stage != StagePaymentSelected {
		err := s.failLocked(sequenceError(op, "payment is not awaiting processing"))
		s.mu.Unlock()
		return err
	}
	if !s.offersLocked(*s.state.SelectedPaymentMethod) {
		err := s.failLocked(validationError(op, ErrUnknownOption, "payment method is not available"))
		s.mu.Unlock()
		return err
	}
	req := apiclient.ProcessPaymentRequest{
		PaymentMethodID: s.state.SelectedPaymentMethod.ID,
		Amount:          s.state.FinalTotal,
	}
	if s.state.Voucher != nil {
		req.VoucherID = s.state.Voucher.VoucherID
	}
	if s.state.Draft != nil {
		req.DraftID = s.state.Draft.ID
	}
	gen := s.startLocked()
	s.mu.Unlock()

	details, err := s.api.ProcessPayment(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.settleLocked(op, gen); stale != nil {
		return stale
	}
	if err != nil {
		return s.failLocked(backendError(op, err, nil))
	}

	s.state.PaymentDetails = details
	s.state.Stage = StagePaymentProcessed
	s.state.Error = ""
	return nil
}

// FinalizeOrder commits the draft and the processed payment into an order.
func (s *OrderStore) FinalizeOrder(ctx context.Context, notes string) error {
	const op = "finalize order"

	s.mu.Lock()
	if missing := s.missingForFinalizeLocked(); len(missing) > 0 {
		err := s.failLocked(validationError(op, ErrMissingSelection, "missing "+strings.Join(missing, ", ")))
		s.state.OrderPlaced = false
		s.mu.Unlock()
		return err
	}
	if s.state.Stage != StagePaymentProcessed {
		err := s.failLocked(sequenceError(op, "process payment before placing the order"))
		s.mu.Unlock()
		return err
	}
	req := apiclient.FinalizeOrderRequest{
		DeliveryType:   string(s.state.DeliveryType),
		BranchID:       s.state.SelectedBranch.ID,
		AddressID:      s.state.SelectedAddress.ID,
		PaymentMethod:  s.state.SelectedPaymentMethod.ID,
		PaymentDetails: s.state.PaymentDetails,
		Notes:          strings.TrimSpace(notes),
		IdempotencyKey: s.state.IdempotencyKey,
	}
	if s.state.Voucher != nil {
		req.VoucherID = s.state.Voucher.VoucherID
	}
	gen := s.startLocked()
	s.mu.Unlock()

	resp, err := s.api.FinalizeOrder(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if stale := s.settleLocked(op, gen); stale != nil {
		return stale
	}
	if err != nil {
		s.state.OrderPlaced = false
		return s.failLocked(backendError(op, err, nil))
	}

	s.state.OrderPlaced = true
	s.state.OrderID = resp.OrderID
	s.state.Stage = StageFinalized
	s.state.Error = ""
	s.logger.Info("order finalized", zap.String("order_id", resp.OrderID), zap.String("delivery_type", req.DeliveryType))
	return nil
}

func (s *OrderStore) missingForFinalizeLocked() []string {
	var missing []string
	if s.state.DeliveryType == "" {
		missing = append(missing, "delivery type")
	}
	if s.state.SelectedBranch == nil {
		missing = append(missing, "branch")
	}
	if s.state.SelectedAddress == nil {
		missing = append(missing, "address")
	}
	if s.state.SelectedPaymentMethod == nil {
		missing = append(missing, "payment method")
	}
	return missing
}

// offersLocked reports whether the method may pay for the current delivery
// type. Delivery-only methods need a delivery order.
func (s *OrderStore) offersLocked(method apiclient.PaymentMethod) bool {
	return !method.DeliveryOnly || s.state.DeliveryType == DeliveryDelivery
}

// discardDraftLocked drops the draft and everything priced against it.
func (s *OrderStore) discardDraftLocked() {
	s.state.Draft = nil
	s.state.CartTotal = decimal.Zero
	s.state.DiscountAmount = decimal.Zero
	s.state.FinalTotal = decimal.Zero
	s.state.Voucher = nil
	s.state.VoucherError = ""
	s.state.SelectedPaymentMethod = nil
	s.state.PaymentDetails = nil
	s.state.IdempotencyKey = ""
}

// rewindPaymentLocked invalidates a processed payment after the amount
// changed.
func (s *OrderStore) rewindPaymentLocked() {
	if s.state.Stage == StagePaymentProcessed {
		s.state.PaymentDetails = nil
		s.state.Stage = StagePaymentSelected
	}
}

func (s *OrderStore) startLocked() uint64 {
	s.inFlight++
	return s.generation
}

func (s *OrderStore) settleLocked(op string, gen uint64) error {
	s.inFlight--
	if gen != s.generation {
		s.logger.Debug("discarding stale checkout response", zap.String("op", op))
		return staleError(op)
	}
	return nil
}

func (s *OrderStore) failLocked(err *CheckoutError) error {
	s.state.Error = err.Message
	if err.Kind != KindValidation && err.Kind != KindSequence {
		s.logger.Warn("checkout step failed", zap.String("op", err.Op), zap.String("kind", string(err.Kind)), zap.Error(err.Err))
	}
	return err
}

func findMethod(methods []apiclient.PaymentMethod, id string) *apiclient.PaymentMethod {
	for i := range methods {
		if methods[i].ID == id {
			return &methods[i]
		}
	}
	return nil
}
