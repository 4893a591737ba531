package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"golang-food-checkout/pkg/apiclient"
)

type CartItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image_url,omitempty"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency,omitempty"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartSnapshot struct {
	Items     []CartItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	CartTotal decimal.Decimal `json:"cart_total"`
	Error     string          `json:"error,omitempty"`
	Loading   bool            `json:"loading"`
}

// CartStore mirrors the remote cart for one customer. The server response
// always replaces the local item list, and ItemCount/CartTotal are derived
// from that list on every change.
//
// Each request takes a sequence number; only the response to the newest
// request is applied, older ones come back as ErrStaleResponse.
type CartStore struct {
	api    CartAPI
	logger *zap.Logger

	mu        sync.Mutex
	items     []CartItem
	itemCount int
	cartTotal decimal.Decimal
	lastError string
	inFlight  int
	seq       uint64
}

func NewCartStore(api CartAPI, logger *zap.Logger) *CartStore {
	return &CartStore{
		api:       api,
		logger:    logger.Named("cart"),
		cartTotal: decimal.Zero,
	}
}

// FetchCart loads the authoritative cart. On failure the previous items
// are kept.
func (s *CartStore) FetchCart(ctx context.Context) error {
	token, _ := s.begin("")
	cart, err := s.api.GetCart(ctx)
	return s.finish("fetch cart", token, cart, err)
}

// UpdateItem sets the quantity of an item: quantity <= 0 removes it, an
// unknown item is added, a known one is updated. One network call.
func (s *CartStore) UpdateItem(ctx context.Context, menuItemID string, quantity int) error {
	if menuItemID == "" {
		return s.reject(validationError("update item", ErrMissingSelection, "menu item is required"))
	}

	token, current := s.begin(menuItemID)

	var cart *apiclient.Cart
	var err error
	switch {
	case quantity <= 0:
		cart, err = s.api.RemoveCartItem(ctx, menuItemID)
	case current == nil:
		cart, err = s.api.AddCartItem(ctx, menuItemID, quantity)
	default:
		cart, err = s.api.UpdateCartItem(ctx, menuItemID, quantity)
	}
	return s.finish("update item", token, cart, err)
}

// AddItem increments a known item by delta (removing it if the result
// drops to zero) or adds an unknown one.
func (s *CartStore) AddItem(ctx context.Context, menuItemID string, delta int) error {
	if menuItemID == "" {
		return s.reject(validationError("add item", ErrMissingSelection, "menu item is required"))
	}

	s.mu.Lock()
	current := s.find(menuItemID)
	if current == nil && delta <= 0 {
		s.mu.Unlock()
		return s.reject(validationError("add item", ErrInvalidQuantity, "quantity must be at least 1"))
	}
	s.mu.Unlock()

	token, current := s.begin(menuItemID)

	var cart *apiclient.Cart
	var err error
	switch {
	case current == nil:
		cart, err = s.api.AddCartItem(ctx, menuItemID, delta)
	case current.Quantity+delta <= 0:
		cart, err = s.api.RemoveCartItem(ctx, menuItemID)
	default:
		cart, err = s.api.UpdateCartItem(ctx, menuItemID, current.Quantity+delta)
	}
	return s.finish("add item", token, cart, err)
}

func (s *CartStore) RemoveItem(ctx context.Context, menuItemID string) error {
	if menuItemID == "" {
		return s.reject(validationError("remove item", ErrMissingSelection, "menu item is required"))
	}
	token, _ := s.begin("")
	cart, err := s.api.RemoveCartItem(ctx, menuItemID)
	return s.finish("remove item", token, cart, err)
}

func (s *CartStore) ClearCartItems(ctx context.Context) error {
	token, _ := s.begin("")
	cart, err := s.api.ClearCart(ctx)
	if err == nil && cart == nil {
		cart = &apiclient.Cart{}
	}
	return s.finish("clear cart", token, cart, err)
}

func (s *CartStore) Snapshot() CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]CartItem, len(s.items))
	copy(items, s.items)
	return CartSnapshot{
		Items:     items,
		ItemCount: s.itemCount,
		CartTotal: s.cartTotal,
		Error:     s.lastError,
		Loading:   s.inFlight > 0,
	}
}

// Restore loads a persisted snapshot. Stored totals are ignored and
// recomputed from the items.
func (s *CartStore) Restore(snapshot CartSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setItems(snapshot.Items)
	s.lastError = snapshot.Error
}

func (s *CartStore) begin(menuItemID string) (uint64, *CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.inFlight++

	var current *CartItem
	if menuItemID != "" {
		if item := s.find(menuItemID); item != nil {
			cp := *item
			current = &cp
		}
	}
	return s.seq, current
}

func (s *CartStore) finish(op string, token uint64, cart *apiclient.Cart, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight--
	if token != s.seq {
		s.logger.Debug("discarding stale cart response", zap.String("op", op), zap.Uint64("seq", token), zap.Uint64("latest", s.seq))
		return staleError(op)
	}

	if err != nil {
		checkoutErr := backendError(op, err, nil)
		s.lastError = checkoutErr.Message
		s.logger.Warn("cart request failed", zap.String("op", op), zap.Error(err))
		return checkoutErr
	}

	var items []CartItem
	if cart != nil {
		items = fromLines(cart.Items)
	}
	s.setItems(items)
	s.lastError = ""
	return nil
}

func (s *CartStore) reject(err *CheckoutError) error {
	s.mu.Lock()
	s.lastError = err.Message
	s.mu.Unlock()
	return err
}

// setItems must be called with mu held.
func (s *CartStore) setItems(items []CartItem) {
	kept := make([]CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	s.itemCount, s.cartTotal = cartTotals(kept)
}

func (s *CartStore) find(menuItemID string) *CartItem {
	for i := range s.items {
		if s.items[i].MenuItemID == menuItemID {
			return &s.items[i]
		}
	}
	return nil
}

func cartTotals(items []CartItem) (int, decimal.Decimal) {
	count := 0
	total := decimal.Zero
	for _, item := range items {
		count += item.Quantity
		total = total.Add(item.LineTotal())
	}
	return count, total
}

func fromLines(lines []apiclient.CartLine) []CartItem {
	items := make([]CartItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, CartItem{
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			ImageURL:   line.ImageURL,
			Quantity:   line.Quantity,
			Price:      line.Price,
			Currency:   line.Currency,
		})
	}
	return items
}
