package services

import (
	"context"

	"golang-food-checkout/pkg/apiclient"
)

// CartAPI is the remote cart resource.
type CartAPI interface {
	GetCart(ctx context.Context) (*apiclient.Cart, error)
	AddCartItem(ctx context.Context, menuItemID string, quantity int) (*apiclient.Cart, error)
	UpdateCartItem(ctx context.Context, menuItemID string, quantity int) (*apiclient.Cart, error)
	RemoveCartItem(ctx context.Context, menuItemID string) (*apiclient.Cart, error)
	ClearCart(ctx context.Context) (*apiclient.Cart, error)
}

// CheckoutAPI covers everything between an open cart and a persisted order.
type CheckoutAPI interface {
	ListAddresses(ctx context.Context) ([]apiclient.Address, error)
	NearbyBranches(ctx context.Context, at apiclient.Coordinates) ([]apiclient.Branch, error)
	CheckDeliveryAvailability(ctx context.Context, at apiclient.Coordinates) (*apiclient.DeliveryAvailability, error)
	PreparePickupOrder(ctx context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error)
	PrepareDeliveryOrder(ctx context.Context, req apiclient.PrepareOrderRequest) (*apiclient.OrderDraft, error)
	ValidateVoucher(ctx context.Context, req apiclient.ValidateVoucherRequest) (*apiclient.VoucherValidation, error)
	PaymentMethods(ctx context.Context) ([]apiclient.PaymentMethod, error)
	ProcessPayment(ctx context.Context, req apiclient.ProcessPaymentRequest) (apiclient.PaymentDetails, error)
	FinalizeOrder(ctx context.Context, req apiclient.FinalizeOrderRequest) (*apiclient.FinalizeOrderResponse, error)
}

// OrderAPI reads and transitions persisted orders.
type OrderAPI interface {
	OrderHistory(ctx context.Context, limit, offset int) ([]apiclient.Order, error)
	OrderDetails(ctx context.Context, orderID string) (*apiclient.Order, error)
	OrderStatus(ctx context.Context, orderID string) (*apiclient.OrderStatus, error)
	CancelOrder(ctx context.Context, orderID, reason string) (*apiclient.OrderStatus, error)
	ActiveOrderCount(ctx context.Context) (int, error)
}

// AuthAPI is the unauthenticated OTP login surface.
type AuthAPI interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*apiclient.VerifyOTPResponse, error)
}

// Backend is everything a customer session needs from the REST API.
type Backend interface {
	CartAPI
	CheckoutAPI
	OrderAPI
}

// BackendFactory binds a backend client to a customer's bearer token.
type BackendFactory func(token string) Backend

// ClientFactory adapts an apiclient.Client into a BackendFactory.
func ClientFactory(client *apiclient.Client) BackendFactory {
	return func(token string) Backend {
		return client.WithToken(token)
	}
}
