package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Cart

func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) AddCartItem(ctx context.Context, menuItemID string, quantity int) (*Cart, error) {
	var cart Cart
	req := cartItemRequest{MenuItemID: menuItemID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/cart/items", req, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) UpdateCartItem(ctx context.Context, menuItemID string, quantity int) (*Cart, error) {
	var cart Cart
	path := "/cart/items/" + url.PathEscape(menuItemID)
	if err := c.do(ctx, http.MethodPut, path, cartItemRequest{Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) RemoveCartItem(ctx context.Context, menuItemID string) (*Cart, error) {
	var cart Cart
	path := "/cart/items/" + url.PathEscape(menuItemID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) ClearCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodDelete, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Addresses and geo lookups

func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	var addresses []Address
	if err := c.do(ctx, http.MethodGet, "/addresses", nil, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (c *Client) NearbyBranches(ctx context.Context, at Coordinates) ([]Branch, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(at.Longitude, 'f', -1, 64))

	var branches []Branch
	if err := c.do(ctx, http.MethodGet, "/branches/nearby?"+q.Encode(), nil, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

func (c *Client) CheckDeliveryAvailability(ctx context.Context, at Coordinates) (*DeliveryAvailability, error) {
	var availability DeliveryAvailability
	if err := c.do(ctx, http.MethodPost, "/delivery/availability", at, &availability); err != nil {
		return nil, err
	}
	return &availability, nil
}

// Drafts

func (c *Client) PreparePickupOrder(ctx context.Context, req PrepareOrderRequest) (*OrderDraft, error) {
	var draft OrderDraft
	if err := c.do(ctx, http.MethodPost, "/orders/prepare/pickup", req, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (c *Client) PrepareDeliveryOrder(ctx context.Context, req PrepareOrderRequest) (*OrderDraft, error) {
	var draft OrderDraft
	if err := c.do(ctx, http.MethodPost, "/orders/prepare/delivery", req, &draft); err != nil {
		return nil, err
	}
	return &draft, nil
}

// Vouchers and payments

func (c *Client) ValidateVoucher(ctx context.Context, req ValidateVoucherRequest) (*VoucherValidation, error) {
	var validation VoucherValidation
	if err := c.do(ctx, http.MethodPost, "/vouchers/validate", req, &validation); err != nil {
		return nil, err
	}
	if !validation.Valid {
		msg := validation.Message
		if msg == "" {
			msg = "invalid voucher"
		}
		return nil, &APIError{Status: http.StatusOK, Message: msg}
	}
	return &validation, nil
}

func (c *Client) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	var methods []PaymentMethod
	if err := c.do(ctx, http.MethodGet, "/payments/methods", nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

func (c *Client) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (PaymentDetails, error) {
	details := PaymentDetails{}
	if err := c.do(ctx, http.MethodPost, "/payments/process", req, &details); err != nil {
		return nil, err
	}
	return details, nil
}

// Orders

func (c *Client) FinalizeOrder(ctx context.Context, req FinalizeOrderRequest) (*FinalizeOrderResponse, error) {
	var resp FinalizeOrderResponse
	if err := c.do(ctx, http.MethodPost, "/orders/finalize", req, &resp); err != nil {
		return nil, err
	}
	if resp.OrderID == "" {
		return nil, &TransportError{Err: fmt.Errorf("finalize response carried no order id")}
	}
	return &resp, nil
}

func (c *Client) OrderHistory(ctx context.Context, limit, offset int) ([]Order, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders?"+q.Encode(), nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) OrderDetails(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) OrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var status OrderStatus
	path := fmt.Sprintf("/orders/%s/status", url.PathEscape(orderID))
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	if status.OrderID == "" {
		status.OrderID = orderID
	}
	return &status, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID, reason string) (*OrderStatus, error) {
	var status OrderStatus
	path := fmt.Sprintf("/orders/%s/cancel", url.PathEscape(orderID))
	if err := c.do(ctx, http.MethodPost, path, CancelOrderRequest{Reason: reason}, &status); err != nil {
		return nil, err
	}
	if status.OrderID == "" {
		status.OrderID = orderID
	}
	return &status, nil
}

func (c *Client) ActiveOrderCount(ctx context.Context) (int, error) {
	var active ActiveOrders
	if err := c.do(ctx, http.MethodGet, "/orders/active/count", nil, &active); err != nil {
		return 0, err
	}
	return active.Count, nil
}

// Auth

func (c *Client) SendOTP(ctx context.Context, phone string) error {
	return c.do(ctx, http.MethodPost, "/auth/otp/send", SendOTPRequest{Phone: phone}, nil)
}

func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*VerifyOTPResponse, error) {
	var resp VerifyOTPResponse
	req := VerifyOTPRequest{Phone: phone, Code: code}
	if err := c.do(ctx, http.MethodPost, "/auth/otp/verify", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "verification returned no token"}
	}
	return &resp, nil
}
