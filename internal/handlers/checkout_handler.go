package handlers

import (
	"net/http"
	"strconv"

	"golang-food-checkout/internal/middleware"
	"golang-food-checkout/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SelectAddressRequest struct {
	AddressID string `json:"address_id" binding:"required"`
}

type DeliveryTypeRequest struct {
	DeliveryType string `json:"delivery_type" binding:"required"`
}

type SelectBranchRequest struct {
	BranchID string `json:"branch_id" binding:"required"`
}

type ApplyVoucherRequest struct {
	Code string `json:"code"`
}

type SelectPaymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

type PlaceOrderRequest struct {
	Notes string `json:"notes"`
}

// CheckoutResponse is returned by every checkout step.
type CheckoutResponse struct {
	Order services.OrderSnapshot `json:"order"`
	Cart  services.CartSnapshot  `json:"cart"`
}

type DeliveryTypeResponse struct {
	services.DeliveryTypeOutcome
	Order services.OrderSnapshot `json:"order"`
}

type PlaceOrderResponse struct {
	Order *services.PlacedOrder `json:"order"`
	Cart  services.CartSnapshot `json:"cart"`
}

type CheckoutHandler struct {
	sessionHandler
}

func NewCheckoutHandler(sessions SessionProvider, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{sessionHandler{sessions: sessions, logger: logger.Named("checkout_handler")}}
}

func (h *CheckoutHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	checkout := router.Group("/checkout", authMiddleware.AuthRequired())
	{
		checkout.GET("", h.GetCheckout)
		checkout.DELETE("", h.CancelCheckout)
		checkout.POST("/address", h.SelectAddress)
		checkout.POST("/delivery-type", h.SelectDeliveryType)
		checkout.POST("/branch", h.SelectBranch)
		checkout.POST("/delivery", h.PrepareDelivery)
		checkout.POST("/voucher", h.ApplyVoucher)
		checkout.DELETE("/voucher", h.RemoveVoucher)
		checkout.GET("/payment-methods", h.GetPaymentMethods)
		checkout.POST("/payment-method", h.SelectPaymentMethod)
		checkout.POST("/place-order", h.PlaceOrder)
		checkout.GET("/journal", h.GetJournal)
	}
}

func (h *CheckoutHandler) state(session *services.Session) CheckoutResponse {
	return CheckoutResponse{Order: session.Order.Snapshot(), Cart: session.Cart.Snapshot()}
}

// GetCheckout godoc
// @Summary Current checkout state
// @Tags checkout
// @Produce json
// @Success 200 {object} CheckoutResponse
// @Router /checkout [get]
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.state(session))
}

func (h *CheckoutHandler) CancelCheckout(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Flow.Cancel(c.Request.Context())
	h.persist(c, session)
	c.JSON(http.StatusOK, h.state(session))
}

// SelectAddress godoc
// @Summary Choose a saved address
// @Tags checkout
// @Accept json
// @Produce json
// @Param body body SelectAddressRequest true "Address"
// @Success 200 {object} CheckoutResponse
// @Failure 400 {object} ErrorResponse
// @Router /checkout/address [post]
func (h *CheckoutHandler) SelectAddress(c *gin.Context) {
	var req SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	err := session.Flow.ConfirmAddress(c.Request.Context(), req.AddressID)
	h.persist(c, session)
	if err != nil {
		respondError(c, "Failed to select address", err)
		return
	}
	c.JSON(http.StatusOK, h.state(session))
}

// SelectDeliveryType godoc
// @Summary Choose pickup or delivery
// @Description Pickup returns nearby branches. Delivery checks availability;
// @Description when unavailable the response offers pickup instead.
// @Tags checkout
// @Accept json
// @Produce json
// @Param body body DeliveryTypeRequest true "Delivery type"
// @Success 200 {object} DeliveryTypeResponse
// @Router /checkout/delivery-type [post]
func (h *CheckoutHandler) SelectDeliveryType(c *gin.Context) {
	var req DeliveryTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	outcome, err := session.Flow.ConfirmDeliveryType(c.Request.Context(), req.DeliveryType)
	h.persist(c, session)
	if err != nil {
		respondError(c, "Failed to select delivery type", err)
		return
	}
	c.JSON(http.StatusOK, DeliveryTypeResponse{DeliveryTypeOutcome: outcome, Order: session.Order.Snapshot()})
}

func (h *CheckoutHandler) SelectBranch(c *gin.Context) {
	var req SelectBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	err := session.Flow.ConfirmBranch(c.Request.Context(), req.BranchID)
	h.persist(c, session)
	if err != nil {
		respondError(c, "Failed to select branch", err)
		return
	}
	c.JSON(http.StatusOK, h.state(session))
}

func (h *CheckoutHandler) PrepareDelivery(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	err := session.Flow.ConfirmDeliveryAddress(c.Request.Context())
	h.persist(c, session)
	if err != nil {
		respondError(c, "Failed to prepare delivery order", err)
		return
	}
	c.JSON(http.StatusOK, h.state(session))
}

// ApplyVoucher godoc
// @Summary Apply a promo code to the prepared order
// @Tags checkout
// @Accept json
// @Produce json
// @Param body body ApplyVoucherRequest true "Promo code"
// @Success 200 {object} CheckoutResponse
// @Failure 422 {object} ErrorResponse
// @Router /checkout/voucher [post]
func (h *CheckoutHandler) ApplyVoucher(c *gin.Context) {
	var req ApplyVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	err := session.Flow.ApplyVoucher(c.Request.Context(), req.Code)
	h.persist(c, session)
	if err != nil {
		respondError(c, "Failed to apply voucher", err)
		return
	}
	c.JSON(http.StatusOK, h.state(session))
}

func (h *CheckoutHandler) RemoveVoucher(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Flow.RemoveVoucher(c.Request.Context())
	h.persist(c, session)
	c.JSON(http.StatusOK, h.state(session))
}

func (h *CheckoutHandler) GetPaymentMethods(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	methods, err := session.Flow.LoadPaymentMethods(c.Request.Context())
	h.persist(c, session)
	if err != nil {
		respondError(c, "Failed to load payment methods", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}

func (h *CheckoutHandler) SelectPaymentMethod(c *gin.Context) {
	var req SelectPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	err := session.Flow.SelectPaymentMethod(c.Request.Context(), req.PaymentMethodID)
	h.persist(c, session)
	if err != nil {
		respondError(c, "Failed to select payment method", err)
		return
	}
	c.JSON(http.StatusOK, h.state(session))
}

// PlaceOrder godoc
// @Summary Pay for and place the prepared order
// @Tags checkout
// @Accept json
// @Produce json
// @Param body body PlaceOrderRequest false "Order notes"
// @Success 201 {object} PlaceOrderResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /checkout/place-order [post]
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	placed, err := session.Flow.PlaceOrder(c.Request.Context(), req.Notes)
	h.persist(c, session)
	if err != nil {
		respondError(c, "Failed to place order", err)
		return
	}
	c.JSON(http.StatusCreated, PlaceOrderResponse{Order: placed, Cart: session.Cart.Snapshot()})
}

func (h *CheckoutHandler) GetJournal(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	entries, err := session.Flow.Journal(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "Failed to load checkout journal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "entries": entries})
}
