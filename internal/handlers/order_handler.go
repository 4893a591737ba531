package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"golang-food-checkout/internal/middleware"
	"golang-food-checkout/internal/repositories"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderExporter renders receipts as CSV. services.ReportService implements
// it.
type OrderExporter interface {
	ExportOrdersCSV(ctx context.Context, filter repositories.ReceiptFilter) ([]byte, error)
}

type OrderHandler struct {
	sessionHandler
	exporter OrderExporter
}

func NewOrderHandler(sessions SessionProvider, exporter OrderExporter, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		sessionHandler: sessionHandler{sessions: sessions, logger: logger.Named("order_handler")},
		exporter:       exporter,
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	orders := router.Group("/orders", authMiddleware.AuthRequired())
	{
		orders.GET("", h.GetOrders)
		orders.GET("/active-count", h.GetActiveCount)
		orders.GET("/export", h.ExportOrders)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/status", h.GetOrderStatus)
		orders.POST("/:id/cancel", h.CancelOrder)
	}
}

// GetOrders godoc
// @Summary Order history
// @Tags orders
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} services.TrackedOrder
// @Router /orders [get]
func (h *OrderHandler) GetOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	session, ok := h.session(c)
	if !ok {
		return
	}

	orders, err := session.Tracker.History(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, "Failed to get orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "limit": limit, "offset": offset})
}

// GetActiveCount answers from the session's poller when it has polled,
// otherwise asks the backend.
func (h *OrderHandler) GetActiveCount(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if polled, err := session.Poller.LastPoll(); !polled.IsZero() && err == nil {
		c.JSON(http.StatusOK, gin.H{"count": session.Poller.Count(), "polled_at": polled})
		return
	}

	count, err := session.Tracker.ActiveCount(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to get active orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	order, err := session.Tracker.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrderStatus(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	status, err := session.Tracker.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get order status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CancelOrder godoc
// @Summary Cancel a pending or accepted order
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param body body CancelOrderRequest false "Reason"
// @Success 200 {object} services.StatusView
// @Failure 422 {object} ErrorResponse
// @Router /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
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

	status, err := session.Tracker.Cancel(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, "Failed to cancel order", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ExportOrders downloads the caller's own receipts as CSV.
func (h *OrderHandler) ExportOrders(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: "User ID not found"})
		return
	}

	filter, err := receiptFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter.UserID = userID

	writeCSV(c, h.exporter, filter, "orders")
}

func writeCSV(c *gin.Context, exporter OrderExporter, filter repositories.ReceiptFilter, name string) {
	data, err := exporter.ExportOrdersCSV(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "Failed to export orders", err)
		return
	}
	filename := name + "-" + time.Now().UTC().Format("20060102") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// receiptFilter reads status, delivery_type, branch_id, from, to (YYYY-MM-DD
// or RFC3339), limit and offset from the query string.
func receiptFilter(c *gin.Context) (repositories.ReceiptFilter, error) {
	filter := repositories.ReceiptFilter{
		Status:       c.Query("status"),
		DeliveryType: c.Query("delivery_type"),
		BranchID:     c.Query("branch_id"),
	}

	var err error
	if filter.From, err = parseDay(c.Query("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseUntil(c.Query("to")); err != nil {
		return filter, err
	}
	if v := c.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			return filter, err
		}
	}
	if v := c.Query("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

const dayLayout = "2006-01-02"

func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dayLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// parseUntil parses an exclusive upper bound. A bare date covers that whole
// day.
func parseUntil(value string) (time.Time, error) {
	if t, err := time.Parse(dayLayout, value); err == nil {
		return t.AddDate(0, 0, 1), nil
	}
	return parseDay(value)
}
