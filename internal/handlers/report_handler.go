package handlers

import (
	"golang-food-checkout/internal/middleware"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	exporter OrderExporter
}

func NewReportHandler(exporter OrderExporter) *ReportHandler {
	return &ReportHandler{exporter: exporter}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	reports := router.Group("/reports", authMiddleware.AuthRequired(), authMiddleware.AdminRequired())
	{
		reports.GET("/orders", h.ExportOrders)
	}
}

// ExportOrders godoc
// @Summary Export every customer's receipts as CSV
// @Tags reports
// @Produce text/csv
// @Param status query string false "Status"
// @Param delivery_type query string false "pickup or delivery"
// @Param branch_id query string false "Branch"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date, exclusive (YYYY-MM-DD)"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /reports/orders [get]
func (h *ReportHandler) ExportOrders(c *gin.Context) {
	filter, err := receiptFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter.UserID = c.Query("user_id")

	writeCSV(c, h.exporter, filter, "order-report")
}
