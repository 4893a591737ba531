package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"golang-food-checkout/internal/models"
	"golang-food-checkout/internal/repositories"
)

var receiptCSVHeader = []string{
	"order_id", "placed_at", "status", "delivery_type", "branch",
	"items", "subtotal", "discount", "total", "payment_method", "voucher", "notes",
}

type ReportService struct {
	receipts repositories.ReceiptRepository
}

func NewReportService(receipts repositories.ReceiptRepository) *ReportService {
	return &ReportService{receipts: receipts}
}

// ExportOrdersCSV renders the receipts matching filter, newest first.
func (s *ReportService) ExportOrdersCSV(ctx context.Context, filter repositories.ReceiptFilter) ([]byte, error) {
	receipts, err := s.receipts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(receiptCSVHeader); err != nil {
		return nil, err
	}
	for _, receipt := range receipts {
		if err := w.Write(receiptRow(receipt)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func receiptRow(r models.OrderReceipt) []string {
	branch := r.BranchName
	if branch == "" {
		branch = r.BranchID
	}
	items := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, fmt.Sprintf("%s x %d", item.Name, item.Quantity))
	}
	return []string{
		r.OrderID,
		r.PlacedAt.UTC().Format(time.RFC3339),
		r.Status,
		r.DeliveryType,
		branch,
		strings.Join(items, "; "),
		r.Subtotal.StringFixed(2),
		r.DiscountAmount.StringFixed(2),
		r.TotalAmount.StringFixed(2),
		r.PaymentMethod,
		r.VoucherCode,
		r.Notes,
	}
}
