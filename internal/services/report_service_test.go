package services_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-food-checkout/internal/models"
	"golang-food-checkout/internal/repositories"
	"golang-food-checkout/internal/services"
)

func TestReportService_ExportOrdersCSV(t *testing.T) {
	placed := time.Date(2024, 3, 9, 18, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	var gotFilter repositories.ReceiptFilter
	receipts := &fakeReceipts{
		listFn: func(filter repositories.ReceiptFilter) ([]models.OrderReceipt, error) {
			gotFilter = filter
			return []models.OrderReceipt{{
				OrderID:      "order-1",
				PlacedAt:     placed,
				Status:       "pending",
				DeliveryType: "pickup",
				BranchID:     "br-1",
				BranchName:   "Central, MG Road",
				Items: models.ReceiptItems{
					{Name: "Masala \"Dosa\"", Quantity: 2},
					{Name: "Chai", Quantity: 1},
				},
				Subtotal:       money("25"),
				DiscountAmount: money("5"),
				TotalAmount:    money("20"),
				PaymentMethod:  "card",
				VoucherCode:    "SAVE5",
				Notes:          "ring\nthe bell",
			}}, nil
		},
	}
	svc := services.NewReportService(receipts)

	out, err := svc.ExportOrdersCSV(context.Background(), repositories.ReceiptFilter{UserID: "user-1"})

	require.NoError(t, err)
	assert.Equal(t, "user-1", gotFilter.UserID)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "order_id", records[0][0])
	assert.Equal(t, []string{
		"order-1",
		"2024-03-09T13:00:00Z",
		"pending",
		"pickup",
		"Central, MG Road",
		"Masala \"Dosa\" x 2; Chai x 1",
		"25.00",
		"5.00",
		"20.00",
		"card",
		"SAVE5",
		"ring\nthe bell",
	}, records[1])
}

func TestReportService_FallsBackToBranchID(t *testing.T) {
	receipts := &fakeReceipts{
		listFn: func(repositories.ReceiptFilter) ([]models.OrderReceipt, error) {
			return []models.OrderReceipt{{OrderID: "order-2", BranchID: "br-7"}}, nil
		},
	}

	out, err := services.NewReportService(receipts).ExportOrdersCSV(context.Background(), repositories.ReceiptFilter{})

	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "br-7", records[1][4])
}

func TestReportService_ListFailure(t *testing.T) {
	boom := errors.New("connection refused")
	receipts := &fakeReceipts{
		listFn: func(repositories.ReceiptFilter) ([]models.OrderReceipt, error) {
			return nil, boom
		},
	}

	_, err := services.NewReportService(receipts).ExportOrdersCSV(context.Background(), repositories.ReceiptFilter{})

	require.ErrorIs(t, err, boom)
}
