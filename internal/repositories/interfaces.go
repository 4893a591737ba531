package repositories

import (
	"context"
	"errors"
	"time"

	"golang-food-checkout/internal/models"
)

var ErrNotFound = errors.New("record not found")

// ReceiptFilter narrows receipt listings. Zero values mean "any".
type ReceiptFilter struct {
	UserID       string
	BranchID     string
	Status       string
	DeliveryType string
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

type ReceiptRepository interface {
	Create(ctx context.Context, receipt *models.OrderReceipt) error
	GetByOrderID(ctx context.Context, orderID string) (*models.OrderReceipt, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
	List(ctx context.Context, filter ReceiptFilter) ([]models.OrderReceipt, error)
}

type JournalRepository interface {
	Append(ctx context.Context, entry *models.CheckoutJournalEntry) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.CheckoutJournalEntry, error)
}
