package repositories

import (
	"context"
	"errors"
	"time"

	"golang-food-checkout/internal/models"

	"gorm.io/gorm"
)

type receiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *models.OrderReceipt) error {
	receipt.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *receiptRepository) GetByOrderID(ctx context.Context, orderID string) (*models.OrderReceipt, error) {
	var receipt models.OrderReceipt
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) UpdateStatus(ctx context.Context, orderID, status string) error {
	result := r.db.WithContext(ctx).Model(&models.OrderReceipt{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *receiptRepository) List(ctx context.Context, filter ReceiptFilter) ([]models.OrderReceipt, error) {
	var receipts []models.OrderReceipt

	query := r.db.WithContext(ctx).Model(&models.OrderReceipt{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.BranchID != "" {
		query = query.Where("branch_id = ?", filter.BranchID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.DeliveryType != "" {
		query = query.Where("delivery_type = ?", filter.DeliveryType)
	}
	if !filter.From.IsZero() {
		query = query.Where("placed_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("placed_at < ?", filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	err := query.Order("placed_at DESC").Find(&receipts).Error
	return receipts, err
}
