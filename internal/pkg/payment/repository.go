package payment

import (
	"context"
	"errors"
	"time"

	"github.com/lumichat/lumichat/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the reconciliation engine.
// Status transitions are conditional updates so that concurrent deliveries
// across processes linearize in the store, not in memory.
type Repository interface {
	GetOrderByOrderNo(ctx context.Context, orderNo string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	// TransitionOrder moves the order from one status to another and
	// reports whether this call won the transition.
	TransitionOrder(ctx context.Context, orderNo, fromStatus, toStatus, tradeNo string) (bool, error)
	// MarkOrderError moves a pending or paid order into error_reconciling
	// with an operator-visible note.
	MarkOrderError(ctx context.Context, orderNo, note string) error
	GetProductByCode(ctx context.Context, code string) (*models.Product, error)
	LogNotification(ctx context.Context, n *models.PaymentNotification) error
	MarkNotificationProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetOrderByOrderNo(ctx context.Context, orderNo string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *gormRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *gormRepository) TransitionOrder(ctx context.Context, orderNo, fromStatus, toStatus, tradeNo string) (bool, error) {
	updates := map[string]interface{}{"status": toStatus}
	if tradeNo != "" {
		updates["trade_no"] = tradeNo
	}
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_no = ? AND status = ?", orderNo, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) MarkOrderError(ctx context.Context, orderNo, note string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_no = ? AND status IN ?", orderNo, []string{models.OrderStatusPending, models.OrderStatusPaid}).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusErrorReconciling,
			"reconcile_note": note,
		}).Error
}

func (r *gormRepository) GetProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) LogNotification(ctx context.Context, n *models.PaymentNotification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *gormRepository) MarkNotificationProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.PaymentNotification{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":     &now,
			"processing_error": processingError,
		}).Error
}
