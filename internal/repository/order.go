package repository

import (
	"bookstore-payments/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, order *model.Order) error
	FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*model.Order, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, orderID string, status model.OrderStatus) error
	HasPaidAccess(ctx context.Context, userID, bookID string) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

// Create stores the order together with its items.
func (r *orderRepoImpl) Create(ctx context.Context, tx *gorm.DB, order *model.Order) error {
	err := conn(r.db, tx).WithContext(ctx).Create(order).Error
	return wrapErr("create order", "order", order.ID, err)
}

func (r *orderRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, orderID string) (*model.Order, error) {
	var order model.Order
	err := conn(r.db, tx).WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, wrapErr("find order", "order", orderID, err)
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("idempotency_key = ?", key).
		First(&order).Error

	if err != nil {
		return nil, wrapErr("find order by idempotency key", "order with idempotency key", key, err)
	}

	return &order, nil
}

func (r *orderRepoImpl) ListByCustomer(ctx context.Context, customerID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&orders).Error

	if err != nil {
		return nil, wrapErr("list orders", "", "", err)
	}

	return orders, nil
}

func (r *orderRepoImpl) UpdateStatus(ctx context.Context, tx *gorm.DB, orderID string, status model.OrderStatus) error {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return wrapErr("update order status", "order", orderID, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapErr("update order status", "order", orderID, gorm.ErrRecordNotFound)
	}

	return nil
}

// HasPaidAccess reports whether the user holds an order line for the book
// that is either settled by a confirmed notification or free of charge.
func (r *orderRepoImpl) HasPaidAccess(ctx context.Context, userID, bookID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("orders").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Joins("LEFT JOIN payment_notifications ON payment_notifications.id = orders.notification_id").
		Where("orders.customer_id = ? AND order_items.book_id = ?", userID, bookID).
		Where("(payment_notifications.status = ? OR order_items.unit_price = 0)", model.NotificationStatusConfirmed).
		Count(&count).Error

	if err != nil {
		return false, wrapErr("check paid access", "", "", err)
	}

	return count > 0, nil
}
