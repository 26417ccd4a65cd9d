package repository

import (
	"bookstore-payments/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type NotificationFilter struct {
	ReaderID string
	Status   model.NotificationStatus
}

type NotificationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, notification *model.PaymentNotification) error
	FindByID(ctx context.Context, tx *gorm.DB, notificationID string) (*model.PaymentNotification, error)
	List(ctx context.Context, filter NotificationFilter) ([]*model.PaymentNotification, error)
	// TransitionStatus moves the notification from one status to another only
	// if it is still in `from`. It reports false when another writer got there
	// first.
	TransitionStatus(ctx context.Context, tx *gorm.DB, notificationID string, from, to model.NotificationStatus) (bool, error)
}

type notificationRepoImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepoImpl{
		db: db,
	}
}

func (r *notificationRepoImpl) Create(ctx context.Context, tx *gorm.DB, notification *model.PaymentNotification) error {
	err := conn(r.db, tx).WithContext(ctx).Create(notification).Error
	return wrapErr("create payment notification", "payment notification", notification.ID, err)
}

func (r *notificationRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, notificationID string) (*model.PaymentNotification, error) {
	var notification model.PaymentNotification
	err := conn(r.db, tx).WithContext(ctx).
		Preload("Items").
		Preload("Proofs", func(db *gorm.DB) *gorm.DB {
			return db.Order("uploaded_at")
		}).
		Where("id = ?", notificationID).
		First(&notification).Error

	if err != nil {
		return nil, wrapErr("find payment notification", "payment notification", notificationID, err)
	}

	return &notification, nil
}

func (r *notificationRepoImpl) List(ctx context.Context, filter NotificationFilter) ([]*model.PaymentNotification, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if filter.ReaderID != "" {
		query = query.Where("reader_id = ?", filter.ReaderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var notifications []*model.PaymentNotification
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, wrapErr("list payment notifications", "", "", err)
	}

	return notifications, nil
}

func (r *notificationRepoImpl) TransitionStatus(ctx context.Context, tx *gorm.DB, notificationID string, from, to model.NotificationStatus) (bool, error) {
	result := conn(r.db, tx).WithContext(ctx).Model(&model.PaymentNotification{}).
		Where("id = ? AND status = ?", notificationID, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, wrapErr("update payment notification status", "payment notification", notificationID, result.Error)
	}

	return result.RowsAffected == 1, nil
}
