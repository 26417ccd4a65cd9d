package repository

import (
	"bookstore-payments/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type ProofRepository interface {
	Create(ctx context.Context, tx *gorm.DB, proof *model.PaymentProof) error
	ListByNotification(ctx context.Context, tx *gorm.DB, notificationID string) ([]*model.PaymentProof, error)
	Latest(ctx context.Context, tx *gorm.DB, notificationID string) (*model.PaymentProof, error)
	MarkConfirmed(ctx context.Context, tx *gorm.DB, proofID, staffID string, at time.Time, notes string) error
	SetNotes(ctx context.Context, tx *gorm.DB, proofID, notes string) error
}

type proofRepoImpl struct {
	db *gorm.DB
}

func NewProofRepository(db *gorm.DB) ProofRepository {
	return &proofRepoImpl{
		db: db,
	}
}

func (r *proofRepoImpl) Create(ctx context.Context, tx *gorm.DB, proof *model.PaymentProof) error {
	err := conn(r.db, tx).WithContext(ctx).Create(proof).Error
	return wrapErr("create payment proof", "payment proof", proof.ID, err)
}

func (r *proofRepoImpl) ListByNotification(ctx context.Context, tx *gorm.DB, notificationID string) ([]*model.PaymentProof, error) {
	var proofs []*model.PaymentProof
	err := conn(r.db, tx).WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("uploaded_at").
		Find(&proofs).Error

	if err != nil {
		return nil, wrapErr("list payment proofs", "", "", err)
	}

	return proofs, nil
}

func (r *proofRepoImpl) Latest(ctx context.Context, tx *gorm.DB, notificationID string) (*model.PaymentProof, error) {
	var proof model.PaymentProof
	err := conn(r.db, tx).WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("uploaded_at DESC").
		First(&proof).Error

	if err != nil {
		return nil, wrapErr("find payment proof", "payment proof for notification", notificationID, err)
	}

	return &proof, nil
}

func (r *proofRepoImpl) MarkConfirmed(ctx context.Context, tx *gorm.DB, proofID, staffID string, at time.Time, notes string) error {
	updates := map[string]interface{}{
		"confirmed_by": staffID,
		"confirmed_at": at,
	}
	if notes != "" {
		updates["notes"] = notes
	}

	result := conn(r.db, tx).WithContext(ctx).Model(&model.PaymentProof{}).
		Where("id = ?", proofID).
		Updates(updates)

	if result.Error != nil {
		return wrapErr("confirm payment proof", "payment proof", proofID, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapErr("confirm payment proof", "payment proof", proofID, gorm.ErrRecordNotFound)
	}

	return nil
}

func (r *proofRepoImpl) SetNotes(ctx context.Context, tx *gorm.DB, proofID, notes string) error {
	err := conn(r.db, tx).WithContext(ctx).Model(&model.PaymentProof{}).
		Where("id = ?", proofID).
		Update("notes", notes).Error

	return wrapErr("annotate payment proof", "payment proof", proofID, err)
}
