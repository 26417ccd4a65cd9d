package repository

import (
	"bookstore-payments/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PayoutRepository interface {
	Upsert(ctx context.Context, account *model.PayoutAccount) error
	BankReferences(ctx context.Context, authorIDs []string) (map[string]string, error)
}

type payoutRepoImpl struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepoImpl{
		db: db,
	}
}

func (r *payoutRepoImpl) Upsert(ctx context.Context, account *model.PayoutAccount) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "author_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"bank_reference": account.BankReference,
			"updated_at":     time.Now(),
		}),
	}).Create(account).Error

	return wrapErr("upsert payout account", "payout account", account.AuthorID, err)
}

func (r *payoutRepoImpl) BankReferences(ctx context.Context, authorIDs []string) (map[string]string, error) {
	var accounts []*model.PayoutAccount
	err := r.db.WithContext(ctx).
		Where("author_id IN ?", authorIDs).
		Find(&accounts).Error

	if err != nil {
		return nil, wrapErr("find payout accounts", "", "", err)
	}

	refs := make(map[string]string, len(accounts))
	for _, a := range accounts {
		refs[a.AuthorID] = a.BankReference
	}
	return refs, nil
}
