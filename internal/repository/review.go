package repository

import (
	"bookstore-payments/internal/model"
	"context"

	"gorm.io/gorm"
)

type RatingSummary struct {
	Average float64
	Count   int64
}

type ReviewRepository interface {
	Create(ctx context.Context, tx *gorm.DB, review *model.Review) error
	ListByBook(ctx context.Context, bookID string) ([]*model.Review, error)
	Summarize(ctx context.Context, tx *gorm.DB, bookID string) (RatingSummary, error)
}

type reviewRepoImpl struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepoImpl{
		db: db,
	}
}

func (r *reviewRepoImpl) Create(ctx context.Context, tx *gorm.DB, review *model.Review) error {
	err := conn(r.db, tx).WithContext(ctx).Create(review).Error
	return wrapErr("create review", "review", review.ID, err)
}

func (r *reviewRepoImpl) ListByBook(ctx context.Context, bookID string) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Find(&reviews).Error

	if err != nil {
		return nil, wrapErr("list reviews", "", "", err)
	}

	return reviews, nil
}

// Summarize scans every review of the book.
func (r *reviewRepoImpl) Summarize(ctx context.Context, tx *gorm.DB, bookID string) (RatingSummary, error) {
	var summary RatingSummary
	err := conn(r.db, tx).WithContext(ctx).
		Model(&model.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("book_id = ?", bookID).
		Scan(&summary).Error

	if err != nil {
		return RatingSummary{}, wrapErr("summarize reviews", "", "", err)
	}

	return summary, nil
}
