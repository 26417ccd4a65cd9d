package repository

import (
	"bookstore-payments/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatsRepository interface {
	Get(ctx context.Context, bookID string) (*model.BookStats, error)
	IncrementViews(ctx context.Context, bookID string) error
	IncrementSales(ctx context.Context, tx *gorm.DB, bookID string, copies int64) error
	IncrementDownloads(ctx context.Context, bookID string) error
	SetRating(ctx context.Context, tx *gorm.DB, bookID string, summary RatingSummary) error
}

type statsRepoImpl struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepoImpl{
		db: db,
	}
}

// Get returns zeroed stats for a book nobody has touched yet.
func (r *statsRepoImpl) Get(ctx context.Context, bookID string) (*model.BookStats, error) {
	var stats model.BookStats
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		First(&stats).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.BookStats{BookID: bookID}, nil
	}
	if err != nil {
		return nil, wrapErr("get book stats", "book stats", bookID, err)
	}

	return &stats, nil
}

func (r *statsRepoImpl) increment(ctx context.Context, tx *gorm.DB, seed *model.BookStats, column string, delta int64) error {
	return conn(r.db, tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:       gorm.Expr("book_stats."+column+" + ?", delta),
			"updated_at": time.Now(),
		}),
	}).Create(seed).Error
}

func (r *statsRepoImpl) IncrementViews(ctx context.Context, bookID string) error {
	err := r.increment(ctx, nil, &model.BookStats{BookID: bookID, Views: 1}, "views", 1)
	return wrapErr("increment views", "book stats", bookID, err)
}

func (r *statsRepoImpl) IncrementSales(ctx context.Context, tx *gorm.DB, bookID string, copies int64) error {
	err := r.increment(ctx, tx, &model.BookStats{BookID: bookID, CopiesSold: copies}, "copies_sold", copies)
	return wrapErr("increment copies sold", "book stats", bookID, err)
}

func (r *statsRepoImpl) IncrementDownloads(ctx context.Context, bookID string) error {
	err := r.increment(ctx, nil, &model.BookStats{BookID: bookID, Downloads: 1}, "downloads", 1)
	return wrapErr("increment downloads", "book stats", bookID, err)
}

func (r *statsRepoImpl) SetRating(ctx context.Context, tx *gorm.DB, bookID string, summary RatingSummary) error {
	err := conn(r.db, tx).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"average_rating": summary.Average,
			"review_count":   summary.Count,
			"updated_at":     time.Now(),
		}),
	}).Create(&model.BookStats{
		BookID:        bookID,
		AverageRating: summary.Average,
		ReviewCount:   summary.Count,
	}).Error

	return wrapErr("set book rating", "book stats", bookID, err)
}
