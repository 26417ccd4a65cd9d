package service

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/logger"
	"bookstore-payments/internal/metric"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/repository"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewInput struct {
	BookID   string
	UserID   string
	UserName string
	Rating   int
	Comment  string
}

type StatsService interface {
	AddBookReview(ctx context.Context, input ReviewInput) (*model.Review, *model.BookStats, error)
	ListReviews(ctx context.Context, bookID string) ([]*model.Review, error)
	IncrementBookView(ctx context.Context, bookID string) error
	GetStats(ctx context.Context, bookID string) (*model.BookStats, error)
	RecomputeBookStats(ctx context.Context, bookID string) (*model.BookStats, error)
	RecomputeAll(ctx context.Context) error
	RunRecompute(ctx context.Context, interval time.Duration)
}

type statsServiceImpl struct {
	db         *gorm.DB
	bookRepo   repository.BookRepository
	reviewRepo repository.ReviewRepository
	statsRepo  repository.StatsRepository
	log        *slog.Logger
}

func NewStatsService(
	db *gorm.DB,
	bookRepo repository.BookRepository,
	reviewRepo repository.ReviewRepository,
	statsRepo repository.StatsRepository,
	log *slog.Logger,
) StatsService {
	return &statsServiceImpl{
		db:         db,
		bookRepo:   bookRepo,
		reviewRepo: reviewRepo,
		statsRepo:  statsRepo,
		log:        log,
	}
}

// AddBookReview stores the review and recomputes the book's rating from all
// of its reviews.
func (s *statsServiceImpl) AddBookReview(ctx context.Context, input ReviewInput) (*model.Review, *model.BookStats, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, nil, apperr.Validation("rating must be between 1 and 5, got %d", input.Rating)
	}
	if input.UserID == "" {
		return nil, nil, apperr.ErrUnauthenticated
	}
	if _, err := s.bookRepo.FindByID(ctx, input.BookID); err != nil {
		return nil, nil, err
	}

	review := &model.Review{
		ID:        uuid.NewString(),
		BookID:    input.BookID,
		UserID:    input.UserID,
		UserName:  input.UserName,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
		CreatedAt: time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.reviewRepo.Create(ctx, tx, review); err != nil {
			return err
		}
		return s.recompute(ctx, tx, input.BookID)
	})
	if err != nil {
		return nil, nil, apperr.Upstream("add review", err)
	}

	stats, err := s.statsRepo.Get(ctx, input.BookID)
	if err != nil {
		return nil, nil, err
	}
	return review, stats, nil
}

func (s *statsServiceImpl) recompute(ctx context.Context, tx *gorm.DB, bookID string) error {
	summary, err := s.reviewRepo.Summarize(ctx, tx, bookID)
	if err != nil {
		return err
	}
	return s.statsRepo.SetRating(ctx, tx, bookID, summary)
}

func (s *statsServiceImpl) ListReviews(ctx context.Context, bookID string) ([]*model.Review, error) {
	return s.reviewRepo.ListByBook(ctx, bookID)
}

// IncrementBookView is best effort; duplicate counts are tolerated.
func (s *statsServiceImpl) IncrementBookView(ctx context.Context, bookID string) error {
	if _, err := s.bookRepo.FindByID(ctx, bookID); err != nil {
		return err
	}
	return s.statsRepo.IncrementViews(ctx, bookID)
}

// GetStats derives the rating from the stored reviews on every read, so a
// lost update between concurrent reviews never reaches the caller.
func (s *statsServiceImpl) GetStats(ctx context.Context, bookID string) (*model.BookStats, error) {
	if _, err := s.bookRepo.FindByID(ctx, bookID); err != nil {
		return nil, err
	}
	return s.RecomputeBookStats(ctx, bookID)
}

func (s *statsServiceImpl) RecomputeBookStats(ctx context.Context, bookID string) (*model.BookStats, error) {
	if err := s.recompute(ctx, nil, bookID); err != nil {
		return nil, err
	}
	return s.statsRepo.Get(ctx, bookID)
}

// RecomputeAll repairs ratings that lost a race between concurrent reviews.
func (s *statsServiceImpl) RecomputeAll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metric.StatsRecomputeDuration.Observe(time.Since(start).Seconds())
	}()

	ids, err := s.bookRepo.ListIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.recompute(ctx, nil, id); err != nil {
			return err
		}
	}
	s.log.InfoContext(ctx, "book stats recomputed", slog.Int("books", len(ids)))
	return nil
}

func (s *statsServiceImpl) RunRecompute(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RecomputeAll(ctx); err != nil {
				s.log.ErrorContext(ctx, "recompute book stats", logger.Err(err))
			}
		}
	}
}
