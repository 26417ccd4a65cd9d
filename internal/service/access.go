package service

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/logger"
	"bookstore-payments/internal/metric"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/repository"
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type AccessService interface {
	// CheckDownloadAccess answers whether userID may download the book. An
	// empty userID is an anonymous caller. It never writes.
	CheckDownloadAccess(ctx context.Context, bookID, userID string, bookPrice int64) (bool, error)
	CanDownload(ctx context.Context, bookID string, caller *model.Identity) (bool, error)
	RevealDownload(ctx context.Context, bookID string, caller *model.Identity) (string, error)
}

type accessServiceImpl struct {
	bookRepo  repository.BookRepository
	orderRepo repository.OrderRepository
	statsRepo repository.StatsRepository
	log       *slog.Logger
}

func NewAccessService(
	bookRepo repository.BookRepository,
	orderRepo repository.OrderRepository,
	statsRepo repository.StatsRepository,
	log *slog.Logger,
) AccessService {
	return &accessServiceImpl{
		bookRepo:  bookRepo,
		orderRepo: orderRepo,
		statsRepo: statsRepo,
		log:       log,
	}
}

func (s *accessServiceImpl) CheckDownloadAccess(ctx context.Context, bookID, userID string, bookPrice int64) (bool, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "AccessService.CheckDownloadAccess")
	defer span.End()
	span.SetAttributes(attribute.String("book_id", bookID))

	if bookPrice == 0 {
		metric.AccessChecksTotal.WithLabelValues("free").Inc()
		return true, nil
	}
	if userID == "" {
		metric.AccessChecksTotal.WithLabelValues("anonymous").Inc()
		return false, nil
	}

	ok, err := s.orderRepo.HasPaidAccess(ctx, userID, bookID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if ok {
		metric.AccessChecksTotal.WithLabelValues("purchased").Inc()
	} else {
		metric.AccessChecksTotal.WithLabelValues("denied").Inc()
	}
	return ok, nil
}

// CanDownload resolves the caller's role once and falls back to the
// purchase check for readers. The price always comes from the catalog.
func (s *accessServiceImpl) CanDownload(ctx context.Context, bookID string, caller *model.Identity) (bool, error) {
	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return false, err
	}
	return s.canDownload(ctx, book, caller)
}

func (s *accessServiceImpl) canDownload(ctx context.Context, book *model.Book, caller *model.Identity) (bool, error) {
	if !book.HasDigitalFile() {
		return false, nil
	}
	if book.FreelyDownloadable() {
		metric.AccessChecksTotal.WithLabelValues("free").Inc()
		return true, nil
	}
	if caller != nil {
		if caller.Role.CanDownloadAnyBook() {
			metric.AccessChecksTotal.WithLabelValues("staff").Inc()
			return true, nil
		}
		if caller.Owns(book) {
			metric.AccessChecksTotal.WithLabelValues("author").Inc()
			return true, nil
		}
	}

	userID := ""
	if caller != nil {
		userID = caller.UserID
	}
	return s.CheckDownloadAccess(ctx, book.ID, userID, book.Price)
}

func (s *accessServiceImpl) RevealDownload(ctx context.Context, bookID string, caller *model.Identity) (string, error) {
	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return "", err
	}
	if !book.HasDigitalFile() {
		return "", apperr.NotFound("digital file for book", bookID)
	}

	allowed, err := s.canDownload(ctx, book, caller)
	if err != nil {
		return "", err
	}
	if !allowed {
		if caller == nil {
			return "", apperr.ErrUnauthenticated
		}
		return "", apperr.ErrForbidden
	}

	if err := s.statsRepo.IncrementDownloads(ctx, book.ID); err != nil {
		s.log.WarnContext(ctx, "count download", slog.String("book_id", book.ID), logger.Err(err))
	}
	return book.DigitalFileURL, nil
}
