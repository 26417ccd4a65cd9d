package service

import (
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/repository"
	"context"
)

type CatalogService interface {
	ListBooks(ctx context.Context) ([]*model.Book, error)
	GetBook(ctx context.Context, bookID string) (*model.Book, error)
}

type catalogServiceImpl struct {
	bookRepo repository.BookRepository
}

func NewCatalogService(bookRepo repository.BookRepository) CatalogService {
	return &catalogServiceImpl{
		bookRepo: bookRepo,
	}
}

func (s *catalogServiceImpl) ListBooks(ctx context.Context) ([]*model.Book, error) {
	return s.bookRepo.List(ctx)
}

func (s *catalogServiceImpl) GetBook(ctx context.Context, bookID string) (*model.Book, error) {
	return s.bookRepo.FindByID(ctx, bookID)
}
