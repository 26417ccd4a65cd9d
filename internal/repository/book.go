package repository

import (
	"bookstore-payments/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookRepository interface {
	Seed(ctx context.Context) error
	FindByID(ctx context.Context, bookID string) (*model.Book, error)
	FindMany(ctx context.Context, bookIDs []string) ([]*model.Book, error)
	List(ctx context.Context) ([]*model.Book, error)
	ListIDs(ctx context.Context) ([]string, error)
}

type bookRepoImpl struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepoImpl{
		db: db,
	}
}

func (r *bookRepoImpl) Seed(ctx context.Context) error {
	books := []model.Book{
		{ID: "B1", Title: "O Mar Interior", AuthorID: "author-001", Price: 5000, Format: model.BookFormatDigital, DigitalFileURL: "https://cdn.example.com/books/b1.pdf"},
		{ID: "B2", Title: "Cartas do Sul", AuthorID: "author-001", Price: 0, Format: model.BookFormatDigital, DigitalFileURL: "https://cdn.example.com/books/b2.pdf"},
		{ID: "B3", Title: "Cidade de Pedra", AuthorID: "author-002", Price: 7500, Format: model.BookFormatPhysical, Stock: 20},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&books).Error
}

func (r *bookRepoImpl) FindByID(ctx context.Context, bookID string) (*model.Book, error) {
	var book model.Book
	err := r.db.WithContext(ctx).
		Where("id = ?", bookID).
		First(&book).Error

	if err != nil {
		return nil, wrapErr("find book", "book", bookID, err)
	}

	return &book, nil
}

func (r *bookRepoImpl) FindMany(ctx context.Context, bookIDs []string) ([]*model.Book, error) {
	var books []*model.Book
	err := r.db.WithContext(ctx).
		Where("id IN ?", bookIDs).
		Find(&books).
		Error

	if err != nil {
		return nil, wrapErr("find books", "", "", err)
	}

	return books, nil
}

func (r *bookRepoImpl) List(ctx context.Context) ([]*model.Book, error) {
	var books []*model.Book
	err := r.db.WithContext(ctx).
		Order("title").
		Find(&books).
		Error

	if err != nil {
		return nil, wrapErr("list books", "", "", err)
	}

	return books, nil
}

func (r *bookRepoImpl) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Book{}).
		Pluck("id", &ids).
		Error

	if err != nil {
		return nil, wrapErr("list book ids", "", "", err)
	}

	return ids, nil
}
