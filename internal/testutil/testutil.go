// Package testutil wires an in-memory database and fakes for package tests.
package testutil

import (
	"bookstore-payments/internal/client"
	"bookstore-payments/internal/model"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PNG is the smallest header mimetype recognises as image/png.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

var PDF = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, client.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func SeedBooks(t *testing.T, db *gorm.DB, books ...*model.Book) {
	t.Helper()
	for _, b := range books {
		require.NoError(t, db.Create(b).Error)
	}
}

func DigitalBook(id string, price int64) *model.Book {
	return &model.Book{
		ID:             id,
		Title:          "Book " + id,
		AuthorID:       "author-" + id,
		Price:          price,
		Format:         model.BookFormatDigital,
		DigitalFileURL: "https://cdn.test/" + id + ".pdf",
	}
}

func PhysicalBook(id string, price int64, stock int32) *model.Book {
	return &model.Book{
		ID:       id,
		Title:    "Book " + id,
		AuthorID: "author-" + id,
		Price:    price,
		Format:   model.BookFormatPhysical,
		Stock:    stock,
	}
}

func Reader(id string) *model.Identity {
	return &model.Identity{UserID: id, Email: id + "@readers.test", Name: "Reader " + id, Role: model.RoleReader}
}

func Admin(id string) *model.Identity {
	return &model.Identity{UserID: id, Email: id + "@staff.test", Name: "Staff " + id, Role: model.RoleAdmin}
}

// MemStorage keeps uploads in memory. OnUpload runs after the bytes are
// stored, before the URL is returned.
type MemStorage struct {
	mu       sync.Mutex
	Files    map[string][]byte
	Deleted  []string
	Fail     error
	OnUpload func()
}

func NewMemStorage() *MemStorage {
	return &MemStorage{Files: map[string][]byte{}}
}

func (s *MemStorage) Upload(ctx context.Context, folder, fileName string, r io.Reader) (string, error) {
	if s.Fail != nil {
		return "", s.Fail
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}

	url := "mem://" + folder + "/" + uuid.NewString() + "-" + fileName
	s.mu.Lock()
	s.Files[url] = buf.Bytes()
	s.mu.Unlock()

	if s.OnUpload != nil {
		s.OnUpload()
	}
	return url, nil
}

func (s *MemStorage) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, "mem://") {
		return errors.New("foreign url")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Files, url)
	s.Deleted = append(s.Deleted, url)
	return nil
}

func (s *MemStorage) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Files)
}
