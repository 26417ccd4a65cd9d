package mocks

import (
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/service"
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*service.CreateOrderResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreateOrderResult), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, caller *model.Identity, orderID string) (*model.Order, error) {
	args := m.Called(ctx, caller, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, caller *model.Identity) ([]*model.Order, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Order), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) UpdateNotificationStatus(ctx context.Context, notificationID string, newStatus model.NotificationStatus, change service.StatusChange) (*model.PaymentNotification, error) {
	args := m.Called(ctx, notificationID, newStatus, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentNotification), args.Error(1)
}

func (m *MockPaymentService) GetNotification(ctx context.Context, caller *model.Identity, notificationID string) (*model.PaymentNotification, error) {
	args := m.Called(ctx, caller, notificationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentNotification), args.Error(1)
}

func (m *MockPaymentService) ListNotifications(ctx context.Context, caller *model.Identity, status model.NotificationStatus) ([]*model.PaymentNotification, error) {
	args := m.Called(ctx, caller, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PaymentNotification), args.Error(1)
}

type MockProofService struct {
	mock.Mock
}

func (m *MockProofService) SubmitProof(ctx context.Context, notificationID string, reader *model.Identity, file service.ProofFile) (*model.PaymentProof, *model.PaymentNotification, error) {
	args := m.Called(ctx, notificationID, reader, file)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.PaymentProof), args.Get(1).(*model.PaymentNotification), args.Error(2)
}

type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) CheckDownloadAccess(ctx context.Context, bookID, userID string, bookPrice int64) (bool, error) {
	args := m.Called(ctx, bookID, userID, bookPrice)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) CanDownload(ctx context.Context, bookID string, caller *model.Identity) (bool, error) {
	args := m.Called(ctx, bookID, caller)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccessService) RevealDownload(ctx context.Context, bookID string, caller *model.Identity) (string, error) {
	args := m.Called(ctx, bookID, caller)
	return args.String(0), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListBooks(ctx context.Context) ([]*model.Book, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Book), args.Error(1)
}

func (m *MockCatalogService) GetBook(ctx context.Context, bookID string) (*model.Book, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Book), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) AddBookReview(ctx context.Context, input service.ReviewInput) (*model.Review, *model.BookStats, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Review), args.Get(1).(*model.BookStats), args.Error(2)
}

func (m *MockStatsService) ListReviews(ctx context.Context, bookID string) ([]*model.Review, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Review), args.Error(1)
}

func (m *MockStatsService) IncrementBookView(ctx context.Context, bookID string) error {
	args := m.Called(ctx, bookID)
	return args.Error(0)
}

func (m *MockStatsService) GetStats(ctx context.Context, bookID string) (*model.BookStats, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookStats), args.Error(1)
}

func (m *MockStatsService) RecomputeBookStats(ctx context.Context, bookID string) (*model.BookStats, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookStats), args.Error(1)
}

func (m *MockStatsService) RecomputeAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStatsService) RunRecompute(ctx context.Context, interval time.Duration) {
	m.Called(ctx, interval)
}
