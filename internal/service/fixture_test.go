package service

import (
	"bookstore-payments/internal/client"
	"bookstore-payments/internal/event"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/repository"
	"bookstore-payments/internal/testutil"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const storeBankRef = "STORE-0001"

type fixture struct {
	db        *gorm.DB
	books     repository.BookRepository
	orders    repository.OrderRepository
	notifs    repository.NotificationRepository
	proofs    repository.ProofRepository
	stats     repository.StatsRepository
	reviews   repository.ReviewRepository
	payouts   repository.PayoutRepository
	storage   *testutil.MemStorage
	publisher *mockPublisher

	orderService   OrderService
	paymentService PaymentService
	proofService   ProofService
	accessService  AccessService
	statsService   StatsService
}

func newFixture(t *testing.T, books ...*model.Book) *fixture {
	t.Helper()
	return newFixtureWithLocker(t, client.NopLocker{}, books...)
}

func newFixtureWithLocker(t *testing.T, locker client.Locker, books ...*model.Book) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	testutil.SeedBooks(t, db, books...)

	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	f := &fixture{
		db:        db,
		books:     repository.NewBookRepository(db),
		orders:    repository.NewOrderRepository(db),
		notifs:    repository.NewNotificationRepository(db),
		proofs:    repository.NewProofRepository(db),
		stats:     repository.NewStatsRepository(db),
		reviews:   repository.NewReviewRepository(db),
		payouts:   repository.NewPayoutRepository(db),
		storage:   testutil.NewMemStorage(),
		publisher: publisher,
	}
	log := testutil.Logger()

	f.orderService = NewOrderService(db, f.books, f.orders, f.notifs, f.stats, f.payouts,
		locker, publisher, storeBankRef, time.Minute, log)
	f.paymentService = NewPaymentService(db, f.notifs, f.orders, f.proofs, f.stats, publisher, log)
	f.proofService = NewProofService(db, f.notifs, f.orders, f.proofs, f.stats, f.storage, publisher, 1<<20, log)
	f.accessService = NewAccessService(f.books, f.orders, f.stats, log)
	f.statsService = NewStatsService(db, f.books, f.reviews, f.stats, log)
	return f
}

var (
	_ event.Publisher = (*mockPublisher)(nil)
	_ client.Locker   = (*mockLocker)(nil)
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockLocker) Release(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

// checkout places an order for a single book and fails the test on error.
func (f *fixture) checkout(t *testing.T, reader *model.Identity, bookID string, price int64, qty int32) *CreateOrderResult {
	t.Helper()
	result, err := f.orderService.CreateOrder(context.Background(), CreateOrderInput{
		Customer: *reader,
		Cart: model.Cart{Items: []model.CartItem{
			{BookID: bookID, Quantity: qty, UnitPrice: price},
		}},
		Total: price * int64(qty),
	})
	require.NoError(t, err)
	return result
}

func (f *fixture) uploadProof(t *testing.T, reader *model.Identity, notificationID string) *model.PaymentNotification {
	t.Helper()
	_, notification, err := f.proofService.SubmitProof(context.Background(), notificationID, reader, pngProof())
	require.NoError(t, err)
	return notification
}

func pngProof() ProofFile {
	return ProofFile{Name: "receipt.png", Size: int64(len(testutil.PNG)), Content: bytes.NewReader(testutil.PNG)}
}
