package service

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/client"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/testutil"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	reader := testutil.Reader("reader-1")

	tests := []struct {
		name    string
		input   CreateOrderInput
		wantErr error
	}{
		{
			name:    "anonymous customer",
			input:   CreateOrderInput{Cart: cartOf("B1", 5000, 1), Total: 5000},
			wantErr: apperr.ErrUnauthenticated,
		},
		{
			name:    "empty cart",
			input:   CreateOrderInput{Customer: *reader, Total: 0},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "total does not match items",
			input:   CreateOrderInput{Customer: *reader, Cart: cartOf("B1", 5000, 2), Total: 9000},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "zero quantity",
			input:   CreateOrderInput{Customer: *reader, Cart: cartOf("B1", 5000, 0), Total: 0},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "negative price",
			input:   CreateOrderInput{Customer: *reader, Cart: cartOf("B1", -5, 1), Total: -5},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "paid order created as validated",
			input:   CreateOrderInput{Customer: *reader, Cart: cartOf("B1", 5000, 1), Total: 5000, Status: model.OrderStatusValidated},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "price differs from catalog",
			input:   CreateOrderInput{Customer: *reader, Cart: cartOf("B1", 4000, 1), Total: 4000},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "unknown book",
			input:   CreateOrderInput{Customer: *reader, Cart: cartOf("B404", 100, 1), Total: 100},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "not enough stock",
			input:   CreateOrderInput{Customer: *reader, Cart: cartOf("P1", 7500, 3), Total: 22500},
			wantErr: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testutil.DigitalBook("B1", 5000), testutil.PhysicalBook("P1", 7500, 2))

			result, err := f.orderService.CreateOrder(context.Background(), tt.input)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)

			var count int64
			require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
			assert.Zero(t, count)
			require.NoError(t, f.db.Model(&model.PaymentNotification{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestOrderService_CreateOrder_PaidOrderOpensNotification(t *testing.T) {
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	reader := testutil.Reader("reader-1")

	result := f.checkout(t, reader, "B1", 5000, 2)

	require.NotNil(t, result.Notification)
	assert.False(t, result.Replayed)
	assert.Equal(t, model.OrderStatusPending, result.Order.Status)
	assert.Regexp(t, `^ORD-[A-Z2-9]{8}$`, result.Order.Reference)
	assert.Equal(t, int64(10000), result.Notification.Total)
	assert.Equal(t, model.NotificationStatusPending, result.Notification.Status)
	assert.Equal(t, reader.UserID, result.Notification.ReaderID)
	assert.Equal(t, result.Order.ID, result.Notification.OrderID)
	require.NotNil(t, result.Order.NotificationID)
	assert.Equal(t, result.Notification.ID, *result.Order.NotificationID)

	stored, err := f.notifs.FindByID(context.Background(), nil, result.Notification.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, storeBankRef, stored.Items[0].BankReference)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, "order.created", mock.Anything)
}

func TestOrderService_CreateOrder_UsesAuthorBankReference(t *testing.T) {
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	require.NoError(t, f.payouts.Upsert(context.Background(), &model.PayoutAccount{
		AuthorID:      "author-B1",
		BankReference: "AUTHOR-IBAN-1",
	}))

	result := f.checkout(t, testutil.Reader("reader-1"), "B1", 5000, 1)

	require.Len(t, result.Notification.Items, 1)
	assert.Equal(t, "AUTHOR-IBAN-1", result.Notification.Items[0].BankReference)
}

func TestOrderService_CreateOrder_FreeOrderIsValidatedImmediately(t *testing.T) {
	f := newFixture(t, testutil.DigitalBook("B2", 0))
	reader := testutil.Reader("reader-1")

	result := f.checkout(t, reader, "B2", 0, 1)

	assert.Nil(t, result.Notification)
	assert.Nil(t, result.Order.NotificationID)
	assert.Equal(t, model.OrderStatusValidated, result.Order.Status)

	var count int64
	require.NoError(t, f.db.Model(&model.PaymentNotification{}).Count(&count).Error)
	assert.Zero(t, count)

	stats, err := f.stats.Get(context.Background(), "B2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CopiesSold)

	ok, err := f.accessService.CheckDownloadAccess(context.Background(), "B2", reader.UserID, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOrderService_CreateOrder_IdempotentReplay(t *testing.T) {
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	reader := testutil.Reader("reader-1")
	input := CreateOrderInput{
		IdempotencyKey: "key-1",
		Customer:       *reader,
		Cart:           cartOf("B1", 5000, 1),
		Total:          5000,
	}

	first, err := f.orderService.CreateOrder(context.Background(), input)
	require.NoError(t, err)
	second, err := f.orderService.CreateOrder(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	require.NotNil(t, second.Notification)
	assert.Equal(t, first.Notification.ID, second.Notification.ID)

	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOrderService_CreateOrder_KeyOwnedByAnotherCustomer(t *testing.T) {
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	input := CreateOrderInput{
		IdempotencyKey: "key-1",
		Customer:       *testutil.Reader("reader-1"),
		Cart:           cartOf("B1", 5000, 1),
		Total:          5000,
	}
	_, err := f.orderService.CreateOrder(context.Background(), input)
	require.NoError(t, err)

	input.Customer = *testutil.Reader("reader-2")
	_, err = f.orderService.CreateOrder(context.Background(), input)

	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestOrderService_CreateOrder_Locking(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*mockLocker)
		wantErr   error
		wantOrder bool
	}{
		{
			name: "lock held by a concurrent checkout",
			setup: func(l *mockLocker) {
				l.On("Acquire", mock.Anything, "checkout:key-1", mock.Anything).Return("", false, nil)
			},
			wantErr: apperr.ErrConflict,
		},
		{
			name: "lock backend down",
			setup: func(l *mockLocker) {
				l.On("Acquire", mock.Anything, "checkout:key-1", mock.Anything).Return("", false, errors.New("connection refused"))
			},
			wantErr: apperr.ErrUpstreamUnavailable,
		},
		{
			name: "lock acquired and released",
			setup: func(l *mockLocker) {
				l.On("Acquire", mock.Anything, "checkout:key-1", mock.Anything).Return("tok-1", true, nil)
				l.On("Release", mock.Anything, "checkout:key-1", "tok-1").Return(nil).Once()
			},
			wantOrder: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locker := new(mockLocker)
			tt.setup(locker)
			f := newFixtureWithLocker(t, locker, testutil.DigitalBook("B1", 5000))

			result, err := f.orderService.CreateOrder(context.Background(), CreateOrderInput{
				IdempotencyKey: "key-1",
				Customer:       *testutil.Reader("reader-1"),
				Cart:           cartOf("B1", 5000, 1),
				Total:          5000,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantOrder, result.Order != nil)
			}
			locker.AssertExpectations(t)
		})
	}
}

func TestOrderService_CreateOrder_PublishFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, "order.created", mock.Anything).Return(errors.New("broker down"))
	f.orderService = NewOrderService(f.db, f.books, f.orders, f.notifs, f.stats, f.payouts,
		client.NopLocker{}, publisher, storeBankRef, 0, testutil.Logger())

	result := f.checkout(t, testutil.Reader("reader-1"), "B1", 5000, 1)

	assert.NotNil(t, result.Notification)
	publisher.AssertExpectations(t)
}

func TestOrderService_GetOrder(t *testing.T) {
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	owner := testutil.Reader("reader-1")
	result := f.checkout(t, owner, "B1", 5000, 1)

	got, err := f.orderService.GetOrder(context.Background(), owner, result.Order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	_, err = f.orderService.GetOrder(context.Background(), testutil.Reader("reader-2"), result.Order.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.orderService.GetOrder(context.Background(), testutil.Admin("staff-1"), result.Order.ID)
	assert.NoError(t, err)

	list, err := f.orderService.ListOrders(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNewReference(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		ref := newReference()
		assert.Regexp(t, `^ORD-[A-Z2-9]{8}$`, ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 190)
}

func cartOf(bookID string, price int64, qty int32) model.Cart {
	return model.Cart{Items: []model.CartItem{{BookID: bookID, Quantity: qty, UnitPrice: price}}}
}
