package service

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/client"
	"bookstore-payments/internal/event"
	"bookstore-payments/internal/logger"
	"bookstore-payments/internal/metric"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/repository"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type CreateOrderInput struct {
	// IdempotencyKey is generated by the client once per checkout attempt.
	IdempotencyKey string
	Customer       model.Identity
	Cart           model.Cart
	Total          int64
	Status         model.OrderStatus // optional, must agree with the total
	Date           time.Time         // optional, defaults to now
}

type CreateOrderResult struct {
	Order        *model.Order
	Notification *model.PaymentNotification
	// Replayed is set when the idempotency key matched an existing order.
	Replayed bool
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	GetOrder(ctx context.Context, caller *model.Identity, orderID string) (*model.Order, error)
	ListOrders(ctx context.Context, caller *model.Identity) ([]*model.Order, error)
}

type orderServiceImpl struct {
	db                 *gorm.DB
	bookRepo           repository.BookRepository
	orderRepo          repository.OrderRepository
	notificationRepo   repository.NotificationRepository
	statsRepo          repository.StatsRepository
	payoutRepo         repository.PayoutRepository
	locker             client.Locker
	publisher          event.Publisher
	storeBankReference string
	lockTTL            time.Duration
	log                *slog.Logger
}

func NewOrderService(
	db *gorm.DB,
	bookRepo repository.BookRepository,
	orderRepo repository.OrderRepository,
	notificationRepo repository.NotificationRepository,
	statsRepo repository.StatsRepository,
	payoutRepo repository.PayoutRepository,
	locker client.Locker,
	publisher event.Publisher,
	storeBankReference string,
	lockTTL time.Duration,
	log *slog.Logger,
) OrderService {
	return &orderServiceImpl{
		db:                 db,
		bookRepo:           bookRepo,
		orderRepo:          orderRepo,
		notificationRepo:   notificationRepo,
		statsRepo:          statsRepo,
		payoutRepo:         payoutRepo,
		locker:             locker,
		publisher:          publisher,
		storeBankReference: storeBankReference,
		lockTTL:            lockTTL,
		log:                log,
	}
}

// CreateOrder persists the order and, for a non-zero total, its pending
// payment notification in a single transaction. Free orders are validated
// on the spot and need no notification.
func (s *orderServiceImpl) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("customer_id", input.Customer.UserID))

	if err := validateCheckout(input); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		existing, err := s.replay(ctx, input)
		if existing != nil || err != nil {
			return existing, err
		}

		lockKey := "checkout:" + input.IdempotencyKey
		lockToken, acquired, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
		if err != nil {
			return nil, apperr.Upstream("acquire checkout lock", err)
		}
		if !acquired {
			return nil, errors.Join(apperr.ErrConflict, errors.New("checkout with this idempotency key is in progress"))
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, lockToken); err != nil {
				s.log.WarnContext(ctx, "release checkout lock", logger.Err(err))
			}
		}()
	}

	items, err := s.priceItems(ctx, input.Cart)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:            uuid.NewString(),
		Reference:     newReference(),
		CustomerID:    input.Customer.UserID,
		CustomerName:  input.Customer.Name,
		CustomerEmail: input.Customer.Email,
		Items:         items,
		Total:         input.Total,
		Status:        model.OrderStatusPending,
		CreatedAt:     input.Date,
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if input.IdempotencyKey != "" {
		key := input.IdempotencyKey
		order.IdempotencyKey = &key
	}

	var notification *model.PaymentNotification
	if order.Total == 0 {
		order.Status = model.OrderStatusValidated
	} else {
		notification, err = s.buildNotification(ctx, order)
		if err != nil {
			return nil, err
		}
		order.NotificationID = &notification.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return err
		}
		if notification != nil {
			return s.notificationRepo.Create(ctx, tx, notification)
		}
		for _, item := range order.Items {
			if err := s.statsRepo.IncrementSales(ctx, tx, item.BookID, int64(item.Quantity)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrDuplicatedKey) && input.IdempotencyKey != "" {
			// a concurrent request with the same key won the insert
			if existing, replayErr := s.replay(ctx, input); existing != nil {
				return existing, nil
			} else if replayErr != nil {
				return nil, replayErr
			}
		}
		return nil, apperr.Upstream("create order", err)
	}

	kind := "paid"
	if notification == nil {
		kind = "free"
	}
	metric.OrdersCreatedTotal.WithLabelValues(kind).Inc()
	s.log.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("reference", order.Reference),
		slog.Int64("total", order.Total),
		slog.String("kind", kind),
		logger.Traced(ctx),
	)
	s.announce(ctx, order)

	return &CreateOrderResult{Order: order, Notification: notification}, nil
}

func validateCheckout(input CreateOrderInput) error {
	if input.Customer.UserID == "" {
		return apperr.ErrUnauthenticated
	}
	if input.Customer.Email == "" {
		return apperr.Validation("customer email is required")
	}
	if len(input.Cart.Items) == 0 {
		return apperr.Validation("cart is empty")
	}
	for _, item := range input.Cart.Items {
		if item.BookID == "" {
			return apperr.Validation("cart item without book id")
		}
		if item.Quantity <= 0 {
			return apperr.Validation("quantity for book %s must be positive", item.BookID)
		}
		if item.UnitPrice < 0 {
			return apperr.Validation("price for book %s must not be negative", item.BookID)
		}
	}
	if input.Total < 0 {
		return apperr.Validation("total must not be negative")
	}
	if sum := input.Cart.Sum(); sum != input.Total {
		return apperr.Validation("total %d does not match item sum %d", input.Total, sum)
	}

	switch input.Status {
	case "":
	case model.OrderStatusPending:
		if input.Total == 0 {
			return apperr.Validation("a free order is validated on creation")
		}
	case model.OrderStatusValidated:
		if input.Total != 0 {
			return apperr.Validation("a paid order starts as %s", model.OrderStatusPending)
		}
	default:
		return apperr.Validation("order cannot be created with status %q", input.Status)
	}
	return nil
}

// replay returns the order stored under the input's idempotency key, if any.
func (s *orderServiceImpl) replay(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	existing, err := s.orderRepo.FindByIdempotencyKey(ctx, input.IdempotencyKey)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing.CustomerID != input.Customer.UserID {
		return nil, errors.Join(apperr.ErrConflict, errors.New("idempotency key already used"))
	}

	result := &CreateOrderResult{Order: existing, Replayed: true}
	if existing.NotificationID != nil {
		notification, err := s.notificationRepo.FindByID(ctx, nil, *existing.NotificationID)
		if err != nil {
			return nil, err
		}
		result.Notification = notification
	}

	metric.OrdersCreatedTotal.WithLabelValues("replayed").Inc()
	return result, nil
}

// priceItems checks the cart against the catalog. The catalog is the source
// of truth for titles, authors and prices.
func (s *orderServiceImpl) priceItems(ctx context.Context, cart model.Cart) ([]model.OrderItem, error) {
	quantities := cart.Quantities()
	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}

	books, err := s.bookRepo.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]*model.Book, len(books))
	for _, b := range books {
		catalog[b.ID] = b
	}

	for id, qty := range quantities {
		book, ok := catalog[id]
		if !ok {
			return nil, apperr.NotFound("book", id)
		}
		switch book.Format {
		case model.BookFormatPhysical:
			if book.Stock < qty {
				return nil, apperr.Validation("only %d copies of %q in stock", book.Stock, book.Title)
			}
		case model.BookFormatDigital:
			if !book.HasDigitalFile() {
				return nil, apperr.Validation("%q has no digital file yet", book.Title)
			}
		}
	}

	items := make([]model.OrderItem, len(cart.Items))
	for i, item := range cart.Items {
		book := catalog[item.BookID]
		if item.UnitPrice != book.Price {
			return nil, apperr.Validation("price of %q changed to %d", book.Title, book.Price)
		}
		items[i] = model.OrderItem{
			BookID:    book.ID,
			Title:     book.Title,
			Quantity:  item.Quantity,
			UnitPrice: book.Price,
			AuthorID:  book.AuthorID,
		}
	}
	return items, nil
}

func (s *orderServiceImpl) buildNotification(ctx context.Context, order *model.Order) (*model.PaymentNotification, error) {
	authorIDs := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		if item.AuthorID != "" {
			authorIDs = append(authorIDs, item.AuthorID)
		}
	}
	refs, err := s.payoutRepo.BankReferences(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	notification := &model.PaymentNotification{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		ReaderID:    order.CustomerID,
		ReaderName:  order.CustomerName,
		ReaderEmail: order.CustomerEmail,
		Total:       order.Total,
		Status:      model.NotificationStatusPending,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.CreatedAt,
	}
	for _, item := range order.Items {
		ref, ok := refs[item.AuthorID]
		if !ok {
			ref = s.storeBankReference
		}
		notification.Items = append(notification.Items, model.NotificationItem{
			NotificationID: notification.ID,
			BookID:         item.BookID,
			Title:          item.Title,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			AuthorID:       item.AuthorID,
			BankReference:  ref,
		})
	}
	return notification, nil
}

func (s *orderServiceImpl) announce(ctx context.Context, order *model.Order) {
	err := s.publisher.Publish(ctx, event.OrderCreated, map[string]any{
		"orderId":        order.ID,
		"reference":      order.Reference,
		"customerId":     order.CustomerID,
		"customerEmail":  order.CustomerEmail,
		"total":          order.Total,
		"status":         order.Status,
		"notificationId": order.NotificationID,
	})
	if err != nil {
		s.log.WarnContext(ctx, "publish order event", slog.String("order_id", order.ID), logger.Err(err))
	}
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, caller *model.Identity, orderID string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.Role.CanReviewPayments() && order.CustomerID != caller.UserID {
		return nil, apperr.NotFound("order", orderID)
	}
	return order, nil
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, caller *model.Identity) ([]*model.Order, error) {
	return s.orderRepo.ListByCustomer(ctx, caller.UserID)
}

// newReference returns a short human-readable order code such as ORD-7K3Q9ZX2.
func newReference() string {
	id := uuid.New()
	code := make([]byte, 8)
	for i := range code {
		code[i] = referenceAlphabet[int(id[i]^id[15-i])%len(referenceAlphabet)]
	}
	return "ORD-" + string(code)
}
