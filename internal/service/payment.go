package service

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/event"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/repository"
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type StatusChange struct {
	Actor *model.Identity
	Notes string
}

type PaymentService interface {
	UpdateNotificationStatus(ctx context.Context, notificationID string, newStatus model.NotificationStatus, change StatusChange) (*model.PaymentNotification, error)
	GetNotification(ctx context.Context, caller *model.Identity, notificationID string) (*model.PaymentNotification, error)
	ListNotifications(ctx context.Context, caller *model.Identity, status model.NotificationStatus) ([]*model.PaymentNotification, error)
}

type paymentServiceImpl struct {
	db               *gorm.DB
	notificationRepo repository.NotificationRepository
	machine          *stateMachine
}

func NewPaymentService(
	db *gorm.DB,
	notificationRepo repository.NotificationRepository,
	orderRepo repository.OrderRepository,
	proofRepo repository.ProofRepository,
	statsRepo repository.StatsRepository,
	publisher event.Publisher,
	log *slog.Logger,
) PaymentService {
	return &paymentServiceImpl{
		db:               db,
		notificationRepo: notificationRepo,
		machine:          newStateMachine(notificationRepo, orderRepo, proofRepo, statsRepo, publisher, log),
	}
}

func newStateMachine(
	notificationRepo repository.NotificationRepository,
	orderRepo repository.OrderRepository,
	proofRepo repository.ProofRepository,
	statsRepo repository.StatsRepository,
	publisher event.Publisher,
	log *slog.Logger,
) *stateMachine {
	return &stateMachine{
		notificationRepo: notificationRepo,
		orderRepo:        orderRepo,
		proofRepo:        proofRepo,
		statsRepo:        statsRepo,
		publisher:        publisher,
		log:              log,
		now:              time.Now,
	}
}

// UpdateNotificationStatus validates the stored status against the
// transition table before writing. Staff confirm or reject; the owning reader
// or staff may cancel. The proof_uploaded edge only opens through proof
// submission.
func (s *paymentServiceImpl) UpdateNotificationStatus(ctx context.Context, notificationID string, newStatus model.NotificationStatus, change StatusChange) (*model.PaymentNotification, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "PaymentService.UpdateNotificationStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("notification_id", notificationID),
		attribute.String("status", string(newStatus)),
	)

	if !newStatus.Valid() {
		return nil, apperr.Validation("unknown notification status %q", newStatus)
	}
	if change.Actor == nil {
		return nil, apperr.ErrUnauthenticated
	}

	if err := s.authorize(ctx, notificationID, newStatus, change.Actor); err != nil {
		return nil, err
	}

	var result *transitionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.machine.transition(ctx, tx, transitionRequest{
			NotificationID: notificationID,
			To:             newStatus,
			ActorID:        change.Actor.UserID,
			Notes:          change.Notes,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Upstream("update notification status", err)
	}

	s.machine.announce(ctx, result)
	return result.Notification, nil
}

func (s *paymentServiceImpl) authorize(ctx context.Context, notificationID string, newStatus model.NotificationStatus, actor *model.Identity) error {
	switch newStatus {
	case model.NotificationStatusConfirmed, model.NotificationStatusRejected:
		if !actor.Role.CanReviewPayments() {
			return apperr.ErrForbidden
		}
	case model.NotificationStatusCancelled:
		if actor.Role.CanReviewPayments() {
			return nil
		}
		notification, err := s.notificationRepo.FindByID(ctx, nil, notificationID)
		if err != nil {
			return err
		}
		if notification.ReaderID != actor.UserID {
			return apperr.ErrForbidden
		}
	}
	return nil
}

func (s *paymentServiceImpl) GetNotification(ctx context.Context, caller *model.Identity, notificationID string) (*model.PaymentNotification, error) {
	notification, err := s.notificationRepo.FindByID(ctx, nil, notificationID)
	if err != nil {
		return nil, err
	}
	if !caller.Role.CanReviewPayments() && notification.ReaderID != caller.UserID {
		// do not leak existence to other readers
		return nil, apperr.NotFound("payment notification", notificationID)
	}
	return notification, nil
}

func (s *paymentServiceImpl) ListNotifications(ctx context.Context, caller *model.Identity, status model.NotificationStatus) ([]*model.PaymentNotification, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown notification status %q", status)
	}

	filter := repository.NotificationFilter{Status: status}
	if !caller.Role.CanReviewPayments() {
		filter.ReaderID = caller.UserID
	}
	return s.notificationRepo.List(ctx, filter)
}
