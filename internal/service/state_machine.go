package service

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/event"
	"bookstore-payments/internal/logger"
	"bookstore-payments/internal/metric"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/repository"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

type transitionRequest struct {
	NotificationID string
	To             model.NotificationStatus
	ActorID        string
	Notes          string
}

type transitionResult struct {
	Notification *model.PaymentNotification
	From         model.NotificationStatus
}

// stateMachine owns every write to a notification's status. All methods
// run inside the caller's transaction.
type stateMachine struct {
	notificationRepo repository.NotificationRepository
	orderRepo        repository.OrderRepository
	proofRepo        repository.ProofRepository
	statsRepo        repository.StatsRepository
	publisher        event.Publisher
	log              *slog.Logger
	now              func() time.Time
}

func (m *stateMachine) transition(ctx context.Context, tx *gorm.DB, req transitionRequest) (*transitionResult, error) {
	notification, err := m.notificationRepo.FindByID(ctx, tx, req.NotificationID)
	if err != nil {
		return nil, err
	}

	from := notification.Status
	if !from.CanTransitionTo(req.To) {
		metric.NotificationTransitionsTotal.WithLabelValues(string(from), string(req.To), "rejected").Inc()
		return nil, transitionError(from, req.To)
	}

	if req.To == model.NotificationStatusProofUploaded {
		if _, err := m.proofRepo.Latest(ctx, tx, notification.ID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.Validation("a payment proof is required before %s", req.To)
			}
			return nil, err
		}
	}

	ok, err := m.notificationRepo.TransitionStatus(ctx, tx, notification.ID, from, req.To)
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost the race; report what the winner left behind
		current, err := m.notificationRepo.FindByID(ctx, tx, notification.ID)
		if err != nil {
			return nil, err
		}
		metric.NotificationTransitionsTotal.WithLabelValues(string(current.Status), string(req.To), "rejected").Inc()
		// a snapshot read can still show the old status; only a cancellation
		// beats a concurrent proof
		if req.To == model.NotificationStatusProofUploaded && current.Status != model.NotificationStatusCancelled {
			return nil, fmt.Errorf("%w: notification changed to %s", apperr.ErrProofAlreadySubmitted, current.Status)
		}
		return nil, transitionError(current.Status, req.To)
	}

	if err := m.applyEffects(ctx, tx, notification, req); err != nil {
		return nil, err
	}

	updated, err := m.notificationRepo.FindByID(ctx, tx, notification.ID)
	if err != nil {
		return nil, err
	}

	return &transitionResult{Notification: updated, From: from}, nil
}

func (m *stateMachine) applyEffects(ctx context.Context, tx *gorm.DB, notification *model.PaymentNotification, req transitionRequest) error {
	switch req.To {
	case model.NotificationStatusConfirmed:
		proof, err := m.proofRepo.Latest(ctx, tx, notification.ID)
		if err != nil {
			return err
		}
		if err := m.proofRepo.MarkConfirmed(ctx, tx, proof.ID, req.ActorID, m.now(), req.Notes); err != nil {
			return err
		}
		for _, item := range notification.Items {
			if err := m.statsRepo.IncrementSales(ctx, tx, item.BookID, int64(item.Quantity)); err != nil {
				return err
			}
		}

	case model.NotificationStatusRejected:
		// the proof stays for audit
		if req.Notes != "" {
			proof, err := m.proofRepo.Latest(ctx, tx, notification.ID)
			if err != nil {
				return err
			}
			if err := m.proofRepo.SetNotes(ctx, tx, proof.ID, req.Notes); err != nil {
				return err
			}
		}
	}

	orderStatus := req.To.OrderStatus()
	if orderStatus == model.OrderStatusPending {
		return nil
	}
	return m.orderRepo.UpdateStatus(ctx, tx, notification.OrderID, orderStatus)
}

// announce runs after commit. Event delivery is best effort.
func (m *stateMachine) announce(ctx context.Context, result *transitionResult) {
	n := result.Notification
	metric.NotificationTransitionsTotal.WithLabelValues(string(result.From), string(n.Status), "ok").Inc()

	m.log.InfoContext(ctx, "payment notification transitioned",
		slog.String("notification_id", n.ID),
		slog.String("order_id", n.OrderID),
		slog.String("from", string(result.From)),
		slog.String("to", string(n.Status)),
		logger.Traced(ctx),
	)

	routingKey, ok := routingKeys[n.Status]
	if !ok {
		return
	}
	payload := map[string]any{
		"notificationId": n.ID,
		"orderId":        n.OrderID,
		"readerId":       n.ReaderID,
		"readerEmail":    n.ReaderEmail,
		"status":         n.Status,
		"total":          n.Total,
	}
	if err := m.publisher.Publish(ctx, routingKey, payload); err != nil {
		m.log.WarnContext(ctx, "publish payment event", slog.String("routing_key", routingKey), logger.Err(err))
	}
}

var routingKeys = map[model.NotificationStatus]string{
	model.NotificationStatusProofUploaded: event.PaymentProofUploaded,
	model.NotificationStatusConfirmed:     event.PaymentConfirmed,
	model.NotificationStatusRejected:      event.PaymentRejected,
	model.NotificationStatusCancelled:     event.PaymentCancelled,
}

func transitionError(from, to model.NotificationStatus) error {
	proofSeen := from == model.NotificationStatusProofUploaded ||
		from == model.NotificationStatusConfirmed ||
		from == model.NotificationStatusRejected
	if to == model.NotificationStatusProofUploaded && proofSeen {
		return fmt.Errorf("%w: notification is %s", apperr.ErrProofAlreadySubmitted, from)
	}
	return apperr.Transition(string(from), string(to))
}
