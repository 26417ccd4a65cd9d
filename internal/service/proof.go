package service

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/event"
	"bookstore-payments/internal/logger"
	"bookstore-payments/internal/metric"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/repository"
	"bookstore-payments/internal/storage"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// sniffLen is how much of an upload is read to detect its type.
const sniffLen = 3072

var proofTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "application/pdf"}

type ProofFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

type ProofService interface {
	SubmitProof(ctx context.Context, notificationID string, reader *model.Identity, file ProofFile) (*model.PaymentProof, *model.PaymentNotification, error)
}

type proofServiceImpl struct {
	db               *gorm.DB
	notificationRepo repository.NotificationRepository
	proofRepo        repository.ProofRepository
	storage          storage.FileStorage
	machine          *stateMachine
	maxBytes         int64
	log              *slog.Logger
}

func NewProofService(
	db *gorm.DB,
	notificationRepo repository.NotificationRepository,
	orderRepo repository.OrderRepository,
	proofRepo repository.ProofRepository,
	statsRepo repository.StatsRepository,
	fileStorage storage.FileStorage,
	publisher event.Publisher,
	maxBytes int64,
	log *slog.Logger,
) ProofService {
	return &proofServiceImpl{
		db:               db,
		notificationRepo: notificationRepo,
		proofRepo:        proofRepo,
		storage:          fileStorage,
		machine:          newStateMachine(notificationRepo, orderRepo, proofRepo, statsRepo, publisher, log),
		maxBytes:         maxBytes,
		log:              log,
	}
}

// SubmitProof stores the file, then records the proof and moves the
// notification to proof_uploaded in one transaction. When the transaction
// fails the stored file is removed again.
func (s *proofServiceImpl) SubmitProof(ctx context.Context, notificationID string, reader *model.Identity, file ProofFile) (*model.PaymentProof, *model.PaymentNotification, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "ProofService.SubmitProof")
	defer span.End()
	span.SetAttributes(attribute.String("notification_id", notificationID))

	if reader == nil {
		return nil, nil, apperr.ErrUnauthenticated
	}

	notification, err := s.notificationRepo.FindByID(ctx, nil, notificationID)
	if err != nil {
		return nil, nil, err
	}
	if notification.ReaderID != reader.UserID {
		return nil, nil, apperr.ErrForbidden
	}
	if notification.Status != model.NotificationStatusPending {
		metric.ProofUploadsTotal.WithLabelValues("wrong_state").Inc()
		return nil, nil, transitionError(notification.Status, model.NotificationStatusProofUploaded)
	}

	content, mtype, err := s.checkFile(file)
	if err != nil {
		metric.ProofUploadsTotal.WithLabelValues("invalid").Inc()
		return nil, nil, err
	}

	// the stored name follows the sniffed type; the client's name is display only
	url, err := s.storage.Upload(ctx, "proofs/"+notification.ID, "proof"+mtype.Extension(), content)
	if err != nil {
		metric.ProofUploadsTotal.WithLabelValues("storage_error").Inc()
		return nil, nil, apperr.Upstream("upload proof", err)
	}

	proof := &model.PaymentProof{
		ID:             uuid.NewString(),
		NotificationID: notification.ID,
		ReaderID:       reader.UserID,
		FileURL:        url,
		FileName:       file.Name,
		UploadedAt:     s.machine.now(),
	}

	var result *transitionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.proofRepo.Create(ctx, tx, proof); err != nil {
			return err
		}
		result, err = s.machine.transition(ctx, tx, transitionRequest{
			NotificationID: notification.ID,
			To:             model.NotificationStatusProofUploaded,
			ActorID:        reader.UserID,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		s.discard(ctx, url)
		if errors.Is(err, apperr.ErrInvalidStateTransition) {
			metric.ProofUploadsTotal.WithLabelValues("wrong_state").Inc()
		} else {
			metric.ProofUploadsTotal.WithLabelValues("error").Inc()
		}
		return nil, nil, apperr.Upstream("record proof", err)
	}

	metric.ProofUploadsTotal.WithLabelValues("ok").Inc()
	s.machine.announce(ctx, result)
	return proof, result.Notification, nil
}

func (s *proofServiceImpl) checkFile(file ProofFile) (io.Reader, *mimetype.MIME, error) {
	if file.Content == nil || file.Size <= 0 {
		return nil, nil, apperr.Validation("proof file is empty")
	}
	if s.maxBytes > 0 && file.Size > s.maxBytes {
		return nil, nil, apperr.Validation("proof file exceeds %d bytes", s.maxBytes)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, apperr.Validation("read proof file: %v", err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), proofTypes...) {
		return nil, nil, apperr.Validation("proof must be an image or PDF, got %s", mtype.String())
	}

	return io.MultiReader(bytes.NewReader(head), file.Content), mtype, nil
}

func (s *proofServiceImpl) discard(ctx context.Context, url string) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), url); err != nil {
		s.log.ErrorContext(ctx, "remove orphaned proof file",
			slog.String("url", url), logger.Err(err), logger.Traced(ctx))
		return
	}
	s.log.InfoContext(ctx, "removed orphaned proof file", slog.String("url", url))
}
