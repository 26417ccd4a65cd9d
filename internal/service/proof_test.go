package service

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/model"
	"bookstore-payments/internal/testutil"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProofService_SubmitProof(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	reader := testutil.Reader("reader-1")
	result := f.checkout(t, reader, "B1", 5000, 1)

	proof, notification, err := f.proofService.SubmitProof(ctx, result.Notification.ID, reader, ProofFile{
		Name:    "receipt.pdf",
		Size:    int64(len(testutil.PDF)),
		Content: bytes.NewReader(testutil.PDF),
	})
	require.NoError(t, err)

	assert.Equal(t, model.NotificationStatusProofUploaded, notification.Status)
	assert.Equal(t, reader.UserID, proof.ReaderID)
	assert.Equal(t, "receipt.pdf", proof.FileName)
	assert.Nil(t, proof.ConfirmedBy)
	assert.Equal(t, testutil.PDF, f.storage.Files[proof.FileURL], "stored bytes include the sniffed header")

	order, err := f.orders.FindByID(ctx, nil, result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, order.Status)
}

func TestProofService_SubmitProof_StoredNameFollowsContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	reader := testutil.Reader("reader-1")
	result := f.checkout(t, reader, "B1", 5000, 1)

	content := append(append([]byte{}, testutil.PNG...), []byte("<script>alert(1)</script>")...)
	proof, _, err := f.proofService.SubmitProof(ctx, result.Notification.ID, reader, ProofFile{
		Name:    "receipt.html",
		Size:    int64(len(content)),
		Content: bytes.NewReader(content),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(proof.FileURL, ".png"), proof.FileURL)
	assert.NotContains(t, proof.FileURL, ".html")
	assert.Equal(t, "receipt.html", proof.FileName)
	assert.Equal(t, content, f.storage.Files[proof.FileURL])
}

func TestProofService_SubmitProof_CompetingProofWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	reader := testutil.Reader("reader-1")
	result := f.checkout(t, reader, "B1", 5000, 1)
	id := result.Notification.ID

	f.storage.OnUpload = func() {
		// a second upload from the same reader commits first
		require.NoError(t, f.db.Create(&model.PaymentProof{
			ID:             "competing-proof",
			NotificationID: id,
			ReaderID:       reader.UserID,
			FileURL:        "mem://proofs/" + id + "/competing.png",
			FileName:       "competing.png",
			UploadedAt:     time.Now(),
		}).Error)
		require.NoError(t, f.db.Model(&model.PaymentNotification{}).
			Where("id = ?", id).
			Update("status", model.NotificationStatusProofUploaded).Error)
	}

	_, _, err := f.proofService.SubmitProof(ctx, id, reader, pngProof())

	assert.ErrorIs(t, err, apperr.ErrProofAlreadySubmitted)
	assert.Zero(t, f.storage.Count(), "orphaned file is removed")
	assert.Len(t, f.storage.Deleted, 1)

	proofs, err := f.proofs.ListByNotification(ctx, nil, id)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	assert.Equal(t, "competing-proof", proofs[0].ID)
}

func TestProofService_SubmitProof_Rejections(t *testing.T) {
	reader := testutil.Reader("reader-1")

	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture, notificationID string)
		caller  *model.Identity
		file    ProofFile
		wantErr error
	}{
		{
			name: "second proof while awaiting review",
			prepare: func(t *testing.T, f *fixture, id string) {
				f.uploadProof(t, reader, id)
			},
			caller:  reader,
			file:    pngProof(),
			wantErr: apperr.ErrProofAlreadySubmitted,
		},
		{
			name: "proof after confirmation",
			prepare: func(t *testing.T, f *fixture, id string) {
				f.uploadProof(t, reader, id)
				_, err := f.paymentService.UpdateNotificationStatus(context.Background(), id,
					model.NotificationStatusConfirmed, StatusChange{Actor: testutil.Admin("staff-1")})
				require.NoError(t, err)
			},
			caller:  reader,
			file:    pngProof(),
			wantErr: apperr.ErrProofAlreadySubmitted,
		},
		{
			name: "proof after cancellation",
			prepare: func(t *testing.T, f *fixture, id string) {
				_, err := f.paymentService.UpdateNotificationStatus(context.Background(), id,
					model.NotificationStatusCancelled, StatusChange{Actor: reader})
				require.NoError(t, err)
			},
			caller:  reader,
			file:    pngProof(),
			wantErr: apperr.ErrInvalidStateTransition,
		},
		{
			name:    "someone else's notification",
			caller:  testutil.Reader("reader-2"),
			file:    pngProof(),
			wantErr: apperr.ErrForbidden,
		},
		{
			name:    "anonymous",
			file:    pngProof(),
			wantErr: apperr.ErrUnauthenticated,
		},
		{
			name:    "not an image or pdf",
			caller:  reader,
			file:    ProofFile{Name: "receipt.txt", Size: 11, Content: bytes.NewReader([]byte("hello world"))},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "svg is refused",
			caller:  reader,
			file:    svgProof(),
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "empty file",
			caller:  reader,
			file:    ProofFile{Name: "receipt.png", Content: bytes.NewReader(nil)},
			wantErr: apperr.ErrValidation,
		},
		{
			name:    "file too large",
			caller:  reader,
			file:    ProofFile{Name: "receipt.png", Size: 2 << 20, Content: bytes.NewReader(testutil.PNG)},
			wantErr: apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, testutil.DigitalBook("B1", 5000))
			result := f.checkout(t, reader, "B1", 5000, 1)
			id := result.Notification.ID
			if tt.prepare != nil {
				tt.prepare(t, f, id)
			}
			before, err := f.notifs.FindByID(ctx, nil, id)
			require.NoError(t, err)
			storedBefore := f.storage.Count()

			proof, notification, err := f.proofService.SubmitProof(ctx, id, tt.caller, tt.file)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, proof)
			assert.Nil(t, notification)

			after, err := f.notifs.FindByID(ctx, nil, id)
			require.NoError(t, err)
			assert.Equal(t, before.Status, after.Status)
			assert.Len(t, after.Proofs, len(before.Proofs))
			assert.Equal(t, storedBefore, f.storage.Count())
		})
	}
}

func TestProofService_SubmitProof_StorageFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	reader := testutil.Reader("reader-1")
	result := f.checkout(t, reader, "B1", 5000, 1)
	f.storage.Fail = errors.New("disk full")

	_, _, err := f.proofService.SubmitProof(ctx, result.Notification.ID, reader, pngProof())

	assert.ErrorIs(t, err, apperr.ErrUpstreamUnavailable)
	assert.True(t, apperr.IsRetryable(err))

	after, err := f.notifs.FindByID(ctx, nil, result.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusPending, after.Status)
	assert.Empty(t, after.Proofs)
}

func TestProofService_SubmitProof_LosesRaceToCancellation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testutil.DigitalBook("B1", 5000))
	reader := testutil.Reader("reader-1")
	result := f.checkout(t, reader, "B1", 5000, 1)
	id := result.Notification.ID

	f.storage.OnUpload = func() {
		// the reader cancels from another tab while the file is in flight
		require.NoError(t, f.db.Model(&model.PaymentNotification{}).
			Where("id = ?", id).
			Update("status", model.NotificationStatusCancelled).Error)
	}

	_, _, err := f.proofService.SubmitProof(ctx, id, reader, pngProof())

	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)
	assert.NotErrorIs(t, err, apperr.ErrProofAlreadySubmitted)
	assert.Zero(t, f.storage.Count(), "orphaned file is removed")
	assert.Len(t, f.storage.Deleted, 1)

	proofs, err := f.proofs.ListByNotification(ctx, nil, id)
	require.NoError(t, err)
	assert.Empty(t, proofs)
}

func svgProof() ProofFile {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`)
	return ProofFile{Name: "receipt.svg", Size: int64(len(svg)), Content: bytes.NewReader(svg)}
}
