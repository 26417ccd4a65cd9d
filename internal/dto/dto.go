package dto

import (
	"bookstore-payments/internal/model"
	"time"
)

type CartItem struct {
	BookID   string `json:"bookId" validate:"required,max=64"`
	Title    string `json:"title"`
	Quantity int32  `json:"quantity" validate:"gt=0"`
	Price    int64  `json:"price" validate:"gte=0"`
	AuthorID string `json:"authorId"`
}

type CreateOrderRequest struct {
	IdempotencyKey string     `json:"idempotencyKey" validate:"omitempty,max=128"`
	CustomerName   string     `json:"customerName" validate:"max=128"`
	CustomerEmail  string     `json:"customerEmail" validate:"omitempty,email"`
	Items          []CartItem `json:"items" validate:"required,min=1,dive"`
	Total          int64      `json:"total" validate:"gte=0"`
	Status         string     `json:"status"`
	Date           *time.Time `json:"date"`
}

type CreateOrderResponse struct {
	Order        *model.Order               `json:"order"`
	Notification *model.PaymentNotification `json:"notification,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=2000"`
}

type StaffActionRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type SubmitProofResponse struct {
	Proof        *model.PaymentProof        `json:"proof"`
	Notification *model.PaymentNotification `json:"notification"`
}

type AddReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" validate:"max=5000"`
}

type AddReviewResponse struct {
	Review *model.Review    `json:"review"`
	Stats  *model.BookStats `json:"stats"`
}

type BookResponse struct {
	*model.Book
	HasDigitalFile bool `json:"hasDigitalFile"`
}

type AccessResponse struct {
	BookID  string `json:"bookId"`
	Allowed bool   `json:"allowed"`
}

type DownloadResponse struct {
	BookID string `json:"bookId"`
	URL    string `json:"url"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}
