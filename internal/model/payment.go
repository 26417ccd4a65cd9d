package model

import "time"

type NotificationStatus string

const (
	NotificationStatusPending       NotificationStatus = "pending"
	NotificationStatusProofUploaded NotificationStatus = "proof_uploaded"
	NotificationStatusConfirmed     NotificationStatus = "confirmed"
	NotificationStatusRejected      NotificationStatus = "rejected"
	NotificationStatusCancelled     NotificationStatus = "cancelled"
)

// notificationTransitions is the closed edge set of the payment lifecycle.
// Terminal states have no outgoing edges.
var notificationTransitions = map[NotificationStatus][]NotificationStatus{
	NotificationStatusPending:       {NotificationStatusProofUploaded, NotificationStatusCancelled},
	NotificationStatusProofUploaded: {NotificationStatusConfirmed, NotificationStatusRejected, NotificationStatusCancelled},
}

func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationStatusPending, NotificationStatusProofUploaded,
		NotificationStatusConfirmed, NotificationStatusRejected, NotificationStatusCancelled:
		return true
	}
	return false
}

func (s NotificationStatus) IsTerminal() bool {
	return s == NotificationStatusConfirmed ||
		s == NotificationStatusRejected ||
		s == NotificationStatusCancelled
}

func (s NotificationStatus) CanTransitionTo(to NotificationStatus) bool {
	for _, next := range notificationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderStatus is the order status mirrored from a notification status.
func (s NotificationStatus) OrderStatus() OrderStatus {
	switch s {
	case NotificationStatusConfirmed:
		return OrderStatusValidated
	case NotificationStatusRejected, NotificationStatusCancelled:
		return OrderStatusCancelled
	default:
		return OrderStatusPending
	}
}

func (s NotificationStatus) String() string {
	return string(s)
}

type PaymentNotification struct {
	ID      string `gorm:"primaryKey;size:64;not null" json:"id"`
	OrderID string `gorm:"size:64;uniqueIndex;not null" json:"orderId"` // one active notification per order

	ReaderID    string `gorm:"size:64;index;not null" json:"readerId"`
	ReaderName  string `gorm:"size:128" json:"readerName"`
	ReaderEmail string `gorm:"size:255" json:"readerEmail"`

	Items  []NotificationItem `gorm:"foreignKey:NotificationID" json:"items"`
	Total  int64              `gorm:"not null" json:"totalAmount"`
	Status NotificationStatus `gorm:"size:32;index;not null" json:"status"`

	Proofs []PaymentProof `gorm:"foreignKey:NotificationID" json:"proofs,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NotificationItem struct {
	ID             uint   `gorm:"primaryKey" json:"-"`
	NotificationID string `gorm:"size:64;index;not null" json:"-"`
	BookID         string `gorm:"size:64;not null" json:"bookId"`
	Title          string `gorm:"size:255" json:"title"`
	Quantity       int32  `gorm:"not null" json:"quantity"`
	UnitPrice      int64  `gorm:"not null" json:"price"`
	AuthorID       string `gorm:"size:64" json:"authorId"`
	BankReference  string `gorm:"size:128;not null" json:"bankReference"`
}

type PaymentProof struct {
	ID             string     `gorm:"primaryKey;size:64;not null" json:"id"`
	NotificationID string     `gorm:"size:64;index;not null" json:"notificationId"`
	ReaderID       string     `gorm:"size:64;not null" json:"readerId"`
	FileURL        string     `gorm:"size:512;not null" json:"fileUrl"`
	FileName       string     `gorm:"size:255" json:"fileName"`
	UploadedAt     time.Time  `gorm:"not null" json:"uploadedAt"`
	ConfirmedBy    *string    `gorm:"size:64" json:"confirmedBy,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmedAt,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
}
