package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pendente"
	OrderStatusValidated OrderStatus = "Validado"
	OrderStatusCancelled OrderStatus = "Cancelado"
)

type Order struct {
	ID             string  `gorm:"primaryKey;size:64;not null" json:"id"`
	Reference      string  `gorm:"size:16;uniqueIndex;not null" json:"reference"`
	IdempotencyKey *string `gorm:"size:128;uniqueIndex" json:"-"`

	CustomerID    string `gorm:"size:64;index;not null" json:"customerId"`
	CustomerName  string `gorm:"size:128" json:"customerName"`
	CustomerEmail string `gorm:"size:255" json:"customerEmail"`

	Items          []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Total          int64       `gorm:"not null" json:"total"` // sum of items
	Status         OrderStatus `gorm:"size:16;index;not null" json:"status"`
	NotificationID *string     `gorm:"size:64;index" json:"notificationId,omitempty"`

	CreatedAt time.Time `json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderItem struct {
	ID uint `gorm:"primaryKey" json:"-"`
	// FK → orders.id
	OrderID string `gorm:"size:64;index;not null" json:"-"`
	// FK → books.id
	BookID    string `gorm:"size:64;index;not null" json:"bookId"`
	Title     string `gorm:"size:255" json:"title"`
	Quantity  int32  `gorm:"not null" json:"quantity"`
	UnitPrice int64  `gorm:"not null" json:"price"`
	AuthorID  string `gorm:"size:64" json:"authorId"`
}

func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}
