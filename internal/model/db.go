package model

import "time"

type BookFormat string

const (
	BookFormatPhysical BookFormat = "físico"
	BookFormatDigital  BookFormat = "digital"
)

type Book struct {
	ID       string     `gorm:"primaryKey;size:64;not null" json:"id"`
	Title    string     `gorm:"size:255;not null" json:"title"`
	AuthorID string     `gorm:"size:64;index" json:"authorId"`
	Price    int64      `gorm:"not null" json:"price"` // integer currency units, 0 = free
	Format   BookFormat `gorm:"size:16;not null" json:"format"`
	// never serialized; revealed only through the access gate
	DigitalFileURL string `gorm:"size:512" json:"-"`
	Stock          int32  `gorm:"not null;default:0" json:"stock"` // físico only

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Book) HasDigitalFile() bool {
	return b.Format == BookFormatDigital && b.DigitalFileURL != ""
}

// FreelyDownloadable reports the free distribution policy: a digital book
// with a file and zero price needs no payment at all.
func (b *Book) FreelyDownloadable() bool {
	return b.HasDigitalFile() && b.Price == 0
}

type BookStats struct {
	BookID        string  `gorm:"primaryKey;size:64;not null" json:"bookId"`
	Views         int64   `gorm:"not null;default:0" json:"views"`
	AverageRating float64 `gorm:"not null;default:0" json:"averageRating"`
	ReviewCount   int64   `gorm:"not null;default:0" json:"reviewCount"`
	CopiesSold    int64   `gorm:"not null;default:0" json:"copiesSold"`
	Downloads     int64   `gorm:"not null;default:0" json:"downloads"`
	UpdatedAt     time.Time
}

type Review struct {
	ID        string    `gorm:"primaryKey;size:64;not null" json:"id"`
	BookID    string    `gorm:"size:64;index;not null" json:"bookId"`
	UserID    string    `gorm:"size:64;index;not null" json:"userId"`
	UserName  string    `gorm:"size:128" json:"userName"`
	Rating    int       `gorm:"not null" json:"rating"` // 1..5
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"date"`
}

// PayoutAccount is the bank destination an author receives transfers on.
type PayoutAccount struct {
	AuthorID      string `gorm:"primaryKey;size:64;not null"`
	BankReference string `gorm:"size:128;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
