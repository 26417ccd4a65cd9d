package model

import "fmt"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAuthor Role = "author"
	RoleReader Role = "reader"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleAuthor, RoleReader:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) CanReviewPayments() bool {
	return r == RoleAdmin
}

func (r Role) CanDownloadAnyBook() bool {
	return r == RoleAdmin
}

// Identity is the authenticated caller, as supplied by the identity provider.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   Role
}

// Owns reports whether the caller authored the book.
func (i *Identity) Owns(book *Book) bool {
	return i != nil && i.Role == RoleAuthor && book.AuthorID != "" && book.AuthorID == i.UserID
}
