package repository

import (
	"bookstore-payments/internal/apperr"
	"errors"

	"gorm.io/gorm"
)

func wrapErr(op, what, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what, id)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(apperr.ErrConflict, err)
	}
	return apperr.Upstream(op, err)
}

func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
